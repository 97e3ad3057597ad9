package core

import (
	"github.com/tastevin/tastevin/internal/domain"
)

// PresenceDTO is a read-only view for the wire (no transport fields).
type PresenceDTO struct {
	ConnID      domain.ConnID            `json:"connectionId"`
	UserID      domain.UserID            `json:"userId"`
	DisplayName string                   `json:"displayName"`
	AvatarURL   string                   `json:"avatarUrl,omitempty"`
	Ratings     map[int]*float64         `json:"ratings"`
	ValueGrades map[int]domain.Grade     `json:"valueGrades"`
}

// ReadyState is the wire view of a room's ready-check sub-machine.
type ReadyState struct {
	IsActive   bool            `json:"isActive"`
	ReadyUsers []domain.UserID `json:"readyUsers"`
}

// RoomSnapshot is the full-state view pushed to a joining connection.
// The message tail travels alongside it, not inside it.
type RoomSnapshot struct {
	SessionID          domain.SessionID              `json:"sessionId"`
	HostID             domain.UserID                 `json:"hostId"`
	Moderators         []domain.UserID               `json:"moderators"`
	MutedUsers         []domain.ModerationRecord     `json:"mutedUsers"`
	KickedUsers        []domain.ModerationRecord     `json:"kickedUsers"`
	CustomTags         []string                      `json:"customTags"`
	LivestreamURL      string                        `json:"livestreamUrl,omitempty"`
	Ended              bool                          `json:"ended"`
	ProductCount       int                           `json:"productCount"`
	ReadyCheck         ReadyState                    `json:"readyCheck"`
	Users              []PresenceDTO                 `json:"users"`
	AverageRatings     map[int]float64               `json:"averageRatings"`
	GradeDistributions map[int]map[domain.Grade]int  `json:"gradeDistributions"`
}
