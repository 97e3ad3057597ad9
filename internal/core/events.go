package core

import (
	"github.com/tastevin/tastevin/internal/domain"
)

// Wire event type names. Every server push carries one of these in its
// "type" field; clients rebuild all local state from this vocabulary.
const (
	EvMessageHistory    = "message_history"
	EvActiveUsers       = "active_users"
	EvNewMessage        = "new_message"
	EvMessageUpdated    = "message_updated"
	EvMessageDeleted    = "message_deleted"
	EvMessagesErased    = "messages_erased"
	EvRatingUpdated     = "rating_updated"
	EvValueGradeUpdated = "value_grade_updated"
	EvSessionEnded      = "session_ended"
	EvSummaryGenerated  = "summary_generated"
	EvHostTransferred   = "host_transferred"
	EvLivestreamUpdated = "livestream_updated"
	EvCustomTagsUpdated = "custom_tags_updated"
	EvYouWereMuted      = "you_were_muted"
	EvYouWereUnmuted    = "you_were_unmuted"
	EvYouWereKicked     = "you_were_kicked"
	EvBannedUsersList   = "banned_users_list"
	EvUserMuted         = "user_muted"
	EvUserUnmuted       = "user_unmuted"
	EvReadyCheckStarted = "ready_check_started"
	EvReadyCheckEnded   = "ready_check_ended"
	EvUserReady         = "user_ready"
	EvReadyCheckState   = "ready_check_state"
	EvSpoilersRevealed  = "spoilers_revealed"
	EvError             = "error"
	EvPong              = "pong"
)

type MessageHistoryEvent struct {
	Type     string           `json:"type"`
	Snapshot RoomSnapshot     `json:"snapshot"`
	Messages []domain.Message `json:"messages"`
}

type ActiveUsersEvent struct {
	Type       string          `json:"type"`
	Users      []PresenceDTO   `json:"users"`
	Moderators []domain.UserID `json:"moderators"`
	HostID     domain.UserID   `json:"hostId"`
}

type NewMessageEvent struct {
	Type    string         `json:"type"`
	Message domain.Message `json:"message"`
}

type MessageUpdatedEvent struct {
	Type    string         `json:"type"`
	Message domain.Message `json:"message"`
}

type MessageDeletedEvent struct {
	Type      string           `json:"type"`
	MessageID domain.MessageID `json:"messageId"`
}

type MessagesErasedEvent struct {
	Type       string             `json:"type"`
	MessageIDs []domain.MessageID `json:"messageIds"`
}

type RatingUpdatedEvent struct {
	Type           string          `json:"type"`
	UserID         domain.UserID   `json:"userId"`
	Rating         *float64        `json:"rating"`
	ProductIndex   int             `json:"productIndex"`
	AverageRating  float64         `json:"averageRating"`
	AverageRatings map[int]float64 `json:"averageRatings"`
}

type ValueGradeUpdatedEvent struct {
	Type          string                       `json:"type"`
	UserID        domain.UserID                `json:"userId"`
	ValueGrade    domain.Grade                 `json:"valueGrade"`
	ProductIndex  int                          `json:"productIndex"`
	Distribution  map[domain.Grade]int         `json:"distribution"`
	Distributions map[int]map[domain.Grade]int `json:"distributions"`
}

type SessionEndedEvent struct {
	Type            string `json:"type"`
	HostName        string `json:"hostName"`
	Message         string `json:"message"`
	ShouldAnalyze   bool   `json:"shouldAnalyze,omitempty"`
	WasAlreadyEnded bool   `json:"wasAlreadyEnded,omitempty"`
}

type SummaryGeneratedEvent struct {
	Type      string `json:"type"`
	SummaryID string `json:"summaryId"`
}

type HostTransferredEvent struct {
	Type        string        `json:"type"`
	NewHostID   domain.UserID `json:"newHostId"`
	NewHostName string        `json:"newHostName"`
	Message     string        `json:"message"`
}

type LivestreamUpdatedEvent struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type CustomTagsUpdatedEvent struct {
	Type string   `json:"type"`
	Tags []string `json:"tags"`
}

type YouWereKickedEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type BannedUsersListEvent struct {
	Type        string                    `json:"type"`
	MutedUsers  []domain.ModerationRecord `json:"mutedUsers"`
	KickedUsers []domain.ModerationRecord `json:"kickedUsers"`
}

type UserMutedEvent struct {
	Type        string        `json:"type"`
	UserID      domain.UserID `json:"userId"`
	DisplayName string        `json:"displayName"`
}

type UserUnmutedEvent struct {
	Type   string        `json:"type"`
	UserID domain.UserID `json:"userId"`
}

type UserReadyEvent struct {
	Type   string        `json:"type"`
	UserID domain.UserID `json:"userId"`
}

type ReadyCheckStateEvent struct {
	Type       string          `json:"type"`
	IsActive   bool            `json:"isActive"`
	ReadyUsers []domain.UserID `json:"readyUsers"`
}

type SpoilersRevealedEvent struct {
	Type          string           `json:"type"`
	UserID        domain.UserID    `json:"userId"`
	UpToMessageID domain.MessageID `json:"upToMessageId"`
}

// Typed marker with no payload (you_were_muted, ready_check_started...).
type SignalEvent struct {
	Type string `json:"type"`
}

type ErrorEvent struct {
	Type             string `json:"type"`
	Message          string `json:"message"`
	Code             string `json:"code,omitempty"`
	RemainingSeconds int    `json:"remainingSeconds,omitempty"`
}
