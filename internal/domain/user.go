// Package domain contains entity without logic, just meta-data
package domain

const (
	MaxUserIDLen      = 36
	MaxDisplayNameLen = 36
)

type UserID string

type User struct {
	ID          UserID `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// Author distinguishes user-written messages from server-generated
// ones. Exactly one of the two shapes: UserID set, or System true.
type Author struct {
	UserID UserID `json:"userId,omitempty"`
	System bool   `json:"system,omitempty"`
}

func UserAuthor(id UserID) Author { return Author{UserID: id} }

func SystemAuthor() Author { return Author{System: true} }

func (a Author) Is(id UserID) bool { return !a.System && a.UserID == id }

// ModerationRecord is the client-visible projection of a muted or
// kicked user. Kept separate from presence: a kicked user has no
// presence but stays listed until un-kicked.
type ModerationRecord struct {
	UserID      UserID `json:"userId"`
	DisplayName string `json:"displayName"`
}
