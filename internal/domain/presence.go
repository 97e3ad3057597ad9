package domain

type ConnID string

// Presence represents one live connection's membership in a room.
// Per-connection, not per-user: a user with two open tabs appears
// twice. No transport or lifecycle logic here.
type Presence struct {
	ConnID  ConnID
	User    *User
	Ratings map[int]*float64
	Grades  map[int]Grade
}

// NewPresence avoids raw literals in adapters and keeps construction obvious.
func NewPresence(connID ConnID, user *User) *Presence {
	return &Presence{
		ConnID:  connID,
		User:    user,
		Ratings: make(map[int]*float64),
		Grades:  make(map[int]Grade),
	}
}
