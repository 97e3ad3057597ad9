package domain

type SessionID string

// Session is the persisted tasting-session meta a room is built on.
type Session struct {
	ID           SessionID `json:"id"`
	HostID       UserID    `json:"hostId"`
	ProductCount int       `json:"productCount"`
	Ended        bool      `json:"ended"`
}

// BasePhases are the built-in tasting-note categories. Hosts may add
// custom tags on top of these.
var BasePhases = []string{"nose", "palate", "finish", "overall"}

func ValidPhase(phase string, customTags []string) bool {
	if phase == "" {
		return true
	}
	for _, p := range BasePhases {
		if p == phase {
			return true
		}
	}
	for _, t := range customTags {
		if t == phase {
			return true
		}
	}
	return false
}
