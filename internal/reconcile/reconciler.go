// Package reconcile rebuilds a client's local view from the
// server-pushed event stream. It never mutates state from an
// optimistic guess: the snapshot on join is the baseline, every
// delta event is applied as-is, and a reconnect replaces everything
// wholesale.
package reconcile

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tastevin/tastevin/internal/core"
	"github.com/tastevin/tastevin/internal/domain"
)

// Notice is a one-shot banner surfaced to the user.
type Notice struct {
	Kind    string
	Message string
}

// State is the derived local projection.
type State struct {
	SessionID     domain.SessionID
	HostID        domain.UserID
	Moderators    []domain.UserID
	Users         []core.PresenceDTO
	Messages      []domain.Message
	MutedUsers    []domain.ModerationRecord
	KickedUsers   []domain.ModerationRecord
	CustomTags    []string
	LivestreamURL string
	ProductCount  int

	AverageRatings     map[int]float64
	GradeDistributions map[int]map[domain.Grade]int

	Ready core.ReadyState

	Muted     bool
	Kicked    bool
	Ended     bool
	SummaryID string
}

// Reconciler applies wire frames to a State. One instance per viewing
// client.
type Reconciler struct {
	mu sync.Mutex
	st State

	// Local presentation preferences, never sent to the server.
	phaseVisible   map[string]bool
	revealDefault  bool
	revealedUpTo   domain.MessageID
	hasRevealPoint bool

	notices []Notice
}

func New() *Reconciler {
	return &Reconciler{
		phaseVisible: make(map[string]bool),
	}
}

// Snapshot returns a copy of the current projection.
func (r *Reconciler) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st
}

// Notices drains the pending one-shot notices.
func (r *Reconciler) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.notices
	r.notices = nil
	return out
}

// SetPhaseVisible flips the local spoiler default for one phase tag.
func (r *Reconciler) SetPhaseVisible(phase string, visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phaseVisible[phase] = visible
}

// SpoilerVisible reports whether a message's spoiler content should
// render. Purely local: phase preference, or a reveal point at or
// past the message.
func (r *Reconciler) SpoilerVisible(m domain.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.phaseVisible[m.Phase]; ok && v {
		return true
	}
	if !r.hasRevealPoint {
		return r.revealDefault
	}
	for _, msg := range r.st.Messages {
		if msg.ID == m.ID {
			return true
		}
		if msg.ID == r.revealedUpTo {
			return false
		}
	}
	return r.revealDefault
}

// Apply consumes one wire frame. Unknown event types are ignored so
// old clients tolerate new server vocabulary. After a kick every
// further frame is dropped: the client must navigate away, not rejoin.
func (r *Reconciler) Apply(frame []byte) error {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &env); err != nil {
		return fmt.Errorf("reconcile decode: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.st.Kicked {
		return nil
	}

	switch env.Type {
	case core.EvMessageHistory:
		var ev core.MessageHistoryEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			return err
		}
		r.applySnapshot(ev)

	case core.EvActiveUsers:
		var ev core.ActiveUsersEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			return err
		}
		r.st.Users = ev.Users
		r.st.Moderators = ev.Moderators
		r.st.HostID = ev.HostID

	case core.EvNewMessage:
		var ev core.NewMessageEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			return err
		}
		// Arrival order equals broadcast order; no re-sorting.
		r.st.Messages = append(r.st.Messages, ev.Message)

	case core.EvMessageUpdated:
		var ev core.MessageUpdatedEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			return err
		}
		for i := range r.st.Messages {
			if r.st.Messages[i].ID == ev.Message.ID {
				r.st.Messages[i] = ev.Message
				break
			}
		}

	case core.EvMessageDeleted:
		var ev core.MessageDeletedEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			return err
		}
		r.removeMessages(map[domain.MessageID]struct{}{ev.MessageID: {}})

	case core.EvMessagesErased:
		var ev core.MessagesErasedEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			return err
		}
		drop := make(map[domain.MessageID]struct{}, len(ev.MessageIDs))
		for _, id := range ev.MessageIDs {
			drop[id] = struct{}{}
		}
		r.removeMessages(drop)

	case core.EvRatingUpdated:
		var ev core.RatingUpdatedEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			return err
		}
		// Overwrite only the affected entries and take the aggregate
		// from the event; recomputing locally would drift whenever
		// the presence view is momentarily stale.
		for i := range r.st.Users {
			if r.st.Users[i].UserID == ev.UserID {
				if r.st.Users[i].Ratings == nil {
					r.st.Users[i].Ratings = make(map[int]*float64)
				}
				if ev.Rating == nil {
					delete(r.st.Users[i].Ratings, ev.ProductIndex)
				} else {
					v := *ev.Rating
					r.st.Users[i].Ratings[ev.ProductIndex] = &v
				}
			}
		}
		r.st.AverageRatings = ev.AverageRatings

	case core.EvValueGradeUpdated:
		var ev core.ValueGradeUpdatedEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			return err
		}
		for i := range r.st.Users {
			if r.st.Users[i].UserID == ev.UserID {
				if r.st.Users[i].ValueGrades == nil {
					r.st.Users[i].ValueGrades = make(map[int]domain.Grade)
				}
				if ev.ValueGrade == "" {
					delete(r.st.Users[i].ValueGrades, ev.ProductIndex)
				} else {
					r.st.Users[i].ValueGrades[ev.ProductIndex] = ev.ValueGrade
				}
			}
		}
		r.st.GradeDistributions = ev.Distributions

	case core.EvYouWereKicked:
		var ev core.YouWereKickedEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			return err
		}
		// Discard everything; the notice is the only survivor.
		r.st = State{Kicked: true}
		r.notices = append(r.notices, Notice{Kind: "kicked", Message: ev.Message})

	case core.EvYouWereMuted:
		// Muting suppresses future sends only; rendered messages stay.
		r.st.Muted = true

	case core.EvYouWereUnmuted:
		r.st.Muted = false

	case core.EvUserMuted:
		var ev core.UserMutedEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			return err
		}
		for _, rec := range r.st.MutedUsers {
			if rec.UserID == ev.UserID {
				return nil
			}
		}
		r.st.MutedUsers = append(r.st.MutedUsers, domain.ModerationRecord{UserID: ev.UserID, DisplayName: ev.DisplayName})

	case core.EvUserUnmuted:
		var ev core.UserUnmutedEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			return err
		}
		kept := r.st.MutedUsers[:0]
		for _, rec := range r.st.MutedUsers {
			if rec.UserID != ev.UserID {
				kept = append(kept, rec)
			}
		}
		r.st.MutedUsers = kept

	case core.EvBannedUsersList:
		var ev core.BannedUsersListEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			return err
		}
		r.st.MutedUsers = ev.MutedUsers
		r.st.KickedUsers = ev.KickedUsers

	case core.EvSessionEnded:
		var ev core.SessionEndedEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			return err
		}
		r.st.Ended = true
		if !ev.WasAlreadyEnded {
			r.notices = append(r.notices, Notice{Kind: "ended", Message: ev.Message})
		}

	case core.EvSummaryGenerated:
		var ev core.SummaryGeneratedEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			return err
		}
		r.st.SummaryID = ev.SummaryID

	case core.EvHostTransferred:
		var ev core.HostTransferredEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			return err
		}
		r.st.HostID = ev.NewHostID

	case core.EvLivestreamUpdated:
		var ev core.LivestreamUpdatedEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			return err
		}
		r.st.LivestreamURL = ev.URL

	case core.EvCustomTagsUpdated:
		var ev core.CustomTagsUpdatedEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			return err
		}
		r.st.CustomTags = ev.Tags

	case core.EvReadyCheckStarted:
		r.st.Ready = core.ReadyState{IsActive: true}

	case core.EvReadyCheckEnded:
		r.st.Ready = core.ReadyState{}

	case core.EvUserReady:
		var ev core.UserReadyEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			return err
		}
		for _, uid := range r.st.Ready.ReadyUsers {
			if uid == ev.UserID {
				return nil
			}
		}
		r.st.Ready.ReadyUsers = append(r.st.Ready.ReadyUsers, ev.UserID)

	case core.EvReadyCheckState:
		var ev core.ReadyCheckStateEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			return err
		}
		r.st.Ready = core.ReadyState{IsActive: ev.IsActive, ReadyUsers: ev.ReadyUsers}

	case core.EvSpoilersRevealed:
		var ev core.SpoilersRevealedEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			return err
		}
		// A convenience signal: reveal our own local spoiler state up
		// to that message. Not authoritative room state.
		r.revealedUpTo = ev.UpToMessageID
		r.hasRevealPoint = true

	case core.EvError:
		var ev core.ErrorEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			return err
		}
		r.notices = append(r.notices, Notice{Kind: "error", Message: ev.Message})
	}
	return nil
}

func (r *Reconciler) applySnapshot(ev core.MessageHistoryEvent) {
	snap := ev.Snapshot
	r.st = State{
		SessionID:          snap.SessionID,
		HostID:             snap.HostID,
		Moderators:         snap.Moderators,
		Users:              snap.Users,
		Messages:           ev.Messages, // wholesale replace, not merge
		MutedUsers:         snap.MutedUsers,
		KickedUsers:        snap.KickedUsers,
		CustomTags:         snap.CustomTags,
		LivestreamURL:      snap.LivestreamURL,
		ProductCount:       snap.ProductCount,
		AverageRatings:     snap.AverageRatings,
		GradeDistributions: snap.GradeDistributions,
		Ready:              snap.ReadyCheck,
		Ended:              snap.Ended,
	}
}

func (r *Reconciler) removeMessages(drop map[domain.MessageID]struct{}) {
	// Absence of a targeted id is fine: already removed is a valid
	// terminal state.
	kept := r.st.Messages[:0]
	for _, m := range r.st.Messages {
		if _, gone := drop[m.ID]; !gone {
			kept = append(kept, m)
		}
	}
	r.st.Messages = kept
}
