package app

import (
	"github.com/tastevin/tastevin/internal/core"
	"github.com/tastevin/tastevin/internal/domain"
)

// The ready check is an advisory Idle <-> InProgress sub-machine: it
// cycles freely within an active session and never affects message or
// moderation permissions.

func (a *Authority) StartReadyCheck(connID domain.ConnID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.requireHostLocked(connID); err != nil {
		return err
	}
	if a.session.Ended {
		return domain.Rejectf(domain.ErrForbidden, "session has ended")
	}
	a.readyActive = true
	a.ready = make(map[domain.UserID]struct{})
	a.broadcastLocked(core.SignalEvent{Type: core.EvReadyCheckStarted})
	a.broadcastReadyStateLocked()
	return nil
}

func (a *Authority) EndReadyCheck(connID domain.ConnID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.requireHostLocked(connID); err != nil {
		return err
	}
	if a.session.Ended {
		return domain.Rejectf(domain.ErrForbidden, "session has ended")
	}
	a.readyActive = false
	a.ready = make(map[domain.UserID]struct{})
	a.broadcastLocked(core.SignalEvent{Type: core.EvReadyCheckEnded})
	a.broadcastReadyStateLocked()
	return nil
}

// MarkReady outside an active check is a no-op success, same as the
// other idempotent commands.
func (a *Authority) MarkReady(connID domain.ConnID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	sess, err := a.actorLocked(connID)
	if err != nil {
		return err
	}
	if a.session.Ended {
		return domain.Rejectf(domain.ErrForbidden, "session has ended")
	}
	if !a.readyActive {
		return nil
	}
	uid := sess.Presence().User.ID
	if _, already := a.ready[uid]; already {
		return nil
	}
	a.ready[uid] = struct{}{}
	a.broadcastLocked(core.UserReadyEvent{Type: core.EvUserReady, UserID: uid})
	a.broadcastReadyStateLocked()
	return nil
}

func (a *Authority) MarkUnready(connID domain.ConnID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	sess, err := a.actorLocked(connID)
	if err != nil {
		return err
	}
	if a.session.Ended {
		return domain.Rejectf(domain.ErrForbidden, "session has ended")
	}
	if !a.readyActive {
		return nil
	}
	delete(a.ready, sess.Presence().User.ID)
	a.broadcastReadyStateLocked()
	return nil
}

func (a *Authority) broadcastReadyStateLocked() {
	users := make([]domain.UserID, 0, len(a.ready))
	for uid := range a.ready {
		users = append(users, uid)
	}
	a.broadcastLocked(core.ReadyCheckStateEvent{
		Type:       core.EvReadyCheckState,
		IsActive:   a.readyActive,
		ReadyUsers: users,
	})
}
