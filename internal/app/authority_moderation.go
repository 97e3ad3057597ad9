package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/tastevin/tastevin/internal/core"
	"github.com/tastevin/tastevin/internal/domain"
)

// requireModeratorLocked resolves the acting connection and checks it
// holds host or moderator privilege, and that the target is not the
// host (the host is never a valid moderation target).
func (a *Authority) requireModeratorLocked(connID domain.ConnID, target domain.UserID) (domain.UserID, error) {
	sess, err := a.actorLocked(connID)
	if err != nil {
		return "", err
	}
	if a.session.Ended {
		return "", domain.Rejectf(domain.ErrForbidden, "session has ended")
	}
	actor := sess.Presence().User.ID
	if !a.isPrivilegedLocked(actor) {
		return "", domain.Rejectf(domain.ErrForbidden, "moderator privilege required")
	}
	if target == a.session.HostID {
		return "", domain.Rejectf(domain.ErrForbidden, "the host cannot be targeted")
	}
	return actor, nil
}

// MuteUser is idempotent: muting an already-muted user is a no-op, not
// a toggle.
func (a *Authority) MuteUser(ctx context.Context, connID domain.ConnID, target domain.UserID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	actor, err := a.requireModeratorLocked(connID, target)
	if err != nil {
		return err
	}
	if _, already := a.muted[target]; already {
		return nil
	}
	if !a.userPresentLocked(target) {
		return domain.Rejectf(domain.ErrNotFound, "user is not in the session")
	}

	name := a.displayNameLocked(target)
	rec := domain.ModerationRecord{UserID: target, DisplayName: name}
	if err := a.store.RecordModeration(ctx, a.session.ID, ModerationMuted, rec); err != nil {
		return err
	}
	a.muted[target] = name
	a.broadcastLocked(core.UserMutedEvent{Type: core.EvUserMuted, UserID: target, DisplayName: name})
	a.sendToUserLocked(target, core.SignalEvent{Type: core.EvYouWereMuted})

	log.Info().Str("module", "app.authority").Str("session", string(a.session.ID)).
		Str("actor", string(actor)).Str("target", string(target)).Msg("user muted")
	return nil
}

func (a *Authority) UnmuteUser(ctx context.Context, connID domain.ConnID, target domain.UserID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.requireModeratorLocked(connID, target); err != nil {
		return err
	}
	if _, ok := a.muted[target]; !ok {
		return nil
	}
	if err := a.store.RemoveModeration(ctx, a.session.ID, ModerationMuted, target); err != nil {
		return err
	}
	delete(a.muted, target)
	a.broadcastLocked(core.UserUnmutedEvent{Type: core.EvUserUnmuted, UserID: target})
	a.sendToUserLocked(target, core.SignalEvent{Type: core.EvYouWereUnmuted})
	return nil
}

// KickUser removes every presence entry of the target, bars re-join
// until un-kicked, and notifies the target's connection(s) before
// cutting them. eraseMessages additionally removes all of the target's
// messages as one bulk event so the fan-out stays bounded.
func (a *Authority) KickUser(ctx context.Context, connID domain.ConnID, target domain.UserID, eraseMessages bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	actor, err := a.requireModeratorLocked(connID, target)
	if err != nil {
		return err
	}
	_, alreadyKicked := a.kicked[target]
	if !a.userPresentLocked(target) && !alreadyKicked {
		return domain.Rejectf(domain.ErrNotFound, "user is not in the session")
	}

	if !alreadyKicked {
		name := a.displayNameLocked(target)
		rec := domain.ModerationRecord{UserID: target, DisplayName: name}
		if err := a.store.RecordModeration(ctx, a.session.ID, ModerationKicked, rec); err != nil {
			return err
		}
		a.kicked[target] = name
	}

	// Notify first: after removal the target has no presence to send to.
	a.sendToUserLocked(target, core.YouWereKickedEvent{
		Type:    core.EvYouWereKicked,
		Message: "you were removed from this session",
	})

	removed := false
	for id, sess := range a.members {
		if sess.Presence().User.ID == target {
			sess.Events().Close()
			delete(a.members, id)
			delete(a.overruns, id)
			removed = true
		}
	}
	delete(a.ready, target)
	a.limiter.Forget(target)

	if eraseMessages {
		erased := make([]domain.MessageID, 0)
		drop := make(map[domain.MessageID]struct{})
		for _, m := range a.messages {
			if m.Author.Is(target) {
				erased = append(erased, m.ID)
				drop[m.ID] = struct{}{}
			}
		}
		if err := a.store.DeleteUserMessages(ctx, a.session.ID, target); err != nil {
			log.Warn().Err(err).Str("module", "app.authority").Msg("bulk erase not persisted")
		}
		a.removeMessagesLocked(drop)
		a.broadcastLocked(core.MessagesErasedEvent{Type: core.EvMessagesErased, MessageIDs: erased})
	}

	if removed {
		a.broadcastPresenceLocked()
	}

	log.Info().Str("module", "app.authority").Str("session", string(a.session.ID)).
		Str("actor", string(actor)).Str("target", string(target)).
		Bool("erase", eraseMessages).Msg("user kicked")
	return nil
}

func (a *Authority) UnkickUser(ctx context.Context, connID domain.ConnID, target domain.UserID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.requireModeratorLocked(connID, target); err != nil {
		return err
	}
	if _, ok := a.kicked[target]; !ok {
		return nil
	}
	if err := a.store.RemoveModeration(ctx, a.session.ID, ModerationKicked, target); err != nil {
		return err
	}
	delete(a.kicked, target)
	return nil
}

// MakeModerator is host-only and idempotent. The host is implicitly
// privileged and never enters the moderator set.
func (a *Authority) MakeModerator(connID domain.ConnID, target domain.UserID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.requireHostLocked(connID); err != nil {
		return err
	}
	if a.session.Ended {
		return domain.Rejectf(domain.ErrForbidden, "session has ended")
	}
	if target == a.session.HostID {
		return nil
	}
	if _, already := a.moderators[target]; already {
		return nil
	}
	if !a.userPresentLocked(target) {
		return domain.Rejectf(domain.ErrNotFound, "user is not in the session")
	}
	a.moderators[target] = struct{}{}
	a.broadcastPresenceLocked()
	return nil
}

func (a *Authority) UnmodUser(connID domain.ConnID, target domain.UserID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.requireHostLocked(connID); err != nil {
		return err
	}
	if a.session.Ended {
		return domain.Rejectf(domain.ErrForbidden, "session has ended")
	}
	if _, ok := a.moderators[target]; !ok {
		return nil
	}
	delete(a.moderators, target)
	a.broadcastPresenceLocked()
	return nil
}

// BannedUsers sends the moderation lists to the requesting connection
// only. Host or moderator.
func (a *Authority) BannedUsers(connID domain.ConnID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	sess, err := a.actorLocked(connID)
	if err != nil {
		return err
	}
	if !a.isPrivilegedLocked(sess.Presence().User.ID) {
		return domain.Rejectf(domain.ErrForbidden, "moderator privilege required")
	}
	a.sendToConnLocked(connID, core.BannedUsersListEvent{
		Type:        core.EvBannedUsersList,
		MutedUsers:  moderationRecords(a.muted),
		KickedUsers: moderationRecords(a.kicked),
	})
	return nil
}

func (a *Authority) requireHostLocked(connID domain.ConnID) error {
	sess, err := a.actorLocked(connID)
	if err != nil {
		return err
	}
	if sess.Presence().User.ID != a.session.HostID {
		return domain.Rejectf(domain.ErrForbidden, "host privilege required")
	}
	return nil
}
