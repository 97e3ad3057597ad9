package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tastevin/tastevin/internal/core"
	"github.com/tastevin/tastevin/internal/domain"
)

// TransferHost atomically swaps the host. The old host stays present
// as a regular participant; nothing is demoted automatically, except
// that the new host leaves the moderator set (the host is implicitly
// privileged) and the muted list (the host is never muted).
func (a *Authority) TransferHost(ctx context.Context, connID domain.ConnID, newHost domain.UserID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.requireHostLocked(connID); err != nil {
		return err
	}
	if a.session.Ended {
		return domain.Rejectf(domain.ErrForbidden, "session has ended")
	}
	if newHost == a.session.HostID {
		return nil
	}
	if !a.userPresentLocked(newHost) {
		return domain.Rejectf(domain.ErrNotFound, "new host is not in the session")
	}

	a.session.HostID = newHost
	delete(a.moderators, newHost)
	if _, wasMuted := a.muted[newHost]; wasMuted {
		if err := a.store.RemoveModeration(ctx, a.session.ID, ModerationMuted, newHost); err != nil {
			log.Warn().Err(err).Str("module", "app.authority").Msg("unmute of new host not persisted")
		}
		delete(a.muted, newHost)
		a.broadcastLocked(core.UserUnmutedEvent{Type: core.EvUserUnmuted, UserID: newHost})
	}

	name := a.displayNameLocked(newHost)
	notice := fmt.Sprintf("%s is now the host", name)
	a.broadcastLocked(core.HostTransferredEvent{
		Type:        core.EvHostTransferred,
		NewHostID:   newHost,
		NewHostName: name,
		Message:     notice,
	})
	a.appendSystemLocked(ctx, notice)
	a.broadcastPresenceLocked()

	log.Info().Str("module", "app.authority").Str("session", string(a.session.ID)).
		Str("new_host", string(newHost)).Msg("host transferred")
	return nil
}

// EndSession is host-only and monotonic: Active -> Ended is the only
// top-level transition and nothing reverses it through this protocol.
// A repeated end returns the ended event to the caller alone with
// wasAlreadyEnded set, so late fetches are not mistaken for a fresh
// live transition.
func (a *Authority) EndSession(ctx context.Context, connID domain.ConnID, shouldSynthesize bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.requireHostLocked(connID); err != nil {
		return err
	}
	if a.session.Ended {
		a.sendToConnLocked(connID, a.endedEventLocked(true))
		return nil
	}
	if err := a.store.MarkEnded(ctx, a.session.ID); err != nil {
		return err
	}

	a.session.Ended = true
	a.endedAt = time.Now()
	a.readyActive = false
	a.ready = make(map[domain.UserID]struct{})

	hostName := a.displayNameLocked(a.session.HostID)
	a.broadcastLocked(core.SessionEndedEvent{
		Type:          core.EvSessionEnded,
		HostName:      hostName,
		Message:       fmt.Sprintf("%s ended the tasting session", hostName),
		ShouldAnalyze: shouldSynthesize,
	})

	if shouldSynthesize && a.summarizer != nil {
		go a.synthesize()
	}

	log.Info().Str("module", "app.authority").Str("session", string(a.session.ID)).
		Bool("synthesize", shouldSynthesize).Msg("session ended")
	return nil
}

// UpdateLivestream is a host/moderator field replace-and-broadcast.
func (a *Authority) UpdateLivestream(connID domain.ConnID, url string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	sess, err := a.actorLocked(connID)
	if err != nil {
		return err
	}
	if a.session.Ended {
		return domain.Rejectf(domain.ErrForbidden, "session has ended")
	}
	if !a.isPrivilegedLocked(sess.Presence().User.ID) {
		return domain.Rejectf(domain.ErrForbidden, "moderator privilege required")
	}
	if len(url) > 2048 {
		return domain.Rejectf(domain.ErrValidation, "livestream url too long")
	}

	a.livestreamURL = url
	a.broadcastLocked(core.LivestreamUpdatedEvent{Type: core.EvLivestreamUpdated, URL: url})
	return nil
}

const (
	maxCustomTags   = 16
	maxCustomTagLen = 32
)

// UpdateCustomTags replaces the host-defined tag list, preserving
// order and dropping duplicates.
func (a *Authority) UpdateCustomTags(connID domain.ConnID, tags []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	sess, err := a.actorLocked(connID)
	if err != nil {
		return err
	}
	if a.session.Ended {
		return domain.Rejectf(domain.ErrForbidden, "session has ended")
	}
	if !a.isPrivilegedLocked(sess.Presence().User.ID) {
		return domain.Rejectf(domain.ErrForbidden, "moderator privilege required")
	}
	if len(tags) > maxCustomTags {
		return domain.Rejectf(domain.ErrValidation, "too many custom tags")
	}

	seen := make(map[string]struct{}, len(tags))
	clean := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" || len(t) > maxCustomTagLen {
			return domain.Rejectf(domain.ErrValidation, "invalid custom tag %q", t)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		clean = append(clean, t)
	}

	a.customTags = clean
	a.broadcastLocked(core.CustomTagsUpdatedEvent{Type: core.EvCustomTagsUpdated, Tags: clean})
	return nil
}
