package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/tastevin/tastevin/internal/core"
	"github.com/tastevin/tastevin/internal/domain"
)

// SendMessage validates, rate-limits, persists and broadcasts one chat
// message. Muted authors and ended sessions are refused before any
// state is touched.
func (a *Authority) SendMessage(ctx context.Context, connID domain.ConnID, content, phase string, productIndex int, tags []string) (*domain.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sess, err := a.actorLocked(connID)
	if err != nil {
		return nil, err
	}
	uid := sess.Presence().User.ID

	if a.session.Ended {
		return nil, domain.Rejectf(domain.ErrForbidden, "session has ended")
	}
	if _, silenced := a.muted[uid]; silenced {
		return nil, domain.Rejectf(domain.ErrForbidden, "you are muted")
	}
	if productIndex < 0 || productIndex >= a.session.ProductCount {
		return nil, domain.Rejectf(domain.ErrValidation, "product index %d out of range", productIndex)
	}
	if !domain.ValidPhase(phase, a.customTags) {
		return nil, domain.Rejectf(domain.ErrValidation, "unknown phase %q", phase)
	}
	if ok, retryAfter := a.limiter.Allow(uid); !ok {
		return nil, domain.RateLimited(retryAfter)
	}

	msg, err := domain.NewMessage(domain.UserAuthor(uid), content, phase, productIndex, tags, a.limits.MaxMessageLen)
	if err != nil {
		return nil, err
	}
	if err := a.store.RecordMessage(ctx, a.session.ID, msg); err != nil {
		return nil, err
	}

	a.messages = append(a.messages, msg)
	a.trimHistoryLocked()
	a.broadcastLocked(core.NewMessageEvent{Type: core.EvNewMessage, Message: *msg})

	log.Debug().Str("module", "app.authority").Str("session", string(a.session.ID)).
		Str("user", string(uid)).Str("message", string(msg.ID)).Msg("message sent")
	return msg, nil
}

// EditMessage is author-only; moderators delete, they never rewrite.
func (a *Authority) EditMessage(ctx context.Context, connID domain.ConnID, msgID domain.MessageID, content string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	sess, err := a.actorLocked(connID)
	if err != nil {
		return err
	}
	if a.session.Ended {
		return domain.Rejectf(domain.ErrForbidden, "session has ended")
	}

	msg := a.findMessageLocked(msgID)
	if msg == nil {
		return domain.Rejectf(domain.ErrNotFound, "message not found")
	}
	if !msg.Author.Is(sess.Presence().User.ID) {
		return domain.Rejectf(domain.ErrForbidden, "only the author can edit")
	}
	if err := msg.SetContent(content, a.limits.MaxMessageLen); err != nil {
		return err
	}
	if err := a.store.UpdateMessage(ctx, a.session.ID, msgID, content); err != nil {
		return err
	}

	a.broadcastLocked(core.MessageUpdatedEvent{Type: core.EvMessageUpdated, Message: *msg})
	return nil
}

// DeleteMessage allows the author, a moderator, or the host.
func (a *Authority) DeleteMessage(ctx context.Context, connID domain.ConnID, msgID domain.MessageID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	sess, err := a.actorLocked(connID)
	if err != nil {
		return err
	}
	if a.session.Ended {
		return domain.Rejectf(domain.ErrForbidden, "session has ended")
	}
	uid := sess.Presence().User.ID

	msg := a.findMessageLocked(msgID)
	if msg == nil {
		return domain.Rejectf(domain.ErrNotFound, "message not found")
	}
	if !msg.Author.Is(uid) && !a.isPrivilegedLocked(uid) {
		return domain.Rejectf(domain.ErrForbidden, "not allowed to delete this message")
	}
	if err := a.store.DeleteMessage(ctx, a.session.ID, msgID); err != nil {
		return err
	}

	a.removeMessagesLocked(map[domain.MessageID]struct{}{msgID: {}})
	a.broadcastLocked(core.MessageDeletedEvent{Type: core.EvMessageDeleted, MessageID: msgID})
	return nil
}

// RevealSpoilers relays a one-shot "reveal up to message X" request.
// The authority stores nothing: spoiler visibility is a local
// presentation preference on every client.
func (a *Authority) RevealSpoilers(connID domain.ConnID, upTo domain.MessageID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	sess, err := a.actorLocked(connID)
	if err != nil {
		return err
	}
	a.broadcastLocked(core.SpoilersRevealedEvent{
		Type:          core.EvSpoilersRevealed,
		UserID:        sess.Presence().User.ID,
		UpToMessageID: upTo,
	})
	return nil
}

func (a *Authority) findMessageLocked(id domain.MessageID) *domain.Message {
	for _, m := range a.messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (a *Authority) removeMessagesLocked(ids map[domain.MessageID]struct{}) {
	kept := a.messages[:0]
	for _, m := range a.messages {
		if _, gone := ids[m.ID]; !gone {
			kept = append(kept, m)
		}
	}
	a.messages = kept
}
