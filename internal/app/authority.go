package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tastevin/tastevin/internal/core"
	"github.com/tastevin/tastevin/internal/domain"
)

// Limits are the per-room tunables the authority enforces.
type Limits struct {
	HistoryWindow int
	MaxMessageLen int
	ChatLimit     int
	ChatWindow    time.Duration
}

// Authority is the single writer for one session's room state. Every
// command locks the room mutex and runs to completion, so two racing
// moderation calls on the same target can never interleave.
type Authority struct {
	mu sync.Mutex

	session       domain.Session
	moderators    map[domain.UserID]struct{}
	muted         map[domain.UserID]string
	kicked        map[domain.UserID]string
	customTags    []string
	livestreamURL string
	readyActive   bool
	ready         map[domain.UserID]struct{}
	messages      []*domain.Message
	endedAt       time.Time

	members  map[domain.ConnID]core.MemberSession
	overruns map[domain.ConnID]int

	limiter    *ChatLimiter
	policy     Policy
	store      Store
	summarizer Summarizer
	limits     Limits
}

func NewAuthority(seed *SeedState, store Store, summarizer Summarizer, policy Policy, limits Limits) *Authority {
	a := &Authority{
		session:       seed.Session,
		moderators:    make(map[domain.UserID]struct{}),
		muted:         make(map[domain.UserID]string),
		kicked:        make(map[domain.UserID]string),
		customTags:    seed.CustomTags,
		livestreamURL: seed.LivestreamURL,
		ready:         make(map[domain.UserID]struct{}),
		members:       make(map[domain.ConnID]core.MemberSession),
		overruns:      make(map[domain.ConnID]int),
		limiter:       NewChatLimiter(limits.ChatLimit, limits.ChatWindow),
		policy:        policy,
		store:         store,
		summarizer:    summarizer,
		limits:        limits,
	}
	for _, m := range seed.Muted {
		a.muted[m.UserID] = m.DisplayName
	}
	for _, k := range seed.Kicked {
		a.kicked[k.UserID] = k.DisplayName
	}
	for i := range seed.Messages {
		msg := seed.Messages[i]
		a.messages = append(a.messages, &msg)
	}
	a.trimHistoryLocked()
	if a.session.Ended {
		a.endedAt = time.Now()
	}
	return a
}

// Join admits a connection: kicked users are refused, everyone else
// gets the authoritative snapshot plus the recent message tail, and
// the room sees an updated presence list. Read-only viewers get the
// snapshot but are not subscribed to further events.
func (a *Authority) Join(sess core.MemberSession) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	p := sess.Presence()
	if !sess.ReadOnly() {
		if _, banned := a.kicked[p.User.ID]; banned {
			return domain.Rejectf(domain.ErrForbidden, "you are banned from this session")
		}
	}

	history := core.MessageHistoryEvent{
		Type:     core.EvMessageHistory,
		Snapshot: a.snapshotLocked(),
		Messages: a.messageTailLocked(),
	}

	if sess.ReadOnly() {
		a.sendEvent(p.ConnID, sess.Events(), history)
		if a.session.Ended {
			a.sendEvent(p.ConnID, sess.Events(), a.endedEventLocked(true))
		}
		return nil
	}

	// A second tab starts from the user's current entries, so the
	// per-user aggregates see the same values on every connection.
	for _, other := range a.members {
		o := other.Presence()
		if o.User.ID != p.User.ID {
			continue
		}
		for idx, v := range o.Ratings {
			if v != nil {
				val := *v
				p.Ratings[idx] = &val
			}
		}
		for idx, g := range o.Grades {
			p.Grades[idx] = g
		}
		break
	}

	a.members[p.ConnID] = sess
	a.sendEvent(p.ConnID, sess.Events(), history)
	if a.session.Ended {
		a.sendEvent(p.ConnID, sess.Events(), a.endedEventLocked(true))
	}
	a.broadcastPresenceLocked()

	log.Info().Str("module", "app.authority").Str("session", string(a.session.ID)).
		Str("conn", string(p.ConnID)).Str("user", string(p.User.ID)).Msg("member joined")
	return nil
}

// Leave removes the matching presence entry. No-op if the connection
// was never admitted.
func (a *Authority) Leave(connID domain.ConnID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.members[connID]; !ok {
		return
	}
	delete(a.members, connID)
	delete(a.overruns, connID)
	a.broadcastPresenceLocked()

	log.Info().Str("module", "app.authority").Str("session", string(a.session.ID)).
		Str("conn", string(connID)).Msg("member left")
}

func (a *Authority) SessionID() domain.SessionID { return a.session.ID }

func (a *Authority) ConnCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.members)
}

func (a *Authority) Ended() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.Ended
}

func (a *Authority) EndedAt() (time.Time, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.endedAt, a.session.Ended
}

// HostID is exposed for tests and the rooms listing.
func (a *Authority) HostID() domain.UserID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.HostID
}

// actor resolves a connection to its live session, rejecting unknown
// connections and read-only viewers. Every mutating command funnels
// through this.
func (a *Authority) actorLocked(connID domain.ConnID) (core.MemberSession, error) {
	sess, ok := a.members[connID]
	if !ok {
		return nil, domain.Rejectf(domain.ErrNotFound, "not in this session")
	}
	if sess.ReadOnly() {
		return nil, domain.Rejectf(domain.ErrForbidden, "read-only viewer")
	}
	return sess, nil
}

func (a *Authority) isPrivilegedLocked(uid domain.UserID) bool {
	if uid == a.session.HostID {
		return true
	}
	_, ok := a.moderators[uid]
	return ok
}

// userPresentLocked re-validates a target at apply time: racing
// commands (promote vs. kick) resolve against current truth.
func (a *Authority) userPresentLocked(uid domain.UserID) bool {
	for _, sess := range a.members {
		if sess.Presence().User.ID == uid {
			return true
		}
	}
	return false
}

func (a *Authority) displayNameLocked(uid domain.UserID) string {
	for _, sess := range a.members {
		if p := sess.Presence(); p.User.ID == uid {
			return p.User.DisplayName
		}
	}
	return ""
}

func (a *Authority) snapshotLocked() core.RoomSnapshot {
	mods := make([]domain.UserID, 0, len(a.moderators))
	for uid := range a.moderators {
		mods = append(mods, uid)
	}
	ready := make([]domain.UserID, 0, len(a.ready))
	for uid := range a.ready {
		ready = append(ready, uid)
	}
	return core.RoomSnapshot{
		SessionID:          a.session.ID,
		HostID:             a.session.HostID,
		Moderators:         mods,
		MutedUsers:         moderationRecords(a.muted),
		KickedUsers:        moderationRecords(a.kicked),
		CustomTags:         a.customTags,
		LivestreamURL:      a.livestreamURL,
		Ended:              a.session.Ended,
		ProductCount:       a.session.ProductCount,
		ReadyCheck:         core.ReadyState{IsActive: a.readyActive, ReadyUsers: ready},
		Users:              a.presenceListLocked(),
		AverageRatings:     a.averageRatingsLocked(),
		GradeDistributions: a.gradeDistributionsLocked(),
	}
}

func moderationRecords(m map[domain.UserID]string) []domain.ModerationRecord {
	out := make([]domain.ModerationRecord, 0, len(m))
	for uid, name := range m {
		out = append(out, domain.ModerationRecord{UserID: uid, DisplayName: name})
	}
	return out
}

func (a *Authority) presenceListLocked() []core.PresenceDTO {
	out := make([]core.PresenceDTO, 0, len(a.members))
	for _, sess := range a.members {
		p := sess.Presence()
		out = append(out, core.PresenceDTO{
			ConnID:      p.ConnID,
			UserID:      p.User.ID,
			DisplayName: p.User.DisplayName,
			AvatarURL:   p.User.AvatarURL,
			Ratings:     p.Ratings,
			ValueGrades: p.Grades,
		})
	}
	return out
}

func (a *Authority) messageTailLocked() []domain.Message {
	out := make([]domain.Message, 0, len(a.messages))
	for _, m := range a.messages {
		out = append(out, *m)
	}
	return out
}

func (a *Authority) trimHistoryLocked() {
	if a.limits.HistoryWindow > 0 && len(a.messages) > a.limits.HistoryWindow {
		a.messages = a.messages[len(a.messages)-a.limits.HistoryWindow:]
	}
}

func (a *Authority) broadcastPresenceLocked() {
	mods := make([]domain.UserID, 0, len(a.moderators))
	for uid := range a.moderators {
		mods = append(mods, uid)
	}
	a.broadcastLocked(core.ActiveUsersEvent{
		Type:       core.EvActiveUsers,
		Users:      a.presenceListLocked(),
		Moderators: mods,
		HostID:     a.session.HostID,
	})
}

// broadcastLocked fans an event out to every subscribed connection.
// Slow subscribers drop the frame; the policy decides when a run of
// drops turns into a forced disconnect (the client re-joins and
// resnapshots).
func (a *Authority) broadcastLocked(v any) {
	frame, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.authority").Msg("broadcast marshal")
		return
	}
	for connID, sess := range a.members {
		if err := sess.Events().TrySend(core.Frame(frame)); err != nil {
			a.overruns[connID]++
			if a.policy != nil && a.policy.OnBackPressure(connID, a.overruns[connID]) == Disconnect {
				log.Warn().Str("module", "app.authority").Str("conn", string(connID)).
					Int("overruns", a.overruns[connID]).Msg("disconnecting slow subscriber")
				sess.Events().Close()
			}
			continue
		}
		delete(a.overruns, connID)
	}
}

// sendToUserLocked targets every connection of one user (two tabs get
// the notice twice).
func (a *Authority) sendToUserLocked(uid domain.UserID, v any) {
	for connID, sess := range a.members {
		if sess.Presence().User.ID == uid {
			a.sendEvent(connID, sess.Events(), v)
		}
	}
}

func (a *Authority) sendToConnLocked(connID domain.ConnID, v any) {
	if sess, ok := a.members[connID]; ok {
		a.sendEvent(connID, sess.Events(), v)
	}
}

func (a *Authority) sendEvent(connID domain.ConnID, conn core.EventConn, v any) {
	frame, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.authority").Msg("event marshal")
		return
	}
	if err := conn.TrySend(core.Frame(frame)); err != nil {
		log.Warn().Err(err).Str("module", "app.authority").Str("conn", string(connID)).Msg("targeted send dropped")
	}
}

// appendSystemLocked records and broadcasts a server-authored message.
func (a *Authority) appendSystemLocked(ctx context.Context, content string) {
	msg, err := domain.NewMessage(domain.SystemAuthor(), content, "", 0, nil, a.limits.MaxMessageLen)
	if err != nil {
		return
	}
	if err := a.store.RecordMessage(ctx, a.session.ID, msg); err != nil {
		log.Warn().Err(err).Str("module", "app.authority").Msg("system message not persisted")
	}
	a.messages = append(a.messages, msg)
	a.trimHistoryLocked()
	a.broadcastLocked(core.NewMessageEvent{Type: core.EvNewMessage, Message: *msg})
}

func (a *Authority) endedEventLocked(alreadyEnded bool) core.SessionEndedEvent {
	return core.SessionEndedEvent{
		Type:            core.EvSessionEnded,
		HostName:        a.displayNameLocked(a.session.HostID),
		Message:         "The tasting session has ended",
		WasAlreadyEnded: alreadyEnded,
	}
}
