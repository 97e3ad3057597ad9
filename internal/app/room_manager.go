package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tastevin/tastevin/internal/domain"
)

type RoomInfo struct {
	SessionID   domain.SessionID `json:"sessionId"`
	MemberCount int              `json:"memberCount"`
	Ended       bool             `json:"ended"`
}

// RoomManager materializes one Authority per live session, lazily on
// first join, and garbage-collects rooms nobody is connected to.
// Ended rooms linger for the retention window so late joiners can
// still replay history.
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[domain.SessionID]*Authority

	store      Store
	summarizer Summarizer
	policy     Policy
	limits     Limits
	retention  time.Duration
}

func NewRoomManager(store Store, summarizer Summarizer, policy Policy, limits Limits, retention time.Duration) *RoomManager {
	return &RoomManager{
		rooms:      make(map[domain.SessionID]*Authority),
		store:      store,
		summarizer: summarizer,
		policy:     policy,
		limits:     limits,
		retention:  retention,
	}
}

// GetOrCreate returns the live Authority for a session, seeding it
// from the store on first join. When the store has never heard of the
// session, the first authenticated joiner becomes its host; anonymous
// viewers cannot summon rooms into existence.
func (m *RoomManager) GetOrCreate(ctx context.Context, sid domain.SessionID, firstJoiner *domain.User) (*Authority, error) {
	m.mu.RLock()
	room, ok := m.rooms[sid]
	m.mu.RUnlock()
	if ok {
		return room, nil
	}

	seed, err := m.store.Seed(ctx, sid)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		if firstJoiner == nil {
			return nil, domain.Rejectf(domain.ErrNotFound, "session %s does not exist", sid)
		}
		seed = &SeedState{Session: domain.Session{ID: sid, HostID: firstJoiner.ID, ProductCount: 1}}
	default:
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok = m.rooms[sid]; ok {
		return room, nil
	}
	room = NewAuthority(seed, m.store, m.summarizer, m.policy, m.limits)
	m.rooms[sid] = room
	log.Info().Str("module", "app.rooms").Str("session", string(sid)).
		Bool("ended", seed.Session.Ended).Msg("room materialized")
	return room, nil
}

func (m *RoomManager) Get(sid domain.SessionID) (*Authority, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[sid]
	return room, ok
}

// ReleaseIfIdle destroys the in-memory room once the last connection
// leaves, unless the session has ended (ended rooms wait for Sweep).
func (m *RoomManager) ReleaseIfIdle(sid domain.SessionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[sid]
	if !ok {
		return
	}
	if room.ConnCount() == 0 && !room.Ended() {
		delete(m.rooms, sid)
		log.Info().Str("module", "app.rooms").Str("session", string(sid)).Msg("room released")
	}
}

// Sweep drops ended rooms past retention with no connections left.
func (m *RoomManager) Sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sid, room := range m.rooms {
		endedAt, ended := room.EndedAt()
		if ended && room.ConnCount() == 0 && now.Sub(endedAt) > m.retention {
			delete(m.rooms, sid)
			log.Info().Str("module", "app.rooms").Str("session", string(sid)).Msg("ended room swept")
		}
	}
}

// Run sweeps periodically until the context is done.
func (m *RoomManager) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}

func (m *RoomManager) List() []RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RoomInfo, 0, len(m.rooms))
	for sid, room := range m.rooms {
		out = append(out, RoomInfo{SessionID: sid, MemberCount: room.ConnCount(), Ended: room.Ended()})
	}
	return out
}
