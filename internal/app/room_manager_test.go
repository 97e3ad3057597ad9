package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tastevin/tastevin/internal/core"
	"github.com/tastevin/tastevin/internal/domain"
)

// seedStore returns a fixed seed for one known session and NotFound
// for everything else.
type seedStore struct {
	NopStore
	known domain.SessionID
	seed  SeedState
}

func (s seedStore) Seed(_ context.Context, sid domain.SessionID) (*SeedState, error) {
	if sid != s.known {
		return nil, domain.Rejectf(domain.ErrNotFound, "session %s does not exist", sid)
	}
	seed := s.seed
	return &seed, nil
}

func newTestManager(store Store) *RoomManager {
	return NewRoomManager(store, nil, DropPolicy{}, testLimits(), time.Hour)
}

func TestGetOrCreate_FirstJoinerBecomesHost(t *testing.T) {
	m := newTestManager(NopStore{})
	ctx := context.Background()

	// Anonymous viewers cannot summon rooms into existence.
	_, err := m.GetOrCreate(ctx, "fresh", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	room, err := m.GetOrCreate(ctx, "fresh", &domain.User{ID: "u1", DisplayName: "Ava"})
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("u1"), room.HostID())

	// Second call returns the same live room regardless of who asks.
	again, err := m.GetOrCreate(ctx, "fresh", &domain.User{ID: "u2", DisplayName: "Bo"})
	require.NoError(t, err)
	assert.Same(t, room, again)
	assert.Equal(t, domain.UserID("u1"), again.HostID())
}

func TestGetOrCreate_SeedsFromStore(t *testing.T) {
	store := seedStore{
		known: "s9",
		seed: SeedState{
			Session:  domain.Session{ID: "s9", HostID: "stored-host", ProductCount: 3},
			Messages: []domain.Message{{ID: "m1", Author: domain.UserAuthor("stored-host"), Content: "welcome back"}},
			Muted:    []domain.ModerationRecord{{UserID: "loud", DisplayName: "Loud"}},
		},
	}
	m := newTestManager(store)

	room, err := m.GetOrCreate(context.Background(), "s9", &domain.User{ID: "u1", DisplayName: "Ava"})
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("stored-host"), room.HostID(), "store wins over the joiner")

	conn := &fakeConn{}
	p := domain.NewPresence("c1", &domain.User{ID: "u1", DisplayName: "Ava"})
	require.NoError(t, room.Join(core.NewMemberSession(p, conn, false)))

	hist, ok := conn.lastOfType(t, core.EvMessageHistory)
	require.True(t, ok)
	assert.Len(t, hist["messages"].([]any), 1)
	snap := hist["snapshot"].(map[string]any)
	assert.Len(t, snap["mutedUsers"].([]any), 1)
}

func TestReleaseIfIdle(t *testing.T) {
	m := newTestManager(NopStore{})
	ctx := context.Background()

	room, err := m.GetOrCreate(ctx, "s1", &domain.User{ID: "u1", DisplayName: "Ava"})
	require.NoError(t, err)

	p := domain.NewPresence("c1", &domain.User{ID: "u1", DisplayName: "Ava"})
	require.NoError(t, room.Join(core.NewMemberSession(p, &fakeConn{}, false)))

	// Occupied rooms survive.
	m.ReleaseIfIdle("s1")
	_, ok := m.Get("s1")
	assert.True(t, ok)

	room.Leave("c1")
	m.ReleaseIfIdle("s1")
	_, ok = m.Get("s1")
	assert.False(t, ok)
}

func TestReleaseIfIdle_EndedRoomRetained(t *testing.T) {
	m := newTestManager(NopStore{})
	ctx := context.Background()

	room, err := m.GetOrCreate(ctx, "s1", &domain.User{ID: "host", DisplayName: "Ava"})
	require.NoError(t, err)

	p := domain.NewPresence("c1", &domain.User{ID: "host", DisplayName: "Ava"})
	require.NoError(t, room.Join(core.NewMemberSession(p, &fakeConn{}, false)))
	require.NoError(t, room.EndSession(ctx, "c1", false))
	room.Leave("c1")

	// Ended rooms wait for the sweeper so late joiners can replay.
	m.ReleaseIfIdle("s1")
	_, ok := m.Get("s1")
	assert.True(t, ok)

	m.Sweep(time.Now().Add(30 * time.Minute))
	_, ok = m.Get("s1")
	assert.True(t, ok, "inside the retention window")

	m.Sweep(time.Now().Add(2 * time.Hour))
	_, ok = m.Get("s1")
	assert.False(t, ok, "past retention with no connections")
}

// moderationStore keeps the durable moderation lists so a re-seeded
// room starts from them.
type moderationStore struct {
	NopStore
	session domain.Session
	muted   map[domain.UserID]string
	kicked  map[domain.UserID]string
}

func newModerationStore(sess domain.Session) *moderationStore {
	return &moderationStore{
		session: sess,
		muted:   make(map[domain.UserID]string),
		kicked:  make(map[domain.UserID]string),
	}
}

func (s *moderationStore) listFor(kind ModerationKind) map[domain.UserID]string {
	if kind == ModerationKicked {
		return s.kicked
	}
	return s.muted
}

func (s *moderationStore) Seed(_ context.Context, sid domain.SessionID) (*SeedState, error) {
	if sid != s.session.ID {
		return nil, domain.ErrNotFound
	}
	seed := &SeedState{Session: s.session}
	for uid, name := range s.muted {
		seed.Muted = append(seed.Muted, domain.ModerationRecord{UserID: uid, DisplayName: name})
	}
	for uid, name := range s.kicked {
		seed.Kicked = append(seed.Kicked, domain.ModerationRecord{UserID: uid, DisplayName: name})
	}
	return seed, nil
}

func (s *moderationStore) RecordModeration(_ context.Context, _ domain.SessionID, kind ModerationKind, rec domain.ModerationRecord) error {
	s.listFor(kind)[rec.UserID] = rec.DisplayName
	return nil
}

func (s *moderationStore) RemoveModeration(_ context.Context, _ domain.SessionID, kind ModerationKind, uid domain.UserID) error {
	delete(s.listFor(kind), uid)
	return nil
}

func TestKickSurvivesRoomRelease(t *testing.T) {
	st := newModerationStore(domain.Session{ID: "s1", HostID: "host", ProductCount: 1})
	m := newTestManager(st)
	ctx := context.Background()

	room, err := m.GetOrCreate(ctx, "s1", nil)
	require.NoError(t, err)
	joinUser(t, room, "c-host", "host", "Ava")
	joinUser(t, room, "c-t", "t1", "Bo")

	require.NoError(t, room.MuteUser(ctx, "c-host", "t1"))
	require.NoError(t, room.KickUser(ctx, "c-host", "t1", false))
	room.Leave("c-host")
	m.ReleaseIfIdle("s1")
	_, live := m.Get("s1")
	require.False(t, live)

	// The re-seeded room still refuses the kicked user.
	room2, err := m.GetOrCreate(ctx, "s1", nil)
	require.NoError(t, err)
	p := domain.NewPresence("c-t2", &domain.User{ID: "t1", DisplayName: "Bo"})
	err = room2.Join(core.NewMemberSession(p, &fakeConn{}, false))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// Un-kick clears the durable record too.
	joinUser(t, room2, "c-host2", "host", "Ava")
	require.NoError(t, room2.UnkickUser(ctx, "c-host2", "t1"))
	room2.Leave("c-host2")
	m.ReleaseIfIdle("s1")

	room3, err := m.GetOrCreate(ctx, "s1", nil)
	require.NoError(t, err)
	p = domain.NewPresence("c-t3", &domain.User{ID: "t1", DisplayName: "Bo"})
	require.NoError(t, room3.Join(core.NewMemberSession(p, &fakeConn{}, false)))

	// The mute made it through the same round trip.
	_, stillMuted := room3.muted["t1"]
	assert.True(t, stillMuted)
}

func TestList(t *testing.T) {
	m := newTestManager(NopStore{})
	ctx := context.Background()

	room, err := m.GetOrCreate(ctx, "s1", &domain.User{ID: "u1", DisplayName: "Ava"})
	require.NoError(t, err)
	p := domain.NewPresence("c1", &domain.User{ID: "u1", DisplayName: "Ava"})
	require.NoError(t, room.Join(core.NewMemberSession(p, &fakeConn{}, false)))

	infos := m.List()
	require.Len(t, infos, 1)
	assert.Equal(t, domain.SessionID("s1"), infos[0].SessionID)
	assert.Equal(t, 1, infos[0].MemberCount)
	assert.False(t, infos[0].Ended)
}
