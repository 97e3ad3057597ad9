package signal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tastevin/tastevin/internal/app"
	"github.com/tastevin/tastevin/internal/config"
	"github.com/tastevin/tastevin/internal/core"
	"github.com/tastevin/tastevin/internal/domain"
)

// knownStore seeds any requested session, standing in for a database
// that already holds it.
type knownStore struct {
	app.NopStore
}

func (knownStore) Seed(_ context.Context, id domain.SessionID) (*app.SeedState, error) {
	return &app.SeedState{Session: domain.Session{ID: id, HostID: "host", ProductCount: 1}}, nil
}

func newTestController() (*SessionWSController, *app.RoomManager, *app.Registry) {
	limits := app.Limits{HistoryWindow: 10, MaxMessageLen: 200, ChatLimit: 5, ChatWindow: time.Second}
	rooms := app.NewRoomManager(knownStore{}, nil, app.DropPolicy{}, limits, time.Hour)
	registry := app.NewRegistry()
	return NewSessionWSController(rooms, registry, &config.Config{}), rooms, registry
}

func TestReadOnlyViewerReleasesRoomOnDisconnect(t *testing.T) {
	ctl, rooms, registry := newTestController()

	connID := domain.ConnID("c-view")
	conn := &WsEventConn{send: make(chan core.Frame, 8)}
	registry.Bind(connID, &domain.User{ID: "viewer:c-view", DisplayName: "viewer"}, true, func() {})

	ctl.handleJoin(context.Background(), connID, conn, []byte(`{"type":"join_session","sessionId":"s1"}`))

	_, live := rooms.Get("s1")
	require.True(t, live, "viewer join materializes the room")
	sid, ok := registry.RoomOf(connID)
	require.True(t, ok, "viewer connections carry the room association")
	assert.Equal(t, domain.SessionID("s1"), sid)

	ctl.onDisconnect(connID)
	_, live = rooms.Get("s1")
	assert.False(t, live, "viewer-materialized room is released on disconnect")
	_, ok = registry.RoomOf(connID)
	assert.False(t, ok)
}

func TestJoinSwitchingSessionsLeavesPrevious(t *testing.T) {
	ctl, rooms, registry := newTestController()

	connID := domain.ConnID("c-1")
	conn := &WsEventConn{send: make(chan core.Frame, 16)}
	registry.Bind(connID, &domain.User{ID: "u1", DisplayName: "Ava"}, false, func() {})

	ctx := context.Background()
	ctl.handleJoin(ctx, connID, conn, []byte(`{"type":"join_session","sessionId":"s1"}`))
	ctl.handleJoin(ctx, connID, conn, []byte(`{"type":"join_session","sessionId":"s2"}`))

	_, live := rooms.Get("s1")
	assert.False(t, live, "previous room has no members left")
	room2, live := rooms.Get("s2")
	require.True(t, live)
	assert.Equal(t, 1, room2.ConnCount())

	sid, ok := registry.RoomOf(connID)
	require.True(t, ok)
	assert.Equal(t, domain.SessionID("s2"), sid)
}
