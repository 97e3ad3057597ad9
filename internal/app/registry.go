package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tastevin/tastevin/internal/domain"
)

type connEntry struct {
	SessionID domain.SessionID
	User      *domain.User
	ReadOnly  bool
	Cancel    context.CancelFunc
}

// Registry tracks live connections: their resolved identity, the room
// they are in (at most one), and the cancel to tear the pumps down.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]*connEntry
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[domain.ConnID]*connEntry)}
}

func (r *Registry) Bind(connID domain.ConnID, user *domain.User, readOnly bool, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connID] = &connEntry{User: user, ReadOnly: readOnly, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("conn", string(connID)).
		Str("user", string(user.ID)).Bool("read_only", readOnly).Msg("bound connection")
}

func (r *Registry) Unbind(connID domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, connID)
	log.Info().Str("module", "app.registry").Str("conn", string(connID)).Msg("unbind connection")
}

func (r *Registry) UserOf(connID domain.ConnID) (*domain.User, bool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[connID]
	if !ok {
		return nil, false, false
	}
	return e.User, e.ReadOnly, true
}

func (r *Registry) RoomOf(connID domain.ConnID) (domain.SessionID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[connID]
	if !ok || e.SessionID == "" {
		return "", false
	}
	return e.SessionID, true
}

func (r *Registry) UpdateRoom(connID domain.ConnID, sid domain.SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[connID]
	if !ok {
		return false
	}
	e.SessionID = sid
	log.Info().Str("module", "app.registry").Str("conn", string(connID)).
		Str("session", string(sid)).Msg("updated room")
	return true
}

func (r *Registry) RemoveRoom(connID domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[connID]; ok {
		e.SessionID = ""
	}
	log.Info().Str("module", "app.registry").Str("conn", string(connID)).Msg("removed room association")
}

func (r *Registry) Cancel(connID domain.ConnID) bool {
	r.mu.RLock()
	e, ok := r.conns[connID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(connID)).Msg("canceled connection")
	return true
}
