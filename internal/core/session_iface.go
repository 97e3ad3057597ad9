package core

import "github.com/tastevin/tastevin/internal/domain"

// MemberSession binds a presence entry and its transport endpoint.
// This is what a room stores and fans out to. ReadOnly sessions are
// anonymous public viewers: they receive events but every mutating
// command is rejected before reaching the room.
type MemberSession interface {
	Presence() *domain.Presence
	Events() EventConn
	ReadOnly() bool
}
