package core

import "github.com/tastevin/tastevin/internal/domain"

// memberSession implements MemberSession by pairing presence + transport.
type memberSession struct {
	presence *domain.Presence
	conn     EventConn
	readOnly bool
}

func NewMemberSession(presence *domain.Presence, conn EventConn, readOnly bool) MemberSession {
	return &memberSession{presence: presence, conn: conn, readOnly: readOnly}
}

func (m *memberSession) Presence() *domain.Presence { return m.presence }
func (m *memberSession) Events() EventConn          { return m.conn }
func (m *memberSession) ReadOnly() bool             { return m.readOnly }
