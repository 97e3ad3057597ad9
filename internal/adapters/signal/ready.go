package signal

import (
	"github.com/tastevin/tastevin/internal/app"
	"github.com/tastevin/tastevin/internal/domain"
)

type sessionPayload struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId" validate:"required,max=64"`
}

func (ctl *SessionWSController) readyCommand(
	connID domain.ConnID,
	conn *WsEventConn,
	data []byte,
	run func(room *app.Authority) error,
) {
	var p sessionPayload
	if !ctl.bindPayload(conn, data, &p) {
		return
	}
	room, err := ctl.roomFor(connID, domain.SessionID(p.SessionID))
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	if err := run(room); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *SessionWSController) handleStartReadyCheck(connID domain.ConnID, conn *WsEventConn, data []byte) {
	ctl.readyCommand(connID, conn, data, func(room *app.Authority) error {
		return room.StartReadyCheck(connID)
	})
}

func (ctl *SessionWSController) handleEndReadyCheck(connID domain.ConnID, conn *WsEventConn, data []byte) {
	ctl.readyCommand(connID, conn, data, func(room *app.Authority) error {
		return room.EndReadyCheck(connID)
	})
}

func (ctl *SessionWSController) handleMarkReady(connID domain.ConnID, conn *WsEventConn, data []byte) {
	ctl.readyCommand(connID, conn, data, func(room *app.Authority) error {
		return room.MarkReady(connID)
	})
}

func (ctl *SessionWSController) handleMarkUnready(connID domain.ConnID, conn *WsEventConn, data []byte) {
	ctl.readyCommand(connID, conn, data, func(room *app.Authority) error {
		return room.MarkUnready(connID)
	})
}
