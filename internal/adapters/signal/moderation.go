package signal

import (
	"context"

	"github.com/tastevin/tastevin/internal/domain"
)

type targetPayload struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId" validate:"required,max=64"`
	UserID    string `json:"userId" validate:"required,max=64"`
}

func (ctl *SessionWSController) handleMuteUser(ctx context.Context, connID domain.ConnID, conn *WsEventConn, data []byte) {
	var p targetPayload
	if !ctl.bindPayload(conn, data, &p) {
		return
	}
	room, err := ctl.roomFor(connID, domain.SessionID(p.SessionID))
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	if err := room.MuteUser(ctx, connID, domain.UserID(p.UserID)); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *SessionWSController) handleUnmuteUser(ctx context.Context, connID domain.ConnID, conn *WsEventConn, data []byte) {
	var p targetPayload
	if !ctl.bindPayload(conn, data, &p) {
		return
	}
	room, err := ctl.roomFor(connID, domain.SessionID(p.SessionID))
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	if err := room.UnmuteUser(ctx, connID, domain.UserID(p.UserID)); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *SessionWSController) handleKickUser(ctx context.Context, connID domain.ConnID, conn *WsEventConn, data []byte) {
	var p struct {
		Type          string `json:"type"`
		SessionID     string `json:"sessionId" validate:"required,max=64"`
		UserID        string `json:"userId" validate:"required,max=64"`
		EraseMessages bool   `json:"eraseMessages,omitempty"`
	}
	if !ctl.bindPayload(conn, data, &p) {
		return
	}
	room, err := ctl.roomFor(connID, domain.SessionID(p.SessionID))
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	if err := room.KickUser(ctx, connID, domain.UserID(p.UserID), p.EraseMessages); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *SessionWSController) handleUnkickUser(ctx context.Context, connID domain.ConnID, conn *WsEventConn, data []byte) {
	var p targetPayload
	if !ctl.bindPayload(conn, data, &p) {
		return
	}
	room, err := ctl.roomFor(connID, domain.SessionID(p.SessionID))
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	if err := room.UnkickUser(ctx, connID, domain.UserID(p.UserID)); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *SessionWSController) handleMakeModerator(connID domain.ConnID, conn *WsEventConn, data []byte) {
	var p targetPayload
	if !ctl.bindPayload(conn, data, &p) {
		return
	}
	room, err := ctl.roomFor(connID, domain.SessionID(p.SessionID))
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	if err := room.MakeModerator(connID, domain.UserID(p.UserID)); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *SessionWSController) handleUnmodUser(connID domain.ConnID, conn *WsEventConn, data []byte) {
	var p targetPayload
	if !ctl.bindPayload(conn, data, &p) {
		return
	}
	room, err := ctl.roomFor(connID, domain.SessionID(p.SessionID))
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	if err := room.UnmodUser(connID, domain.UserID(p.UserID)); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *SessionWSController) handleBannedUsers(connID domain.ConnID, conn *WsEventConn, data []byte) {
	var p struct {
		Type      string `json:"type"`
		SessionID string `json:"sessionId" validate:"required,max=64"`
	}
	if !ctl.bindPayload(conn, data, &p) {
		return
	}
	room, err := ctl.roomFor(connID, domain.SessionID(p.SessionID))
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	if err := room.BannedUsers(connID); err != nil {
		ctl.sendError(conn, err)
	}
}
