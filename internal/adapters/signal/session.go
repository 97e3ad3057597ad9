package signal

import (
	"context"

	"github.com/tastevin/tastevin/internal/domain"
)

func (ctl *SessionWSController) handleTransferHost(
	ctx context.Context,
	connID domain.ConnID,
	conn *WsEventConn,
	data []byte,
) {
	var p targetPayload
	if !ctl.bindPayload(conn, data, &p) {
		return
	}
	room, err := ctl.roomFor(connID, domain.SessionID(p.SessionID))
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	if err := room.TransferHost(ctx, connID, domain.UserID(p.UserID)); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *SessionWSController) handleEndSession(
	ctx context.Context,
	connID domain.ConnID,
	conn *WsEventConn,
	data []byte,
) {
	var p struct {
		Type             string `json:"type"`
		SessionID        string `json:"sessionId" validate:"required,max=64"`
		ShouldSynthesize bool   `json:"shouldSynthesize,omitempty"`
	}
	if !ctl.bindPayload(conn, data, &p) {
		return
	}
	room, err := ctl.roomFor(connID, domain.SessionID(p.SessionID))
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	if err := room.EndSession(ctx, connID, p.ShouldSynthesize); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *SessionWSController) handleUpdateLivestream(
	connID domain.ConnID,
	conn *WsEventConn,
	data []byte,
) {
	var p struct {
		Type      string `json:"type"`
		SessionID string `json:"sessionId" validate:"required,max=64"`
		URL       string `json:"url" validate:"omitempty,url,max=2048"`
	}
	if !ctl.bindPayload(conn, data, &p) {
		return
	}
	room, err := ctl.roomFor(connID, domain.SessionID(p.SessionID))
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	if err := room.UpdateLivestream(connID, p.URL); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *SessionWSController) handleUpdateCustomTags(
	connID domain.ConnID,
	conn *WsEventConn,
	data []byte,
) {
	var p struct {
		Type      string   `json:"type"`
		SessionID string   `json:"sessionId" validate:"required,max=64"`
		Tags      []string `json:"tags" validate:"max=16,dive,min=1,max=32"`
	}
	if !ctl.bindPayload(conn, data, &p) {
		return
	}
	room, err := ctl.roomFor(connID, domain.SessionID(p.SessionID))
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	if err := room.UpdateCustomTags(connID, p.Tags); err != nil {
		ctl.sendError(conn, err)
	}
}
