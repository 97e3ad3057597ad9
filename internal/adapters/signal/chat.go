package signal

import (
	"context"

	"github.com/tastevin/tastevin/internal/domain"
)

func (ctl *SessionWSController) handleSendMessage(
	ctx context.Context,
	connID domain.ConnID,
	conn *WsEventConn,
	data []byte,
) {
	var p struct {
		Type         string   `json:"type"`
		SessionID    string   `json:"sessionId" validate:"required,max=64"`
		Content      string   `json:"content" validate:"required"`
		Phase        string   `json:"phase,omitempty" validate:"max=32"`
		ProductIndex int      `json:"productIndex" validate:"min=0"`
		Tags         []string `json:"tags,omitempty" validate:"max=16,dive,max=32"`
	}
	if !ctl.bindPayload(conn, data, &p) {
		return
	}
	room, err := ctl.roomFor(connID, domain.SessionID(p.SessionID))
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	if _, err := room.SendMessage(ctx, connID, p.Content, p.Phase, p.ProductIndex, p.Tags); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *SessionWSController) handleEditMessage(
	ctx context.Context,
	connID domain.ConnID,
	conn *WsEventConn,
	data []byte,
) {
	var p struct {
		Type      string `json:"type"`
		SessionID string `json:"sessionId" validate:"required,max=64"`
		MessageID string `json:"messageId" validate:"required,max=64"`
		Content   string `json:"content" validate:"required"`
	}
	if !ctl.bindPayload(conn, data, &p) {
		return
	}
	room, err := ctl.roomFor(connID, domain.SessionID(p.SessionID))
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	if err := room.EditMessage(ctx, connID, domain.MessageID(p.MessageID), p.Content); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *SessionWSController) handleDeleteMessage(
	ctx context.Context,
	connID domain.ConnID,
	conn *WsEventConn,
	data []byte,
) {
	var p struct {
		Type      string `json:"type"`
		SessionID string `json:"sessionId" validate:"required,max=64"`
		MessageID string `json:"messageId" validate:"required,max=64"`
	}
	if !ctl.bindPayload(conn, data, &p) {
		return
	}
	room, err := ctl.roomFor(connID, domain.SessionID(p.SessionID))
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	if err := room.DeleteMessage(ctx, connID, domain.MessageID(p.MessageID)); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *SessionWSController) handleRevealSpoilers(
	connID domain.ConnID,
	conn *WsEventConn,
	data []byte,
) {
	var p struct {
		Type          string `json:"type"`
		SessionID     string `json:"sessionId" validate:"required,max=64"`
		UpToMessageID string `json:"upToMessageId" validate:"required,max=64"`
	}
	if !ctl.bindPayload(conn, data, &p) {
		return
	}
	room, err := ctl.roomFor(connID, domain.SessionID(p.SessionID))
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	if err := room.RevealSpoilers(connID, domain.MessageID(p.UpToMessageID)); err != nil {
		ctl.sendError(conn, err)
	}
}
