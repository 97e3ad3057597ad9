package signal

import (
	"context"

	"github.com/tastevin/tastevin/internal/domain"
)

func (ctl *SessionWSController) handleUpdateRating(
	ctx context.Context,
	connID domain.ConnID,
	conn *WsEventConn,
	data []byte,
) {
	var p struct {
		Type         string   `json:"type"`
		SessionID    string   `json:"sessionId" validate:"required,max=64"`
		Rating       *float64 `json:"rating"`
		ProductIndex int      `json:"productIndex" validate:"min=0"`
	}
	if !ctl.bindPayload(conn, data, &p) {
		return
	}
	room, err := ctl.roomFor(connID, domain.SessionID(p.SessionID))
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	if err := room.UpdateRating(ctx, connID, p.ProductIndex, p.Rating); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *SessionWSController) handleUpdateValueGrade(
	ctx context.Context,
	connID domain.ConnID,
	conn *WsEventConn,
	data []byte,
) {
	var p struct {
		Type         string `json:"type"`
		SessionID    string `json:"sessionId" validate:"required,max=64"`
		ValueGrade   string `json:"valueGrade" validate:"max=16"`
		ProductIndex int    `json:"productIndex" validate:"min=0"`
	}
	if !ctl.bindPayload(conn, data, &p) {
		return
	}
	room, err := ctl.roomFor(connID, domain.SessionID(p.SessionID))
	if err != nil {
		ctl.sendError(conn, err)
		return
	}

	// Empty grade clears the caller's entry.
	var grade domain.Grade
	if p.ValueGrade != "" {
		grade, err = domain.ParseGrade(p.ValueGrade)
		if err != nil {
			ctl.sendError(conn, err)
			return
		}
	}
	if err := room.UpdateValueGrade(ctx, connID, p.ProductIndex, grade); err != nil {
		ctl.sendError(conn, err)
	}
}
