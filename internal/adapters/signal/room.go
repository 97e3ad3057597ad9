package signal

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/tastevin/tastevin/internal/core"
	"github.com/tastevin/tastevin/internal/domain"
)

// handleJoin admits the connection into a room, materializing it on
// first join. A connection holds at most one membership: joining a
// second session leaves the first.
func (ctl *SessionWSController) handleJoin(
	ctx context.Context,
	connID domain.ConnID,
	conn *WsEventConn,
	data []byte,
) {
	var p struct {
		Type      string `json:"type"`
		SessionID string `json:"sessionId" validate:"required,max=64"`
	}
	if !ctl.bindPayload(conn, data, &p) {
		return
	}
	sid := domain.SessionID(p.SessionID)

	user, readOnly, ok := ctl.Registry.UserOf(connID)
	if !ok {
		log.Warn().Str("module", "signal").Str("conn", string(connID)).Msg("join from unbound connection")
		return
	}

	if prev, joined := ctl.Registry.RoomOf(connID); joined && prev != sid {
		if room, live := ctl.Rooms.Get(prev); live {
			room.Leave(connID)
		}
		ctl.Rooms.ReleaseIfIdle(prev)
		ctl.Registry.RemoveRoom(connID)
	}

	var firstJoiner *domain.User
	if !readOnly {
		firstJoiner = user
	}
	room, err := ctl.Rooms.GetOrCreate(ctx, sid, firstJoiner)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}

	presence := domain.NewPresence(connID, user)
	sess := core.NewMemberSession(presence, conn, readOnly)
	if err := room.Join(sess); err != nil {
		ctl.sendError(conn, err)
		return
	}
	// Read-only viewers get the association too: their disconnect must
	// still release a room they materialized.
	ctl.Registry.UpdateRoom(connID, sid)

	log.Info().Str("module", "signal").Str("conn", string(connID)).
		Str("session", string(sid)).Msg("join")
}

// handleLeave removes the membership; the socket itself stays open.
func (ctl *SessionWSController) handleLeave(
	connID domain.ConnID,
	conn *WsEventConn,
) {
	log.Info().Str("module", "signal").Str("conn", string(connID)).Msg("leave")

	if sid, ok := ctl.Registry.RoomOf(connID); ok {
		if room, live := ctl.Rooms.Get(sid); live {
			room.Leave(connID)
		}
		ctl.Rooms.ReleaseIfIdle(sid)
		ctl.Registry.RemoveRoom(connID)
	}
	ctl.sendJSON(conn, core.SignalEvent{Type: "left"})
}
