package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/tastevin/tastevin/internal/app"
	"github.com/tastevin/tastevin/internal/domain"
)

var validate = validator.New()

func (ctl *SessionWSController) writePump(ctx context.Context, c *WsEventConn) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SessionWSController) readPump(ctx context.Context, connID domain.ConnID, c *WsEventConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(connID)).Msg("readPump closing")
		ctl.onDisconnect(connID)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("conn", string(connID)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(connID)).Msg("readPump read error")
				return
			}
			ctl.handleCommand(ctx, connID, c, data)
		}
	}
}

// onDisconnect runs synchronously on transport close: the matching
// presence entry is removed before the connection is forgotten.
func (ctl *SessionWSController) onDisconnect(connID domain.ConnID) {
	if sid, ok := ctl.Registry.RoomOf(connID); ok {
		if room, live := ctl.Rooms.Get(sid); live {
			room.Leave(connID)
		}
		ctl.Rooms.ReleaseIfIdle(sid)
	}
	ctl.Registry.Unbind(connID)
}

func (ctl *SessionWSController) handleCommand(ctx context.Context, connID domain.ConnID, c *WsEventConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case "join_session":
		ctl.handleJoin(ctx, connID, c, data)
	case "leave_session":
		ctl.handleLeave(connID, c)
	case "send_message":
		ctl.handleSendMessage(ctx, connID, c, data)
	case "edit_message":
		ctl.handleEditMessage(ctx, connID, c, data)
	case "delete_message":
		ctl.handleDeleteMessage(ctx, connID, c, data)
	case "reveal_spoilers":
		ctl.handleRevealSpoilers(connID, c, data)
	case "update_rating":
		ctl.handleUpdateRating(ctx, connID, c, data)
	case "update_value_grade":
		ctl.handleUpdateValueGrade(ctx, connID, c, data)
	case "mute_user":
		ctl.handleMuteUser(ctx, connID, c, data)
	case "unmute_user":
		ctl.handleUnmuteUser(ctx, connID, c, data)
	case "kick_user":
		ctl.handleKickUser(ctx, connID, c, data)
	case "unkick_user":
		ctl.handleUnkickUser(ctx, connID, c, data)
	case "make_moderator":
		ctl.handleMakeModerator(connID, c, data)
	case "unmod_user":
		ctl.handleUnmodUser(connID, c, data)
	case "get_banned_users":
		ctl.handleBannedUsers(connID, c, data)
	case "start_ready_check":
		ctl.handleStartReadyCheck(connID, c, data)
	case "end_ready_check":
		ctl.handleEndReadyCheck(connID, c, data)
	case "mark_ready":
		ctl.handleMarkReady(connID, c, data)
	case "mark_unready":
		ctl.handleMarkUnready(connID, c, data)
	case "transfer_host":
		ctl.handleTransferHost(ctx, connID, c, data)
	case "end_session":
		ctl.handleEndSession(ctx, connID, c, data)
	case "update_livestream":
		ctl.handleUpdateLivestream(connID, c, data)
	case "update_custom_tags":
		ctl.handleUpdateCustomTags(connID, c, data)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown command")
	}
}

// bindPayload decodes and shape-validates a command before it touches
// any room state.
func (ctl *SessionWSController) bindPayload(c *WsEventConn, data []byte, p any) bool {
	if err := json.Unmarshal(data, p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad payload")
		ctl.sendError(c, domain.Rejectf(domain.ErrValidation, "bad payload"))
		return false
	}
	if err := validate.Struct(p); err != nil {
		ctl.sendError(c, domain.Rejectf(domain.ErrValidation, "bad payload"))
		return false
	}
	return true
}

// roomFor resolves the room the connection is joined to and checks the
// command targets that same session.
func (ctl *SessionWSController) roomFor(connID domain.ConnID, sid domain.SessionID) (*app.Authority, error) {
	joined, ok := ctl.Registry.RoomOf(connID)
	if !ok || joined != sid {
		return nil, domain.Rejectf(domain.ErrNotFound, "not in session %s", sid)
	}
	room, ok := ctl.Rooms.Get(joined)
	if !ok {
		return nil, domain.Rejectf(domain.ErrNotFound, "session %s is gone", sid)
	}
	return room, nil
}
