package signal

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/tastevin/tastevin/internal/app"
	"github.com/tastevin/tastevin/internal/config"
	"github.com/tastevin/tastevin/internal/core"
	"github.com/tastevin/tastevin/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// SessionWSController is the connection-session layer: it binds one
// websocket to one identity, validates command shape, and forwards to
// the room authority. All room state lives behind the authority.
type SessionWSController struct {
	Rooms    *app.RoomManager
	Registry *app.Registry
	Cfg      *config.Config
}

func NewSessionWSController(rooms *app.RoomManager, registry *app.Registry, cfg *config.Config) *SessionWSController {
	return &SessionWSController{Rooms: rooms, Registry: registry, Cfg: cfg}
}

type WsEventConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsEventConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsEventConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSocket upgrades the connection and starts the pumps. Identity
// was resolved by the auth middleware; no identity means an anonymous
// read-only viewer.
func (ctl *SessionWSController) HandleSocket(ctx context.Context, c *gin.Context) {
	connID := domain.ConnID(uuid.NewString())

	var user *domain.User
	readOnly := true
	if v, ok := c.Get("user"); ok {
		if u, okCast := v.(*domain.User); okCast && u != nil {
			user = u
			readOnly = false
		}
	}
	if user == nil {
		user = &domain.User{ID: domain.UserID("viewer:" + string(connID)), DisplayName: "viewer"}
	}
	log.Info().Str("module", "signal").Str("conn", string(connID)).
		Str("user", string(user.ID)).Bool("read_only", readOnly).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	if ctl.Cfg.ReadLimit > 0 {
		ws.SetReadLimit(ctl.Cfg.ReadLimit)
	}

	conn := &WsEventConn{
		conn: ws,
		send: make(chan core.Frame, 64),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Registry.Bind(connID, user, readOnly, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, connID, conn)
}

func (ctl *SessionWSController) sendJSON(c core.EventConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

// sendError maps the authority's rejection taxonomy onto the wire
// error event; anything unrecognized is reported as internal.
func (ctl *SessionWSController) sendError(c *WsEventConn, err error) {
	ev := core.ErrorEvent{Type: core.EvError, Message: "internal error", Code: "internal"}

	var rej *domain.Reject
	if errors.As(err, &rej) {
		ev.Message = rej.Reason
		switch {
		case errors.Is(rej.Kind, domain.ErrValidation):
			ev.Code = "validation"
		case errors.Is(rej.Kind, domain.ErrForbidden):
			ev.Code = "forbidden"
		case errors.Is(rej.Kind, domain.ErrNotFound):
			ev.Code = "not_found"
		case errors.Is(rej.Kind, domain.ErrRateLimited):
			ev.Code = "rate_limited"
			ev.RemainingSeconds = int(math.Ceil(rej.RetryAfter.Seconds()))
		case errors.Is(rej.Kind, domain.ErrConflict):
			ev.Code = "conflict"
		}
	} else {
		log.Error().Err(err).Str("module", "signal").Msg("command failed")
	}
	ctl.sendJSON(c, ev)
}
