package signal

import "github.com/tastevin/tastevin/internal/core"

func (ctl *SessionWSController) handlePing(
	conn *WsEventConn,
) {
	ctl.sendJSON(conn, core.SignalEvent{Type: core.EvPong})
}
