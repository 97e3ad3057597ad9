package app

import "github.com/tastevin/tastevin/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	Disconnect
)

// Policy decides what to do with a subscriber whose send buffer
// overflowed during fan-out. overruns is the count of consecutive
// dropped frames for that connection.
type Policy interface {
	OnBackPressure(connID domain.ConnID, overruns int) BackpressureAction
}

// DropPolicy tolerates a bounded run of dropped frames, then cuts the
// connection so the client re-joins and resnapshots.
type DropPolicy struct {
	DisconnectAfter int
}

func (p DropPolicy) OnBackPressure(connID domain.ConnID, overruns int) BackpressureAction {
	if p.DisconnectAfter > 0 && overruns >= p.DisconnectAfter {
		return Disconnect
	}
	return DropFrame
}
