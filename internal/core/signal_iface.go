package core

// Frame is a marshaled wire event.
type Frame []byte

// EventConn abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type EventConn interface {
	TrySend(Frame) error
	Close()
}
