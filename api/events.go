// File: api/events.go
// Package api defines socket event types delivered to the core.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// EventKind identifies what the socket layer observed.
type EventKind int

const (
	EventConnect EventKind = iota
	EventDataReady
	EventDisconnect
	EventTimeout
)

func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventDataReady:
		return "data"
	case EventDisconnect:
		return "disconnect"
	case EventTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Terminal reports whether k ends a connection. Every accepted connection
// yields exactly one terminal event unless the core closed it first.
func (k EventKind) Terminal() bool {
	return k == EventDisconnect || k == EventTimeout
}

// SocketEvent is one notification from the socket layer. Data is only set
// for EventDataReady and is owned by the receiver once posted.
type SocketEvent struct {
	Kind EventKind
	Conn ConnID
	Port int
	Data []byte
}

// EventSink accepts socket events. Post reports false when the event was
// dropped, e.g. after shutdown.
type EventSink interface {
	Post(ev SocketEvent) bool
}
