// File: protocol/connection.go
// Package protocol implements the per-connection WebSocket state machine.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Connection interprets the bytes of each data-ready event according to its
// state: a handshake while connecting, a single frame while open. Frames are
// never accumulated across events, so a partial frame is fatal.

package protocol

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/momentics/wsecho/api"
)

// Connection errors.
var (
	ErrFrameTooLarge     = fmt.Errorf("%w: payload exceeds configured maximum", api.ErrMalformedFrame)
	ErrBinaryUnsupported = fmt.Errorf("%w: binary frames are not accepted", api.ErrUnsupportedFrame)
	ErrDataAfterReject   = fmt.Errorf("%w: data after rejected upgrade", api.ErrMalformedHandshake)
)

// ConnConfig holds the per-connection limits and routing.
type ConnConfig struct {
	EchoPath          string // only upgrade path served
	MaxPayload        int    // largest accepted inbound payload
	ReceiveBufferSize int    // 0 = MaxPayload + MaxFrameHeaderLen
}

// DefaultConnConfig mirrors the firmware limits.
func DefaultConnConfig() ConnConfig {
	return ConnConfig{
		EchoPath:   "/echo",
		MaxPayload: 1024,
	}
}

func (c ConnConfig) bufferSize() int {
	if c.ReceiveBufferSize > 0 {
		return c.ReceiveBufferSize
	}
	return c.MaxPayload + MaxFrameHeaderLen
}

// Tracer receives decoded frames when debug tracing is enabled.
type Tracer func(c *Connection, f *Frame)

// Connection is one server-side WebSocket peer slot.
type Connection struct {
	id      api.ConnID
	session uuid.UUID
	socket  api.Socket
	cfg     ConnConfig
	trace   Tracer

	state   api.ConnState
	recvBuf []byte // fixed capacity, exclusively owned
	pending int    // valid bytes in recvBuf
	sendBuf []byte // reused for outbound frames
	lastURI string

	bytesReceived  int64
	bytesSent      int64
	framesReceived int64
	framesSent     int64
}

// NewConnection creates a connection in the connecting state.
func NewConnection(id api.ConnID, socket api.Socket, cfg ConnConfig) *Connection {
	if cfg.MaxPayload <= 0 || cfg.MaxPayload > MaxPayloadLen {
		cfg.MaxPayload = DefaultConnConfig().MaxPayload
	}
	if cfg.EchoPath == "" {
		cfg.EchoPath = DefaultConnConfig().EchoPath
	}
	size := cfg.bufferSize()
	return &Connection{
		id:      id,
		session: uuid.New(),
		socket:  socket,
		cfg:     cfg,
		state:   api.StateConnecting,
		recvBuf: make([]byte, size),
		sendBuf: make([]byte, 0, size),
	}
}

// SetTracer installs a frame tracer; nil disables tracing.
func (c *Connection) SetTracer(t Tracer) {
	c.trace = t
}

// ID returns the socket handle this connection is bound to.
func (c *Connection) ID() api.ConnID { return c.id }

// Session returns the log correlation id of this connection.
func (c *Connection) Session() uuid.UUID { return c.session }

// State returns the current protocol state.
func (c *Connection) State() api.ConnState { return c.state }

// URI returns the request URI of the last handshake, if any.
func (c *Connection) URI() string { return c.lastURI }

// Pending returns the number of valid bytes in the receive buffer.
func (c *Connection) Pending() int { return c.pending }

// HandleData processes the bytes of one data-ready event. A nil return keeps
// the connection; any error means the caller must tear it down. Peer-initiated
// close returns api.ErrPeerClosed after the closing frame has been sent.
func (c *Connection) HandleData(data []byte) error {
	if len(data) > len(c.recvBuf) {
		return fmt.Errorf("%w: %d bytes received, buffer holds %d",
			api.ErrFieldTooLong, len(data), len(c.recvBuf))
	}
	c.pending = copy(c.recvBuf, data)
	atomic.AddInt64(&c.bytesReceived, int64(c.pending))
	buf := c.recvBuf[:c.pending]

	switch c.state {
	case api.StateConnecting:
		return c.handleHandshake(buf)
	case api.StateOpen:
		return c.handleFrame(buf)
	case api.StateClosing:
		c.state = api.StateClosed
		return ErrDataAfterReject
	default:
		return api.ErrConnectionClosed
	}
}

func (c *Connection) handleHandshake(buf []byte) error {
	hdr, perr := ParseRequest(buf)
	c.lastURI = hdr.URI
	resp, rerr := BuildResponse(hdr)

	if perr != nil || rerr != nil {
		if err := c.send(resp); err != nil {
			c.state = api.StateClosed
			return err
		}
		c.state = api.StateClosed
		if perr != nil {
			return perr
		}
		return fmt.Errorf("%w: %w", api.ErrMalformedHandshake, rerr)
	}

	if hdr.URI != c.cfg.EchoPath {
		if err := c.send(NotFoundResponse()); err != nil {
			c.state = api.StateClosed
			return err
		}
		c.state = api.StateClosing
		return nil
	}

	if err := c.send(resp); err != nil {
		c.state = api.StateClosed
		return err
	}
	c.state = api.StateOpen
	c.pending = 0
	return nil
}

func (c *Connection) handleFrame(buf []byte) error {
	f, err := ParseFrame(buf)
	if c.trace != nil {
		c.trace(c, f)
	}
	if f.PayloadLen > uint64(c.cfg.MaxPayload) {
		c.state = api.StateClosed
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, f.PayloadLen, c.cfg.MaxPayload)
	}
	if err != nil {
		c.state = api.StateClosed
		return err
	}
	atomic.AddInt64(&c.framesReceived, 1)

	switch f.Type {
	case TypeText:
		if err := c.sendFrame(TypeText, f.Payload); err != nil {
			c.state = api.StateClosed
			return err
		}
		c.pending = 0
		return nil
	case TypeClosing:
		err := c.send(ClosingFrame())
		c.state = api.StateClosed
		if err != nil {
			return err
		}
		return api.ErrPeerClosed
	case TypePing, TypePong:
		return c.handleControl(f)
	case TypeBinary:
		c.state = api.StateClosed
		return ErrBinaryUnsupported
	default:
		c.state = api.StateClosed
		return fmt.Errorf("%w: unexpected frame type %s", api.ErrMalformedFrame, f.Type)
	}
}

// handleControl answers ping with a pong carrying the same payload and
// drops unsolicited pongs.
func (c *Connection) handleControl(f *Frame) error {
	c.pending = 0
	if f.Type != TypePing {
		return nil
	}
	if len(f.Payload) > MaxControlPayloadLen {
		c.state = api.StateClosed
		return ErrControlTooLarge
	}
	if err := c.sendFrame(TypePong, f.Payload); err != nil {
		c.state = api.StateClosed
		return err
	}
	return nil
}

func (c *Connection) sendFrame(t FrameType, payload []byte) error {
	out, err := AppendFrame(c.sendBuf[:0], t, payload)
	if err != nil {
		return err
	}
	c.sendBuf = out
	if err := c.send(out); err != nil {
		return err
	}
	atomic.AddInt64(&c.framesSent, 1)
	return nil
}

func (c *Connection) send(p []byte) error {
	if err := c.socket.Send(c.id, p); err != nil {
		return fmt.Errorf("%w: send %d bytes: %w", api.ErrTransportFailure, len(p), err)
	}
	atomic.AddInt64(&c.bytesSent, int64(len(p)))
	return nil
}

// Reset clears the buffers and returns the connection to the closed state.
// The connection must not be reused afterwards; the slot owner creates a
// fresh one for the next peer.
func (c *Connection) Reset() {
	clear(c.recvBuf)
	clear(c.sendBuf[:cap(c.sendBuf)])
	c.sendBuf = c.sendBuf[:0]
	c.pending = 0
	c.state = api.StateClosed
}

// GetStats returns a snapshot of connection statistics for metrics reporting.
func (c *Connection) GetStats() map[string]int64 {
	return map[string]int64{
		"bytes_received":  atomic.LoadInt64(&c.bytesReceived),
		"bytes_sent":      atomic.LoadInt64(&c.bytesSent),
		"frames_received": atomic.LoadInt64(&c.framesReceived),
		"frames_sent":     atomic.LoadInt64(&c.framesSent),
	}
}
