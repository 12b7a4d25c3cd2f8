// File: server/server.go
// Package server binds the socket layer to the single WebSocket slot.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Socket events from any goroutine are posted into an event loop; the loop
// goroutine alone owns the slot and the Connection bound to it.

package server

import (
	"errors"
	"log"
	"os"
	"sync/atomic"

	"github.com/momentics/wsecho/api"
	"github.com/momentics/wsecho/control"
	"github.com/momentics/wsecho/internal/concurrency"
	"github.com/momentics/wsecho/internal/transport"
	"github.com/momentics/wsecho/protocol"
)

var ErrAlreadyRunning = errors.New("server already running")

// Metric keys.
const (
	MetricHandshakeAccepted = "handshake.accepted"
	MetricHandshakeRejected = "handshake.rejected"
	MetricHandshakeNotFound = "handshake.not_found"
	MetricFramesHandled     = "frames.handled"
	MetricBytesIn           = "bytes.in"
	MetricConnRejected      = "connection.rejected"
	MetricEventsDropped     = "events.dropped"
	MetricRelistenFailed    = "relisten.failed"
	metricTeardownPrefix    = "teardown."
)

// Server is the loop adapter between the socket layer and the protocol engine.
type Server struct {
	cfg       *Config
	socket    api.Socket
	tcp       *transport.TCPSocket // set when the server owns its socket layer
	loop      *concurrency.EventLoop
	logger    *log.Logger
	control   api.Control
	store     *control.ConfigStore
	batchSize int
	debug     atomic.Bool
	running   atomic.Bool

	// loop goroutine only
	slot     *protocol.Connection
	slotPort int

	// published for readers outside the loop
	state   atomic.Int32
	session atomic.Value // string
}

// New creates a server that drives socket. cfg nil means DefaultConfig.
func New(socket api.Socket, cfg *Config, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Server{
		cfg:       cfg,
		socket:    socket,
		logger:    log.New(os.Stderr, "wsecho ", log.LstdFlags),
		control:   control.NewController(),
		batchSize: cfg.BatchSize,
	}
	s.debug.Store(cfg.Debug)
	for _, o := range opts {
		o(s)
	}
	s.loop = concurrency.NewEventLoop(s.batchSize, cfg.QueueCapacity)
	s.loop.RegisterHandler(s)
	s.publish()

	if s.store != nil {
		s.store.OnReload(func(snap map[string]any) {
			if on, ok := snap["debug"].(bool); ok {
				s.debug.Store(on)
			}
		})
	}
	s.control.RegisterDebugProbe("connection.state", func() any { return s.State().String() })
	s.control.RegisterDebugProbe("connection.session", func() any { return s.session.Load() })
	s.control.RegisterDebugProbe("loop.pending", func() any { return s.loop.Pending() })
	return s, nil
}

// NewTCPServer creates a server that owns a TCP socket layer bound to
// cfg.ListenAddr. The listener is opened by Run.
func NewTCPServer(cfg *Config, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	tcp := transport.NewTCPSocket(transport.Config{
		Addr:           cfg.ListenAddr,
		IdleTimeout:    cfg.IdleTimeout.Std(),
		WriteTimeout:   cfg.WriteTimeout.Std(),
		ReadBufferSize: cfg.ReceiveBufferSize(),
	})
	s, err := New(tcp, cfg, opts...)
	if err != nil {
		return nil, err
	}
	tcp.SetLogger(s.logger)
	s.tcp = tcp
	return s, nil
}

// Post implements api.EventSink.
func (s *Server) Post(ev api.SocketEvent) bool {
	if s.loop.Post(ev) {
		return true
	}
	s.control.Inc(MetricEventsDropped, 1)
	s.logger.Printf("event %s for conn %d dropped", ev.Kind, ev.Conn)
	return false
}

// OnConnect reports a newly accepted connection.
func (s *Server) OnConnect(id api.ConnID, port int) bool {
	return s.Post(api.SocketEvent{Kind: api.EventConnect, Conn: id, Port: port})
}

// OnDataReady reports received bytes. data must not be reused by the caller.
func (s *Server) OnDataReady(id api.ConnID, port int, data []byte) bool {
	return s.Post(api.SocketEvent{Kind: api.EventDataReady, Conn: id, Port: port, Data: data})
}

// OnDisconnect reports that the peer went away.
func (s *Server) OnDisconnect(id api.ConnID, port int) bool {
	return s.Post(api.SocketEvent{Kind: api.EventDisconnect, Conn: id, Port: port})
}

// OnTimeout reports that the connection idled out.
func (s *Server) OnTimeout(id api.ConnID, port int) bool {
	return s.Post(api.SocketEvent{Kind: api.EventTimeout, Conn: id, Port: port})
}

// HandleEvent dispatches one socket event. It runs on the loop goroutine.
func (s *Server) HandleEvent(ev api.SocketEvent) {
	defer s.publish()
	switch ev.Kind {
	case api.EventConnect:
		s.bind(ev)
	case api.EventDataReady:
		c := s.bind(ev)
		if c == nil {
			return
		}
		s.control.Inc(MetricBytesIn, int64(len(ev.Data)))
		before := c.State()
		err := c.HandleData(ev.Data)
		s.count(before, c.State(), err)
		if err != nil {
			s.teardown(err)
		}
	case api.EventTimeout:
		if s.bound(ev.Conn) {
			s.teardown(api.ErrTimeout)
		}
	case api.EventDisconnect:
		if s.bound(ev.Conn) {
			s.teardown(api.ErrPeerDisconnected)
		}
	}
}

// State reports the slot state; a free slot reads as connecting.
func (s *Server) State() api.ConnState {
	return api.ConnState(s.state.Load())
}

// Occupied reports whether a peer holds the slot.
func (s *Server) Occupied() bool {
	v, _ := s.session.Load().(string)
	return v != ""
}

// Control exposes runtime metrics and debug probes.
func (s *Server) Control() api.Control {
	return s.control
}

// Addr returns the listening address when the server owns a TCP socket.
func (s *Server) Addr() string {
	if s.tcp == nil {
		return ""
	}
	if a := s.tcp.Addr(); a != nil {
		return a.String()
	}
	return ""
}

// bind returns the connection for ev, creating it when the slot is free.
// A different connection while the slot is taken is closed.
func (s *Server) bind(ev api.SocketEvent) *protocol.Connection {
	if s.slot != nil {
		if s.slot.ID() == ev.Conn {
			return s.slot
		}
		s.logger.Printf("conn %d rejected: %v", ev.Conn, api.ErrSlotOccupied)
		s.control.Inc(MetricConnRejected, 1)
		if err := s.socket.Close(ev.Conn); err != nil {
			s.logger.Printf("conn %d: close: %v", ev.Conn, err)
		}
		return nil
	}
	c := protocol.NewConnection(ev.Conn, s.socket, s.cfg.connConfig())
	c.SetTracer(s.trace)
	s.slot = c
	s.slotPort = ev.Port
	if s.debug.Load() {
		s.logger.Printf("session %s: bound conn %d", c.Session(), ev.Conn)
	}
	return c
}

func (s *Server) bound(id api.ConnID) bool {
	return s.slot != nil && s.slot.ID() == id
}

// teardown closes the bound connection, re-arms the listener and frees
// the slot.
func (s *Server) teardown(reason error) {
	c := s.slot
	e := api.WrapError(reason).
		WithContext("conn", c.ID()).
		WithContext("state", c.State().String())
	if errors.Is(reason, api.ErrPeerClosed) || errors.Is(reason, api.ErrPeerDisconnected) {
		s.logger.Printf("session %s: %s", c.Session(), e.Message)
	} else {
		s.logger.Printf("session %s: teardown: %v", c.Session(), e)
	}

	if err := s.socket.Close(c.ID()); err != nil {
		s.logger.Printf("session %s: close: %v", c.Session(), err)
	}
	if err := s.socket.Relisten(s.slotPort); err != nil {
		s.control.Inc(MetricRelistenFailed, 1)
		s.logger.Printf("session %s: relisten port %d: %v", c.Session(), s.slotPort, err)
	}
	c.Reset()
	s.slot = nil
	s.slotPort = 0
	s.control.Inc(metricTeardownPrefix+e.Code.String(), 1)
}

func (s *Server) count(before, after api.ConnState, err error) {
	switch {
	case before == api.StateConnecting && err != nil:
		s.control.Inc(MetricHandshakeRejected, 1)
	case before == api.StateConnecting && after == api.StateOpen:
		s.control.Inc(MetricHandshakeAccepted, 1)
	case before == api.StateConnecting && after == api.StateClosing:
		s.control.Inc(MetricHandshakeNotFound, 1)
	case before == api.StateOpen && err == nil:
		s.control.Inc(MetricFramesHandled, 1)
	}
}

func (s *Server) trace(c *protocol.Connection, f *protocol.Frame) {
	if !s.debug.Load() {
		return
	}
	s.logger.Printf("session %s: frame fin=%t rsv=%t/%t/%t opcode=0x%X masked=%t len=%d type=%s state=%s",
		c.Session(), f.Fin, f.Rsv1, f.Rsv2, f.Rsv3, f.Opcode, f.Masked, f.PayloadLen, f.Type, c.State())
}

func (s *Server) publish() {
	if s.slot == nil {
		s.state.Store(int32(api.StateConnecting))
		s.session.Store("")
		return
	}
	s.state.Store(int32(s.slot.State()))
	s.session.Store(s.slot.Session().String())
}
