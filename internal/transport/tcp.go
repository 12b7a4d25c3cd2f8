// File: internal/transport/tcp.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TCPSocket implements api.Socket on top of net. One accept goroutine per
// listener generation, one reader goroutine per accepted connection.

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/wsecho/api"
)

// Errors reported by the socket layer.
var (
	ErrNotStarted     = errors.New("transport: socket not started")
	ErrSocketShutdown = errors.New("transport: socket shut down")
)

// Config configures the TCP socket layer.
type Config struct {
	Addr           string        // listen address, e.g. ":8088"
	IdleTimeout    time.Duration // 0 disables idle timeouts
	ReadBufferSize int           // bytes read per data-ready event
	WriteTimeout   time.Duration // 0 disables write deadlines
	Logger         *log.Logger
}

// DefaultConfig returns the settings used by the example binary.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8088",
		IdleTimeout:    30 * time.Second,
		ReadBufferSize: 1024 + 14,
		WriteTimeout:   5 * time.Second,
	}
}

// TCPSocket is the production api.Socket.
type TCPSocket struct {
	cfg    Config
	logger *log.Logger
	sink   api.EventSink

	mu    sync.Mutex
	ln    net.Listener
	host  string
	port  int
	gen   uint64
	conns map[api.ConnID]net.Conn
	down  bool

	nextID uint64
	wg     sync.WaitGroup
}

// NewTCPSocket creates an unstarted socket layer.
func NewTCPSocket(cfg Config) *TCPSocket {
	def := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = def.ReadBufferSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "wsecho ", log.LstdFlags)
	}
	return &TCPSocket{
		cfg:    cfg,
		logger: logger,
		conns:  make(map[api.ConnID]net.Conn),
	}
}

// SetLogger replaces the logger. It must be called before Start.
func (s *TCPSocket) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Logger returns the logger in use.
func (s *TCPSocket) Logger() *log.Logger {
	return s.logger
}

// Start binds the listener and begins posting events to sink.
func (s *TCPSocket) Start(sink api.EventSink) error {
	host, portStr, err := net.SplitHostPort(s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("transport: bad listen address %q: %w", s.cfg.Addr, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return ErrSocketShutdown
	}
	s.sink = sink
	s.host = host
	ln, err := listen(s.cfg.Addr)
	if err != nil {
		return err
	}
	s.port = ln.Addr().(*net.TCPAddr).Port
	if portStr != "0" && portStr != strconv.Itoa(s.port) {
		s.logger.Printf("listener bound to port %d instead of %s", s.port, portStr)
	}
	s.armLocked(ln)
	return nil
}

// Addr returns the current listening address, or nil before Start.
func (s *TCPSocket) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Port returns the bound listening port.
func (s *TCPSocket) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Send writes p to the connection in full.
func (s *TCPSocket) Send(id api.ConnID, p []byte) error {
	conn, ok := s.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %d", api.ErrUnknownConn, id)
	}
	if s.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	n, err := conn.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return io.ErrShortWrite
	}
	return nil
}

// Close closes the connection. Unknown ids are ignored.
func (s *TCPSocket) Close(id api.ConnID) error {
	s.mu.Lock()
	conn, ok := s.conns[id]
	delete(s.conns, id)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return conn.Close()
}

// Relisten replaces the listener on port with a fresh one. Port 0 means
// the port currently bound.
func (s *TCPSocket) Relisten(port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return ErrSocketShutdown
	}
	if s.ln == nil {
		return ErrNotStarted
	}
	if port == 0 {
		port = s.port
	}
	_ = s.ln.Close()
	s.ln = nil
	ln, err := listen(net.JoinHostPort(s.host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	s.port = port
	s.armLocked(ln)
	return nil
}

// Shutdown closes the listener and every connection and waits for the
// goroutines of the socket layer to exit.
func (s *TCPSocket) Shutdown() error {
	s.mu.Lock()
	if s.down {
		s.mu.Unlock()
		return nil
	}
	s.down = true
	var err error
	if s.ln != nil {
		err = s.ln.Close()
		s.ln = nil
	}
	for id, c := range s.conns {
		_ = c.Close()
		delete(s.conns, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
	return err
}

// Conns returns the number of open accepted connections.
func (s *TCPSocket) Conns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func listen(addr string) (net.Listener, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp listen failed: %w", err)
	}
	return ln, nil
}

func (s *TCPSocket) armLocked(ln net.Listener) {
	s.ln = ln
	s.gen++
	s.wg.Add(1)
	go s.acceptLoop(ln, s.gen, s.port)
}

func (s *TCPSocket) acceptLoop(ln net.Listener, gen uint64, port int) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || !s.current(gen) {
				return
			}
			s.logger.Printf("accept error: %v", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}
		id := api.ConnID(atomic.AddUint64(&s.nextID, 1))
		s.mu.Lock()
		if s.down {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.conns[id] = conn
		s.mu.Unlock()

		if !s.sink.Post(api.SocketEvent{Kind: api.EventConnect, Conn: id, Port: port}) {
			_ = s.Close(id)
			continue
		}
		s.wg.Add(1)
		go s.readLoop(conn, id, port)
	}
}

func (s *TCPSocket) readLoop(conn net.Conn, id api.ConnID, port int) {
	defer s.wg.Done()
	buf := make([]byte, s.cfg.ReadBufferSize)
	for {
		if s.cfg.IdleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		}
		n, err := conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if !s.sink.Post(api.SocketEvent{Kind: api.EventDataReady, Conn: id, Port: port, Data: data}) {
				s.logger.Printf("conn %d: data event dropped, closing", id)
				_ = s.Close(id)
				s.postTerminal(api.SocketEvent{Kind: api.EventDisconnect, Conn: id, Port: port})
				return
			}
		}
		if err == nil {
			continue
		}
		if _, owned := s.lookup(id); !owned {
			// closed by the core
			return
		}
		kind := api.EventDisconnect
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			kind = api.EventTimeout
		}
		s.postTerminal(api.SocketEvent{Kind: kind, Conn: id, Port: port})
		return
	}
}

// postTerminal delivers ev, retrying with backoff while the sink rejects it.
// The core may hold the slot for ev.Conn. Retries stop at Shutdown.
func (s *TCPSocket) postTerminal(ev api.SocketEvent) {
	const (
		minBackoff = time.Millisecond
		maxBackoff = 50 * time.Millisecond
	)
	backoff := minBackoff
	for !s.sink.Post(ev) {
		if s.isDown() {
			s.logger.Printf("conn %d: %s event lost at shutdown", ev.Conn, ev.Kind)
			return
		}
		time.Sleep(backoff)
		if backoff < maxBackoff {
			backoff *= 2
		}
	}
}

func (s *TCPSocket) isDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.down
}

func (s *TCPSocket) lookup(id api.ConnID) (net.Conn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[id]
	return c, ok
}

func (s *TCPSocket) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.down && s.gen == gen && s.ln != nil
}
