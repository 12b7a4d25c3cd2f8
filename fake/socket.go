// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the socket collaborator.

package fake

import (
	"fmt"
	"sync"

	"github.com/momentics/wsecho/api"
)

// ErrShortWrite is returned by Send when a short write is simulated.
var ErrShortWrite = fmt.Errorf("short write")

// Sent records one Send call.
type Sent struct {
	Conn api.ConnID
	Data []byte
}

// Socket is a fake implementation of api.Socket for testing.
type Socket struct {
	mu        sync.Mutex
	sent      []Sent
	closed    []api.ConnID
	relistens []int
	sendError error
	shortAt   int // fail the Nth Send (1-based) with ErrShortWrite; 0 = never
	sends     int
	relistenE error
}

// NewSocket creates a new fake socket with default settings.
func NewSocket() *Socket {
	return &Socket{}
}

// Send implements api.Socket.Send.
func (s *Socket) Send(id api.ConnID, p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sends++
	if s.sendError != nil {
		return s.sendError
	}
	if s.shortAt > 0 && s.sends == s.shortAt {
		return ErrShortWrite
	}

	cp := make([]byte, len(p))
	copy(cp, p)
	s.sent = append(s.sent, Sent{Conn: id, Data: cp})
	return nil
}

// Close implements api.Socket.Close.
func (s *Socket) Close(id api.ConnID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = append(s.closed, id)
	return nil
}

// Relisten implements api.Socket.Relisten.
func (s *Socket) Relisten(port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relistens = append(s.relistens, port)
	return s.relistenE
}

// SetSendError configures the socket to return an error on every Send.
func (s *Socket) SetSendError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendError = err
}

// FailSendAt makes the nth Send from now report a short write.
func (s *Socket) FailSendAt(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shortAt = s.sends + n
}

// SetRelistenError configures the socket to return an error on Relisten.
func (s *Socket) SetRelistenError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relistenE = err
}

// GetSentData returns all data that has been sent via Send.
func (s *Socket) GetSentData() []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Sent, len(s.sent))
	copy(out, s.sent)
	return out
}

// LastSent returns the payload of the most recent successful Send.
func (s *Socket) LastSent() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return nil
	}
	return s.sent[len(s.sent)-1].Data
}

// Closed returns the ids passed to Close, in call order.
func (s *Socket) Closed() []api.ConnID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.ConnID, len(s.closed))
	copy(out, s.closed)
	return out
}

// Relistens returns the ports passed to Relisten, in call order.
func (s *Socket) Relistens() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.relistens))
	copy(out, s.relistens)
	return out
}

// ClearSentData clears the recorded sends.
func (s *Socket) ClearSentData() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = s.sent[:0]
}
