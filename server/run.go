// File: server/run.go
// Package server implements startup and graceful shutdown of the loop.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
)

// Run starts the socket layer when the server owns one, then dispatches
// events until ctx is cancelled or Shutdown is called. A peer still bound
// at exit is closed without re-arming the listener.
func (s *Server) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	if s.tcp != nil {
		if err := s.tcp.Start(s); err != nil {
			return fmt.Errorf("start socket layer: %w", err)
		}
		s.logger.Printf("listening on %s, echo path %s", s.Addr(), s.cfg.EchoPath)
		defer func() {
			if err := s.tcp.Shutdown(); err != nil {
				s.logger.Printf("socket layer shutdown: %v", err)
			}
		}()
	}

	err := s.loop.Run(ctx)
	s.release()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Shutdown makes Run return.
func (s *Server) Shutdown() {
	s.loop.Stop()
}

// Drain dispatches queued events on the calling goroutine. It is meant for
// servers driven without Run, e.g. in tests.
func (s *Server) Drain() int {
	return s.loop.Drain()
}

// LoopStats returns the event loop counters.
func (s *Server) LoopStats() map[string]uint64 {
	return s.loop.Stats()
}

func (s *Server) release() {
	if s.slot == nil {
		return
	}
	c := s.slot
	s.logger.Printf("session %s: closing on shutdown", c.Session())
	if err := s.socket.Close(c.ID()); err != nil {
		s.logger.Printf("session %s: close: %v", c.Session(), err)
	}
	c.Reset()
	s.slot = nil
	s.publish()
}
