// File: server/options.go
// Package server defines functional options for the Server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log"

	"github.com/momentics/wsecho/api"
	"github.com/momentics/wsecho/control"
)

// ServerOption customizes server initialization.
type ServerOption func(*Server)

// WithLogger replaces the default stderr logger.
func WithLogger(l *log.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithControl routes counters and probes to ctrl.
func WithControl(ctrl api.Control) ServerOption {
	return func(s *Server) {
		if ctrl != nil {
			s.control = ctrl
		}
	}
}

// WithConfigStore lets the "debug" key of cs toggle frame tracing at runtime.
func WithConfigStore(cs *control.ConfigStore) ServerOption {
	return func(s *Server) {
		s.store = cs
	}
}

// WithDebug overrides Config.Debug.
func WithDebug(on bool) ServerOption {
	return func(s *Server) {
		s.debug.Store(on)
	}
}

// WithBatchSize overrides the event loop batch size.
func WithBatchSize(batch int) ServerOption {
	return func(s *Server) {
		s.batchSize = batch
	}
}
