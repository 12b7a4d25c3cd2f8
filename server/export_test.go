package server

import "log"

// SocketLogger exposes the logger of an owned TCP socket layer.
func (s *Server) SocketLogger() *log.Logger {
	if s.tcp == nil {
		return nil
	}
	return s.tcp.Logger()
}
