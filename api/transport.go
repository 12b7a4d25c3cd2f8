// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Socket collaborator contract. The socket layer owns accepted connections
// and the listening endpoint; the core only asks it to act on them.

package api

//go:generate mockgen -destination=../fake/mock_socket.go -package=fake github.com/momentics/wsecho/api Socket

// Socket is the outbound half of the I/O collaborator.
type Socket interface {
	// Send transmits p in full. A short write must be reported as an error.
	Send(id ConnID, p []byte) error

	// Close shuts the accepted connection down. Closing an unknown or
	// already closed id is not an error.
	Close(id ConnID) error

	// Relisten tears down the listening endpoint on port and arms a fresh one.
	Relisten(port int) error
}
