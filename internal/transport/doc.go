// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TCP socket layer feeding the server loop. It owns the listening endpoint
// and every accepted connection, turns reads into socket events and executes
// the Send/Close/Relisten requests of the core.

package transport
