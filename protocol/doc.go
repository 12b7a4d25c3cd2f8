// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Implements the core WebSocket protocol logic (RFC 6455) for wsecho.
//
// Includes:
//   - Frame decoding with in-place unmasking over the connection's buffer
//   - Unmasked, unfragmented server frame encoding (7 and 16 bit lengths)
//   - Opening handshake parsing, accept-key derivation and fixed responses
//   - The per-connection state machine behind the /echo service
package protocol
