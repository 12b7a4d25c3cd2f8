// Package api
// Author: momentics <momentics@gmail.com>
//
// Error taxonomy shared by the codec, the handshake negotiator, the
// connection state machine and the server loop.

package api

import (
	"errors"
	"fmt"
)

// Connection-fatal error classes. Every one of them ends the current
// connection; none of them stops the server.
var (
	ErrMalformedHandshake = fmt.Errorf("malformed websocket handshake")
	ErrMalformedFrame     = fmt.Errorf("malformed websocket frame")
	ErrUnsupportedFrame   = fmt.Errorf("unsupported websocket frame")
	ErrTransportFailure   = fmt.Errorf("transport failure")
	ErrTimeout            = fmt.Errorf("connection idle timeout")
	ErrFieldTooLong       = fmt.Errorf("field exceeds fixed capacity")
)

// Lifecycle outcomes reported through the same error path.
var (
	ErrPeerClosed       = fmt.Errorf("closed by peer")
	ErrPeerDisconnected = fmt.Errorf("peer disconnected")
	ErrConnectionClosed = fmt.Errorf("connection is closed")
	ErrSlotOccupied     = fmt.Errorf("connection slot occupied")
	ErrUnknownConn      = fmt.Errorf("unknown connection")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeMalformedHandshake
	ErrCodeMalformedFrame
	ErrCodeUnsupportedFrame
	ErrCodeTransport
	ErrCodeTimeout
	ErrCodeFieldTooLong
	ErrCodePeerClosed
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeMalformedHandshake:
		return "malformed_handshake"
	case ErrCodeMalformedFrame:
		return "malformed_frame"
	case ErrCodeUnsupportedFrame:
		return "unsupported_frame"
	case ErrCodeTransport:
		return "transport"
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeFieldTooLong:
		return "field_too_long"
	case ErrCodePeerClosed:
		return "peer_closed"
	default:
		return "internal"
	}
}

// CodeOf maps err onto the taxonomy. ErrFieldTooLong is checked first
// because codec errors may wrap both it and a broader class.
func CodeOf(err error) ErrorCode {
	var e *Error
	switch {
	case err == nil:
		return ErrCodeOK
	case errors.As(err, &e):
		return e.Code
	case errors.Is(err, ErrFieldTooLong):
		return ErrCodeFieldTooLong
	case errors.Is(err, ErrMalformedHandshake):
		return ErrCodeMalformedHandshake
	case errors.Is(err, ErrMalformedFrame):
		return ErrCodeMalformedFrame
	case errors.Is(err, ErrUnsupportedFrame):
		return ErrCodeUnsupportedFrame
	case errors.Is(err, ErrTransportFailure):
		return ErrCodeTransport
	case errors.Is(err, ErrTimeout):
		return ErrCodeTimeout
	case errors.Is(err, ErrPeerClosed), errors.Is(err, ErrPeerDisconnected):
		return ErrCodePeerClosed
	default:
		return ErrCodeInternal
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap exposes the wrapped cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WrapError classifies cause and keeps it reachable through Unwrap.
func WrapError(cause error) *Error {
	if cause == nil {
		return nil
	}
	e := NewError(CodeOf(cause), cause.Error())
	e.cause = cause
	return e
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
