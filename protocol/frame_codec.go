// File: protocol/frame_codec.go
// Package protocol implements the server-side frame encoder.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server frames are always final and never masked. Payloads are bounded to
// the 16-bit length form.

package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/momentics/wsecho/api"
)

// Encoder errors.
var (
	ErrPayloadTooLarge  = fmt.Errorf("%w: payload exceeds 16-bit length form", api.ErrFieldTooLong)
	ErrUnknownFrameType = fmt.Errorf("%w: frame type has no opcode", api.ErrUnsupportedFrame)
	ErrNotControlFrame  = fmt.Errorf("%w: not a control frame type", api.ErrUnsupportedFrame)
	ErrControlTooLarge  = fmt.Errorf("%w: control payload exceeds 125 bytes", api.ErrFieldTooLong)
)

// AppendFrame serializes a frame of type t carrying payload onto dst and
// returns the extended slice. Passing dst[:0] of a reused buffer avoids
// allocations once the buffer has grown to the working size.
func AppendFrame(dst []byte, t FrameType, payload []byte) ([]byte, error) {
	op, ok := t.Opcode()
	if !ok {
		return dst, fmt.Errorf("%w: %s", ErrUnknownFrameType, t)
	}
	plen := len(payload)
	if plen > MaxPayloadLen {
		return dst, ErrPayloadTooLarge
	}

	var hdr [4]byte
	header := hdr[:2]
	header[0] = FinBit | op
	if plen <= lenShortMax {
		header[1] = byte(plen)
	} else {
		header = hdr[:4]
		header[1] = len16Marker
		binary.BigEndian.PutUint16(header[2:], uint16(plen))
	}

	dst = append(dst, header...)
	dst = append(dst, payload...)
	return dst, nil
}

// BuildFrame serializes a frame into a freshly allocated slice.
func BuildFrame(t FrameType, payload []byte) ([]byte, error) {
	header := 2
	if len(payload) > lenShortMax {
		header = 4
	}
	return AppendFrame(make([]byte, 0, header+len(payload)), t, payload)
}

// ClosingFrame returns a close frame with an empty payload.
func ClosingFrame() []byte {
	return []byte{FinBit | OpcodeClose, 0}
}

// TextFrame builds a text frame from s.
func TextFrame(s string) ([]byte, error) {
	return BuildFrame(TypeText, []byte(s))
}

// BinaryFrame builds a binary frame from data.
func BinaryFrame(data []byte) ([]byte, error) {
	return BuildFrame(TypeBinary, data)
}

// ControlFrame builds a close, ping or pong frame.
func ControlFrame(t FrameType, data []byte) ([]byte, error) {
	if !t.IsControl() {
		return nil, fmt.Errorf("%w: %s", ErrNotControlFrame, t)
	}
	if len(data) > MaxControlPayloadLen {
		return nil, ErrControlTooLarge
	}
	return BuildFrame(t, data)
}
