// Package protocol
// Author: momentics <momentics@gmail.com>
//
// WebSocket frame decoding and masking logic.
//
// The decoder never copies: Payload is a view into the parsed buffer and is
// unmasked in place. It stays valid until the owner reuses that buffer.

package protocol

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/momentics/wsecho/api"
)

// Decoder errors. Each wraps the api taxonomy so callers can test with errors.Is.
var (
	ErrIncompleteFrame = fmt.Errorf("%w: incomplete frame", api.ErrMalformedFrame)
	ErrInvalidOpcode   = fmt.Errorf("%w: reserved opcode", api.ErrMalformedFrame)
	ErrLengthOverflow  = fmt.Errorf("%w: payload length overflow", api.ErrMalformedFrame)
)

// Frame represents a decoded WebSocket frame.
type Frame struct {
	Fin        bool
	Rsv1       bool
	Rsv2       bool
	Rsv3       bool
	Opcode     byte
	Masked     bool
	MaskKey    [4]byte
	Type       FrameType
	PayloadLen uint64
	Payload    []byte // view into the parsed buffer
}

// ParseFrame decodes a single frame from the start of buf.
//
// The returned frame is never nil. On failure its Type is TypeIncomplete or
// TypeError and the error is ErrIncompleteFrame, ErrInvalidOpcode or
// ErrLengthOverflow. When the header was decoded far enough, PayloadLen
// carries the declared length even for incomplete frames so that callers
// can enforce size limits without waiting for the rest.
func ParseFrame(buf []byte) (*Frame, error) {
	f := &Frame{Type: TypeIncomplete}
	if len(buf) < 2 {
		return f, ErrIncompleteFrame
	}

	b := buf[0]
	f.Fin = b&FinBit != 0
	f.Rsv1 = b&Rsv1Bit != 0
	f.Rsv2 = b&Rsv2Bit != 0
	f.Rsv3 = b&Rsv3Bit != 0
	f.Opcode = b & OpcodeMask

	t, ok := classifyOpcode(f.Opcode)
	if !ok {
		f.Type = TypeError
		return f, fmt.Errorf("%w 0x%X", ErrInvalidOpcode, f.Opcode)
	}

	b = buf[1]
	f.Masked = b&MaskBit != 0
	length := uint64(b & LengthMask)
	offset := 2

	switch length {
	case len16Marker:
		if len(buf) < offset+2 {
			return f, ErrIncompleteFrame
		}
		length = uint64(binary.BigEndian.Uint16(buf[offset:]))
		offset += 2
	case len64Marker:
		if len(buf) < offset+8 {
			return f, ErrIncompleteFrame
		}
		length = binary.BigEndian.Uint64(buf[offset:])
		offset += 8
	}
	f.PayloadLen = length

	if length > math.MaxUint32-maskKeyLen || length > uint64(math.MaxInt-MaxFrameHeaderLen) {
		f.Type = TypeError
		return f, ErrLengthOverflow
	}

	if f.Masked {
		if len(buf) < offset+maskKeyLen {
			return f, ErrIncompleteFrame
		}
		copy(f.MaskKey[:], buf[offset:offset+maskKeyLen])
		offset += maskKeyLen
	}

	end := offset + int(length)
	if len(buf) < end {
		return f, ErrIncompleteFrame
	}

	f.Payload = buf[offset:end:end]
	if f.Masked {
		MaskBytes(f.Payload, f.MaskKey)
	}
	f.Type = t
	return f, nil
}

// MaskBytes XORs buf with key in place. Applying it twice with the same key
// restores the original bytes.
func MaskBytes(buf []byte, key [4]byte) {
	for i := range buf {
		buf[i] ^= key[i&3]
	}
}

func classifyOpcode(op byte) (FrameType, bool) {
	switch op {
	case OpcodeText, OpcodeBinary, OpcodeClose, OpcodePing, OpcodePong:
		return FrameType(op), true
	default:
		return TypeError, false
	}
}
