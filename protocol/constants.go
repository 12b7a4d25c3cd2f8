// Package protocol
// Author: momentics <momentics@gmail.com>
//
// WebSocket wire protocol constants

package protocol

const (
	// Data opcodes
	OpcodeContinuation = 0x0
	OpcodeText         = 0x1
	OpcodeBinary       = 0x2

	// Control opcodes (>= 0x8)
	OpcodeClose = 0x8
	OpcodePing  = 0x9
	OpcodePong  = 0xA

	// Frame limit settings
	MaxControlPayloadLen = 125
	MaxPayloadLen        = 0xFFFF
	MaxFrameHeaderLen    = 14 // 64-bit length form with masking

	// Bit masks
	FinBit     = 0x80
	Rsv1Bit    = 0x40
	Rsv2Bit    = 0x20
	Rsv3Bit    = 0x10
	OpcodeMask = 0x0F
	MaskBit    = 0x80
	LengthMask = 0x7F

	// 7-bit length field markers
	lenShortMax = 125
	len16Marker = 126
	len64Marker = 127

	maskKeyLen = 4
)

// FrameType classifies a parsed or to-be-built frame. Values that map to a
// wire opcode share that opcode's numeric value.
type FrameType byte

const (
	TypeText       FrameType = OpcodeText
	TypeBinary     FrameType = OpcodeBinary
	TypeClosing    FrameType = OpcodeClose
	TypePing       FrameType = OpcodePing
	TypePong       FrameType = OpcodePong
	TypeEmpty      FrameType = 0xF0
	TypeError      FrameType = 0xF1
	TypeIncomplete FrameType = 0xF2
	TypeOpening    FrameType = 0xF3
)

func (t FrameType) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeBinary:
		return "binary"
	case TypeClosing:
		return "closing"
	case TypePing:
		return "ping"
	case TypePong:
		return "pong"
	case TypeEmpty:
		return "empty"
	case TypeError:
		return "error"
	case TypeIncomplete:
		return "incomplete"
	case TypeOpening:
		return "opening"
	default:
		return "unknown"
	}
}

// Opcode returns the wire opcode for t and whether t has one.
func (t FrameType) Opcode() (byte, bool) {
	switch t {
	case TypeText, TypeBinary, TypeClosing, TypePing, TypePong:
		return byte(t), true
	default:
		return 0, false
	}
}

// IsControl reports whether t is a control frame type.
func (t FrameType) IsControl() bool {
	return t == TypeClosing || t == TypePing || t == TypePong
}
