// Package fake
// Author: momentics <momentics@gmail.com>
//
// Client-side wire builders used by tests: upgrade requests and masked
// frames as a browser or script client would put them on the wire.

package fake

import (
	"encoding/binary"
	"strconv"
)

// SampleKey is the nonce from the RFC6455 handshake example.
const SampleKey = "dGhlIHNhbXBsZSBub25jZQ=="

// UpgradeRequest builds an upgrade request for uri carrying key and version.
// An empty key omits the Sec-WebSocket-Key header.
func UpgradeRequest(uri, key string, version int) []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, "GET "...)
	buf = append(buf, uri...)
	buf = append(buf, " HTTP/1.1\r\nHost: 192.168.1.10:8088\r\n"...)
	buf = append(buf, "Upgrade: websocket\r\nConnection: Upgrade\r\n"...)
	if key != "" {
		buf = append(buf, "Sec-WebSocket-Key: "...)
		buf = append(buf, key...)
		buf = append(buf, "\r\n"...)
	}
	buf = append(buf, "Sec-WebSocket-Version: "...)
	buf = strconv.AppendInt(buf, int64(version), 10)
	buf = append(buf, "\r\n\r\n"...)
	return buf
}

// MaskedFrame builds a final client frame with the given opcode, masked
// with key. Lengths above 0xFFFF use the 64-bit form.
func MaskedFrame(opcode byte, payload []byte, key [4]byte) []byte {
	out := make([]byte, 0, 14+len(payload))
	out = append(out, 0x80|opcode)
	n := len(payload)
	switch {
	case n <= 125:
		out = append(out, 0x80|byte(n))
	case n <= 0xFFFF:
		out = append(out, 0x80|126)
		out = binary.BigEndian.AppendUint16(out, uint16(n))
	default:
		out = append(out, 0x80|127)
		out = binary.BigEndian.AppendUint64(out, uint64(n))
	}
	out = append(out, key[:]...)
	start := len(out)
	out = append(out, payload...)
	for i := range payload {
		out[start+i] ^= key[i&3]
	}
	return out
}

// MaskedText is MaskedFrame for a text payload with a fixed key.
func MaskedText(s string) []byte {
	return MaskedFrame(0x1, []byte(s), [4]byte{0x37, 0xfa, 0x21, 0x3d})
}
