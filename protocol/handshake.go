// File: protocol/handshake.go
// Package protocol implements the server side of the RFC6455 opening handshake.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The request is parsed straight from the receive buffer without net/http:
// fields are copied into bounded strings and an overlong field fails the
// handshake instead of being truncated.

package protocol

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/momentics/wsecho/api"
)

// Constants used for handshake processing.
const (
	WebSocketGUID            = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"
	HeaderUpgrade            = "Upgrade"
	HeaderConnection         = "Connection"
	HeaderSecWebSocketKey    = "Sec-WebSocket-Key"
	HeaderSecWebSocketVer    = "Sec-WebSocket-Version"
	HeaderSecWebSocketAccept = "Sec-WebSocket-Accept"
	ValueWebSocket           = "websocket"
	RequiredWebSocketVersion = 13

	MaxMethodLen = 8
	MaxURILen    = 127
	MaxKeyLen    = 32

	// acceptBufferLen is the work area for key+GUID, including a terminator.
	acceptBufferLen = 64
)

// Errors for handshake validation.
var (
	ErrMissingWebSocketKey = fmt.Errorf("%w: missing Sec-WebSocket-Key", api.ErrMalformedHandshake)
	ErrBadWebSocketVersion = fmt.Errorf("%w: unsupported Sec-WebSocket-Version, only 13 is supported", api.ErrMalformedHandshake)
	ErrEmptyRequest        = fmt.Errorf("%w: empty request", api.ErrMalformedHandshake)
)

// HandshakeHeader is the parsed upgrade request.
type HandshakeHeader struct {
	Method  string
	URI     string
	Key     string
	Version int
	Upgrade bool
	Type    FrameType // TypeOpening or TypeError
}

// ParseRequest parses an HTTP upgrade request held in buf.
//
// Lines end in LF with an optional CR. Scanning stops at the first empty
// line, at a NUL byte, or at the end of buf. The header is returned even on
// error, with Type set to TypeError.
func ParseRequest(buf []byte) (HandshakeHeader, error) {
	h := HandshakeHeader{Type: TypeError}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}

	var err error
	lines := 0
	for len(buf) > 0 {
		var line []byte
		if i := bytes.IndexByte(buf, '\n'); i >= 0 {
			line, buf = buf[:i], buf[i+1:]
		} else {
			line, buf = buf, nil
		}
		line = bytes.TrimSuffix(line, []byte{'\r'})
		if len(line) == 0 {
			break
		}
		if lines == 0 {
			err = h.parseRequestLine(line)
		} else if herr := h.parseHeaderLine(line); herr != nil && err == nil {
			err = herr
		}
		lines++
	}

	switch {
	case lines == 0:
		return h, ErrEmptyRequest
	case err != nil:
		return h, err
	case h.Key == "":
		return h, ErrMissingWebSocketKey
	case h.Version != RequiredWebSocketVersion:
		return h, ErrBadWebSocketVersion
	}
	h.Type = TypeOpening
	return h, nil
}

func (h *HandshakeHeader) parseRequestLine(line []byte) error {
	tokens := strings.Fields(string(line))
	if len(tokens) > 0 {
		if err := boundedCopy(&h.Method, "method", tokens[0], MaxMethodLen); err != nil {
			return err
		}
	}
	if len(tokens) > 1 {
		if err := boundedCopy(&h.URI, "uri", tokens[1], MaxURILen); err != nil {
			return err
		}
	}
	return nil
}

func (h *HandshakeHeader) parseHeaderLine(line []byte) error {
	sep := bytes.IndexByte(line, ':')
	if sep < 0 {
		return nil
	}
	name := string(line[:sep])
	value := string(bytes.TrimLeft(line[sep+1:], " "))

	switch {
	case strings.EqualFold(name, HeaderUpgrade):
		h.Upgrade = value == ValueWebSocket
	case strings.EqualFold(name, HeaderSecWebSocketVer):
		v, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			v = 0
		}
		h.Version = v
	case strings.EqualFold(name, HeaderSecWebSocketKey):
		return boundedCopy(&h.Key, "key", value, MaxKeyLen)
	}
	return nil
}

func boundedCopy(dst *string, field, src string, limit int) error {
	if len(src) > limit {
		return fmt.Errorf("%w: %w: %s is %d bytes, limit %d",
			api.ErrMalformedHandshake, api.ErrFieldTooLong, field, len(src), limit)
	}
	*dst = src
	return nil
}

// MakeAcceptKey derives the Sec-WebSocket-Accept value for clientKey per
// RFC6455 section 1.3.
func MakeAcceptKey(clientKey string) (string, error) {
	if len(clientKey)+len(WebSocketGUID) >= acceptBufferLen {
		return "", fmt.Errorf("%w: key of %d bytes does not fit the accept buffer",
			api.ErrFieldTooLong, len(clientKey))
	}
	var work [acceptBufferLen]byte
	n := copy(work[:], clientKey)
	n += copy(work[n:], WebSocketGUID)
	sum := sha1.Sum(work[:n])
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}
