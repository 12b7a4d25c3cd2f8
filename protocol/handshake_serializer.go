// File: protocol/handshake_serializer.go
// Package protocol
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Serialization of the fixed handshake responses.

package protocol

const (
	statusSwitching = "HTTP/1.1 101 Switching Protocols\r\n"
	statusBad       = "HTTP/1.1 400 Bad Request\r\n"
	statusNotFound  = "HTTP/1.1 404 Not Found\r\n"
	crlf            = "\r\n"
	badRequestBody  = "Bad request"
)

// BuildResponse returns the complete handshake response for h: 101 for an
// opening request, 400 otherwise. If the accept key cannot be derived the
// 400 response is returned together with the error.
func BuildResponse(h HandshakeHeader) ([]byte, error) {
	if h.Type != TypeOpening {
		return badRequestResponse(), nil
	}
	accept, err := MakeAcceptKey(h.Key)
	if err != nil {
		return badRequestResponse(), err
	}
	out := make([]byte, 0, 160)
	out = append(out, statusSwitching...)
	out = appendHeader(out, HeaderUpgrade, ValueWebSocket)
	out = appendHeader(out, HeaderConnection, "Upgrade")
	out = appendHeader(out, HeaderSecWebSocketAccept, accept)
	out = append(out, crlf...)
	return out, nil
}

// NotFoundResponse is sent when the upgrade targets a path nobody serves.
func NotFoundResponse() []byte {
	return []byte(statusNotFound + crlf)
}

func badRequestResponse() []byte {
	out := make([]byte, 0, 80)
	out = append(out, statusBad...)
	out = appendHeader(out, HeaderSecWebSocketVer, "13")
	out = append(out, crlf...)
	out = append(out, badRequestBody...)
	return out
}

func appendHeader(dst []byte, name, value string) []byte {
	dst = append(dst, name...)
	dst = append(dst, ": "...)
	dst = append(dst, value...)
	return append(dst, crlf...)
}
