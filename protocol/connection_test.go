package protocol_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/wsecho/api"
	"github.com/momentics/wsecho/fake"
	"github.com/momentics/wsecho/protocol"
)

const switching = "HTTP/1.1 101 Switching Protocols\r\n" +
	"Upgrade: websocket\r\n" +
	"Connection: Upgrade\r\n" +
	"Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n\r\n"

func newOpenConn(t *testing.T) (*protocol.Connection, *fake.Socket) {
	t.Helper()
	sock := fake.NewSocket()
	c := protocol.NewConnection(7, sock, protocol.DefaultConnConfig())
	require.NoError(t, c.HandleData(fake.UpgradeRequest("/echo", fake.SampleKey, 13)))
	require.Equal(t, api.StateOpen, c.State())
	sock.ClearSentData()
	return c, sock
}

func TestConnection_Handshake(t *testing.T) {
	sock := fake.NewSocket()
	c := protocol.NewConnection(3, sock, protocol.DefaultConnConfig())
	assert.Equal(t, api.StateConnecting, c.State())
	assert.NotEqual(t, [16]byte{}, [16]byte(c.Session()))

	require.NoError(t, c.HandleData(fake.UpgradeRequest("/echo", fake.SampleKey, 13)))
	assert.Equal(t, api.StateOpen, c.State())
	assert.Equal(t, "/echo", c.URI())
	assert.Equal(t, 0, c.Pending())

	sent := sock.GetSentData()
	require.Len(t, sent, 1)
	assert.Equal(t, api.ConnID(3), sent[0].Conn)
	assert.Equal(t, switching, string(sent[0].Data))
}

func TestConnection_EchoText(t *testing.T) {
	c, sock := newOpenConn(t)

	require.NoError(t, c.HandleData(fake.MaskedText("Hello")))
	assert.Equal(t, []byte{0x81, 0x05, 'H', 'e', 'l', 'l', 'o'}, sock.LastSent())
	assert.Equal(t, api.StateOpen, c.State())

	require.NoError(t, c.HandleData(fake.MaskedText("again")))
	assert.Equal(t, []byte{0x81, 0x05, 'a', 'g', 'a', 'i', 'n'}, sock.LastSent())

	stats := c.GetStats()
	assert.Equal(t, int64(2), stats["frames_received"])
	assert.Equal(t, int64(2), stats["frames_sent"])
}

func TestConnection_EchoAtPayloadLimit(t *testing.T) {
	c, sock := newOpenConn(t)
	msg := strings.Repeat("m", 1024)

	require.NoError(t, c.HandleData(fake.MaskedText(msg)))
	out := sock.LastSent()
	require.Len(t, out, 4+1024)
	assert.Equal(t, []byte{0x81, 126, 0x04, 0x00}, out[:4])
	assert.True(t, bytes.Equal([]byte(msg), out[4:]))
}

func TestConnection_WrongPath(t *testing.T) {
	sock := fake.NewSocket()
	c := protocol.NewConnection(1, sock, protocol.DefaultConnConfig())

	require.NoError(t, c.HandleData(fake.UpgradeRequest("/other", fake.SampleKey, 13)))
	assert.Equal(t, "HTTP/1.1 404 Not Found\r\n\r\n", string(sock.LastSent()))
	assert.Equal(t, api.StateClosing, c.State())

	err := c.HandleData([]byte("anything"))
	assert.ErrorIs(t, err, protocol.ErrDataAfterReject)
	assert.Equal(t, api.StateClosed, c.State())
}

func TestConnection_BadHandshake(t *testing.T) {
	sock := fake.NewSocket()
	c := protocol.NewConnection(1, sock, protocol.DefaultConnConfig())

	err := c.HandleData(fake.UpgradeRequest("/echo", fake.SampleKey, 8))
	require.ErrorIs(t, err, protocol.ErrBadWebSocketVersion)
	assert.Equal(t, api.ErrCodeMalformedHandshake, api.CodeOf(err))
	assert.True(t, strings.HasPrefix(string(sock.LastSent()), "HTTP/1.1 400 Bad Request\r\n"))
	assert.Equal(t, api.StateClosed, c.State())

	assert.ErrorIs(t, c.HandleData([]byte("x")), api.ErrConnectionClosed)
}

func TestConnection_OverlongKeyIsFieldTooLong(t *testing.T) {
	sock := fake.NewSocket()
	c := protocol.NewConnection(1, sock, protocol.DefaultConnConfig())

	err := c.HandleData(fake.UpgradeRequest("/echo", strings.Repeat("K", 40), 13))
	require.Error(t, err)
	assert.Equal(t, api.ErrCodeFieldTooLong, api.CodeOf(err))
	assert.Contains(t, string(sock.LastSent()), "400 Bad Request")
}

func TestConnection_PeerClose(t *testing.T) {
	c, sock := newOpenConn(t)

	err := c.HandleData(fake.MaskedFrame(protocol.OpcodeClose, nil, [4]byte{1, 2, 3, 4}))
	assert.ErrorIs(t, err, api.ErrPeerClosed)
	assert.Equal(t, []byte{0x88, 0x00}, sock.LastSent())
	assert.Equal(t, api.StateClosed, c.State())
}

func TestConnection_PingPong(t *testing.T) {
	c, sock := newOpenConn(t)

	require.NoError(t, c.HandleData(fake.MaskedFrame(protocol.OpcodePing, []byte("hb"), [4]byte{5, 6, 7, 8})))
	assert.Equal(t, []byte{0x8A, 0x02, 'h', 'b'}, sock.LastSent())

	sock.ClearSentData()
	require.NoError(t, c.HandleData(fake.MaskedFrame(protocol.OpcodePong, []byte("hb"), [4]byte{5, 6, 7, 8})))
	assert.Empty(t, sock.GetSentData())
	assert.Equal(t, api.StateOpen, c.State())
}

func TestConnection_FatalFrames(t *testing.T) {
	big := strings.Repeat("b", 1025)
	cases := []struct {
		name string
		data []byte
		want error
	}{
		{"oversized", fake.MaskedText(big)[:1000], protocol.ErrFrameTooLarge},
		{"incomplete", fake.MaskedText("hello")[:8], protocol.ErrIncompleteFrame},
		{"reserved opcode", []byte{0x83, 0x80, 0, 0, 0, 0}, protocol.ErrInvalidOpcode},
		{"binary", fake.MaskedFrame(protocol.OpcodeBinary, []byte{1}, [4]byte{}), protocol.ErrBinaryUnsupported},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, sock := newOpenConn(t)
			err := c.HandleData(tc.data)
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, api.StateClosed, c.State())
			assert.Empty(t, sock.GetSentData())
		})
	}
}

func TestConnection_DataLargerThanBuffer(t *testing.T) {
	c, _ := newOpenConn(t)
	err := c.HandleData(make([]byte, 1024+protocol.MaxFrameHeaderLen+1))
	assert.ErrorIs(t, err, api.ErrFieldTooLong)
}

func TestConnection_SendFailure(t *testing.T) {
	c, sock := newOpenConn(t)
	sock.FailSendAt(1)

	err := c.HandleData(fake.MaskedText("lost"))
	require.ErrorIs(t, err, api.ErrTransportFailure)
	assert.True(t, errors.Is(err, fake.ErrShortWrite))
	assert.Equal(t, api.StateClosed, c.State())
}

func TestConnection_HandshakeSendFailure(t *testing.T) {
	sock := fake.NewSocket()
	sock.SetSendError(errors.New("broken pipe"))
	c := protocol.NewConnection(1, sock, protocol.DefaultConnConfig())

	err := c.HandleData(fake.UpgradeRequest("/echo", fake.SampleKey, 13))
	assert.ErrorIs(t, err, api.ErrTransportFailure)
	assert.Equal(t, api.StateClosed, c.State())
}

func TestConnection_Tracer(t *testing.T) {
	c, _ := newOpenConn(t)
	var seen []protocol.FrameType
	c.SetTracer(func(_ *protocol.Connection, f *protocol.Frame) { seen = append(seen, f.Type) })

	require.NoError(t, c.HandleData(fake.MaskedText("a")))
	_ = c.HandleData([]byte{0x81})
	assert.Equal(t, []protocol.FrameType{protocol.TypeText, protocol.TypeIncomplete}, seen)
}

func TestConnection_Reset(t *testing.T) {
	c, _ := newOpenConn(t)
	require.NoError(t, c.HandleData(fake.MaskedText("x")))
	c.Reset()
	assert.Equal(t, api.StateClosed, c.State())
	assert.Equal(t, 0, c.Pending())
}
