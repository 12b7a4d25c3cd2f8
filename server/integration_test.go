package server_test

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/wsecho/control"
	"github.com/momentics/wsecho/server"
)

func startTCPServer(t *testing.T) (*server.Server, *control.Controller) {
	t.Helper()
	cfg := server.DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.IdleTimeout = server.Duration(2 * time.Second)

	ctrl := control.NewController()
	srv, err := server.NewTCPServer(cfg,
		server.WithControl(ctrl),
		server.WithLogger(log.New(io.Discard, "", 0)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Error("server did not stop")
		}
	})
	require.Eventually(t, func() bool { return srv.Addr() != "" }, 2*time.Second, 5*time.Millisecond)
	return srv, ctrl
}

func dial(t *testing.T, addr, path string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	d := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	return d.Dial("ws://"+addr+path, nil)
}

func TestIntegrationEcho(t *testing.T) {
	srv, ctrl := startTCPServer(t)

	conn, resp, err := dial(t, srv.Addr(), "/echo")
	require.NoError(t, err)
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	for _, msg := range []string{"Hello", strings.Repeat("m", 1024)} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		typ, got, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.TextMessage, typ)
		assert.Equal(t, msg, string(got))
	}

	require.NoError(t, conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(time.Second)))
	_, _, err = conn.ReadMessage()
	var ce *websocket.CloseError
	require.ErrorAs(t, err, &ce)
	conn.Close()

	require.Eventually(t, func() bool { return !srv.Occupied() }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), ctrl.Metrics.Counter("teardown.peer_closed"))

	// the listener was re-armed on the same port
	again, _, err := dial(t, srv.Addr(), "/echo")
	require.NoError(t, err)
	defer again.Close()
	require.NoError(t, again.WriteMessage(websocket.TextMessage, []byte("second")))
	_, got, err := again.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestIntegrationWrongPath(t *testing.T) {
	srv, _ := startTCPServer(t)

	_, resp, err := dial(t, srv.Addr(), "/other")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegrationBinaryClosesConnection(t *testing.T) {
	srv, ctrl := startTCPServer(t)

	conn, _, err := dial(t, srv.Addr(), "/echo")
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	require.Eventually(t, func() bool {
		return ctrl.Metrics.Counter("teardown.unsupported_frame") == 1
	}, 2*time.Second, 5*time.Millisecond)
}
