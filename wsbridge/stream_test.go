package wsbridge

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kestrelrpc/kestrel/connection"
	"github.com/kestrelrpc/kestrel/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWebSocketServer(t *testing.T) (serverStream chan *Stream, url string) {
	serverStream = make(chan *Stream, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		s, err := Accept(w, r, nil)
		require.NoError(t, err)
		serverStream <- s
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return serverStream, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func TestStreamRoundTripsFramesOverWebSocket(t *testing.T) {
	ready, url := newWebSocketServer(t)

	clientStream, err := Dial(url, nil)
	require.NoError(t, err)
	defer clientStream.Close()

	var serverStream *Stream
	select {
	case serverStream = <-ready:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for server-side upgrade")
	}
	defer serverStream.Close()

	clientConn := connection.New(clientStream, nil)
	serverConn := connection.New(serverStream, nil)
	defer clientConn.Close()
	defer serverConn.Close()

	req, err := wire.NewRequest("1", "echo_ping", map[string]string{"text": "hi"})
	require.NoError(t, err)
	clientConn.Send(wire.ReqMessage(req))

	select {
	case msg := <-serverConn.Receive():
		require.Equal(t, wire.KindReq, msg.Kind)
		assert.Equal(t, "echo_ping", msg.Req.Method)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message over websocket")
	}
}

func TestStreamClosePropagatesToPeer(t *testing.T) {
	ready, url := newWebSocketServer(t)

	clientStream, err := Dial(url, nil)
	require.NoError(t, err)

	var serverStream *Stream
	select {
	case serverStream = <-ready:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for server-side upgrade")
	}
	defer serverStream.Close()

	serverConn := connection.New(serverStream, nil)
	defer serverConn.Close()

	require.NoError(t, clientStream.Close())

	select {
	case _, ok := <-serverConn.Receive():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for peer close to propagate")
	}
}
