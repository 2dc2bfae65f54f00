package wsbridge

// file: wsbridge/dial.go

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/kestrelrpc/kestrel/internal/logging"
	"github.com/kestrelrpc/kestrel/internal/rpcerr"
)

// Upgrader is the websocket.Upgrader Accept uses to upgrade an incoming
// HTTP request to a WebSocket, for a server accepting kestrel
// connections over HTTP instead of a raw TCP listener.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Accept upgrades r/w to a WebSocket and returns it wrapped as a
// transport.Stream.
func Accept(w http.ResponseWriter, r *http.Request, logger logging.Logger) (*Stream, error) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, rpcerr.ErrorWithDetails(
			rpcerr.Wrap(err, "failed to upgrade to websocket"),
			rpcerr.CategoryTransport, rpcerr.CodeInternalError, nil,
		)
	}
	return New(conn, logger), nil
}

// Dial opens a WebSocket to url and returns it wrapped as a
// transport.Stream.
func Dial(url string, logger logging.Logger) (*Stream, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, rpcerr.ErrorWithDetails(
			rpcerr.Wrap(err, "failed to dial websocket"),
			rpcerr.CategoryTransport, rpcerr.CodeInternalError,
			map[string]interface{}{"url": url},
		)
	}
	return New(conn, logger), nil
}
