// Package connection owns the per-peer Connection type: a send/receive
// channel pair backed by a transport.Workers pair, plus the Initialize
// and Shutdown/Exit handshakes layered on top of it.
package connection

// file: connection/connection.go

import (
	"net"
	"os"
	"sync/atomic"

	"github.com/kestrelrpc/kestrel/internal/logging"
	"github.com/kestrelrpc/kestrel/internal/rpcerr"
	"github.com/kestrelrpc/kestrel/transport"
	"github.com/kestrelrpc/kestrel/wire"
)

// Connection pairs a send queue and a receive queue backed by a framed
// byte stream. Which RpcRequest type is used for the Initialize
// handshake is a caller-supplied type parameter at the call site of
// ClientInitialize/ServerInitialize, not a field here: Go generics have
// no use for a type parameter that is never otherwise referenced on the
// struct itself.
type Connection struct {
	workers *transport.Workers
	logger  logging.Logger
	closed  atomic.Bool
}

func newConnection(stream transport.Stream, logger logging.Logger) *Connection {
	return &Connection{workers: transport.Spawn(stream, logger), logger: logger}
}

// New wraps an already-established Stream (typically a net.Conn accepted
// by a listener a caller manages directly, as server.Server does) in a
// Connection.
func New(stream transport.Stream, logger logging.Logger) *Connection {
	return newConnection(stream, logger)
}

// Send queues msg for the writer worker. Blocks only under
// transport.QueueCapacity messages of backpressure.
func (c *Connection) Send(msg wire.Message) {
	c.workers.Outbound <- msg
}

// Receive returns the channel the reader worker delivers decoded
// messages on. It closes once the peer disconnects or Close is called.
func (c *Connection) Receive() <-chan wire.Message {
	return c.workers.Inbound
}

// ReadErr returns the fatal error, if any, that ended the reader
// worker's loop.
func (c *Connection) ReadErr() error {
	return c.workers.ReadErr()
}

// Close stops both workers and closes the underlying stream. Safe to
// call more than once.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.workers.Close()
}

// Closed reports whether Close has already been called.
func (c *Connection) Closed() bool {
	return c.closed.Load()
}

type stdioStream struct{}

func (stdioStream) Read(b []byte) (int, error)  { return os.Stdin.Read(b) }
func (stdioStream) Write(b []byte) (int, error) { return os.Stdout.Write(b) }
func (stdioStream) Close() error                { return nil }

// Stdio opens a Connection framed over the process's stdin/stdout.
func Stdio(logger logging.Logger) *Connection {
	return newConnection(stdioStream{}, logger)
}

// Connect opens a Connection by dialing addr over network (typically
// "tcp"). The call blocks until the connection is established.
func Connect(network, addr string, logger logging.Logger) (*Connection, error) {
	conn, err := net.Dial(network, addr)
	if err != nil {
		return nil, rpcerr.ErrorWithDetails(
			rpcerr.Wrap(err, "failed to dial peer"),
			rpcerr.CategoryTransport, rpcerr.CodeInternalError,
			map[string]interface{}{"network": network, "addr": addr},
		)
	}
	return newConnection(conn, logger), nil
}

// Listen blocks until one peer connects to addr, then returns a
// Connection wrapping that single accepted stream. Use the server
// package to accept and manage many connections concurrently.
func Listen(network, addr string, logger logging.Logger) (*Connection, error) {
	listener, err := net.Listen(network, addr)
	if err != nil {
		return nil, rpcerr.ErrorWithDetails(
			rpcerr.Wrap(err, "failed to bind listener"),
			rpcerr.CategoryTransport, rpcerr.CodeInternalError,
			map[string]interface{}{"network": network, "addr": addr},
		)
	}
	defer listener.Close()

	conn, err := listener.Accept()
	if err != nil {
		return nil, rpcerr.ErrorWithDetails(
			rpcerr.Wrap(err, "failed to accept connection"),
			rpcerr.CategoryTransport, rpcerr.CodeInternalError, nil,
		)
	}
	return newConnection(conn, logger), nil
}

// NewInMemoryPair returns two Connections wired directly to each other,
// for exercising a full handshake and message exchange in tests without
// a real listener.
func NewInMemoryPair(logger logging.Logger) (client *Connection, server *Connection) {
	clientStream, serverStream := transport.NewInMemoryPair()
	return newConnection(clientStream, logger), newConnection(serverStream, logger)
}
