// Package server provides a harness for accepting and managing many
// peer Connections concurrently, each driven by its own handler
// goroutine and shutdown flag.
package server

// file: server/server.go

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/kestrelrpc/kestrel/connection"
	"github.com/kestrelrpc/kestrel/internal/logging"
	"github.com/kestrelrpc/kestrel/internal/metrics"
	"github.com/kestrelrpc/kestrel/internal/rpcerr"
	"github.com/kestrelrpc/kestrel/transport"
)

// Handler processes one accepted connection for the duration of its
// lifetime. It should return once the connection's work is done (peer
// disconnected, shutdown completed, or a fatal error occurred); the
// server unregisters and closes the connection when it returns.
type Handler func(ctx context.Context, peerID string, conn *connection.Connection)

// peer tracks one accepted connection: its Connection, a done channel
// closed when its handler goroutine returns, and a shutdown flag
// independent of every other peer's.
type peer struct {
	conn     *connection.Connection
	done     chan struct{}
	shutdown atomic.Bool
}

// Server accepts connections on a listener and runs Handler on each in
// its own goroutine, tracking every live peer by a generated id.
type Server struct {
	handler  Handler
	logger   logging.Logger
	listener net.Listener

	mu    sync.RWMutex
	peers map[string]*peer

	closing atomic.Bool
	wg      sync.WaitGroup
}

// New builds a Server that will dispatch every accepted connection to
// handler.
func New(handler Handler, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &Server{
		handler: handler,
		logger:  logger,
		peers:   make(map[string]*peer),
	}
}

// Listen binds addr on network (typically "tcp") and starts accepting
// connections in the background. It returns once the listener is bound;
// call ShutdownAndJoinAll to stop accepting and wait for every handler
// to finish.
func (s *Server) Listen(network, addr string) error {
	listener, err := net.Listen(network, addr)
	if err != nil {
		return rpcerr.ErrorWithDetails(
			rpcerr.Wrap(err, "failed to bind listener"),
			rpcerr.CategoryTransport, rpcerr.CodeInternalError,
			map[string]interface{}{"network": network, "addr": addr},
		)
	}
	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the listener's bound address, or nil if Listen hasn't
// been called.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closing.Load() {
				return
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}
		s.Adopt(conn)
	}
}

// Adopt registers stream as a new peer connection and runs the server's
// Handler over it in its own goroutine. Exported so callers that accept
// connections through a mechanism other than Listen (an in-memory pair
// in tests, a pre-negotiated websocket upgrade) can still be tracked and
// managed by the same Server.
func (s *Server) Adopt(stream transport.Stream) string {
	peerID := uuid.NewString()
	peerLogger := s.logger.WithField("peer_id", peerID)
	conn := connection.New(stream, peerLogger)

	p := &peer{conn: conn, done: make(chan struct{})}

	s.mu.Lock()
	s.peers[peerID] = p
	s.mu.Unlock()
	metrics.ActiveConnections.Inc()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(p.done)
		defer func() {
			_ = conn.Close()
			s.mu.Lock()
			delete(s.peers, peerID)
			s.mu.Unlock()
			metrics.ActiveConnections.Dec()
		}()
		s.handler(context.Background(), peerID, conn)
	}()

	return peerID
}

// ConnectedClients returns the ids of every currently registered peer.
func (s *Server) ConnectedClients() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.peers))
	for id := range s.peers {
		ids = append(ids, id)
	}
	return ids
}

// GetConnection returns the Connection registered under peerID, if any.
func (s *Server) GetConnection(peerID string) (*connection.Connection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.peers[peerID]
	if !ok {
		return nil, false
	}
	return p.conn, true
}

// MarkShuttingDown flags peerID as having entered its own shutdown
// sequence, independent of every other peer's flag.
func (s *Server) MarkShuttingDown(peerID string) bool {
	s.mu.RLock()
	p, ok := s.peers[peerID]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	p.shutdown.Store(true)
	return true
}

// IsShuttingDown reports whether peerID has been flagged via
// MarkShuttingDown.
func (s *Server) IsShuttingDown(peerID string) bool {
	s.mu.RLock()
	p, ok := s.peers[peerID]
	s.mu.RUnlock()
	return ok && p.shutdown.Load()
}

// Shutdown stops accepting new connections and closes the listener.
// Already-accepted peers keep running until their handlers return; use
// ShutdownAndJoinAll to additionally wait for them.
func (s *Server) Shutdown() error {
	if !s.closing.CompareAndSwap(false, true) {
		return nil
	}
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// ShutdownAndJoinAll stops accepting new connections, closes every
// currently registered peer, and blocks until all handler goroutines
// (including the accept loop) have returned or ctx is done.
func (s *Server) ShutdownAndJoinAll(ctx context.Context) error {
	if err := s.Shutdown(); err != nil {
		return err
	}

	s.mu.RLock()
	conns := make([]*connection.Connection, 0, len(s.peers))
	for _, p := range s.peers {
		conns = append(conns, p.conn)
	}
	s.mu.RUnlock()
	for _, conn := range conns {
		_ = conn.Close()
	}

	joined := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(joined)
	}()

	select {
	case <-joined:
		return nil
	case <-ctx.Done():
		return rpcerr.ErrorWithDetails(
			rpcerr.Wrap(ctx.Err(), "timed out waiting for peer handlers to join"),
			rpcerr.CategoryLocal, rpcerr.CodeServerErrorEnd, nil,
		)
	}
}
