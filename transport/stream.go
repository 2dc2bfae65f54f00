// Package transport owns the reader/writer worker pair every Connection
// spawns over a byte stream, framing messages with the wire codec and
// handing them to the owner through bounded queues.
package transport

// file: transport/stream.go

import (
	"bufio"
	"errors"
	"io"
	"sync/atomic"

	"github.com/kestrelrpc/kestrel/internal/logging"
	"github.com/kestrelrpc/kestrel/internal/metrics"
	"github.com/kestrelrpc/kestrel/internal/rpcerr"
	"github.com/kestrelrpc/kestrel/wire"
)

// QueueCapacity bounds the Inbound and Outbound channels every Workers
// pair exposes. A small, fixed capacity means a slow consumer applies
// backpressure to its peer rather than letting queued messages grow
// without bound.
const QueueCapacity = 5

// Stream is any readable, writable, closeable byte stream the wire codec
// can frame messages over: a TCP connection, stdin/stdout, an in-memory
// pipe.
type Stream interface {
	io.Reader
	io.Writer
	io.Closer
}

// Workers owns the reader and writer goroutines spawned over a Stream.
// Inbound carries messages decoded from the stream; Outbound carries
// messages waiting to be encoded and written. Both channels close (or
// stop draining) once the stream disconnects or Close is called.
type Workers struct {
	Inbound  chan wire.Message
	Outbound chan wire.Message

	stream  Stream
	logger  logging.Logger
	closed  atomic.Bool
	done    chan struct{}
	readErr chan error
}

// Spawn starts the reader and writer goroutines over stream. logger may
// be nil, in which case worker errors are simply swallowed.
func Spawn(stream Stream, logger logging.Logger) *Workers {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	w := &Workers{
		Inbound:  make(chan wire.Message, QueueCapacity),
		Outbound: make(chan wire.Message, QueueCapacity),
		stream:   stream,
		logger:   logger,
		done:     make(chan struct{}),
		readErr:  make(chan error, 1),
	}
	go w.readLoop()
	go w.writeLoop()
	return w
}

func (w *Workers) readLoop() {
	defer close(w.Inbound)
	r := bufio.NewReader(w.stream)
	for {
		select {
		case <-w.done:
			return
		default:
		}

		msg, err := wire.DecodeFrom(r)
		switch {
		case err == nil:
			metrics.MessagesReceived.WithLabelValues(msg.Kind.String()).Inc()
			select {
			case w.Inbound <- msg:
				metrics.QueueDepth.WithLabelValues("inbound").Set(float64(len(w.Inbound)))
			case <-w.done:
				return
			}
		case errors.Is(err, wire.ErrEmpty):
			continue
		case errors.Is(err, wire.ErrDisconnected):
			return
		default:
			w.logger.Warn("stream read failed", "error", err)
			metrics.DecodeErrors.WithLabelValues(string(rpcerr.GetCategory(err))).Inc()
			select {
			case w.readErr <- err:
			default:
			}
			return
		}
	}
}

func (w *Workers) writeLoop() {
	for {
		select {
		case msg, ok := <-w.Outbound:
			if !ok {
				return
			}
			metrics.QueueDepth.WithLabelValues("outbound").Set(float64(len(w.Outbound)))
			if err := wire.EncodeTo(w.stream, msg.Envelope()); err != nil {
				w.logger.Warn("stream write failed", "error", err)
				return
			}
			metrics.MessagesSent.WithLabelValues(msg.Kind.String()).Inc()
		case <-w.done:
			return
		}
	}
}

// Close signals both workers to stop and closes the underlying stream.
// Safe to call more than once; only the first call has any effect.
func (w *Workers) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(w.done)
	return w.stream.Close()
}

// ReadErr returns the fatal error that ended the read loop, if the loop
// stopped because of one rather than a clean disconnect or Close.
func (w *Workers) ReadErr() error {
	select {
	case err := <-w.readErr:
		return err
	default:
		return nil
	}
}
