// Package wsbridge adapts a gorilla/websocket connection to
// transport.Stream, so the length-prefixed packet codec runs over a
// WebSocket exactly as it would over a raw TCP stream or stdio.
package wsbridge

// file: wsbridge/stream.go

import (
	"encoding/binary"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kestrelrpc/kestrel/internal/logging"
	"github.com/kestrelrpc/kestrel/internal/rpcerr"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	headerSize = 4
)

// Stream wraps a *websocket.Conn so it satisfies transport.Stream. The
// wire codec always writes a frame as exactly two calls (a 4-byte
// length header, then the payload); Write buffers those two calls and
// flushes the reassembled frame as a single WebSocket binary message.
// Read drains full binary messages off a background read pump into a
// byte buffer, mirroring how an in-memory pipe decouples producer and
// consumer.
type Stream struct {
	conn   *websocket.Conn
	logger logging.Logger

	writeMu sync.Mutex
	wbuf    []byte

	readMu sync.Mutex
	cond   *sync.Cond
	rbuf   []byte
	closed bool
	readErr error

	done chan struct{}
}

// New wraps conn, starting its ping keepalive and read pump
// immediately.
func New(conn *websocket.Conn, logger logging.Logger) *Stream {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	s := &Stream{conn: conn, logger: logger, done: make(chan struct{})}
	s.cond = sync.NewCond(&s.readMu)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go s.readPump()
	go s.pingLoop()
	return s
}

func (s *Stream) readPump() {
	defer s.closeWithErr(io.EOF)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.closeWithErr(err)
			return
		}
		s.readMu.Lock()
		s.rbuf = append(s.rbuf, data...)
		s.cond.Broadcast()
		s.readMu.Unlock()
	}
}

func (s *Stream) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.writeMu.Lock()
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

// Write implements io.Writer. It buffers the length header and payload
// writes the codec issues and flushes one WebSocket binary message per
// complete frame.
func (s *Stream) Write(b []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.wbuf = append(s.wbuf, b...)
	for {
		if len(s.wbuf) < headerSize {
			break
		}
		size := binary.LittleEndian.Uint32(s.wbuf[:headerSize])
		total := headerSize + int(size)
		if len(s.wbuf) < total {
			break
		}
		frame := s.wbuf[:total]
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			return 0, rpcerr.ErrorWithDetails(
				rpcerr.Wrap(err, "failed to write websocket frame"),
				rpcerr.CategoryTransport, rpcerr.CodeInternalError, nil,
			)
		}
		s.wbuf = s.wbuf[total:]
	}
	return len(b), nil
}

// Read implements io.Reader, draining bytes the read pump has
// accumulated from complete WebSocket messages.
func (s *Stream) Read(b []byte) (int, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()
	for len(s.rbuf) == 0 && !s.closed {
		s.cond.Wait()
	}
	if len(s.rbuf) == 0 && s.closed {
		if s.readErr != nil && s.readErr != io.EOF {
			return 0, s.readErr
		}
		return 0, io.EOF
	}
	n := copy(b, s.rbuf)
	s.rbuf = s.rbuf[n:]
	return n, nil
}

func (s *Stream) closeWithErr(err error) {
	s.readMu.Lock()
	if !s.closed {
		s.closed = true
		s.readErr = err
		s.cond.Broadcast()
	}
	s.readMu.Unlock()

	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// Close implements io.Closer, stopping the ping loop and closing the
// underlying WebSocket connection.
func (s *Stream) Close() error {
	s.closeWithErr(io.EOF)
	return s.conn.Close()
}
