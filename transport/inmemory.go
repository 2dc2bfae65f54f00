package transport

// file: transport/inmemory.go

import (
	"io"
	"sync"
)

// pipe is an in-process Stream backed by crossed byte buffers, letting
// two Workers pairs exchange frames without real I/O. It is the Go
// analogue of a loopback socket pair, used for testing a Connection end
// to end without a listener.
type pipe struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	closed bool
}

func newPipe() *pipe {
	p := &pipe{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *pipe) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	p.buf = append(p.buf, b...)
	p.cond.Broadcast()
	return len(b), nil
}

func (p *pipe) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.buf) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.buf) == 0 && p.closed {
		return 0, io.EOF
	}
	n := copy(b, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}

func (p *pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.cond.Broadcast()
	return nil
}

// halfDuplex pairs a read-side and write-side pipe into one Stream.
type halfDuplex struct {
	r *pipe
	w *pipe
}

func (h halfDuplex) Read(b []byte) (int, error)  { return h.r.Read(b) }
func (h halfDuplex) Write(b []byte) (int, error) { return h.w.Write(b) }
func (h halfDuplex) Close() error {
	_ = h.r.Close()
	return h.w.Close()
}

// NewInMemoryPair returns two Streams wired so that writes to one are
// readable from the other, for connecting a Connection's client and
// server halves without a real listener. This is the Go equivalent of
// the library's commented-out in-process Connection constructor reserved
// for tests.
func NewInMemoryPair() (clientSide Stream, serverSide Stream) {
	clientToServer := newPipe()
	serverToClient := newPipe()

	clientSide = halfDuplex{r: serverToClient, w: clientToServer}
	serverSide = halfDuplex{r: clientToServer, w: serverToClient}
	return clientSide, serverSide
}
