package connection

// file: connection/shutdown.go

import (
	"context"
	"time"

	"github.com/kestrelrpc/kestrel/internal/fsm"
	"github.com/kestrelrpc/kestrel/internal/logging"
	"github.com/kestrelrpc/kestrel/internal/metrics"
	"github.com/kestrelrpc/kestrel/internal/rpcerr"
	"github.com/kestrelrpc/kestrel/wire"
)

// shutdownTimeout is how long handle_shutdown waits for Exit once it has
// acknowledged a shutdown request.
const shutdownTimeout = 30 * time.Second

// Shutdown states per peer, tracked with internal/fsm rather than a bare
// bool so the "peer acks our Shutdown(false) while we're independently
// acking theirs" race is an explicit, named transition instead of an
// implicit flag flip.
const (
	StateLive         fsm.State = "live"
	StateShuttingDown fsm.State = "shutting_down"
	StateExiting      fsm.State = "exiting"
	StateTerminated   fsm.State = "terminated"
)

const (
	eventShutdownRequested fsm.Event = "shutdown_requested"
	eventShutdownAcked     fsm.Event = "shutdown_acked"
	eventExited            fsm.Event = "exited"
)

// ShutdownState wraps the per-connection shutdown FSM described in the
// handshake's four states: Live, ShuttingDown, Exiting, Terminated.
type ShutdownState struct {
	machine fsm.FSM
}

// NewShutdownState builds a ShutdownState machine starting in StateLive.
func NewShutdownState(logger logging.Logger) (*ShutdownState, error) {
	machine := fsm.NewFSM(StateLive, logger).
		AddTransition(fsm.Transition{From: []fsm.State{StateLive}, To: StateShuttingDown, Event: eventShutdownRequested}).
		AddTransition(fsm.Transition{From: []fsm.State{StateLive}, To: StateExiting, Event: eventShutdownAcked}).
		AddTransition(fsm.Transition{From: []fsm.State{StateShuttingDown}, To: StateExiting, Event: eventShutdownAcked}).
		AddTransition(fsm.Transition{From: []fsm.State{StateShuttingDown, StateExiting}, To: StateTerminated, Event: eventExited})

	if err := machine.Build(); err != nil {
		return nil, rpcerr.ErrorWithDetails(
			rpcerr.Wrap(err, "failed to build shutdown state machine"),
			rpcerr.CategoryLocal, rpcerr.CodeInternalError, nil,
		)
	}
	return &ShutdownState{machine: machine}, nil
}

// Current returns the shutdown machine's current state.
func (s *ShutdownState) Current() fsm.State {
	return s.machine.CurrentState()
}

// HandleShutdown implements the handle_shutdown(msg) contract: given one
// inbound message, it reports whether msg was a shutdown-protocol
// message it consumed (true) or an ordinary message the caller should
// still handle (false). A consumed Shutdown(false) blocks waiting for
// Exit with shutdownTimeout; a consumed Shutdown(true) replies with Exit
// and returns immediately, trusting the worker loops to observe the
// stream closing. If both peers send Shutdown(false) simultaneously,
// the blocked wait observes the peer's Shutdown(true) instead of Exit
// and collapses onto the same Shutdown(true)-then-Exit path.
func (s *ShutdownState) HandleShutdown(ctx context.Context, conn *Connection, msg wire.Message) (bool, error) {
	switch {
	case msg.IsShutdownRequest():
		return true, s.handleShutdownRequested(ctx, conn, msg.ID())
	case msg.IsShutdownAck():
		return true, s.handleShutdownAcked(conn, msg.ID())
	default:
		return false, nil
	}
}

func (s *ShutdownState) handleShutdownRequested(ctx context.Context, conn *Connection, id string) error {
	if err := s.machine.Transition(ctx, eventShutdownRequested, nil); err != nil {
		return rpcerr.ErrorWithDetails(
			rpcerr.Wrap(err, "cannot accept shutdown request in current state"),
			rpcerr.CategoryProtocol, rpcerr.CodeServerErrorEnd, nil,
		)
	}
	conn.Send(wire.ShutdownAckMessage(id))

	timer := time.NewTimer(shutdownTimeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		metrics.ShutdownsCompleted.WithLabelValues("timeout").Inc()
		return rpcerr.ErrorWithDetails(
			rpcerr.New("timed out waiting for exit notification"),
			rpcerr.CategoryProtocol, rpcerr.CodeServerErrorEnd, nil,
		)
	case msg, ok := <-conn.Receive():
		if !ok {
			metrics.ShutdownsCompleted.WithLabelValues("timeout").Inc()
			return rpcerr.ErrorWithDetails(
				rpcerr.New("channel disconnected waiting for exit notification"),
				rpcerr.CategoryProtocol, rpcerr.CodeServerErrorEnd, nil,
			)
		}
		switch {
		case msg.IsExit():
			if err := s.machine.Transition(ctx, eventExited, nil); err != nil {
				return err
			}
			metrics.ShutdownsCompleted.WithLabelValues("terminated").Inc()
			return nil
		case msg.IsShutdownAck():
			// Both peers requested shutdown at the same time: this side
			// is already ShuttingDown on its own request when the
			// peer's ack to that same race arrives instead of an Exit.
			// Collapse it to a single Exit exchange rather than
			// treating it as a protocol violation.
			return s.handleShutdownAcked(conn, msg.ID())
		default:
			return rpcerr.ErrorWithDetails(
				rpcerr.Newf("unexpected message during shutdown: kind %d", msg.Kind),
				rpcerr.CategoryProtocol, rpcerr.CodeServerErrorEnd, nil,
			)
		}
	}
}

func (s *ShutdownState) handleShutdownAcked(conn *Connection, id string) error {
	if err := s.machine.Transition(context.Background(), eventShutdownAcked, nil); err != nil {
		return rpcerr.ErrorWithDetails(
			rpcerr.Wrap(err, "cannot accept shutdown acknowledgement in current state"),
			rpcerr.CategoryProtocol, rpcerr.CodeServerErrorEnd, nil,
		)
	}
	conn.Send(wire.ExitMessage(id))
	metrics.ShutdownsCompleted.WithLabelValues("terminated").Inc()
	return nil
}
