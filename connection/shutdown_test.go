package connection

import (
	"context"
	"testing"
	"time"

	"github.com/kestrelrpc/kestrel/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleShutdownIgnoresOrdinaryMessages(t *testing.T) {
	client, server := NewInMemoryPair(nil)
	defer client.Close()
	defer server.Close()

	state, err := NewShutdownState(nil)
	require.NoError(t, err)

	req, err := wire.NewRequest("1", "echo_ping", nil)
	require.NoError(t, err)

	handled, err := state.HandleShutdown(context.Background(), server, wire.ReqMessage(req))
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Equal(t, StateLive, state.Current())
}

func TestHandleShutdownRequestedAcksThenWaitsForExit(t *testing.T) {
	client, server := NewInMemoryPair(nil)
	defer client.Close()
	defer server.Close()

	state, err := NewShutdownState(nil)
	require.NoError(t, err)

	serverDone := make(chan error, 1)
	go func() {
		msg := <-server.Receive()
		_, err := state.HandleShutdown(context.Background(), server, msg)
		serverDone <- err
	}()

	client.Send(wire.ShutdownRequestMessage("s1"))

	select {
	case ackMsg := <-client.Receive():
		assert.True(t, ackMsg.IsShutdownAck())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for shutdown ack")
	}

	client.Send(wire.ExitMessage("s1"))

	select {
	case err := <-serverDone:
		require.NoError(t, err)
		assert.Equal(t, StateTerminated, state.Current())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handle_shutdown to return")
	}
}

func TestHandleShutdownAckedRepliesExit(t *testing.T) {
	client, server := NewInMemoryPair(nil)
	defer client.Close()
	defer server.Close()

	state, err := NewShutdownState(nil)
	require.NoError(t, err)

	handled, err := state.HandleShutdown(context.Background(), server, wire.ShutdownAckMessage("s2"))
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, StateExiting, state.Current())

	select {
	case msg := <-client.Receive():
		assert.True(t, msg.IsExit())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for exit")
	}
}

func TestHandleShutdownRequestedCollapsesSimultaneousShutdownRace(t *testing.T) {
	client, server := NewInMemoryPair(nil)
	defer client.Close()
	defer server.Close()

	state, err := NewShutdownState(nil)
	require.NoError(t, err)

	serverDone := make(chan error, 1)
	go func() {
		msg := <-server.Receive()
		_, err := state.HandleShutdown(context.Background(), server, msg)
		serverDone <- err
	}()

	client.Send(wire.ShutdownRequestMessage("s4"))

	select {
	case ackMsg := <-client.Receive():
		assert.True(t, ackMsg.IsShutdownAck())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for shutdown ack")
	}

	// Instead of the Exit our own request is waiting for, the peer's
	// ack to its own simultaneous shutdown request arrives.
	client.Send(wire.ShutdownAckMessage("s4"))

	select {
	case err := <-serverDone:
		require.NoError(t, err)
		// handleShutdownAcked replies with Exit and returns without
		// waiting for its own Exit back; the machine lands in
		// StateExiting, not StateTerminated, until that Exit arrives.
		assert.Equal(t, StateExiting, state.Current())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handle_shutdown to collapse the race")
	}

	select {
	case exitMsg := <-client.Receive():
		assert.True(t, exitMsg.IsExit())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for exit")
	}
}

func TestHandleShutdownRequestedBlocksWhileAwaitingExit(t *testing.T) {
	client, server := NewInMemoryPair(nil)
	defer client.Close()
	defer server.Close()

	state, err := NewShutdownState(nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		msg := <-server.Receive()
		_, err := state.HandleShutdown(context.Background(), server, msg)
		done <- err
	}()

	client.Send(wire.ShutdownRequestMessage("s3"))
	<-client.Receive() // drain the ack

	select {
	case err := <-done:
		// shutdownTimeout is 30s, so handle_shutdown must not return
		// within this test's 100ms window while no Exit has been sent.
		t.Fatalf("handle_shutdown returned before any Exit arrived: %v", err)
	case <-time.After(100 * time.Millisecond):
		// handle_shutdown is still correctly blocked waiting for Exit.
	}
}
