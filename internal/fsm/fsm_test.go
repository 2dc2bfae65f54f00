package fsm

// file: internal/fsm/fsm_test.go

import (
	"context"
	"testing"

	"github.com/kestrelrpc/kestrel/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// States and events mirroring connection/shutdown.go's shutdown
// handshake, the one machine this wrapper actually drives in
// production.
const (
	stateLive         State = "live"
	stateShuttingDown State = "shutting_down"
	stateExiting      State = "exiting"
	stateTerminated   State = "terminated"

	eventShutdownRequested Event = "shutdown_requested"
	eventShutdownAcked     Event = "shutdown_acked"
	eventExited            Event = "exited"
)

func buildShutdownFSM(t *testing.T) FSM {
	t.Helper()
	machine := NewFSM(stateLive, logging.GetNoopLogger()).
		AddTransition(Transition{From: []State{stateLive}, To: stateShuttingDown, Event: eventShutdownRequested}).
		AddTransition(Transition{From: []State{stateLive}, To: stateExiting, Event: eventShutdownAcked}).
		AddTransition(Transition{From: []State{stateShuttingDown}, To: stateExiting, Event: eventShutdownAcked}).
		AddTransition(Transition{From: []State{stateShuttingDown, stateExiting}, To: stateTerminated, Event: eventExited})

	require.NoError(t, machine.Build())
	return machine
}

func TestNewFSMStartsInInitialState(t *testing.T) {
	machine := NewFSM(stateLive, logging.GetNoopLogger())
	require.NotNil(t, machine)
	require.NoError(t, machine.Build())
	assert.Equal(t, stateLive, machine.CurrentState())
}

func TestBuildIsIdempotent(t *testing.T) {
	machine := NewFSM(stateLive, logging.GetNoopLogger())
	require.NoError(t, machine.Build())
	require.NoError(t, machine.Build())
}

func TestShutdownRequestedMovesLiveToShuttingDown(t *testing.T) {
	machine := buildShutdownFSM(t)
	ctx := context.Background()

	assert.Equal(t, stateLive, machine.CurrentState())

	require.NoError(t, machine.Transition(ctx, eventShutdownRequested, nil))
	assert.Equal(t, stateShuttingDown, machine.CurrentState())
}

func TestExitedTerminatesFromShuttingDownOrExiting(t *testing.T) {
	ctx := context.Background()

	machine := buildShutdownFSM(t)
	require.NoError(t, machine.Transition(ctx, eventShutdownRequested, nil))
	require.NoError(t, machine.Transition(ctx, eventExited, nil))
	assert.Equal(t, stateTerminated, machine.CurrentState())

	machine = buildShutdownFSM(t)
	require.NoError(t, machine.Transition(ctx, eventShutdownAcked, nil))
	require.NoError(t, machine.Transition(ctx, eventExited, nil))
	assert.Equal(t, stateTerminated, machine.CurrentState())
}

func TestSimultaneousShutdownCollapsesToSingleExit(t *testing.T) {
	// Mirrors the race where a peer already in StateShuttingDown (it
	// sent its own shutdown request first) receives the other side's
	// shutdown acknowledgement instead of an Exit.
	machine := buildShutdownFSM(t)
	ctx := context.Background()

	require.NoError(t, machine.Transition(ctx, eventShutdownRequested, nil))
	require.NoError(t, machine.Transition(ctx, eventShutdownAcked, nil))
	assert.Equal(t, stateExiting, machine.CurrentState())

	require.NoError(t, machine.Transition(ctx, eventExited, nil))
	assert.Equal(t, stateTerminated, machine.CurrentState())
}

func TestTransitionRejectsEventInvalidForCurrentState(t *testing.T) {
	machine := buildShutdownFSM(t)
	ctx := context.Background()

	err := machine.Transition(ctx, eventExited, nil)
	require.Error(t, err)
	assert.Equal(t, stateLive, machine.CurrentState())
}

func TestBuildFailsOnConflictingDestinations(t *testing.T) {
	machine := NewFSM(stateLive, logging.GetNoopLogger()).
		AddTransition(Transition{From: []State{stateLive}, To: stateShuttingDown, Event: eventShutdownRequested}).
		AddTransition(Transition{From: []State{stateLive}, To: stateExiting, Event: eventShutdownRequested})

	err := machine.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicting destinations")
}

func TestBuildFailsOnMissingFromStates(t *testing.T) {
	machine := NewFSM(stateLive, logging.GetNoopLogger()).
		AddTransition(Transition{To: stateShuttingDown, Event: eventShutdownRequested})

	err := machine.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing 'From' states")
}
