// Package fsm provides a small finite state machine wrapper around
// looplab/fsm, scoped to what a connection's shutdown handshake needs:
// named states, named events, and transitions guarded only by "is the
// event valid from the current state" — no guard conditions or
// transition actions, since the shutdown machine drives its own side
// effects (sending Shutdown-ack/Exit messages) from the caller, not
// from FSM callbacks.
// file: internal/fsm/fsm.go
package fsm

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/kestrelrpc/kestrel/internal/logging"
	lfsm "github.com/looplab/fsm"
)

// State represents a state in the FSM.
type State string

// Event represents an event that can trigger a state transition.
type Event string

// Transition defines a transition rule between states. A single event
// name may be declared in more than one Transition (e.g. one From set
// per AddTransition call); Build merges them into one looplab/fsm EventDesc.
type Transition struct {
	From  []State // Source states for this transition.
	To    State   // The destination state.
	Event Event   // The event triggering the transition.
}

// FSM defines the interface for our finite state machine wrapper.
type FSM interface {
	// AddTransition stores a transition definition. Call Build() after adding all transitions.
	AddTransition(transition Transition) FSM
	// Build finalizes the FSM configuration and creates the underlying machine. Must be called after AddTransition(s).
	Build() error
	// CurrentState returns the current state. Requires Build() to have been called successfully.
	CurrentState() State
	// Transition attempts to trigger a state transition. Requires Build().
	Transition(ctx context.Context, event Event, data interface{}) error
}

// loopFSM implements the FSM interface using looplab/fsm.
type loopFSM struct {
	initialState State
	logger       logging.Logger
	transitions  []Transition
	fsm          *lfsm.FSM    // Underlying instance, nil until Build() is called.
	buildErr     error        // Stores error from Build().
	mu           sync.RWMutex // Protects access to fsm instance and buildErr.
	eventDescMap map[string]lfsm.EventDesc
}

// NewFSM creates a new FSM builder instance with the specified initial state and logger.
// Call AddTransition() to define transitions, then call Build() to finalize.
func NewFSM(initialState State, logger logging.Logger) FSM {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &loopFSM{
		initialState: initialState,
		logger:       logger.WithField("component", "fsm_wrapper"),
		transitions:  make([]Transition, 0),
	}
}

// AddTransition stores a transition definition to be used during Build().
func (l *loopFSM) AddTransition(t Transition) FSM {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fsm != nil {
		l.logger.Error("Cannot AddTransition after Build() has been called.")
		if l.buildErr == nil {
			l.buildErr = errors.New("cannot AddTransition after Build")
		}
		return l
	}
	if len(t.From) == 0 {
		l.logger.Error("Transition definition missing 'From' states.", "event", t.Event, "to", t.To)
		if l.buildErr == nil {
			l.buildErr = errors.New("transition definition missing 'From' states")
		}
		return l // Prevent adding invalid transition.
	}
	l.transitions = append(l.transitions, t)
	l.logger.Debug("Stored transition definition.", "event", t.Event, "from", t.From, "to", t.To)
	return l
}

// Build finalizes the FSM configuration and creates the underlying looplab/fsm instance.
func (l *loopFSM) Build() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fsm != nil {
		l.logger.Warn("Build() called again on an already built FSM.")
		return l.buildErr // Return previous build error, if any.
	}
	if l.buildErr != nil {
		l.logger.Error("Attempted to Build() FSM with configuration errors.", "error", l.buildErr)
		return l.buildErr // Return previous configuration error.
	}
	if len(l.transitions) == 0 {
		l.logger.Warn("Building FSM with no transitions defined.")
	}

	l.logger.Info("Building FSM instance...", "initialState", l.initialState, "transition_count", len(l.transitions))

	l.eventDescMap = make(map[string]lfsm.EventDesc)

	// looplab/fsm expects one EventDesc per unique event name; all
	// transitions sharing that name contribute their From states to
	// its Src list.
	for _, t := range l.transitions {
		eventName := string(t.Event)
		toStateStr := string(t.To)
		fromStatesStr := make([]string, len(t.From))
		for j, s := range t.From {
			fromStatesStr[j] = string(s)
		}

		desc, exists := l.eventDescMap[eventName]
		if !exists {
			desc = lfsm.EventDesc{Name: eventName, Dst: toStateStr}
		} else if desc.Dst != toStateStr {
			err := errors.Newf("conflicting destinations ('%s' and '%s') for the same event ('%s'). Define separate events.", desc.Dst, toStateStr, eventName)
			l.logger.Error("Invalid FSM configuration.", "error", err)
			l.buildErr = err
			return l.buildErr
		}
		desc.Src = append(desc.Src, fromStatesStr...)
		l.eventDescMap[eventName] = desc
	}

	finalEvents := make([]lfsm.EventDesc, 0, len(l.eventDescMap))
	for _, desc := range l.eventDescMap {
		uniqueSrc := make(map[string]struct{})
		dedupedSrc := make([]string, 0, len(desc.Src))
		for _, s := range desc.Src {
			if _, exists := uniqueSrc[s]; !exists {
				uniqueSrc[s] = struct{}{}
				dedupedSrc = append(dedupedSrc, s)
			}
		}
		desc.Src = dedupedSrc
		finalEvents = append(finalEvents, desc)
	}

	l.fsm = lfsm.NewFSM(string(l.initialState), finalEvents, lfsm.Callbacks{})
	l.logger.Info("FSM instance built successfully.")
	return nil
}

// CurrentState returns the current state of the FSM. Requires Build().
func (l *loopFSM) CurrentState() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.fsm == nil {
		l.logger.Error("CurrentState() called before Build() or after build error.")
		return ""
	}
	return State(l.fsm.Current())
}

// Transition triggers a state transition based on the event. Requires Build().
// data is passed through to lfsm.Event's args, but this wrapper attaches
// no callbacks, so nothing reads it.
func (l *loopFSM) Transition(ctx context.Context, event Event, data interface{}) error {
	l.mu.RLock()
	if l.fsm == nil {
		l.mu.RUnlock()
		l.logger.Error("Transition() called before Build() or after build error.")
		return l.buildErr
	}
	fsmInstance := l.fsm
	l.mu.RUnlock()

	l.logger.Debug("Attempting transition.", "event", event, "from_state", l.CurrentState())
	args := []interface{}{}
	if data != nil {
		args = append(args, data)
	}

	err := fsmInstance.Event(ctx, string(event), args...)
	if err != nil {
		if errors.Is(err, &lfsm.NoTransitionError{}) || errors.Is(err, &lfsm.InvalidEventError{}) || errors.Is(err, &lfsm.UnknownEventError{}) {
			l.logger.Warn("Transition failed: Event/Transition not applicable for current state.", "event", event, "from_state", l.CurrentState(), "error", err)
			return errors.Wrap(err, "transition not possible")
		}
		if errors.Is(err, &lfsm.InTransitionError{}) {
			l.logger.Error("Concurrency error during transition.", "event", event, "error", err)
			return errors.Wrap(err, "FSM concurrency error")
		}
		l.logger.Error("Transition failed.", "event", event, "from_state", l.CurrentState(), "error", err)
		return errors.Wrapf(err, "failed to transition on event '%s' from state '%s'", event, l.CurrentState())
	}

	l.logger.Debug("Transition successful.", "event", event, "new_state", l.CurrentState())
	return nil
}
