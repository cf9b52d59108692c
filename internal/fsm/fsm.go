// Package fsm defines the dictation session states and the legal moves between them.
package fsm

import "fmt"

// State is one phase of a dictation session.
type State string

// Event is a trigger applied to a State.
type Event string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateProcessing State = "processing"
	StateError      State = "error"
)

const (
	EventStart       Event = "start"
	EventStop        Event = "stop"
	EventTranscribed Event = "transcribed"
	EventFail        Event = "fail"
	EventReset       Event = "reset"
)

var table = map[State]map[Event]State{
	StateIdle:       {EventStart: StateRecording},
	StateRecording:  {EventStop: StateProcessing},
	StateProcessing: {EventTranscribed: StateIdle},
	StateError:      {EventReset: StateIdle},
}

// Transition returns the state reached by applying event to from.
// EventFail is accepted from every known state.
func Transition(from State, event Event) (State, error) {
	moves, ok := table[from]
	if !ok {
		return from, fmt.Errorf("unknown state %q", from)
	}
	if event == EventFail {
		return StateError, nil
	}
	next, ok := moves[event]
	if !ok {
		return from, fmt.Errorf("invalid transition: %s --(%s)--> ?", from, event)
	}
	return next, nil
}

// Busy reports whether a session is in flight, i.e. a new one may not start.
func (s State) Busy() bool {
	return s != StateIdle
}
