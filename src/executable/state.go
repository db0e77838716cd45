package executable

import (
	"sync/atomic"
)

// State is the state of one execution.
type State uint32

const (
	// Building is the state before the first attempt.
	Building State = iota

	// Attempting is the state in which a request is in flight to a node.
	Attempting

	// Retrying is the state between a retryable failure and the next attempt.
	Retrying

	// Succeeded is the final state of a successful execution.
	Succeeded

	// Failed is the final state of an execution that returned an error.
	Failed
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case Building:
		return "Building"
	case Attempting:
		return "Attempting"
	case Retrying:
		return "Retrying"
	case Succeeded:
		return "Succeeded"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// stateHolder wraps a State with atomic get and set methods.
type stateHolder struct {
	state State
}

func (s *stateHolder) get() State {
	return State(atomic.LoadUint32((*uint32)(&s.state)))
}

func (s *stateHolder) set(state State) {
	atomic.StoreUint32((*uint32)(&s.state), uint32(state))
}
