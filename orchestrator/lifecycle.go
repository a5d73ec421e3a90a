package orchestrator

import (
	"fmt"
	"sync/atomic"
)

// runState is a state of the orchestrator lifecycle machine.
type runState uint32

const (
	// stateCreated: constructed, Start not yet called.
	stateCreated runState = iota
	// stateStarted: Start in progress, loops launching.
	stateStarted
	// stateRunning: steady state, blocks may be processed.
	stateRunning
	// stateStopped: terminal. A stopped orchestrator is not
	// restartable.
	stateStopped
)

func (s runState) String() string {
	switch s {
	case stateCreated:
		return "created"
	case stateStarted:
		return "started"
	case stateRunning:
		return "running"
	case stateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// lifecycle enforces created → started → running → stopped with
// atomic transitions.
type lifecycle struct {
	state atomic.Uint32
}

func (l *lifecycle) current() runState {
	return runState(l.state.Load())
}

func (l *lifecycle) transition(from, to runState) bool {
	return l.state.CompareAndSwap(uint32(from), uint32(to))
}

func (l *lifecycle) isRunning() bool {
	return l.current() == stateRunning
}
