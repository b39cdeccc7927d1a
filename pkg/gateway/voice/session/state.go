package session

import "fmt"

// State is the lifecycle phase of a relay session. Sessions move strictly
// forward; Failed is reachable from any non-terminal state.
type State int32

const (
	StateConnecting State = iota
	StateConfiguring
	StateActive
	StateClosing
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConfiguring:
		return "configuring"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

func (s State) terminal() bool {
	return s == StateClosed || s == StateFailed
}

func canTransition(from, to State) bool {
	if from.terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	switch from {
	case StateConnecting:
		return to == StateConfiguring
	case StateConfiguring:
		return to == StateActive
	case StateActive:
		return to == StateClosing
	case StateClosing:
		return to == StateClosed
	default:
		return false
	}
}
