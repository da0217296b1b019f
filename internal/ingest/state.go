package ingest

// State tracks the single-connection pipeline lifecycle. Every edge out of
// StateStreaming is terminal; there is no reconnect transition.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateStreaming
	StateClosedByPeer
	StateIOError
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateClosedByPeer:
		return "closed_by_peer"
	case StateIOError:
		return "io_error"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Terminal reports whether the run has ended.
func (s State) Terminal() bool {
	switch s {
	case StateClosedByPeer, StateIOError, StateShutdown:
		return true
	default:
		return false
	}
}
