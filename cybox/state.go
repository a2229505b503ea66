package cybox

// ConnState represents the lifecycle of one connection worker.
type ConnState int32

const (
	// StateIdle means the worker has been created but not started yet.
	StateIdle ConnState = iota

	// StateConnecting means the handshake is in progress.
	StateConnecting

	// StateOpen means the session is established and both duplex halves
	// are running.
	StateOpen

	// StateClosing means the inbound loop has stopped and the worker is
	// tearing down.
	StateClosing

	// StateClosed means the worker has terminated. A worker is never
	// reused; reconnecting constructs a new one.
	StateClosed
)

// String returns the string representation of a ConnState.
func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
