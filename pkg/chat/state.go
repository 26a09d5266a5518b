package chat

// State is a Driver lifecycle state.
type State int

const (
	// StateIdle accepts a new message.
	StateIdle State = iota

	// StateSending waits for the response status and headers.
	StateSending

	// StateStreaming reads the event stream.
	StateStreaming

	// StateCompleted means the stream ended without an error frame.
	StateCompleted

	// StateFailed means the stream ended with an error of any kind.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Busy reports whether a message is in flight.
func (s State) Busy() bool {
	return s == StateSending || s == StateStreaming
}
