package engine

// State is the lifecycle state of an Engine.
type State int

const (
	// StateInitialized means the engine is created but not started.
	StateInitialized State = iota

	// StateRunning means the event loops are running.
	StateRunning

	// StateStopped means the engine has been shut down. It cannot be
	// restarted.
	StateStopped
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateInitialized:
		return "Initialized"
	case StateRunning:
		return "Running"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}
