package statemachine

import "fmt"

// Status is reported to the application when a group reaches a state.
type Status int

const (
	StatusIdle Status = iota
	StatusConfiguredByUser
	StatusConfiguredAutonomous
	StatusStreaming
	StatusSuspending
	StatusSuspended
	StatusReleasing
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusConfiguredByUser:
		return "CONFIGURED_BY_USER"
	case StatusConfiguredAutonomous:
		return "CONFIGURED_AUTONOMOUS"
	case StatusStreaming:
		return "STREAMING"
	case StatusSuspending:
		return "SUSPENDING"
	case StatusSuspended:
		return "SUSPENDED"
	case StatusReleasing:
		return "RELEASING"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}
