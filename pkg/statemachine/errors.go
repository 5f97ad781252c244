package statemachine

import "errors"

// Configuration errors.
var (
	ErrNoGroups     = errors.New("statemachine: groups table required")
	ErrNoController = errors.New("statemachine: ISO controller required")
	ErrNoGATT       = errors.New("statemachine: GATT client required")
	ErrNoProvider   = errors.New("statemachine: configuration provider required")
)

// Operation errors.
var (
	// ErrGroupNotFound is returned for an unknown group id.
	ErrGroupNotFound = errors.New("statemachine: group not found")

	// ErrDeviceNotFound is returned when an address is not part of the group.
	ErrDeviceNotFound = errors.New("statemachine: device not found")

	// ErrDeviceNotConnected is returned when attaching a disconnected device.
	ErrDeviceNotConnected = errors.New("statemachine: device not connected")

	// ErrContextNotAvailable is returned when neither the requested context
	// nor the fallback context is available on the group.
	ErrContextNotAvailable = errors.New("statemachine: context not available")

	// ErrNoConfiguration is returned when no audio-set configuration fits
	// the group.
	ErrNoConfiguration = errors.New("statemachine: no matching configuration")

	// ErrNoActiveAses is returned when a configured direction ends up
	// without an active ASE.
	ErrNoActiveAses = errors.New("statemachine: no active ASEs")

	// ErrNotStreaming is returned by AttachToStream on a group that is not
	// streaming.
	ErrNotStreaming = errors.New("statemachine: group not streaming")

	// ErrInvalidState is returned by ConfigureStream on a group that is
	// already past codec configuration.
	ErrInvalidState = errors.New("statemachine: operation not allowed in current state")
)
