package device

import "errors"

// Errors returned by the device model.
var (
	// ErrDuplicateDevice is returned when adding a device already in the group.
	ErrDuplicateDevice = errors.New("device: device already in group")

	// ErrDeviceNotFound is returned when an address is not part of the group.
	ErrDeviceNotFound = errors.New("device: device not found")

	// ErrDuplicateGroup is returned when adding a group id twice.
	ErrDuplicateGroup = errors.New("device: group already exists")

	// ErrInvalidGroupID is returned for group ids that cannot double as CIG ids.
	ErrInvalidGroupID = errors.New("device: invalid group id")

	// ErrNoFreeCis is returned when a device cannot be bound to any CIS.
	ErrNoFreeCis = errors.New("device: no free CIS")

	// ErrHandleCount is returned when the controller returns a different
	// number of connection handles than CISes were requested.
	ErrHandleCount = errors.New("device: CIS handle count mismatch")

	// ErrInvariant is returned by CheckInvariants.
	ErrInvariant = errors.New("device: invariant violated")
)
