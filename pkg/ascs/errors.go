package ascs

import "github.com/pkg/errors"

// Errors returned by the codec.
var (
	// ErrTooShort is returned when a PDU ends before a mandatory field.
	ErrTooShort = errors.New("ascs: PDU too short")

	// ErrTrailingBytes is returned when a PDU carries data past its last field.
	ErrTrailingBytes = errors.New("ascs: trailing bytes")

	// ErrUnknownOpcode is returned for reserved control point opcodes.
	ErrUnknownOpcode = errors.New("ascs: unknown control point opcode")

	// ErrUnknownState is returned for reserved ASE state values.
	ErrUnknownState = errors.New("ascs: unknown ASE state")

	// ErrNoAses is returned for commands that name no ASE.
	ErrNoAses = errors.New("ascs: command names no ASE")

	// ErrValueRange is returned when a value does not fit its wire field.
	ErrValueRange = errors.New("ascs: value out of range")
)
