package ltv

import "errors"

var (
	// ErrUnexpectedEOF is returned when an entry's length runs past the input.
	ErrUnexpectedEOF = errors.New("ltv: unexpected end of input")

	// ErrValueTooLong is returned when a value does not fit in a single entry.
	ErrValueTooLong = errors.New("ltv: value exceeds 254 octets")

	// ErrWrongSize is returned when a typed accessor finds a value of the wrong width.
	ErrWrongSize = errors.New("ltv: value has unexpected size")

	// ErrNotFound is returned when a type is not present.
	ErrNotFound = errors.New("ltv: type not present")
)
