package gatt

import "errors"

// Errors returned by the gatt package.
var (
	// ErrClosed is returned when using a closed pipe or client.
	ErrClosed = errors.New("gatt: closed")

	// ErrNotConnected is returned when no bearer exists for a connection id.
	ErrNotConnected = errors.New("gatt: not connected")

	// ErrValueTooLong is returned when a value exceeds the negotiated MTU.
	ErrValueTooLong = errors.New("gatt: value exceeds ATT_MTU")
)
