package engine

import "errors"

// Package-level errors.
var (
	// ErrNoController is returned when Config.Controller is nil.
	ErrNoController = errors.New("engine: ISO controller required")

	// ErrAlreadyStarted is returned when Start is called on a running engine.
	ErrAlreadyStarted = errors.New("engine: already started")

	// ErrNotStarted is returned when an operation requires a running engine.
	ErrNotStarted = errors.New("engine: not started")

	// ErrStopped is returned by operations on a stopped engine.
	ErrStopped = errors.New("engine: stopped")

	// ErrNoConn is returned when a peer is connected without a bearer
	// connection.
	ErrNoConn = errors.New("engine: peer connection required")

	// ErrAlreadyConnected is returned when connecting a device whose link
	// is up.
	ErrAlreadyConnected = errors.New("engine: device already connected")

	// ErrWrongGroup is returned when a known device is connected for
	// another group.
	ErrWrongGroup = errors.New("engine: device belongs to another group")
)
