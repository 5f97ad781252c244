// Package gatt is the GATT transport boundary of the LE Audio stack.
//
// The state machine only needs two primitives from GATT: writing a
// characteristic value on a connection and receiving notifications. Client
// captures the first; notifications are delivered to a NotificationHandler.
//
// Pipe provides an in-memory ATT bearer between a host-side Client and a
// peripheral-side Server. It carries real ATT PDUs (Write Request/Response,
// Write Command, Handle Value Notification, Error Response) and is used by the
// simulated peripherals in pkg/sim and by end-to-end tests.
package gatt
