// Package statemachine drives LE Audio unicast groups through the ASCS
// state machine.
//
// A StateMachine owns no goroutines. Every public method and every event
// handler must be called from one serialized context; package engine
// provides that context. Requests to the GATT client and the ISO
// controller are fire-and-forget: their completions come back as separate
// calls (write callbacks, HandleNotification, the iso.EventHandler
// methods).
//
// Each group has a target state. After every request and every event the
// state machine reconciles the group: it tears down what the target no
// longer needs, issues the next requests towards the target for every
// device that is not waiting on one, and reports a status once the target
// is reached. Outstanding controller requests are tracked per group in
// device.PendingOps; outstanding control point operations per ASE.
//
// Status reports:
//
//	StartStream     -> STREAMING
//	ConfigureStream -> CONFIGURED_BY_USER
//	SuspendStream   -> SUSPENDING, SUSPENDED
//	StopStream      -> RELEASING, IDLE or CONFIGURED_AUTONOMOUS
//
// Between two requests, a status equal to the last one reported for the
// group is not repeated.
package statemachine
