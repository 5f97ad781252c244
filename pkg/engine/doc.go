// Package engine runs LE Audio groups behind a single serialized event
// loop.
//
// An Engine owns the groups, the GATT bearers of their devices and a group
// state machine. Every input reaches the state machine through the loop:
// application requests, ATT notifications and write results from the
// bearers, ISO controller events and watchdog expiries. Status callbacks are
// delivered on a second loop, so a callback may call back into the engine.
//
// Typical use:
//
//	e, err := engine.New(engine.Config{Controller: ctrl, Callbacks: cb})
//	ctrl.SetHandler(e)
//	e.Start()
//	e.Connect(engine.PeerConfig{GroupID: 1, Address: addr, Conn: conn, ...})
//	e.StartStream(1, audio.ContextMedia)
//	...
//	e.Stop()
//
// Several engines can coexist; they share nothing.
package engine
