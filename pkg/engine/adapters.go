package engine

import (
	"time"

	"github.com/backkem/leaudio/pkg/gatt"
	"github.com/backkem/leaudio/pkg/iso"
	"github.com/backkem/leaudio/pkg/statemachine"
)

// client hands writes to the bearers and brings their results back onto
// the event loop.
type client struct{ e *Engine }

func (c client) WriteCharacteristic(connID, handle uint16, value []byte, writeType gatt.WriteType, done gatt.WriteCallback) error {
	var wrapped gatt.WriteCallback
	if done != nil {
		wrapped = func(connID, handle uint16, status gatt.Status) {
			c.e.post(func() { done(connID, handle, status) })
		}
	}
	return c.e.mux.WriteCharacteristic(connID, handle, value, writeType, wrapped)
}

// scheduler runs expired timers on the event loop.
type scheduler struct{ e *Engine }

func (s scheduler) AfterFunc(d time.Duration, f func()) statemachine.Timer {
	return time.AfterFunc(d, func() { s.e.post(f) })
}

// relay moves status callbacks to the callback loop.
type relay struct{ e *Engine }

func (r relay) OnStatusReport(groupID int, status statemachine.Status) {
	cb := r.e.config.Callbacks
	r.e.postCallback(func() { cb.OnStatusReport(groupID, status) })
}

func (r relay) OnStateTransitionTimeout(groupID int) {
	cb := r.e.config.Callbacks
	r.e.postCallback(func() { cb.OnStateTransitionTimeout(groupID) })
}

func (r relay) OnStreamConfigurationUpdated(groupID int) {
	cb := r.e.config.Callbacks
	r.e.postCallback(func() { cb.OnStreamConfigurationUpdated(groupID) })
}

var _ iso.EventHandler = (*Engine)(nil)

// OnCigCreated implements iso.EventHandler.
func (e *Engine) OnCigCreated(ev iso.CigCreatedEvent) {
	e.post(func() { e.sm.OnCigCreated(ev) })
}

// OnCigRemoved implements iso.EventHandler.
func (e *Engine) OnCigRemoved(ev iso.CigRemovedEvent) {
	e.post(func() { e.sm.OnCigRemoved(ev) })
}

// OnCisEstablished implements iso.EventHandler.
func (e *Engine) OnCisEstablished(ev iso.CisEstablishedEvent) {
	e.post(func() { e.sm.OnCisEstablished(ev) })
}

// OnCisDisconnected implements iso.EventHandler.
func (e *Engine) OnCisDisconnected(ev iso.CisDisconnectedEvent) {
	e.post(func() { e.sm.OnCisDisconnected(ev) })
}

// OnDataPathSetup implements iso.EventHandler.
func (e *Engine) OnDataPathSetup(ev iso.DataPathEvent) {
	e.post(func() { e.sm.OnDataPathSetup(ev) })
}

// OnDataPathRemoved implements iso.EventHandler.
func (e *Engine) OnDataPathRemoved(ev iso.DataPathEvent) {
	e.post(func() { e.sm.OnDataPathRemoved(ev) })
}
