package gatt

import "sync"

// Mux is a Client that routes writes to per-connection bearers.
type Mux struct {
	mu      sync.RWMutex
	bearers map[uint16]*ClientBearer
}

// NewMux creates an empty Mux.
func NewMux() *Mux {
	return &Mux{bearers: make(map[uint16]*ClientBearer)}
}

// Add registers a bearer, replacing any bearer with the same connection id.
func (m *Mux) Add(b *ClientBearer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bearers[b.ConnID()] = b
}

// Remove unregisters a bearer. It does not close it.
func (m *Mux) Remove(connID uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bearers, connID)
}

// Bearer returns the bearer for a connection id.
func (m *Mux) Bearer(connID uint16) (*ClientBearer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bearers[connID]
	return b, ok
}

// WriteCharacteristic implements Client.
func (m *Mux) WriteCharacteristic(connID uint16, handle uint16, value []byte, writeType WriteType, done WriteCallback) error {
	b, ok := m.Bearer(connID)
	if !ok {
		return ErrNotConnected
	}
	return b.Write(handle, value, writeType, done)
}

var _ Client = (*Mux)(nil)
