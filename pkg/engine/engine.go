package engine

import (
	"net"
	"sync"

	"github.com/pion/logging"
	"github.com/pkg/errors"

	"github.com/backkem/leaudio/pkg/audio"
	"github.com/backkem/leaudio/pkg/ccid"
	"github.com/backkem/leaudio/pkg/device"
	"github.com/backkem/leaudio/pkg/gatt"
	"github.com/backkem/leaudio/pkg/loop"
	"github.com/backkem/leaudio/pkg/statemachine"
)

// PeerConfig describes a discovered peer and its ATT bearer.
type PeerConfig struct {
	GroupID int
	Address string

	// AclHandle is the controller handle of the ACL link, used to
	// establish the peer's CISes.
	AclHandle uint16

	// Conn carries the ATT PDUs of the peer. The engine closes it on
	// Disconnect and Stop.
	Conn net.Conn

	// Attributes is the discovered ASCS and PACS attribute table.
	Attributes gatt.AttributeTable

	// AseIDs maps ASE value handles to the ASE ids read from the peer.
	// Optional.
	AseIDs map[uint16]uint8

	// Values holds the PACS characteristic values read during discovery,
	// by value handle.
	Values map[uint16][]byte
}

// Engine drives LE Audio groups. It is safe for concurrent use.
type Engine struct {
	config Config
	log    logging.LeveledLogger

	groups *device.Groups
	mux    *gatt.Mux
	sm     *statemachine.StateMachine

	mu        sync.RWMutex
	state     State
	loop      *loop.Loop
	callbacks *loop.Loop

	// Owned by the loop.
	bearers    map[uint16]*gatt.ClientBearer
	nextConnID uint16
}

// New creates an engine. Call Start to run it.
func New(config Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	e := &Engine{
		config:     config,
		groups:     device.NewGroups(),
		mux:        gatt.NewMux(),
		bearers:    make(map[uint16]*gatt.ClientBearer),
		nextConnID: 1,
	}
	if config.LoggerFactory != nil {
		e.log = config.LoggerFactory.NewLogger("engine")
	}

	var callbacks statemachine.Callbacks
	if config.Callbacks != nil {
		callbacks = relay{e}
	}
	sm, err := statemachine.New(statemachine.Config{
		Groups:            e.groups,
		Controller:        config.Controller,
		GATT:              client{e},
		Provider:          config.Provider,
		CCIDs:             config.CCIDs,
		CodecLocator:      config.CodecLocator,
		Callbacks:         callbacks,
		Scheduler:         scheduler{e},
		TransitionTimeout: config.TransitionTimeout,
		FallbackContext:   config.FallbackContext,
		OffloadDataPathID: config.OffloadDataPathID,
		LoggerFactory:     config.LoggerFactory,
	})
	if err != nil {
		return nil, errors.Wrap(err, "engine")
	}
	e.sm = sm
	return e, nil
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// CCIDs returns the keeper resolving the CCIDs of stream metadata.
func (e *Engine) CCIDs() *ccid.Keeper {
	return e.config.CCIDs
}

// Start starts the event loops.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateRunning:
		return ErrAlreadyStarted
	case StateStopped:
		return ErrStopped
	}

	e.loop = loop.New(loop.Config{Name: "engine-loop", LoggerFactory: e.config.LoggerFactory})
	e.callbacks = loop.New(loop.Config{Name: "engine-callbacks", LoggerFactory: e.config.LoggerFactory})
	e.state = StateRunning

	if e.log != nil {
		e.log.Info("engine started")
	}
	return nil
}

// Stop stops the loops and closes every bearer. Controller events, ATT
// traffic and timer expiries arriving later are dropped.
func (e *Engine) Stop() error {
	e.mu.Lock()
	switch e.state {
	case StateInitialized:
		e.state = StateStopped
		e.mu.Unlock()
		return nil
	case StateStopped:
		e.mu.Unlock()
		return ErrStopped
	}
	e.state = StateStopped
	l, cb := e.loop, e.callbacks
	e.mu.Unlock()

	l.Close()
	cb.Close()

	// The loop is gone, so the bearers are ours now.
	for connID, b := range e.bearers {
		e.mux.Remove(connID)
		if err := b.Close(); err != nil && e.log != nil {
			e.log.Debugf("conn %d: close: %v", connID, err)
		}
	}
	e.bearers = make(map[uint16]*gatt.ClientBearer)

	if e.log != nil {
		e.log.Info("engine stopped")
	}
	return nil
}

// post queues f on the event loop of a running engine.
func (e *Engine) post(f func()) bool {
	e.mu.RLock()
	l, running := e.loop, e.state == StateRunning
	e.mu.RUnlock()
	if !running {
		return false
	}
	return l.Post(f)
}

// postCallback queues f on the callback loop.
func (e *Engine) postCallback(f func()) {
	e.mu.RLock()
	l, running := e.callbacks, e.state == StateRunning
	e.mu.RUnlock()
	if running {
		l.Post(f)
	}
}

// do runs f on the event loop and waits for its result.
func (e *Engine) do(f func() error) error {
	e.mu.RLock()
	l, state := e.loop, e.state
	e.mu.RUnlock()
	switch state {
	case StateInitialized:
		return ErrNotStarted
	case StateStopped:
		return ErrStopped
	}

	errc := make(chan error, 1)
	if !l.Post(func() { errc <- f() }) {
		return ErrStopped
	}
	select {
	case err := <-errc:
		return err
	case <-l.Done():
		return ErrStopped
	}
}

// Connect adds a peer to its group, or brings a known disconnected peer
// back, and opens its ATT bearer.
func (e *Engine) Connect(peer PeerConfig) error {
	if peer.Conn == nil {
		return ErrNoConn
	}
	return e.do(func() error {
		g, d := e.groups.FindByAddress(peer.Address)
		switch {
		case d == nil:
			var err error
			d = device.NewDevice(device.DeviceConfig{
				Address:    peer.Address,
				AclHandle:  peer.AclHandle,
				Attributes: peer.Attributes,
				AseIDs:     peer.AseIDs,
			})
			if g, err = e.groups.AddDevice(peer.GroupID, d); err != nil {
				return err
			}
		case g.ID != peer.GroupID:
			return errors.Wrapf(ErrWrongGroup, "%s in group %d", peer.Address, g.ID)
		case d.IsConnected():
			return errors.Wrap(ErrAlreadyConnected, peer.Address)
		}

		connID := e.nextConnID
		e.nextConnID++
		d.SetConnected(connID, peer.AclHandle)
		for handle, value := range peer.Values {
			if _, err := d.ApplyPACS(handle, value); err != nil && e.log != nil {
				e.log.Warnf("%s: PACS value 0x%04x: %v", peer.Address, handle, err)
			}
		}
		g.ReloadAudioLocations()
		g.ReloadAudioDirections()

		b := gatt.NewClientBearer(gatt.ClientBearerConfig{
			ConnID:         connID,
			Conn:           peer.Conn,
			MTU:            e.config.MTU,
			OnNotification: e.onNotification,
			OnClose:        e.onBearerClosed,
			LoggerFactory:  e.config.LoggerFactory,
		})
		e.bearers[connID] = b
		e.mux.Add(b)

		if e.log != nil {
			e.log.Infof("group %d: %s connected as conn %d", g.ID, peer.Address, connID)
		}
		return nil
	})
}

// Disconnect closes a peer's bearer and folds the lost link into its group.
func (e *Engine) Disconnect(address string) error {
	return e.do(func() error {
		g, d := e.groups.FindByAddress(address)
		if d == nil {
			return errors.Wrap(statemachine.ErrDeviceNotFound, address)
		}
		if !d.IsConnected() {
			return nil
		}
		e.linkLost(g, d)
		return nil
	})
}

func (e *Engine) onNotification(connID, handle uint16, value []byte) {
	e.post(func() { e.sm.HandleNotification(connID, handle, value) })
}

func (e *Engine) onBearerClosed(connID uint16) {
	e.post(func() {
		g, d := e.groups.FindByConnID(connID)
		if d == nil || !d.IsConnected() {
			return
		}
		if e.log != nil {
			e.log.Infof("group %d: %s bearer closed", g.ID, d.Address)
		}
		e.linkLost(g, d)
	})
}

// linkLost drops the bearer of a connected device and tells the state
// machine.
func (e *Engine) linkLost(g *device.Group, d *device.Device) {
	connID := d.ConnID
	if b, ok := e.bearers[connID]; ok {
		delete(e.bearers, connID)
		e.mux.Remove(connID)
		// Close waits for the read loop, which only posts.
		if err := b.Close(); err != nil && e.log != nil {
			e.log.Debugf("conn %d: close: %v", connID, err)
		}
	}
	if err := e.sm.ProcessAclDisconnected(g.ID, d.Address); err != nil && e.log != nil {
		e.log.Warnf("group %d: %v", g.ID, err)
	}
}

// StartStream streams ctx on a group. The metadata carries ctx and the
// CCIDs registered for it.
func (e *Engine) StartStream(groupID int, ctx audio.Context) error {
	return e.StartStreamWithMetadata(groupID, ctx, audio.ContextNone, nil)
}

// StartStreamWithMetadata is StartStream with an explicit metadata context
// and CCID list. A zero metadata context uses ctx; nil ccids are resolved
// from the keeper.
func (e *Engine) StartStreamWithMetadata(groupID int, ctx, metadataCtx audio.Context, ccids []uint8) error {
	return e.do(func() error {
		return e.sm.StartStream(groupID, ctx, metadataCtx, ccids)
	})
}

// ConfigureStream codec configures a group for ctx without streaming.
func (e *Engine) ConfigureStream(groupID int, ctx audio.Context) error {
	return e.do(func() error {
		return e.sm.ConfigureStream(groupID, ctx, audio.ContextNone)
	})
}

// SuspendStream stops the audio of a group and keeps its resources.
func (e *Engine) SuspendStream(groupID int) error {
	return e.do(func() error {
		return e.sm.SuspendStream(groupID)
	})
}

// StopStream releases a group.
func (e *Engine) StopStream(groupID int) error {
	return e.do(func() error {
		return e.sm.StopStream(groupID)
	})
}

// AttachToStream adds a connected device to its streaming group.
func (e *Engine) AttachToStream(groupID int, address string) error {
	return e.do(func() error {
		return e.sm.AttachToStream(groupID, address)
	})
}

// LastStatus returns the last status reported for a group.
func (e *Engine) LastStatus(groupID int) (statemachine.Status, bool, error) {
	var (
		status statemachine.Status
		ok     bool
	)
	err := e.do(func() error {
		status, ok = e.sm.LastStatus(groupID)
		return nil
	})
	return status, ok, err
}

// Snapshot returns a copy of a group's state.
func (e *Engine) Snapshot(groupID int) (GroupSnapshot, error) {
	var snap GroupSnapshot
	err := e.do(func() error {
		g := e.groups.Get(groupID)
		if g == nil {
			return errors.Wrapf(statemachine.ErrGroupNotFound, "%d", groupID)
		}
		snap = snapshot(g)
		return nil
	})
	return snap, err
}
