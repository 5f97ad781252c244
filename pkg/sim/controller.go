package sim

import (
	"sort"
	"sync"

	"github.com/pion/logging"

	"github.com/backkem/leaudio/pkg/iso"
	"github.com/backkem/leaudio/pkg/loop"
)

// FirstCisHandle is the first connection handle the controller assigns.
const FirstCisHandle uint16 = 0x0060

// Call names a Controller request for counting and failure injection.
type Call int

const (
	CallCreateCig Call = iota
	CallRemoveCig
	CallEstablishCis
	CallDisconnectCis
	CallSetupDataPath
	CallRemoveDataPath
)

func (c Call) String() string {
	switch c {
	case CallCreateCig:
		return "CreateCig"
	case CallRemoveCig:
		return "RemoveCig"
	case CallEstablishCis:
		return "EstablishCis"
	case CallDisconnectCis:
		return "DisconnectCis"
	case CallSetupDataPath:
		return "SetupIsoDataPath"
	case CallRemoveDataPath:
		return "RemoveIsoDataPath"
	default:
		return "Call(?)"
	}
}

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	// Handler receives the events. It can also be set later with
	// SetHandler.
	Handler iso.EventHandler

	// Dispatch delivers events. It is called with the controller locked and
	// must run f later, never inline. Defaults to an internal loop
	// goroutine, which Close stops.
	Dispatch func(func())

	LoggerFactory logging.LoggerFactory
}

type cis struct {
	handle uint16
	cigID  uint8
	cisID  uint8
	acl    uint16
	up     bool
	paths  iso.DataPathDirection
}

// Controller is a simulated isochronous channel controller. Events are
// delivered asynchronously through the configured dispatch function.
type Controller struct {
	dispatch func(func())
	events   *loop.Loop
	log      logging.LeveledLogger

	mu          sync.Mutex
	handler     iso.EventHandler
	cigs        map[uint8][]uint16
	stale       map[uint8]bool
	cises       map[uint16]*cis
	peripherals map[uint16]*Peripheral
	nextHandle  uint16
	calls       map[Call]int
	failures    map[Call]iso.Status
	setups      []iso.DataPathParams
}

// NewController creates a controller.
func NewController(config ControllerConfig) *Controller {
	c := &Controller{
		dispatch:    config.Dispatch,
		handler:     config.Handler,
		cigs:        make(map[uint8][]uint16),
		stale:       make(map[uint8]bool),
		cises:       make(map[uint16]*cis),
		peripherals: make(map[uint16]*Peripheral),
		nextHandle:  FirstCisHandle,
		calls:       make(map[Call]int),
		failures:    make(map[Call]iso.Status),
	}
	if c.dispatch == nil {
		c.events = loop.New(loop.Config{Name: "sim-iso-events", LoggerFactory: config.LoggerFactory})
		c.dispatch = func(f func()) { c.events.Post(f) }
	}
	if config.LoggerFactory != nil {
		c.log = config.LoggerFactory.NewLogger("sim-iso")
	}
	return c
}

// Close stops the internal event loop, if any.
func (c *Controller) Close() {
	if c.events != nil {
		c.events.Close()
	}
}

// SetHandler sets the event handler.
func (c *Controller) SetHandler(h iso.EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// Attach connects a peripheral on an ACL handle. CIS events on that link
// are reflected to the peripheral.
func (c *Controller) Attach(acl uint16, p *Peripheral) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peripherals[acl] = p
}

// AddStaleCig leaves a CIG behind, as if an earlier session had not
// removed it. Creating it again is disallowed until it is removed.
func (c *Controller) AddStaleCig(cigID uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stale[cigID] = true
}

// Fail makes the next request of the given kind complete with status.
func (c *Controller) Fail(call Call, status iso.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[call] = status
}

// Count returns how often a request was made.
func (c *Controller) Count(call Call) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[call]
}

// Cigs returns the ids of the CIGs that exist.
func (c *Controller) Cigs() []uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ids []uint8
	for id := range c.cigs {
		ids = append(ids, id)
	}
	for id := range c.stale {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CisUp reports whether a CIS is established.
func (c *Controller) CisUp(handle uint16) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	x := c.cises[handle]
	return x != nil && x.up
}

// DataPaths returns the data path directions set up on a CIS.
func (c *Controller) DataPaths(handle uint16) iso.DataPathDirection {
	c.mu.Lock()
	defer c.mu.Unlock()
	if x := c.cises[handle]; x != nil {
		return x.paths
	}
	return 0
}

// DataPathSetups returns the parameters of every data path set up so far.
func (c *Controller) DataPathSetups() []iso.DataPathParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]iso.DataPathParams(nil), c.setups...)
}

// call counts a request and returns an injected failure, if any. Must be
// called with c.mu held.
func (c *Controller) call(k Call) iso.Status {
	c.calls[k]++
	st, ok := c.failures[k]
	if !ok {
		return iso.StatusSuccess
	}
	delete(c.failures, k)
	return st
}

func (c *Controller) emit(f func(h iso.EventHandler)) {
	h := c.handler
	c.dispatch(func() {
		if h != nil {
			f(h)
		}
	})
}

// CreateCig implements iso.Controller.
func (c *Controller) CreateCig(params iso.CigParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev := iso.CigCreatedEvent{CigID: params.CigID, Status: c.call(CallCreateCig)}
	if _, exists := c.cigs[params.CigID]; exists || c.stale[params.CigID] {
		ev.Status = iso.StatusCommandDisallowed
	}
	if ev.Status == iso.StatusSuccess {
		var handles []uint16
		for _, cc := range params.Cis {
			h := c.nextHandle
			c.nextHandle++
			c.cises[h] = &cis{handle: h, cigID: params.CigID, cisID: cc.CisID}
			handles = append(handles, h)
		}
		c.cigs[params.CigID] = handles
		ev.ConnHandles = handles
	}
	if c.log != nil {
		c.log.Debugf("create CIG %d: %v %v", params.CigID, ev.Status, ev.ConnHandles)
	}
	c.emit(func(h iso.EventHandler) { h.OnCigCreated(ev) })
	return nil
}

// RemoveCig implements iso.Controller.
func (c *Controller) RemoveCig(cigID uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev := iso.CigRemovedEvent{CigID: cigID, Status: c.call(CallRemoveCig)}
	handles, exists := c.cigs[cigID]
	switch {
	case ev.Status != iso.StatusSuccess:
	case c.stale[cigID]:
		delete(c.stale, cigID)
	case !exists:
		ev.Status = iso.StatusUnknownConnectionID
	default:
		for _, h := range handles {
			if c.cises[h].up {
				ev.Status = iso.StatusCommandDisallowed
			}
		}
		if ev.Status == iso.StatusSuccess {
			for _, h := range handles {
				delete(c.cises, h)
			}
			delete(c.cigs, cigID)
		}
	}
	if c.log != nil {
		c.log.Debugf("remove CIG %d: %v", cigID, ev.Status)
	}
	c.emit(func(h iso.EventHandler) { h.OnCigRemoved(ev) })
	return nil
}

// EstablishCis implements iso.Controller.
func (c *Controller) EstablishCis(links []iso.CisLink) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range links {
		if x := c.cises[l.CisHandle]; x == nil || x.up {
			c.calls[CallEstablishCis]++
			return iso.StatusCommandDisallowed
		}
	}
	status := c.call(CallEstablishCis)
	for _, l := range links {
		x := c.cises[l.CisHandle]
		ev := iso.CisEstablishedEvent{CigID: x.cigID, CisHandle: x.handle, Status: status}
		var p *Peripheral
		if status == iso.StatusSuccess {
			x.up = true
			x.acl = l.AclHandle
			p = c.peripherals[l.AclHandle]
		}
		cigID, cisID := x.cigID, x.cisID
		c.emit(func(h iso.EventHandler) {
			h.OnCisEstablished(ev)
			if p != nil {
				p.CisEstablished(cigID, cisID)
			}
		})
	}
	return nil
}

// DisconnectCis implements iso.Controller.
func (c *Controller) DisconnectCis(handle uint16, reason iso.Status) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls[CallDisconnectCis]++
	x := c.cises[handle]
	if x == nil || !x.up {
		return iso.StatusUnknownConnectionID
	}
	if c.log != nil {
		c.log.Debugf("disconnect CIS 0x%04x: %v", handle, reason)
	}
	c.down(x, iso.StatusLocalHostTerminated)
	return nil
}

// down takes a CIS down and reports it. Must be called with c.mu held.
func (c *Controller) down(x *cis, reason iso.Status) {
	x.up = false
	x.paths = 0
	ev := iso.CisDisconnectedEvent{CigID: x.cigID, CisHandle: x.handle, Reason: reason}
	p := c.peripherals[x.acl]
	cigID, cisID := x.cigID, x.cisID
	c.emit(func(h iso.EventHandler) {
		h.OnCisDisconnected(ev)
		if p != nil {
			p.CisDisconnected(cigID, cisID)
		}
	})
}

// SetupIsoDataPath implements iso.Controller.
func (c *Controller) SetupIsoDataPath(handle uint16, params iso.DataPathParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	x := c.cises[handle]
	if x == nil || !x.up {
		c.calls[CallSetupDataPath]++
		return iso.StatusUnknownConnectionID
	}
	ev := iso.DataPathEvent{CisHandle: handle, Direction: params.Direction, Status: c.call(CallSetupDataPath)}
	if ev.Status == iso.StatusSuccess && x.paths&params.Direction != 0 {
		ev.Status = iso.StatusCommandDisallowed
	}
	if ev.Status == iso.StatusSuccess {
		x.paths |= params.Direction
		c.setups = append(c.setups, params)
	}
	c.emit(func(h iso.EventHandler) { h.OnDataPathSetup(ev) })
	return nil
}

// RemoveIsoDataPath implements iso.Controller.
func (c *Controller) RemoveIsoDataPath(handle uint16, dir iso.DataPathDirection) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	x := c.cises[handle]
	if x == nil {
		c.calls[CallRemoveDataPath]++
		return iso.StatusUnknownConnectionID
	}
	ev := iso.DataPathEvent{CisHandle: handle, Direction: dir, Status: c.call(CallRemoveDataPath)}
	if ev.Status == iso.StatusSuccess {
		x.paths &^= dir
	}
	c.emit(func(h iso.EventHandler) { h.OnDataPathRemoved(ev) })
	return nil
}

// DropCis takes a CIS down without being asked, as a link loss does.
func (c *Controller) DropCis(handle uint16, reason iso.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if x := c.cises[handle]; x != nil && x.up {
		c.down(x, reason)
	}
}

// DropAcl takes down every CIS on an ACL link, detaches the peripheral and
// resets it. Attach it again to reconnect.
func (c *Controller) DropAcl(acl uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.peripherals[acl]
	delete(c.peripherals, acl)
	var handles []uint16
	for h, x := range c.cises {
		if x.up && x.acl == acl {
			handles = append(handles, h)
		}
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	for _, h := range handles {
		c.down(c.cises[h], iso.StatusConnectionTimeout)
	}
	if p != nil {
		p.Disconnect()
	}
}

var _ iso.Controller = (*Controller)(nil)
