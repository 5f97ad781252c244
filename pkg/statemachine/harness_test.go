package statemachine

import (
	"errors"
	"testing"
	"time"

	"github.com/backkem/leaudio/pkg/ascs"
	"github.com/backkem/leaudio/pkg/audio"
	"github.com/backkem/leaudio/pkg/ccid"
	"github.com/backkem/leaudio/pkg/device"
	"github.com/backkem/leaudio/pkg/gatt"
	"github.com/backkem/leaudio/pkg/iso"
	"github.com/backkem/leaudio/pkg/sim"
)

var errLinkDown = errors.New("link down")

type manualTimer struct {
	clock   *manualClock
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.clock.stops++
	was := !t.stopped
	t.stopped = true
	return was
}

// manualClock never fires on its own.
type manualClock struct {
	timers []*manualTimer
	stops  int
}

func (c *manualClock) AfterFunc(_ time.Duration, f func()) Timer {
	t := &manualTimer{clock: c, f: f}
	c.timers = append(c.timers, t)
	return t
}

// fireLast runs the most recently armed timer, stopped or not.
func (c *manualClock) fireLast() {
	if n := len(c.timers); n > 0 {
		c.timers[n-1].f()
	}
}

type recorder struct {
	reports  []Status
	timeouts int
	updates  int
}

func (r *recorder) OnStatusReport(_ int, status Status) { r.reports = append(r.reports, status) }
func (r *recorder) OnStateTransitionTimeout(int)        { r.timeouts++ }
func (r *recorder) OnStreamConfigurationUpdated(int)    { r.updates++ }

type aseEvent struct {
	address string
	id      uint8
	state   ascs.State
}

type peer struct {
	address string
	connID  uint16
	p       *sim.Peripheral
	d       *device.Device
}

type peerConfig struct {
	address      string
	sinks        int
	sources      int
	locations    audio.Location
	available    audio.Context
	cache        bool
	disconnected bool
}

// harness runs a state machine against simulated peripherals and a
// simulated controller on one event queue.
type harness struct {
	t      *testing.T
	queue  []func()
	groups *device.Groups
	ctrl   *sim.Controller
	clock  *manualClock
	cb     *recorder
	keeper *ccid.Keeper
	sm     *StateMachine

	peers  map[string]*peer
	links  map[uint16]*sim.Peripheral
	trace  []aseEvent
	nextID uint16

	// groupStates holds every state each group went through.
	groupStates map[int][]ascs.State
}

func newHarness(t *testing.T, configure func(*Config)) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		groups: device.NewGroups(),
		clock:  &manualClock{},
		cb:     &recorder{},
		keeper: ccid.NewKeeper(),
		peers:  make(map[string]*peer),
		links:  make(map[uint16]*sim.Peripheral),
		nextID: 1,

		groupStates: make(map[int][]ascs.State),
	}
	h.ctrl = sim.NewController(sim.ControllerConfig{Dispatch: h.post})

	config := Config{
		Groups:     h.groups,
		Controller: h.ctrl,
		GATT:       h,
		Provider:   audio.DefaultProvider(),
		CCIDs:      h.keeper,
		Callbacks:  h.cb,
		Scheduler:  h.clock,
	}
	if configure != nil {
		configure(&config)
	}
	sm, err := New(config)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	h.sm = sm
	h.ctrl.SetHandler(sm)
	return h
}

func (h *harness) post(f func()) {
	h.queue = append(h.queue, f)
}

// drain runs queued events until none are left and checks the group
// invariants after each of them.
func (h *harness) drain() {
	h.t.Helper()
	h.observe()
	for i := 0; len(h.queue) > 0; i++ {
		if i > 10000 {
			h.t.Fatal("event queue did not settle")
		}
		h.next()
	}
}

// step runs at most n queued events.
func (h *harness) step(n int) {
	h.t.Helper()
	h.observe()
	for ; n > 0 && len(h.queue) > 0; n-- {
		h.next()
	}
}

func (h *harness) next() {
	h.t.Helper()
	f := h.queue[0]
	h.queue = h.queue[1:]
	f()
	h.groups.ForEach(func(g *device.Group) bool {
		if err := g.CheckInvariants(); err != nil {
			h.t.Fatalf("CheckInvariants failed: %v", err)
		}
		return true
	})
	h.observe()
}

// observe records group state changes.
func (h *harness) observe() {
	h.groups.ForEach(func(g *device.Group) bool {
		seen := h.groupStates[g.ID]
		if len(seen) == 0 || seen[len(seen)-1] != g.State {
			h.groupStates[g.ID] = append(seen, g.State)
		}
		return true
	})
}

// WriteCharacteristic implements gatt.Client.
func (h *harness) WriteCharacteristic(connID, handle uint16, value []byte, writeType gatt.WriteType, done gatt.WriteCallback) error {
	p := h.links[connID]
	if p == nil {
		return errLinkDown
	}
	v := append([]byte(nil), value...)
	h.post(func() {
		st := p.HandleWrite(handle, v, writeType)
		if done != nil {
			done(connID, handle, st)
		}
	})
	return nil
}

func (h *harness) addPeer(groupID int, pc peerConfig) *peer {
	h.t.Helper()
	connID := h.nextID
	h.nextID++
	pr := &peer{address: pc.address, connID: connID}

	avail := audio.DirectionalContexts{Sink: pc.available, Source: pc.available}
	pr.p = sim.NewPeripheral(sim.PeripheralConfig{
		Address:          pc.address,
		Sinks:            pc.sinks,
		Sources:          pc.sources,
		Locations:        pc.locations,
		Available:        avail,
		Supported:        avail,
		CacheCodecConfig: pc.cache,
		Notify:           h.notifier(pr),
	})
	pr.d = device.NewDevice(device.DeviceConfig{
		Address:    pc.address,
		ConnID:     connID,
		AclHandle:  connID + 0x40,
		Attributes: pr.p.Attributes(),
	})
	for handle, value := range pr.p.ReadValues() {
		if _, err := pr.d.ApplyPACS(handle, value); err != nil {
			h.t.Fatalf("ApplyPACS failed: %v", err)
		}
	}
	g, err := h.groups.AddDevice(groupID, pr.d)
	if err != nil {
		h.t.Fatalf("AddDevice failed: %v", err)
	}
	h.peers[pc.address] = pr

	if pc.disconnected {
		pr.d.SetDisconnected()
	} else {
		h.links[connID] = pr.p
		h.ctrl.Attach(pr.d.AclHandle, pr.p)
	}
	g.ReloadAudioLocations()
	g.ReloadAudioDirections()
	h.observe()
	return pr
}

func (h *harness) notifier(pr *peer) func(handle uint16, value []byte) {
	return func(handle uint16, value []byte) {
		v := append([]byte(nil), value...)
		if st, err := ascs.DecodeAseStatus(v); err == nil && pr.d != nil && pr.d.AseByHandle(handle) != nil {
			h.trace = append(h.trace, aseEvent{pr.address, st.ID, st.State})
		}
		connID := pr.connID
		h.post(func() { h.sm.HandleNotification(connID, handle, v) })
	}
}

// reconnect brings a disconnected peer's link back up.
func (h *harness) reconnect(address string) {
	pr := h.peers[address]
	pr.d.SetConnected(pr.connID, pr.connID+0x40)
	h.links[pr.connID] = pr.p
	h.ctrl.Attach(pr.d.AclHandle, pr.p)
	g, _ := h.groups.FindByAddress(address)
	g.ReloadAudioLocations()
	g.ReloadAudioDirections()
}

// dropAcl takes a peer's link down. The state machine learns about it from
// the CIS events and ProcessAclDisconnected.
func (h *harness) dropAcl(address string) {
	pr := h.peers[address]
	delete(h.links, pr.connID)
	h.ctrl.DropAcl(pr.d.AclHandle)
}

func (h *harness) group(id int) *device.Group {
	h.t.Helper()
	g := h.groups.Get(id)
	if g == nil {
		h.t.Fatalf("group %d not found", id)
	}
	return g
}

// states returns the ASE states a peer notified for one ASE, in order.
func (h *harness) states(address string, id uint8) []ascs.State {
	var out []ascs.State
	for _, e := range h.trace {
		if e.address == address && e.id == id {
			out = append(out, e.state)
		}
	}
	return out
}

func (h *harness) expectReports(want ...Status) {
	h.t.Helper()
	got := h.cb.reports
	if len(got) != len(want) {
		h.t.Fatalf("reports = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			h.t.Fatalf("reports = %v, want %v", got, want)
		}
	}
}

func (h *harness) expectCalls(call sim.Call, want int) {
	h.t.Helper()
	if got := h.ctrl.Count(call); got != want {
		h.t.Errorf("%v calls = %d, want %d", call, got, want)
	}
}

func (h *harness) expectWrites(address string, op ascs.Opcode, want int) {
	h.t.Helper()
	if got := h.peers[address].p.CountWrites(op); got != want {
		h.t.Errorf("%s %v writes = %d, want %d", address, op, got, want)
	}
}

func (h *harness) expectGroupStates(id int, want ...ascs.State) {
	h.t.Helper()
	got := h.groupStates[id]
	if len(got) != len(want) {
		h.t.Fatalf("group states = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			h.t.Fatalf("group states = %v, want %v", got, want)
		}
	}
}

func (h *harness) expectState(id int, state ascs.State) {
	h.t.Helper()
	if got := h.group(id).State; got != state {
		h.t.Errorf("group state = %v, want %v", got, state)
	}
}

var offloadCodec = iso.CodecLocatorFunc(func() iso.CodecLocation { return iso.CodecLocationOffload })

var allContexts = audio.ContextMedia | audio.ContextConversational | audio.ContextRingtone
