package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/backkem/leaudio/pkg/ascs"
	"github.com/backkem/leaudio/pkg/audio"
	"github.com/backkem/leaudio/pkg/device"
	"github.com/backkem/leaudio/pkg/gatt"
	"github.com/backkem/leaudio/pkg/iso"
	"github.com/backkem/leaudio/pkg/sim"
	"github.com/backkem/leaudio/pkg/statemachine"
)

const waitTimeout = 2 * time.Second

type recorder struct {
	statuses chan statemachine.Status
	timeouts chan int
	updates  chan int

	// onStatus runs on the callback loop before the status is recorded.
	onStatus func(statemachine.Status)
}

func newRecorder() *recorder {
	return &recorder{
		statuses: make(chan statemachine.Status, 64),
		timeouts: make(chan int, 8),
		updates:  make(chan int, 8),
	}
}

func (r *recorder) OnStatusReport(_ int, status statemachine.Status) {
	if r.onStatus != nil {
		r.onStatus(status)
	}
	r.statuses <- status
}

func (r *recorder) OnStateTransitionTimeout(groupID int)     { r.timeouts <- groupID }
func (r *recorder) OnStreamConfigurationUpdated(groupID int) { r.updates <- groupID }

type earbud struct {
	p      *sim.Peripheral
	pipe   *gatt.Pipe
	server *gatt.ServerBearer
	acl    uint16
}

type rig struct {
	t     *testing.T
	e     *Engine
	ctrl  *sim.Controller
	rec   *recorder
	buds  map[string]*earbud
	nextA uint16
}

func newRig(t *testing.T, ctrlConfig sim.ControllerConfig, configure func(*Config)) *rig {
	t.Helper()
	r := &rig{
		t:     t,
		ctrl:  sim.NewController(ctrlConfig),
		rec:   newRecorder(),
		buds:  make(map[string]*earbud),
		nextA: 0x40,
	}
	config := Config{Controller: r.ctrl, Callbacks: r.rec}
	if configure != nil {
		configure(&config)
	}
	e, err := New(config)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	r.e = e
	r.ctrl.SetHandler(e)
	if err := e.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	t.Cleanup(func() {
		e.Stop()
		r.ctrl.Close()
		for _, b := range r.buds {
			b.pipe.Close()
		}
	})
	return r
}

func (r *rig) addEarbud(groupID int, address string, loc audio.Location, sinks, sources int) *earbud {
	r.t.Helper()
	avail := audio.DirectionalContexts{
		Sink:   audio.ContextMedia | audio.ContextConversational | audio.ContextRingtone,
		Source: audio.ContextConversational,
	}
	b := &earbud{
		p: sim.NewPeripheral(sim.PeripheralConfig{
			Address:   address,
			Sinks:     sinks,
			Sources:   sources,
			Locations: loc,
			Available: avail,
			Supported: avail,
		}),
		acl: r.nextA,
	}
	r.nextA++
	r.buds[address] = b
	r.connect(groupID, address)
	return b
}

// connect opens a fresh link to an earbud.
func (r *rig) connect(groupID int, address string) {
	r.t.Helper()
	b := r.buds[address]
	b.pipe = gatt.NewPipe()
	b.server = b.p.Serve(b.pipe.ServerConn(), nil)
	r.ctrl.Attach(b.acl, b.p)

	err := r.e.Connect(PeerConfig{
		GroupID:    groupID,
		Address:    address,
		AclHandle:  b.acl,
		Conn:       b.pipe.ClientConn(),
		Attributes: b.p.Attributes(),
		Values:     b.p.ReadValues(),
	})
	if err != nil {
		r.t.Fatalf("Connect failed: %v", err)
	}
}

// drop takes an earbud's link down the way a radio loss does.
func (r *rig) drop(address string) {
	b := r.buds[address]
	b.pipe.Close()
	r.ctrl.DropAcl(b.acl)
}

func (r *rig) waitStatus(want statemachine.Status) {
	r.t.Helper()
	var seen []statemachine.Status
	deadline := time.After(waitTimeout)
	for {
		select {
		case s := <-r.rec.statuses:
			if s == want {
				return
			}
			seen = append(seen, s)
		case <-deadline:
			r.t.Fatalf("timeout waiting for %v, got %v", want, seen)
		}
	}
}

func (r *rig) waitUpdate() {
	r.t.Helper()
	select {
	case <-r.rec.updates:
	case <-time.After(waitTimeout):
		r.t.Fatal("timeout waiting for stream configuration update")
	}
}

// waitSnapshot polls a group until cond holds.
func (r *rig) waitSnapshot(groupID int, what string, cond func(GroupSnapshot) bool) GroupSnapshot {
	r.t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for {
		s := r.snapshot(groupID)
		if cond(s) {
			return s
		}
		if time.Now().After(deadline) {
			r.t.Fatalf("timeout waiting for %s, got %+v", what, s)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (r *rig) snapshot(groupID int) GroupSnapshot {
	r.t.Helper()
	s, err := r.e.Snapshot(groupID)
	if err != nil {
		r.t.Fatalf("Snapshot failed: %v", err)
	}
	return s
}

func TestNewValidates(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNoController) {
		t.Errorf("New() error = %v, want ErrNoController", err)
	}
}

func TestLifecycle(t *testing.T) {
	ctrl := sim.NewController(sim.ControllerConfig{})
	defer ctrl.Close()
	e, err := New(Config{Controller: ctrl})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if got := e.State(); got != StateInitialized {
		t.Errorf("State() = %v, want Initialized", got)
	}
	if err := e.StartStream(1, audio.ContextMedia); !errors.Is(err, ErrNotStarted) {
		t.Errorf("StartStream error = %v, want ErrNotStarted", err)
	}

	if err := e.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := e.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Start error = %v, want ErrAlreadyStarted", err)
	}
	if err := e.StartStream(1, audio.ContextMedia); !errors.Is(err, statemachine.ErrGroupNotFound) {
		t.Errorf("StartStream error = %v, want ErrGroupNotFound", err)
	}
	if err := e.Connect(PeerConfig{GroupID: 1, Address: "A"}); !errors.Is(err, ErrNoConn) {
		t.Errorf("Connect error = %v, want ErrNoConn", err)
	}

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if got := e.State(); got != StateStopped {
		t.Errorf("State() = %v, want Stopped", got)
	}
	if err := e.StopStream(1); !errors.Is(err, ErrStopped) {
		t.Errorf("StopStream error = %v, want ErrStopped", err)
	}
	if err := e.Stop(); !errors.Is(err, ErrStopped) {
		t.Errorf("Stop error = %v, want ErrStopped", err)
	}
	if err := e.Start(); !errors.Is(err, ErrStopped) {
		t.Errorf("Start error = %v, want ErrStopped", err)
	}

	// Events after Stop are dropped.
	e.OnCigRemoved(iso.CigRemovedEvent{CigID: 1})
}

func TestStreamOverGATT(t *testing.T) {
	r := newRig(t, sim.ControllerConfig{}, nil)
	r.addEarbud(1, "L", audio.LocationFrontLeft, 1, 0)
	r.addEarbud(1, "R", audio.LocationFrontRight, 1, 0)

	if err := r.e.StartStream(1, audio.ContextMedia); err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}
	r.waitStatus(statemachine.StatusStreaming)

	s := r.snapshot(1)
	if s.State != ascs.StateStreaming || s.Configuration != "DualDev_OneChanStereoSnk_48_4" {
		t.Errorf("group = %v with %s, want Streaming with DualDev_OneChanStereoSnk_48_4", s.State, s.Configuration)
	}
	if got := s.StreamingDevices(); len(got) != 2 {
		t.Errorf("streaming devices = %v, want L and R", got)
	}
	for _, d := range s.Devices {
		if st := r.buds[d.Address].p.State(1); st != ascs.StateStreaming {
			t.Errorf("%s peripheral ASE = %v, want Streaming", d.Address, st)
		}
	}
	if status, ok, err := r.e.LastStatus(1); err != nil || !ok || status != statemachine.StatusStreaming {
		t.Errorf("LastStatus = %v, %v, %v, want STREAMING", status, ok, err)
	}

	if err := r.e.SuspendStream(1); err != nil {
		t.Fatalf("SuspendStream failed: %v", err)
	}
	r.waitStatus(statemachine.StatusSuspending)
	r.waitStatus(statemachine.StatusSuspended)
	if got := r.buds["L"].p.State(1); got != ascs.StateQoSConfigured {
		t.Errorf("L peripheral ASE = %v, want QoSConfigured", got)
	}

	if err := r.e.StopStream(1); err != nil {
		t.Fatalf("StopStream failed: %v", err)
	}
	r.waitStatus(statemachine.StatusReleasing)
	r.waitStatus(statemachine.StatusIdle)
	if cigs := r.ctrl.Cigs(); len(cigs) != 0 {
		t.Errorf("CIGs left = %v, want none", cigs)
	}
}

func TestConversationalOverGATT(t *testing.T) {
	r := newRig(t, sim.ControllerConfig{}, nil)
	b := r.addEarbud(1, "A", audio.LocationFrontLeft, 1, 1)
	r.e.CCIDs().Set(audio.ContextConversational, 0x11)

	if err := r.e.StartStream(1, audio.ContextConversational); err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}
	r.waitStatus(statemachine.StatusStreaming)

	if got := b.p.CountWrites(ascs.OpcodeReceiverStartReady); got != 1 {
		t.Errorf("ReceiverStartReady writes = %d, want 1", got)
	}
	if got := b.p.State(2); got != ascs.StateStreaming {
		t.Errorf("source ASE = %v, want Streaming", got)
	}
}

func TestLinkLossAndReattach(t *testing.T) {
	r := newRig(t, sim.ControllerConfig{}, nil)
	r.addEarbud(1, "L", audio.LocationFrontLeft, 1, 0)
	r.addEarbud(1, "R", audio.LocationFrontRight, 1, 0)
	r.e.StartStream(1, audio.ContextMedia)
	r.waitStatus(statemachine.StatusStreaming)

	r.drop("R")
	r.waitUpdate()

	// The bearer closing is how the engine learns about the lost link.
	s := r.waitSnapshot(1, "R disconnected", func(s GroupSnapshot) bool {
		for _, d := range s.Devices {
			if d.Address == "R" {
				return !d.Connected
			}
		}
		return false
	})
	if s.State != ascs.StateStreaming {
		t.Errorf("group state = %v, want Streaming", s.State)
	}
	if got := s.StreamingDevices(); len(got) != 1 || got[0] != "L" {
		t.Errorf("streaming devices = %v, want [L]", got)
	}

	r.connect(1, "R")
	if err := r.e.AttachToStream(1, "R"); err != nil {
		t.Fatalf("AttachToStream failed: %v", err)
	}
	r.waitSnapshot(1, "L and R streaming", func(s GroupSnapshot) bool {
		return len(s.StreamingDevices()) == 2
	})
}

func TestConnectErrors(t *testing.T) {
	r := newRig(t, sim.ControllerConfig{}, nil)
	b := r.addEarbud(1, "A", audio.LocationFrontLeft, 1, 0)

	pipe := gatt.NewPipe()
	defer pipe.Close()
	peer := PeerConfig{GroupID: 1, Address: "A", AclHandle: b.acl, Conn: pipe.ClientConn(), Attributes: b.p.Attributes()}
	if err := r.e.Connect(peer); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("Connect error = %v, want ErrAlreadyConnected", err)
	}
	peer.GroupID = 2
	if err := r.e.Connect(peer); !errors.Is(err, ErrWrongGroup) {
		t.Errorf("Connect error = %v, want ErrWrongGroup", err)
	}
	if err := r.e.Disconnect("X"); !errors.Is(err, statemachine.ErrDeviceNotFound) {
		t.Errorf("Disconnect error = %v, want ErrDeviceNotFound", err)
	}
}

func TestDisconnectLastDevice(t *testing.T) {
	r := newRig(t, sim.ControllerConfig{}, nil)
	r.addEarbud(1, "A", audio.LocationFrontLeft, 1, 0)
	r.e.StartStream(1, audio.ContextMedia)
	r.waitStatus(statemachine.StatusStreaming)

	if err := r.e.Disconnect("A"); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	r.ctrl.DropAcl(r.buds["A"].acl)
	r.waitStatus(statemachine.StatusIdle)

	s := r.snapshot(1)
	if len(s.Devices) != 1 || s.Devices[0].Connected {
		t.Errorf("devices = %+v, want A disconnected", s.Devices)
	}
}

func TestCallbackCanCallEngine(t *testing.T) {
	r := newRig(t, sim.ControllerConfig{}, nil)
	r.addEarbud(1, "A", audio.LocationFrontLeft, 1, 0)

	stopErr := make(chan error, 1)
	r.rec.onStatus = func(s statemachine.Status) {
		if s == statemachine.StatusStreaming {
			stopErr <- r.e.StopStream(1)
		}
	}
	r.e.StartStream(1, audio.ContextMedia)
	r.waitStatus(statemachine.StatusIdle)

	select {
	case err := <-stopErr:
		if err != nil {
			t.Errorf("StopStream from callback failed: %v", err)
		}
	default:
		t.Error("callback did not run")
	}
}

func TestTransitionTimeout(t *testing.T) {
	// A controller that never answers.
	r := newRig(t, sim.ControllerConfig{Dispatch: func(func()) {}}, func(c *Config) {
		c.TransitionTimeout = 20 * time.Millisecond
	})
	r.addEarbud(1, "A", audio.LocationFrontLeft, 1, 0)

	if err := r.e.StartStream(1, audio.ContextMedia); err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}
	select {
	case id := <-r.rec.timeouts:
		if id != 1 {
			t.Errorf("timeout for group %d, want 1", id)
		}
	case <-time.After(waitTimeout):
		t.Fatal("timeout callback not called")
	}
	s := r.snapshot(1)
	if s.CigState != device.CigStateCreating {
		t.Errorf("CIG state = %v, want Creating", s.CigState)
	}
	// The ASE is codec configured and waits for the CIG.
	if s.State != ascs.StateCodecConfigured {
		t.Errorf("group state = %v, want CodecConfigured", s.State)
	}
}
