package device

import (
	"errors"
	"testing"

	"github.com/backkem/leaudio/pkg/ascs"
	"github.com/backkem/leaudio/pkg/audio"
)

func conversationalGroup(t *testing.T) (*Group, *Device, *Device) {
	t.Helper()
	left := testDevice("aa", 1, 1, 1, audio.LocationFrontLeft)
	right := testDevice("bb", 2, 1, 1, audio.LocationFrontRight)
	g := testGroup(t, left, right)
	cfg := configuration(t, audio.ContextConversational, "DualDev_OneChanStereoSnk_OneChanMonoSrc_16_2")
	g.Configuration = cfg
	g.Activate(cfg, audio.ContextConversational)
	return g, left, right
}

func TestGenerateCisIds(t *testing.T) {
	g, _, _ := conversationalGroup(t)
	g.GenerateCisIds(g.Configuration)

	cis := g.Cis()
	want := []CisType{CisTypeBidirectional, CisTypeSink}
	if len(cis) != len(want) {
		t.Fatalf("CIS count = %d, want %d", len(cis), len(want))
	}
	for i, c := range cis {
		if c.ID != uint8(i) || c.Type != want[i] {
			t.Errorf("CIS %d = {%d %v}, want {%d %v}", i, c.ID, c.Type, i, want[i])
		}
	}

	// A second call keeps the table.
	g.GenerateCisIds(configuration(t, audio.ContextMedia, "DualDev_OneChanStereoSnk_48_4"))
	if len(g.Cis()) != 2 {
		t.Errorf("GenerateCisIds regenerated the table")
	}
}

func TestCisHandleRoundTrip(t *testing.T) {
	g, left, right := conversationalGroup(t)
	g.GenerateCisIds(g.Configuration)

	handles := []uint16{0x60, 0x61}
	if err := g.AssignCisConnHandles(handles); err != nil {
		t.Fatalf("AssignCisConnHandles failed: %v", err)
	}
	for _, d := range []*Device{left, right} {
		if err := g.AssignCisIds(d); err != nil {
			t.Fatalf("AssignCisIds(%s) failed: %v", d.Address, err)
		}
		g.AssignCisConnHandlesToAses(d)
	}

	for _, a := range g.ActiveAses() {
		if a.CisHandle == 0 {
			t.Errorf("ASE %d has no CIS handle", a.ID)
			continue
		}
		if a.CisHandle != handles[a.CisID] {
			t.Errorf("ASE %d handle = 0x%04x, want 0x%04x", a.ID, a.CisHandle, handles[a.CisID])
		}
		if a.DataPath != DataPathCisAssigned {
			t.Errorf("ASE %d data path = %v, want %v", a.ID, a.DataPath, DataPathCisAssigned)
		}
	}

	if !g.IsCisBidirectional(left, 0x60) {
		t.Error("left device does not share the bidirectional CIS")
	}
	if g.IsCisBidirectional(right, 0x61) {
		t.Error("right device reported bidirectional")
	}
	if err := g.CheckInvariants(); err != nil {
		t.Errorf("CheckInvariants failed: %v", err)
	}

	if err := g.AssignCisConnHandles([]uint16{1}); !errors.Is(err, ErrHandleCount) {
		t.Errorf("AssignCisConnHandles short = %v, want ErrHandleCount", err)
	}
}

func TestUnassignCis(t *testing.T) {
	g, left, right := conversationalGroup(t)
	g.GenerateCisIds(g.Configuration)
	if err := g.AssignCisConnHandles([]uint16{0x60, 0x61}); err != nil {
		t.Fatalf("AssignCisConnHandles failed: %v", err)
	}
	for _, d := range []*Device{left, right} {
		if err := g.AssignCisIds(d); err != nil {
			t.Fatalf("AssignCisIds failed: %v", err)
		}
	}

	g.UnassignCis(right)
	for _, a := range right.Ases() {
		if a.IsBound() {
			t.Errorf("right ASE %d still bound", a.ID)
		}
	}
	for _, a := range left.ActiveAses() {
		if !a.IsBound() || a.CisHandle != 0x60 {
			t.Errorf("left ASE %d lost its binding", a.ID)
		}
	}
	if c := g.CisByID(1); c == nil || c.Address != "" || c.Handle != 0x61 {
		t.Errorf("sink slot after UnassignCis = %+v, want free with handle", c)
	}

	// The freed slot is reused on rejoin.
	if err := g.AssignCisIds(right); err != nil {
		t.Fatalf("AssignCisIds rejoin failed: %v", err)
	}
	if a := right.FirstActiveAse(audio.DirectionSink); a.CisID != 1 {
		t.Errorf("rejoined CIS id = %d, want 1", a.CisID)
	}
}

func TestUnbindAse(t *testing.T) {
	g, left, _ := conversationalGroup(t)
	g.GenerateCisIds(g.Configuration)
	if err := g.AssignCisIds(left); err != nil {
		t.Fatalf("AssignCisIds failed: %v", err)
	}

	sink := left.FirstActiveAse(audio.DirectionSink)
	source := left.FirstActiveAse(audio.DirectionSource)
	g.UnbindAse(left, source)
	if c := g.CisByID(sink.CisID); c.Address != "aa" {
		t.Errorf("slot freed while sink still bound")
	}
	g.UnbindAse(left, sink)
	if c := g.CisByID(0); c.Address != "" {
		t.Errorf("slot owner = %q after unbinding both ASEs", c.Address)
	}
}

func TestAssignCisIdsNoFreeSlot(t *testing.T) {
	g, left, right := conversationalGroup(t)
	g.GenerateCisIds(g.Configuration)
	if err := g.AssignCisIds(left); err != nil {
		t.Fatalf("AssignCisIds failed: %v", err)
	}
	if err := g.AssignCisIds(right); err != nil {
		t.Fatalf("AssignCisIds failed: %v", err)
	}

	extra := testDevice("cc", 3, 1, 0, audio.LocationFrontLeft)
	if err := g.AddDevice(extra); err != nil {
		t.Fatalf("AddDevice failed: %v", err)
	}
	extra.Ases()[0].Active = true
	if err := g.AssignCisIds(extra); !errors.Is(err, ErrNoFreeCis) {
		t.Errorf("AssignCisIds = %v, want ErrNoFreeCis", err)
	}
}

func TestCheckInvariantsStreaming(t *testing.T) {
	g, left, right := conversationalGroup(t)
	g.GenerateCisIds(g.Configuration)
	if err := g.AssignCisConnHandles([]uint16{0x60, 0x61}); err != nil {
		t.Fatalf("AssignCisConnHandles failed: %v", err)
	}
	for _, d := range []*Device{left, right} {
		if err := g.AssignCisIds(d); err != nil {
			t.Fatalf("AssignCisIds failed: %v", err)
		}
	}
	g.State, g.TargetState = ascs.StateStreaming, ascs.StateStreaming

	if err := g.CheckInvariants(); !errors.Is(err, ErrInvariant) {
		t.Fatalf("CheckInvariants = %v, want ErrInvariant", err)
	}
	for _, a := range g.ActiveAses() {
		a.State = ascs.StateStreaming
	}
	if err := g.CheckInvariants(); err != nil {
		t.Errorf("CheckInvariants failed: %v", err)
	}

	// Two devices on one slot.
	right.FirstActiveAse(audio.DirectionSink).CisID = 0
	if err := g.CheckInvariants(); !errors.Is(err, ErrInvariant) {
		t.Errorf("CheckInvariants = %v, want ErrInvariant", err)
	}
}

func TestUpdateStreamConfiguration(t *testing.T) {
	g, left, right := conversationalGroup(t)
	g.GenerateCisIds(g.Configuration)
	if err := g.AssignCisConnHandles([]uint16{0x60, 0x61}); err != nil {
		t.Fatalf("AssignCisConnHandles failed: %v", err)
	}
	for _, d := range []*Device{left, right} {
		if err := g.AssignCisIds(d); err != nil {
			t.Fatalf("AssignCisIds failed: %v", err)
		}
	}

	if !g.UpdateStreamConfiguration() {
		t.Fatal("UpdateStreamConfiguration() = false, want true")
	}
	sink := g.Stream.Get(audio.DirectionSink)
	if sink.DeviceCount != 2 || sink.ChannelCount != 2 || sink.SampleRate != 16000 {
		t.Errorf("sink = %+v, want 2 devices, 2 channels at 16000", *sink)
	}
	if g.Stream.Source.DeviceCount != 1 || len(g.Stream.Source.Streams) != 1 {
		t.Errorf("source = %+v, want one stream", g.Stream.Source)
	}
	if g.UpdateStreamConfiguration() {
		t.Error("UpdateStreamConfiguration() reported a change twice")
	}

	for _, a := range right.ActiveAses() {
		a.Active = false
	}
	if !g.UpdateStreamConfiguration() {
		t.Error("UpdateStreamConfiguration() missed a device leaving")
	}
	if g.Stream.Sink.DeviceCount != 1 {
		t.Errorf("sink devices = %d, want 1", g.Stream.Sink.DeviceCount)
	}
}

func TestCigParams(t *testing.T) {
	g, left, _ := conversationalGroup(t)
	g.GenerateCisIds(g.Configuration)
	a := left.FirstActiveAse(audio.DirectionSink)
	a.State = ascs.StateCodecConfigured
	a.Preferences = audio.QoSPreferences{
		SupportsUnframed:     true,
		PreferredPHY:         audio.PHY2M,
		MaxTransportLatency:  8,
		PresentationDelayMin: 20000,
		PresentationDelayMax: 40000,
	}

	p := g.CigParams()
	if p.CigID != 1 || len(p.Cis) != 2 {
		t.Fatalf("CigParams() = %+v, want CIG 1 with 2 CIS", p)
	}
	if p.SDUIntervalCtoP != 10000 || p.SDUIntervalPtoC != 10000 {
		t.Errorf("SDU intervals = %d/%d, want 10000", p.SDUIntervalCtoP, p.SDUIntervalPtoC)
	}
	if p.MaxTransportLatencyCtoP != 8 {
		t.Errorf("sink latency = %d, want 8", p.MaxTransportLatencyCtoP)
	}
	if p.Cis[0].MaxSDUCtoP != 40 || p.Cis[0].MaxSDUPtoC != 40 {
		t.Errorf("bidirectional SDU = %d/%d, want 40/40", p.Cis[0].MaxSDUCtoP, p.Cis[0].MaxSDUPtoC)
	}
	if p.Cis[1].MaxSDUCtoP != 40 || p.Cis[1].MaxSDUPtoC != 0 {
		t.Errorf("sink SDU = %d/%d, want 40/0", p.Cis[1].MaxSDUCtoP, p.Cis[1].MaxSDUPtoC)
	}

	q := g.QoSFor(a)
	if q.MaxSDU != 40 || q.PresentationDelay != 20000 || q.MaxTransportLatency != 8 {
		t.Errorf("QoSFor() = %+v", q)
	}
	if q.Framing != audio.FramingUnframed {
		t.Errorf("framing = %d, want unframed", q.Framing)
	}
}

func TestGroupsTable(t *testing.T) {
	table := NewGroups()
	a := testDevice("aa", 1, 1, 0, audio.LocationFrontLeft)
	b := testDevice("bb", 2, 1, 0, audio.LocationFrontRight)

	if _, err := table.AddDevice(1, a); err != nil {
		t.Fatalf("AddDevice failed: %v", err)
	}
	if _, err := table.AddDevice(1, b); err != nil {
		t.Fatalf("AddDevice failed: %v", err)
	}
	if _, err := table.AddDevice(2, a); !errors.Is(err, ErrDuplicateDevice) {
		t.Errorf("AddDevice to second group = %v, want ErrDuplicateDevice", err)
	}
	if _, err := table.Add(1); !errors.Is(err, ErrDuplicateGroup) {
		t.Errorf("Add duplicate = %v, want ErrDuplicateGroup", err)
	}

	if g, d := table.FindByConnID(2); g == nil || d != b {
		t.Errorf("FindByConnID(2) = %v, %v", g, d)
	}
	if g := table.FindByCigID(1); g == nil || g.Size() != 2 {
		t.Errorf("FindByCigID(1) = %v", g)
	}

	if err := table.RemoveDevice("aa"); err != nil {
		t.Fatalf("RemoveDevice failed: %v", err)
	}
	if err := table.RemoveDevice("bb"); err != nil {
		t.Fatalf("RemoveDevice failed: %v", err)
	}
	if table.Count() != 0 {
		t.Errorf("Count() = %d after removing all devices, want 0", table.Count())
	}
}
