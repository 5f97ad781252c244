package statemachine

import (
	"github.com/backkem/leaudio/pkg/ascs"
	"github.com/backkem/leaudio/pkg/audio"
	"github.com/backkem/leaudio/pkg/device"
	"github.com/backkem/leaudio/pkg/iso"
)

var _ iso.EventHandler = (*StateMachine)(nil)

// HandleNotification processes a GATT notification from a group member:
// ASE state changes, control point responses and PACS updates.
func (s *StateMachine) HandleNotification(connID, handle uint16, value []byte) {
	g, d := s.groups.FindByConnID(connID)
	if g == nil {
		if s.log != nil {
			s.log.Debugf("notification on unknown connection %d", connID)
		}
		return
	}

	if handle == d.ControlPoint {
		s.handleControlPointResponse(g, d, value)
		return
	}
	if a := d.AseByHandle(handle); a != nil {
		s.handleAseNotification(g, d, a, value)
		return
	}

	ok, err := d.ApplyPACS(handle, value)
	if err != nil && s.log != nil {
		s.log.Warnf("group %d: %v", g.ID, err)
	}
	if ok {
		g.ReloadAudioLocations()
		g.ReloadAudioDirections()
	}
}

func (s *StateMachine) handleControlPointResponse(g *device.Group, d *device.Device, value []byte) {
	resp, err := ascs.DecodeControlPointResponse(value)
	if err != nil {
		if s.log != nil {
			s.log.Warnf("group %d: %s control point response: %v", g.ID, d.Address, err)
		}
		return
	}

	var failed []uint8
	if resp.Invalid {
		for _, a := range d.Ases() {
			if a.Pending == resp.Op {
				failed = append(failed, a.ID)
			}
		}
	}
	for _, res := range resp.Failed() {
		if s.log != nil {
			s.log.Warnf("group %d: %s %v ASE %d: %v (reason 0x%02x)",
				g.ID, d.Address, resp.Op, res.AseID, res.Code, uint8(res.Reason))
		}
		failed = append(failed, res.AseID)
	}
	if len(failed) > 0 {
		s.failAses(g, d, resp.Op, failed)
	}
}

func (s *StateMachine) handleAseNotification(g *device.Group, d *device.Device, a *device.Ase, value []byte) {
	st, err := ascs.DecodeAseStatus(value)
	if err == nil && st.ID != a.ID {
		err = ascs.ErrValueRange
	}
	if err != nil {
		if s.log != nil {
			s.log.Warnf("group %d: %s ASE %d notification: %v", g.ID, d.Address, a.ID, err)
		}
		if a.Pending != 0 {
			s.failAses(g, d, a.Pending, []uint8{a.ID})
		}
		return
	}

	switch p := st.Params.(type) {
	case *ascs.CodecConfiguredParams:
		cfg, err := audio.DecodeCodecConfig(p.Config)
		if err != nil {
			if s.log != nil {
				s.log.Warnf("group %d: %s ASE %d codec configuration: %v", g.ID, d.Address, a.ID, err)
			}
			a.State = st.State
			a.Pending = 0
			a.Active = false
			s.checkActivation(g)
			s.reconcile(g)
			return
		}
		a.Preferences = p.Preferences
		a.Codec = p.Codec
		a.Config = cfg
	case *ascs.QoSConfiguredParams:
		if a.IsBound() && (p.CigID != a.CigID || p.CisID != a.CisID) && s.log != nil {
			s.log.Warnf("group %d: %s ASE %d QoS on CIG %d CIS %d, want %d/%d",
				g.ID, d.Address, a.ID, p.CigID, p.CisID, a.CigID, a.CisID)
		}
		a.QoS = p.QoS
	case *ascs.StreamParams:
		a.Metadata = p.Metadata
	}

	prev := a.State
	a.State = st.State
	a.Pending = 0
	if s.log != nil {
		s.log.Debugf("group %d: %s ASE %d %v -> %v", g.ID, d.Address, a.ID, prev, st.State)
	}

	switch st.State {
	case ascs.StateReleasing:
		s.aseReleased(g, a)
	case ascs.StateIdle:
		if prev != ascs.StateReleasing && prev != ascs.StateIdle {
			s.aseReleased(g, a)
		}
	}
	s.reconcile(g)
}

// aseReleased folds a release into the group. A release the group did not
// ask for drops the ASE from the stream and releases the group when it was
// the last one.
func (s *StateMachine) aseReleased(g *device.Group, a *device.Ase) {
	wasActive := a.Active
	a.Active = false
	a.NeedsCodecConfig = false
	if !wasActive || g.TargetState == ascs.StateIdle {
		return
	}

	if s.log != nil {
		s.log.Infof("group %d: ASE %d released by the server", g.ID, a.ID)
	}
	if !g.HasActiveAses() {
		s.release(g, true)
		return
	}
	s.checkActivation(g)
}

// OnCigCreated implements iso.EventHandler.
func (s *StateMachine) OnCigCreated(ev iso.CigCreatedEvent) {
	g := s.groups.FindByCigID(ev.CigID)
	if g == nil || !g.Pending.Remove(device.PendingOp{Kind: device.OpCigCreate}) {
		if s.log != nil {
			s.log.Debugf("unexpected CIG %d created", ev.CigID)
		}
		return
	}
	rt := s.runtime(g)

	switch {
	case ev.Status == iso.StatusSuccess:
		if err := g.AssignCisConnHandles(ev.ConnHandles); err != nil {
			if s.log != nil {
				s.log.Errorf("group %d: %v", g.ID, err)
			}
			// The CIG exists; release removes it.
			g.CigState = device.CigStateCreated
			s.release(g, true)
			return
		}
		g.CigState = device.CigStateCreated
		if s.log != nil {
			s.log.Debugf("group %d: CIG created, handles %v", g.ID, ev.ConnHandles)
		}
		s.reconcile(g)

	case ev.Status == iso.StatusCommandDisallowed && !rt.cigRetried:
		if s.log != nil {
			s.log.Warnf("group %d: create CIG disallowed, removing stale CIG", g.ID)
		}
		rt.cigRetried = true
		g.CigState = device.CigStateRecovering
		s.removeCig(g)

	default:
		if s.log != nil {
			s.log.Errorf("group %d: create CIG failed: %v", g.ID, ev.Status)
		}
		s.cigFailed(g)
	}
}

// OnCigRemoved implements iso.EventHandler.
func (s *StateMachine) OnCigRemoved(ev iso.CigRemovedEvent) {
	g := s.groups.FindByCigID(ev.CigID)
	if g == nil || !g.Pending.Remove(device.PendingOp{Kind: device.OpCigRemove}) {
		if s.log != nil {
			s.log.Debugf("unexpected CIG %d removed", ev.CigID)
		}
		return
	}
	if ev.Status != iso.StatusSuccess && s.log != nil {
		s.log.Warnf("group %d: remove CIG: %v", g.ID, ev.Status)
	}
	g.CigState = device.CigStateNone
	g.ClearCis()
	s.reconcile(g)
}

// OnCisEstablished implements iso.EventHandler.
func (s *StateMachine) OnCisEstablished(ev iso.CisEstablishedEvent) {
	g := s.groups.FindByCisHandle(ev.CisHandle)
	if g == nil {
		if s.log != nil {
			s.log.Debugf("CIS 0x%04x established on unknown group", ev.CisHandle)
		}
		return
	}
	g.Pending.Remove(device.PendingOp{Kind: device.OpCisEstablish, Handle: ev.CisHandle})
	d, ases := g.DeviceByCisHandle(ev.CisHandle)

	if ev.Status != iso.StatusSuccess {
		if s.log != nil {
			s.log.Errorf("group %d: CIS 0x%04x failed: %v", g.ID, ev.CisHandle, ev.Status)
		}
		if d != nil {
			s.deactivateDevice(g, d)
		}
		return
	}

	if d == nil {
		// Nobody needs the CIS anymore.
		s.disconnectCis(g, ev.CisHandle)
		return
	}
	for _, a := range ases {
		if a.DataPath == device.DataPathCisAssigned {
			a.DataPath = device.DataPathCisEstablished
		}
	}
	s.reconcile(g)
}

// OnCisDisconnected implements iso.EventHandler. A disconnect nobody asked
// for drops the device's ASEs from the stream.
func (s *StateMachine) OnCisDisconnected(ev iso.CisDisconnectedEvent) {
	g := s.groups.FindByCisHandle(ev.CisHandle)
	if g == nil {
		if s.log != nil {
			s.log.Debugf("late disconnect of CIS 0x%04x", ev.CisHandle)
		}
		return
	}
	requested := g.Pending.Remove(device.PendingOp{Kind: device.OpCisDisconnect, Handle: ev.CisHandle})
	g.Pending.ClearHandle(ev.CisHandle)
	d, _ := g.DeviceByCisHandle(ev.CisHandle)
	s.cisDown(g, ev.CisHandle)

	if !requested && d != nil && d.HasActiveAses() {
		if s.log != nil {
			s.log.Warnf("group %d: CIS 0x%04x of %s lost: %v", g.ID, ev.CisHandle, d.Address, ev.Reason)
		}
		s.deactivateDevice(g, d)
		return
	}
	s.reconcile(g)
}

// OnDataPathSetup implements iso.EventHandler.
func (s *StateMachine) OnDataPathSetup(ev iso.DataPathEvent) {
	g := s.groups.FindByCisHandle(ev.CisHandle)
	op := device.PendingOp{Kind: device.OpDataPathSetup, Handle: ev.CisHandle, Direction: ev.Direction}
	if g == nil || !g.Pending.Remove(op) {
		if s.log != nil {
			s.log.Debugf("unexpected data path setup on 0x%04x", ev.CisHandle)
		}
		return
	}
	d, ases := g.DeviceByCisHandle(ev.CisHandle)
	if ev.Status != iso.StatusSuccess {
		if s.log != nil {
			s.log.Errorf("group %d: data path 0x%04x %v failed: %v", g.ID, ev.CisHandle, ev.Direction, ev.Status)
		}
		if d != nil {
			s.deactivateDevice(g, d)
		}
		return
	}
	for _, a := range ases {
		if a.DataPath == device.DataPathCisEstablished && ev.Direction&iso.DataPathFor(a.Direction) != 0 {
			a.DataPath = device.DataPathEstablished
		}
	}
	s.reconcile(g)
}

// OnDataPathRemoved implements iso.EventHandler.
func (s *StateMachine) OnDataPathRemoved(ev iso.DataPathEvent) {
	g := s.groups.FindByCisHandle(ev.CisHandle)
	op := device.PendingOp{Kind: device.OpDataPathRemove, Handle: ev.CisHandle, Direction: ev.Direction}
	if g == nil || !g.Pending.Remove(op) {
		if s.log != nil {
			s.log.Debugf("unexpected data path removal on 0x%04x", ev.CisHandle)
		}
		return
	}
	if ev.Status != iso.StatusSuccess && s.log != nil {
		s.log.Warnf("group %d: remove data path 0x%04x: %v", g.ID, ev.CisHandle, ev.Status)
	}
	s.dataPathDown(g, ev.CisHandle, ev.Direction)
	s.reconcile(g)
}
