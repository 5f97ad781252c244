package statemachine

import (
	"github.com/backkem/leaudio/pkg/ascs"
	"github.com/backkem/leaudio/pkg/audio"
	"github.com/backkem/leaudio/pkg/device"
	"github.com/backkem/leaudio/pkg/gatt"
	"github.com/backkem/leaudio/pkg/iso"
)

// write sends a control point command and marks its ASEs pending.
func (s *StateMachine) write(g *device.Group, d *device.Device, cmd ascs.Command) {
	op := cmd.Opcode()
	ids := cmd.AseIDs()
	for _, id := range ids {
		if a := d.AseByID(id); a != nil {
			a.Pending = op
		}
	}
	if s.log != nil {
		s.log.Debugf("group %d: %s <- %s", g.ID, d.Address, ascs.Describe(cmd))
	}

	value, err := cmd.Encode()
	if err == nil {
		err = s.config.GATT.WriteCharacteristic(d.ConnID, d.ControlPoint, value, gatt.WriteTypeWithResponse,
			func(connID, _ uint16, status gatt.Status) {
				s.onWriteDone(connID, op, ids, status)
			})
	}
	if err != nil {
		if s.log != nil {
			s.log.Warnf("group %d: %s %v write failed: %v", g.ID, d.Address, op, err)
		}
		s.failAses(g, d, op, ids)
	}
}

// onWriteDone handles the ATT result of a control point write. Success
// needs no action: progress comes with the notifications.
func (s *StateMachine) onWriteDone(connID uint16, op ascs.Opcode, ids []uint8, status gatt.Status) {
	if status == gatt.StatusSuccess {
		return
	}
	g, d := s.groups.FindByConnID(connID)
	if g == nil {
		return
	}
	if s.log != nil {
		s.log.Warnf("group %d: %s %v rejected: %v", g.ID, d.Address, op, status)
	}
	s.failAses(g, d, op, ids)
}

// failAses deactivates the ASEs still waiting on op. A Release can only
// fail on an ASE the server no longer holds, so that ASE is taken as Idle.
func (s *StateMachine) failAses(g *device.Group, d *device.Device, op ascs.Opcode, ids []uint8) {
	for _, id := range ids {
		if a := d.AseByID(id); a != nil && a.Pending == op {
			a.Pending = 0
			a.Active = false
			a.NeedsCodecConfig = false
			if op == ascs.OpcodeRelease {
				a.State = ascs.StateIdle
			}
		}
	}
	s.checkActivation(g)
	s.reconcile(g)
}

// deactivateDevice drops the device out of the current stream; reconcile
// releases its ASEs.
func (s *StateMachine) deactivateDevice(g *device.Group, d *device.Device) {
	for _, a := range d.ActiveAses() {
		a.Active = false
		a.NeedsCodecConfig = false
	}
	s.checkActivation(g)
	s.reconcile(g)
}

// checkActivation aborts a start when a configured direction has no active
// ASE left, and releases a streaming group that lost its last ASE.
func (s *StateMachine) checkActivation(g *device.Group) {
	if g.TargetState == ascs.StateIdle || g.Configuration == nil {
		return
	}
	missing := g.Configuration.Directions() &^ g.ActiveDirections()
	if reached := s.runtime(g).reached; reached == ascs.StateStreaming || reached == ascs.StateQoSConfigured {
		if g.HasActiveAses() {
			return
		}
	} else if missing == 0 {
		return
	}

	if s.log != nil {
		s.log.Warnf("group %d: no active ASEs for %v, releasing", g.ID, missing)
	}
	s.release(g, true)
}

func (s *StateMachine) createCig(g *device.Group) {
	g.GenerateCisIds(g.Configuration)
	params := g.CigParams()
	if s.log != nil {
		s.log.Debugf("group %d: create CIG %d with %d CIS", g.ID, params.CigID, len(params.Cis))
	}
	if err := s.config.Controller.CreateCig(params); err != nil {
		if s.log != nil {
			s.log.Errorf("group %d: create CIG failed: %v", g.ID, err)
		}
		s.cigFailed(g)
		return
	}
	g.CigState = device.CigStateCreating
	g.Pending.Add(device.PendingOp{Kind: device.OpCigCreate})
}

// cigFailed aborts the current start after a fatal CIG error. The active
// ASEs stay marked so the release returns them to Idle.
func (s *StateMachine) cigFailed(g *device.Group) {
	g.CigState = device.CigStateNone
	g.ClearCis()
	s.release(g, true)
}

func (s *StateMachine) removeCig(g *device.Group) {
	if s.log != nil {
		s.log.Debugf("group %d: remove CIG %d", g.ID, g.CigID)
	}
	if err := s.config.Controller.RemoveCig(g.CigID); err != nil {
		if s.log != nil {
			s.log.Warnf("group %d: remove CIG failed: %v", g.ID, err)
		}
		g.CigState = device.CigStateNone
		g.ClearCis()
		s.reconcile(g)
		return
	}
	if g.CigState != device.CigStateRecovering {
		g.CigState = device.CigStateRemoving
	}
	g.Pending.Add(device.PendingOp{Kind: device.OpCigRemove})
}

func (s *StateMachine) establishCis(g *device.Group, d *device.Device, links []iso.CisLink) {
	if s.log != nil {
		s.log.Debugf("group %d: establish %d CIS for %s", g.ID, len(links), d.Address)
	}
	if err := s.config.Controller.EstablishCis(links); err != nil {
		if s.log != nil {
			s.log.Errorf("group %d: establish CIS failed: %v", g.ID, err)
		}
		s.deactivateDevice(g, d)
		return
	}
	for _, l := range links {
		g.Pending.Add(device.PendingOp{Kind: device.OpCisEstablish, Handle: l.CisHandle})
	}
}

func (s *StateMachine) disconnectCis(g *device.Group, handle uint16) {
	if s.log != nil {
		s.log.Debugf("group %d: disconnect CIS 0x%04x", g.ID, handle)
	}
	if err := s.config.Controller.DisconnectCis(handle, iso.StatusRemoteUserTerminated); err != nil {
		if s.log != nil {
			s.log.Warnf("group %d: disconnect CIS 0x%04x failed: %v", g.ID, handle, err)
		}
		s.cisDown(g, handle)
		s.reconcile(g)
		return
	}
	g.Pending.Add(device.PendingOp{Kind: device.OpCisDisconnect, Handle: handle})
}

// cisDown returns the ASEs of a CIS to the assigned state.
func (s *StateMachine) cisDown(g *device.Group, handle uint16) {
	if _, ases := g.DeviceByCisHandle(handle); ases != nil {
		for _, a := range ases {
			if a.DataPath > device.DataPathCisAssigned {
				a.DataPath = device.DataPathCisAssigned
			}
		}
	}
}

func (s *StateMachine) dataPathID() uint8 {
	if s.config.CodecLocator.CodecLocation() == iso.CodecLocationOffload {
		return s.config.OffloadDataPathID
	}
	return iso.DataPathIDHCI
}

func (s *StateMachine) setupDataPath(g *device.Group, d *device.Device, a *device.Ase, op device.PendingOp) {
	params := iso.DataPathParams{
		Direction:  op.Direction,
		DataPathID: s.dataPathID(),
		Codec:      audio.CodecID{Format: audio.CodingFormatTransparent},
	}
	if params.DataPathID != iso.DataPathIDHCI {
		params.Codec = a.Codec
		params.CodecConfig = a.Config.Encode()
		params.ControllerDelay = a.QoS.PresentationDelay
	}
	if s.log != nil {
		s.log.Debugf("group %d: setup data path 0x%04x %v for %s ASE %d", g.ID, op.Handle, op.Direction, d.Address, a.ID)
	}
	if err := s.config.Controller.SetupIsoDataPath(op.Handle, params); err != nil {
		if s.log != nil {
			s.log.Errorf("group %d: setup data path failed: %v", g.ID, err)
		}
		s.deactivateDevice(g, d)
		return
	}
	g.Pending.Add(op)
}

func (s *StateMachine) removeDataPath(g *device.Group, handle uint16, dir iso.DataPathDirection) {
	if s.log != nil {
		s.log.Debugf("group %d: remove data path 0x%04x %v", g.ID, handle, dir)
	}
	if err := s.config.Controller.RemoveIsoDataPath(handle, dir); err != nil {
		if s.log != nil {
			s.log.Warnf("group %d: remove data path failed: %v", g.ID, err)
		}
		s.dataPathDown(g, handle, dir)
		s.reconcile(g)
		return
	}
	g.Pending.Add(device.PendingOp{Kind: device.OpDataPathRemove, Handle: handle, Direction: dir})
}

func (s *StateMachine) dataPathDown(g *device.Group, handle uint16, dir iso.DataPathDirection) {
	_, ases := g.DeviceByCisHandle(handle)
	for _, a := range ases {
		if a.DataPath == device.DataPathEstablished && dir&iso.DataPathFor(a.Direction) != 0 {
			a.DataPath = device.DataPathCisEstablished
		}
	}
}
