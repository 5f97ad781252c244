package statemachine

import (
	"sort"

	"github.com/backkem/leaudio/pkg/ascs"
	"github.com/backkem/leaudio/pkg/audio"
	"github.com/backkem/leaudio/pkg/device"
	"github.com/backkem/leaudio/pkg/iso"
)

// maxPasses bounds the passes of one reconcile. Each repeated pass is
// caused by a synchronous failure that deactivated something, so the bound
// is never reached in practice.
const maxPasses = 16

// reconcile moves the group towards its target state. Calls made while a
// reconcile is running, from failure handling or from a completed release
// starting a queued request, schedule another pass instead of nesting.
func (s *StateMachine) reconcile(g *device.Group) {
	rt := s.runtime(g)
	if rt.reconciling {
		rt.again = true
		return
	}
	rt.reconciling = true
	defer func() {
		rt.reconciling = false
		s.updateState(g)
	}()

	for i := 0; i < maxPasses; i++ {
		rt.again = false
		s.pass(g)
		if !rt.again {
			return
		}
	}
	if s.log != nil {
		s.log.Warnf("group %d: reconcile did not settle", g.ID)
	}
}

// updateState sets the group state from its active ASEs. It is kept when
// they disagree, so the group stays in the last state all of them reached.
func (s *StateMachine) updateState(g *device.Group) {
	if s.runtime(g).releasing {
		g.State = ascs.StateReleasing
		return
	}
	if st, ok := g.CommonState(); ok {
		g.State = st
	}
}

func (s *StateMachine) pass(g *device.Group) {
	s.teardown(g)
	if g.TargetState == ascs.StateIdle {
		s.forwardRelease(g)
		return
	}
	s.releaseStrays(g)
	s.forward(g)
}

// keepsDataPath reports whether an ASE still needs its CIS and data path.
func keepsDataPath(g *device.Group, a *device.Ase, allQoS bool) bool {
	if !a.Active {
		return false
	}
	switch a.State {
	case ascs.StateEnabling, ascs.StateStreaming:
		return true
	case ascs.StateQoSConfigured:
		return g.TargetState != ascs.StateIdle && !allQoS
	}
	return false
}

func allActiveIn(g *device.Group, state ascs.State) bool {
	for _, a := range g.ActiveAses() {
		if a.State != state {
			return false
		}
	}
	return true
}

func cisHandles(d *device.Device) []uint16 {
	seen := make(map[uint16]bool)
	var out []uint16
	for _, a := range d.Ases() {
		if a.CisHandle != 0 && !seen[a.CisHandle] {
			seen[a.CisHandle] = true
			out = append(out, a.CisHandle)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// teardown removes data paths and disconnects CISes no ASE keeps, then
// unbinds released ASEs whose CIS is down.
func (s *StateMachine) teardown(g *device.Group) {
	allQoS := allActiveIn(g, ascs.StateQoSConfigured)

	for _, d := range g.Devices() {
		for _, h := range cisHandles(d) {
			ases := d.AsesByCisHandle(h)
			var remove iso.DataPathDirection
			kept, established, connected := false, false, false
			for _, a := range ases {
				keep := keepsDataPath(g, a, allQoS)
				kept = kept || keep
				if a.DataPath == device.DataPathEstablished {
					established = true
					if !keep {
						remove |= iso.DataPathFor(a.Direction)
					}
				}
				if a.DataPath >= device.DataPathCisEstablished {
					connected = true
				}
			}

			if remove != 0 {
				if _, pending := g.Pending.Find(device.OpDataPathRemove, h); !pending {
					s.removeDataPath(g, h, remove)
				}
				continue
			}
			if kept || established || !connected || g.Pending.OnHandle(h) {
				continue
			}
			s.disconnectCis(g, h)
		}

		for _, a := range d.Ases() {
			if !a.Active && a.IsReleased() && a.Pending == 0 && a.IsBound() &&
				a.DataPath <= device.DataPathCisAssigned && !g.Pending.OnHandle(a.CisHandle) {
				g.UnbindAse(d, a)
			}
		}
	}
}

// releaseStrays releases inactive ASEs left beyond codec configuration.
func (s *StateMachine) releaseStrays(g *device.Group) {
	for _, d := range g.ConnectedDevices() {
		var ids []uint8
		for _, a := range d.Ases() {
			if a.Active || a.Pending != 0 {
				continue
			}
			switch a.State {
			case ascs.StateQoSConfigured, ascs.StateEnabling, ascs.StateStreaming, ascs.StateDisabling:
				ids = append(ids, a.ID)
			}
		}
		if len(ids) > 0 {
			s.write(g, d, ascs.NewRelease(ids...))
		}
	}
}

// forwardRelease releases every configured ASE and, once the group is
// released and its CISes are down, removes the CIG.
func (s *StateMachine) forwardRelease(g *device.Group) {
	for _, d := range g.ConnectedDevices() {
		var ids []uint8
		for _, a := range d.Ases() {
			if a.Pending != 0 {
				continue
			}
			switch a.State {
			case ascs.StateQoSConfigured, ascs.StateEnabling, ascs.StateStreaming, ascs.StateDisabling:
				ids = append(ids, a.ID)
			case ascs.StateCodecConfigured:
				if a.Active {
					ids = append(ids, a.ID)
				}
			}
		}
		if len(ids) > 0 {
			s.write(g, d, ascs.NewRelease(ids...))
		}
	}

	if !g.IsReleased() || g.Pending.Len() > 0 || s.asesBusy(g) {
		return
	}
	switch g.CigState {
	case device.CigStateCreated:
		s.removeCig(g)
	case device.CigStateNone:
		s.finishRelease(g)
	}
}

// asesBusy reports whether an ASE awaits a control point result or still
// has a CIS up.
func (s *StateMachine) asesBusy(g *device.Group) bool {
	busy := false
	g.AllAses(func(_ *device.Device, a *device.Ase) bool {
		busy = a.Pending != 0 || a.DataPath >= device.DataPathCisEstablished
		return !busy
	})
	return busy
}

func (s *StateMachine) finishRelease(g *device.Group) {
	rt := s.runtime(g)
	g.ClearCis()
	g.ClearActive()
	g.Stream = device.StreamConfiguration{}
	g.State = ascs.StateIdle
	if g.HasCachedConfiguration() {
		g.State = ascs.StateCodecConfigured
	}
	rt.reached = g.State
	rt.releasing = false
	s.cancelWatchdog(g)

	if g.PendingConfiguration && rt.pending != nil {
		req := *rt.pending
		rt.pending = nil
		if err := s.start(g, req); err == nil {
			return
		} else if s.log != nil {
			s.log.Warnf("group %d: queued request failed: %v", g.ID, err)
		}
	}
	g.PendingConfiguration = false
	rt.pending = nil

	if g.State == ascs.StateCodecConfigured {
		s.report(g, StatusConfiguredAutonomous)
	} else {
		s.report(g, StatusIdle)
	}
}

// forward issues the next requests towards Streaming, QoSConfigured or
// CodecConfigured.
func (s *StateMachine) forward(g *device.Group) {
	if !g.HasActiveAses() {
		return
	}

	for d := g.FirstActiveDevice(); d != nil; d = g.NextActiveDevice(d) {
		var cfgs []ascs.CodecConfiguration
		for _, a := range d.ActiveAses() {
			if a.NeedsCodecConfig && a.Pending == 0 {
				a.NeedsCodecConfig = false
				cfgs = append(cfgs, ascs.CodecConfiguration{
					AseID:         a.ID,
					TargetLatency: a.TargetLatency,
					TargetPHY:     a.TargetPHY,
					Codec:         a.Codec,
					Config:        a.Config.Encode(),
				})
			}
		}
		if len(cfgs) > 0 {
			s.write(g, d, &ascs.ConfigCodec{Ases: cfgs})
		}
	}

	for _, a := range g.ActiveAses() {
		if a.State == ascs.StateIdle || a.Pending == ascs.OpcodeConfigCodec || a.NeedsCodecConfig {
			return
		}
	}

	if g.TargetState == ascs.StateCodecConfigured {
		if allActiveIn(g, ascs.StateCodecConfigured) && !s.asesPending(g) {
			g.State = ascs.StateCodecConfigured
			s.runtime(g).reached = ascs.StateCodecConfigured
			s.cancelWatchdog(g)
			s.report(g, StatusConfiguredByUser)
		}
		return
	}

	switch g.CigState {
	case device.CigStateNone:
		if !g.Pending.HasKind(device.OpCigRemove) {
			s.createCig(g)
		}
		return
	case device.CigStateCreated:
	default:
		return
	}

	for d := g.FirstActiveDevice(); d != nil; d = g.NextActiveDevice(d) {
		if devicePending(d) {
			continue
		}
		if s.configureQoS(g, d) {
			continue
		}
		if g.TargetState == ascs.StateQoSConfigured {
			s.forwardSuspend(g, d)
		} else {
			s.forwardStream(g, d)
		}
	}

	s.checkCompletion(g)
}

func devicePending(d *device.Device) bool {
	for _, a := range d.Ases() {
		if a.Pending != 0 {
			return true
		}
	}
	return false
}

func (s *StateMachine) asesPending(g *device.Group) bool {
	for _, a := range g.ActiveAses() {
		if a.Pending != 0 {
			return true
		}
	}
	return false
}

// configureQoS binds the device's codec configured ASEs to CISes and writes
// Config QoS. It reports whether a write was issued.
func (s *StateMachine) configureQoS(g *device.Group, d *device.Device) bool {
	var ases []*device.Ase
	for _, a := range d.ActiveAses() {
		if a.State == ascs.StateCodecConfigured {
			ases = append(ases, a)
		}
	}
	if len(ases) == 0 {
		return false
	}

	if err := g.AssignCisIds(d); err != nil {
		if s.log != nil {
			s.log.Warnf("group %d: %v", g.ID, err)
		}
		s.deactivateDevice(g, d)
		return true
	}
	g.AssignCisConnHandlesToAses(d)

	cmd := &ascs.ConfigQoS{}
	for _, a := range ases {
		cmd.Ases = append(cmd.Ases, ascs.QoSConfiguration{
			AseID: a.ID,
			CigID: a.CigID,
			CisID: a.CisID,
			QoS:   g.QoSFor(a),
		})
	}
	s.write(g, d, cmd)
	return true
}

func (s *StateMachine) forwardSuspend(g *device.Group, d *device.Device) {
	var disable, stopReady []uint8
	for _, a := range d.ActiveAses() {
		switch a.State {
		case ascs.StateEnabling, ascs.StateStreaming:
			disable = append(disable, a.ID)
		case ascs.StateDisabling:
			if a.Direction == audio.DirectionSource && a.DataPath != device.DataPathEstablished {
				stopReady = append(stopReady, a.ID)
			}
		}
	}
	if len(disable) > 0 {
		s.write(g, d, ascs.NewDisable(disable...))
		return
	}
	if len(stopReady) > 0 {
		s.write(g, d, ascs.NewReceiverStopReady(stopReady...))
	}
}

func (s *StateMachine) forwardStream(g *device.Group, d *device.Device) {
	active := d.ActiveAses()

	var stopReady []uint8
	for _, a := range active {
		if a.State == ascs.StateDisabling && a.DataPath != device.DataPathEstablished {
			stopReady = append(stopReady, a.ID)
		}
	}
	if len(stopReady) > 0 {
		s.write(g, d, ascs.NewReceiverStopReady(stopReady...))
		return
	}

	var enable []ascs.AseMetadata
	meta := ascs.NewMetadata(g.MetadataContext, g.CCIDs).Encode()
	for _, a := range active {
		if a.State == ascs.StateQoSConfigured {
			enable = append(enable, ascs.AseMetadata{AseID: a.ID, Metadata: meta})
		}
	}
	if len(enable) > 0 {
		s.write(g, d, ascs.NewEnable(enable...))
		return
	}

	for _, a := range active {
		if a.State != ascs.StateEnabling && a.State != ascs.StateStreaming {
			return
		}
	}

	var links []iso.CisLink
	for _, h := range cisHandles(d) {
		assigned := false
		for _, a := range d.AsesByCisHandle(h) {
			if a.Active && a.DataPath == device.DataPathCisAssigned {
				assigned = true
			}
		}
		if assigned && !g.Pending.OnHandle(h) {
			links = append(links, iso.CisLink{CisHandle: h, AclHandle: d.AclHandle})
		}
	}
	if len(links) > 0 {
		s.establishCis(g, d, links)
	}

	for _, a := range active {
		if a.DataPath != device.DataPathCisEstablished {
			continue
		}
		op := device.PendingOp{Kind: device.OpDataPathSetup, Handle: a.CisHandle, Direction: iso.DataPathFor(a.Direction)}
		if g.Pending.Has(op) {
			continue
		}
		s.setupDataPath(g, d, a, op)
	}

	var startReady []uint8
	for _, a := range active {
		if a.Direction == audio.DirectionSource && a.State == ascs.StateEnabling &&
			a.DataPath == device.DataPathEstablished {
			startReady = append(startReady, a.ID)
		}
	}
	if len(startReady) > 0 {
		s.write(g, d, ascs.NewReceiverStartReady(startReady...))
	}
}

func (s *StateMachine) checkCompletion(g *device.Group) {
	if s.asesPending(g) {
		return
	}
	switch g.TargetState {
	case ascs.StateStreaming:
		for _, a := range g.ActiveAses() {
			if a.State != ascs.StateStreaming || a.DataPath != device.DataPathEstablished {
				return
			}
		}
		rt := s.runtime(g)
		wasStreaming := rt.reached == ascs.StateStreaming
		g.State = ascs.StateStreaming
		rt.reached = ascs.StateStreaming
		changed := g.UpdateStreamConfiguration()
		s.cancelWatchdog(g)
		if wasStreaming && changed && s.config.Callbacks != nil {
			s.config.Callbacks.OnStreamConfigurationUpdated(g.ID)
		}
		s.report(g, StatusStreaming)

	case ascs.StateQoSConfigured:
		if !allActiveIn(g, ascs.StateQoSConfigured) {
			return
		}
		for _, a := range g.ActiveAses() {
			if a.DataPath >= device.DataPathCisEstablished || g.Pending.OnHandle(a.CisHandle) {
				return
			}
		}
		g.State = ascs.StateQoSConfigured
		s.runtime(g).reached = ascs.StateQoSConfigured
		g.Stream = device.StreamConfiguration{}
		s.cancelWatchdog(g)
		s.report(g, StatusSuspended)
	}
}
