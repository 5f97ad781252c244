package device

import (
	"github.com/backkem/leaudio/pkg/ascs"
	"github.com/backkem/leaudio/pkg/audio"
)

// Qualifies reports whether a connected device can serve an entry of a
// configuration for a context. Unknown capabilities (zero contexts) do not
// disqualify a device.
func (d *Device) Qualifies(e *audio.SetEntry, strategy audio.Strategy, ctx audio.Context) bool {
	if !d.IsConnected() || d.AseCount(e.Direction) < e.AsesPerDevice {
		return false
	}
	if avail := d.Available.Get(e.Direction); avail != audio.ContextNone && !avail.Any(ctx) {
		return false
	}
	if strategy != audio.StrategyMonoOneCisPerDevice && d.Locations.Get(e.Direction).Count() < 2 {
		return false
	}
	return true
}

// SelectConfiguration returns the first candidate the group can serve: the
// group must be large enough for it and every entry needs at least one
// connected device that qualifies. Devices that are not connected are
// counted towards the size so they can join later.
func (g *Group) SelectConfiguration(candidates []*audio.SetConfiguration, ctx audio.Context) *audio.SetConfiguration {
	for _, cfg := range candidates {
		if cfg == nil || len(cfg.Entries) == 0 || g.Size() < cfg.MaxDeviceCount() {
			continue
		}
		ok := true
		for i := range cfg.Entries {
			e := &cfg.Entries[i]
			found := false
			for _, d := range g.devices {
				if d.Qualifies(e, cfg.Strategy, ctx) {
					found = true
					break
				}
			}
			if !found {
				ok = false
				break
			}
		}
		if ok {
			return cfg
		}
	}
	return nil
}

// Activate selects ASEs on the connected devices for a configuration and
// stores the codec configuration each of them must hold. Already active ASEs
// are kept. It returns the directions in which at least one ASE is active.
func (g *Group) Activate(cfg *audio.SetConfiguration, ctx audio.Context) audio.Direction {
	for _, d := range g.devices {
		g.activateDevice(d, cfg, ctx)
	}
	return g.ActiveDirections()
}

// ActivateDevice activates one device for the configuration of a running
// stream, using only the device slots and channel locations the other
// devices leave free.
func (g *Group) ActivateDevice(d *Device, cfg *audio.SetConfiguration, ctx audio.Context) audio.Direction {
	g.activateDevice(d, cfg, ctx)
	return d.ActiveDirections()
}

func (g *Group) activateDevice(d *Device, cfg *audio.SetConfiguration, ctx audio.Context) {
	for i := range cfg.Entries {
		e := &cfg.Entries[i]
		if d.FirstActiveAse(e.Direction) != nil || !d.Qualifies(e, cfg.Strategy, ctx) {
			continue
		}
		devices, used := g.directionUsage(e.Direction)
		if devices >= e.DeviceCount {
			continue
		}

		ases := d.pickAses(e)
		if len(ases) < e.AsesPerDevice {
			continue
		}
		allocs := allocate(cfg.Strategy, d.Locations.Get(e.Direction), used, e.AsesPerDevice)
		for j, a := range ases {
			a.Active = true
			a.NeedsCodecConfig = !(a.Configured() && a.Matches(e, allocs[j]))
			a.Codec = e.Codec
			a.Config = e.Config
			a.Config.ChannelAllocation = allocs[j]
			a.TargetLatency = e.TargetLatency
			a.TargetPHY = e.TargetPHY
			a.RetransmissionNumber = e.RetransmissionNumber
			a.MaxTransportLatency = e.MaxTransportLatency
		}
	}
}

// directionUsage counts devices with active ASEs in a direction and the
// channel locations they use.
func (g *Group) directionUsage(dir audio.Direction) (int, audio.Location) {
	n := 0
	var used audio.Location
	for _, d := range g.devices {
		found := false
		for _, a := range d.ActiveAses() {
			if a.Direction == dir {
				found = true
				used |= a.Config.ChannelAllocation
			}
		}
		if found {
			n++
		}
	}
	return n, used
}

// pickAses returns AsesPerDevice inactive ASEs for an entry. ASEs already
// holding the entry's codec configuration come first so a cached
// configuration is reused.
func (d *Device) pickAses(e *audio.SetEntry) []*Ase {
	var cached, fresh []*Ase
	for _, a := range d.Ases() {
		if a.Active || a.Direction != e.Direction {
			continue
		}
		switch {
		case a.State != ascs.StateCodecConfigured && a.State != ascs.StateQoSConfigured && a.State != ascs.StateIdle:
		case a.State != ascs.StateIdle && a.Codec == e.Codec && a.Config.SameLayout(e.Config):
			cached = append(cached, a)
		default:
			fresh = append(fresh, a)
		}
	}
	picked := append(cached, fresh...)
	if len(picked) > e.AsesPerDevice {
		picked = picked[:e.AsesPerDevice]
	}
	return picked
}

// allocate splits a device's locations across n ASEs. One channel per ASE
// prefers locations no other device uses yet; a stereo ASE takes the
// device's whole location set.
func allocate(strategy audio.Strategy, device audio.Location, used audio.Location, n int) []audio.Location {
	out := make([]audio.Location, n)
	if strategy == audio.StrategyStereoOneCisPerDevice {
		for i := range out {
			out[i] = device
		}
		return out
	}

	bits := device.Bits()
	var free []audio.Location
	for _, b := range bits {
		if used&b == 0 {
			free = append(free, b)
		}
	}
	for i := range out {
		switch {
		case i < len(free):
			out[i] = free[i]
		case len(bits) > 0:
			out[i] = bits[i%len(bits)]
		default:
			out[i] = audio.LocationMono
		}
	}
	return out
}
