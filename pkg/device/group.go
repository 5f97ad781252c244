package device

import (
	"github.com/pkg/errors"

	"github.com/backkem/leaudio/pkg/ascs"
	"github.com/backkem/leaudio/pkg/audio"
)

// MaxCigID is the largest CIG id; group ids double as CIG ids.
const MaxCigID = 0xEF

// Group is a set of devices streaming together over one CIG.
type Group struct {
	ID    int
	CigID uint8

	// State is the state every active ASE has reached, or Releasing while
	// the group is released. TargetState is the state the group is being
	// driven to.
	State       ascs.State
	TargetState ascs.State

	CigState CigState

	// Configuration is the audio-set configuration of the current stream, or
	// of the cached codec configuration when the group is CodecConfigured.
	Configuration        *audio.SetConfiguration
	ConfigurationContext audio.Context
	MetadataContext      audio.Context
	CCIDs                []uint8

	// PendingConfiguration is set while the group is released to apply an
	// incompatible configuration.
	PendingConfiguration bool

	Stream StreamConfiguration

	// Aggregates recomputed by ReloadAudioLocations and ReloadAudioDirections.
	Locations  audio.DirectionalLocations
	Available  audio.DirectionalContexts
	Supported  audio.DirectionalContexts
	Directions audio.Direction

	Pending PendingOps

	devices []*Device
	cis     []Cis
}

// NewGroup creates an empty group. The group id is used as its CIG id.
func NewGroup(id int) (*Group, error) {
	if id < 0 || id > MaxCigID {
		return nil, errors.Wrapf(ErrInvalidGroupID, "%d", id)
	}
	return &Group{ID: id, CigID: uint8(id)}, nil
}

// AddDevice appends a device. Insertion order is iteration order.
func (g *Group) AddDevice(d *Device) error {
	if g.Device(d.Address) != nil {
		return errors.Wrap(ErrDuplicateDevice, d.Address)
	}
	g.devices = append(g.devices, d)
	g.ReloadAudioLocations()
	g.ReloadAudioDirections()
	return nil
}

// RemoveDevice drops a device and its CIS bindings.
func (g *Group) RemoveDevice(address string) error {
	for i, d := range g.devices {
		if d.Address == address {
			g.UnassignCis(d)
			g.devices = append(g.devices[:i], g.devices[i+1:]...)
			g.ReloadAudioLocations()
			g.ReloadAudioDirections()
			return nil
		}
	}
	return errors.Wrap(ErrDeviceNotFound, address)
}

// Devices returns the devices in insertion order.
func (g *Group) Devices() []*Device {
	return append([]*Device(nil), g.devices...)
}

// Size returns the number of devices, connected or not.
func (g *Group) Size() int {
	return len(g.devices)
}

// Device returns the device with an address or nil.
func (g *Group) Device(address string) *Device {
	for _, d := range g.devices {
		if d.Address == address {
			return d
		}
	}
	return nil
}

// DeviceByConnID returns the connected device with a connection id or nil.
func (g *Group) DeviceByConnID(connID uint16) *Device {
	for _, d := range g.devices {
		if d.IsConnected() && d.ConnID == connID {
			return d
		}
	}
	return nil
}

// DeviceByCisHandle returns the device bound to a CIS handle and its ASEs on it.
func (g *Group) DeviceByCisHandle(handle uint16) (*Device, []*Ase) {
	for _, d := range g.devices {
		if ases := d.AsesByCisHandle(handle); len(ases) > 0 {
			return d, ases
		}
	}
	return nil, nil
}

// FirstActiveDevice returns the first device with an active ASE.
func (g *Group) FirstActiveDevice() *Device {
	return g.nextActiveDevice(0)
}

// NextActiveDevice returns the next device with an active ASE after d.
func (g *Group) NextActiveDevice(d *Device) *Device {
	for i, dev := range g.devices {
		if dev == d {
			return g.nextActiveDevice(i + 1)
		}
	}
	return nil
}

func (g *Group) nextActiveDevice(from int) *Device {
	for i := from; i < len(g.devices); i++ {
		if g.devices[i].HasActiveAses() {
			return g.devices[i]
		}
	}
	return nil
}

// ConnectedDevices returns the connected devices in order.
func (g *Group) ConnectedDevices() []*Device {
	var out []*Device
	for _, d := range g.devices {
		if d.IsConnected() {
			out = append(out, d)
		}
	}
	return out
}

// ActiveAses returns every active ASE, device by device.
func (g *Group) ActiveAses() []*Ase {
	var out []*Ase
	for _, d := range g.devices {
		out = append(out, d.ActiveAses()...)
	}
	return out
}

// CommonState returns the state shared by every active ASE. It returns
// false when no ASE is active or the active ASEs disagree.
func (g *Group) CommonState() (ascs.State, bool) {
	ases := g.ActiveAses()
	if len(ases) == 0 {
		return ascs.StateIdle, false
	}
	for _, a := range ases[1:] {
		if a.State != ases[0].State {
			return ascs.StateIdle, false
		}
	}
	return ases[0].State, true
}

// HasActiveAses reports whether any ASE in the group is active.
func (g *Group) HasActiveAses() bool {
	return g.FirstActiveDevice() != nil
}

// ActiveDirections returns the union of directions with an active ASE.
func (g *Group) ActiveDirections() audio.Direction {
	var dirs audio.Direction
	for _, d := range g.devices {
		dirs |= d.ActiveDirections()
	}
	return dirs
}

// ClearActive deactivates every ASE.
func (g *Group) ClearActive() {
	for _, d := range g.devices {
		for _, a := range d.Ases() {
			a.Active = false
			a.NeedsCodecConfig = false
		}
	}
}

// AllAses calls fn for every ASE of every device until fn returns false.
func (g *Group) AllAses(fn func(d *Device, a *Ase) bool) {
	for _, d := range g.devices {
		for _, a := range d.Ases() {
			if !fn(d, a) {
				return
			}
		}
	}
}

// IsReleased reports whether every ASE is Idle or CodecConfigured.
func (g *Group) IsReleased() bool {
	released := true
	g.AllAses(func(_ *Device, a *Ase) bool {
		released = a.IsReleased()
		return released
	})
	return released
}

// HasCachedConfiguration reports whether any ASE holds a codec configuration
// that can be reused without a Config Codec round trip.
func (g *Group) HasCachedConfiguration() bool {
	cached := false
	g.AllAses(func(_ *Device, a *Ase) bool {
		cached = a.State == ascs.StateCodecConfigured
		return !cached
	})
	return cached
}

// ReloadAudioLocations recomputes the group's per-direction audio locations
// from its connected devices.
func (g *Group) ReloadAudioLocations() {
	var locs audio.DirectionalLocations
	for _, d := range g.devices {
		if !d.IsConnected() {
			continue
		}
		locs.Sink |= d.Locations.Sink
		locs.Source |= d.Locations.Source
	}
	g.Locations = locs
}

// ReloadAudioDirections recomputes the group's directions and available and
// supported contexts from its connected devices.
func (g *Group) ReloadAudioDirections() {
	var (
		dirs      audio.Direction
		available audio.DirectionalContexts
		supported audio.DirectionalContexts
	)
	for _, d := range g.devices {
		if !d.IsConnected() {
			continue
		}
		dirs |= d.Directions()
		available.Sink |= d.Available.Sink
		available.Source |= d.Available.Source
		supported.Sink |= d.Supported.Sink
		supported.Source |= d.Supported.Source
	}
	g.Directions = dirs
	g.Available = available
	g.Supported = supported
}

// AvailableContexts returns the contexts available in any direction.
func (g *Group) AvailableContexts() audio.Context {
	return g.Available.Sink | g.Available.Source
}
