package device

import (
	"github.com/pkg/errors"

	"github.com/backkem/leaudio/pkg/ascs"
	"github.com/backkem/leaudio/pkg/audio"
	"github.com/backkem/leaudio/pkg/gatt"
	"github.com/backkem/leaudio/pkg/pacs"
)

// DeviceConfig describes a discovered peer.
type DeviceConfig struct {
	// Address is the stable identity of the peer.
	Address string

	ConnID    uint16
	AclHandle uint16

	// Attributes is the discovered ASCS and PACS attribute table. ASEs are
	// created from the Sink ASE and Source ASE characteristics it lists.
	Attributes gatt.AttributeTable

	// AseIDs maps ASE value handles to ASE ids read from the server. ASEs
	// missing from the map are numbered from 1 in handle order.
	AseIDs map[uint16]uint8
}

// Device is one physical peer.
type Device struct {
	Address   string
	ConnID    uint16
	AclHandle uint16
	ConnState ConnState

	// ControlPoint is the ASE Control Point value handle.
	ControlPoint uint16

	Attributes gatt.AttributeTable

	Locations audio.DirectionalLocations
	Available audio.DirectionalContexts
	Supported audio.DirectionalContexts

	SinkPACs   []pacs.Record
	SourcePACs []pacs.Record

	ases []Ase
}

// NewDevice creates a connected device from its discovered attributes.
func NewDevice(config DeviceConfig) *Device {
	d := &Device{
		Address:    config.Address,
		ConnID:     config.ConnID,
		AclHandle:  config.AclHandle,
		ConnState:  ConnStateConnected,
		Attributes: config.Attributes,
	}

	if cp := d.Attributes.Find(ascs.AseControlPointUUID); len(cp) > 0 {
		d.ControlPoint = cp[0].ValueHandle
	}

	next := uint8(1)
	for _, c := range d.Attributes.Characteristics {
		var dir audio.Direction
		switch c.UUID {
		case ascs.SinkAseUUID:
			dir = audio.DirectionSink
		case ascs.SourceAseUUID:
			dir = audio.DirectionSource
		default:
			continue
		}
		id, ok := config.AseIDs[c.ValueHandle]
		if !ok {
			id = next
		}
		next = id + 1
		d.ases = append(d.ases, newAse(id, dir, c.ValueHandle, c.CCCDHandle))
	}
	return d
}

// IsConnected reports whether the ACL link is up.
func (d *Device) IsConnected() bool {
	return d.ConnState == ConnStateConnected
}

// Ases returns all ASEs in discovery order.
func (d *Device) Ases() []*Ase {
	out := make([]*Ase, len(d.ases))
	for i := range d.ases {
		out[i] = &d.ases[i]
	}
	return out
}

// AseByID returns the ASE with the given id or nil.
func (d *Device) AseByID(id uint8) *Ase {
	for i := range d.ases {
		if d.ases[i].ID == id {
			return &d.ases[i]
		}
	}
	return nil
}

// AseByHandle returns the ASE whose characteristic value handle is handle.
func (d *Device) AseByHandle(handle uint16) *Ase {
	for i := range d.ases {
		if d.ases[i].Handle == handle {
			return &d.ases[i]
		}
	}
	return nil
}

// AsesByCisHandle returns the ASEs bound to a CIS connection handle.
func (d *Device) AsesByCisHandle(handle uint16) []*Ase {
	if handle == 0 {
		return nil
	}
	var out []*Ase
	for i := range d.ases {
		if d.ases[i].CisHandle == handle {
			out = append(out, &d.ases[i])
		}
	}
	return out
}

// AsesByState returns the ASEs in a state for the given directions.
func (d *Device) AsesByState(state ascs.State, dir audio.Direction) []*Ase {
	var out []*Ase
	for i := range d.ases {
		if d.ases[i].State == state && dir.Has(d.ases[i].Direction) {
			out = append(out, &d.ases[i])
		}
	}
	return out
}

// ActiveAses returns the active ASEs in discovery order.
func (d *Device) ActiveAses() []*Ase {
	var out []*Ase
	for i := range d.ases {
		if d.ases[i].Active {
			out = append(out, &d.ases[i])
		}
	}
	return out
}

// FirstActiveAse returns the first active ASE in the given directions.
func (d *Device) FirstActiveAse(dir audio.Direction) *Ase {
	return d.nextActive(0, dir)
}

// NextActiveAse returns the active ASE after a in the same direction.
func (d *Device) NextActiveAse(a *Ase) *Ase {
	for i := range d.ases {
		if &d.ases[i] == a {
			return d.nextActive(i+1, a.Direction)
		}
	}
	return nil
}

func (d *Device) nextActive(from int, dir audio.Direction) *Ase {
	for i := from; i < len(d.ases); i++ {
		if d.ases[i].Active && dir.Has(d.ases[i].Direction) {
			return &d.ases[i]
		}
	}
	return nil
}

// HasActiveAses reports whether any ASE is active.
func (d *Device) HasActiveAses() bool {
	return d.FirstActiveAse(audio.DirectionBoth) != nil
}

// ActiveDirections returns the union of directions of the active ASEs.
func (d *Device) ActiveDirections() audio.Direction {
	var dirs audio.Direction
	for i := range d.ases {
		if d.ases[i].Active {
			dirs |= d.ases[i].Direction
		}
	}
	return dirs
}

// AseCount returns the number of ASEs in a direction.
func (d *Device) AseCount(dir audio.Direction) int {
	n := 0
	for i := range d.ases {
		if dir.Has(d.ases[i].Direction) {
			n++
		}
	}
	return n
}

// Directions returns the directions the device has ASEs for.
func (d *Device) Directions() audio.Direction {
	var dirs audio.Direction
	for i := range d.ases {
		dirs |= d.ases[i].Direction
	}
	return dirs
}

// SetDisconnected marks the ACL link down and resets every ASE. A server
// forgets ASE state when the link drops.
func (d *Device) SetDisconnected() {
	d.ConnState = ConnStateDisconnected
	for i := range d.ases {
		d.ases[i].Reset()
	}
}

// SetConnected marks the ACL link up on a new connection.
func (d *Device) SetConnected(connID, aclHandle uint16) {
	d.ConnID = connID
	d.AclHandle = aclHandle
	d.ConnState = ConnStateConnected
}

// ApplyPACS updates capabilities from a PACS characteristic value. It
// returns false when handle is not a PACS characteristic of the device.
func (d *Device) ApplyPACS(handle uint16, value []byte) (bool, error) {
	c, ok := d.Attributes.Lookup(handle)
	if !ok {
		return false, nil
	}

	var err error
	switch c.UUID {
	case pacs.SinkLocationsUUID:
		d.Locations.Sink, err = pacs.DecodeLocations(value)
	case pacs.SourceLocationsUUID:
		d.Locations.Source, err = pacs.DecodeLocations(value)
	case pacs.AvailableContextsUUID:
		d.Available, err = pacs.DecodeContexts(value)
	case pacs.SupportedContextsUUID:
		d.Supported, err = pacs.DecodeContexts(value)
	case pacs.SinkPACUUID:
		d.SinkPACs, err = pacs.DecodeRecords(value)
	case pacs.SourcePACUUID:
		d.SourcePACs, err = pacs.DecodeRecords(value)
	default:
		return false, nil
	}
	if err != nil {
		return true, errors.Wrapf(err, "device %s handle 0x%04x", d.Address, handle)
	}
	return true, nil
}
