package engine

import (
	"github.com/backkem/leaudio/pkg/ascs"
	"github.com/backkem/leaudio/pkg/audio"
	"github.com/backkem/leaudio/pkg/device"
)

// AseSnapshot is the state of one ASE.
type AseSnapshot struct {
	ID        uint8
	Direction audio.Direction
	State     ascs.State
	Active    bool
	CisHandle uint16
	DataPath  device.DataPathState
	Location  audio.Location
}

// DeviceSnapshot is the state of one device.
type DeviceSnapshot struct {
	Address   string
	Connected bool
	Ases      []AseSnapshot
}

// GroupSnapshot is a copy of a group's state taken on the event loop.
type GroupSnapshot struct {
	ID          int
	State       ascs.State
	TargetState ascs.State
	CigState    device.CigState

	// Configuration names the audio-set configuration in use, if any.
	Configuration        string
	ConfigurationContext audio.Context
	MetadataContext      audio.Context

	Devices []DeviceSnapshot
}

// StreamingDevices returns the addresses of the devices with a streaming
// active ASE.
func (s GroupSnapshot) StreamingDevices() []string {
	var out []string
	for _, d := range s.Devices {
		for _, a := range d.Ases {
			if a.Active && a.State == ascs.StateStreaming {
				out = append(out, d.Address)
				break
			}
		}
	}
	return out
}

func snapshot(g *device.Group) GroupSnapshot {
	s := GroupSnapshot{
		ID:                   g.ID,
		State:                g.State,
		TargetState:          g.TargetState,
		CigState:             g.CigState,
		ConfigurationContext: g.ConfigurationContext,
		MetadataContext:      g.MetadataContext,
	}
	if g.Configuration != nil {
		s.Configuration = g.Configuration.Name
	}
	for _, d := range g.Devices() {
		ds := DeviceSnapshot{Address: d.Address, Connected: d.IsConnected()}
		for _, a := range d.Ases() {
			ds.Ases = append(ds.Ases, AseSnapshot{
				ID:        a.ID,
				Direction: a.Direction,
				State:     a.State,
				Active:    a.Active,
				CisHandle: a.CisHandle,
				DataPath:  a.DataPath,
				Location:  a.Config.ChannelAllocation,
			})
		}
		s.Devices = append(s.Devices, ds)
	}
	return s
}
