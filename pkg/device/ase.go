package device

import (
	"github.com/backkem/leaudio/pkg/ascs"
	"github.com/backkem/leaudio/pkg/audio"
)

// Ase is one audio stream endpoint on a device.
type Ase struct {
	ID         uint8
	Direction  audio.Direction
	Handle     uint16
	CCCDHandle uint16

	// State is the last state notified by the server.
	State ascs.State

	// Active marks the ASE as selected for the group's current stream.
	Active bool

	// Pending is the control point operation sent for this ASE whose state
	// notification has not arrived yet, or zero.
	Pending ascs.Opcode

	// NeedsCodecConfig is set on activation when the server's codec
	// configuration differs from the one selected.
	NeedsCodecConfig bool

	CigID     uint8
	CisID     uint8
	CisHandle uint16
	DataPath  DataPathState

	Codec         audio.CodecID
	Config        audio.CodecConfig
	TargetLatency uint8
	TargetPHY     uint8

	RetransmissionNumber uint8
	MaxTransportLatency  uint16

	// Preferences are reported by the server in the Codec Configured state.
	Preferences audio.QoSPreferences

	// QoS is the configuration acknowledged in the QoS Configured state.
	QoS audio.QoS

	// Metadata is the raw LTV metadata of the streaming states.
	Metadata []byte
}

func newAse(id uint8, dir audio.Direction, handle, cccd uint16) Ase {
	return Ase{
		ID:         id,
		Direction:  dir,
		Handle:     handle,
		CCCDHandle: cccd,
		CisID:      ascs.CisIDUnassigned,
	}
}

// IsBound reports whether a CIS id is assigned.
func (a *Ase) IsBound() bool {
	return a.CisID != ascs.CisIDUnassigned
}

// ResetCis clears the CIS binding.
func (a *Ase) ResetCis() {
	a.CisID = ascs.CisIDUnassigned
	a.CisHandle = 0
	a.DataPath = DataPathIdle
}

// Reset returns the ASE to its state at discovery.
func (a *Ase) Reset() {
	*a = newAse(a.ID, a.Direction, a.Handle, a.CCCDHandle)
}

// IsReleased reports whether the ASE is in a state reachable after release.
func (a *Ase) IsReleased() bool {
	return a.State == ascs.StateIdle || a.State == ascs.StateCodecConfigured
}

// Configured reports whether the ASE holds a codec configuration.
func (a *Ase) Configured() bool {
	switch a.State {
	case ascs.StateCodecConfigured, ascs.StateQoSConfigured,
		ascs.StateEnabling, ascs.StateStreaming, ascs.StateDisabling:
		return true
	}
	return false
}

// Matches reports whether the ASE's stored codec configuration equals the one
// an audio-set entry would write, given the channel allocation.
func (a *Ase) Matches(e *audio.SetEntry, alloc audio.Location) bool {
	want := e.Config
	want.ChannelAllocation = alloc
	return a.Codec == e.Codec && a.Config == want &&
		a.TargetLatency == e.TargetLatency && a.TargetPHY == e.TargetPHY
}
