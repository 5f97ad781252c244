package audio

// PHY bit flags used by preferred-PHY fields and QoS configuration.
const (
	PHY1M    uint8 = 0x01
	PHY2M    uint8 = 0x02
	PHYCoded uint8 = 0x04
)

// Target latency values for Config Codec (ASCS Table 5.3).
const (
	TargetLatencyLow             uint8 = 0x01
	TargetLatencyBalanced        uint8 = 0x02
	TargetLatencyHighReliability uint8 = 0x03
)

// Framing values.
const (
	FramingUnframed uint8 = 0x00
	FramingFramed   uint8 = 0x01
)

// QoS is the QoS configuration written to an ASE and echoed back by the peer.
type QoS struct {
	// SDUInterval in microseconds (3 octets on the wire).
	SDUInterval uint32

	Framing uint8
	PHY     uint8

	MaxSDU               uint16
	RetransmissionNumber uint8

	// MaxTransportLatency in milliseconds.
	MaxTransportLatency uint16

	// PresentationDelay in microseconds (3 octets on the wire).
	PresentationDelay uint32
}

// QoSPreferences are the server preferences reported in the Codec Configured state.
type QoSPreferences struct {
	// SupportsUnframed is false when the server requires framed ISOAL PDUs.
	SupportsUnframed bool

	PreferredPHY                  uint8
	PreferredRetransmissionNumber uint8
	MaxTransportLatency           uint16

	PresentationDelayMin uint32
	PresentationDelayMax uint32

	// Preferred bounds; zero means no preference.
	PreferredPresentationDelayMin uint32
	PreferredPresentationDelayMax uint32
}

// Valid reports whether the preference bounds are consistent.
func (p QoSPreferences) Valid() bool {
	if p.PresentationDelayMin > p.PresentationDelayMax {
		return false
	}
	if p.PreferredPresentationDelayMin != 0 {
		if p.PreferredPresentationDelayMin < p.PresentationDelayMin ||
			p.PreferredPresentationDelayMin > p.PresentationDelayMax {
			return false
		}
	}
	if p.PreferredPresentationDelayMax != 0 {
		if p.PreferredPresentationDelayMax > p.PresentationDelayMax ||
			p.PreferredPresentationDelayMax < p.PresentationDelayMin {
			return false
		}
	}
	return true
}

// SelectPHY picks 2M when the preference allows it, then 1M, then coded.
func SelectPHY(preferred uint8) uint8 {
	switch {
	case preferred == 0, preferred&PHY2M != 0:
		return PHY2M
	case preferred&PHY1M != 0:
		return PHY1M
	default:
		return PHYCoded
	}
}
