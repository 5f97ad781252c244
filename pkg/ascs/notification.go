package ascs

import (
	"github.com/pkg/errors"

	"github.com/backkem/leaudio/pkg/audio"
)

// StateParams are the additional parameters of an ASE characteristic value.
// The concrete type depends on the state: *CodecConfiguredParams,
// *QoSConfiguredParams or *StreamParams. Idle and Releasing carry none.
type StateParams interface {
	appendTo(buf []byte) ([]byte, error)
}

// CodecConfiguredParams accompany the Codec Configured state.
type CodecConfiguredParams struct {
	Preferences audio.QoSPreferences
	Codec       audio.CodecID
	Config      []byte
}

func (p *CodecConfiguredParams) appendTo(buf []byte) ([]byte, error) {
	framing := uint8(0x01)
	if p.Preferences.SupportsUnframed {
		framing = 0x00
	}
	buf = append(buf, framing, p.Preferences.PreferredPHY, p.Preferences.PreferredRetransmissionNumber)
	buf = appendU16(buf, p.Preferences.MaxTransportLatency)
	buf = appendU24(buf, p.Preferences.PresentationDelayMin)
	buf = appendU24(buf, p.Preferences.PresentationDelayMax)
	buf = appendU24(buf, p.Preferences.PreferredPresentationDelayMin)
	buf = appendU24(buf, p.Preferences.PreferredPresentationDelayMax)
	buf = p.Codec.AppendTo(buf)
	return appendLV(buf, p.Config)
}

// QoSConfiguredParams accompany the QoS Configured state.
type QoSConfiguredParams struct {
	CigID uint8
	CisID uint8
	QoS   audio.QoS
}

func (p *QoSConfiguredParams) appendTo(buf []byte) ([]byte, error) {
	buf = append(buf, p.CigID, p.CisID)
	return appendQoS(buf, p.QoS), nil
}

// StreamParams accompany the Enabling, Streaming and Disabling states.
type StreamParams struct {
	CigID    uint8
	CisID    uint8
	Metadata []byte
}

func (p *StreamParams) appendTo(buf []byte) ([]byte, error) {
	return appendLV(append(buf, p.CigID, p.CisID), p.Metadata)
}

// AseStatus is the value of a Sink ASE or Source ASE characteristic.
type AseStatus struct {
	ID     uint8
	State  State
	Params StateParams
}

// Encode returns the characteristic value. It fails when a variable
// length field does not fit its length octet.
func (s *AseStatus) Encode() ([]byte, error) {
	buf := []byte{s.ID, byte(s.State)}
	if s.Params == nil {
		return buf, nil
	}
	buf, err := s.Params.appendTo(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "ASE %d", s.ID)
	}
	return buf, nil
}

// DecodeAseStatus parses an ASE characteristic value.
func DecodeAseStatus(b []byte) (*AseStatus, error) {
	if len(b) < 2 {
		return nil, ErrTooShort
	}
	s := &AseStatus{ID: b[0], State: State(b[1])}
	params, err := DecodeStateParams(s.State, b[2:])
	if err != nil {
		return nil, errors.Wrapf(err, "ASE %d", s.ID)
	}
	s.Params = params
	return s, nil
}

// DecodeStateParams parses the additional parameters for a state.
func DecodeStateParams(state State, b []byte) (StateParams, error) {
	r := &reader{buf: b}
	var params StateParams
	switch state {
	case StateIdle, StateReleasing:
		// Servers may pad; anything beyond the header is ignored.
		return nil, nil
	case StateCodecConfigured:
		p := &CodecConfiguredParams{}
		p.Preferences.SupportsUnframed = r.u8() == 0x00
		p.Preferences.PreferredPHY = r.u8()
		p.Preferences.PreferredRetransmissionNumber = r.u8()
		p.Preferences.MaxTransportLatency = r.u16()
		p.Preferences.PresentationDelayMin = r.u24()
		p.Preferences.PresentationDelayMax = r.u24()
		p.Preferences.PreferredPresentationDelayMin = r.u24()
		p.Preferences.PreferredPresentationDelayMax = r.u24()
		if id := r.take(audio.CodecIDSize); id != nil {
			p.Codec, _ = audio.DecodeCodecID(id)
		}
		p.Config = r.bytes(int(r.u8()))
		params = p
	case StateQoSConfigured:
		p := &QoSConfiguredParams{CigID: r.u8(), CisID: r.u8()}
		p.QoS = readQoS(r)
		params = p
	case StateEnabling, StateStreaming, StateDisabling:
		p := &StreamParams{CigID: r.u8(), CisID: r.u8()}
		p.Metadata = r.bytes(int(r.u8()))
		params = p
	default:
		return nil, errors.Wrapf(ErrUnknownState, "state 0x%02x", uint8(state))
	}
	if err := r.done(); err != nil {
		return nil, errors.Wrap(err, state.String())
	}
	return params, nil
}
