package ascs

import (
	"bytes"
	"errors"
	"testing"

	"github.com/backkem/leaudio/pkg/audio"
)

type encoder interface {
	Encode() ([]byte, error)
}

func encode(t *testing.T, e encoder) []byte {
	t.Helper()
	b, err := e.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return b
}

func TestEncodeLengthOverflow(t *testing.T) {
	long := make([]byte, 256)
	tests := []struct {
		name string
		e    encoder
		want error
	}{
		{"ConfigCodec", &ConfigCodec{Ases: []CodecConfiguration{{AseID: 1, Codec: audio.CodecLC3, Config: long}}}, ErrValueRange},
		{"Enable", NewEnable(AseMetadata{AseID: 1, Metadata: long}), ErrValueRange},
		{"Release", NewRelease(make([]uint8, 256)...), ErrValueRange},
		{"NoAses", NewDisable(), ErrNoAses},
		{"CodecConfigured", &AseStatus{ID: 1, State: StateCodecConfigured, Params: &CodecConfiguredParams{Codec: audio.CodecLC3, Config: long}}, ErrValueRange},
		{"Streaming", &AseStatus{ID: 1, State: StateStreaming, Params: &StreamParams{Metadata: long}}, ErrValueRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.e.Encode(); !errors.Is(err, tt.want) {
				t.Errorf("Encode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestConfigQoSEncode(t *testing.T) {
	cmd := &ConfigQoS{Ases: []QoSConfiguration{{
		AseID: 1,
		CigID: 0,
		CisID: 2,
		QoS: audio.QoS{
			SDUInterval:          10000,
			Framing:              audio.FramingUnframed,
			PHY:                  audio.PHY2M,
			MaxSDU:               100,
			RetransmissionNumber: 5,
			MaxTransportLatency:  20,
			PresentationDelay:    40000,
		},
	}}}

	want := []byte{
		0x02, 0x01,
		0x01, 0x00, 0x02,
		0x10, 0x27, 0x00,
		0x00, 0x02,
		0x64, 0x00,
		0x05,
		0x14, 0x00,
		0x40, 0x9C, 0x00,
	}
	if got := encode(t, cmd); !bytes.Equal(got, want) {
		t.Errorf("Encode() = %x, want %x", got, want)
	}

	decoded, err := DecodeCommand(want)
	if err != nil {
		t.Fatalf("DecodeCommand failed: %v", err)
	}
	qos, ok := decoded.(*ConfigQoS)
	if !ok {
		t.Fatalf("decoded type = %T, want *ConfigQoS", decoded)
	}
	if qos.Ases[0] != cmd.Ases[0] {
		t.Errorf("decoded = %+v, want %+v", qos.Ases[0], cmd.Ases[0])
	}
}

func TestConfigCodecDecode(t *testing.T) {
	cfg := audio.Preset48_4
	cfg.ChannelAllocation = audio.LocationFrontLeft
	cmd := &ConfigCodec{Ases: []CodecConfiguration{
		{AseID: 1, TargetLatency: audio.TargetLatencyHighReliability, TargetPHY: audio.PHY2M, Codec: audio.CodecLC3, Config: cfg.Encode()},
		{AseID: 2, TargetLatency: audio.TargetLatencyLow, TargetPHY: audio.PHY1M, Codec: audio.CodecLC3},
	}}

	decoded, err := DecodeCommand(encode(t, cmd))
	if err != nil {
		t.Fatalf("DecodeCommand failed: %v", err)
	}
	cc := decoded.(*ConfigCodec)
	if len(cc.Ases) != 2 {
		t.Fatalf("len(Ases) = %d, want 2", len(cc.Ases))
	}
	got, err := audio.DecodeCodecConfig(cc.Ases[0].Config)
	if err != nil {
		t.Fatalf("DecodeCodecConfig failed: %v", err)
	}
	if got != cfg {
		t.Errorf("config = %v, want %v", got, cfg)
	}
	if cc.Ases[1].TargetPHY != audio.PHY1M || len(cc.Ases[1].Config) != 0 {
		t.Errorf("second ASE = %+v", cc.Ases[1])
	}
}

func TestIDCommands(t *testing.T) {
	tests := []struct {
		cmd  *IDCommand
		want []byte
	}{
		{NewReceiverStartReady(4), []byte{0x04, 0x01, 0x04}},
		{NewDisable(1, 2), []byte{0x05, 0x02, 0x01, 0x02}},
		{NewReceiverStopReady(3), []byte{0x06, 0x01, 0x03}},
		{NewRelease(1, 2, 3), []byte{0x08, 0x03, 0x01, 0x02, 0x03}},
	}

	for _, tc := range tests {
		t.Run(tc.cmd.Opcode().String(), func(t *testing.T) {
			if got := encode(t, tc.cmd); !bytes.Equal(got, tc.want) {
				t.Errorf("Encode() = %x, want %x", got, tc.want)
			}
			decoded, err := DecodeCommand(tc.want)
			if err != nil {
				t.Fatalf("DecodeCommand failed: %v", err)
			}
			if !bytes.Equal(decoded.AseIDs(), tc.cmd.IDs) {
				t.Errorf("AseIDs() = %v, want %v", decoded.AseIDs(), tc.cmd.IDs)
			}
		})
	}
}

func TestDecodeCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTooShort},
		{"reserved opcode", []byte{0x09, 0x01, 0x01}, ErrUnknownOpcode},
		{"no ases", []byte{0x08, 0x00}, ErrNoAses},
		{"truncated id list", []byte{0x08, 0x02, 0x01}, ErrTooShort},
		{"trailing", []byte{0x08, 0x01, 0x01, 0x02}, ErrTrailingBytes},
		{"metadata past end", []byte{0x03, 0x01, 0x01, 0x04, 0x03, 0x02}, ErrTooShort},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeCommand(tc.data)
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestEnableMetadata(t *testing.T) {
	md := NewMetadata(audio.ContextMedia, []uint8{7})
	cmd := NewEnable(AseMetadata{AseID: 3, Metadata: md.Encode()})

	want := []byte{
		0x03, 0x01,
		0x03, 0x07,
		0x03, 0x02, 0x04, 0x00,
		0x02, 0x05, 0x07,
	}
	if got := encode(t, cmd); !bytes.Equal(got, want) {
		t.Fatalf("Encode() = %x, want %x", got, want)
	}

	decoded, err := DecodeCommand(want)
	if err != nil {
		t.Fatalf("DecodeCommand failed: %v", err)
	}
	mc := decoded.(*MetadataCommand)
	got, err := DecodeMetadata(mc.Ases[0].Metadata)
	if err != nil {
		t.Fatalf("DecodeMetadata failed: %v", err)
	}
	if !got.Equal(md) {
		t.Errorf("metadata = %+v, want %+v", got, md)
	}
}

func TestMetadataKeepsUnknownTypes(t *testing.T) {
	data := []byte{0x03, 0x02, 0x02, 0x00, 0x04, 0x04, 'e', 'n', 'g'}
	m, err := DecodeMetadata(data)
	if err != nil {
		t.Fatalf("DecodeMetadata failed: %v", err)
	}
	if m.StreamingContexts != audio.ContextConversational {
		t.Errorf("contexts = %v, want Conversational", m.StreamingContexts)
	}
	if string(m.Other.Bytes(MetadataLanguage)) != "eng" {
		t.Errorf("language = %q, want eng", m.Other.Bytes(MetadataLanguage))
	}
	if got := m.Encode(); !bytes.Equal(got, data) {
		t.Errorf("Encode() = %x, want %x", got, data)
	}
}

func TestControlPointResponse(t *testing.T) {
	data := []byte{0x01, 0x02, 0x01, 0x00, 0x00, 0x02, 0x08, 0x02}
	resp, err := DecodeControlPointResponse(data)
	if err != nil {
		t.Fatalf("DecodeControlPointResponse failed: %v", err)
	}
	if resp.Op != OpcodeConfigCodec || len(resp.Results) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	failed := resp.Failed()
	if len(failed) != 1 || failed[0].AseID != 2 || failed[0].Code != ResponseRejectedParameter ||
		failed[0].Reason != ReasonCodecConfiguration {
		t.Errorf("Failed() = %+v", failed)
	}
	if got := resp.Encode(); !bytes.Equal(got, data) {
		t.Errorf("Encode() = %x, want %x", got, data)
	}
}

func TestControlPointResponseInvalidLength(t *testing.T) {
	resp, err := DecodeControlPointResponse([]byte{0x03, 0xFF, 0x00, 0x02, 0x00})
	if err != nil {
		t.Fatalf("DecodeControlPointResponse failed: %v", err)
	}
	if !resp.Invalid {
		t.Error("Invalid = false, want true")
	}
	if len(resp.Results) != 1 || resp.Results[0].Code != ResponseInvalidLength {
		t.Errorf("Results = %+v", resp.Results)
	}
}

func TestAseStatusStreaming(t *testing.T) {
	data := []byte{0x03, 0x04, 0x00, 0x01, 0x04, 0x03, 0x02, 0x04, 0x00}
	s, err := DecodeAseStatus(data)
	if err != nil {
		t.Fatalf("DecodeAseStatus failed: %v", err)
	}
	if s.ID != 3 || s.State != StateStreaming {
		t.Fatalf("status = %d/%v", s.ID, s.State)
	}
	p, ok := s.Params.(*StreamParams)
	if !ok {
		t.Fatalf("params type = %T, want *StreamParams", s.Params)
	}
	if p.CigID != 0 || p.CisID != 1 {
		t.Errorf("cig/cis = %d/%d, want 0/1", p.CigID, p.CisID)
	}
	md, err := DecodeMetadata(p.Metadata)
	if err != nil {
		t.Fatalf("DecodeMetadata failed: %v", err)
	}
	if md.StreamingContexts != audio.ContextMedia {
		t.Errorf("contexts = %v, want Media", md.StreamingContexts)
	}
	if got, err := s.Encode(); err != nil || !bytes.Equal(got, data) {
		t.Errorf("Encode() = %x, want %x", got, data)
	}
}

func TestAseStatusCodecConfigured(t *testing.T) {
	cfg := audio.Preset16_2
	cfg.ChannelAllocation = audio.LocationFrontRight
	in := &AseStatus{
		ID:    1,
		State: StateCodecConfigured,
		Params: &CodecConfiguredParams{
			Preferences: audio.QoSPreferences{
				SupportsUnframed:              true,
				PreferredPHY:                  audio.PHY2M,
				PreferredRetransmissionNumber: 2,
				MaxTransportLatency:           10,
				PresentationDelayMin:          20000,
				PresentationDelayMax:          40000,
				PreferredPresentationDelayMin: 20000,
				PreferredPresentationDelayMax: 40000,
			},
			Codec:  audio.CodecLC3,
			Config: cfg.Encode(),
		},
	}

	out, err := DecodeAseStatus(encode(t, in))
	if err != nil {
		t.Fatalf("DecodeAseStatus failed: %v", err)
	}
	p := out.Params.(*CodecConfiguredParams)
	want := in.Params.(*CodecConfiguredParams)
	if p.Preferences != want.Preferences || p.Codec != want.Codec || !bytes.Equal(p.Config, want.Config) {
		t.Errorf("params = %+v, want %+v", p, want)
	}
}

func TestAseStatusQoSConfigured(t *testing.T) {
	in := &AseStatus{
		ID:    2,
		State: StateQoSConfigured,
		Params: &QoSConfiguredParams{
			CigID: 1,
			CisID: 3,
			QoS:   audio.QoS{SDUInterval: 7500, Framing: audio.FramingFramed, PHY: audio.PHY1M, MaxSDU: 60},
		},
	}
	out, err := DecodeAseStatus(encode(t, in))
	if err != nil {
		t.Fatalf("DecodeAseStatus failed: %v", err)
	}
	if *out.Params.(*QoSConfiguredParams) != *in.Params.(*QoSConfiguredParams) {
		t.Errorf("params = %+v, want %+v", out.Params, in.Params)
	}
}

func TestAseStatusErrors(t *testing.T) {
	if _, err := DecodeAseStatus([]byte{0x01}); !errors.Is(err, ErrTooShort) {
		t.Errorf("short: err = %v, want ErrTooShort", err)
	}
	if _, err := DecodeAseStatus([]byte{0x01, 0x07}); !errors.Is(err, ErrUnknownState) {
		t.Errorf("reserved state: err = %v, want ErrUnknownState", err)
	}
	if _, err := DecodeAseStatus([]byte{0x01, 0x02, 0x00}); !errors.Is(err, ErrTooShort) {
		t.Errorf("truncated qos: err = %v, want ErrTooShort", err)
	}

	s, err := DecodeAseStatus([]byte{0x05, 0x00})
	if err != nil || s.State != StateIdle || s.Params != nil {
		t.Errorf("idle = %+v, %v", s, err)
	}
}
