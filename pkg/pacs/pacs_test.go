package pacs

import (
	"bytes"
	"errors"
	"testing"

	"github.com/backkem/leaudio/pkg/audio"
)

func TestDecodeContexts(t *testing.T) {
	c, err := DecodeContexts([]byte{0x06, 0x00, 0x02, 0x00})
	if err != nil {
		t.Fatalf("DecodeContexts failed: %v", err)
	}
	if c.Sink != audio.ContextConversational|audio.ContextMedia {
		t.Errorf("sink = %v", c.Sink)
	}
	if c.Source != audio.ContextConversational {
		t.Errorf("source = %v", c.Source)
	}
	if got := EncodeContexts(c); !bytes.Equal(got, []byte{0x06, 0x00, 0x02, 0x00}) {
		t.Errorf("EncodeContexts = %x", got)
	}
	if _, err := DecodeContexts([]byte{0x01}); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("short err = %v, want ErrInvalidLength", err)
	}
}

func TestDecodeLocations(t *testing.T) {
	l, err := DecodeLocations([]byte{0x03, 0x00, 0x00, 0x00})
	if err != nil {
		t.Fatalf("DecodeLocations failed: %v", err)
	}
	if l != audio.LocationStereo {
		t.Errorf("locations = %v, want stereo", l)
	}
	if got := EncodeLocations(audio.LocationFrontRight); !bytes.Equal(got, []byte{0x02, 0, 0, 0}) {
		t.Errorf("EncodeLocations = %x", got)
	}
}

func TestRecords(t *testing.T) {
	in := []Record{
		{Codec: audio.CodecLC3, Capabilities: []byte{0x03, 0x01, 0x80, 0x00}, Metadata: []byte{0x03, 0x01, 0x04, 0x00}},
		{Codec: audio.CodecID{Format: audio.CodingFormatVendor, CompanyID: 0x0059, VendorCodecID: 1}},
	}
	encoded, err := EncodeRecords(in)
	if err != nil {
		t.Fatalf("EncodeRecords failed: %v", err)
	}
	out, err := DecodeRecords(encoded)
	if err != nil {
		t.Fatalf("DecodeRecords failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].Codec != audio.CodecLC3 || !bytes.Equal(out[0].Capabilities, in[0].Capabilities) ||
		!bytes.Equal(out[0].Metadata, in[0].Metadata) {
		t.Errorf("record 0 = %+v", out[0])
	}
	if out[1].Codec != in[1].Codec || len(out[1].Capabilities) != 0 {
		t.Errorf("record 1 = %+v", out[1])
	}

	if _, err := DecodeRecords([]byte{0x01, 0x06, 0, 0, 0, 0, 0x05}); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("truncated err = %v, want ErrInvalidLength", err)
	}
}

func TestEncodeRecordsTooLong(t *testing.T) {
	in := []Record{{Codec: audio.CodecLC3, Metadata: make([]byte, 256)}}
	if _, err := EncodeRecords(in); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("EncodeRecords error = %v, want ErrInvalidLength", err)
	}
}
