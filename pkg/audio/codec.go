package audio

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/backkem/leaudio/pkg/ltv"
)

// Errors returned by codec configuration parsing.
var (
	// ErrCodecIDTooShort is returned when fewer than five octets are available.
	ErrCodecIDTooShort = errors.New("audio: codec id too short")

	// ErrMissingSamplingFrequency is returned when a configuration lacks the
	// mandatory sampling frequency.
	ErrMissingSamplingFrequency = errors.New("audio: sampling frequency missing")

	// ErrMissingFrameDuration is returned when a configuration lacks the
	// mandatory frame duration.
	ErrMissingFrameDuration = errors.New("audio: frame duration missing")

	// ErrMissingOctetsPerFrame is returned when a configuration lacks the
	// mandatory octets per codec frame.
	ErrMissingOctetsPerFrame = errors.New("audio: octets per codec frame missing")

	// ErrUnknownSamplingFrequency is returned for reserved sampling frequency codes.
	ErrUnknownSamplingFrequency = errors.New("audio: unknown sampling frequency")

	// ErrUnknownFrameDuration is returned for reserved frame duration codes.
	ErrUnknownFrameDuration = errors.New("audio: unknown frame duration")
)

// Codec_Specific_Configuration LTV types (Assigned Numbers 6.12.5).
const (
	ConfigTypeSamplingFrequency uint8 = 0x01
	ConfigTypeFrameDuration     uint8 = 0x02
	ConfigTypeChannelAllocation uint8 = 0x03
	ConfigTypeOctetsPerFrame    uint8 = 0x04
	ConfigTypeBlocksPerSDU      uint8 = 0x05
)

// CodecIDSize is the encoded size of a Codec_ID field.
const CodecIDSize = 5

// Coding formats (Assigned Numbers 2.11).
const (
	CodingFormatLC3         uint8 = 0x06
	CodingFormatTransparent uint8 = 0x03
	CodingFormatVendor      uint8 = 0xFF
)

// CodecID identifies a codec: a coding format plus, for vendor codecs, the
// company and vendor-defined ids.
type CodecID struct {
	Format        uint8
	CompanyID     uint16
	VendorCodecID uint16
}

// CodecLC3 is the mandatory LE Audio codec.
var CodecLC3 = CodecID{Format: CodingFormatLC3}

// AppendTo appends the five-octet wire encoding.
func (c CodecID) AppendTo(buf []byte) []byte {
	buf = append(buf, c.Format)
	buf = binary.LittleEndian.AppendUint16(buf, c.CompanyID)
	return binary.LittleEndian.AppendUint16(buf, c.VendorCodecID)
}

// DecodeCodecID parses a five-octet Codec_ID.
func DecodeCodecID(b []byte) (CodecID, error) {
	if len(b) < CodecIDSize {
		return CodecID{}, ErrCodecIDTooShort
	}
	return CodecID{
		Format:        b[0],
		CompanyID:     binary.LittleEndian.Uint16(b[1:3]),
		VendorCodecID: binary.LittleEndian.Uint16(b[3:5]),
	}, nil
}

// String returns "LC3" for LC3 and the raw triple otherwise.
func (c CodecID) String() string {
	if c == CodecLC3 {
		return "LC3"
	}
	return fmt.Sprintf("Codec(%02x:%04x:%04x)", c.Format, c.CompanyID, c.VendorCodecID)
}

// SamplingFrequency is the Sampling_Frequency configuration code.
type SamplingFrequency uint8

const (
	SamplingFrequency8000  SamplingFrequency = 0x01
	SamplingFrequency11025 SamplingFrequency = 0x02
	SamplingFrequency16000 SamplingFrequency = 0x03
	SamplingFrequency22050 SamplingFrequency = 0x04
	SamplingFrequency24000 SamplingFrequency = 0x05
	SamplingFrequency32000 SamplingFrequency = 0x06
	SamplingFrequency44100 SamplingFrequency = 0x07
	SamplingFrequency48000 SamplingFrequency = 0x08
	SamplingFrequency88200 SamplingFrequency = 0x09
	SamplingFrequency96000 SamplingFrequency = 0x0A
)

var samplingFrequencyHz = map[SamplingFrequency]uint32{
	SamplingFrequency8000:  8000,
	SamplingFrequency11025: 11025,
	SamplingFrequency16000: 16000,
	SamplingFrequency22050: 22050,
	SamplingFrequency24000: 24000,
	SamplingFrequency32000: 32000,
	SamplingFrequency44100: 44100,
	SamplingFrequency48000: 48000,
	SamplingFrequency88200: 88200,
	SamplingFrequency96000: 96000,
}

// Hz returns the frequency in hertz, or 0 for reserved codes.
func (s SamplingFrequency) Hz() uint32 {
	return samplingFrequencyHz[s]
}

// FrameDuration is the Frame_Duration configuration code.
type FrameDuration uint8

const (
	FrameDuration7500us  FrameDuration = 0x00
	FrameDuration10000us FrameDuration = 0x01
)

// Microseconds returns the duration, or 0 for reserved codes.
func (f FrameDuration) Microseconds() uint32 {
	switch f {
	case FrameDuration7500us:
		return 7500
	case FrameDuration10000us:
		return 10000
	default:
		return 0
	}
}

// CodecConfig is an LC3 codec configuration for one ASE.
type CodecConfig struct {
	SamplingFrequency SamplingFrequency
	FrameDuration     FrameDuration

	// ChannelAllocation is the set of locations carried by the ASE.
	// LocationMono means a single unallocated channel.
	ChannelAllocation Location

	OctetsPerFrame uint16

	// BlocksPerSDU is the number of codec frame blocks per SDU; 0 means the
	// field is absent and the default of one block applies.
	BlocksPerSDU uint8
}

// Blocks returns the effective number of frame blocks per SDU.
func (c CodecConfig) Blocks() int {
	if c.BlocksPerSDU == 0 {
		return 1
	}
	return int(c.BlocksPerSDU)
}

// ChannelCount returns the number of audio channels carried per frame block.
func (c CodecConfig) ChannelCount() int {
	return c.ChannelAllocation.Count()
}

// SDUInterval returns the SDU interval in microseconds.
func (c CodecConfig) SDUInterval() uint32 {
	return c.FrameDuration.Microseconds() * uint32(c.Blocks())
}

// MaxSDU returns the SDU size in octets.
func (c CodecConfig) MaxSDU() uint16 {
	return c.OctetsPerFrame * uint16(c.ChannelCount()) * uint16(c.Blocks())
}

// Encode serializes the configuration as LTV. The channel allocation is always
// written so that peers see an explicit mono allocation.
func (c CodecConfig) Encode() []byte {
	w := ltv.NewWriter()
	w.PutUint8(ConfigTypeSamplingFrequency, uint8(c.SamplingFrequency))
	w.PutUint8(ConfigTypeFrameDuration, uint8(c.FrameDuration))
	w.PutUint32(ConfigTypeChannelAllocation, uint32(c.ChannelAllocation))
	w.PutUint16(ConfigTypeOctetsPerFrame, c.OctetsPerFrame)
	if c.BlocksPerSDU != 0 {
		w.PutUint8(ConfigTypeBlocksPerSDU, c.BlocksPerSDU)
	}
	return w.Bytes()
}

// DecodeCodecConfig parses an LC3 Codec_Specific_Configuration.
func DecodeCodecConfig(b []byte) (CodecConfig, error) {
	m, err := ltv.Parse(b)
	if err != nil {
		return CodecConfig{}, err
	}

	var c CodecConfig

	freq, err := m.Uint8(ConfigTypeSamplingFrequency)
	if err != nil {
		if errors.Is(err, ltv.ErrNotFound) {
			return CodecConfig{}, ErrMissingSamplingFrequency
		}
		return CodecConfig{}, err
	}
	c.SamplingFrequency = SamplingFrequency(freq)
	if c.SamplingFrequency.Hz() == 0 {
		return CodecConfig{}, ErrUnknownSamplingFrequency
	}

	dur, err := m.Uint8(ConfigTypeFrameDuration)
	if err != nil {
		if errors.Is(err, ltv.ErrNotFound) {
			return CodecConfig{}, ErrMissingFrameDuration
		}
		return CodecConfig{}, err
	}
	c.FrameDuration = FrameDuration(dur)
	if c.FrameDuration.Microseconds() == 0 {
		return CodecConfig{}, ErrUnknownFrameDuration
	}

	if m.Has(ConfigTypeChannelAllocation) {
		alloc, err := m.Uint32(ConfigTypeChannelAllocation)
		if err != nil {
			return CodecConfig{}, err
		}
		c.ChannelAllocation = Location(alloc)
	}

	octets, err := m.Uint16(ConfigTypeOctetsPerFrame)
	if err != nil {
		if errors.Is(err, ltv.ErrNotFound) {
			return CodecConfig{}, ErrMissingOctetsPerFrame
		}
		return CodecConfig{}, err
	}
	c.OctetsPerFrame = octets

	if m.Has(ConfigTypeBlocksPerSDU) {
		blocks, err := m.Uint8(ConfigTypeBlocksPerSDU)
		if err != nil {
			return CodecConfig{}, err
		}
		c.BlocksPerSDU = blocks
	}

	return c, nil
}

// SameLayout reports whether two configurations differ at most in channel
// allocation.
func (c CodecConfig) SameLayout(o CodecConfig) bool {
	return c.SamplingFrequency == o.SamplingFrequency &&
		c.FrameDuration == o.FrameDuration &&
		c.OctetsPerFrame == o.OctetsPerFrame &&
		c.Blocks() == o.Blocks()
}

// String renders e.g. "48000Hz/10000us/120o/FrontLeft".
func (c CodecConfig) String() string {
	return fmt.Sprintf("%dHz/%dus/%do/%s",
		c.SamplingFrequency.Hz(), c.FrameDuration.Microseconds(), c.OctetsPerFrame, c.ChannelAllocation)
}
