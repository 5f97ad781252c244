package pacs

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/backkem/leaudio/pkg/audio"
	"github.com/backkem/leaudio/pkg/gatt"
)

// Assigned UUIDs for the service and its characteristics.
var (
	ServiceUUID           = gatt.UUID16(0x1850)
	SinkPACUUID           = gatt.UUID16(0x2BC9)
	SinkLocationsUUID     = gatt.UUID16(0x2BCA)
	SourcePACUUID         = gatt.UUID16(0x2BCB)
	SourceLocationsUUID   = gatt.UUID16(0x2BCC)
	AvailableContextsUUID = gatt.UUID16(0x2BCD)
	SupportedContextsUUID = gatt.UUID16(0x2BCE)
)

// ErrInvalidLength is returned when a characteristic value has the wrong size.
var ErrInvalidLength = errors.New("pacs: invalid value length")

// Record is one PAC record: a codec and its capabilities.
type Record struct {
	Codec        audio.CodecID
	Capabilities []byte
	Metadata     []byte
}

// DecodeRecords parses a Sink PAC or Source PAC value.
func DecodeRecords(b []byte) ([]Record, error) {
	if len(b) < 1 {
		return nil, ErrInvalidLength
	}
	n := int(b[0])
	off := 1
	records := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		var r Record
		codec, err := audio.DecodeCodecID(b[off:])
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidLength, "record %d", i)
		}
		r.Codec = codec
		off += audio.CodecIDSize

		if r.Capabilities, off, err = lengthPrefixed(b, off); err != nil {
			return nil, errors.Wrapf(err, "record %d capabilities", i)
		}
		if r.Metadata, off, err = lengthPrefixed(b, off); err != nil {
			return nil, errors.Wrapf(err, "record %d metadata", i)
		}
		records = append(records, r)
	}
	if off != len(b) {
		return nil, errors.Wrap(ErrInvalidLength, "trailing bytes")
	}
	return records, nil
}

// EncodeRecords is the inverse of DecodeRecords. Counts and lengths must
// fit their one-octet fields.
func EncodeRecords(records []Record) ([]byte, error) {
	if len(records) > 0xFF {
		return nil, errors.Wrapf(ErrInvalidLength, "%d records", len(records))
	}
	buf := []byte{byte(len(records))}
	for i, r := range records {
		if len(r.Capabilities) > 0xFF || len(r.Metadata) > 0xFF {
			return nil, errors.Wrapf(ErrInvalidLength, "record %d", i)
		}
		buf = r.Codec.AppendTo(buf)
		buf = append(buf, byte(len(r.Capabilities)))
		buf = append(buf, r.Capabilities...)
		buf = append(buf, byte(len(r.Metadata)))
		buf = append(buf, r.Metadata...)
	}
	return buf, nil
}

func lengthPrefixed(b []byte, off int) ([]byte, int, error) {
	if off >= len(b) {
		return nil, off, ErrInvalidLength
	}
	n := int(b[off])
	off++
	if off+n > len(b) {
		return nil, off, ErrInvalidLength
	}
	out := make([]byte, n)
	copy(out, b[off:off+n])
	return out, off + n, nil
}

// DecodeLocations parses a Sink or Source Audio Locations value.
func DecodeLocations(b []byte) (audio.Location, error) {
	if len(b) != 4 {
		return 0, ErrInvalidLength
	}
	return audio.Location(binary.LittleEndian.Uint32(b)), nil
}

// EncodeLocations is the inverse of DecodeLocations.
func EncodeLocations(l audio.Location) []byte {
	return binary.LittleEndian.AppendUint32(nil, uint32(l))
}

// DecodeContexts parses an Available or Supported Audio Contexts value: sink
// contexts followed by source contexts.
func DecodeContexts(b []byte) (audio.DirectionalContexts, error) {
	if len(b) != 4 {
		return audio.DirectionalContexts{}, ErrInvalidLength
	}
	return audio.DirectionalContexts{
		Sink:   audio.Context(binary.LittleEndian.Uint16(b[0:2])),
		Source: audio.Context(binary.LittleEndian.Uint16(b[2:4])),
	}, nil
}

// EncodeContexts is the inverse of DecodeContexts.
func EncodeContexts(c audio.DirectionalContexts) []byte {
	buf := binary.LittleEndian.AppendUint16(nil, uint16(c.Sink))
	return binary.LittleEndian.AppendUint16(buf, uint16(c.Source))
}
