package ltv

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
)

// MaxValueSize is the largest value that fits in one entry (Length is one octet
// and covers the Type octet).
const MaxValueSize = 254

// Entry is a single decoded LTV structure.
type Entry struct {
	Type  uint8
	Value []byte
}

// Map holds decoded LTV entries keyed by type. When the input carries the same
// type more than once the last occurrence wins, matching how peers are expected
// to treat duplicated fields.
type Map map[uint8][]byte

// Parse decodes a complete LTV sequence.
// Zero-length entries are skipped. Any truncated entry fails the whole parse.
func Parse(data []byte) (Map, error) {
	m := make(Map)
	err := Walk(data, func(e Entry) bool {
		m[e.Type] = e.Value
		return true
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Walk calls fn for every entry in data, in wire order, until fn returns false.
// The Value slices passed to fn alias data.
func Walk(data []byte, fn func(Entry) bool) error {
	offset := 0
	for offset < len(data) {
		length := int(data[offset])
		offset++

		if length == 0 {
			continue
		}

		if offset+length > len(data) {
			return ErrUnexpectedEOF
		}

		e := Entry{
			Type:  data[offset],
			Value: data[offset+1 : offset+length],
		}
		offset += length

		if !fn(e) {
			return nil
		}
	}
	return nil
}

// Has reports whether the type is present.
func (m Map) Has(t uint8) bool {
	_, ok := m[t]
	return ok
}

// Uint8 returns a one-octet value.
func (m Map) Uint8(t uint8) (uint8, error) {
	v, ok := m[t]
	if !ok {
		return 0, ErrNotFound
	}
	if len(v) != 1 {
		return 0, fmt.Errorf("%w: type 0x%02x len %d", ErrWrongSize, t, len(v))
	}
	return v[0], nil
}

// Uint16 returns a two-octet little-endian value.
func (m Map) Uint16(t uint8) (uint16, error) {
	v, ok := m[t]
	if !ok {
		return 0, ErrNotFound
	}
	if len(v) != 2 {
		return 0, fmt.Errorf("%w: type 0x%02x len %d", ErrWrongSize, t, len(v))
	}
	return binary.LittleEndian.Uint16(v), nil
}

// Uint32 returns a four-octet little-endian value.
func (m Map) Uint32(t uint8) (uint32, error) {
	v, ok := m[t]
	if !ok {
		return 0, ErrNotFound
	}
	if len(v) != 4 {
		return 0, fmt.Errorf("%w: type 0x%02x len %d", ErrWrongSize, t, len(v))
	}
	return binary.LittleEndian.Uint32(v), nil
}

// Bytes returns the raw value for a type, or nil.
func (m Map) Bytes(t uint8) []byte {
	return m[t]
}

// Encode serializes the map with entries sorted by type so the output is
// deterministic.
func (m Map) Encode() []byte {
	types := make([]int, 0, len(m))
	for t := range m {
		types = append(types, int(t))
	}
	sort.Ints(types)

	w := NewWriter()
	for _, t := range types {
		// Values were validated on the way in; oversize entries are dropped.
		_ = w.PutBytes(uint8(t), m[uint8(t)])
	}
	return w.Bytes()
}

// String renders the map for logs.
func (m Map) String() string {
	types := make([]int, 0, len(m))
	for t := range m {
		types = append(types, int(t))
	}
	sort.Ints(types)

	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, fmt.Sprintf("0x%02x=%x", t, m[uint8(t)]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
