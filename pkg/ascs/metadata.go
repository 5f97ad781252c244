package ascs

import (
	"github.com/pkg/errors"

	"github.com/backkem/leaudio/pkg/audio"
	"github.com/backkem/leaudio/pkg/ltv"
)

// Metadata LTV types (Assigned Numbers 6.12.6).
const (
	MetadataPreferredContexts uint8 = 0x01
	MetadataStreamingContexts uint8 = 0x02
	MetadataProgramInfo       uint8 = 0x03
	MetadataLanguage          uint8 = 0x04
	MetadataCCIDList          uint8 = 0x05
)

// Metadata is the decoded metadata carried by Enable, Update Metadata and the
// streaming ASE states. Unknown types are preserved in Other.
type Metadata struct {
	StreamingContexts audio.Context
	CCIDs             []uint8
	Other             ltv.Map
}

// NewMetadata returns metadata for a context and the content control ids
// serving it.
func NewMetadata(ctx audio.Context, ccids []uint8) Metadata {
	return Metadata{StreamingContexts: ctx, CCIDs: append([]uint8(nil), ccids...)}
}

// Encode returns the LTV encoding. Streaming contexts are always written.
func (m Metadata) Encode() []byte {
	w := ltv.NewWriter()
	w.PutUint16(MetadataStreamingContexts, uint16(m.StreamingContexts))
	if len(m.CCIDs) > 0 {
		_ = w.PutBytes(MetadataCCIDList, m.CCIDs)
	}
	out := w.Bytes()
	if len(m.Other) > 0 {
		rest := make(ltv.Map, len(m.Other))
		for t, v := range m.Other {
			if t != MetadataStreamingContexts && t != MetadataCCIDList {
				rest[t] = v
			}
		}
		out = append(out, rest.Encode()...)
	}
	return out
}

// DecodeMetadata parses metadata LTVs.
func DecodeMetadata(b []byte) (Metadata, error) {
	var m Metadata
	if len(b) == 0 {
		return m, nil
	}
	entries, err := ltv.Parse(b)
	if err != nil {
		return m, errors.Wrap(err, "ascs: metadata")
	}
	if entries.Has(MetadataStreamingContexts) {
		v, err := entries.Uint16(MetadataStreamingContexts)
		if err != nil {
			return m, errors.Wrap(err, "ascs: streaming contexts")
		}
		m.StreamingContexts = audio.Context(v)
	}
	if entries.Has(MetadataCCIDList) {
		m.CCIDs = entries.Bytes(MetadataCCIDList)
	}
	delete(entries, MetadataStreamingContexts)
	delete(entries, MetadataCCIDList)
	if len(entries) > 0 {
		m.Other = entries
	}
	return m, nil
}

// Equal reports whether two metadata values carry the same context and CCIDs.
func (m Metadata) Equal(o Metadata) bool {
	if m.StreamingContexts != o.StreamingContexts || len(m.CCIDs) != len(o.CCIDs) {
		return false
	}
	for i := range m.CCIDs {
		if m.CCIDs[i] != o.CCIDs[i] {
			return false
		}
	}
	return true
}
