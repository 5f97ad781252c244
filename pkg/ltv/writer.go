package ltv

import "encoding/binary"

// Writer appends LTV entries to an internal buffer.
type Writer struct {
	buf []byte
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// PutBytes appends an entry with an arbitrary value.
func (w *Writer) PutBytes(t uint8, v []byte) error {
	if len(v) > MaxValueSize {
		return ErrValueTooLong
	}
	w.buf = append(w.buf, uint8(len(v)+1), t)
	w.buf = append(w.buf, v...)
	return nil
}

// PutUint8 appends a one-octet entry.
func (w *Writer) PutUint8(t uint8, v uint8) {
	w.buf = append(w.buf, 2, t, v)
}

// PutUint16 appends a two-octet little-endian entry.
func (w *Writer) PutUint16(t uint8, v uint16) {
	w.buf = append(w.buf, 3, t)
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// PutUint32 appends a four-octet little-endian entry.
func (w *Writer) PutUint32(t uint8, v uint32) {
	w.buf = append(w.buf, 5, t)
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the encoded entries. The returned slice is owned by the caller.
func (w *Writer) Bytes() []byte {
	out := make([]byte, len(w.buf))
	copy(out, w.buf)
	return out
}
