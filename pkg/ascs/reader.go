package ascs

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// reader walks a PDU with bounds checks. The first short read latches err and
// every later read returns zero values.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = ErrTooShort
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u24() uint32 {
	b := r.take(3)
	if b == nil {
		return 0
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

// bytes returns a copy so decoded values never alias the notification buffer.
func (r *reader) bytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

// done reports the latched error or ErrTrailingBytes.
func (r *reader) done() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.buf) {
		return ErrTrailingBytes
	}
	return nil
}

func appendU24(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16))
}

func appendU16(buf []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(buf, v)
}

// appendLV appends v behind its one-octet length.
func appendLV(buf, v []byte) ([]byte, error) {
	if len(v) > 0xFF {
		return nil, errors.Wrapf(ErrValueRange, "length %d", len(v))
	}
	buf = append(buf, byte(len(v)))
	return append(buf, v...), nil
}

// header starts a control point PDU with its opcode and ASE count.
func header(op Opcode, n int) ([]byte, error) {
	if n == 0 {
		return nil, errors.Wrap(ErrNoAses, op.String())
	}
	if n > 0xFF {
		return nil, errors.Wrapf(ErrValueRange, "%v for %d ASEs", op, n)
	}
	return []byte{byte(op), byte(n)}, nil
}
