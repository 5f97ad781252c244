package gatt

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// BaseUUID is the Bluetooth Base UUID (Core Vol 3, Part B, 2.5.1).
var BaseUUID = uuid.MustParse("00000000-0000-1000-8000-00805F9B34FB")

// UUID16 expands an assigned 16-bit UUID into its 128-bit form.
func UUID16(v uint16) uuid.UUID {
	u := BaseUUID
	binary.BigEndian.PutUint16(u[2:4], v)
	return u
}

// Short returns the 16-bit alias of u and whether u is derived from the base UUID.
func Short(u uuid.UUID) (uint16, bool) {
	masked := u
	masked[2], masked[3] = 0, 0
	if masked != BaseUUID {
		return 0, false
	}
	return binary.BigEndian.Uint16(u[2:4]), true
}
