package ascs

import "github.com/backkem/leaudio/pkg/gatt"

// Assigned UUIDs for the service and its characteristics.
var (
	ServiceUUID         = gatt.UUID16(0x184E)
	SinkAseUUID         = gatt.UUID16(0x2BC4)
	SourceAseUUID       = gatt.UUID16(0x2BC5)
	AseControlPointUUID = gatt.UUID16(0x2BC6)
)
