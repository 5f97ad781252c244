package iso

import (
	"fmt"

	"github.com/backkem/leaudio/pkg/audio"
)

// Status is an HCI status or disconnect reason code (Core Vol 1, Part F).
type Status uint8

const (
	StatusSuccess                     Status = 0x00
	StatusUnknownConnectionID         Status = 0x02
	StatusMemoryCapacityExceeded      Status = 0x07
	StatusConnectionTimeout           Status = 0x08
	StatusCommandDisallowed           Status = 0x0C
	StatusInvalidParameters           Status = 0x12
	StatusRemoteUserTerminated        Status = 0x13
	StatusLocalHostTerminated         Status = 0x16
	StatusUnspecifiedError            Status = 0x1F
	StatusConnectionFailedToEstablish Status = 0x3E
)

// String returns the HCI error name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusUnknownConnectionID:
		return "UnknownConnectionID"
	case StatusMemoryCapacityExceeded:
		return "MemoryCapacityExceeded"
	case StatusConnectionTimeout:
		return "ConnectionTimeout"
	case StatusCommandDisallowed:
		return "CommandDisallowed"
	case StatusInvalidParameters:
		return "InvalidParameters"
	case StatusRemoteUserTerminated:
		return "RemoteUserTerminated"
	case StatusLocalHostTerminated:
		return "LocalHostTerminated"
	case StatusUnspecifiedError:
		return "UnspecifiedError"
	case StatusConnectionFailedToEstablish:
		return "ConnectionFailedToEstablish"
	default:
		return fmt.Sprintf("Status(0x%02x)", uint8(s))
	}
}

// Error lets a non-success status travel as an error value.
func (s Status) Error() string {
	return "iso: " + s.String()
}

// DataPathDirection is the direction mask used by HCI_LE_Setup_ISO_Data_Path
// and HCI_LE_Remove_ISO_Data_Path.
type DataPathDirection uint8

const (
	// DataPathInput carries audio from the host to the controller (sink ASEs).
	DataPathInput DataPathDirection = 0x01

	// DataPathOutput carries audio from the controller to the host (source ASEs).
	DataPathOutput DataPathDirection = 0x02

	DataPathBoth = DataPathInput | DataPathOutput
)

// DataPathFor maps an ASE direction to its data path direction.
func DataPathFor(dir audio.Direction) DataPathDirection {
	var d DataPathDirection
	if dir.Has(audio.DirectionSink) {
		d |= DataPathInput
	}
	if dir.Has(audio.DirectionSource) {
		d |= DataPathOutput
	}
	return d
}

// String returns "Input", "Output" or "Input|Output".
func (d DataPathDirection) String() string {
	switch d {
	case DataPathInput:
		return "Input"
	case DataPathOutput:
		return "Output"
	case DataPathBoth:
		return "Input|Output"
	default:
		return fmt.Sprintf("DataPath(0x%02x)", uint8(d))
	}
}

// Data path ids.
const (
	// DataPathIDHCI routes ISO data over the HCI transport.
	DataPathIDHCI uint8 = 0x00

	// DataPathIDPlatformDefault is the vendor path used for offloaded codecs.
	DataPathIDPlatformDefault uint8 = 0x01
)

// CodecLocation says where audio is encoded and decoded.
type CodecLocation int

const (
	CodecLocationHost CodecLocation = iota
	CodecLocationOffload
)

// String returns "Host" or "Offload".
func (l CodecLocation) String() string {
	if l == CodecLocationOffload {
		return "Offload"
	}
	return "Host"
}

// CodecLocator reports the current codec location. It is queried on every
// data path setup since the location can change while a group is starting.
type CodecLocator interface {
	CodecLocation() CodecLocation
}

// CodecLocatorFunc adapts a function to CodecLocator.
type CodecLocatorFunc func() CodecLocation

// CodecLocation implements CodecLocator.
func (f CodecLocatorFunc) CodecLocation() CodecLocation { return f() }

// HostCodec is a CodecLocator that always reports CodecLocationHost.
var HostCodec = CodecLocatorFunc(func() CodecLocation { return CodecLocationHost })
