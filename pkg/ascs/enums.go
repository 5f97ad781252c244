package ascs

import "fmt"

// State is the ASE state (ASCS Table 4.2).
type State uint8

const (
	StateIdle            State = 0x00
	StateCodecConfigured State = 0x01
	StateQoSConfigured   State = 0x02
	StateEnabling        State = 0x03
	StateStreaming       State = 0x04
	StateDisabling       State = 0x05
	StateReleasing       State = 0x06
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateCodecConfigured:
		return "CodecConfigured"
	case StateQoSConfigured:
		return "QoSConfigured"
	case StateEnabling:
		return "Enabling"
	case StateStreaming:
		return "Streaming"
	case StateDisabling:
		return "Disabling"
	case StateReleasing:
		return "Releasing"
	default:
		return fmt.Sprintf("State(0x%02x)", uint8(s))
	}
}

// IsValid returns true if the state is a defined value.
func (s State) IsValid() bool {
	return s <= StateReleasing
}

// HasStream returns true for the states that carry CIG/CIS ids and metadata.
func (s State) HasStream() bool {
	return s == StateEnabling || s == StateStreaming || s == StateDisabling
}

// Opcode is an ASE Control Point opcode (ASCS Table 5.1).
type Opcode uint8

const (
	OpcodeConfigCodec        Opcode = 0x01
	OpcodeConfigQoS          Opcode = 0x02
	OpcodeEnable             Opcode = 0x03
	OpcodeReceiverStartReady Opcode = 0x04
	OpcodeDisable            Opcode = 0x05
	OpcodeReceiverStopReady  Opcode = 0x06
	OpcodeUpdateMetadata     Opcode = 0x07
	OpcodeRelease            Opcode = 0x08
)

// String returns the opcode name.
func (o Opcode) String() string {
	switch o {
	case OpcodeConfigCodec:
		return "ConfigCodec"
	case OpcodeConfigQoS:
		return "ConfigQoS"
	case OpcodeEnable:
		return "Enable"
	case OpcodeReceiverStartReady:
		return "ReceiverStartReady"
	case OpcodeDisable:
		return "Disable"
	case OpcodeReceiverStopReady:
		return "ReceiverStopReady"
	case OpcodeUpdateMetadata:
		return "UpdateMetadata"
	case OpcodeRelease:
		return "Release"
	default:
		return fmt.Sprintf("Opcode(0x%02x)", uint8(o))
	}
}

// IsValid returns true if the opcode is defined.
func (o Opcode) IsValid() bool {
	return o >= OpcodeConfigCodec && o <= OpcodeRelease
}

// ResponseCode is a control point response code (ASCS Table 5.2).
type ResponseCode uint8

const (
	ResponseSuccess                 ResponseCode = 0x00
	ResponseUnsupportedOpcode       ResponseCode = 0x01
	ResponseInvalidLength           ResponseCode = 0x02
	ResponseInvalidAseID            ResponseCode = 0x03
	ResponseInvalidTransition       ResponseCode = 0x04
	ResponseInvalidDirection        ResponseCode = 0x05
	ResponseUnsupportedCapabilities ResponseCode = 0x06
	ResponseUnsupportedParameter    ResponseCode = 0x07
	ResponseRejectedParameter       ResponseCode = 0x08
	ResponseInvalidParameter        ResponseCode = 0x09
	ResponseUnsupportedMetadata     ResponseCode = 0x0A
	ResponseRejectedMetadata        ResponseCode = 0x0B
	ResponseInvalidMetadata         ResponseCode = 0x0C
	ResponseInsufficientResources   ResponseCode = 0x0D
	ResponseUnspecifiedError        ResponseCode = 0x0E
)

// String returns the response code name.
func (r ResponseCode) String() string {
	switch r {
	case ResponseSuccess:
		return "Success"
	case ResponseUnsupportedOpcode:
		return "UnsupportedOpcode"
	case ResponseInvalidLength:
		return "InvalidLength"
	case ResponseInvalidAseID:
		return "InvalidAseID"
	case ResponseInvalidTransition:
		return "InvalidTransition"
	case ResponseInvalidDirection:
		return "InvalidDirection"
	case ResponseUnsupportedCapabilities:
		return "UnsupportedCapabilities"
	case ResponseUnsupportedParameter:
		return "UnsupportedParameter"
	case ResponseRejectedParameter:
		return "RejectedParameter"
	case ResponseInvalidParameter:
		return "InvalidParameter"
	case ResponseUnsupportedMetadata:
		return "UnsupportedMetadata"
	case ResponseRejectedMetadata:
		return "RejectedMetadata"
	case ResponseInvalidMetadata:
		return "InvalidMetadata"
	case ResponseInsufficientResources:
		return "InsufficientResources"
	case ResponseUnspecifiedError:
		return "UnspecifiedError"
	default:
		return fmt.Sprintf("Response(0x%02x)", uint8(r))
	}
}

// Reason qualifies a configuration or metadata rejection (ASCS Table 5.3).
type Reason uint8

const (
	ReasonNone                Reason = 0x00
	ReasonCodecID             Reason = 0x01
	ReasonCodecConfiguration  Reason = 0x02
	ReasonSDUInterval         Reason = 0x03
	ReasonFraming             Reason = 0x04
	ReasonPHY                 Reason = 0x05
	ReasonMaxSDU              Reason = 0x06
	ReasonRetransmission      Reason = 0x07
	ReasonMaxTransportLatency Reason = 0x08
	ReasonPresentationDelay   Reason = 0x09
	ReasonInvalidCisMapping   Reason = 0x0A
)

// CisIDUnassigned marks an ASE that is not bound to a CIS.
const CisIDUnassigned uint8 = 0xFF

// AseIDInvalid is the reserved ASE id 0.
const AseIDInvalid uint8 = 0x00
