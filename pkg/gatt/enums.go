package gatt

import "fmt"

// WriteType selects the ATT procedure used for a characteristic write.
type WriteType uint8

const (
	// WriteTypeWithResponse uses ATT Write Request.
	WriteTypeWithResponse WriteType = iota

	// WriteTypeWithoutResponse uses ATT Write Command.
	WriteTypeWithoutResponse
)

// String returns a human-readable name for the write type.
func (w WriteType) String() string {
	switch w {
	case WriteTypeWithResponse:
		return "WithResponse"
	case WriteTypeWithoutResponse:
		return "WithoutResponse"
	default:
		return "Unknown"
	}
}

// Status is an ATT error code; StatusSuccess means the operation completed.
type Status uint8

// ATT error codes (Core Vol 3, Part F, 3.4.1.1) plus the success value.
const (
	StatusSuccess                     Status = 0x00
	StatusInvalidHandle               Status = 0x01
	StatusWriteNotPermitted           Status = 0x03
	StatusInvalidPDU                  Status = 0x04
	StatusInsufficientAuthentication  Status = 0x05
	StatusRequestNotSupported         Status = 0x06
	StatusInvalidOffset               Status = 0x07
	StatusInvalidAttributeValueLength Status = 0x0D
	StatusUnlikelyError               Status = 0x0E
	StatusInsufficientEncryption      Status = 0x0F
	StatusInsufficientResources       Status = 0x11
	StatusValueNotAllowed             Status = 0x13
	StatusCCCDImproperlyConfigured    Status = 0xFD
)

// String returns the ATT error name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusInvalidHandle:
		return "InvalidHandle"
	case StatusWriteNotPermitted:
		return "WriteNotPermitted"
	case StatusInvalidPDU:
		return "InvalidPDU"
	case StatusInsufficientAuthentication:
		return "InsufficientAuthentication"
	case StatusRequestNotSupported:
		return "RequestNotSupported"
	case StatusInvalidOffset:
		return "InvalidOffset"
	case StatusInvalidAttributeValueLength:
		return "InvalidAttributeValueLength"
	case StatusUnlikelyError:
		return "UnlikelyError"
	case StatusInsufficientEncryption:
		return "InsufficientEncryption"
	case StatusInsufficientResources:
		return "InsufficientResources"
	case StatusValueNotAllowed:
		return "ValueNotAllowed"
	case StatusCCCDImproperlyConfigured:
		return "CCCDImproperlyConfigured"
	default:
		return fmt.Sprintf("Status(0x%02x)", uint8(s))
	}
}

// ATT opcodes carried by Pipe (Core Vol 3, Part F, 3.4.8).
const (
	opErrorResponse     uint8 = 0x01
	opWriteRequest      uint8 = 0x12
	opWriteResponse     uint8 = 0x13
	opHandleValueNotify uint8 = 0x1B
	opWriteCommand      uint8 = 0x52
)

// DefaultMTU is the minimum LE ATT_MTU; EATT and LE Audio peers negotiate more.
const DefaultMTU = 23

// LEAudioMTU is the ATT_MTU the pipe assumes when none is configured. BAP
// requires at least 64.
const LEAudioMTU = 251
