package iso

import "github.com/backkem/leaudio/pkg/audio"

// CisConfig is the per-CIS part of HCI_LE_Set_CIG_Parameters. CtoP is the
// central-to-peripheral (sink) direction, PtoC the reverse.
type CisConfig struct {
	CisID uint8

	MaxSDUCtoP uint16
	MaxSDUPtoC uint16
	PHYCtoP    uint8
	PHYPtoC    uint8
	RTNCtoP    uint8
	RTNPtoC    uint8
}

// CigParams configures a CIG and all of its CISes.
type CigParams struct {
	CigID uint8

	SDUIntervalCtoP uint32
	SDUIntervalPtoC uint32

	SCA     uint8
	Packing uint8
	Framing uint8

	MaxTransportLatencyCtoP uint16
	MaxTransportLatencyPtoC uint16

	Cis []CisConfig
}

// CisLink pairs a CIS with the ACL connection it is established on.
type CisLink struct {
	CisHandle uint16
	AclHandle uint16
}

// DataPathParams configures one direction of an ISO data path.
type DataPathParams struct {
	Direction       DataPathDirection
	DataPathID      uint8
	Codec           audio.CodecID
	ControllerDelay uint32
	CodecConfig     []byte
}

// Controller issues isochronous channel requests. A nil error means the
// request was queued and its completion event will follow.
type Controller interface {
	CreateCig(params CigParams) error
	RemoveCig(cigID uint8) error
	EstablishCis(links []CisLink) error
	DisconnectCis(cisHandle uint16, reason Status) error
	SetupIsoDataPath(cisHandle uint16, params DataPathParams) error
	RemoveIsoDataPath(cisHandle uint16, dir DataPathDirection) error
}

// CigCreatedEvent completes CreateCig. ConnHandles are in CIS order.
type CigCreatedEvent struct {
	CigID       uint8
	Status      Status
	ConnHandles []uint16
}

// CigRemovedEvent completes RemoveCig.
type CigRemovedEvent struct {
	CigID  uint8
	Status Status
}

// CisEstablishedEvent completes EstablishCis for one CIS.
type CisEstablishedEvent struct {
	CigID     uint8
	CisHandle uint16
	Status    Status

	CigSyncDelay         uint32
	CisSyncDelay         uint32
	TransportLatencyCtoP uint32
	TransportLatencyPtoC uint32
}

// CisDisconnectedEvent reports a CIS going down, requested or not.
type CisDisconnectedEvent struct {
	CigID     uint8
	CisHandle uint16
	Reason    Status
}

// DataPathEvent completes SetupIsoDataPath or RemoveIsoDataPath.
type DataPathEvent struct {
	CisHandle uint16
	Direction DataPathDirection
	Status    Status
}

// EventHandler receives controller events.
type EventHandler interface {
	OnCigCreated(ev CigCreatedEvent)
	OnCigRemoved(ev CigRemovedEvent)
	OnCisEstablished(ev CisEstablishedEvent)
	OnCisDisconnected(ev CisDisconnectedEvent)
	OnDataPathSetup(ev DataPathEvent)
	OnDataPathRemoved(ev DataPathEvent)
}
