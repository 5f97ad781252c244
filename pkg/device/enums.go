package device

import "fmt"

// ConnState is the ACL connection state of a device.
type ConnState int

const (
	ConnStateDisconnected ConnState = iota
	ConnStateConnecting
	ConnStateConnected
)

// String returns a human-readable name for the connection state.
func (s ConnState) String() string {
	switch s {
	case ConnStateDisconnected:
		return "Disconnected"
	case ConnStateConnecting:
		return "Connecting"
	case ConnStateConnected:
		return "Connected"
	default:
		return fmt.Sprintf("ConnState(%d)", int(s))
	}
}

// DataPathState tracks an ASE's CIS binding and ISO data path.
type DataPathState int

const (
	// DataPathIdle means the ASE is not bound to a CIS.
	DataPathIdle DataPathState = iota

	// DataPathCisAssigned means a CIS id (and possibly handle) is bound but the
	// CIS is not connected.
	DataPathCisAssigned

	// DataPathCisEstablished means the CIS is connected without a data path.
	DataPathCisEstablished

	// DataPathEstablished means the ISO data path is set up for the ASE's direction.
	DataPathEstablished
)

// String returns a human-readable name for the data path state.
func (s DataPathState) String() string {
	switch s {
	case DataPathIdle:
		return "Idle"
	case DataPathCisAssigned:
		return "CisAssigned"
	case DataPathCisEstablished:
		return "CisEstablished"
	case DataPathEstablished:
		return "DataPathEstablished"
	default:
		return fmt.Sprintf("DataPathState(%d)", int(s))
	}
}

// CigState is the allocation state of a group's CIG.
type CigState int

const (
	CigStateNone CigState = iota
	CigStateCreating
	CigStateCreated
	CigStateRemoving

	// CigStateRecovering means CreateCig was disallowed and a RemoveCig for a
	// stale CIG is in flight before the single retry.
	CigStateRecovering
)

// String returns a human-readable name for the CIG state.
func (s CigState) String() string {
	switch s {
	case CigStateNone:
		return "None"
	case CigStateCreating:
		return "Creating"
	case CigStateCreated:
		return "Created"
	case CigStateRemoving:
		return "Removing"
	case CigStateRecovering:
		return "Recovering"
	default:
		return fmt.Sprintf("CigState(%d)", int(s))
	}
}

// CisType says which directions a CIS slot carries.
type CisType int

const (
	CisTypeBidirectional CisType = iota
	CisTypeSink
	CisTypeSource
)

// String returns a human-readable name for the CIS type.
func (t CisType) String() string {
	switch t {
	case CisTypeBidirectional:
		return "Bidirectional"
	case CisTypeSink:
		return "Sink"
	case CisTypeSource:
		return "Source"
	default:
		return fmt.Sprintf("CisType(%d)", int(t))
	}
}
