package statemachine

import (
	"time"

	"github.com/pion/logging"

	"github.com/backkem/leaudio/pkg/audio"
	"github.com/backkem/leaudio/pkg/ccid"
	"github.com/backkem/leaudio/pkg/device"
	"github.com/backkem/leaudio/pkg/gatt"
	"github.com/backkem/leaudio/pkg/iso"
)

// DefaultTransitionTimeout bounds every group transition.
const DefaultTransitionTimeout = 3 * time.Second

// Callbacks receives group status changes. Implementations are called from
// the state machine's context and must not call back into it synchronously.
type Callbacks interface {
	OnStatusReport(groupID int, status Status)

	// OnStateTransitionTimeout is called when a transition made no progress
	// in time. The group is left as is.
	OnStateTransitionTimeout(groupID int)

	// OnStreamConfigurationUpdated is called when the stream aggregate of a
	// streaming group changes.
	OnStreamConfigurationUpdated(groupID int)
}

// Timer is a cancellable pending call.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d. The call must reach the state machine through
// its serialized context.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// WallClock is a Scheduler backed by time.AfterFunc.
var WallClock Scheduler = wallClock{}

// Config configures a StateMachine.
type Config struct {
	// Groups holds the groups and their devices.
	Groups *device.Groups

	Controller iso.Controller
	GATT       gatt.Client

	// Provider supplies candidate configurations per context.
	Provider audio.Provider

	// CCIDs resolves the CCID list when a start request carries none.
	// Optional.
	CCIDs ccid.Resolver

	// CodecLocator selects the data path id. Default: iso.HostCodec
	CodecLocator iso.CodecLocator

	// Callbacks receives status reports. Optional.
	Callbacks Callbacks

	// Scheduler arms the transition watchdog. Default: WallClock
	Scheduler Scheduler

	// TransitionTimeout. Default: DefaultTransitionTimeout
	TransitionTimeout time.Duration

	// FallbackContext is configured instead of an unavailable requested
	// context. Zero disables the fallback.
	FallbackContext audio.Context

	// OffloadDataPathID is used for data paths while the codec is
	// offloaded. Default: iso.DataPathIDPlatformDefault
	OffloadDataPathID uint8

	LoggerFactory logging.LoggerFactory
}

// Validate checks the required collaborators.
func (c *Config) Validate() error {
	switch {
	case c.Groups == nil:
		return ErrNoGroups
	case c.Controller == nil:
		return ErrNoController
	case c.GATT == nil:
		return ErrNoGATT
	case c.Provider == nil:
		return ErrNoProvider
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.CodecLocator == nil {
		c.CodecLocator = iso.HostCodec
	}
	if c.Scheduler == nil {
		c.Scheduler = WallClock
	}
	if c.TransitionTimeout == 0 {
		c.TransitionTimeout = DefaultTransitionTimeout
	}
	if c.OffloadDataPathID == 0 {
		c.OffloadDataPathID = iso.DataPathIDPlatformDefault
	}
}
