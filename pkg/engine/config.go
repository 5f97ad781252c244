package engine

import (
	"time"

	"github.com/pion/logging"

	"github.com/backkem/leaudio/pkg/audio"
	"github.com/backkem/leaudio/pkg/ccid"
	"github.com/backkem/leaudio/pkg/gatt"
	"github.com/backkem/leaudio/pkg/iso"
	"github.com/backkem/leaudio/pkg/statemachine"
)

// Config holds the configuration of an Engine.
type Config struct {
	// Controller is the ISO controller. Required. Its events must be
	// delivered to the engine, which implements iso.EventHandler.
	Controller iso.Controller

	// Provider supplies the audio-set configurations.
	// Default: audio.DefaultProvider()
	Provider audio.Provider

	// CCIDs holds the content control ids put in stream metadata.
	// Default: an empty keeper, see Engine.CCIDs
	CCIDs *ccid.Keeper

	// CodecLocator selects between host and offloaded codecs.
	// Default: iso.HostCodec
	CodecLocator iso.CodecLocator

	// TransitionTimeout bounds every group transition.
	// Default: statemachine.DefaultTransitionTimeout
	TransitionTimeout time.Duration

	// FallbackContext is configured when a requested context is not
	// available. Zero disables the fallback.
	FallbackContext audio.Context

	// OffloadDataPathID is the data path used for offloaded codecs.
	// Default: iso.DataPathIDPlatformDefault
	OffloadDataPathID uint8

	// MTU is the ATT_MTU of the peer bearers. Default: gatt.LEAudioMTU
	MTU int

	// Callbacks receives group status reports on the engine's callback
	// loop. Optional.
	Callbacks statemachine.Callbacks

	LoggerFactory logging.LoggerFactory
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Controller == nil {
		return ErrNoController
	}
	return nil
}

// applyDefaults fills in default values for unset fields.
func (c *Config) applyDefaults() {
	if c.Provider == nil {
		c.Provider = audio.DefaultProvider()
	}
	if c.CCIDs == nil {
		c.CCIDs = ccid.NewKeeper()
	}
	if c.CodecLocator == nil {
		c.CodecLocator = iso.HostCodec
	}
	if c.TransitionTimeout == 0 {
		c.TransitionTimeout = statemachine.DefaultTransitionTimeout
	}
	if c.OffloadDataPathID == 0 {
		c.OffloadDataPathID = iso.DataPathIDPlatformDefault
	}
	if c.MTU == 0 {
		c.MTU = gatt.LEAudioMTU
	}
}
