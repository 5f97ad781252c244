package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/backkem/leaudio/pkg/audio"
	"github.com/backkem/leaudio/pkg/statemachine"
)

// Options holds the CLI flags.
type Options struct {
	// Devices is the number of earbuds, 1 or 2.
	Devices int

	// Context is the audio context streamed.
	Context audio.Context

	// Timeout bounds every group transition.
	Timeout time.Duration

	// Cache makes the earbuds keep their codec configuration on release.
	Cache bool

	// DisallowOnce leaves a stale CIG in the controller, so the first CIG
	// creation is rejected and recovered.
	DisallowOnce bool

	Verbose bool
}

// DefaultOptions returns the options used when no flag is given.
func DefaultOptions() Options {
	return Options{
		Devices: 2,
		Context: audio.ContextMedia,
		Timeout: statemachine.DefaultTransitionTimeout,
	}
}

// ParseFlags parses the CLI flags:
//
//	-devices       Number of earbuds, 1 or 2 (default: 2)
//	-context       Audio context name (default: Media)
//	-timeout       Transition timeout (default: 3s)
//	-cache         Keep codec configuration on release
//	-disallow-once Reject the first CIG creation
//	-v             Debug logging
func ParseFlags(args []string) (Options, error) {
	o := DefaultOptions()
	fs := flag.NewFlagSet("leaudio-sim", flag.ContinueOnError)

	fs.IntVar(&o.Devices, "devices", o.Devices, "Number of earbuds in the group (1 or 2)")
	fs.Func("context", fmt.Sprintf("Audio context to stream (default: %v)", o.Context), func(s string) error {
		c, err := audio.ParseContext(s)
		if err != nil {
			return err
		}
		o.Context = c
		return nil
	})
	fs.DurationVar(&o.Timeout, "timeout", o.Timeout, "Transition timeout")
	fs.BoolVar(&o.Cache, "cache", false, "Earbuds keep their codec configuration on release")
	fs.BoolVar(&o.DisallowOnce, "disallow-once", false, "The controller rejects the first CIG creation")
	fs.BoolVar(&o.Verbose, "v", false, "Debug logging")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.Devices < 1 || o.Devices > 2 {
		return o, fmt.Errorf("devices must be 1 or 2, got %d", o.Devices)
	}
	if o.Timeout <= 0 {
		return o, fmt.Errorf("timeout must be positive, got %v", o.Timeout)
	}
	return o, nil
}
