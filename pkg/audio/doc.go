// Package audio defines the LE Audio vocabulary shared by every layer of the
// stack: stream directions, audio contexts, audio locations, codec identifiers,
// LC3 codec configuration, QoS parameters and the audio-set configurations that
// describe how a group of devices is laid out for a given context.
//
// The Provider interface is the read-only source of candidate audio-set
// configurations per context. DefaultProvider returns a built-in table covering
// the common earbud and headset layouts.
//
// See Bluetooth Assigned Numbers, Section 6.12 (Generic Audio) and BAP 1.0.1,
// Section 4.
package audio
