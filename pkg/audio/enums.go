package audio

import (
	"fmt"
	"math/bits"
	"strings"
)

// Direction is a stream direction seen from the peer (the ASCS server).
// Values are bit flags so that both directions can be combined.
type Direction uint8

const (
	// DirectionSink carries audio from this host to the peer.
	DirectionSink Direction = 0x01

	// DirectionSource carries audio from the peer to this host.
	DirectionSource Direction = 0x02

	// DirectionBoth combines sink and source.
	DirectionBoth = DirectionSink | DirectionSource
)

// String returns a human-readable name for the direction.
func (d Direction) String() string {
	switch d {
	case DirectionSink:
		return "Sink"
	case DirectionSource:
		return "Source"
	case DirectionBoth:
		return "Both"
	default:
		return "None"
	}
}

// Has reports whether d includes all bits of other.
func (d Direction) Has(other Direction) bool {
	return other != 0 && d&other == other
}

// Opposite returns the other single direction.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionSink:
		return DirectionSource
	case DirectionSource:
		return DirectionSink
	default:
		return 0
	}
}

// Directions lists single directions in iteration order.
var Directions = [2]Direction{DirectionSink, DirectionSource}

// Context is a bit set of audio context types (Assigned Numbers 6.12.3).
// A single bit names one context type; several bits form a context set.
type Context uint16

const (
	ContextUnspecified     Context = 0x0001
	ContextConversational  Context = 0x0002
	ContextMedia           Context = 0x0004
	ContextGame            Context = 0x0008
	ContextInstructional   Context = 0x0010
	ContextVoiceAssistants Context = 0x0020
	ContextLive            Context = 0x0040
	ContextSoundEffects    Context = 0x0080
	ContextNotifications   Context = 0x0100
	ContextRingtone        Context = 0x0200
	ContextAlerts          Context = 0x0400
	ContextEmergencyAlarm  Context = 0x0800

	// ContextNone is the empty set.
	ContextNone Context = 0
)

var contextNames = map[Context]string{
	ContextUnspecified:     "Unspecified",
	ContextConversational:  "Conversational",
	ContextMedia:           "Media",
	ContextGame:            "Game",
	ContextInstructional:   "Instructional",
	ContextVoiceAssistants: "VoiceAssistants",
	ContextLive:            "Live",
	ContextSoundEffects:    "SoundEffects",
	ContextNotifications:   "Notifications",
	ContextRingtone:        "Ringtone",
	ContextAlerts:          "Alerts",
	ContextEmergencyAlarm:  "EmergencyAlarm",
}

// ParseContext maps a context name (case-insensitive) to its bit.
func ParseContext(name string) (Context, error) {
	for c, n := range contextNames {
		if strings.EqualFold(n, name) {
			return c, nil
		}
	}
	return ContextNone, fmt.Errorf("audio: unknown context %q", name)
}

// String lists the names of the set bits.
func (c Context) String() string {
	if c == ContextNone {
		return "None"
	}
	var names []string
	for bit := Context(1); bit != 0 && bit <= ContextEmergencyAlarm; bit <<= 1 {
		if c&bit != 0 {
			names = append(names, contextNames[bit])
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("Context(0x%04x)", uint16(c))
	}
	return strings.Join(names, "|")
}

// Has reports whether every bit of other is set in c.
func (c Context) Has(other Context) bool {
	return other != 0 && c&other == other
}

// Any reports whether c and other share at least one bit.
func (c Context) Any(other Context) bool {
	return c&other != 0
}

// Bits splits the set into single-bit contexts, lowest first.
func (c Context) Bits() []Context {
	var out []Context
	for v := uint16(c); v != 0; v &= v - 1 {
		out = append(out, Context(v&-v))
	}
	return out
}

// DirectionalContexts holds one context set per direction.
type DirectionalContexts struct {
	Sink   Context
	Source Context
}

// Get returns the set for a single direction.
func (d DirectionalContexts) Get(dir Direction) Context {
	switch dir {
	case DirectionSink:
		return d.Sink
	case DirectionSource:
		return d.Source
	case DirectionBoth:
		return d.Sink | d.Source
	default:
		return ContextNone
	}
}

// Set replaces the set for a single direction.
func (d *DirectionalContexts) Set(dir Direction, c Context) {
	switch dir {
	case DirectionSink:
		d.Sink = c
	case DirectionSource:
		d.Source = c
	}
}

// Location is a bit set of audio channel locations (Assigned Numbers 6.12.1).
// The zero value is mono audio.
type Location uint32

const (
	LocationMono        Location = 0x00000000
	LocationFrontLeft   Location = 0x00000001
	LocationFrontRight  Location = 0x00000002
	LocationFrontCenter Location = 0x00000004
	LocationLowFreq1    Location = 0x00000008
	LocationBackLeft    Location = 0x00000010
	LocationBackRight   Location = 0x00000020
	LocationSideLeft    Location = 0x04000000
	LocationSideRight   Location = 0x08000000
)

// LocationStereo is the common left/right pair.
const LocationStereo = LocationFrontLeft | LocationFrontRight

// Count returns the number of channels represented by the set; mono counts
// as one channel.
func (l Location) Count() int {
	if l == LocationMono {
		return 1
	}
	return bits.OnesCount32(uint32(l))
}

// Lowest returns the lowest set bit, or LocationMono.
func (l Location) Lowest() Location {
	v := uint32(l)
	return Location(v & -v)
}

// Bits splits the set into single locations, lowest first.
func (l Location) Bits() []Location {
	var out []Location
	for v := uint32(l); v != 0; v &= v - 1 {
		out = append(out, Location(v&-v))
	}
	return out
}

// String renders common locations by name.
func (l Location) String() string {
	switch l {
	case LocationMono:
		return "Mono"
	case LocationFrontLeft:
		return "FrontLeft"
	case LocationFrontRight:
		return "FrontRight"
	case LocationStereo:
		return "FrontLeft|FrontRight"
	case LocationFrontCenter:
		return "FrontCenter"
	default:
		return fmt.Sprintf("Location(0x%08x)", uint32(l))
	}
}

// DirectionalLocations holds one location set per direction.
type DirectionalLocations struct {
	Sink   Location
	Source Location
}

// Get returns the set for a single direction.
func (d DirectionalLocations) Get(dir Direction) Location {
	if dir == DirectionSource {
		return d.Source
	}
	return d.Sink
}

// Set replaces the set for a single direction.
func (d *DirectionalLocations) Set(dir Direction, l Location) {
	switch dir {
	case DirectionSink:
		d.Sink = l
	case DirectionSource:
		d.Source = l
	}
}
