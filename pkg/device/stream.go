package device

import (
	"slices"

	"github.com/backkem/leaudio/pkg/audio"
)

// StreamAllocation is one CIS carrying channels of a direction.
type StreamAllocation struct {
	CisHandle  uint16
	Allocation audio.Location
}

// DirectionStream aggregates the streaming ASEs of one direction. It is the
// input for building offloader stream descriptors.
type DirectionStream struct {
	DeviceCount    int
	ChannelCount   int
	SampleRate     uint32
	FrameDuration  uint32
	OctetsPerFrame uint16
	Streams        []StreamAllocation
}

// Equal reports whether two aggregates are identical.
func (s DirectionStream) Equal(o DirectionStream) bool {
	return s.DeviceCount == o.DeviceCount &&
		s.ChannelCount == o.ChannelCount &&
		s.SampleRate == o.SampleRate &&
		s.FrameDuration == o.FrameDuration &&
		s.OctetsPerFrame == o.OctetsPerFrame &&
		slices.Equal(s.Streams, o.Streams)
}

// StreamConfiguration holds the aggregate per direction.
type StreamConfiguration struct {
	Sink   DirectionStream
	Source DirectionStream
}

// Get returns the aggregate for a single direction.
func (c *StreamConfiguration) Get(dir audio.Direction) *DirectionStream {
	if dir == audio.DirectionSource {
		return &c.Source
	}
	return &c.Sink
}

// UpdateStreamConfiguration recomputes the aggregate from the active ASEs
// that have a CIS handle. It reports whether the aggregate changed.
func (g *Group) UpdateStreamConfiguration() bool {
	var next StreamConfiguration
	for _, dir := range []audio.Direction{audio.DirectionSink, audio.DirectionSource} {
		s := next.Get(dir)
		for _, d := range g.devices {
			counted := false
			for _, a := range d.ActiveAses() {
				if a.Direction != dir || a.CisHandle == 0 {
					continue
				}
				if !counted {
					s.DeviceCount++
					counted = true
				}
				s.ChannelCount += a.Config.ChannelCount()
				s.SampleRate = a.Config.SamplingFrequency.Hz()
				s.FrameDuration = a.Config.FrameDuration.Microseconds()
				s.OctetsPerFrame = a.Config.OctetsPerFrame
				s.Streams = append(s.Streams, StreamAllocation{
					CisHandle:  a.CisHandle,
					Allocation: a.Config.ChannelAllocation,
				})
			}
		}
	}

	changed := !next.Sink.Equal(g.Stream.Sink) || !next.Source.Equal(g.Stream.Source)
	g.Stream = next
	return changed
}
