package audio

// Strategy describes how channel allocation is spread over the devices of a group.
type Strategy int

const (
	// StrategyMonoOneCisPerDevice gives every device one channel on one CIS.
	// With two devices this is the usual stereo split across earbuds.
	StrategyMonoOneCisPerDevice Strategy = iota

	// StrategyStereoTwoCisPerDevice gives one device two channels on two CISes.
	StrategyStereoTwoCisPerDevice

	// StrategyStereoOneCisPerDevice gives one device two channels multiplexed
	// on a single CIS.
	StrategyStereoOneCisPerDevice
)

// String returns a human-readable name for the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyMonoOneCisPerDevice:
		return "MonoOneCisPerDevice"
	case StrategyStereoTwoCisPerDevice:
		return "StereoTwoCisPerDevice"
	case StrategyStereoOneCisPerDevice:
		return "StereoOneCisPerDevice"
	default:
		return "Unknown"
	}
}

// ChannelsPerAse returns the number of channels an ASE carries under the strategy.
func (s Strategy) ChannelsPerAse() int {
	if s == StrategyStereoOneCisPerDevice {
		return 2
	}
	return 1
}

// SetEntry describes the ASE layout for one direction of a configuration.
type SetEntry struct {
	Direction Direction

	// DeviceCount is the number of devices expected to carry this direction.
	DeviceCount int

	// AsesPerDevice is the number of ASEs each of those devices activates.
	AsesPerDevice int

	Codec CodecID

	// Config is the template codec configuration; the channel allocation is
	// filled in per ASE according to the configuration's strategy.
	Config CodecConfig

	TargetLatency uint8
	TargetPHY     uint8

	RetransmissionNumber uint8
	MaxTransportLatency  uint16
}

// AseCount returns the total number of ASEs across the group for the entry.
func (e SetEntry) AseCount() int {
	return e.DeviceCount * e.AsesPerDevice
}

// SetConfiguration is one candidate audio-set configuration.
type SetConfiguration struct {
	Name     string
	Strategy Strategy
	Entries  []SetEntry
}

// Entry returns the entry for a direction or nil.
func (c *SetConfiguration) Entry(dir Direction) *SetEntry {
	if c == nil {
		return nil
	}
	for i := range c.Entries {
		if c.Entries[i].Direction == dir {
			return &c.Entries[i]
		}
	}
	return nil
}

// Directions returns the union of directions used by the configuration.
func (c *SetConfiguration) Directions() Direction {
	var d Direction
	if c == nil {
		return d
	}
	for _, e := range c.Entries {
		d |= e.Direction
	}
	return d
}

// MaxDeviceCount returns the largest device count across entries.
func (c *SetConfiguration) MaxDeviceCount() int {
	n := 0
	for _, e := range c.Entries {
		if e.DeviceCount > n {
			n = e.DeviceCount
		}
	}
	return n
}

// Equal reports whether two configurations describe the same ASE layout.
// Two different contexts that resolve to equal configurations can share cached
// codec configuration.
func (c *SetConfiguration) Equal(o *SetConfiguration) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.Strategy != o.Strategy || len(c.Entries) != len(o.Entries) {
		return false
	}
	for _, e := range c.Entries {
		oe := o.Entry(e.Direction)
		if oe == nil {
			return false
		}
		if e.DeviceCount != oe.DeviceCount || e.AsesPerDevice != oe.AsesPerDevice ||
			e.Codec != oe.Codec || !e.Config.SameLayout(oe.Config) ||
			e.TargetLatency != oe.TargetLatency || e.TargetPHY != oe.TargetPHY {
			return false
		}
	}
	return true
}
