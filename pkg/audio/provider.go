package audio

import "sync"

// Provider supplies candidate audio-set configurations for a context type,
// in order of preference. Implementations must be safe for concurrent use.
type Provider interface {
	Configurations(ctx Context) []*SetConfiguration
}

// StaticProvider serves configurations from a fixed table.
type StaticProvider struct {
	table map[Context][]*SetConfiguration
	mu    sync.RWMutex
}

// NewStaticProvider creates a provider over the given table.
func NewStaticProvider(table map[Context][]*SetConfiguration) *StaticProvider {
	p := &StaticProvider{table: make(map[Context][]*SetConfiguration)}
	for ctx, cfgs := range table {
		p.table[ctx] = append([]*SetConfiguration(nil), cfgs...)
	}
	return p
}

// Configurations implements Provider. For a multi-bit context the table entry
// of the lowest listed bit is used.
func (p *StaticProvider) Configurations(ctx Context) []*SetConfiguration {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if cfgs, ok := p.table[ctx]; ok {
		return cfgs
	}
	for _, bit := range ctx.Bits() {
		if cfgs, ok := p.table[bit]; ok {
			return cfgs
		}
	}
	return nil
}

// Set replaces the configurations for a context.
func (p *StaticProvider) Set(ctx Context, cfgs []*SetConfiguration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.table[ctx] = append([]*SetConfiguration(nil), cfgs...)
}

// LC3 presets (BAP 1.0.1, Table 3.5): sampling frequency and frame duration
// with the octets per frame of the 10ms variant.
var (
	Preset16_2 = CodecConfig{
		SamplingFrequency: SamplingFrequency16000,
		FrameDuration:     FrameDuration10000us,
		OctetsPerFrame:    40,
		BlocksPerSDU:      1,
	}
	Preset24_2 = CodecConfig{
		SamplingFrequency: SamplingFrequency24000,
		FrameDuration:     FrameDuration10000us,
		OctetsPerFrame:    60,
		BlocksPerSDU:      1,
	}
	Preset32_2 = CodecConfig{
		SamplingFrequency: SamplingFrequency32000,
		FrameDuration:     FrameDuration10000us,
		OctetsPerFrame:    80,
		BlocksPerSDU:      1,
	}
	Preset48_4 = CodecConfig{
		SamplingFrequency: SamplingFrequency48000,
		FrameDuration:     FrameDuration10000us,
		OctetsPerFrame:    120,
		BlocksPerSDU:      1,
	}
)

func sinkEntry(devices, ases int, cfg CodecConfig, latency uint8) SetEntry {
	e := SetEntry{
		Direction:     DirectionSink,
		DeviceCount:   devices,
		AsesPerDevice: ases,
		Codec:         CodecLC3,
		Config:        cfg,
		TargetLatency: latency,
		TargetPHY:     PHY2M,
	}
	if latency == TargetLatencyLow {
		e.RetransmissionNumber = 2
		e.MaxTransportLatency = 10
	} else {
		e.RetransmissionNumber = 13
		e.MaxTransportLatency = 100
	}
	return e
}

func sourceEntry(devices, ases int, cfg CodecConfig) SetEntry {
	return SetEntry{
		Direction:            DirectionSource,
		DeviceCount:          devices,
		AsesPerDevice:        ases,
		Codec:                CodecLC3,
		Config:               cfg,
		TargetLatency:        TargetLatencyLow,
		TargetPHY:            PHY2M,
		RetransmissionNumber: 2,
		MaxTransportLatency:  10,
	}
}

func mediaConfigurations() []*SetConfiguration {
	return []*SetConfiguration{
		{
			Name:     "DualDev_OneChanStereoSnk_48_4",
			Strategy: StrategyMonoOneCisPerDevice,
			Entries:  []SetEntry{sinkEntry(2, 1, Preset48_4, TargetLatencyHighReliability)},
		},
		{
			Name:     "SingleDev_TwoChanStereoSnk_48_4",
			Strategy: StrategyStereoTwoCisPerDevice,
			Entries:  []SetEntry{sinkEntry(1, 2, Preset48_4, TargetLatencyHighReliability)},
		},
		{
			Name:     "SingleDev_OneChanMonoSnk_48_4",
			Strategy: StrategyMonoOneCisPerDevice,
			Entries:  []SetEntry{sinkEntry(1, 1, Preset48_4, TargetLatencyHighReliability)},
		},
	}
}

func conversationalConfigurations(preset CodecConfig, suffix string) []*SetConfiguration {
	return []*SetConfiguration{
		{
			Name:     "DualDev_OneChanStereoSnk_OneChanMonoSrc_" + suffix,
			Strategy: StrategyMonoOneCisPerDevice,
			Entries: []SetEntry{
				sinkEntry(2, 1, preset, TargetLatencyLow),
				sourceEntry(1, 1, preset),
			},
		},
		{
			Name:     "SingleDev_TwoChanStereoSnk_OneChanMonoSrc_" + suffix,
			Strategy: StrategyStereoTwoCisPerDevice,
			Entries: []SetEntry{
				sinkEntry(1, 2, preset, TargetLatencyLow),
				sourceEntry(1, 1, preset),
			},
		},
		{
			Name:     "SingleDev_OneChanMonoSnk_OneChanMonoSrc_" + suffix,
			Strategy: StrategyMonoOneCisPerDevice,
			Entries: []SetEntry{
				sinkEntry(1, 1, preset, TargetLatencyLow),
				sourceEntry(1, 1, preset),
			},
		},
	}
}

func ringtoneConfigurations() []*SetConfiguration {
	return []*SetConfiguration{
		{
			Name:     "DualDev_OneChanStereoSnk_16_2",
			Strategy: StrategyMonoOneCisPerDevice,
			Entries:  []SetEntry{sinkEntry(2, 1, Preset16_2, TargetLatencyLow)},
		},
		{
			Name:     "SingleDev_OneChanMonoSnk_16_2",
			Strategy: StrategyMonoOneCisPerDevice,
			Entries:  []SetEntry{sinkEntry(1, 1, Preset16_2, TargetLatencyLow)},
		},
	}
}

// DefaultConfigurations returns the built-in configuration table.
func DefaultConfigurations() map[Context][]*SetConfiguration {
	media := mediaConfigurations()
	conversational := conversationalConfigurations(Preset16_2, "16_2")
	ringtone := ringtoneConfigurations()

	return map[Context][]*SetConfiguration{
		ContextUnspecified:     media,
		ContextMedia:           media,
		ContextGame:            media,
		ContextSoundEffects:    ringtone,
		ContextNotifications:   ringtone,
		ContextAlerts:          ringtone,
		ContextRingtone:        ringtone,
		ContextEmergencyAlarm:  ringtone,
		ContextInstructional:   ringtone,
		ContextConversational:  conversational,
		ContextVoiceAssistants: conversationalConfigurations(Preset32_2, "32_2"),
		ContextLive:            conversationalConfigurations(Preset24_2, "24_2"),
	}
}

// DefaultProvider returns a StaticProvider over DefaultConfigurations.
func DefaultProvider() *StaticProvider {
	return NewStaticProvider(DefaultConfigurations())
}
