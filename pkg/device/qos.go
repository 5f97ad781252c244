package device

import (
	"github.com/backkem/leaudio/pkg/audio"
	"github.com/backkem/leaudio/pkg/iso"
)

// Sleep clock accuracy used for every CIG (251 to 500 ppm).
const cigSCA = 0x01

// Framing returns framed when the server of any configured active ASE does
// not support unframed PDUs.
func (g *Group) Framing() uint8 {
	for _, a := range g.ActiveAses() {
		if a.Configured() && !a.Preferences.SupportsUnframed {
			return audio.FramingFramed
		}
	}
	return audio.FramingUnframed
}

// PresentationDelay picks a presentation delay every active ASE of a
// direction accepts. A preferred minimum inside the common range wins over
// the common minimum.
func (g *Group) PresentationDelay(dir audio.Direction) uint32 {
	var lo, hi, pref uint32
	first := true
	for _, a := range g.ActiveAses() {
		if a.Direction != dir {
			continue
		}
		p := a.Preferences
		if first || p.PresentationDelayMin > lo {
			lo = p.PresentationDelayMin
		}
		if first || p.PresentationDelayMax < hi {
			hi = p.PresentationDelayMax
		}
		if p.PreferredPresentationDelayMin > pref {
			pref = p.PreferredPresentationDelayMin
		}
		first = false
	}
	if pref != 0 && pref >= lo && pref <= hi {
		return pref
	}
	return lo
}

// QoSFor builds the QoS configuration written to an ASE.
func (g *Group) QoSFor(a *Ase) audio.QoS {
	rtn := a.RetransmissionNumber
	if rtn == 0 {
		rtn = a.Preferences.PreferredRetransmissionNumber
	}
	latency := a.MaxTransportLatency
	if limit := a.Preferences.MaxTransportLatency; limit != 0 && (latency == 0 || limit < latency) {
		latency = limit
	}
	return audio.QoS{
		SDUInterval:          a.Config.SDUInterval(),
		Framing:              g.Framing(),
		PHY:                  audio.SelectPHY(a.Preferences.PreferredPHY),
		MaxSDU:               a.Config.MaxSDU(),
		RetransmissionNumber: rtn,
		MaxTransportLatency:  latency,
		PresentationDelay:    g.PresentationDelay(a.Direction),
	}
}

// CigParams builds the CIG parameters for the group's configuration and CIS
// table. Slots are sized from the configuration so that devices joining
// later fit the CIG.
func (g *Group) CigParams() iso.CigParams {
	p := iso.CigParams{
		CigID:   g.CigID,
		SCA:     cigSCA,
		Framing: g.Framing(),
	}
	cfg := g.Configuration
	chans := 1
	if cfg != nil {
		chans = cfg.Strategy.ChannelsPerAse()
	}

	sink, source := cfg.Entry(audio.DirectionSink), cfg.Entry(audio.DirectionSource)
	if sink != nil {
		p.SDUIntervalCtoP = sink.Config.SDUInterval()
		p.MaxTransportLatencyCtoP = g.transportLatency(sink)
	}
	if source != nil {
		p.SDUIntervalPtoC = source.Config.SDUInterval()
		p.MaxTransportLatencyPtoC = g.transportLatency(source)
	}

	for _, c := range g.cis {
		cc := iso.CisConfig{CisID: c.ID}
		if sink != nil && c.Carries(audio.DirectionSink) {
			cc.MaxSDUCtoP = sdu(sink.Config, chans)
			cc.PHYCtoP = g.phy(audio.DirectionSink)
			cc.RTNCtoP = g.rtn(sink)
		}
		if source != nil && c.Carries(audio.DirectionSource) {
			cc.MaxSDUPtoC = sdu(source.Config, chans)
			cc.PHYPtoC = g.phy(audio.DirectionSource)
			cc.RTNPtoC = g.rtn(source)
		}
		p.Cis = append(p.Cis, cc)
	}
	return p
}

func sdu(c audio.CodecConfig, chans int) uint16 {
	return c.OctetsPerFrame * uint16(chans) * uint16(c.Blocks())
}

func (g *Group) transportLatency(e *audio.SetEntry) uint16 {
	latency := e.MaxTransportLatency
	for _, a := range g.ActiveAses() {
		if a.Direction != e.Direction {
			continue
		}
		if limit := a.Preferences.MaxTransportLatency; limit != 0 && (latency == 0 || limit < latency) {
			latency = limit
		}
	}
	return latency
}

func (g *Group) rtn(e *audio.SetEntry) uint8 {
	if e.RetransmissionNumber != 0 {
		return e.RetransmissionNumber
	}
	for _, a := range g.ActiveAses() {
		if a.Direction == e.Direction {
			return a.Preferences.PreferredRetransmissionNumber
		}
	}
	return 0
}

func (g *Group) phy(dir audio.Direction) uint8 {
	for _, a := range g.ActiveAses() {
		if a.Direction == dir {
			return audio.SelectPHY(a.Preferences.PreferredPHY)
		}
	}
	return audio.PHY2M
}
