package device

import (
	"github.com/pkg/errors"

	"github.com/backkem/leaudio/pkg/audio"
)

// Cis is one CIS slot of the group's CIG.
type Cis struct {
	ID     uint8
	Type   CisType
	Handle uint16

	// Address is the device bound to the slot, or empty when free.
	Address string
}

// Carries reports whether the slot can carry a direction.
func (c *Cis) Carries(dir audio.Direction) bool {
	switch c.Type {
	case CisTypeBidirectional:
		return true
	case CisTypeSink:
		return dir == audio.DirectionSink
	case CisTypeSource:
		return dir == audio.DirectionSource
	}
	return false
}

// Cis returns a copy of the CIS table in id order.
func (g *Group) Cis() []Cis {
	return append([]Cis(nil), g.cis...)
}

// CisByID returns the slot with an id or nil.
func (g *Group) CisByID(id uint8) *Cis {
	for i := range g.cis {
		if g.cis[i].ID == id {
			return &g.cis[i]
		}
	}
	return nil
}

// CisByHandle returns the slot with a connection handle or nil.
func (g *Group) CisByHandle(handle uint16) *Cis {
	if handle == 0 {
		return nil
	}
	for i := range g.cis {
		if g.cis[i].Handle == handle {
			return &g.cis[i]
		}
	}
	return nil
}

// GenerateCisIds fills the CIS table for a configuration. Bidirectional slots
// pair sink and source ASEs and come first, followed by sink-only and
// source-only slots. Ids are sequential from zero. The table covers the
// whole configuration, including devices that are not connected yet, so a
// device joining later finds a free slot. It is a no-op until ClearCis.
func (g *Group) GenerateCisIds(cfg *audio.SetConfiguration) {
	if len(g.cis) > 0 || cfg == nil {
		return
	}

	sinks, sources := 0, 0
	if e := cfg.Entry(audio.DirectionSink); e != nil {
		sinks = e.AseCount()
	}
	if e := cfg.Entry(audio.DirectionSource); e != nil {
		sources = e.AseCount()
	}
	bidir := sinks
	if sources < bidir {
		bidir = sources
	}

	add := func(n int, t CisType) {
		for i := 0; i < n; i++ {
			g.cis = append(g.cis, Cis{ID: uint8(len(g.cis)), Type: t})
		}
	}
	add(bidir, CisTypeBidirectional)
	add(sinks-bidir, CisTypeSink)
	add(sources-bidir, CisTypeSource)
}

// ClearCis drops the CIS table and every ASE binding. It is called once the
// CIG is removed.
func (g *Group) ClearCis() {
	g.cis = nil
	for _, d := range g.devices {
		for _, a := range d.Ases() {
			a.ResetCis()
		}
	}
}

func (g *Group) freeCis(t CisType) *Cis {
	for i := range g.cis {
		if g.cis[i].Type == t && g.cis[i].Address == "" {
			return &g.cis[i]
		}
	}
	return nil
}

func (g *Group) bind(d *Device, a *Ase, c *Cis) {
	c.Address = d.Address
	a.CigID = g.CigID
	a.CisID = c.ID
	a.CisHandle = c.Handle
	if a.DataPath == DataPathIdle {
		a.DataPath = DataPathCisAssigned
	}
}

// AssignCisIds binds the device's unbound active ASEs to free CIS slots. A
// device streaming in both directions pairs its sink and source ASEs on
// bidirectional slots first.
func (g *Group) AssignCisIds(d *Device) error {
	var sinks, sources []*Ase
	for _, a := range d.ActiveAses() {
		if a.IsBound() {
			continue
		}
		if a.Direction == audio.DirectionSink {
			sinks = append(sinks, a)
		} else {
			sources = append(sources, a)
		}
	}

	for len(sinks) > 0 && len(sources) > 0 {
		c := g.freeCis(CisTypeBidirectional)
		if c == nil {
			break
		}
		g.bind(d, sinks[0], c)
		g.bind(d, sources[0], c)
		sinks, sources = sinks[1:], sources[1:]
	}

	assign := func(ases []*Ase, t CisType) error {
		for _, a := range ases {
			c := g.freeCis(t)
			if c == nil {
				c = g.freeCis(CisTypeBidirectional)
			}
			if c == nil {
				return errors.Wrapf(ErrNoFreeCis, "%s ASE %d", d.Address, a.ID)
			}
			g.bind(d, a, c)
		}
		return nil
	}
	if err := assign(sinks, CisTypeSink); err != nil {
		return err
	}
	return assign(sources, CisTypeSource)
}

// AssignCisConnHandles records the controller's connection handles, given in
// the order the CIS ids were generated.
func (g *Group) AssignCisConnHandles(handles []uint16) error {
	if len(handles) != len(g.cis) {
		return errors.Wrapf(ErrHandleCount, "got %d, want %d", len(handles), len(g.cis))
	}
	for i := range g.cis {
		g.cis[i].Handle = handles[i]
	}
	return nil
}

// AssignCisConnHandlesToAses copies slot handles onto the device's bound ASEs.
func (g *Group) AssignCisConnHandlesToAses(d *Device) {
	for _, a := range d.Ases() {
		if !a.IsBound() {
			continue
		}
		if c := g.CisByID(a.CisID); c != nil {
			a.CisHandle = c.Handle
		}
	}
}

// UnassignCis frees the device's CIS slots and clears its ASE bindings. The
// CIG and its handles stay in place for the other devices.
func (g *Group) UnassignCis(d *Device) {
	for i := range g.cis {
		if g.cis[i].Address == d.Address {
			g.cis[i].Address = ""
		}
	}
	for _, a := range d.Ases() {
		a.ResetCis()
	}
}

// UnbindAse clears one ASE's binding and frees its slot once no other ASE of
// the device uses it.
func (g *Group) UnbindAse(d *Device, a *Ase) {
	if !a.IsBound() {
		return
	}
	id := a.CisID
	a.ResetCis()
	for _, other := range d.Ases() {
		if other.IsBound() && other.CisID == id {
			return
		}
	}
	if c := g.CisByID(id); c != nil && c.Address == d.Address {
		c.Address = ""
	}
}

// IsCisBidirectional reports whether a device streams both directions on
// one CIS handle.
func (g *Group) IsCisBidirectional(d *Device, handle uint16) bool {
	var dirs audio.Direction
	for _, a := range d.AsesByCisHandle(handle) {
		dirs |= a.Direction
	}
	return dirs == audio.DirectionBoth
}
