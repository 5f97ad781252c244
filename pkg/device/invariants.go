package device

import (
	"github.com/pkg/errors"

	"github.com/backkem/leaudio/pkg/ascs"
	"github.com/backkem/leaudio/pkg/audio"
)

// CheckInvariants verifies the CIS bindings and, for a group in Streaming,
// that it streams at least one active ASE and that every streaming ASE has
// a CIS handle. Devices joining a running stream may be active while still
// on their way to Streaming.
func (g *Group) CheckInvariants() error {
	type slotUse struct {
		address string
		dirs    audio.Direction
	}
	used := make(map[uint8]slotUse)

	for _, d := range g.devices {
		for _, a := range d.Ases() {
			if !a.IsBound() {
				continue
			}
			c := g.CisByID(a.CisID)
			if c == nil {
				return errors.Wrapf(ErrInvariant, "%s ASE %d bound to unknown CIS %d", d.Address, a.ID, a.CisID)
			}
			if c.Address != d.Address {
				return errors.Wrapf(ErrInvariant, "%s ASE %d on CIS %d owned by %q", d.Address, a.ID, a.CisID, c.Address)
			}
			u, ok := used[a.CisID]
			if ok && (u.address != d.Address || u.dirs.Has(a.Direction)) {
				return errors.Wrapf(ErrInvariant, "CIS %d shared by %s ASE %d", a.CisID, d.Address, a.ID)
			}
			used[a.CisID] = slotUse{address: d.Address, dirs: u.dirs | a.Direction}
		}
	}

	if g.State != ascs.StateStreaming || g.TargetState != ascs.StateStreaming {
		return nil
	}
	streaming := false
	for _, d := range g.devices {
		for _, a := range d.ActiveAses() {
			if a.State != ascs.StateStreaming {
				continue
			}
			if a.CisHandle == 0 {
				return errors.Wrapf(ErrInvariant, "%s ASE %d streaming without CIS handle", d.Address, a.ID)
			}
			streaming = true
		}
	}
	if !streaming {
		return errors.Wrap(ErrInvariant, "streaming group without streaming ASE")
	}
	return nil
}
