package device

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Groups is the table of device groups known to a host.
//
// A device belongs to at most one group; AddDevice enforces this across the
// table. Lookups by connection id, CIS handle and CIG id route inbound
// events to the owning group.
type Groups struct {
	groups map[int]*Group

	mu sync.RWMutex
}

// NewGroups creates an empty table.
func NewGroups() *Groups {
	return &Groups{groups: make(map[int]*Group)}
}

// Add creates a group with an id.
func (t *Groups) Add(id int) (*Group, error) {
	g, err := NewGroup(id)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.groups[id]; exists {
		return nil, errors.Wrapf(ErrDuplicateGroup, "%d", id)
	}
	t.groups[id] = g
	return g, nil
}

// AddDevice adds a device to a group, creating the group when needed.
func (t *Groups) AddDevice(id int, d *Device) (*Group, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for gid, g := range t.groups {
		if gid != id && g.Device(d.Address) != nil {
			return nil, errors.Wrapf(ErrDuplicateDevice, "%s in group %d", d.Address, gid)
		}
	}

	g, ok := t.groups[id]
	if !ok {
		var err error
		if g, err = NewGroup(id); err != nil {
			return nil, err
		}
		t.groups[id] = g
	}
	if err := g.AddDevice(d); err != nil {
		return nil, err
	}
	return g, nil
}

// RemoveDevice removes a device from its group. A group left without
// devices is dropped from the table.
func (t *Groups) RemoveDevice(address string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, g := range t.groups {
		if g.Device(address) == nil {
			continue
		}
		if err := g.RemoveDevice(address); err != nil {
			return err
		}
		if g.Size() == 0 {
			delete(t.groups, id)
		}
		return nil
	}
	return errors.Wrap(ErrDeviceNotFound, address)
}

// Remove drops a group. No error is returned if it doesn't exist.
func (t *Groups) Remove(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.groups, id)
}

// Get returns the group with an id or nil.
func (t *Groups) Get(id int) *Group {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.groups[id]
}

// FindByAddress returns the group of a device and the device.
func (t *Groups) FindByAddress(address string) (*Group, *Device) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, g := range t.groups {
		if d := g.Device(address); d != nil {
			return g, d
		}
	}
	return nil, nil
}

// FindByConnID returns the group and device of a connected peer.
func (t *Groups) FindByConnID(connID uint16) (*Group, *Device) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, g := range t.groups {
		if d := g.DeviceByConnID(connID); d != nil {
			return g, d
		}
	}
	return nil, nil
}

// FindByCisHandle returns the group whose CIG owns a CIS handle.
func (t *Groups) FindByCisHandle(handle uint16) *Group {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, g := range t.groups {
		if g.CisByHandle(handle) != nil {
			return g
		}
	}
	return nil
}

// FindByCigID returns the group using a CIG id.
func (t *Groups) FindByCigID(cigID uint8) *Group {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, g := range t.groups {
		if g.CigID == cigID {
			return g
		}
	}
	return nil
}

// ForEach calls fn for each group in id order until fn returns false.
// The callback should not modify the table.
func (t *Groups) ForEach(fn func(*Group) bool) {
	t.mu.RLock()
	groups := make([]*Group, 0, len(t.groups))
	for _, g := range t.groups {
		groups = append(groups, g)
	}
	t.mu.RUnlock()

	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	for _, g := range groups {
		if !fn(g) {
			return
		}
	}
}

// Count returns the number of groups.
func (t *Groups) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.groups)
}
