package device

import (
	"fmt"

	"github.com/backkem/leaudio/pkg/iso"
)

// OpKind names a controller request awaiting its completion event.
type OpKind int

const (
	OpCigCreate OpKind = iota
	OpCigRemove
	OpCisEstablish
	OpCisDisconnect
	OpDataPathSetup
	OpDataPathRemove
)

// String returns a human-readable name for the kind.
func (k OpKind) String() string {
	switch k {
	case OpCigCreate:
		return "CigCreate"
	case OpCigRemove:
		return "CigRemove"
	case OpCisEstablish:
		return "CisEstablish"
	case OpCisDisconnect:
		return "CisDisconnect"
	case OpDataPathSetup:
		return "DataPathSetup"
	case OpDataPathRemove:
		return "DataPathRemove"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// PendingOp identifies one outstanding controller request. Handle and
// Direction are zero where the request has none.
type PendingOp struct {
	Kind      OpKind
	Handle    uint16
	Direction iso.DataPathDirection
}

func (o PendingOp) String() string {
	return fmt.Sprintf("%s(0x%04x,%v)", o.Kind, o.Handle, o.Direction)
}

// PendingOps is the set of controller requests a group is waiting on.
type PendingOps struct {
	ops map[PendingOp]struct{}
}

// Add records an outstanding request.
func (p *PendingOps) Add(op PendingOp) {
	if p.ops == nil {
		p.ops = make(map[PendingOp]struct{})
	}
	p.ops[op] = struct{}{}
}

// Remove clears a request and reports whether it was outstanding.
func (p *PendingOps) Remove(op PendingOp) bool {
	if _, ok := p.ops[op]; !ok {
		return false
	}
	delete(p.ops, op)
	return true
}

// Has reports whether a request is outstanding.
func (p *PendingOps) Has(op PendingOp) bool {
	_, ok := p.ops[op]
	return ok
}

// HasKind reports whether any request of a kind is outstanding.
func (p *PendingOps) HasKind(kind OpKind) bool {
	for op := range p.ops {
		if op.Kind == kind {
			return true
		}
	}
	return false
}

// OnHandle reports whether any request on a CIS handle is outstanding.
func (p *PendingOps) OnHandle(handle uint16) bool {
	for op := range p.ops {
		if op.Handle == handle && op.Kind != OpCigCreate && op.Kind != OpCigRemove {
			return true
		}
	}
	return false
}

// Find returns the outstanding request of a kind on a handle.
func (p *PendingOps) Find(kind OpKind, handle uint16) (PendingOp, bool) {
	for op := range p.ops {
		if op.Kind == kind && op.Handle == handle {
			return op, true
		}
	}
	return PendingOp{}, false
}

// ClearHandle drops every request on a CIS handle.
func (p *PendingOps) ClearHandle(handle uint16) {
	for op := range p.ops {
		if op.Handle == handle && op.Kind != OpCigCreate && op.Kind != OpCigRemove {
			delete(p.ops, op)
		}
	}
}

// Len returns the number of outstanding requests.
func (p *PendingOps) Len() int {
	return len(p.ops)
}

// Clear drops all requests.
func (p *PendingOps) Clear() {
	p.ops = nil
}
