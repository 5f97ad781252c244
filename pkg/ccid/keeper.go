package ccid

import (
	"errors"
	"sync"

	"github.com/backkem/leaudio/pkg/audio"
)

// ErrInvalidContext is returned when registering a CCID for an empty context.
var ErrInvalidContext = errors.New("ccid: invalid context")

// Resolver returns the CCIDs of the services owning the bits of a context.
type Resolver interface {
	CCIDs(ctx audio.Context) []uint8
}

// Keeper is a Resolver backed by a registration table. It is safe for
// concurrent use.
type Keeper struct {
	ids map[audio.Context]uint8

	mu sync.RWMutex
}

// NewKeeper creates an empty keeper.
func NewKeeper() *Keeper {
	return &Keeper{ids: make(map[audio.Context]uint8)}
}

// Set registers ccid for every bit of ctx, replacing earlier registrations.
func (k *Keeper) Set(ctx audio.Context, ccid uint8) error {
	if ctx == audio.ContextNone {
		return ErrInvalidContext
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	for _, bit := range ctx.Bits() {
		k.ids[bit] = ccid
	}
	return nil
}

// Remove drops every registration of ccid.
func (k *Keeper) Remove(ccid uint8) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for ctx, id := range k.ids {
		if id == ccid {
			delete(k.ids, ctx)
		}
	}
}

// Get returns the CCID registered for a single context bit.
func (k *Keeper) Get(bit audio.Context) (uint8, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	id, ok := k.ids[bit]
	return id, ok
}

// CCIDs implements Resolver. The result follows context bit order and holds
// each CCID once.
func (k *Keeper) CCIDs(ctx audio.Context) []uint8 {
	k.mu.RLock()
	defer k.mu.RUnlock()

	var out []uint8
	seen := make(map[uint8]bool)
	for _, bit := range ctx.Bits() {
		id, ok := k.ids[bit]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
