package identity

import (
	"context"
	"sync"

	"github.com/schoolpulse/comms/internal/apperrors"
	"github.com/schoolpulse/comms/internal/models"
)

// MemoryDirectory backs dev mode and tests.
type MemoryDirectory struct {
	mu   sync.RWMutex
	byID map[string]models.Identity
}

func NewMemoryDirectory(seed ...models.Identity) *MemoryDirectory {
	d := &MemoryDirectory{byID: make(map[string]models.Identity)}
	for _, ident := range seed {
		d.byID[ident.ID] = ident
	}
	return d
}

func (d *MemoryDirectory) Lookup(ctx context.Context, id string) (models.Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ident, ok := d.byID[id]
	if !ok {
		return models.Identity{}, apperrors.ErrParticipantNotFound
	}
	return ident, nil
}

func (d *MemoryDirectory) LookupByUnit(ctx context.Context, unit string) (models.Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, ident := range d.byID {
		if ident.Unit == unit {
			return ident, nil
		}
	}
	return models.Identity{}, apperrors.ErrParticipantNotFound
}

func (d *MemoryDirectory) Register(ctx context.Context, ident models.Identity) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byID[ident.ID]; !ok {
		d.byID[ident.ID] = ident
	}
	return nil
}
