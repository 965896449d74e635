package identity

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/schoolpulse/comms/internal/models"
)

// Directory resolves participant identities. The identity service owns
// the records; the messaging core reads them and only writes provisional
// entries created by the broadcast fallback.
type Directory interface {
	Lookup(ctx context.Context, id string) (models.Identity, error)
	LookupByUnit(ctx context.Context, unit string) (models.Identity, error)
	Register(ctx context.Context, ident models.Identity) error
}

// SyntheticUnitID derives a stable participant id from an organizational
// unit name, for units that have no materialized local record yet.
func SyntheticUnitID(unit string) string {
	h := fnv.New64a()
	h.Write([]byte(unit))
	return fmt.Sprintf("unit-%x", h.Sum64())
}
