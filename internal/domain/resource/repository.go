package resource

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the read side of the station catalog.
type Repository interface {
	// ListActive returns every bookable station ordered by category then name.
	ListActive(ctx context.Context) ([]*Resource, error)

	// FindByIDs returns the requested stations. Missing or inactive ids are
	// reported as a not-found error naming the first missing id.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Resource, error)
}
