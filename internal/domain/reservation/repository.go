package reservation

import (
	"context"
	"time"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/customer"
	"github.com/google/uuid"
)

// Materialization ties a group to the settled payment that paid for it.
type Materialization struct {
	OrderID       string
	MerchantTxnID string
}

// GroupWrite is one atomic booking: the customer upsert, every row, and for
// online payments the order id claim.
type GroupWrite struct {
	Customer        customer.Info
	Reservations    []*Reservation
	Materialization *Materialization
}

// GroupResult is what was persisted, or what already existed for the order id.
type GroupResult struct {
	GroupID      uuid.UUID
	Customer     customer.Profile
	Reservations []*Reservation
	Existing     bool
}

// Repository defines the persistence contract for reservations.
type Repository interface {
	// FindActiveInRange returns non-cancelled reservations of the given
	// stations that overlap [from, to).
	FindActiveInRange(ctx context.Context, resourceIDs []uuid.UUID, from, to time.Time) ([]*Reservation, error)

	// FindByID retrieves one reservation.
	FindByID(ctx context.Context, id uuid.UUID) (*Reservation, error)

	// FindByGroupID retrieves every row of a group.
	FindByGroupID(ctx context.Context, groupID uuid.UUID) ([]*Reservation, error)

	// FindGroup retrieves every row of a group with its customer.
	FindGroup(ctx context.Context, groupID uuid.UUID) (*GroupResult, error)

	// FindGroupByOrderID returns the group materialized for a payment order, if any.
	FindGroupByOrderID(ctx context.Context, orderID string) (*GroupResult, error)

	// CreateGroup writes the whole group in one transaction or nothing at all.
	// Overlaps surface as an availability conflict. When the materialization
	// order id was already claimed the existing group is returned with Existing set.
	CreateGroup(ctx context.Context, w GroupWrite) (*GroupResult, error)

	// Update persists a lifecycle change with optimistic locking.
	Update(ctx context.Context, r *Reservation) error
}
