package payment

import (
	"context"
	"time"
)

// AttemptRepository defines the persistence contract for Attempt aggregates.
type AttemptRepository interface {
	// FindByMerchantTxnID retrieves an attempt by the id generated at checkout.
	FindByMerchantTxnID(ctx context.Context, merchantTxnID string) (*Attempt, error)

	// FindByOrderID retrieves an attempt by the provider's order id.
	FindByOrderID(ctx context.Context, orderID string) (*Attempt, error)

	// ListAwaitingProvider returns attempts still waiting on the provider that
	// were created inside [createdAfter, createdBefore], oldest first.
	ListAwaitingProvider(ctx context.Context, createdAfter, createdBefore time.Time, limit int) ([]*Attempt, error)

	// Save persists a new attempt.
	Save(ctx context.Context, attempt *Attempt) error

	// Update persists changes to an existing attempt with optimistic locking.
	Update(ctx context.Context, attempt *Attempt) error
}

// DraftStore keeps booking drafts alive across the off-site payment redirect.
type DraftStore interface {
	// Stage stores the draft under its merchant transaction id until ttl elapses.
	Stage(ctx context.Context, draft *Draft, ttl time.Duration) error

	// Load returns the draft, or a not-found error once it expired or was discarded.
	Load(ctx context.Context, merchantTxnID string) (*Draft, error)

	// Discard deletes the draft. Discarding a missing draft is not an error.
	Discard(ctx context.Context, merchantTxnID string) error
}
