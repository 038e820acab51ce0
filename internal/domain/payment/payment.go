package payment

import (
	"time"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
	"github.com/google/uuid"
)

// AttemptState represents the reconciliation state of an online payment.
type AttemptState string

const (
	StateDraftStaged   AttemptState = "DRAFT_STAGED"
	StateIntentCreated AttemptState = "INTENT_CREATED"
	StatePending       AttemptState = "PENDING"
	StateCompleted     AttemptState = "COMPLETED"
	StateFailed        AttemptState = "FAILED"
	StateMaterialized  AttemptState = "MATERIALIZED"
)

// AwaitingProvider reports whether the attempt still needs a status check.
func (s AttemptState) AwaitingProvider() bool {
	return s == StateIntentCreated || s == StatePending
}

// Terminal reports whether the attempt can no longer change.
func (s AttemptState) Terminal() bool {
	return s == StateFailed || s == StateMaterialized
}

// Attempt is the aggregate root tracking one checkout from draft to reservation.
type Attempt struct {
	id            uuid.UUID
	merchantTxnID string
	orderID       string
	provider      string
	amountMinor   int64
	currency      string
	payerPhone    string
	state         AttemptState
	redirectURL   string
	failureReason string
	groupID       *uuid.UUID
	needsFollowUp bool
	lastCheckedAt *time.Time
	version       int64
	createdAt     time.Time
	updatedAt     time.Time
}

// NewAttempt creates an attempt in DRAFT_STAGED. A zero amount is rejected:
// free bookings go through the pay-at-venue path.
func NewAttempt(merchantTxnID, provider string, amountMinor int64, currency, payerPhone string) (*Attempt, error) {
	if amountMinor <= 0 {
		return nil, apperror.NewValidationError("nothing to pay online; confirm this booking with pay at venue").
			WithDetail("reason", "zero_amount")
	}
	if merchantTxnID == "" {
		return nil, apperror.NewValidationError("merchant transaction id is required")
	}
	now := time.Now().UTC()
	return &Attempt{
		id:            uuid.New(),
		merchantTxnID: merchantTxnID,
		provider:      provider,
		amountMinor:   amountMinor,
		currency:      currency,
		payerPhone:    payerPhone,
		state:         StateDraftStaged,
		version:       1,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// NewMerchantTxnID generates the client-side transaction id sent to the provider.
func NewMerchantTxnID() string {
	id := uuid.New()
	return "ARC" + id.String()[:8] + id.String()[9:13] + id.String()[14:18]
}

// --- Getters ---

func (a *Attempt) ID() uuid.UUID              { return a.id }
func (a *Attempt) MerchantTxnID() string      { return a.merchantTxnID }
func (a *Attempt) OrderID() string            { return a.orderID }
func (a *Attempt) Provider() string           { return a.provider }
func (a *Attempt) AmountMinor() int64         { return a.amountMinor }
func (a *Attempt) Currency() string           { return a.currency }
func (a *Attempt) PayerPhone() string         { return a.payerPhone }
func (a *Attempt) State() AttemptState        { return a.state }
func (a *Attempt) RedirectURL() string        { return a.redirectURL }
func (a *Attempt) FailureReason() string      { return a.failureReason }
func (a *Attempt) GroupID() *uuid.UUID        { return a.groupID }
func (a *Attempt) NeedsFollowUp() bool        { return a.needsFollowUp }
func (a *Attempt) LastCheckedAt() *time.Time  { return a.lastCheckedAt }
func (a *Attempt) Version() int64             { return a.version }
func (a *Attempt) CreatedAt() time.Time       { return a.createdAt }
func (a *Attempt) UpdatedAt() time.Time       { return a.updatedAt }

// --- Behavior / State Transitions ---

// MarkIntentCreated records the provider session the payer is redirected to.
func (a *Attempt) MarkIntentCreated(orderID, redirectURL string) error {
	if a.state != StateDraftStaged {
		return apperror.NewInvalidStateError(string(a.state), string(StateIntentCreated))
	}
	a.state = StateIntentCreated
	a.orderID = orderID
	a.redirectURL = redirectURL
	a.touch()
	return nil
}

// MarkPending records that the provider has not settled yet.
func (a *Attempt) MarkPending() error {
	if !a.state.AwaitingProvider() {
		return apperror.NewInvalidStateError(string(a.state), string(StatePending))
	}
	a.state = StatePending
	a.checked()
	return nil
}

// MarkCompleted records settlement. A provider order id learned at this point
// replaces the one known at intent time.
func (a *Attempt) MarkCompleted(orderID string) error {
	if a.state == StateCompleted {
		return nil
	}
	if !a.state.AwaitingProvider() {
		return apperror.NewInvalidStateError(string(a.state), string(StateCompleted))
	}
	if orderID != "" {
		a.orderID = orderID
	}
	a.state = StateCompleted
	a.checked()
	return nil
}

// MarkFailed records a provider failure or a compensated checkout.
func (a *Attempt) MarkFailed(reason string) error {
	if a.state.Terminal() || a.state == StateCompleted {
		return apperror.NewInvalidStateError(string(a.state), string(StateFailed))
	}
	a.state = StateFailed
	a.failureReason = reason
	a.checked()
	return nil
}

// MarkMaterialized links the settled attempt to its reservation group.
func (a *Attempt) MarkMaterialized(groupID uuid.UUID) error {
	if a.state == StateMaterialized && a.groupID != nil && *a.groupID == groupID {
		return nil
	}
	if a.state != StateCompleted {
		return apperror.NewInvalidStateError(string(a.state), string(StateMaterialized))
	}
	a.state = StateMaterialized
	a.groupID = &groupID
	a.needsFollowUp = false
	a.touch()
	return nil
}

// FlagForFollowUp marks a settled payment that could not be materialized.
func (a *Attempt) FlagForFollowUp(reason string) {
	a.needsFollowUp = true
	a.failureReason = reason
	a.touch()
}

// RecordCheck stamps a status check that left the state unchanged.
func (a *Attempt) RecordCheck() { a.checked() }

// IncrementVersion bumps the version for optimistic locking.
func (a *Attempt) IncrementVersion() {
	a.version++
	a.updatedAt = time.Now().UTC()
}

func (a *Attempt) touch() { a.updatedAt = time.Now().UTC() }

func (a *Attempt) checked() {
	now := time.Now().UTC()
	a.lastCheckedAt = &now
	a.updatedAt = now
}

// --- Reconstitution (used by repository to rebuild from persistence) ---

// Reconstitute rebuilds an Attempt from persisted data.
func Reconstitute(
	id uuid.UUID,
	merchantTxnID, orderID, provider string,
	amountMinor int64,
	currency, payerPhone string,
	state AttemptState,
	redirectURL, failureReason string,
	groupID *uuid.UUID,
	needsFollowUp bool,
	lastCheckedAt *time.Time,
	version int64,
	createdAt, updatedAt time.Time,
) *Attempt {
	return &Attempt{
		id:            id,
		merchantTxnID: merchantTxnID,
		orderID:       orderID,
		provider:      provider,
		amountMinor:   amountMinor,
		currency:      currency,
		payerPhone:    payerPhone,
		state:         state,
		redirectURL:   redirectURL,
		failureReason: failureReason,
		groupID:       groupID,
		needsFollowUp: needsFollowUp,
		lastCheckedAt: lastCheckedAt,
		version:       version,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}
