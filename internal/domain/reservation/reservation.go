package reservation

import (
	"strings"
	"time"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
	"github.com/google/uuid"
)

// Status is the reservation lifecycle state.
type Status string

const (
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

var transitions = map[Status][]Status{
	StatusConfirmed:  {StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return st, nil
	}
	return "", apperror.NewValidationError("unknown reservation status " + s)
}

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	_, ok := transitions[s]
	return !ok
}

// CanTransitionTo reports whether the lifecycle allows s -> to.
func (s Status) CanTransitionTo(to Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// PaymentMethod records how the group is paid for.
type PaymentMethod string

const (
	PaymentAtVenue PaymentMethod = "venue"
	PaymentOnline  PaymentMethod = "online"
)

// Pricing is the group price stamped on every row of the group.
type Pricing struct {
	OriginalMinor      int64
	FinalMinor         int64
	DiscountPercentage float64
}

// Reservation holds one station for one slot.
type Reservation struct {
	id                 uuid.UUID
	resourceID         uuid.UUID
	customerID         uuid.UUID
	groupID            uuid.UUID
	bookingDate        time.Time
	startsAt           time.Time
	endsAt             time.Time
	durationMinutes    int
	status             Status
	originalPriceMinor int64
	discountPercentage float64
	finalPriceMinor    int64
	couponCode         string
	paymentMethod      PaymentMethod
	orderID            string
	statusUpdatedAt    *time.Time
	statusUpdatedBy    string
	version            int64
	createdAt          time.Time
	updatedAt          time.Time
}

// NewParams are the inputs for one reservation row.
type NewParams struct {
	ResourceID    uuid.UUID
	GroupID       uuid.UUID
	Date          time.Time
	Slot          TimeSlot
	Pricing       Pricing
	CouponCode    string
	PaymentMethod PaymentMethod
	OrderID       string
}

// NewReservation creates a confirmed reservation. The customer is attached at
// materialization time.
func NewReservation(p NewParams) (*Reservation, error) {
	if !p.Slot.End.After(p.Slot.Start) {
		return nil, apperror.NewValidationError("slot end must be after slot start")
	}
	if p.Pricing.FinalMinor < 0 || p.Pricing.FinalMinor > p.Pricing.OriginalMinor {
		return nil, apperror.NewValidationError("final price must be between zero and the original price")
	}
	if p.PaymentMethod == PaymentOnline && p.OrderID == "" {
		return nil, apperror.NewValidationError("online reservations require a settled order id")
	}
	now := time.Now().UTC()
	return &Reservation{
		id:                 uuid.New(),
		resourceID:         p.ResourceID,
		groupID:            p.GroupID,
		bookingDate:        p.Date,
		startsAt:           p.Slot.Start,
		endsAt:             p.Slot.End,
		durationMinutes:    int(p.Slot.Minutes()),
		status:             StatusConfirmed,
		originalPriceMinor: p.Pricing.OriginalMinor,
		discountPercentage: p.Pricing.DiscountPercentage,
		finalPriceMinor:    p.Pricing.FinalMinor,
		couponCode:         p.CouponCode,
		paymentMethod:      p.PaymentMethod,
		orderID:            p.OrderID,
		version:            1,
		createdAt:          now,
		updatedAt:          now,
	}, nil
}

// --- Getters ---

func (r *Reservation) ID() uuid.UUID                { return r.id }
func (r *Reservation) ResourceID() uuid.UUID        { return r.resourceID }
func (r *Reservation) CustomerID() uuid.UUID        { return r.customerID }
func (r *Reservation) GroupID() uuid.UUID           { return r.groupID }
func (r *Reservation) BookingDate() time.Time       { return r.bookingDate }
func (r *Reservation) StartsAt() time.Time          { return r.startsAt }
func (r *Reservation) EndsAt() time.Time            { return r.endsAt }
func (r *Reservation) DurationMinutes() int         { return r.durationMinutes }
func (r *Reservation) Status() Status               { return r.status }
func (r *Reservation) OriginalPriceMinor() int64    { return r.originalPriceMinor }
func (r *Reservation) DiscountPercentage() float64  { return r.discountPercentage }
func (r *Reservation) FinalPriceMinor() int64       { return r.finalPriceMinor }
func (r *Reservation) CouponCode() string           { return r.couponCode }
func (r *Reservation) PaymentMethod() PaymentMethod { return r.paymentMethod }
func (r *Reservation) OrderID() string              { return r.orderID }
func (r *Reservation) StatusUpdatedAt() *time.Time  { return r.statusUpdatedAt }
func (r *Reservation) StatusUpdatedBy() string      { return r.statusUpdatedBy }
func (r *Reservation) Version() int64               { return r.version }
func (r *Reservation) CreatedAt() time.Time         { return r.createdAt }
func (r *Reservation) UpdatedAt() time.Time         { return r.updatedAt }

// Active reports whether the reservation still holds its station.
func (r *Reservation) Active() bool { return r.status != StatusCancelled }

// AttachCustomer links the row to the customer resolved inside the write transaction.
func (r *Reservation) AttachCustomer(customerID uuid.UUID) {
	r.customerID = customerID
}

// --- Lifecycle ---

// TransitionTo moves the reservation to a new status at the given time,
// attributed to by.
func (r *Reservation) TransitionTo(to Status, by string, at time.Time) error {
	by = strings.TrimSpace(by)
	if by == "" {
		return apperror.NewValidationError("status changes must be attributed to a staff member")
	}
	if !r.status.CanTransitionTo(to) {
		return apperror.NewInvalidStateError(string(r.status), string(to))
	}
	at = at.UTC()
	r.status = to
	r.statusUpdatedAt = &at
	r.statusUpdatedBy = by
	r.updatedAt = at
	return nil
}

func (r *Reservation) Start(by string, at time.Time) error {
	return r.TransitionTo(StatusInProgress, by, at)
}
func (r *Reservation) Complete(by string, at time.Time) error {
	return r.TransitionTo(StatusCompleted, by, at)
}
func (r *Reservation) Cancel(by string, at time.Time) error {
	return r.TransitionTo(StatusCancelled, by, at)
}
func (r *Reservation) MarkNoShow(by string, at time.Time) error {
	return r.TransitionTo(StatusNoShow, by, at)
}

// IncrementVersion bumps the version for optimistic locking. The
// transition that precedes it has already stamped updatedAt.
func (r *Reservation) IncrementVersion() {
	r.version++
}

// Reconstitute rebuilds a Reservation from persisted data.
func Reconstitute(
	id, resourceID, customerID, groupID uuid.UUID,
	bookingDate, startsAt, endsAt time.Time,
	durationMinutes int,
	status Status,
	originalPriceMinor int64,
	discountPercentage float64,
	finalPriceMinor int64,
	couponCode string,
	paymentMethod PaymentMethod,
	orderID string,
	statusUpdatedAt *time.Time,
	statusUpdatedBy string,
	version int64,
	createdAt, updatedAt time.Time,
) *Reservation {
	return &Reservation{
		id:                 id,
		resourceID:         resourceID,
		customerID:         customerID,
		groupID:            groupID,
		bookingDate:        bookingDate,
		startsAt:           startsAt,
		endsAt:             endsAt,
		durationMinutes:    durationMinutes,
		status:             status,
		originalPriceMinor: originalPriceMinor,
		discountPercentage: discountPercentage,
		finalPriceMinor:    finalPriceMinor,
		couponCode:         couponCode,
		paymentMethod:      paymentMethod,
		orderID:            orderID,
		statusUpdatedAt:    statusUpdatedAt,
		statusUpdatedBy:    statusUpdatedBy,
		version:            version,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}
}
