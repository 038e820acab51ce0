package application

import (
	"context"
	"time"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/coupon"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/customer"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/payment"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/pricing"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/reservation"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/resource"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateBookingRequest books a committed selection and pays at the venue.
// AttestationConfirmed re-confirms codes that need attestation.
type CreateBookingRequest struct {
	SelectionRequest
	Coupons              string        `json:"coupons"`
	Customer             customer.Info `json:"customer"`
	AttestationConfirmed *bool         `json:"attestation_confirmed"`
}

// BookingService writes reservation groups.
type BookingService struct {
	selector     *Selector
	pricing      *PricingService
	resources    resource.Repository
	reservations reservation.Repository
	notifier     *ChangeNotifier
	clock        clock.Clock
	logger       *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	selector *Selector,
	pricing *PricingService,
	resources resource.Repository,
	reservations reservation.Repository,
	notifier *ChangeNotifier,
	clk clock.Clock,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		selector:     selector,
		pricing:      pricing,
		resources:    resources,
		reservations: reservations,
		notifier:     notifier,
		clock:        clk,
		logger:       logger,
	}
}

// CreateVenueBooking re-prices the selection and writes the whole group in one
// transaction. An overlapping reservation fails the entire group.
func (s *BookingService) CreateVenueBooking(ctx context.Context, req CreateBookingRequest) (*ConfirmationDTO, error) {
	info := req.Customer.Normalize()
	if err := info.Validate(); err != nil {
		return nil, err
	}
	app, err := coupon.ParseApplication(req.Coupons)
	if err != nil {
		return nil, err
	}
	sel, err := s.selector.Resolve(ctx, req.SelectionRequest)
	if err != nil {
		return nil, err
	}
	if err := requireBookable(sel, s.clock.Now()); err != nil {
		return nil, err
	}

	q, current, _ := s.pricing.Price(sel, app)
	if err := s.pricing.ConfirmAttestations(ctx, current, req.AttestationConfirmed); err != nil {
		return nil, err
	}

	rows, err := buildRows(sel.ResourceIDs(), sel.Day, *sel.Slot, q, reservation.PaymentAtVenue, "")
	if err != nil {
		return nil, err
	}

	s.logger.Info("creating venue booking",
		zap.String("date", sel.Date),
		zap.String("slot", sel.Slot.Label()),
		zap.Int("stations", len(rows)),
		zap.Int64("final_amount", q.Final),
	)

	group, err := s.reservations.CreateGroup(ctx, reservation.GroupWrite{Customer: info, Reservations: rows})
	if err != nil {
		s.logger.Warn("venue booking rejected", zap.Error(err))
		return nil, err
	}
	s.notifier.Notify(ctx, reservation.EventReservationCreated, group.Reservations)

	dto := toConfirmationDTO(group, sel.Names(), s.selector.Schedule().Location())
	return &dto, nil
}

// Materialize writes the group a settled payment paid for. The order id is
// claimed in the same transaction; a second call for the same order returns
// the existing group with Existing set and writes nothing.
func (s *BookingService) Materialize(ctx context.Context, draft *payment.Draft, orderID string) (*reservation.GroupResult, error) {
	day, err := s.selector.Schedule().ParseDate(draft.Date)
	if err != nil {
		return nil, err
	}
	slot := reservation.TimeSlot{Start: draft.SlotStart, End: draft.SlotEnd}

	rows, err := buildRows(draft.ResourceIDs, day, slot, draft.Quote, reservation.PaymentOnline, orderID)
	if err != nil {
		return nil, err
	}

	group, err := s.reservations.CreateGroup(ctx, reservation.GroupWrite{
		Customer:     draft.Customer,
		Reservations: rows,
		Materialization: &reservation.Materialization{
			OrderID:       orderID,
			MerchantTxnID: draft.MerchantTxnID,
		},
	})
	if err != nil {
		return nil, err
	}
	if group.Existing {
		s.logger.Info("order already materialized", zap.String("order_id", orderID), zap.String("group_id", group.GroupID.String()))
		return group, nil
	}

	s.logger.Info("payment materialized",
		zap.String("order_id", orderID),
		zap.String("merchant_txn_id", draft.MerchantTxnID),
		zap.String("group_id", group.GroupID.String()),
	)
	s.notifier.Notify(ctx, reservation.EventReservationCreated, group.Reservations)
	return group, nil
}

// GetConfirmation looks up a booking by group id.
func (s *BookingService) GetConfirmation(ctx context.Context, groupID uuid.UUID) (*ConfirmationDTO, error) {
	group, err := s.reservations.FindGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.Confirmation(ctx, group), nil
}

// Confirmation renders a persisted group. Station names fall back to ids when
// the catalog cannot be read.
func (s *BookingService) Confirmation(ctx context.Context, group *reservation.GroupResult) *ConfirmationDTO {
	names := make(map[uuid.UUID]string)
	if all, err := s.resources.ListActive(ctx); err != nil {
		s.logger.Warn("station names unavailable for confirmation", zap.Error(err))
	} else {
		for _, r := range all {
			names[r.ID()] = r.Name()
		}
	}
	dto := toConfirmationDTO(group, names, s.selector.Schedule().Location())
	return &dto
}

// buildRows creates one confirmed row per station. Every row carries the group
// price and the full coupon string.
func buildRows(
	resourceIDs []uuid.UUID,
	day time.Time,
	slot reservation.TimeSlot,
	q pricing.Quote,
	method reservation.PaymentMethod,
	orderID string,
) ([]*reservation.Reservation, error) {
	if len(resourceIDs) == 0 {
		return nil, apperror.NewValidationError("select at least one station")
	}
	groupID := uuid.New()
	rows := make([]*reservation.Reservation, 0, len(resourceIDs))
	for _, id := range resourceIDs {
		r, err := reservation.NewReservation(reservation.NewParams{
			ResourceID: id,
			GroupID:    groupID,
			Date:       day,
			Slot:       slot,
			Pricing: reservation.Pricing{
				OriginalMinor:      q.Original,
				FinalMinor:         q.Final,
				DiscountPercentage: q.DiscountPercentage,
			},
			CouponCode:    q.Coupons,
			PaymentMethod: method,
			OrderID:       orderID,
		})
		if err != nil {
			return nil, err
		}
		rows = append(rows, r)
	}
	return rows, nil
}
