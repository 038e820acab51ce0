package application

import (
	"context"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/reservation"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UpdateStatusRequest moves a reservation through its lifecycle.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ReservationAdminService applies staff lifecycle changes.
type ReservationAdminService struct {
	reservations reservation.Repository
	notifier     *ChangeNotifier
	clock        clock.Clock
	logger       *zap.Logger
}

// NewReservationAdminService creates a new ReservationAdminService.
func NewReservationAdminService(reservations reservation.Repository, notifier *ChangeNotifier, clk clock.Clock, logger *zap.Logger) *ReservationAdminService {
	return &ReservationAdminService{reservations: reservations, notifier: notifier, clock: clk, logger: logger}
}

// GetReservation retrieves one reservation.
func (s *ReservationAdminService) GetReservation(ctx context.Context, id uuid.UUID) (*ReservationDTO, error) {
	r, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toReservationDTO(r)
	return &dto, nil
}

// UpdateStatus transitions a reservation and records the staff member.
func (s *ReservationAdminService) UpdateStatus(ctx context.Context, id uuid.UUID, staffID string, req UpdateStatusRequest) (*ReservationDTO, error) {
	if staffID == "" {
		return nil, apperror.NewValidationError("staff id is required for status changes")
	}
	to, err := reservation.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}
	r, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := r.Status()
	if err := r.TransitionTo(to, staffID, s.clock.Now()); err != nil {
		return nil, err
	}
	r.IncrementVersion()
	if err := s.reservations.Update(ctx, r); err != nil {
		return nil, err
	}

	s.logger.Info("reservation status changed",
		zap.String("reservation_id", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("staff_id", staffID),
	)
	s.notifier.Notify(ctx, reservation.EventReservationStatusChanged, []*reservation.Reservation{r})

	dto := toReservationDTO(r)
	return &dto, nil
}
