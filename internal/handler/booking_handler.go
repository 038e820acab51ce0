package handler

import (
	"context"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/application"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/middleware"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BookingService is what the booking routes need.
type BookingService interface {
	CreateVenueBooking(ctx context.Context, req application.CreateBookingRequest) (*application.ConfirmationDTO, error)
	GetConfirmation(ctx context.Context, groupID uuid.UUID) (*application.ConfirmationDTO, error)
}

// ReservationAdmin is what the staff routes need.
type ReservationAdmin interface {
	GetReservation(ctx context.Context, id uuid.UUID) (*application.ReservationDTO, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, staffID string, req application.UpdateStatusRequest) (*application.ReservationDTO, error)
}

// BookingHandler handles pay-at-venue bookings and staff lifecycle changes.
type BookingHandler struct {
	bookings BookingService
	admin    ReservationAdmin
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookings BookingService, admin ReservationAdmin) *BookingHandler {
	return &BookingHandler{bookings: bookings, admin: admin}
}

// RegisterRoutes registers booking and admin reservation routes.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup) {
	bookings := r.Group("/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("/:groupId", h.GetBooking)
	}

	admin := r.Group("/admin/reservations")
	{
		admin.GET("/:id", h.GetReservation)
		admin.PATCH("/:id/status", h.UpdateStatus)
	}
}

// CreateBooking handles POST /api/v1/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	conf, err := h.bookings.CreateVenueBooking(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, conf)
}

// GetBooking handles GET /api/v1/bookings/:groupId.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("groupId"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	conf, err := h.bookings.GetConfirmation(c.Request.Context(), groupID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, conf)
}

// GetReservation handles GET /api/v1/admin/reservations/:id.
func (h *BookingHandler) GetReservation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid reservation ID")
		return
	}

	dto, err := h.admin.GetReservation(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}

// UpdateStatus handles PATCH /api/v1/admin/reservations/:id/status. The
// acting staff member comes from the X-Staff-ID header.
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid reservation ID")
		return
	}
	staffID, ok := middleware.GetStaffID(c)
	if !ok {
		response.BadRequest(c, "missing "+middleware.HeaderStaffID+" header")
		return
	}

	var req application.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.admin.UpdateStatus(c.Request.Context(), id, staffID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}
