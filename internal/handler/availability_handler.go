package handler

import (
	"context"
	"io"
	"strconv"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/application"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/reservation"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AvailabilityService is what the availability routes need.
type AvailabilityService interface {
	ListResources(ctx context.Context) ([]application.CategoryGroupDTO, error)
	GetSlots(ctx context.Context, date string, resourceID uuid.UUID, minutes int) ([]application.SlotDTO, error)
	PreviewAvailability(ctx context.Context, req application.PreviewRequest) ([]application.PreviewSlotDTO, error)
	CommitSlot(ctx context.Context, req application.CommitRequest) (*application.CommitResultDTO, error)
}

// ChangeSubscriber hands out reservation change feeds.
type ChangeSubscriber interface {
	Subscribe() (<-chan reservation.ChangedEvent, func())
}

// AvailabilityHandler handles station listing and slot selection.
type AvailabilityHandler struct {
	service AvailabilityService
	changes ChangeSubscriber
	logger  *zap.Logger
}

// NewAvailabilityHandler creates a new AvailabilityHandler.
func NewAvailabilityHandler(service AvailabilityService, changes ChangeSubscriber, logger *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{service: service, changes: changes, logger: logger}
}

// RegisterRoutes registers station and availability routes.
func (h *AvailabilityHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/resources", h.ListResources)

	avail := r.Group("/availability")
	{
		avail.GET("/slots", h.GetSlots)
		avail.POST("/preview", h.Preview)
		avail.POST("/commit", h.Commit)
		avail.GET("/changes", h.StreamChanges)
	}
}

// ListResources handles GET /api/v1/resources.
func (h *AvailabilityHandler) ListResources(c *gin.Context) {
	groups, err := h.service.ListResources(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, groups)
}

// GetSlots handles GET /api/v1/availability/slots?resource_id=&date=&duration=.
func (h *AvailabilityHandler) GetSlots(c *gin.Context) {
	resourceID, err := uuid.Parse(c.Query("resource_id"))
	if err != nil {
		response.BadRequest(c, "invalid resource ID")
		return
	}
	date := c.Query("date")
	if date == "" {
		response.BadRequest(c, "date is required")
		return
	}
	minutes := 0
	if raw := c.Query("duration"); raw != "" {
		if minutes, err = strconv.Atoi(raw); err != nil {
			response.BadRequest(c, "duration must be a number of minutes")
			return
		}
	}

	slots, err := h.service.GetSlots(c.Request.Context(), date, resourceID, minutes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, slots)
}

// Preview handles POST /api/v1/availability/preview.
func (h *AvailabilityHandler) Preview(c *gin.Context) {
	var req application.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	slots, err := h.service.PreviewAvailability(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, slots)
}

// Commit handles POST /api/v1/availability/commit.
func (h *AvailabilityHandler) Commit(c *gin.Context) {
	var req application.CommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CommitSlot(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// StreamChanges handles GET /api/v1/availability/changes as server-sent
// events. Clients refetch the slots of the listed stations on each event.
func (h *AvailabilityHandler) StreamChanges(c *gin.Context) {
	feed, cancel := h.changes.Subscribe()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case evt, ok := <-feed:
			if !ok {
				return false
			}
			c.SSEvent(evt.Type, evt)
			return true
		}
	})
	h.logger.Debug("availability stream closed")
}
