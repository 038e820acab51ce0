package handler

import (
	"context"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/application"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/response"
	"github.com/gin-gonic/gin"
)

// CouponService is what the coupon routes need.
type CouponService interface {
	Catalog() []application.CouponRuleDTO
	Apply(ctx context.Context, req application.ApplyCouponRequest) (*application.CouponStateDTO, error)
	Remove(ctx context.Context, req application.RemoveCouponRequest) (*application.CouponStateDTO, error)
	Revalidate(ctx context.Context, req application.QuoteRequest) (*application.CouponStateDTO, error)
}

// QuoteService prices a selection.
type QuoteService interface {
	Quote(ctx context.Context, req application.QuoteRequest) (*application.CouponStateDTO, error)
}

// CouponHandler handles coupon application and price quotes.
type CouponHandler struct {
	coupons CouponService
	pricing QuoteService
}

// NewCouponHandler creates a new CouponHandler.
func NewCouponHandler(coupons CouponService, pricing QuoteService) *CouponHandler {
	return &CouponHandler{coupons: coupons, pricing: pricing}
}

// RegisterRoutes registers coupon and pricing routes.
func (h *CouponHandler) RegisterRoutes(r *gin.RouterGroup) {
	coupons := r.Group("/coupons")
	{
		coupons.GET("", h.Catalog)
		coupons.POST("/apply", h.Apply)
		coupons.POST("/remove", h.Remove)
		coupons.POST("/revalidate", h.Revalidate)
	}
	r.POST("/pricing/quote", h.Quote)
}

// Catalog handles GET /api/v1/coupons.
func (h *CouponHandler) Catalog(c *gin.Context) {
	response.Success(c, h.coupons.Catalog())
}

// Apply handles POST /api/v1/coupons/apply.
func (h *CouponHandler) Apply(c *gin.Context) {
	var req application.ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	state, err := h.coupons.Apply(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, state)
}

// Remove handles POST /api/v1/coupons/remove.
func (h *CouponHandler) Remove(c *gin.Context) {
	var req application.RemoveCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	state, err := h.coupons.Remove(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, state)
}

// Revalidate handles POST /api/v1/coupons/revalidate.
func (h *CouponHandler) Revalidate(c *gin.Context) {
	var req application.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	state, err := h.coupons.Revalidate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, state)
}

// Quote handles POST /api/v1/pricing/quote.
func (h *CouponHandler) Quote(c *gin.Context) {
	var req application.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	state, err := h.pricing.Quote(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, state)
}
