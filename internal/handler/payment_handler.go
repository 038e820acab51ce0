package handler

import (
	"context"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/application"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/response"
	"github.com/gin-gonic/gin"
)

// PaymentReconciler is what the payment routes need.
type PaymentReconciler interface {
	StartCheckout(ctx context.Context, req application.CheckoutRequest) (*application.CheckoutSessionDTO, error)
	HandleReturn(ctx context.Context, ref string) (*application.PaymentOutcomeDTO, error)
	CheckStatus(ctx context.Context, merchantTxnID string) (*application.PaymentOutcomeDTO, error)
	GetAttempt(ctx context.Context, merchantTxnID string) (*application.PaymentAttemptDTO, error)
}

// PaymentHandler handles online checkout and the provider return flow.
type PaymentHandler struct {
	reconciler PaymentReconciler
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(reconciler PaymentReconciler) *PaymentHandler {
	return &PaymentHandler{reconciler: reconciler}
}

// RegisterRoutes registers all payment routes on the given router group.
func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup) {
	payments := r.Group("/payments")
	{
		payments.POST("/checkout", h.Checkout)
		payments.GET("/return", h.Return)
		payments.POST("/:merchantTxnId/check", h.Check)
		payments.GET("/:merchantTxnId", h.GetAttempt)
	}
}

// Checkout handles POST /api/v1/payments/checkout
func (h *PaymentHandler) Checkout(c *gin.Context) {
	var req application.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	session, err := h.reconciler.StartCheckout(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Return handles GET /api/v1/payments/return?ref=. Providers append either
// the merchant transaction id or their order id.
func (h *PaymentHandler) Return(c *gin.Context) {
	ref := c.Query("ref")
	if ref == "" {
		ref = c.Query("merchant_txn_id")
	}
	if ref == "" {
		ref = c.Query("order_id")
	}
	if ref == "" {
		response.BadRequest(c, "missing payment reference")
		return
	}

	outcome, err := h.reconciler.HandleReturn(c.Request.Context(), ref)
	h.writeOutcome(c, outcome, err)
}

// Check handles POST /api/v1/payments/:merchantTxnId/check
func (h *PaymentHandler) Check(c *gin.Context) {
	outcome, err := h.reconciler.CheckStatus(c.Request.Context(), c.Param("merchantTxnId"))
	h.writeOutcome(c, outcome, err)
}

// GetAttempt handles GET /api/v1/payments/:merchantTxnId
func (h *PaymentHandler) GetAttempt(c *gin.Context) {
	dto, err := h.reconciler.GetAttempt(c.Request.Context(), c.Param("merchantTxnId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}

func (h *PaymentHandler) writeOutcome(c *gin.Context, outcome *application.PaymentOutcomeDTO, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	if outcome.Status == application.OutcomeProcessing {
		response.Accepted(c, outcome)
		return
	}
	response.Success(c, outcome)
}
