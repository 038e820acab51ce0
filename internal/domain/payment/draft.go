package payment

import (
	"time"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/coupon"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/customer"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/pricing"
	"github.com/google/uuid"
)

// Draft is the booking intent snapshotted before the payer leaves for the
// provider. It carries everything needed to materialize the reservation later.
type Draft struct {
	MerchantTxnID string             `json:"merchant_txn_id"`
	Customer      customer.Info      `json:"customer"`
	ResourceIDs   []uuid.UUID        `json:"resource_ids"`
	Date          string             `json:"date"`
	SlotStart     time.Time          `json:"slot_start"`
	SlotEnd       time.Time          `json:"slot_end"`
	Quote         pricing.Quote      `json:"quote"`
	Coupons       coupon.Application `json:"coupons"`
	StagedAt      time.Time          `json:"staged_at"`
}

// ProviderState is the provider's authoritative view of a payment.
type ProviderState string

const (
	ProviderInitiated ProviderState = "INITIATED"
	ProviderPending   ProviderState = "PENDING"
	ProviderCompleted ProviderState = "COMPLETED"
	ProviderFailed    ProviderState = "FAILED"
)

// StatusResult is one answer from the provider's status endpoint.
type StatusResult struct {
	State   ProviderState
	OrderID string
	Message string
	Raw     []byte
}
