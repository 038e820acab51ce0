package adapter

import (
	"context"
	"fmt"
	"sync"

	paymentDomain "github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/payment"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IntentRequest describes the payment the payer is sent off-site to complete.
type IntentRequest struct {
	MerchantTxnID string
	AmountMinor   int64
	Currency      string
	PayerName     string
	PayerPhone    string
	Description   string
	RedirectURL   string
}

// Intent is the provider session created for an IntentRequest.
type Intent struct {
	OrderID     string
	RedirectURL string
}

// StatusQuery identifies a payment at the provider. Providers use whichever
// id they understand.
type StatusQuery struct {
	MerchantTxnID string
	OrderID       string
}

// PaymentGateway is the Anti-Corruption Layer over the external payment provider.
// Transport and decoding failures are reported as payment verification errors.
type PaymentGateway interface {
	Name() string
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	GetStatus(ctx context.Context, q StatusQuery) (*paymentDomain.StatusResult, error)
}

// MockGateway is a development/testing implementation of PaymentGateway.
// Payments settle as COMPLETED unless a test sets another outcome.
type MockGateway struct {
	logger *zap.Logger

	mu       sync.Mutex
	states   map[string]paymentDomain.ProviderState
	failures map[string]error
	orders   map[string]string
}

// NewMockGateway creates a new mock gateway for development.
func NewMockGateway(logger *zap.Logger) *MockGateway {
	return &MockGateway{
		logger:   logger,
		states:   make(map[string]paymentDomain.ProviderState),
		failures: make(map[string]error),
		orders:   make(map[string]string),
	}
}

func (m *MockGateway) Name() string { return "mock" }

// SetState fixes the status the mock reports for merchantTxnID.
func (m *MockGateway) SetState(merchantTxnID string, state paymentDomain.ProviderState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[merchantTxnID] = state
	delete(m.failures, merchantTxnID)
}

// SetUnreachable makes status checks for merchantTxnID fail with err.
func (m *MockGateway) SetUnreachable(merchantTxnID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[merchantTxnID] = err
}

// CreateIntent simulates creating a hosted checkout session.
func (m *MockGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	orderID := fmt.Sprintf("mock_order_%s", uuid.New().String()[:8])

	m.mu.Lock()
	m.orders[req.MerchantTxnID] = orderID
	if _, ok := m.states[req.MerchantTxnID]; !ok {
		m.states[req.MerchantTxnID] = paymentDomain.ProviderCompleted
	}
	m.mu.Unlock()

	m.logger.Info("[MOCK PAYMENT] checkout session created",
		zap.String("merchant_txn_id", req.MerchantTxnID),
		zap.String("order_id", orderID),
		zap.Int64("amount_minor", req.AmountMinor),
		zap.String("currency", req.Currency),
	)
	return &Intent{
		OrderID:     orderID,
		RedirectURL: fmt.Sprintf("%s?merchant_txn_id=%s", req.RedirectURL, req.MerchantTxnID),
	}, nil
}

// GetStatus reports the configured outcome.
func (m *MockGateway) GetStatus(ctx context.Context, q StatusQuery) (*paymentDomain.StatusResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.failures[q.MerchantTxnID]; ok {
		return nil, apperror.NewPaymentVerificationError("payment provider unreachable", err)
	}
	state, ok := m.states[q.MerchantTxnID]
	if !ok {
		return nil, apperror.NewPaymentVerificationError(
			fmt.Sprintf("provider has no payment %s", q.MerchantTxnID), nil)
	}
	orderID := m.orders[q.MerchantTxnID]
	if orderID == "" {
		orderID = q.OrderID
	}

	m.logger.Info("[MOCK PAYMENT] status checked",
		zap.String("merchant_txn_id", q.MerchantTxnID),
		zap.String("state", string(state)),
	)
	return &paymentDomain.StatusResult{State: state, OrderID: orderID}, nil
}
