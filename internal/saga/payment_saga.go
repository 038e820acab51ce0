package saga

import (
	"context"
	"time"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/adapter"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/payment"
	"go.uber.org/zap"
)

// CheckoutSagaService stages a booking draft and opens a provider checkout for it.
type CheckoutSagaService struct {
	drafts   payment.DraftStore
	attempts payment.AttemptRepository
	gateway  adapter.PaymentGateway
	draftTTL time.Duration
	logger   *zap.Logger
}

// NewCheckoutSagaService creates a new CheckoutSagaService.
func NewCheckoutSagaService(
	drafts payment.DraftStore,
	attempts payment.AttemptRepository,
	gateway adapter.PaymentGateway,
	draftTTL time.Duration,
	logger *zap.Logger,
) *CheckoutSagaService {
	return &CheckoutSagaService{
		drafts:   drafts,
		attempts: attempts,
		gateway:  gateway,
		draftTTL: draftTTL,
		logger:   logger,
	}
}

// StartCheckoutSaga stages the draft, records the attempt, creates the provider
// intent and marks the attempt INTENT_CREATED. Any failure discards the draft
// and fails the attempt.
func (s *CheckoutSagaService) StartCheckoutSaga(
	ctx context.Context,
	draft *payment.Draft,
	attempt *payment.Attempt,
	req adapter.IntentRequest,
) (*adapter.Intent, error) {
	var intent *adapter.Intent

	saga := NewSaga("start_checkout", s.logger)

	// Step 1: Stage the draft so it survives the redirect
	saga.AddStep(SagaStep{
		Name: "stage_draft",
		Execute: func(ctx context.Context) error {
			return s.drafts.Stage(ctx, draft, s.draftTTL)
		},
		Compensate: func(ctx context.Context) error {
			return s.drafts.Discard(ctx, draft.MerchantTxnID)
		},
	})

	// Step 2: Persist the attempt
	saga.AddStep(SagaStep{
		Name: "save_attempt",
		Execute: func(ctx context.Context) error {
			return s.attempts.Save(ctx, attempt)
		},
		Compensate: func(ctx context.Context) error {
			stored, err := s.attempts.FindByMerchantTxnID(ctx, attempt.MerchantTxnID())
			if err != nil {
				return err
			}
			if err := stored.MarkFailed("checkout could not be started"); err != nil {
				return err
			}
			stored.IncrementVersion()
			return s.attempts.Update(ctx, stored)
		},
	})

	// Step 3: Create the provider checkout; unpaid sessions expire on their own
	saga.AddStep(SagaStep{
		Name: "create_payment_intent",
		Execute: func(ctx context.Context) error {
			var err error
			intent, err = s.gateway.CreateIntent(ctx, req)
			return err
		},
	})

	// Step 4: Record the provider session on the attempt
	saga.AddStep(SagaStep{
		Name: "mark_intent_created",
		Execute: func(ctx context.Context) error {
			if err := attempt.MarkIntentCreated(intent.OrderID, intent.RedirectURL); err != nil {
				return err
			}
			attempt.IncrementVersion()
			return s.attempts.Update(ctx, attempt)
		},
	})

	if err := saga.Execute(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("checkout started",
		zap.String("merchant_txn_id", attempt.MerchantTxnID()),
		zap.String("order_id", intent.OrderID),
		zap.String("provider", s.gateway.Name()),
		zap.Int64("amount_minor", attempt.AmountMinor()),
	)
	return intent, nil
}
