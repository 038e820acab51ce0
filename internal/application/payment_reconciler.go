package application

import (
	"context"
	"fmt"
	"time"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/adapter"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/coupon"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/customer"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/payment"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/reservation"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/clock"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/saga"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome statuses reported to the payment return page.
const (
	OutcomeConfirmed  = "confirmed"
	OutcomeProcessing = "processing"
)

// pendingSweepLimit bounds one RecheckPending pass.
const pendingSweepLimit = 50

// CheckoutRequest starts an online payment for a selection.
type CheckoutRequest struct {
	SelectionRequest
	Coupons              string        `json:"coupons"`
	Customer             customer.Info `json:"customer"`
	AttestationConfirmed *bool         `json:"attestation_confirmed"`
}

// CheckoutSessionDTO tells the client where to send the payer.
type CheckoutSessionDTO struct {
	MerchantTxnID string           `json:"merchant_txn_id"`
	OrderID       string           `json:"order_id"`
	RedirectURL   string           `json:"redirect_url"`
	Amount        int64            `json:"amount"`
	Currency      string           `json:"currency"`
	ExpiresAt     time.Time        `json:"expires_at"`
	Quote         QuoteDTO         `json:"quote"`
	Removed       []coupon.Removal `json:"removed"`
}

// PaymentOutcomeDTO is the result of reconciling one attempt.
type PaymentOutcomeDTO struct {
	Status        string           `json:"status"`
	MerchantTxnID string           `json:"merchant_txn_id"`
	OrderID       string           `json:"order_id,omitempty"`
	Message       string           `json:"message"`
	Confirmation  *ConfirmationDTO `json:"confirmation,omitempty"`
}

// PaymentAttemptDTO is the stored view of an attempt.
type PaymentAttemptDTO struct {
	MerchantTxnID string     `json:"merchant_txn_id"`
	OrderID       string     `json:"order_id,omitempty"`
	Provider      string     `json:"provider"`
	State         string     `json:"state"`
	Amount        int64      `json:"amount"`
	Currency      string     `json:"currency"`
	FailureReason string     `json:"failure_reason,omitempty"`
	GroupID       *uuid.UUID `json:"group_id,omitempty"`
	NeedsFollowUp bool       `json:"needs_follow_up"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ReconcilerConfig holds the checkout settings.
type ReconcilerConfig struct {
	Currency    string
	RedirectURL string
	DraftTTL    time.Duration
}

// PaymentReconciler turns provider payment states into reservations. The
// provider is always asked; client-reported status is never trusted.
type PaymentReconciler struct {
	cfg          ReconcilerConfig
	selector     *Selector
	pricing      *PricingService
	availability *AvailabilityService
	booking      *BookingService
	reservations reservation.Repository
	attempts     payment.AttemptRepository
	drafts       payment.DraftStore
	gateway      adapter.PaymentGateway
	checkout     *saga.CheckoutSagaService
	clock        clock.Clock
	logger       *zap.Logger
}

// NewPaymentReconciler creates a new PaymentReconciler.
func NewPaymentReconciler(
	cfg ReconcilerConfig,
	selector *Selector,
	pricing *PricingService,
	availability *AvailabilityService,
	booking *BookingService,
	reservations reservation.Repository,
	attempts payment.AttemptRepository,
	drafts payment.DraftStore,
	gateway adapter.PaymentGateway,
	checkout *saga.CheckoutSagaService,
	clk clock.Clock,
	logger *zap.Logger,
) *PaymentReconciler {
	return &PaymentReconciler{
		cfg:          cfg,
		selector:     selector,
		pricing:      pricing,
		availability: availability,
		booking:      booking,
		reservations: reservations,
		attempts:     attempts,
		drafts:       drafts,
		gateway:      gateway,
		checkout:     checkout,
		clock:        clk,
		logger:       logger,
	}
}

// StartCheckout prices the selection, stages it as a draft and opens a
// provider checkout for the final amount.
func (s *PaymentReconciler) StartCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSessionDTO, error) {
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
	now := s.clock.Now()
	if err := requireBookable(sel, now); err != nil {
		return nil, err
	}

	q, current, removed := s.pricing.Price(sel, app)
	if err := s.pricing.ConfirmAttestations(ctx, current, req.AttestationConfirmed); err != nil {
		return nil, err
	}

	txnID := payment.NewMerchantTxnID()
	attempt, err := payment.NewAttempt(txnID, s.gateway.Name(), q.Final, s.cfg.Currency, info.Phone)
	if err != nil {
		return nil, err
	}
	if err := s.availability.EnsureFree(ctx, sel); err != nil {
		return nil, err
	}

	draft := &payment.Draft{
		MerchantTxnID: txnID,
		Customer:      info,
		ResourceIDs:   sel.ResourceIDs(),
		Date:          sel.Date,
		SlotStart:     sel.Slot.Start,
		SlotEnd:       sel.Slot.End,
		Quote:         q,
		Coupons:       current,
		StagedAt:      now.UTC(),
	}
	intentReq := adapter.IntentRequest{
		MerchantTxnID: txnID,
		AmountMinor:   q.Final,
		Currency:      s.cfg.Currency,
		PayerName:     info.Name,
		PayerPhone:    info.Phone,
		Description:   fmt.Sprintf("Arcadia %s %s (%d stations)", sel.Date, sel.Slot.Label(), len(sel.Resources)),
		RedirectURL:   s.cfg.RedirectURL,
	}

	intent, err := s.checkout.StartCheckoutSaga(ctx, draft, attempt, intentReq)
	if err != nil {
		return nil, err
	}

	if removed == nil {
		removed = []coupon.Removal{}
	}
	return &CheckoutSessionDTO{
		MerchantTxnID: txnID,
		OrderID:       intent.OrderID,
		RedirectURL:   intent.RedirectURL,
		Amount:        q.Final,
		Currency:      s.cfg.Currency,
		ExpiresAt:     now.Add(s.cfg.DraftTTL).UTC(),
		Quote:         toQuoteDTO(q, sel.Minutes),
		Removed:       removed,
	}, nil
}

// HandleReturn reconciles the attempt the payer came back with. ref may be
// the merchant transaction id or the provider order id.
func (s *PaymentReconciler) HandleReturn(ctx context.Context, ref string) (*PaymentOutcomeDTO, error) {
	attempt, err := s.attempts.FindByMerchantTxnID(ctx, ref)
	if apperror.IsKind(err, apperror.KindNotFound) {
		attempt, err = s.attempts.FindByOrderID(ctx, ref)
	}
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, attempt)
}

// CheckStatus re-queries the provider for one attempt.
func (s *PaymentReconciler) CheckStatus(ctx context.Context, merchantTxnID string) (*PaymentOutcomeDTO, error) {
	attempt, err := s.attempts.FindByMerchantTxnID(ctx, merchantTxnID)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, attempt)
}

// GetAttempt returns the stored attempt without asking the provider.
func (s *PaymentReconciler) GetAttempt(ctx context.Context, merchantTxnID string) (*PaymentAttemptDTO, error) {
	a, err := s.attempts.FindByMerchantTxnID(ctx, merchantTxnID)
	if err != nil {
		return nil, err
	}
	dto := toPaymentAttemptDTO(a)
	return &dto, nil
}

// RecheckPending reconciles attempts still waiting on the provider that are
// older than a minute and younger than the draft TTL. It returns how many were
// checked.
func (s *PaymentReconciler) RecheckPending(ctx context.Context) (int, error) {
	now := s.clock.Now()
	attempts, err := s.attempts.ListAwaitingProvider(ctx, now.Add(-s.cfg.DraftTTL), now.Add(-time.Minute), pendingSweepLimit)
	if err != nil {
		return 0, err
	}
	for _, a := range attempts {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		outcome, err := s.reconcile(ctx, a)
		if err != nil {
			s.logger.Info("pending payment recheck",
				zap.String("merchant_txn_id", a.MerchantTxnID()),
				zap.String("kind", string(apperror.KindOf(err))),
				zap.Error(err),
			)
			continue
		}
		s.logger.Debug("pending payment recheck",
			zap.String("merchant_txn_id", a.MerchantTxnID()),
			zap.String("status", outcome.Status),
		)
	}
	return len(attempts), nil
}

func (s *PaymentReconciler) reconcile(ctx context.Context, a *payment.Attempt) (*PaymentOutcomeDTO, error) {
	if a.State() == payment.StateMaterialized && a.GroupID() != nil {
		group, err := s.reservations.FindGroup(ctx, *a.GroupID())
		if err != nil {
			return nil, err
		}
		return s.confirmed(ctx, a, group), nil
	}

	result, err := s.gateway.GetStatus(ctx, adapter.StatusQuery{MerchantTxnID: a.MerchantTxnID(), OrderID: a.OrderID()})
	if err != nil {
		s.logger.Warn("payment status unavailable; draft retained",
			zap.String("merchant_txn_id", a.MerchantTxnID()),
			zap.Error(err),
		)
		if apperror.IsKind(err, apperror.KindPaymentVerification) {
			return nil, err
		}
		return nil, apperror.NewPaymentVerificationError("could not verify the payment yet; please check again shortly", err)
	}
	a.RecordCheck()

	switch result.State {
	case payment.ProviderCompleted:
		return s.settle(ctx, a, result)
	case payment.ProviderFailed:
		return nil, s.fail(ctx, a, result)
	default:
		return s.processing(ctx, a), nil
	}
}

func (s *PaymentReconciler) settle(ctx context.Context, a *payment.Attempt, result *payment.StatusResult) (*PaymentOutcomeDTO, error) {
	orderID := result.OrderID
	if orderID == "" {
		orderID = a.OrderID()
	}
	if orderID == "" {
		orderID = a.MerchantTxnID()
	}

	existing, err := s.reservations.FindGroupByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.finish(ctx, a, orderID, existing.GroupID)
		return s.confirmed(ctx, a, existing), nil
	}

	if a.State() == payment.StateFailed {
		a.FlagForFollowUp("provider settled a payment whose checkout was already released")
		s.save(ctx, a)
		s.logger.Error("payment settled after checkout was released",
			zap.String("merchant_txn_id", a.MerchantTxnID()),
			zap.String("order_id", orderID),
		)
		return nil, apperror.New(apperror.KindInvalidState,
			"payment was received after the booking was released; our staff will contact you").
			WithDetail("follow_up", true)
	}

	draft, err := s.drafts.Load(ctx, a.MerchantTxnID())
	if apperror.IsKind(err, apperror.KindNotFound) {
		if markErr := a.MarkCompleted(orderID); markErr == nil {
			a.FlagForFollowUp("payment settled but the booking draft expired")
			s.save(ctx, a)
		}
		s.logger.Error("payment settled but booking draft expired",
			zap.String("merchant_txn_id", a.MerchantTxnID()),
			zap.String("order_id", orderID),
			zap.Int64("amount", a.AmountMinor()),
		)
		return nil, apperror.NewPersistenceError("booking draft expired before the payment was confirmed; our staff will follow up", err).
			WithDetail("follow_up", true)
	}
	if err != nil {
		return nil, err
	}

	if err := a.MarkCompleted(orderID); err != nil {
		return nil, err
	}
	s.save(ctx, a)

	group, err := s.booking.Materialize(ctx, draft, orderID)
	if err != nil {
		if apperror.IsKind(err, apperror.KindAvailabilityConflict) {
			a.FlagForFollowUp("payment settled but the stations were taken before materialization")
			s.save(ctx, a)
			s.logger.Error("paid booking conflicts with an existing reservation",
				zap.String("merchant_txn_id", a.MerchantTxnID()),
				zap.String("order_id", orderID),
			)
		}
		return nil, err
	}

	s.finish(ctx, a, orderID, group.GroupID)
	return s.confirmed(ctx, a, group), nil
}

// finish marks the attempt materialized and drops its draft.
func (s *PaymentReconciler) finish(ctx context.Context, a *payment.Attempt, orderID string, groupID uuid.UUID) {
	if a.State() != payment.StateCompleted && a.State() != payment.StateMaterialized {
		if err := a.MarkCompleted(orderID); err != nil {
			s.logger.Warn("attempt could not be completed", zap.String("merchant_txn_id", a.MerchantTxnID()), zap.Error(err))
		}
	}
	if err := a.MarkMaterialized(groupID); err == nil {
		s.save(ctx, a)
	}
	if err := s.drafts.Discard(ctx, a.MerchantTxnID()); err != nil {
		s.logger.Warn("failed to discard booking draft", zap.String("merchant_txn_id", a.MerchantTxnID()), zap.Error(err))
	}
}

func (s *PaymentReconciler) fail(ctx context.Context, a *payment.Attempt, result *payment.StatusResult) error {
	if err := s.drafts.Discard(ctx, a.MerchantTxnID()); err != nil {
		s.logger.Warn("failed to discard booking draft", zap.String("merchant_txn_id", a.MerchantTxnID()), zap.Error(err))
	}
	reason := result.Message
	if reason == "" {
		reason = "payment was declined by the provider"
	}
	switch a.State() {
	case payment.StateCompleted:
		a.FlagForFollowUp("provider reported failure after completion")
		s.save(ctx, a)
	case payment.StateFailed:
	default:
		if err := a.MarkFailed(reason); err == nil {
			s.save(ctx, a)
		}
	}
	s.logger.Info("payment failed",
		zap.String("merchant_txn_id", a.MerchantTxnID()),
		zap.String("reason", reason),
	)
	return apperror.NewPaymentFailed("payment was not completed; you can book again and pay at the venue").
		WithDetail("fallback", "pay_at_venue").
		WithDetail("merchant_txn_id", a.MerchantTxnID())
}

func (s *PaymentReconciler) processing(ctx context.Context, a *payment.Attempt) *PaymentOutcomeDTO {
	if a.State().AwaitingProvider() {
		if err := a.MarkPending(); err == nil {
			s.save(ctx, a)
		}
	}
	return &PaymentOutcomeDTO{
		Status:        OutcomeProcessing,
		MerchantTxnID: a.MerchantTxnID(),
		OrderID:       a.OrderID(),
		Message:       "payment is still processing; we will confirm your booking as soon as it settles",
	}
}

func (s *PaymentReconciler) confirmed(ctx context.Context, a *payment.Attempt, group *reservation.GroupResult) *PaymentOutcomeDTO {
	return &PaymentOutcomeDTO{
		Status:        OutcomeConfirmed,
		MerchantTxnID: a.MerchantTxnID(),
		OrderID:       a.OrderID(),
		Message:       "booking confirmed",
		Confirmation:  s.booking.Confirmation(ctx, group),
	}
}

// save persists an attempt change. A concurrent reconciler winning the
// version race is expected and only logged.
func (s *PaymentReconciler) save(ctx context.Context, a *payment.Attempt) {
	a.IncrementVersion()
	if err := s.attempts.Update(ctx, a); err != nil {
		if apperror.IsKind(err, apperror.KindConflict) {
			s.logger.Info("attempt updated concurrently", zap.String("merchant_txn_id", a.MerchantTxnID()))
			return
		}
		s.logger.Error("failed to update payment attempt", zap.String("merchant_txn_id", a.MerchantTxnID()), zap.Error(err))
	}
}

func toPaymentAttemptDTO(a *payment.Attempt) PaymentAttemptDTO {
	return PaymentAttemptDTO{
		MerchantTxnID: a.MerchantTxnID(),
		OrderID:       a.OrderID(),
		Provider:      a.Provider(),
		State:         string(a.State()),
		Amount:        a.AmountMinor(),
		Currency:      a.Currency(),
		FailureReason: a.FailureReason(),
		GroupID:       a.GroupID(),
		NeedsFollowUp: a.NeedsFollowUp(),
		LastCheckedAt: a.LastCheckedAt(),
		CreatedAt:     a.CreatedAt(),
		UpdatedAt:     a.UpdatedAt(),
	}
}
