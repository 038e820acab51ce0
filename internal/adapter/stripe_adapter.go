package adapter

import (
	"context"
	"fmt"
	"strings"

	paymentDomain "github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/payment"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"
)

// StripeGateway implements PaymentGateway over Stripe Checkout. The checkout
// session id is the order id.
type StripeGateway struct {
	sc     *stripe.Client
	logger *zap.Logger
}

// NewStripeGateway creates a Stripe Checkout gateway from a secret key.
func NewStripeGateway(secretKey string, logger *zap.Logger) *StripeGateway {
	return &StripeGateway{sc: stripe.NewClient(secretKey), logger: logger}
}

func (g *StripeGateway) Name() string { return "stripe" }

// CreateIntent creates a hosted Checkout session for the booking total.
func (g *StripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	returnURL := req.RedirectURL + "?merchant_txn_id=" + req.MerchantTxnID
	params := &stripe.CheckoutSessionCreateParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(returnURL),
		CancelURL:         stripe.String(returnURL),
		ClientReferenceID: stripe.String(req.MerchantTxnID),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(req.AmountMinor),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"merchant_txn_id": req.MerchantTxnID,
			"payer_phone":     req.PayerPhone,
		},
	}

	session, err := g.sc.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return nil, apperror.NewPaymentVerificationError("failed to create stripe checkout session", err)
	}

	g.logger.Info("stripe checkout session created",
		zap.String("merchant_txn_id", req.MerchantTxnID),
		zap.String("session_id", session.ID),
		zap.Int64("amount_minor", req.AmountMinor),
	)
	return &Intent{OrderID: session.ID, RedirectURL: session.URL}, nil
}

// GetStatus retrieves the checkout session and maps it onto ProviderState.
func (g *StripeGateway) GetStatus(ctx context.Context, q StatusQuery) (*paymentDomain.StatusResult, error) {
	if q.OrderID == "" {
		return nil, apperror.NewPaymentVerificationError(
			fmt.Sprintf("payment %s has no stripe session", q.MerchantTxnID), nil)
	}
	session, err := g.sc.V1CheckoutSessions.Retrieve(ctx, q.OrderID, &stripe.CheckoutSessionRetrieveParams{})
	if err != nil {
		return nil, apperror.NewPaymentVerificationError("failed to retrieve stripe checkout session", err)
	}
	return mapCheckoutSession(session), nil
}

func mapCheckoutSession(s *stripe.CheckoutSession) *paymentDomain.StatusResult {
	res := &paymentDomain.StatusResult{OrderID: s.ID, Message: string(s.Status)}
	switch {
	case s.Status == stripe.CheckoutSessionStatusComplete &&
		(s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
			s.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired):
		res.State = paymentDomain.ProviderCompleted
	case s.Status == stripe.CheckoutSessionStatusExpired:
		res.State = paymentDomain.ProviderFailed
	case s.Status == stripe.CheckoutSessionStatusOpen:
		res.State = paymentDomain.ProviderInitiated
	default:
		res.State = paymentDomain.ProviderPending
	}
	return res
}
