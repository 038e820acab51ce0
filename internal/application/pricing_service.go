package application

import (
	"context"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/coupon"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/pricing"
	"go.uber.org/zap"
)

// QuoteRequest prices a selection with the coupons the client holds.
type QuoteRequest struct {
	SelectionRequest
	Coupons string `json:"coupons"`
}

// CouponStateDTO is the coupon application after a change, priced.
type CouponStateDTO struct {
	Coupons string           `json:"coupons"`
	Entries []CouponEntryDTO `json:"entries"`
	Removed []coupon.Removal `json:"removed"`
	Quote   QuoteDTO         `json:"quote"`
}

// PricingService prices selections server-side. Coupon entries are
// revalidated against the selection on every call.
type PricingService struct {
	selector   *Selector
	registry   *coupon.Registry
	calculator *pricing.Calculator
	logger     *zap.Logger
}

// NewPricingService creates a new PricingService.
func NewPricingService(selector *Selector, registry *coupon.Registry, logger *zap.Logger) *PricingService {
	return &PricingService{
		selector:   selector,
		registry:   registry,
		calculator: pricing.NewCalculator(registry),
		logger:     logger,
	}
}

// Price revalidates app against sel and quotes the result. It returns the
// quote, the application actually priced and the entries revalidation dropped.
func (s *PricingService) Price(sel *Selection, app coupon.Application) (pricing.Quote, coupon.Application, []coupon.Removal) {
	target := sel.Target()
	current, removed := app.Revalidate(s.registry, target)
	q := s.calculator.Quote(pricing.Request{
		Items:   sel.Items(),
		Minutes: sel.Minutes,
		Coupons: current,
		Target:  target,
	})
	return q, current, removed
}

// ConfirmAttestations requires the client's confirmation for every held code
// that needs one. Called before anything is booked at app's price.
func (s *PricingService) ConfirmAttestations(ctx context.Context, app coupon.Application, confirmed *bool) error {
	return app.Attest(ctx, s.registry, flagConfirmer(confirmed))
}

// Quote prices a client selection.
func (s *PricingService) Quote(ctx context.Context, req QuoteRequest) (*CouponStateDTO, error) {
	app, err := coupon.ParseApplication(req.Coupons)
	if err != nil {
		return nil, err
	}
	sel, err := s.selector.Resolve(ctx, req.SelectionRequest)
	if err != nil {
		return nil, err
	}
	q, current, removed := s.Price(sel, app)
	return s.state(sel, q, current, removed), nil
}

func (s *PricingService) state(sel *Selection, q pricing.Quote, app coupon.Application, removed []coupon.Removal) *CouponStateDTO {
	if removed == nil {
		removed = []coupon.Removal{}
	}
	return &CouponStateDTO{
		Coupons: app.String(),
		Entries: toCouponEntries(s.registry, app),
		Removed: removed,
		Quote:   toQuoteDTO(q, sel.Minutes),
	}
}
