package application

import (
	"context"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/coupon"
	"go.uber.org/zap"
)

// ApplyCouponRequest applies one code to the client's application.
// AttestationConfirmed is nil until the client has shown the prompt.
type ApplyCouponRequest struct {
	SelectionRequest
	Coupons              string `json:"coupons"`
	Code                 string `json:"code" binding:"required"`
	AttestationConfirmed *bool  `json:"attestation_confirmed"`
}

// RemoveCouponRequest drops the entry of one scope.
type RemoveCouponRequest struct {
	SelectionRequest
	Coupons string `json:"coupons"`
	Scope   string `json:"scope" binding:"required"`
}

// CouponRuleDTO describes a registered code for the booking UI.
type CouponRuleDTO struct {
	Code                string `json:"code"`
	Scope               string `json:"scope"`
	ScopeLabel          string `json:"scope_label"`
	Description         string `json:"description"`
	Discount            string `json:"discount"`
	RequiresAttestation bool   `json:"requires_attestation"`
	AttestationPrompt   string `json:"attestation_prompt,omitempty"`
	Window              string `json:"window,omitempty"`
}

// CouponService applies and removes coupons on a client-held application.
type CouponService struct {
	selector *Selector
	pricing  *PricingService
	registry *coupon.Registry
	logger   *zap.Logger
}

// NewCouponService creates a new CouponService.
func NewCouponService(selector *Selector, pricing *PricingService, registry *coupon.Registry, logger *zap.Logger) *CouponService {
	return &CouponService{selector: selector, pricing: pricing, registry: registry, logger: logger}
}

// Catalog lists every registered code.
func (s *CouponService) Catalog() []CouponRuleDTO {
	rules := s.registry.Rules()
	out := make([]CouponRuleDTO, 0, len(rules))
	for _, r := range rules {
		dto := CouponRuleDTO{
			Code:                r.Code,
			Scope:               string(r.Scope),
			ScopeLabel:          r.Scope.Label(),
			Description:         r.Description,
			Discount:            r.Strategy.Describe(),
			RequiresAttestation: r.RequiresAttestation,
			AttestationPrompt:   r.AttestationPrompt,
		}
		if r.Window != nil {
			dto.Window = r.Window.String()
		}
		out = append(out, dto)
	}
	return out
}

// Apply validates and applies req.Code. Displaced entries and entries whose
// window lapsed are reported in Removed.
func (s *CouponService) Apply(ctx context.Context, req ApplyCouponRequest) (*CouponStateDTO, error) {
	app, err := coupon.ParseApplication(req.Coupons)
	if err != nil {
		return nil, err
	}
	sel, err := s.selector.Resolve(ctx, req.SelectionRequest)
	if err != nil {
		return nil, err
	}
	target := sel.Target()
	app, stale := app.Revalidate(s.registry, target)

	next, displaced, err := app.Apply(ctx, s.registry, req.Code, target, flagConfirmer(req.AttestationConfirmed))
	if err != nil {
		return nil, err
	}
	s.logger.Debug("coupon applied", zap.String("code", req.Code), zap.String("coupons", next.String()))

	q, current, removed := s.pricing.Price(sel, next)
	return s.pricing.state(sel, q, current, append(append(stale, displaced...), removed...)), nil
}

// Remove drops one scope. Removing an absent scope is a no-op.
func (s *CouponService) Remove(ctx context.Context, req RemoveCouponRequest) (*CouponStateDTO, error) {
	app, err := coupon.ParseApplication(req.Coupons)
	if err != nil {
		return nil, err
	}
	scope, err := coupon.ParseScope(req.Scope)
	if err != nil {
		return nil, err
	}
	sel, err := s.selector.Resolve(ctx, req.SelectionRequest)
	if err != nil {
		return nil, err
	}
	q, current, removed := s.pricing.Price(sel, app.Remove(scope))
	return s.pricing.state(sel, q, current, removed), nil
}

// Revalidate drops entries that no longer hold after a date or slot change.
func (s *CouponService) Revalidate(ctx context.Context, req QuoteRequest) (*CouponStateDTO, error) {
	return s.pricing.Quote(ctx, req)
}

// flagConfirmer answers attestation prompts with the client's
// attestation_confirmed flag. A nil flag means the prompt was never shown.
func flagConfirmer(flag *bool) coupon.Confirmer {
	if flag == nil {
		return nil
	}
	confirmed := *flag
	return coupon.ConfirmerFunc(func(context.Context, coupon.Rule) (bool, error) { return confirmed, nil })
}
