package application

import (
	"context"
	"testing"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestQuote_TwoCategoryScenario(t *testing.T) {
	h := newHarness(t)

	state, err := h.pricing.Quote(context.Background(), QuoteRequest{
		SelectionRequest: selection("18:00", h.pc1, h.console1),
		Coupons:          "pc:PCHALF,console:CONSOLE99",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(25000), state.Quote.Original)
	assert.Equal(t, int64(10100), state.Quote.TotalDiscount)
	assert.Equal(t, int64(14900), state.Quote.Final)
	assert.Equal(t, 40.4, state.Quote.DiscountPercentage)
	assert.Equal(t, "pc:PCHALF,console:CONSOLE99", state.Coupons)
	assert.Len(t, state.Entries, 2)
	assert.Empty(t, state.Removed)
}

func TestQuote_WithoutSlotUsesDefaultDuration(t *testing.T) {
	h := newHarness(t)

	state, err := h.pricing.Quote(context.Background(), QuoteRequest{
		SelectionRequest: SelectionRequest{ResourceIDs: selection("", h.pc1).ResourceIDs},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(10000), state.Quote.Final)
	assert.Equal(t, int64(60), state.Quote.DurationMinutes)
}

func TestQuote_RejectsStartTimeWithoutDate(t *testing.T) {
	h := newHarness(t)

	_, err := h.pricing.Quote(context.Background(), QuoteRequest{
		SelectionRequest: SelectionRequest{ResourceIDs: selection("", h.pc1).ResourceIDs, StartTime: "15:00"},
	})

	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestCouponApply_CategoryNeedsStation(t *testing.T) {
	h := newHarness(t)

	_, err := h.coupons.Apply(context.Background(), ApplyCouponRequest{
		SelectionRequest: selection("18:00", h.pc1),
		Code:             "CONSOLE99",
	})

	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	assert.Equal(t, "category_not_selected", appErr.Details["reason"])
}

func TestCouponApply_AttestationFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := ApplyCouponRequest{SelectionRequest: selection("18:00", h.pc1), Code: "freeplay"}

	_, err := h.coupons.Apply(ctx, req)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindAttestationRequired, appErr.Kind)
	assert.Equal(t, "FREEPLAY", appErr.Details["code"])

	req.AttestationConfirmed = boolPtr(false)
	_, err = h.coupons.Apply(ctx, req)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	req.AttestationConfirmed = boolPtr(true)
	state, err := h.coupons.Apply(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "all:FREEPLAY", state.Coupons)
	assert.Equal(t, int64(0), state.Quote.Final)
}

func TestCouponApply_AllScopeDisplacesCategories(t *testing.T) {
	h := newHarness(t)

	state, err := h.coupons.Apply(context.Background(), ApplyCouponRequest{
		SelectionRequest: selection("18:00", h.pc1, h.console1),
		Coupons:          "pc:PCHALF,console:CONSOLE99",
		Code:             "WELCOME20",
	})
	require.NoError(t, err)

	assert.Equal(t, "all:WELCOME20", state.Coupons)
	assert.Len(t, state.Removed, 2)
	assert.Equal(t, int64(20000), state.Quote.Final)
}

func TestCouponApply_HappyHourWindow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.coupons.Apply(ctx, ApplyCouponRequest{SelectionRequest: selection("18:00", h.pc1), Code: "HAPPYHOUR"})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation), "18:00 is outside 12:00-17:00")

	state, err := h.coupons.Apply(ctx, ApplyCouponRequest{SelectionRequest: selection("15:00", h.pc1), Code: "HAPPYHOUR"})
	require.NoError(t, err)
	assert.Equal(t, int64(7000), state.Quote.Final)

	moved, err := h.coupons.Revalidate(ctx, QuoteRequest{SelectionRequest: selection("18:00", h.pc1), Coupons: state.Coupons})
	require.NoError(t, err)
	assert.Equal(t, "", moved.Coupons)
	require.Len(t, moved.Removed, 1)
	assert.Equal(t, "HAPPYHOUR", moved.Removed[0].Code)
	assert.Equal(t, int64(10000), moved.Quote.Final)
}

func TestCouponRemove_RoundTripAndIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sel := selection("18:00", h.pc1, h.console1)

	applied, err := h.coupons.Apply(ctx, ApplyCouponRequest{SelectionRequest: sel, Code: "PCHALF"})
	require.NoError(t, err)
	assert.Equal(t, int64(20000), applied.Quote.Final)

	removed, err := h.coupons.Remove(ctx, RemoveCouponRequest{SelectionRequest: sel, Coupons: applied.Coupons, Scope: "pc"})
	require.NoError(t, err)
	assert.Equal(t, "", removed.Coupons)
	assert.Equal(t, int64(25000), removed.Quote.Final)

	again, err := h.coupons.Remove(ctx, RemoveCouponRequest{SelectionRequest: sel, Coupons: removed.Coupons, Scope: "pc"})
	require.NoError(t, err)
	assert.Equal(t, removed.Quote, again.Quote)
}

func TestCouponRemove_UnknownScope(t *testing.T) {
	h := newHarness(t)

	_, err := h.coupons.Remove(context.Background(), RemoveCouponRequest{Scope: "arcade"})

	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestCouponCatalog(t *testing.T) {
	h := newHarness(t)

	catalog := h.coupons.Catalog()

	byCode := map[string]CouponRuleDTO{}
	for _, c := range catalog {
		byCode[c.Code] = c
	}
	assert.True(t, byCode["FREEPLAY"].RequiresAttestation)
	assert.NotEmpty(t, byCode["FREEPLAY"].AttestationPrompt)
	assert.Equal(t, "50% off", byCode["PCHALF"].Discount)
	assert.Equal(t, "PC", byCode["PCHALF"].ScopeLabel)
	assert.NotEmpty(t, byCode["HAPPYHOUR"].Window)
	assert.Empty(t, byCode["WELCOME20"].Window)
}
