package coupon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/resource"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
)

// Scope is the key of an applied coupon: "all" or a station category.
type Scope string

const ScopeAll Scope = "all"

// CategoryScope returns the scope key of a category.
func CategoryScope(c resource.Category) Scope { return Scope(c) }

// ParseScope validates a scope key.
func ParseScope(s string) (Scope, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if Scope(s) == ScopeAll {
		return ScopeAll, nil
	}
	c, err := resource.ParseCategory(s)
	if err != nil {
		return "", apperror.NewValidationError(fmt.Sprintf("unknown coupon scope %q", s))
	}
	return CategoryScope(c), nil
}

// Category returns the category a category-scoped key refers to.
func (s Scope) Category() (resource.Category, bool) {
	if s == ScopeAll {
		return "", false
	}
	c := resource.Category(s)
	return c, c.Valid()
}

// Label is the display name used in price breakdowns.
func (s Scope) Label() string {
	if c, ok := s.Category(); ok {
		return c.Label()
	}
	return "All stations"
}

// Target is what a coupon is evaluated against: the current selection and,
// once chosen, the slot.
type Target struct {
	Categories []resource.Category
	SlotStart  time.Time
	SlotEnd    time.Time
}

func (t Target) HasSlot() bool { return !t.SlotStart.IsZero() && t.SlotEnd.After(t.SlotStart) }

func (t Target) HasCategory(c resource.Category) bool {
	for _, have := range t.Categories {
		if have == c {
			return true
		}
	}
	return false
}

// TimeWindow restricts a coupon to fixed weekdays and hours. A slot is inside
// the window when it starts and ends within the hours on an allowed weekday.
type TimeWindow struct {
	Weekdays  []time.Weekday
	StartHour int
	EndHour   int
}

// Contains reports whether [start, end) lies inside the window.
func (w TimeWindow) Contains(start, end time.Time) bool {
	allowed := false
	for _, d := range w.Weekdays {
		if start.Weekday() == d {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}
	y, m, d := start.Date()
	open := time.Date(y, m, d, w.StartHour, 0, 0, 0, start.Location())
	closing := time.Date(y, m, d, w.EndHour, 0, 0, 0, start.Location())
	return !start.Before(open) && !end.After(closing)
}

func (w TimeWindow) String() string {
	days := make([]string, len(w.Weekdays))
	for i, d := range w.Weekdays {
		days[i] = d.String()[:3]
	}
	return fmt.Sprintf("%s %02d:00-%02d:00", strings.Join(days, "/"), w.StartHour, w.EndHour)
}

// Rule is one registered coupon code.
type Rule struct {
	Code                string
	Scope               Scope
	Description         string
	RequiresAttestation bool
	AttestationPrompt   string
	Window              *TimeWindow
	Strategy            Strategy
}

// CheckEligibility returns a validation error naming why the rule cannot be
// applied to t, or nil.
func (r Rule) CheckEligibility(t Target) error {
	if c, ok := r.Scope.Category(); ok && !t.HasCategory(c) {
		return apperror.NewValidationError(
			fmt.Sprintf("%s applies to %s stations only; add one to your selection first", r.Code, c.Label())).
			WithDetail("code", r.Code).
			WithDetail("reason", "category_not_selected")
	}
	if r.Window != nil {
		if !t.HasSlot() {
			return apperror.NewValidationError(
				fmt.Sprintf("%s depends on the time of play; pick a slot first", r.Code)).
				WithDetail("code", r.Code).
				WithDetail("reason", "slot_required")
		}
		if !r.Window.Contains(t.SlotStart, t.SlotEnd) {
			return apperror.NewValidationError(
				fmt.Sprintf("%s is only valid %s", r.Code, r.Window)).
				WithDetail("code", r.Code).
				WithDetail("reason", "outside_window")
		}
	}
	return nil
}

// attest obtains the confirmation the rule requires, if any.
func (r Rule) attest(ctx context.Context, confirm Confirmer) error {
	if !r.RequiresAttestation {
		return nil
	}
	if confirm == nil {
		return apperror.NewAttestationRequired(r.Code, r.AttestationPrompt)
	}
	confirmed, err := confirm.Confirm(ctx, r)
	if err != nil {
		return err
	}
	if !confirmed {
		return apperror.NewValidationError(
			fmt.Sprintf("%s was not applied because the confirmation was declined", r.Code)).
			WithDetail("code", r.Code).
			WithDetail("reason", "attestation_declined")
	}
	return nil
}

// InWindow reports whether a windowed rule currently holds. Rules without a
// window always hold.
func (r Rule) InWindow(t Target) bool {
	if r.Window == nil {
		return true
	}
	return t.HasSlot() && r.Window.Contains(t.SlotStart, t.SlotEnd)
}

// Confirmer obtains the human attestation some codes require.
type Confirmer interface {
	Confirm(ctx context.Context, rule Rule) (bool, error)
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, rule Rule) (bool, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, rule Rule) (bool, error) { return f(ctx, rule) }
