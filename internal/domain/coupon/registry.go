package coupon

import (
	"fmt"
	"strings"
	"time"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/resource"
)

// Registry maps codes to rules. It is immutable after construction.
type Registry struct {
	rules map[string]Rule
	codes []string
}

// NewRegistry validates and indexes rules by upper-cased code.
func NewRegistry(rules ...Rule) (*Registry, error) {
	reg := &Registry{rules: make(map[string]Rule, len(rules))}
	for _, r := range rules {
		r.Code = normalizeCode(r.Code)
		switch {
		case r.Code == "":
			return nil, fmt.Errorf("coupon rule without code")
		case r.Strategy == nil:
			return nil, fmt.Errorf("coupon %s has no pricing strategy", r.Code)
		case r.RequiresAttestation && r.AttestationPrompt == "":
			return nil, fmt.Errorf("coupon %s requires attestation but has no prompt", r.Code)
		case r.Window != nil && (r.Window.StartHour >= r.Window.EndHour || len(r.Window.Weekdays) == 0):
			return nil, fmt.Errorf("coupon %s has an empty time window", r.Code)
		}
		if _, err := ParseScope(string(r.Scope)); err != nil {
			return nil, fmt.Errorf("coupon %s: %w", r.Code, err)
		}
		if _, dup := reg.rules[r.Code]; dup {
			return nil, fmt.Errorf("coupon %s registered twice", r.Code)
		}
		reg.rules[r.Code] = r
		reg.codes = append(reg.codes, r.Code)
	}
	return reg, nil
}

// MustRegistry panics on an invalid rule table.
func MustRegistry(rules ...Rule) *Registry {
	reg, err := NewRegistry(rules...)
	if err != nil {
		panic(err)
	}
	return reg
}

// Lookup finds a rule by code, ignoring case and surrounding space.
func (r *Registry) Lookup(code string) (Rule, bool) {
	rule, ok := r.rules[normalizeCode(code)]
	return rule, ok
}

// Rules returns every rule in registration order.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, len(r.codes))
	for i, code := range r.codes {
		out[i] = r.rules[code]
	}
	return out
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

var weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// DefaultRules is the lounge's coupon table. Amounts are in paise.
func DefaultRules() []Rule {
	return []Rule{
		{
			Code:                "FREEPLAY",
			Scope:               ScopeAll,
			Description:         "Complimentary session approved by staff",
			RequiresAttestation: true,
			AttestationPrompt:   "FREEPLAY is for staff-approved complimentary sessions. Has a staff member approved this booking?",
			Strategy:            FullWaiver{},
		},
		{
			Code:        "WELCOME20",
			Scope:       ScopeAll,
			Description: "20% off your first visit",
			Strategy:    PercentOff{Percent: 20},
		},
		{
			Code:                "STUDENT15",
			Scope:               ScopeAll,
			Description:         "15% off with a valid student ID",
			RequiresAttestation: true,
			AttestationPrompt:   "STUDENT15 requires a valid student ID shown at the counter. Do you have one?",
			Strategy:            PercentOff{Percent: 15},
		},
		{
			Code:        "HAPPYHOUR",
			Scope:       ScopeAll,
			Description: "30% off weekday afternoons",
			Window:      &TimeWindow{Weekdays: weekdays, StartHour: 12, EndHour: 17},
			Strategy:    PercentOff{Percent: 30},
		},
		{
			Code:        "PCHALF",
			Scope:       CategoryScope(resource.CategoryPC),
			Description: "50% off PC stations",
			Strategy:    PercentOff{Percent: 50},
		},
		{
			Code:        "CONSOLE99",
			Scope:       CategoryScope(resource.CategoryConsole),
			Description: "Consoles at a flat ₹99 per hour",
			Strategy:    UnitFloor{RatePerHour: 9900},
		},
		{
			Code:        "PITSTOP25",
			Scope:       CategoryScope(resource.CategoryRacingSim),
			Description: "25% off racing rigs",
			Strategy:    PercentOff{Percent: 25},
		},
		{
			Code:        "VRNIGHT",
			Scope:       CategoryScope(resource.CategoryVR),
			Description: "40% off VR on Friday and Saturday nights",
			Window:      &TimeWindow{Weekdays: []time.Weekday{time.Friday, time.Saturday}, StartHour: 20, EndHour: 24},
			Strategy:    PercentOff{Percent: 40},
		},
	}
}

// DefaultRegistry builds the registry from DefaultRules.
func DefaultRegistry() *Registry {
	return MustRegistry(DefaultRules()...)
}
