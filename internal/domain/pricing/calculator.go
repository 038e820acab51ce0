// Package pricing turns a station selection and its applied coupons into a
// priced quote. It is pure: no I/O and no clock.
package pricing

import (
	"fmt"
	"math"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/coupon"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/resource"
	"github.com/google/uuid"
)

// Item is one selected station.
type Item struct {
	ResourceID uuid.UUID         `json:"resource_id"`
	Name       string            `json:"name"`
	Category   resource.Category `json:"category"`
	HourlyRate int64             `json:"hourly_rate"`
}

// ItemFromResource copies the priced fields of a station.
func ItemFromResource(r *resource.Resource) Item {
	return Item{ResourceID: r.ID(), Name: r.Name(), Category: r.Category(), HourlyRate: r.HourlyRateMinor()}
}

// Request is everything a quote depends on.
type Request struct {
	Items   []Item
	Minutes int64
	Coupons coupon.Application
	Target  coupon.Target
}

// Line is one labeled discount entry.
type Line struct {
	Label   string       `json:"label"`
	Scope   coupon.Scope `json:"scope"`
	Code    string       `json:"code"`
	Amount  int64        `json:"amount"`
	Applied bool         `json:"applied"`
	Note    string       `json:"note,omitempty"`
}

// Quote is the priced result. All amounts are minor units.
type Quote struct {
	Original           int64   `json:"original"`
	Lines              []Line  `json:"lines"`
	TotalDiscount      int64   `json:"total_discount"`
	Final              int64   `json:"final"`
	DiscountPercentage float64 `json:"discount_percentage"`
	Coupons            string  `json:"coupons"`
}

// Breakdown returns the label to amount view of applied lines.
func (q Quote) Breakdown() map[string]int64 {
	out := make(map[string]int64, len(q.Lines))
	for _, l := range q.Lines {
		if l.Applied {
			out[l.Label] = l.Amount
		}
	}
	return out
}

// Calculator resolves each applied code through its registered strategy.
type Calculator struct {
	registry *coupon.Registry
}

// NewCalculator creates a calculator backed by registry.
func NewCalculator(registry *coupon.Registry) *Calculator {
	return &Calculator{registry: registry}
}

type categoryTotal struct {
	subtotal int64
	stations int
}

// Quote prices req. Eligibility is re-checked on every call, so an entry whose
// window lapsed or whose category left the selection contributes zero.
func (c *Calculator) Quote(req Request) Quote {
	byCategory := make(map[resource.Category]*categoryTotal)
	var original int64
	for _, it := range req.Items {
		price := it.HourlyRate * req.Minutes / 60
		original += price
		ct, ok := byCategory[it.Category]
		if !ok {
			ct = &categoryTotal{}
			byCategory[it.Category] = ct
		}
		ct.subtotal += price
		ct.stations++
	}

	q := Quote{Original: original, Lines: []Line{}, Coupons: req.Coupons.String()}

	if code, ok := req.Coupons.Code(coupon.ScopeAll); ok {
		units := coupon.Units{Stations: len(req.Items), Minutes: req.Minutes}
		q.Lines = append(q.Lines, c.line(coupon.ScopeAll, code, original, units, len(req.Items) > 0, req.Target))
	} else {
		for _, scope := range req.Coupons.Scopes() {
			code, _ := req.Coupons.Code(scope)
			cat, _ := scope.Category()
			ct, present := byCategory[cat]
			if !present {
				ct = &categoryTotal{}
			}
			units := coupon.Units{Stations: ct.stations, Minutes: req.Minutes}
			q.Lines = append(q.Lines, c.line(scope, code, ct.subtotal, units, present, req.Target))
		}
	}

	for _, l := range q.Lines {
		q.TotalDiscount += l.Amount
	}
	q.TotalDiscount = coupon.Clamp(q.TotalDiscount, original)
	q.Final = original - q.TotalDiscount
	if original > 0 {
		q.DiscountPercentage = math.Round(float64(q.TotalDiscount)*10000/float64(original)) / 100
	}
	return q
}

func (c *Calculator) line(scope coupon.Scope, code string, subtotal int64, units coupon.Units, present bool, t coupon.Target) Line {
	l := Line{Label: fmt.Sprintf("%s (%s)", scope.Label(), code), Scope: scope, Code: code}

	rule, ok := c.registry.Lookup(code)
	switch {
	case !ok:
		l.Note = "coupon is no longer offered"
	case !present:
		l.Note = fmt.Sprintf("no %s station in the selection", scope.Label())
	case !rule.InWindow(t):
		l.Note = "not valid for the selected time"
	default:
		l.Amount = coupon.Clamp(rule.Strategy.Discount(subtotal, units), subtotal)
		l.Applied = true
	}
	return l
}
