package coupon

import "fmt"

// Units is the quantity a per-unit strategy prices against.
type Units struct {
	Stations int
	Minutes  int64
}

// Strategy computes the discount a code grants on a subtotal. Results are
// clamped to [0, subtotal] by the caller.
type Strategy interface {
	Discount(subtotal int64, units Units) int64
	Describe() string
}

// PercentOff takes a percentage off the subtotal.
type PercentOff struct {
	Percent int64
}

func (p PercentOff) Discount(subtotal int64, _ Units) int64 {
	return subtotal * p.Percent / 100
}

func (p PercentOff) Describe() string { return fmt.Sprintf("%d%% off", p.Percent) }

// UnitFloor caps the price at a flat hourly rate per station.
type UnitFloor struct {
	RatePerHour int64
}

func (u UnitFloor) Discount(subtotal int64, units Units) int64 {
	floor := u.RatePerHour * int64(units.Stations) * units.Minutes / 60
	if d := subtotal - floor; d > 0 {
		return d
	}
	return 0
}

func (u UnitFloor) Describe() string {
	return fmt.Sprintf("flat %d.%02d per station-hour", u.RatePerHour/100, u.RatePerHour%100)
}

// FullWaiver discounts the entire subtotal.
type FullWaiver struct{}

func (FullWaiver) Discount(subtotal int64, _ Units) int64 { return subtotal }

func (FullWaiver) Describe() string { return "complimentary" }

// Clamp bounds a discount to [0, subtotal].
func Clamp(discount, subtotal int64) int64 {
	switch {
	case discount < 0:
		return 0
	case discount > subtotal:
		return subtotal
	}
	return discount
}
