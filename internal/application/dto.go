package application

import (
	"context"
	"time"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/coupon"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/pricing"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/reservation"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/resource"
	"github.com/google/uuid"
)

// SlotCache caches per-station slot grids. It is never the source of truth.
// Get reports the station generation it looked under; Set must be given that
// generation so a grid loaded before an Invalidate is never served after it.
type SlotCache interface {
	Get(ctx context.Context, resourceID uuid.UUID, date string, minutes int) ([]reservation.TimeSlot, int64, bool)
	Set(ctx context.Context, resourceID uuid.UUID, date string, minutes int, gen int64, slots []reservation.TimeSlot)
	Invalidate(ctx context.Context, resourceIDs ...uuid.UUID)
}

// ChangePublisher announces reservation changes to other instances and listeners.
type ChangePublisher interface {
	PublishReservationChange(ctx context.Context, evt reservation.ChangedEvent) error
}

// ResourceDTO is the API view of a station.
type ResourceDTO struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	CategoryLabel string    `json:"category_label"`
	HourlyRate    int64     `json:"hourly_rate"`
}

// CategoryGroupDTO lists the stations of one category.
type CategoryGroupDTO struct {
	Category  string        `json:"category"`
	Label     string        `json:"label"`
	Resources []ResourceDTO `json:"resources"`
}

// SlotDTO is the API view of a time slot.
type SlotDTO struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Label     string    `json:"label"`
	Available bool      `json:"available"`
}

// LineDTO is one discount line of a quote.
type LineDTO struct {
	Label   string `json:"label"`
	Scope   string `json:"scope"`
	Code    string `json:"code"`
	Amount  int64  `json:"amount"`
	Applied bool   `json:"applied"`
	Note    string `json:"note,omitempty"`
}

// QuoteDTO is the API view of a priced selection.
type QuoteDTO struct {
	Original           int64     `json:"original_amount"`
	Lines              []LineDTO `json:"discounts"`
	TotalDiscount      int64     `json:"total_discount"`
	Final              int64     `json:"final_amount"`
	DiscountPercentage float64   `json:"discount_percentage"`
	Coupons            string    `json:"coupons"`
	DurationMinutes    int64     `json:"duration_minutes"`
}

// ConfirmationDTO is returned once a reservation group exists.
type ConfirmationDTO struct {
	BookingID      uuid.UUID `json:"booking_id"`
	CustomerName   string    `json:"customer_name"`
	ResourceNames  []string  `json:"resource_names"`
	Date           string    `json:"date"`
	StartTime      string    `json:"start_time"`
	EndTime        string    `json:"end_time"`
	TotalAmount    int64     `json:"total_amount"`
	CouponCode     string    `json:"coupon_code,omitempty"`
	DiscountAmount int64     `json:"discount_amount,omitempty"`
	PaymentMethod  string    `json:"payment_method"`
	Status         string    `json:"status"`
}

// ReservationDTO is the API view of one reservation row.
type ReservationDTO struct {
	ID              uuid.UUID  `json:"id"`
	GroupID         uuid.UUID  `json:"group_id"`
	ResourceID      uuid.UUID  `json:"resource_id"`
	Date            string     `json:"date"`
	StartsAt        time.Time  `json:"starts_at"`
	EndsAt          time.Time  `json:"ends_at"`
	Status          string     `json:"status"`
	FinalAmount     int64      `json:"final_amount"`
	CouponCode      string     `json:"coupon_code,omitempty"`
	PaymentMethod   string     `json:"payment_method"`
	StatusUpdatedAt *time.Time `json:"status_updated_at,omitempty"`
	StatusUpdatedBy string     `json:"status_updated_by,omitempty"`
	Version         int64      `json:"version"`
}

func toResourceDTO(r *resource.Resource) ResourceDTO {
	return ResourceDTO{
		ID:            r.ID(),
		Name:          r.Name(),
		Category:      string(r.Category()),
		CategoryLabel: r.Category().Label(),
		HourlyRate:    r.HourlyRateMinor(),
	}
}

func toSlotDTO(s reservation.TimeSlot) SlotDTO {
	return SlotDTO{
		Start:     s.Start,
		End:       s.End,
		StartTime: s.Start.Format("15:04"),
		EndTime:   s.End.Format("15:04"),
		Label:     s.Label(),
		Available: s.Available,
	}
}

func toQuoteDTO(q pricing.Quote, minutes int64) QuoteDTO {
	lines := make([]LineDTO, len(q.Lines))
	for i, l := range q.Lines {
		lines[i] = LineDTO{
			Label:   l.Label,
			Scope:   string(l.Scope),
			Code:    l.Code,
			Amount:  l.Amount,
			Applied: l.Applied,
			Note:    l.Note,
		}
	}
	return QuoteDTO{
		Original:           q.Original,
		Lines:              lines,
		TotalDiscount:      q.TotalDiscount,
		Final:              q.Final,
		DiscountPercentage: q.DiscountPercentage,
		Coupons:            q.Coupons,
		DurationMinutes:    minutes,
	}
}

func toReservationDTO(r *reservation.Reservation) ReservationDTO {
	return ReservationDTO{
		ID:              r.ID(),
		GroupID:         r.GroupID(),
		ResourceID:      r.ResourceID(),
		Date:            r.BookingDate().Format(reservation.DateLayout),
		StartsAt:        r.StartsAt(),
		EndsAt:          r.EndsAt(),
		Status:          string(r.Status()),
		FinalAmount:     r.FinalPriceMinor(),
		CouponCode:      r.CouponCode(),
		PaymentMethod:   string(r.PaymentMethod()),
		StatusUpdatedAt: r.StatusUpdatedAt(),
		StatusUpdatedBy: r.StatusUpdatedBy(),
		Version:         r.Version(),
	}
}

// toConfirmationDTO summarizes a persisted group. names maps station ids to names.
func toConfirmationDTO(g *reservation.GroupResult, names map[uuid.UUID]string, loc *time.Location) ConfirmationDTO {
	first := g.Reservations[0]
	dto := ConfirmationDTO{
		BookingID:     g.GroupID,
		CustomerName:  g.Customer.Name,
		Date:          first.StartsAt().In(loc).Format(reservation.DateLayout),
		StartTime:     first.StartsAt().In(loc).Format("15:04"),
		EndTime:       first.EndsAt().In(loc).Format("15:04"),
		TotalAmount:   first.FinalPriceMinor(),
		CouponCode:    first.CouponCode(),
		PaymentMethod: string(first.PaymentMethod()),
		Status:        string(first.Status()),
	}
	if d := first.OriginalPriceMinor() - first.FinalPriceMinor(); d > 0 {
		dto.DiscountAmount = d
	}
	for _, r := range g.Reservations {
		name, ok := names[r.ResourceID()]
		if !ok {
			name = r.ResourceID().String()
		}
		dto.ResourceNames = append(dto.ResourceNames, name)
	}
	return dto
}

// couponEntries renders an application for the booking UI.
type CouponEntryDTO struct {
	Scope       string `json:"scope"`
	ScopeLabel  string `json:"scope_label"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

func toCouponEntries(reg *coupon.Registry, app coupon.Application) []CouponEntryDTO {
	out := make([]CouponEntryDTO, 0, app.Len())
	for _, scope := range app.Scopes() {
		code, _ := app.Code(scope)
		entry := CouponEntryDTO{Scope: string(scope), ScopeLabel: scope.Label(), Code: code}
		if rule, ok := reg.Lookup(code); ok {
			entry.Description = rule.Description
		}
		out = append(out, entry)
	}
	return out
}
