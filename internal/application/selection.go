package application

import (
	"context"
	"fmt"
	"time"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/coupon"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/pricing"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/reservation"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/resource"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
	"github.com/google/uuid"
)

// SelectionRequest is the client's current station selection. Date and
// StartTime are optional until a slot is chosen.
type SelectionRequest struct {
	ResourceIDs     []uuid.UUID `json:"resource_ids"`
	Date            string      `json:"date"`
	StartTime       string      `json:"start_time"`
	DurationMinutes int         `json:"duration_minutes"`
}

// Selection is a SelectionRequest resolved against the catalog and schedule.
type Selection struct {
	Resources []*resource.Resource
	Date      string
	Day       time.Time
	Slot      *reservation.TimeSlot
	Minutes   int64
}

// Target is what coupons are evaluated against.
func (s *Selection) Target() coupon.Target {
	t := coupon.Target{Categories: resource.CategoriesOf(s.Resources)}
	if s.Slot != nil {
		t.SlotStart, t.SlotEnd = s.Slot.Start, s.Slot.End
	}
	return t
}

// Items returns the priced view of the selected stations.
func (s *Selection) Items() []pricing.Item {
	items := make([]pricing.Item, len(s.Resources))
	for i, r := range s.Resources {
		items[i] = pricing.ItemFromResource(r)
	}
	return items
}

// ResourceIDs returns the selected station ids in selection order.
func (s *Selection) ResourceIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(s.Resources))
	for i, r := range s.Resources {
		ids[i] = r.ID()
	}
	return ids
}

// Names maps station ids to display names.
func (s *Selection) Names() map[uuid.UUID]string {
	names := make(map[uuid.UUID]string, len(s.Resources))
	for _, r := range s.Resources {
		names[r.ID()] = r.Name()
	}
	return names
}

// Selector resolves client selections into stations and slots.
type Selector struct {
	resources   resource.Repository
	schedule    reservation.Schedule
	slotMinutes int
}

// NewSelector creates a Selector over the venue schedule. slotMinutes is the
// default and the granularity of bookable durations.
func NewSelector(resources resource.Repository, schedule reservation.Schedule, slotMinutes int) *Selector {
	return &Selector{resources: resources, schedule: schedule, slotMinutes: slotMinutes}
}

// Schedule returns the venue schedule.
func (s *Selector) Schedule() reservation.Schedule { return s.schedule }

// Duration validates a requested duration. Zero selects the default slot width.
func (s *Selector) Duration(minutes int) (time.Duration, error) {
	if minutes == 0 {
		minutes = s.slotMinutes
	}
	if minutes < 0 || minutes%s.slotMinutes != 0 {
		return 0, apperror.NewValidationError(
			fmt.Sprintf("duration must be a positive multiple of %d minutes", s.slotMinutes)).
			WithDetail("duration_minutes", minutes)
	}
	return time.Duration(minutes) * time.Minute, nil
}

// Resolve loads the selected stations and, when date and start time are
// present, the chosen slot. Duplicate ids are collapsed.
func (s *Selector) Resolve(ctx context.Context, req SelectionRequest) (*Selection, error) {
	d, err := s.Duration(req.DurationMinutes)
	if err != nil {
		return nil, err
	}
	sel := &Selection{Date: req.Date, Minutes: int64(d / time.Minute)}

	if ids := dedupe(req.ResourceIDs); len(ids) > 0 {
		if sel.Resources, err = s.resources.FindByIDs(ctx, ids); err != nil {
			return nil, err
		}
	}

	if req.Date == "" {
		if req.StartTime != "" {
			return nil, apperror.NewValidationError("a start time needs a date")
		}
		return sel, nil
	}
	if sel.Day, err = s.schedule.ParseDate(req.Date); err != nil {
		return nil, err
	}
	if req.StartTime != "" {
		slot, err := s.schedule.SlotAt(sel.Day, req.StartTime, d)
		if err != nil {
			return nil, err
		}
		sel.Slot = &slot
	}
	return sel, nil
}

// requireBookable checks that a selection can be turned into reservations.
func requireBookable(sel *Selection, now time.Time) error {
	if len(sel.Resources) == 0 {
		return apperror.NewValidationError("select at least one station")
	}
	if sel.Slot == nil {
		return apperror.NewValidationError("pick a date and start time first")
	}
	if sel.Slot.Start.Before(now) {
		return apperror.NewValidationError(
			fmt.Sprintf("the %s slot has already started; pick a later one", sel.Slot.Label())).
			WithDetail("reason", "slot_in_past")
	}
	return nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
