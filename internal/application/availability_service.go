package application

import (
	"context"
	"fmt"
	"time"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/reservation"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/resource"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PreviewRequest asks for the merged availability of several stations.
type PreviewRequest struct {
	ResourceIDs     []uuid.UUID `json:"resource_ids" binding:"required,min=1"`
	Date            string      `json:"date" binding:"required"`
	DurationMinutes int         `json:"duration_minutes"`
}

// PreviewSlotDTO is a merged slot with the stations free in it.
type PreviewSlotDTO struct {
	SlotDTO
	FreeResourceIDs []uuid.UUID `json:"free_resource_ids"`
}

// CommitRequest finalizes the stations for one slot.
type CommitRequest struct {
	ResourceIDs     []uuid.UUID `json:"resource_ids" binding:"required,min=1"`
	Date            string      `json:"date" binding:"required"`
	StartTime       string      `json:"start_time" binding:"required"`
	DurationMinutes int         `json:"duration_minutes"`
}

// RemovedResourceDTO is a station pruned from a selection at commit time.
type RemovedResourceDTO struct {
	ResourceID uuid.UUID `json:"resource_id"`
	Name       string    `json:"name"`
	Reason     string    `json:"reason"`
}

// CommitResultDTO is the authoritative selection for a slot.
type CommitResultDTO struct {
	Date            string               `json:"date"`
	Slot            SlotDTO              `json:"slot"`
	DurationMinutes int64                `json:"duration_minutes"`
	Resources       []ResourceDTO        `json:"resources"`
	Removed         []RemovedResourceDTO `json:"removed"`
}

// AvailabilityService computes bookable slots. Display reads go through the
// slot cache; commits always read the store.
type AvailabilityService struct {
	selector     *Selector
	resources    resource.Repository
	reservations reservation.Repository
	cache        SlotCache
	clock        clock.Clock
	logger       *zap.Logger
}

// NewAvailabilityService creates a new AvailabilityService.
func NewAvailabilityService(
	selector *Selector,
	resources resource.Repository,
	reservations reservation.Repository,
	cache SlotCache,
	clk clock.Clock,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		selector:     selector,
		resources:    resources,
		reservations: reservations,
		cache:        cache,
		clock:        clk,
		logger:       logger,
	}
}

// ListResources returns the bookable catalog grouped by category.
func (s *AvailabilityService) ListResources(ctx context.Context) ([]CategoryGroupDTO, error) {
	all, err := s.resources.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	groups := make([]CategoryGroupDTO, 0, len(resource.Categories))
	for _, cat := range resource.Categories {
		g := CategoryGroupDTO{Category: string(cat), Label: cat.Label(), Resources: []ResourceDTO{}}
		for _, r := range all {
			if r.Category() == cat {
				g.Resources = append(g.Resources, toResourceDTO(r))
			}
		}
		if len(g.Resources) > 0 {
			groups = append(groups, g)
		}
	}
	return groups, nil
}

// GetSlots lists the slots of one station on date. A slot is unavailable when
// an active reservation overlaps it or when it has already started.
func (s *AvailabilityService) GetSlots(ctx context.Context, date string, resourceID uuid.UUID, minutes int) ([]SlotDTO, error) {
	day, d, err := s.parse(date, minutes)
	if err != nil {
		return nil, err
	}
	if _, err := s.resources.FindByIDs(ctx, []uuid.UUID{resourceID}); err != nil {
		return nil, slotReadError(err)
	}
	grids, err := s.grids(ctx, day, date, d, []uuid.UUID{resourceID})
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	out := make([]SlotDTO, 0, len(grids[resourceID]))
	for _, slot := range grids[resourceID] {
		slot.Available = slot.Available && !slot.Start.Before(now)
		out = append(out, toSlotDTO(slot))
	}
	return out, nil
}

// PreviewAvailability merges the slots of several stations. A merged slot is
// available when at least one station is free in it. This view is advisory;
// only CommitSlot produces a final selection.
func (s *AvailabilityService) PreviewAvailability(ctx context.Context, req PreviewRequest) ([]PreviewSlotDTO, error) {
	day, d, err := s.parse(req.Date, req.DurationMinutes)
	if err != nil {
		return nil, err
	}
	ids := dedupe(req.ResourceIDs)
	if len(ids) == 0 {
		return nil, apperror.NewValidationError("select at least one station")
	}
	if _, err := s.resources.FindByIDs(ctx, ids); err != nil {
		return nil, slotReadError(err)
	}
	grids, err := s.grids(ctx, day, req.Date, d, ids)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	base := s.selector.Schedule().Slots(day, d)
	out := make([]PreviewSlotDTO, len(base))
	for i, slot := range base {
		free := []uuid.UUID{}
		if !slot.Start.Before(now) {
			for _, id := range ids {
				if g := grids[id]; i < len(g) && g[i].Available {
					free = append(free, id)
				}
			}
		}
		slot.Available = len(free) > 0
		out[i] = PreviewSlotDTO{SlotDTO: toSlotDTO(slot), FreeResourceIDs: free}
	}
	return out, nil
}

// CommitSlot re-reads every selected station for the slot, bypassing the
// cache, and prunes the ones that are taken. It fails with an availability
// conflict when nothing is left.
func (s *AvailabilityService) CommitSlot(ctx context.Context, req CommitRequest) (*CommitResultDTO, error) {
	sel, err := s.selector.Resolve(ctx, SelectionRequest{
		ResourceIDs:     req.ResourceIDs,
		Date:            req.Date,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		return nil, slotReadError(err)
	}
	if err := requireBookable(sel, s.clock.Now()); err != nil {
		return nil, err
	}

	busy, err := s.busyStations(ctx, sel)
	if err != nil {
		return nil, err
	}

	result := &CommitResultDTO{
		Date:            sel.Date,
		Slot:            toSlotDTO(*sel.Slot),
		DurationMinutes: sel.Minutes,
		Resources:       []ResourceDTO{},
		Removed:         []RemovedResourceDTO{},
	}
	for _, r := range sel.Resources {
		if busy[r.ID()] {
			result.Removed = append(result.Removed, RemovedResourceDTO{
				ResourceID: r.ID(),
				Name:       r.Name(),
				Reason:     fmt.Sprintf("%s is already booked for %s", r.Name(), sel.Slot.Label()),
			})
			continue
		}
		result.Resources = append(result.Resources, toResourceDTO(r))
	}

	if len(result.Resources) == 0 {
		return nil, apperror.NewAvailabilityConflict(
			fmt.Sprintf("none of the selected stations are free for %s; pick another slot", sel.Slot.Label())).
			WithDetail("slot", sel.Slot.Label())
	}
	if len(result.Removed) > 0 {
		s.logger.Info("commit pruned stations",
			zap.String("date", sel.Date),
			zap.String("slot", sel.Slot.Label()),
			zap.Int("removed", len(result.Removed)),
		)
	}
	return result, nil
}

// EnsureFree fails with an availability conflict naming the first taken
// station when any selected station is booked for the slot.
func (s *AvailabilityService) EnsureFree(ctx context.Context, sel *Selection) error {
	busy, err := s.busyStations(ctx, sel)
	if err != nil {
		return err
	}
	for _, r := range sel.Resources {
		if busy[r.ID()] {
			return apperror.NewAvailabilityConflict(
				fmt.Sprintf("%s was just booked for %s; review your selection", r.Name(), sel.Slot.Label())).
				WithDetail("resource_id", r.ID().String())
		}
	}
	return nil
}

func (s *AvailabilityService) busyStations(ctx context.Context, sel *Selection) (map[uuid.UUID]bool, error) {
	rows, err := s.reservations.FindActiveInRange(ctx, sel.ResourceIDs(), sel.Slot.Start, sel.Slot.End)
	if err != nil {
		return nil, slotReadError(err)
	}
	busy := make(map[uuid.UUID]bool, len(rows))
	for _, r := range rows {
		busy[r.ResourceID()] = true
	}
	return busy, nil
}

func (s *AvailabilityService) parse(date string, minutes int) (time.Time, time.Duration, error) {
	day, err := s.selector.Schedule().ParseDate(date)
	if err != nil {
		return time.Time{}, 0, err
	}
	d, err := s.selector.Duration(minutes)
	if err != nil {
		return time.Time{}, 0, err
	}
	if len(s.selector.Schedule().Slots(day, d)) == 0 {
		return time.Time{}, 0, apperror.NewValidationError("duration is longer than the venue is open")
	}
	return day, d, nil
}

// grids returns the reservation-based slot grid of each station. Cache misses
// are loaded in one store read and written back.
func (s *AvailabilityService) grids(ctx context.Context, day time.Time, date string, d time.Duration, ids []uuid.UUID) (map[uuid.UUID][]reservation.TimeSlot, error) {
	minutes := int(d / time.Minute)
	out := make(map[uuid.UUID][]reservation.TimeSlot, len(ids))
	var misses []uuid.UUID
	gens := make(map[uuid.UUID]int64)
	for _, id := range ids {
		slots, gen, ok := s.cache.Get(ctx, id, date, minutes)
		if ok {
			out[id] = slots
			continue
		}
		gens[id] = gen
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return out, nil
	}

	open, closing := s.selector.Schedule().Bounds(day)
	rows, err := s.reservations.FindActiveInRange(ctx, misses, open, closing)
	if err != nil {
		return nil, slotReadError(err)
	}
	byResource := make(map[uuid.UUID][]*reservation.Reservation)
	for _, r := range rows {
		byResource[r.ResourceID()] = append(byResource[r.ResourceID()], r)
	}
	for _, id := range misses {
		slots := s.selector.Schedule().Slots(day, d)
		for i := range slots {
			for _, r := range byResource[id] {
				if slots[i].Overlaps(r.StartsAt(), r.EndsAt()) {
					slots[i].Available = false
					break
				}
			}
		}
		s.cache.Set(ctx, id, date, minutes, gens[id], slots)
		out[id] = slots
	}
	return out, nil
}

// slotReadError turns store failures into the retryable error that disables
// slot selection in the client. Other kinds pass through.
func slotReadError(err error) error {
	if apperror.IsKind(err, apperror.KindPersistence) || apperror.KindOf(err) == apperror.KindInternal {
		return apperror.NewPersistenceError("availability is temporarily unavailable; slot selection disabled", err)
	}
	return err
}
