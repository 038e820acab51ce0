package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/reservation"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func availableStarts(slots []SlotDTO) []string {
	var out []string
	for _, s := range slots {
		if s.Available {
			out = append(out, s.StartTime)
		}
	}
	return out
}

func TestListResources_GroupsByCategory(t *testing.T) {
	h := newHarness(t)

	groups, err := h.availability.ListResources(context.Background())
	require.NoError(t, err)

	require.Len(t, groups, 2)
	assert.Equal(t, "pc", groups[0].Category)
	assert.Len(t, groups[0].Resources, 2)
	assert.Equal(t, "console", groups[1].Category)
	assert.Equal(t, "Console", groups[1].Label)
	assert.Equal(t, int64(15000), groups[1].Resources[0].HourlyRate)
}

func TestGetSlots_MarksBookedAndStartedSlots(t *testing.T) {
	h := newHarness(t)
	h.book(t, h.pc1, "15:00")
	h.clock.Set(time.Date(2026, 11, 2, 12, 30, 0, 0, venue))

	slots, err := h.availability.GetSlots(context.Background(), testDate, h.pc1.ID(), 0)
	require.NoError(t, err)

	require.Len(t, slots, 13)
	assert.Equal(t, []string{"13:00", "14:00", "16:00", "17:00", "18:00", "19:00", "20:00", "21:00", "22:00"}, availableStarts(slots))
}

func TestGetSlots_ServedFromCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.availability.GetSlots(ctx, testDate, h.pc1.ID(), 60)
	require.NoError(t, err)
	_, err = h.availability.GetSlots(ctx, testDate, h.pc1.ID(), 60)
	require.NoError(t, err)
	assert.Equal(t, 1, h.reservations.rangeQueries)

	h.cache.Invalidate(ctx, h.pc1.ID())
	_, err = h.availability.GetSlots(ctx, testDate, h.pc1.ID(), 60)
	require.NoError(t, err)
	assert.Equal(t, 2, h.reservations.rangeQueries)
}

func TestGetSlots_CachedGridStillHidesStartedSlots(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.availability.GetSlots(ctx, testDate, h.pc1.ID(), 0)
	require.NoError(t, err)
	assert.True(t, first[0].Available)

	h.clock.Add(2 * time.Hour)
	second, err := h.availability.GetSlots(ctx, testDate, h.pc1.ID(), 0)
	require.NoError(t, err)
	assert.False(t, second[0].Available, "10:00 has started by 11:00")
	assert.True(t, second[2].Available)
}

func TestGetSlots_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		date       string
		resourceID uuid.UUID
		minutes    int
		kind       apperror.Kind
	}{
		{"bad date", "02-11-2026", h.pc1.ID(), 0, apperror.KindValidation},
		{"off-grid duration", testDate, h.pc1.ID(), 45, apperror.KindValidation},
		{"longer than opening hours", testDate, h.pc1.ID(), 60 * 14, apperror.KindValidation},
		{"unknown station", testDate, uuid.New(), 0, apperror.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.availability.GetSlots(ctx, tt.date, tt.resourceID, tt.minutes)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
		})
	}
}

func TestGetSlots_StoreFailureDisablesSelection(t *testing.T) {
	h := newHarness(t)
	h.reservations.readErr = apperror.NewPersistenceError("failed to load reservations", errors.New("connection refused"))

	_, err := h.availability.GetSlots(context.Background(), testDate, h.pc1.ID(), 0)

	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindPersistence))
	assert.Contains(t, err.Error(), "slot selection disabled")
}

func TestGetSlots_TwoHourDuration(t *testing.T) {
	h := newHarness(t)
	h.book(t, h.pc1, "12:00")

	slots, err := h.availability.GetSlots(context.Background(), testDate, h.pc1.ID(), 120)
	require.NoError(t, err)

	require.Len(t, slots, 6)
	assert.Equal(t, "10:00-12:00", slots[0].Label)
	assert.True(t, slots[0].Available)
	assert.False(t, slots[1].Available, "12:00-14:00 overlaps the booking")
}

func TestPreviewAvailability_ShowsSlotWhenAnyStationFree(t *testing.T) {
	h := newHarness(t)
	h.book(t, h.pc1, "15:00")
	h.book(t, h.pc2, "15:00")
	h.book(t, h.pc1, "16:00")

	preview, err := h.availability.PreviewAvailability(context.Background(), PreviewRequest{
		ResourceIDs: []uuid.UUID{h.pc1.ID(), h.pc2.ID()},
		Date:        testDate,
	})
	require.NoError(t, err)

	byStart := map[string]PreviewSlotDTO{}
	for _, s := range preview {
		byStart[s.StartTime] = s
	}
	assert.False(t, byStart["15:00"].Available)
	assert.Empty(t, byStart["15:00"].FreeResourceIDs)
	assert.True(t, byStart["16:00"].Available)
	assert.Equal(t, []uuid.UUID{h.pc2.ID()}, byStart["16:00"].FreeResourceIDs)
	assert.Len(t, byStart["17:00"].FreeResourceIDs, 2)
}

func TestCommitSlot_PrunesTakenStation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Warm the cache while every station is still free.
	_, err := h.availability.PreviewAvailability(ctx, PreviewRequest{
		ResourceIDs: []uuid.UUID{h.pc1.ID(), h.pc2.ID(), h.console1.ID()},
		Date:        testDate,
	})
	require.NoError(t, err)
	h.book(t, h.pc2, "15:00")

	result, err := h.availability.CommitSlot(ctx, CommitRequest{
		ResourceIDs: []uuid.UUID{h.pc1.ID(), h.pc2.ID(), h.console1.ID()},
		Date:        testDate,
		StartTime:   "15:00",
	})
	require.NoError(t, err)

	require.Len(t, result.Resources, 2)
	assert.Equal(t, h.pc1.ID(), result.Resources[0].ID)
	assert.Equal(t, h.console1.ID(), result.Resources[1].ID)
	require.Len(t, result.Removed, 1)
	assert.Equal(t, h.pc2.ID(), result.Removed[0].ResourceID)
	assert.Contains(t, result.Removed[0].Reason, "PC-02")
	assert.Equal(t, "15:00-16:00", result.Slot.Label)
}

func TestCommitSlot_NothingLeftIsConflict(t *testing.T) {
	h := newHarness(t)
	h.book(t, h.pc1, "15:00")

	_, err := h.availability.CommitSlot(context.Background(), CommitRequest{
		ResourceIDs: []uuid.UUID{h.pc1.ID()},
		Date:        testDate,
		StartTime:   "15:00",
	})

	assert.True(t, apperror.IsKind(err, apperror.KindAvailabilityConflict))
}

func TestCommitSlot_RejectsStartedSlot(t *testing.T) {
	h := newHarness(t)
	h.clock.Set(time.Date(2026, 11, 2, 15, 10, 0, 0, venue))

	_, err := h.availability.CommitSlot(context.Background(), CommitRequest{
		ResourceIDs: []uuid.UUID{h.pc1.ID()},
		Date:        testDate,
		StartTime:   "15:00",
	})

	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	assert.Equal(t, "slot_in_past", appErr.Details["reason"])
}

func TestCommitSlot_CancelledReservationFreesStation(t *testing.T) {
	h := newHarness(t)
	h.book(t, h.pc1, "15:00")
	row := h.reservations.rows[0]
	require.NoError(t, row.Cancel("staff-1", h.clock.Now()))

	result, err := h.availability.CommitSlot(context.Background(), CommitRequest{
		ResourceIDs: []uuid.UUID{h.pc1.ID()},
		Date:        testDate,
		StartTime:   "15:00",
	})
	require.NoError(t, err)
	assert.Len(t, result.Resources, 1)
	assert.Empty(t, result.Removed)
	assert.Equal(t, reservation.StatusCancelled, row.Status())
}
