package reservation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func istSchedule(t *testing.T) Schedule {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return NewSchedule(loc, 10, 23)
}

func TestSlots_CoverOpeningHours(t *testing.T) {
	s := istSchedule(t)
	date, err := s.ParseDate("2026-03-14")
	require.NoError(t, err)

	slots := s.Slots(date, time.Hour)
	require.Len(t, slots, 13)
	assert.Equal(t, "10:00-11:00", slots[0].Label())
	assert.Equal(t, "22:00-23:00", slots[12].Label())
	for _, slot := range slots {
		assert.True(t, slot.Available)
	}
}

func TestSlots_DropsPartialTail(t *testing.T) {
	s := istSchedule(t)
	date, _ := s.ParseDate("2026-03-14")

	slots := s.Slots(date, 90*time.Minute)
	require.NotEmpty(t, slots)
	last := slots[len(slots)-1]
	assert.False(t, last.End.After(time.Date(2026, 3, 14, 23, 0, 0, 0, s.Location())))
}

func TestSlotAt(t *testing.T) {
	s := istSchedule(t)
	date, _ := s.ParseDate("2026-03-14")

	slot, err := s.SlotAt(date, "15:00", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 15, slot.Start.Hour())
	assert.Equal(t, int64(60), slot.Minutes())

	_, err = s.SlotAt(date, "15:30", time.Hour)
	assert.Error(t, err, "off grid")

	_, err = s.SlotAt(date, "23:00", time.Hour)
	assert.Error(t, err, "after closing")

	_, err = s.SlotAt(date, "3pm", time.Hour)
	assert.Error(t, err)
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := istSchedule(t).ParseDate("14/03/2026")
	assert.Error(t, err)
}

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	slot := TimeSlot{Start: base, End: base.Add(time.Hour)}

	assert.True(t, slot.Overlaps(base.Add(30*time.Minute), base.Add(90*time.Minute)))
	assert.True(t, slot.Overlaps(base.Add(-time.Hour), base.Add(time.Minute)))
	assert.False(t, slot.Overlaps(base.Add(time.Hour), base.Add(2*time.Hour)), "touching end")
	assert.False(t, slot.Overlaps(base.Add(-time.Hour), base), "touching start")
}
