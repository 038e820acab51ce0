package reservation

import (
	"fmt"
	"time"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
)

const DateLayout = "2006-01-02"

// TimeSlot is a fixed-width window on one date.
type TimeSlot struct {
	Start     time.Time
	End       time.Time
	Available bool
}

// Duration is the slot width.
func (s TimeSlot) Duration() time.Duration { return s.End.Sub(s.Start) }

// Minutes is the slot width in whole minutes.
func (s TimeSlot) Minutes() int64 { return int64(s.Duration() / time.Minute) }

// Overlaps reports whether [start, end) intersects the slot.
func (s TimeSlot) Overlaps(start, end time.Time) bool {
	return start.Before(s.End) && end.After(s.Start)
}

// Label renders the slot as "15:00-16:00" in its own location.
func (s TimeSlot) Label() string {
	return s.Start.Format("15:04") + "-" + s.End.Format("15:04")
}

// Schedule generates slots for the venue's opening hours.
type Schedule struct {
	loc       *time.Location
	openHour  int
	closeHour int
}

// NewSchedule creates a schedule. closeHour may be 24 for midnight.
func NewSchedule(loc *time.Location, openHour, closeHour int) Schedule {
	return Schedule{loc: loc, openHour: openHour, closeHour: closeHour}
}

func (s Schedule) Location() *time.Location { return s.loc }

// ParseDate parses a YYYY-MM-DD date at midnight venue time.
func (s Schedule) ParseDate(date string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, date, s.loc)
	if err != nil {
		return time.Time{}, apperror.NewValidationError(fmt.Sprintf("date %q must be formatted YYYY-MM-DD", date))
	}
	return d, nil
}

// Bounds returns opening and closing instants for date.
func (s Schedule) Bounds(date time.Time) (time.Time, time.Time) {
	y, m, d := date.In(s.loc).Date()
	return time.Date(y, m, d, s.openHour, 0, 0, 0, s.loc), time.Date(y, m, d, s.closeHour, 0, 0, 0, s.loc)
}

// Slots lists every slot of width d that fits inside opening hours.
func (s Schedule) Slots(date time.Time, d time.Duration) []TimeSlot {
	if d <= 0 {
		return nil
	}
	open, closing := s.Bounds(date)
	var slots []TimeSlot
	for start := open; !start.Add(d).After(closing); start = start.Add(d) {
		slots = append(slots, TimeSlot{Start: start, End: start.Add(d), Available: true})
	}
	return slots
}

// SlotAt resolves a "HH:MM" start time on date into a slot of width d. The
// start must fall on the slot grid within opening hours.
func (s Schedule) SlotAt(date time.Time, startHHMM string, d time.Duration) (TimeSlot, error) {
	clock, err := time.Parse("15:04", startHHMM)
	if err != nil {
		return TimeSlot{}, apperror.NewValidationError(fmt.Sprintf("start time %q must be formatted HH:MM", startHHMM))
	}
	y, m, day := date.In(s.loc).Date()
	start := time.Date(y, m, day, clock.Hour(), clock.Minute(), 0, 0, s.loc)
	for _, slot := range s.Slots(date, d) {
		if slot.Start.Equal(start) {
			return slot, nil
		}
	}
	return TimeSlot{}, apperror.NewValidationError(
		fmt.Sprintf("%s is not a bookable %d minute slot start", startHHMM, int(d/time.Minute)))
}
