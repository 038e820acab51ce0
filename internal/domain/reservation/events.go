package reservation

import (
	"time"

	"github.com/google/uuid"
)

// TopicReservationEvents carries every reservation change.
const TopicReservationEvents = "reservation.events"

const (
	EventReservationCreated       = "reservation.created"
	EventReservationStatusChanged = "reservation.status_changed"
)

// ChangedEvent notifies listeners that availability on some stations changed.
type ChangedEvent struct {
	Type           string      `json:"type"`
	GroupID        uuid.UUID   `json:"group_id"`
	ReservationIDs []uuid.UUID `json:"reservation_ids"`
	ResourceIDs    []uuid.UUID `json:"resource_ids"`
	Date           string      `json:"date"`
	StartsAt       time.Time   `json:"starts_at"`
	EndsAt         time.Time   `json:"ends_at"`
	Status         string      `json:"status"`
	OccurredAt     time.Time   `json:"occurred_at"`
}

// NewChangedEvent summarizes rows of one group.
func NewChangedEvent(eventType string, rows []*Reservation) ChangedEvent {
	evt := ChangedEvent{Type: eventType, OccurredAt: time.Now().UTC()}
	for _, r := range rows {
		evt.GroupID = r.GroupID()
		evt.ReservationIDs = append(evt.ReservationIDs, r.ID())
		evt.ResourceIDs = append(evt.ResourceIDs, r.ResourceID())
		evt.Date = r.BookingDate().Format(DateLayout)
		evt.StartsAt = r.StartsAt()
		evt.EndsAt = r.EndsAt()
		evt.Status = string(r.Status())
	}
	return evt
}
