package events

import (
	"context"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/reservation"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/kafka"
)

// EventSource is the CloudEvents source of everything this service publishes.
const EventSource = "arcadia/service-booking"

// EventPublisher writes CloudEvents to a topic.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, ce kafka.CloudEvent) error
}

// ReservationPublisher announces reservation changes on the reservation topic,
// keyed by group so a group's changes stay ordered.
type ReservationPublisher struct {
	producer EventPublisher
}

// NewReservationPublisher creates a new ReservationPublisher.
func NewReservationPublisher(producer EventPublisher) *ReservationPublisher {
	return &ReservationPublisher{producer: producer}
}

// PublishReservationChange publishes evt as a CloudEvent of evt.Type.
func (p *ReservationPublisher) PublishReservationChange(ctx context.Context, evt reservation.ChangedEvent) error {
	ce, err := kafka.NewCloudEvent(EventSource, evt.Type, evt)
	if err != nil {
		return err
	}
	return p.producer.PublishEvent(ctx, reservation.TopicReservationEvents, ce.WithSubject(evt.GroupID.String()))
}
