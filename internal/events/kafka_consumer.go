package events

import (
	"context"
	"strings"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/application"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/reservation"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ReservationEventConsumer listens to reservation changes from every instance,
// drops the affected cached slot grids and notifies local subscribers.
type ReservationEventConsumer struct {
	consumer *kafka.Consumer
	cache    application.SlotCache
	broker   *ChangeBroker
	logger   *zap.Logger
}

// NewReservationEventConsumer creates a new consumer for reservation events.
// Each instance needs its own groupID so every instance sees every change.
func NewReservationEventConsumer(
	brokers []string,
	groupID string,
	cache application.SlotCache,
	broker *ChangeBroker,
	logger *zap.Logger,
) *ReservationEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, reservation.TopicReservationEvents, logger)
	return &ReservationEventConsumer{
		consumer: consumer,
		cache:    cache,
		broker:   broker,
		logger:   logger,
	}
}

// Start begins consuming reservation events. It blocks until the context is cancelled.
func (c *ReservationEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// handleMessage routes incoming Kafka messages to the appropriate handler.
func (c *ReservationEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from reservation topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return err
	}

	switch {
	case strings.EqualFold(cloudEvent.Type, reservation.EventReservationCreated),
		strings.EqualFold(cloudEvent.Type, reservation.EventReservationStatusChanged):
		return c.handleChange(ctx, cloudEvent)

	default:
		c.logger.Debug("ignoring unhandled reservation event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *ReservationEventConsumer) handleChange(ctx context.Context, ce kafka.CloudEvent) error {
	var evt reservation.ChangedEvent
	if err := ce.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse reservation change data", zap.Error(err))
		return err
	}

	c.logger.Debug("reservation changed",
		zap.String("type", evt.Type),
		zap.String("group_id", evt.GroupID.String()),
		zap.Int("stations", len(evt.ResourceIDs)),
	)
	c.cache.Invalidate(ctx, evt.ResourceIDs...)
	c.broker.Publish(evt)
	return nil
}

// Close closes the underlying Kafka consumer.
func (c *ReservationEventConsumer) Close() error {
	return c.consumer.Close()
}
