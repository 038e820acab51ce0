package application

import (
	"context"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/reservation"
	"go.uber.org/zap"
)

// ChangeNotifier drops cached grids of changed stations and announces the
// change. Failures never fail the write that caused them.
type ChangeNotifier struct {
	cache     SlotCache
	publisher ChangePublisher
	logger    *zap.Logger
}

// NewChangeNotifier creates a new ChangeNotifier.
func NewChangeNotifier(cache SlotCache, publisher ChangePublisher, logger *zap.Logger) *ChangeNotifier {
	return &ChangeNotifier{cache: cache, publisher: publisher, logger: logger}
}

// Notify handles rows that were just written.
func (n *ChangeNotifier) Notify(ctx context.Context, eventType string, rows []*reservation.Reservation) {
	if len(rows) == 0 {
		return
	}
	evt := reservation.NewChangedEvent(eventType, rows)
	n.cache.Invalidate(ctx, evt.ResourceIDs...)
	if err := n.publisher.PublishReservationChange(ctx, evt); err != nil {
		n.logger.Warn("failed to publish reservation change",
			zap.String("type", eventType),
			zap.String("group_id", evt.GroupID.String()),
			zap.Error(err),
		)
	}
}
