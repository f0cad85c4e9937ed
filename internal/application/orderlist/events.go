package orderlist

import (
	"context"

	"github.com/backoffice/backend/internal/domain/orderlist"
	"github.com/backoffice/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// publishEvents publishes the list's pending domain events after a successful
// save. Publish failures are logged; the saved state is not rolled back.
func publishEvents(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, list *orderlist.OrderList) {
	defer list.ClearDomainEvents()
	if publisher == nil {
		return
	}
	for _, event := range list.GetDomainEvents() {
		if err := publisher.Publish(ctx, event); err != nil {
			logger.Warn("Failed to publish domain event",
				zap.String("event_type", event.EventType()),
				zap.String("list_id", list.ID.String()),
				zap.Error(err))
		}
	}
}
