package orderlist

import (
	"context"

	"github.com/backoffice/backend/internal/domain/orderlist"
	"github.com/backoffice/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// PendingChangeNotifier logs customer changes that need staff review and
// the acknowledgments that settle them.
type PendingChangeNotifier struct {
	logger *zap.Logger
}

// NewPendingChangeNotifier creates a new PendingChangeNotifier
func NewPendingChangeNotifier(logger *zap.Logger) *PendingChangeNotifier {
	return &PendingChangeNotifier{logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (n *PendingChangeNotifier) EventTypes() []string {
	return []string{
		orderlist.EventTypeCustomerChangeSubmitted,
		orderlist.EventTypeChangesAcknowledged,
	}
}

// Handle processes a domain event
func (n *PendingChangeNotifier) Handle(_ context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *orderlist.CustomerChangeSubmittedEvent:
		n.logger.Info("Customer change awaiting acknowledgment",
			zap.String("list_id", e.ListID.String()),
			zap.String("customer_id", e.CustomerID.String()),
			zap.Strings("fields", e.Fields),
			zap.Int("entries", len(e.LogIDs)))
	case *orderlist.ChangesAcknowledgedEvent:
		n.logger.Info("Customer changes acknowledged",
			zap.String("list_id", e.ListID.String()),
			zap.String("acknowledged_by", e.AcknowledgedBy.String()),
			zap.Int("entries", len(e.LogIDs)))
	}
	return nil
}
