package orderlist

import (
	"slices"
	"time"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Event type constants
const (
	EventTypeListItemReconciled      = "ListItemReconciled"
	EventTypeCustomerChangeSubmitted = "CustomerChangeSubmitted"
	EventTypeChangesAcknowledged     = "ChangesAcknowledged"
)

// ListItemReconciledEvent is raised when a refresh changed an item
type ListItemReconciledEvent struct {
	shared.BaseDomainEvent
	ListID        uuid.UUID `json:"list_id"`
	ItemID        uuid.UUID `json:"item_id"`
	ExternalKey   string    `json:"external_key"`
	ChangedFields []string  `json:"changed_fields"`
}

// NewListItemReconciledEvent creates a new ListItemReconciledEvent
func NewListItemReconciledEvent(list *OrderList, item *ListItem, fields []string, at time.Time) *ListItemReconciledEvent {
	return &ListItemReconciledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeListItemReconciled, AggregateTypeOrderList, list.ID, at),
		ListID:          list.ID,
		ItemID:          item.ID,
		ExternalKey:     item.ExternalKey,
		ChangedFields:   slices.Clone(fields),
	}
}

// CustomerChangeSubmittedEvent is raised when a customer edit needs acknowledgment
type CustomerChangeSubmittedEvent struct {
	shared.BaseDomainEvent
	ListID     uuid.UUID   `json:"list_id"`
	CustomerID uuid.UUID   `json:"customer_id"`
	ItemID     *uuid.UUID  `json:"item_id,omitempty"`
	LogIDs     []uuid.UUID `json:"log_ids"`
	Fields     []string    `json:"fields"`
}

// NewCustomerChangeSubmittedEvent creates a new CustomerChangeSubmittedEvent
func NewCustomerChangeSubmittedEvent(list *OrderList, itemID *uuid.UUID, customerID uuid.UUID, logIDs []uuid.UUID, fields []string, at time.Time) *CustomerChangeSubmittedEvent {
	var item *uuid.UUID
	if itemID != nil {
		id := *itemID
		item = &id
	}
	return &CustomerChangeSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerChangeSubmitted, AggregateTypeOrderList, list.ID, at),
		ListID:          list.ID,
		CustomerID:      customerID,
		ItemID:          item,
		LogIDs:          logIDs,
		Fields:          fields,
	}
}

// ChangesAcknowledgedEvent is raised when staff approve customer changes
type ChangesAcknowledgedEvent struct {
	shared.BaseDomainEvent
	ListID         uuid.UUID   `json:"list_id"`
	AcknowledgedBy uuid.UUID   `json:"acknowledged_by"`
	LogIDs         []uuid.UUID `json:"log_ids"`
}

// NewChangesAcknowledgedEvent creates a new ChangesAcknowledgedEvent
func NewChangesAcknowledgedEvent(list *OrderList, staffID uuid.UUID, logIDs []uuid.UUID, at time.Time) *ChangesAcknowledgedEvent {
	return &ChangesAcknowledgedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChangesAcknowledged, AggregateTypeOrderList, list.ID, at),
		ListID:          list.ID,
		AcknowledgedBy:  staffID,
		LogIDs:          logIDs,
	}
}
