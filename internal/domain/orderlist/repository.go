package orderlist

import (
	"context"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ListFilter narrows a list browse. Zero values match every list.
type ListFilter struct {
	shared.Filter
	CustomerID *uuid.UUID
	Status     ListStatus
}

// OrderListRepository defines the interface for order list persistence
type OrderListRepository interface {
	// FindByID loads a list with its items and activity log
	FindByID(ctx context.Context, id uuid.UUID) (*OrderList, error)

	// FindByItemID loads the list owning the given item
	FindByItemID(ctx context.Context, itemID uuid.UUID) (*OrderList, error)

	// FindIDsByStatus returns the ids of lists in a status, oldest first
	FindIDsByStatus(ctx context.Context, status ListStatus) ([]uuid.UUID, error)

	// FindAll returns one page of lists without items, plus the total match count
	FindAll(ctx context.Context, filter ListFilter) ([]OrderList, int64, error)

	// Save creates or updates a list, its items and new log entries in one transaction
	Save(ctx context.Context, list *OrderList) error

	// Delete removes a list together with its items and activity log
	Delete(ctx context.Context, id uuid.UUID) error
}
