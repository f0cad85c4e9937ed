package orderlist

import (
	"context"

	"github.com/shopspring/decimal"
)

// Snapshot is the normalized state of one item in the external source
type Snapshot struct {
	ItemKey       string
	Name          string
	Code          string
	Image         string
	WarehouseName string
	WarehouseCode string
	Quantity      decimal.Decimal
	Deliveries    Deliveries
	Skipped       []SkippedObservation
}

// SnapshotSource fetches item snapshots from the external system.
// Implementations return a NOT_FOUND DomainError when the key matches nothing.
type SnapshotSource interface {
	Fetch(ctx context.Context, itemKey string) (*Snapshot, error)
}
