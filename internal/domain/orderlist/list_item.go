package orderlist

import (
	"maps"
	"strings"
	"time"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuantitySource records who currently owns an item's quantity
type QuantitySource string

const (
	QuantitySourceExternal QuantitySource = "external"
	QuantitySourceManual   QuantitySource = "manual"
)

// DeliveryInterval is how often an item is delivered
type DeliveryInterval string

const (
	IntervalWeekly     DeliveryInterval = "weekly"
	IntervalMonthly    DeliveryInterval = "monthly"
	IntervalQuarterly  DeliveryInterval = "quarterly"
	IntervalHalfYearly DeliveryInterval = "half_yearly"
	IntervalYearly     DeliveryInterval = "yearly"
)

// IsValid checks if the interval is a valid DeliveryInterval. Empty means unset.
func (i DeliveryInterval) IsValid() bool {
	switch i {
	case "", IntervalWeekly, IntervalMonthly, IntervalQuarterly, IntervalHalfYearly, IntervalYearly:
		return true
	}
	return false
}

// ListItem is one line of an order list mirroring one external item
type ListItem struct {
	shared.BaseEntity
	ListID         uuid.UUID
	ExternalKey    string
	Position       int
	Name           string
	Code           string
	Image          string
	WarehouseName  string
	WarehouseCode  string
	Quantity       decimal.NullDecimal
	QuantitySource QuantitySource
	Interval       DeliveryInterval
	Comment        string
	Marked         bool
	Deliveries     Deliveries
	FieldStatus    map[string]ApprovalState
	Creator        Actor
	LastSyncedAt   *time.Time
}

// NewListItem creates an item referencing an external key
func NewListItem(listID uuid.UUID, externalKey string, creator Actor) (*ListItem, error) {
	externalKey = strings.TrimSpace(externalKey)
	if externalKey == "" {
		return nil, validationError("external item key cannot be empty")
	}
	if creator == nil {
		return nil, validationError("item creator is required")
	}
	return &ListItem{
		BaseEntity:     shared.NewBaseEntity(),
		ListID:         listID,
		ExternalKey:    externalKey,
		QuantitySource: QuantitySourceExternal,
		Deliveries:     make(Deliveries),
		FieldStatus:    make(map[string]ApprovalState),
		Creator:        creator,
	}, nil
}

// Clone returns a deep copy of the item
func (i ListItem) Clone() ListItem {
	c := i
	c.Deliveries = i.Deliveries.Clone()
	c.FieldStatus = maps.Clone(i.FieldStatus)
	c.LastSyncedAt = copyTime(i.LastSyncedAt)
	return c
}

// Delivery returns the delivery for the period, if any
func (i *ListItem) Delivery(period PeriodKey) (Delivery, bool) {
	d, ok := i.Deliveries[period]
	return d, ok
}

// HasPendingChanges reports whether any field awaits acknowledgment
func (i *ListItem) HasPendingChanges() bool {
	for _, s := range i.FieldStatus {
		if s == ApprovalPending {
			return true
		}
	}
	return false
}

func (i *ListItem) setFieldStatus(field string, state ApprovalState) {
	if i.FieldStatus == nil {
		i.FieldStatus = make(map[string]ApprovalState)
	}
	i.FieldStatus[field] = state
}
