package orderlist

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryStatus represents the state of one period's delivery
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusPartial   DeliveryStatus = "partial"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusCancelled DeliveryStatus = "cancelled"
)

// IsValid checks if the status is a valid DeliveryStatus
func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryStatusPending, DeliveryStatusPartial, DeliveryStatusDelivered, DeliveryStatusCancelled:
		return true
	}
	return false
}

// Delivery summarizes the shipments of one item in one period.
// Status, Remark and DeliveredAt are owned locally; the rest is sourced externally.
type Delivery struct {
	Period       PeriodKey
	Quantity     decimal.Decimal
	Status       DeliveryStatus
	DeliveredAt  *time.Time
	CargoNumbers []string
	Remark       string
	ShippedAt    *time.Time
	ETA          *time.Time
	ShipmentType string
}

// Clone returns a deep copy
func (d Delivery) Clone() Delivery {
	c := d
	c.CargoNumbers = slices.Clone(d.CargoNumbers)
	c.DeliveredAt = copyTime(d.DeliveredAt)
	c.ShippedAt = copyTime(d.ShippedAt)
	c.ETA = copyTime(d.ETA)
	return c
}

// Equal reports whether two deliveries carry the same facts
func (d Delivery) Equal(o Delivery) bool {
	return d.Period == o.Period &&
		d.Quantity.Equal(o.Quantity) &&
		d.Status == o.Status &&
		timesEqual(d.DeliveredAt, o.DeliveredAt) &&
		slices.Equal(d.CargoNumbers, o.CargoNumbers) &&
		d.Remark == o.Remark &&
		timesEqual(d.ShippedAt, o.ShippedAt) &&
		timesEqual(d.ETA, o.ETA) &&
		d.ShipmentType == o.ShipmentType
}

// mergeSnapshot overlays an externally sourced delivery onto the local copy.
func (d Delivery) mergeSnapshot(snap Delivery) Delivery {
	merged := snap.Clone()
	if d.Status != "" {
		merged.Status = d.Status
	}
	if d.Remark != "" {
		merged.Remark = d.Remark
	}
	if d.DeliveredAt != nil {
		merged.DeliveredAt = copyTime(d.DeliveredAt)
	}
	return merged
}

// Deliveries maps period keys to the delivery for that period
type Deliveries map[PeriodKey]Delivery

// Periods returns the keys in chronological order
func (ds Deliveries) Periods() []PeriodKey {
	keys := make([]PeriodKey, 0, len(ds))
	for k := range ds {
		keys = append(keys, k)
	}
	SortPeriods(keys)
	return keys
}

// Clone returns a deep copy
func (ds Deliveries) Clone() Deliveries {
	if ds == nil {
		return nil
	}
	c := make(Deliveries, len(ds))
	for k, v := range ds {
		c[k] = v.Clone()
	}
	return c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
