package orderlist

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ReconcileResult reports what a reconciliation changed
type ReconcileResult struct {
	Changed       bool
	ChangedFields []string
}

// Reconcile merges snap into a copy of local. Descriptive fields are copied
// from the snapshot; the quantity only while it is still externally sourced.
// Per-period deliveries take their shipment facts from the snapshot and keep
// local status, remark and delivered-at annotations.
func Reconcile(local ListItem, snap Snapshot) (ListItem, ReconcileResult, error) {
	if strings.TrimSpace(snap.ItemKey) != local.ExternalKey {
		return local, ReconcileResult{}, validationError("snapshot key %q does not match item key %q", snap.ItemKey, local.ExternalKey)
	}

	next := local.Clone()
	var changed []string
	copyText := func(field string, dst *string, value string) {
		if *dst != value {
			*dst = value
			changed = append(changed, field)
		}
	}
	copyText(FieldName, &next.Name, snap.Name)
	copyText(FieldCode, &next.Code, snap.Code)
	copyText(FieldImage, &next.Image, snap.Image)
	copyText("warehouse_name", &next.WarehouseName, snap.WarehouseName)
	copyText("warehouse_code", &next.WarehouseCode, snap.WarehouseCode)

	if next.QuantitySource != QuantitySourceManual {
		q := decimal.NewNullDecimal(snap.Quantity)
		if !nullDecimalEqual(next.Quantity, q) {
			next.Quantity = q
			changed = append(changed, FieldQuantity)
		}
		next.QuantitySource = QuantitySourceExternal
	}

	if next.Deliveries == nil {
		next.Deliveries = make(Deliveries)
	}
	for _, period := range snap.Deliveries.Periods() {
		incoming := snap.Deliveries[period]
		incoming.Period = period
		current, ok := next.Deliveries[period]
		merged := incoming.Clone()
		if ok {
			merged = current.mergeSnapshot(incoming)
		}
		if !ok || !merged.Equal(current) {
			next.Deliveries[period] = merged
			changed = append(changed, "delivery."+string(period))
		}
	}

	return next, ReconcileResult{Changed: len(changed) > 0, ChangedFields: changed}, nil
}
