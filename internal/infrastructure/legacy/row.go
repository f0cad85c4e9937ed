package legacy

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/backoffice/backend/internal/domain/orderlist"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// rawRow holds one joined result row exactly as the driver returned it
type rawRow struct {
	ItemKey       sql.NullString
	Name          sql.NullString
	Code          sql.NullString
	Image         sql.NullString
	WarehouseName sql.NullString
	WarehouseCode sql.NullString
	OrderLineID   sql.NullString
	OrderedQty    sql.NullString
	CargoNumber   sql.NullString
	CargoQty      sql.NullString
	CargoStatus   sql.NullString
	CargoRemark   sql.NullString
	PickupDate    sql.NullString
	DepartureDate sql.NullString
	ETA           sql.NullString
	CargoType     sql.NullString
}

func (r *rawRow) dest() []any {
	return []any{
		&r.ItemKey, &r.Name, &r.Code, &r.Image,
		&r.WarehouseName, &r.WarehouseCode,
		&r.OrderLineID, &r.OrderedQty,
		&r.CargoNumber, &r.CargoQty, &r.CargoStatus, &r.CargoRemark,
		&r.PickupDate, &r.DepartureDate, &r.ETA, &r.CargoType,
	}
}

// legacyRow is a validated row
type legacyRow struct {
	ItemKey       int64
	Name          string
	Code          string
	Image         string
	WarehouseName string
	WarehouseCode string
	OrderLineID   *int64
	OrderedQty    decimal.Decimal
	CargoNumber   string
	CargoQty      decimal.Decimal
	Status        orderlist.DeliveryStatus
	Remark        string
	PickupDate    *time.Time
	DepartureDate *time.Time
	ETA           *time.Time
	CargoType     string
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseRow converts a raw row into a legacyRow, failing on anything malformed.
func parseRow(raw rawRow) (legacyRow, error) {
	var row legacyRow
	key := text(raw.ItemKey)
	if key == "" {
		return row, parseError("row without item key")
	}
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return row, parseError("item key %q is not numeric", key)
	}
	row.ItemKey = id
	row.Name = text(raw.Name)
	row.Code = text(raw.Code)
	row.Image = text(raw.Image)
	row.WarehouseName = text(raw.WarehouseName)
	row.WarehouseCode = text(raw.WarehouseCode)

	if s := text(raw.OrderLineID); s != "" {
		lineID, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return row, parseError("order line id %q is not numeric", s)
		}
		row.OrderLineID = &lineID
	}
	if row.OrderedQty, err = quantity("ordered quantity", raw.OrderedQty); err != nil {
		return row, err
	}
	if row.CargoQty, err = quantity("cargo quantity", raw.CargoQty); err != nil {
		return row, err
	}
	if row.Status, err = deliveryStatus(text(raw.CargoStatus)); err != nil {
		return row, err
	}
	row.CargoNumber = text(raw.CargoNumber)
	row.Remark = text(raw.CargoRemark)
	row.CargoType = text(raw.CargoType)

	if row.PickupDate, err = timestamp("pickup date", raw.PickupDate); err != nil {
		return row, err
	}
	if row.DepartureDate, err = timestamp("departure date", raw.DepartureDate); err != nil {
		return row, err
	}
	if row.ETA, err = timestamp("eta", raw.ETA); err != nil {
		return row, err
	}
	return row, nil
}

func text(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return strings.TrimSpace(ns.String)
}

func quantity(name string, ns sql.NullString) (decimal.Decimal, error) {
	s := text(ns)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, parseError("%s %q is not numeric", name, s)
	}
	if d.IsNegative() {
		return decimal.Zero, parseError("%s %s is negative", name, s)
	}
	return d, nil
}

func timestamp(name string, ns sql.NullString) (*time.Time, error) {
	s := text(ns)
	if s == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, parseError("%s %q is not a valid date", name, s)
}

// deliveryStatus maps the legacy cargo status vocabulary onto delivery statuses.
func deliveryStatus(s string) (orderlist.DeliveryStatus, error) {
	switch strings.ToLower(s) {
	case "":
		return "", nil
	case "pending", "open", "planned":
		return orderlist.DeliveryStatusPending, nil
	case "partial", "in_transit", "shipped":
		return orderlist.DeliveryStatusPartial, nil
	case "delivered", "done", "closed":
		return orderlist.DeliveryStatusDelivered, nil
	case "cancelled", "canceled":
		return orderlist.DeliveryStatusCancelled, nil
	}
	return "", parseError("unknown cargo status %q", s)
}

func parseError(format string, args ...any) *shared.DomainError {
	return shared.NewDomainError(shared.CodeParseError, fmt.Sprintf(format, args...))
}
