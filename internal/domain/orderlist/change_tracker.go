package orderlist

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Item field names in declaration order
const (
	FieldName     = "name"
	FieldCode     = "code"
	FieldImage    = "image"
	FieldQuantity = "quantity"
	FieldInterval = "interval"
	FieldComment  = "comment"
	FieldMarked   = "marked"
)

// ItemFields lists the editable item fields in the order changes are logged
var ItemFields = []string{FieldName, FieldCode, FieldImage, FieldQuantity, FieldInterval, FieldComment, FieldMarked}

// List field names in declaration order
const (
	ListFieldName        = "name"
	ListFieldDescription = "description"
	ListFieldStatus      = "status"
)

// ListFields lists the editable list fields in the order changes are logged
var ListFields = []string{ListFieldName, ListFieldDescription, ListFieldStatus}

// Delivery sub-field names in declaration order
const (
	DeliveryFieldQuantity     = "quantity"
	DeliveryFieldStatus       = "status"
	DeliveryFieldDeliveredAt  = "delivered_at"
	DeliveryFieldCargoNumbers = "cargo_numbers"
	DeliveryFieldRemark       = "remark"
	DeliveryFieldShippedAt    = "shipped_at"
	DeliveryFieldETA          = "eta"
	DeliveryFieldShipmentType = "shipment_type"
)

// FieldChange is a computed difference for one field. It carries the canonical
// string forms of both values and the parsed value to assign.
type FieldChange struct {
	Field string
	Old   *string
	New   *string
	value any
}

// DiffItemField compares raw against the item's current value for field.
// It returns nil when the normalized values are equal.
func DiffItemField(item *ListItem, field string, raw any) (*FieldChange, error) {
	switch field {
	case FieldName, FieldCode, FieldImage, FieldComment:
		next, err := parseText(field, raw)
		if err != nil {
			return nil, err
		}
		cur := itemText(item, field)
		if cur == next {
			return nil, nil
		}
		return &FieldChange{Field: field, Old: textValue(cur), New: textValue(next), value: next}, nil
	case FieldQuantity:
		next, err := parseQuantity(raw)
		if err != nil {
			return nil, err
		}
		if nullDecimalEqual(item.Quantity, next) {
			return nil, nil
		}
		return &FieldChange{Field: field, Old: decimalValue(item.Quantity), New: decimalValue(next), value: next}, nil
	case FieldInterval:
		text, err := parseText(field, raw)
		if err != nil {
			return nil, err
		}
		next := DeliveryInterval(text)
		if !next.IsValid() {
			return nil, validationError("invalid interval %q", text)
		}
		if item.Interval == next {
			return nil, nil
		}
		return &FieldChange{Field: field, Old: textValue(string(item.Interval)), New: textValue(text), value: next}, nil
	case FieldMarked:
		next, err := parseBool(field, raw)
		if err != nil {
			return nil, err
		}
		if item.Marked == next {
			return nil, nil
		}
		return &FieldChange{Field: field, Old: boolValue(item.Marked), New: boolValue(next), value: next}, nil
	}
	return nil, validationError("unknown item field %q", field)
}

func applyItemChange(item *ListItem, c FieldChange) {
	switch c.Field {
	case FieldName:
		item.Name = c.value.(string)
	case FieldCode:
		item.Code = c.value.(string)
	case FieldImage:
		item.Image = c.value.(string)
	case FieldComment:
		item.Comment = c.value.(string)
	case FieldQuantity:
		item.Quantity = c.value.(decimal.NullDecimal)
		item.QuantitySource = QuantitySourceManual
	case FieldInterval:
		item.Interval = c.value.(DeliveryInterval)
	case FieldMarked:
		item.Marked = c.value.(bool)
	}
}

func itemText(item *ListItem, field string) string {
	switch field {
	case FieldName:
		return item.Name
	case FieldCode:
		return item.Code
	case FieldImage:
		return item.Image
	case FieldComment:
		return item.Comment
	}
	return ""
}

// DiffListField compares raw against the list's current value for field.
func DiffListField(list *OrderList, field string, raw any) (*FieldChange, error) {
	switch field {
	case ListFieldName:
		next, err := parseText(field, raw)
		if err != nil {
			return nil, err
		}
		if next == "" {
			return nil, validationError("list name cannot be empty")
		}
		if list.Name == next {
			return nil, nil
		}
		return &FieldChange{Field: field, Old: textValue(list.Name), New: textValue(next), value: next}, nil
	case ListFieldDescription:
		next, err := parseText(field, raw)
		if err != nil {
			return nil, err
		}
		if list.Description == next {
			return nil, nil
		}
		return &FieldChange{Field: field, Old: textValue(list.Description), New: textValue(next), value: next}, nil
	case ListFieldStatus:
		text, err := parseText(field, raw)
		if err != nil {
			return nil, err
		}
		next := ListStatus(text)
		if !next.IsValid() {
			return nil, validationError("invalid list status %q", text)
		}
		if list.Status == next {
			return nil, nil
		}
		return &FieldChange{Field: field, Old: textValue(string(list.Status)), New: textValue(text), value: next}, nil
	}
	return nil, validationError("unknown list field %q", field)
}

func applyListChange(list *OrderList, c FieldChange) {
	switch c.Field {
	case ListFieldName:
		list.Name = c.value.(string)
	case ListFieldDescription:
		list.Description = c.value.(string)
	case ListFieldStatus:
		list.Status = c.value.(ListStatus)
	}
}

// DeliveryPatch holds the sub-fields to change on one delivery. Nil fields are
// left untouched. A zero time clears a timestamp; an empty non-nil slice clears
// the cargo numbers.
type DeliveryPatch struct {
	Quantity     *decimal.Decimal
	Status       *DeliveryStatus
	DeliveredAt  *time.Time
	CargoNumbers []string
	Remark       *string
	ShippedAt    *time.Time
	ETA          *time.Time
	ShipmentType *string
}

// IsEmpty reports whether the patch touches nothing
func (p DeliveryPatch) IsEmpty() bool {
	return p.Quantity == nil && p.Status == nil && p.DeliveredAt == nil && p.CargoNumbers == nil &&
		p.Remark == nil && p.ShippedAt == nil && p.ETA == nil && p.ShipmentType == nil
}

// DiffDelivery validates every sub-field of patch and returns the patched
// delivery plus one change per differing sub-field, in declaration order.
// Nothing is returned when any sub-field is invalid.
func DiffDelivery(current Delivery, patch DeliveryPatch) (Delivery, []FieldChange, error) {
	if patch.Quantity != nil && patch.Quantity.IsNegative() {
		return current, nil, validationError("delivery quantity cannot be negative")
	}
	if patch.Status != nil && *patch.Status != "" && !patch.Status.IsValid() {
		return current, nil, validationError("invalid delivery status %q", *patch.Status)
	}
	var cargo []string
	if patch.CargoNumbers != nil {
		set := NewShipmentSet()
		for _, n := range patch.CargoNumbers {
			set.Add(n)
		}
		cargo = set.IDs()
	}

	next := current.Clone()
	var changes []FieldChange
	prefix := "delivery." + string(current.Period) + "."
	add := func(sub string, from, to *string) {
		changes = append(changes, FieldChange{Field: prefix + sub, Old: from, New: to})
	}

	if patch.Quantity != nil && !patch.Quantity.Equal(current.Quantity) {
		next.Quantity = *patch.Quantity
		add(DeliveryFieldQuantity, textValue(current.Quantity.String()), textValue(patch.Quantity.String()))
	}
	if patch.Status != nil && *patch.Status != current.Status {
		next.Status = *patch.Status
		add(DeliveryFieldStatus, textValue(string(current.Status)), textValue(string(*patch.Status)))
	}
	if patch.DeliveredAt != nil {
		if t := clearableTime(patch.DeliveredAt); !timesEqual(t, current.DeliveredAt) {
			next.DeliveredAt = t
			add(DeliveryFieldDeliveredAt, timeValue(current.DeliveredAt), timeValue(t))
		}
	}
	if patch.CargoNumbers != nil && !slices.Equal(cargo, current.CargoNumbers) {
		next.CargoNumbers = cargo
		add(DeliveryFieldCargoNumbers, listValue(current.CargoNumbers), listValue(cargo))
	}
	if patch.Remark != nil {
		if r := strings.TrimSpace(*patch.Remark); r != current.Remark {
			next.Remark = r
			add(DeliveryFieldRemark, textValue(current.Remark), textValue(r))
		}
	}
	if patch.ShippedAt != nil {
		if t := clearableTime(patch.ShippedAt); !timesEqual(t, current.ShippedAt) {
			next.ShippedAt = t
			add(DeliveryFieldShippedAt, timeValue(current.ShippedAt), timeValue(t))
		}
	}
	if patch.ETA != nil {
		if t := clearableTime(patch.ETA); !timesEqual(t, current.ETA) {
			next.ETA = t
			add(DeliveryFieldETA, timeValue(current.ETA), timeValue(t))
		}
	}
	if patch.ShipmentType != nil {
		if st := strings.TrimSpace(*patch.ShipmentType); st != current.ShipmentType {
			next.ShipmentType = st
			add(DeliveryFieldShipmentType, textValue(current.ShipmentType), textValue(st))
		}
	}
	return next, changes, nil
}

func parseText(field string, raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(v), nil
	case *string:
		if v == nil {
			return "", nil
		}
		return strings.TrimSpace(*v), nil
	}
	return "", validationError("%s must be a string", field)
}

func parseQuantity(raw any) (decimal.NullDecimal, error) {
	var (
		d   decimal.Decimal
		err error
	)
	switch v := raw.(type) {
	case nil:
		return decimal.NullDecimal{}, nil
	case decimal.Decimal:
		d = v
	case decimal.NullDecimal:
		if !v.Valid {
			return decimal.NullDecimal{}, nil
		}
		d = v.Decimal
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return decimal.NullDecimal{}, nil
		}
		d, err = decimal.NewFromString(s)
	case json.Number:
		d, err = decimal.NewFromString(v.String())
	case float64:
		d = decimal.NewFromFloat(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	case int64:
		d = decimal.NewFromInt(v)
	default:
		return decimal.NullDecimal{}, validationError("quantity must be numeric")
	}
	if err != nil {
		return decimal.NullDecimal{}, validationError("quantity must be numeric: %v", err)
	}
	if d.IsNegative() {
		return decimal.NullDecimal{}, validationError("quantity cannot be negative")
	}
	return decimal.NewNullDecimal(d), nil
}

func parseBool(field string, raw any) (bool, error) {
	switch v := raw.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, validationError("%s must be a boolean", field)
		}
		return b, nil
	}
	return false, validationError("%s must be a boolean", field)
}

func nullDecimalEqual(a, b decimal.NullDecimal) bool {
	if !a.Valid || !b.Valid {
		return a.Valid == b.Valid
	}
	return a.Decimal.Equal(b.Decimal)
}

func clearableTime(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	return copyTime(t)
}

func textValue(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func decimalValue(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	return textValue(d.Decimal.String())
}

func boolValue(b bool) *string {
	return textValue(strconv.FormatBool(b))
}

func timeValue(t *time.Time) *string {
	if t == nil {
		return nil
	}
	return textValue(t.UTC().Format(time.RFC3339))
}

func listValue(ids []string) *string {
	return textValue(strings.Join(ids, ","))
}
