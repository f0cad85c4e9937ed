package orderlist

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestList(t *testing.T) *OrderList {
	list, err := NewOrderList(uuid.New(), "Weekly restock", Staff{UserID: uuid.New()})
	require.NoError(t, err)
	return list
}

func newListWithItem(t *testing.T) (*OrderList, *ListItem) {
	list := newTestList(t)
	item, err := list.AddItem("1001", Staff{UserID: uuid.New()})
	require.NoError(t, err)
	item.Quantity = decimal.NewNullDecimal(decimal.NewFromInt(10))
	return list, item
}

// ============================================
// DiffItemField Tests
// ============================================

func TestDiffItemField_Normalization(t *testing.T) {
	item := newTestItem(t, "1001")
	item.Name = "Bolt"
	item.Quantity = decimal.NewNullDecimal(decimal.RequireFromString("5"))

	tests := []struct {
		name    string
		field   string
		raw     any
		changed bool
	}{
		{"same string", FieldName, "Bolt", false},
		{"trimmed string", FieldName, "  Bolt ", false},
		{"different string", FieldName, "Nut", true},
		{"nil equals empty comment", FieldComment, nil, false},
		{"empty string equals unset comment", FieldComment, "", false},
		{"numeric equal different scale", FieldQuantity, "5.00", false},
		{"json number equal", FieldQuantity, json.Number("5"), false},
		{"float equal", FieldQuantity, 5.0, false},
		{"numeric change", FieldQuantity, 6, true},
		{"nil quantity clears", FieldQuantity, nil, true},
		{"marked nil is false", FieldMarked, nil, false},
		{"marked true", FieldMarked, true, true},
		{"interval set", FieldInterval, "monthly", true},
		{"interval unset", FieldInterval, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, err := DiffItemField(&item, tt.field, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.changed, change != nil)
		})
	}
}

func TestDiffItemField_Invalid(t *testing.T) {
	item := newTestItem(t, "1001")

	tests := []struct {
		name  string
		field string
		raw   any
	}{
		{"unknown field", "price", "1"},
		{"non numeric quantity", FieldQuantity, "abc"},
		{"negative quantity", FieldQuantity, -1},
		{"bad interval", FieldInterval, "daily"},
		{"name not string", FieldName, 12},
		{"marked not bool", FieldMarked, "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DiffItemField(&item, tt.field, tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrValidation))
		})
	}
}

func TestDiffItemField_CanonicalValues(t *testing.T) {
	item := newTestItem(t, "1001")
	item.Quantity = decimal.NewNullDecimal(decimal.NewFromInt(5))

	change, err := DiffItemField(&item, FieldQuantity, "7.5")

	require.NoError(t, err)
	require.NotNil(t, change)
	require.NotNil(t, change.Old)
	require.NotNil(t, change.New)
	assert.Equal(t, "5", *change.Old)
	assert.Equal(t, "7.5", *change.New)
	// pure: item untouched
	assert.True(t, item.Quantity.Decimal.Equal(decimal.NewFromInt(5)))
}

// ============================================
// UpdateItemFields Tests
// ============================================

func TestUpdateItemField_NoOpWritesNoLog(t *testing.T) {
	list, item := newListWithItem(t)
	staff := Staff{UserID: uuid.New()}

	changed, err := list.UpdateItemField(item.ID, FieldQuantity, item.Quantity.Decimal, staff)

	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, list.ActivityLog)
}

func TestUpdateItemField_StaffAutoApproved(t *testing.T) {
	list, item := newListWithItem(t)
	staff := Staff{UserID: uuid.New()}

	changed, err := list.UpdateItemField(item.ID, FieldQuantity, "12", staff)

	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, list.ActivityLog, 1)
	entry := list.ActivityLog[0]
	assert.Equal(t, "quantity changed", entry.Action)
	assert.Equal(t, RoleStaff, entry.ActorRole)
	assert.Equal(t, staff.UserID, entry.ActorID)
	assert.Equal(t, ApprovalApproved, entry.Approval)
	require.NotNil(t, entry.ItemID)
	assert.Equal(t, item.ID, *entry.ItemID)
	assert.Equal(t, "10", *entry.OldValue)
	assert.Equal(t, "12", *entry.NewValue)

	got, _ := list.Item(item.ID)
	assert.True(t, got.Quantity.Decimal.Equal(decimal.NewFromInt(12)))
	assert.Equal(t, QuantitySourceManual, got.QuantitySource)
	assert.Equal(t, ApprovalApproved, got.FieldStatus[FieldQuantity])
	assert.Empty(t, list.GetDomainEvents())
}

func TestUpdateItemField_CustomerPending(t *testing.T) {
	list, item := newListWithItem(t)
	customer := Customer{CustomerID: list.CustomerID}

	changed, err := list.UpdateItemField(item.ID, FieldComment, "please rush", customer)

	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, list.ActivityLog, 1)
	assert.Equal(t, ApprovalPending, list.ActivityLog[0].Approval)
	assert.Nil(t, list.ActivityLog[0].OldValue)

	got, _ := list.Item(item.ID)
	assert.True(t, got.HasPendingChanges())
	require.Len(t, list.GetDomainEvents(), 1)
	assert.Equal(t, EventTypeCustomerChangeSubmitted, list.GetDomainEvents()[0].EventType())
}

func TestUpdateItemFields_DeclarationOrderAndAtomicValidation(t *testing.T) {
	list, item := newListWithItem(t)
	staff := Staff{UserID: uuid.New()}

	fields, err := list.UpdateItemFields(item.ID, map[string]any{
		FieldMarked:   true,
		FieldName:     "Bolt",
		FieldInterval: "weekly",
	}, staff)
	require.NoError(t, err)
	assert.Equal(t, []string{FieldName, FieldInterval, FieldMarked}, fields)
	require.Len(t, list.ActivityLog, 3)
	assert.Equal(t, FieldName, list.ActivityLog[0].Field)
	assert.Equal(t, FieldMarked, list.ActivityLog[2].Field)

	// one invalid value rejects the whole call
	_, err = list.UpdateItemFields(item.ID, map[string]any{
		FieldName:     "Nut",
		FieldQuantity: "lots",
	}, staff)
	require.Error(t, err)
	got, _ := list.Item(item.ID)
	assert.Equal(t, "Bolt", got.Name)
	assert.Len(t, list.ActivityLog, 3)
}

func TestActivityLog_SequenceContinuesAcrossEdits(t *testing.T) {
	list, item := newListWithItem(t)
	staff := Staff{UserID: uuid.New()}

	_, err := list.UpdateItemFields(item.ID, map[string]any{
		FieldComment: "first",
		FieldName:    "Bolt",
	}, staff)
	require.NoError(t, err)
	_, err = list.UpdateListFields(map[string]any{ListFieldName: "Renamed"}, staff)
	require.NoError(t, err)

	require.Len(t, list.ActivityLog, 3)
	for i, e := range list.ActivityLog {
		assert.Equal(t, int64(i+1), e.Seq, "entry %d", i)
	}
	assert.Equal(t, FieldName, list.ActivityLog[0].Field)
	assert.Equal(t, FieldComment, list.ActivityLog[1].Field)
	assert.True(t, list.ActivityLog[0].CreatedAt.Equal(list.ActivityLog[1].CreatedAt))
}

func TestUpdateItemField_UnknownItem(t *testing.T) {
	list := newTestList(t)

	_, err := list.UpdateItemField(uuid.New(), FieldName, "x", Staff{UserID: uuid.New()})

	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

// ============================================
// UpdateDelivery Tests
// ============================================

func TestUpdateDelivery_LogsEachSubField(t *testing.T) {
	list, item := newListWithItem(t)
	customer := Customer{CustomerID: list.CustomerID}
	status := DeliveryStatusDelivered
	remark := " left at gate "
	qty := decimal.NewFromInt(4)

	d, fields, err := list.UpdateDelivery(item.ID, "2024-03", DeliveryPatch{
		Remark:   &remark,
		Status:   &status,
		Quantity: &qty,
	}, customer)

	require.NoError(t, err)
	assert.Equal(t, []string{"delivery.2024-03.quantity", "delivery.2024-03.status", "delivery.2024-03.remark"}, fields)
	assert.Equal(t, DeliveryStatusDelivered, d.Status)
	assert.Equal(t, "left at gate", d.Remark)
	require.Len(t, list.ActivityLog, 3)
	for _, e := range list.ActivityLog {
		assert.Equal(t, ApprovalPending, e.Approval)
	}
	got, _ := list.Item(item.ID)
	assert.Equal(t, ApprovalPending, got.FieldStatus["delivery.2024-03.status"])
}

func TestUpdateDelivery_NoOp(t *testing.T) {
	list, item := newListWithItem(t)
	item.Deliveries["2024-03"] = Delivery{Period: "2024-03", Quantity: decimal.NewFromInt(4), Status: DeliveryStatusPending}
	status := DeliveryStatusPending
	qty := decimal.RequireFromString("4.0")

	_, fields, err := list.UpdateDelivery(item.ID, "2024-03", DeliveryPatch{Status: &status, Quantity: &qty}, Staff{UserID: uuid.New()})

	require.NoError(t, err)
	assert.Empty(t, fields)
	assert.Empty(t, list.ActivityLog)
}

func TestUpdateDelivery_ValidationWritesNothing(t *testing.T) {
	list, item := newListWithItem(t)
	staff := Staff{UserID: uuid.New()}
	bad := DeliveryStatus("lost")
	remark := "x"
	neg := decimal.NewFromInt(-1)

	tests := []struct {
		name   string
		period string
		patch  DeliveryPatch
	}{
		{"bad period", "2024-13-01", DeliveryPatch{Remark: &remark}},
		{"bad status", "2024-03", DeliveryPatch{Remark: &remark, Status: &bad}},
		{"negative quantity", "2024-03", DeliveryPatch{Remark: &remark, Quantity: &neg}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := list.UpdateDelivery(item.ID, tt.period, tt.patch, staff)
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrValidation))
			assert.Empty(t, list.ActivityLog)
			_, ok := item.Deliveries["2024-03"]
			assert.False(t, ok)
		})
	}
}

func TestUpdateDelivery_CargoAndTimes(t *testing.T) {
	list, item := newListWithItem(t)
	shipped := time.Date(2024, time.March, 2, 8, 0, 0, 0, time.UTC)
	item.Deliveries["2024-03"] = Delivery{Period: "2024-03", Quantity: decimal.Zero, ShippedAt: &shipped}

	d, fields, err := list.UpdateDelivery(item.ID, "2024-03", DeliveryPatch{
		CargoNumbers: []string{" C1", "C1", "C2 ", ""},
		ShippedAt:    &time.Time{},
	}, Staff{UserID: uuid.New()})

	require.NoError(t, err)
	assert.Equal(t, []string{"delivery.2024-03.cargo_numbers", "delivery.2024-03.shipped_at"}, fields)
	assert.Equal(t, []string{"C1", "C2"}, d.CargoNumbers)
	assert.Nil(t, d.ShippedAt)
	assert.Equal(t, "C1,C2", *list.ActivityLog[0].NewValue)
	assert.Nil(t, list.ActivityLog[1].NewValue)
}

// ============================================
// UpdateListFields Tests
// ============================================

func TestUpdateListFields(t *testing.T) {
	list := newTestList(t)
	staff := Staff{UserID: uuid.New()}

	fields, err := list.UpdateListFields(map[string]any{
		ListFieldStatus:      "active",
		ListFieldDescription: "for the north site",
	}, staff)

	require.NoError(t, err)
	assert.Equal(t, []string{ListFieldDescription, ListFieldStatus}, fields)
	assert.Equal(t, ListStatusActive, list.Status)
	require.Len(t, list.ActivityLog, 2)
	assert.Nil(t, list.ActivityLog[0].ItemID)
	assert.Equal(t, "drafted", *list.ActivityLog[1].OldValue)

	_, err = list.UpdateListFields(map[string]any{ListFieldStatus: "archived"}, staff)
	assert.True(t, errors.Is(err, shared.ErrValidation))
	_, err = list.UpdateListFields(map[string]any{ListFieldName: " "}, staff)
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestUpdateItemField_ForeignCustomerDenied(t *testing.T) {
	list, item := newListWithItem(t)
	stranger := Customer{CustomerID: uuid.New()}

	_, err := list.UpdateItemField(item.ID, FieldComment, "mine now", stranger)

	assert.True(t, errors.Is(err, shared.ErrPermissionDenied))
	assert.Empty(t, list.ActivityLog)
	assert.False(t, list.VisibleTo(stranger))
	assert.True(t, list.VisibleTo(Customer{CustomerID: list.CustomerID}))
}

func TestOrderList_CheckDeletable(t *testing.T) {
	list := newTestList(t)
	staff := Staff{UserID: uuid.New()}

	require.NoError(t, list.CheckDeletable(staff))
	assert.ErrorIs(t, list.CheckDeletable(Customer{CustomerID: list.CustomerID}), shared.ErrPermissionDenied)

	list.Status = ListStatusActive
	assert.True(t, list.IsActive())
	assert.ErrorIs(t, list.CheckDeletable(staff), shared.ErrInvalidState)
}
