package orderlist

import (
	"slices"
	"strings"
	"time"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ListStatus represents the lifecycle status of an order list
type ListStatus string

const (
	ListStatusActive   ListStatus = "active"
	ListStatusDisabled ListStatus = "disabled"
	ListStatusDrafted  ListStatus = "drafted"
)

// IsValid checks if the status is a valid ListStatus
func (s ListStatus) IsValid() bool {
	switch s {
	case ListStatusActive, ListStatusDisabled, ListStatusDrafted:
		return true
	}
	return false
}

// String returns the string representation of ListStatus
func (s ListStatus) String() string {
	return string(s)
}

// OrderList is the aggregate root owning a customer's items and the
// append-only activity log of changes made to them.
type OrderList struct {
	shared.BaseAggregateRoot
	CustomerID  uuid.UUID
	Name        string
	Description string
	Status      ListStatus
	Creator     Actor
	Items       []ListItem
	ActivityLog []ActivityLogEntry
}

// NewOrderList creates a drafted list for a customer
func NewOrderList(customerID uuid.UUID, name string, creator Actor) (*OrderList, error) {
	if customerID == uuid.Nil {
		return nil, validationError("customer id cannot be empty")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("list name cannot be empty")
	}
	if creator == nil {
		return nil, validationError("list creator is required")
	}
	return &OrderList{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		Name:              name,
		Status:            ListStatusDrafted,
		Creator:           creator,
		Items:             make([]ListItem, 0),
		ActivityLog:       make([]ActivityLogEntry, 0),
	}, nil
}

// AggregateTypeOrderList is the aggregate type name used in events
const AggregateTypeOrderList = "OrderList"

// IsActive reports whether the list takes part in scheduled refreshes
func (l *OrderList) IsActive() bool {
	return l.Status == ListStatusActive
}

// CheckDeletable reports whether actor may delete the list. Only staff delete,
// and a list still in the refresh sweep must be deactivated first.
func (l *OrderList) CheckDeletable(actor Actor) error {
	if !IsStaff(actor) {
		return permissionError("only staff can delete lists")
	}
	if l.IsActive() {
		return invalidStateError("list %s is active; disable it before deleting", l.ID)
	}
	return nil
}

// AddItem appends an item for an external key. Keys are unique within a list.
func (l *OrderList) AddItem(externalKey string, creator Actor) (*ListItem, error) {
	item, err := NewListItem(l.ID, externalKey, creator)
	if err != nil {
		return nil, err
	}
	for i := range l.Items {
		if l.Items[i].ExternalKey == item.ExternalKey {
			return nil, validationError("item %s already in list", item.ExternalKey)
		}
	}
	item.Position = len(l.Items)
	l.Items = append(l.Items, *item)
	l.Touch(time.Now())
	return &l.Items[len(l.Items)-1], nil
}

// Item returns the item with the given id
func (l *OrderList) Item(itemID uuid.UUID) (*ListItem, error) {
	for i := range l.Items {
		if l.Items[i].ID == itemID {
			return &l.Items[i], nil
		}
	}
	return nil, notFoundError("item %s not found in list %s", itemID, l.ID)
}

// ItemIDs returns item ids in list order
func (l *OrderList) ItemIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(l.Items))
	for i := range l.Items {
		ids[i] = l.Items[i].ID
	}
	return ids
}

// ApplyReconciliation reconciles one item against snap. The item is replaced
// only when reconciliation succeeds.
func (l *OrderList) ApplyReconciliation(itemID uuid.UUID, snap Snapshot, at time.Time) (ReconcileResult, error) {
	item, err := l.Item(itemID)
	if err != nil {
		return ReconcileResult{}, err
	}
	next, result, err := Reconcile(*item, snap)
	if err != nil {
		return ReconcileResult{}, err
	}
	next.LastSyncedAt = &at
	if result.Changed {
		next.Touch(at)
		l.Touch(at)
		l.AddDomainEvent(NewListItemReconciledEvent(l, &next, result.ChangedFields, at))
	}
	*item = next
	return result, nil
}

// UpdateItemFields applies field edits to one item. All values are validated
// before anything is assigned; changes are logged in field declaration order.
// It returns the fields that actually changed.
func (l *OrderList) UpdateItemFields(itemID uuid.UUID, values map[string]any, actor Actor) ([]string, error) {
	if err := l.authorizeEdit(actor); err != nil {
		return nil, err
	}
	item, err := l.Item(itemID)
	if err != nil {
		return nil, err
	}
	for field := range values {
		if !slices.Contains(ItemFields, field) {
			return nil, validationError("unknown item field %q", field)
		}
	}
	var changes []FieldChange
	for _, field := range ItemFields {
		raw, ok := values[field]
		if !ok {
			continue
		}
		change, err := DiffItemField(item, field, raw)
		if err != nil {
			return nil, err
		}
		if change != nil {
			changes = append(changes, *change)
		}
	}
	for _, c := range changes {
		applyItemChange(item, c)
	}
	l.recordChanges(item, changes, actor)
	return changedFields(changes), nil
}

// UpdateItemField applies a single field edit
func (l *OrderList) UpdateItemField(itemID uuid.UUID, field string, value any, actor Actor) (bool, error) {
	fields, err := l.UpdateItemFields(itemID, map[string]any{field: value}, actor)
	if err != nil {
		return false, err
	}
	return len(fields) > 0, nil
}

// UpdateDelivery patches one period's delivery on an item. The period and
// every sub-field are validated before anything is written.
func (l *OrderList) UpdateDelivery(itemID uuid.UUID, period string, patch DeliveryPatch, actor Actor) (Delivery, []string, error) {
	if err := l.authorizeEdit(actor); err != nil {
		return Delivery{}, nil, err
	}
	key, err := ParsePeriodKey(period)
	if err != nil {
		return Delivery{}, nil, err
	}
	item, err := l.Item(itemID)
	if err != nil {
		return Delivery{}, nil, err
	}
	current, ok := item.Deliveries[key]
	if !ok {
		current = Delivery{Period: key}
	}
	next, changes, err := DiffDelivery(current, patch)
	if err != nil {
		return Delivery{}, nil, err
	}
	if len(changes) == 0 {
		return current.Clone(), nil, nil
	}
	if item.Deliveries == nil {
		item.Deliveries = make(Deliveries)
	}
	item.Deliveries[key] = next
	l.recordChanges(item, changes, actor)
	return next.Clone(), changedFields(changes), nil
}

// UpdateListFields applies list-level edits (name, description, status).
func (l *OrderList) UpdateListFields(values map[string]any, actor Actor) ([]string, error) {
	if err := l.authorizeEdit(actor); err != nil {
		return nil, err
	}
	for field := range values {
		if !slices.Contains(ListFields, field) {
			return nil, validationError("unknown list field %q", field)
		}
	}
	var changes []FieldChange
	for _, field := range ListFields {
		raw, ok := values[field]
		if !ok {
			continue
		}
		change, err := DiffListField(l, field, raw)
		if err != nil {
			return nil, err
		}
		if change != nil {
			changes = append(changes, *change)
		}
	}
	for _, c := range changes {
		applyListChange(l, c)
	}
	l.recordChanges(nil, changes, actor)
	return changedFields(changes), nil
}

func (l *OrderList) lastLogSeq() int64 {
	var last int64
	for i := range l.ActivityLog {
		last = max(last, l.ActivityLog[i].Seq)
	}
	return last
}

// recordChanges appends one log entry per change. item is nil for list-level changes.
func (l *OrderList) recordChanges(item *ListItem, changes []FieldChange, actor Actor) {
	if len(changes) == 0 {
		return
	}
	now := time.Now()
	var itemID *uuid.UUID
	if item != nil {
		itemID = &item.ID
	}
	seq := l.lastLogSeq()
	var pending []uuid.UUID
	for _, c := range changes {
		seq++
		entry := newActivityLogEntry(l.ID, seq, itemID, c, actor, now)
		l.ActivityLog = append(l.ActivityLog, entry)
		if item != nil {
			item.setFieldStatus(c.Field, entry.Approval)
		}
		if entry.IsPendingCustomerChange() {
			pending = append(pending, entry.ID)
		}
	}
	if item != nil {
		item.Touch(now)
	}
	l.Touch(now)
	if len(pending) > 0 {
		l.AddDomainEvent(NewCustomerChangeSubmittedEvent(l, itemID, actor.ActorID(), pending, changedFields(changes), now))
	}
}

// VisibleTo reports whether actor may read the list. Customers only see their own lists.
func (l *OrderList) VisibleTo(actor Actor) bool {
	switch a := actor.(type) {
	case Staff:
		return true
	case Customer:
		return a.CustomerID == l.CustomerID
	}
	return false
}

func (l *OrderList) authorizeEdit(actor Actor) error {
	if actor == nil {
		return validationError("actor is required")
	}
	if !l.VisibleTo(actor) {
		return permissionError("customer %s cannot edit list %s", actor.ActorID(), l.ID)
	}
	return nil
}

func changedFields(changes []FieldChange) []string {
	fields := make([]string, len(changes))
	for i, c := range changes {
		fields[i] = c.Field
	}
	return fields
}
