package orderlist

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// UnacknowledgedCustomerChanges returns customer changes still awaiting staff review
func (l *OrderList) UnacknowledgedCustomerChanges() []ActivityLogEntry {
	var pending []ActivityLogEntry
	for i := range l.ActivityLog {
		if l.ActivityLog[i].IsPendingCustomerChange() {
			pending = append(pending, l.ActivityLog[i])
		}
	}
	return pending
}

// Acknowledge approves pending customer changes. When logIDs is empty every
// pending change is approved. Ids that are unknown or already settled are
// ignored, so repeating a call transitions nothing and returns 0.
func (l *OrderList) Acknowledge(actor Actor, logIDs []uuid.UUID, at time.Time) (int, error) {
	if !IsStaff(actor) {
		return 0, permissionError("only staff may acknowledge changes")
	}
	var wanted map[uuid.UUID]struct{}
	if len(logIDs) > 0 {
		wanted = make(map[uuid.UUID]struct{}, len(logIDs))
		for _, id := range logIDs {
			wanted[id] = struct{}{}
		}
	}

	var acknowledged []uuid.UUID
	touched := make(map[uuid.UUID]struct{})
	for i := range l.ActivityLog {
		e := &l.ActivityLog[i]
		if !e.IsPendingCustomerChange() {
			continue
		}
		if wanted != nil {
			if _, ok := wanted[e.ID]; !ok {
				continue
			}
		}
		if err := e.approve(actor.ActorID(), at); err != nil {
			return len(acknowledged), err
		}
		acknowledged = append(acknowledged, e.ID)
		if e.IsItemChange() {
			touched[*e.ItemID] = struct{}{}
		}
	}
	if len(acknowledged) == 0 {
		return 0, nil
	}
	for itemID := range touched {
		l.recomputeFieldStatus(itemID)
	}
	l.Touch(at)
	l.AddDomainEvent(NewChangesAcknowledgedEvent(l, actor.ActorID(), acknowledged, at))
	return len(acknowledged), nil
}

// RejectChange moves one pending customer change to rejected. The field value
// itself is left as the customer set it.
func (l *OrderList) RejectChange(actor Actor, logID uuid.UUID, reason string, at time.Time) error {
	if !IsStaff(actor) {
		return permissionError("only staff may reject changes")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return validationError("rejection reason is required")
	}
	for i := range l.ActivityLog {
		e := &l.ActivityLog[i]
		if e.ID != logID {
			continue
		}
		if e.ActorRole != RoleCustomer {
			return invalidStateError("only customer changes can be rejected")
		}
		if err := e.reject(actor.ActorID(), reason, at); err != nil {
			return err
		}
		if e.IsItemChange() {
			l.recomputeFieldStatus(*e.ItemID)
		}
		l.Touch(at)
		return nil
	}
	return notFoundError("activity log entry %s not found", logID)
}

// recomputeFieldStatus sets each field's status to the state of its latest change.
func (l *OrderList) recomputeFieldStatus(itemID uuid.UUID) {
	item, err := l.Item(itemID)
	if err != nil {
		return
	}
	status := make(map[string]ApprovalState, len(item.FieldStatus))
	for i := range l.ActivityLog {
		e := &l.ActivityLog[i]
		if e.IsItemChange() && *e.ItemID == itemID {
			status[e.Field] = e.Approval
		}
	}
	item.FieldStatus = status
}
