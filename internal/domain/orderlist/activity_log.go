package orderlist

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalState tracks whether a change has been accepted by staff
type ApprovalState string

const (
	ApprovalPending  ApprovalState = "pending"
	ApprovalApproved ApprovalState = "approved"
	ApprovalRejected ApprovalState = "rejected"
)

// IsValid checks if the state is a valid ApprovalState
func (s ApprovalState) IsValid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// CanTransitionTo checks if the state can transition to the target state
func (s ApprovalState) CanTransitionTo(target ApprovalState) bool {
	switch s {
	case ApprovalPending:
		return target == ApprovalApproved || target == ApprovalRejected
	case ApprovalApproved, ApprovalRejected:
		return false // Terminal states
	}
	return false
}

// ActivityLogEntry is the audit record of one observed field change.
// Only the approval fields are ever modified after creation.
// Seq increases by one per entry within a list and fixes the log order.
type ActivityLogEntry struct {
	ID              uuid.UUID
	ListID          uuid.UUID
	Seq             int64
	ItemID          *uuid.UUID // nil for list-level changes
	Field           string
	OldValue        *string
	NewValue        *string
	Action          string
	ActorID         uuid.UUID
	ActorRole       Role
	CreatedAt       time.Time
	Approval        ApprovalState
	AcknowledgedBy  *uuid.UUID
	AcknowledgedAt  *time.Time
	RejectionReason string
}

func newActivityLogEntry(listID uuid.UUID, seq int64, itemID *uuid.UUID, change FieldChange, actor Actor, at time.Time) ActivityLogEntry {
	var item *uuid.UUID
	if itemID != nil {
		id := *itemID
		item = &id
	}
	return ActivityLogEntry{
		ID:        uuid.New(),
		ListID:    listID,
		Seq:       seq,
		ItemID:    item,
		Field:     change.Field,
		OldValue:  change.Old,
		NewValue:  change.New,
		Action:    ActionLabel(change.Field),
		ActorID:   actor.ActorID(),
		ActorRole: actor.ActorRole(),
		CreatedAt: at,
		Approval:  initialApproval(actor),
	}
}

// ActionLabel derives the human-readable label for a changed field
func ActionLabel(field string) string {
	return field + " changed"
}

// IsPendingCustomerChange reports whether the entry awaits staff acknowledgment
func (e *ActivityLogEntry) IsPendingCustomerChange() bool {
	return e.ActorRole == RoleCustomer && e.Approval == ApprovalPending
}

// IsItemChange reports whether the entry targets an item
func (e *ActivityLogEntry) IsItemChange() bool {
	return e.ItemID != nil
}

func (e *ActivityLogEntry) approve(by uuid.UUID, at time.Time) error {
	if !e.Approval.CanTransitionTo(ApprovalApproved) {
		return invalidStateError("cannot approve change in %s state", e.Approval)
	}
	e.Approval = ApprovalApproved
	e.AcknowledgedBy = &by
	e.AcknowledgedAt = &at
	return nil
}

func (e *ActivityLogEntry) reject(by uuid.UUID, reason string, at time.Time) error {
	if !e.Approval.CanTransitionTo(ApprovalRejected) {
		return invalidStateError("cannot reject change in %s state", e.Approval)
	}
	e.Approval = ApprovalRejected
	e.AcknowledgedBy = &by
	e.AcknowledgedAt = &at
	e.RejectionReason = reason
	return nil
}
