package orderlist

import (
	"github.com/google/uuid"
)

// Role identifies who performed an action
type Role string

const (
	RoleStaff    Role = "staff"
	RoleCustomer Role = "customer"
)

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	return r == RoleStaff || r == RoleCustomer
}

// Actor is either a Staff member or a Customer. The set is closed.
type Actor interface {
	ActorID() uuid.UUID
	ActorRole() Role
	isActor()
}

// Staff is a back-office user
type Staff struct {
	UserID uuid.UUID
}

// ActorID returns the staff user id
func (s Staff) ActorID() uuid.UUID { return s.UserID }

// ActorRole returns RoleStaff
func (s Staff) ActorRole() Role { return RoleStaff }

func (Staff) isActor() {}

// Customer is the owner of a list
type Customer struct {
	CustomerID uuid.UUID
}

// ActorID returns the customer id
func (c Customer) ActorID() uuid.UUID { return c.CustomerID }

// ActorRole returns RoleCustomer
func (c Customer) ActorRole() Role { return RoleCustomer }

func (Customer) isActor() {}

// NewActor builds an Actor from its persisted role and id
func NewActor(role Role, id uuid.UUID) (Actor, error) {
	if id == uuid.Nil {
		return nil, validationError("actor id cannot be empty")
	}
	switch role {
	case RoleStaff:
		return Staff{UserID: id}, nil
	case RoleCustomer:
		return Customer{CustomerID: id}, nil
	}
	return nil, validationError("unknown actor role %q", role)
}

// IsStaff reports whether a is a staff actor
func IsStaff(a Actor) bool {
	_, ok := a.(Staff)
	return ok
}

// initialApproval is the approval state a change starts in for the given actor.
func initialApproval(a Actor) ApprovalState {
	switch a.(type) {
	case Staff:
		return ApprovalApproved
	case Customer:
		return ApprovalPending
	}
	return ApprovalPending
}
