package orderlist

import (
	"context"

	"github.com/backoffice/backend/internal/domain/orderlist"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockOrderListRepository is a mock implementation of OrderListRepository
type MockOrderListRepository struct {
	mock.Mock
}

func (m *MockOrderListRepository) FindByID(ctx context.Context, id uuid.UUID) (*orderlist.OrderList, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderlist.OrderList), args.Error(1)
}

func (m *MockOrderListRepository) FindByItemID(ctx context.Context, itemID uuid.UUID) (*orderlist.OrderList, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderlist.OrderList), args.Error(1)
}

func (m *MockOrderListRepository) FindIDsByStatus(ctx context.Context, status orderlist.ListStatus) ([]uuid.UUID, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockOrderListRepository) FindAll(ctx context.Context, filter orderlist.ListFilter) ([]orderlist.OrderList, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]orderlist.OrderList), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderListRepository) Save(ctx context.Context, list *orderlist.OrderList) error {
	args := m.Called(ctx, list)
	return args.Error(0)
}

func (m *MockOrderListRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSnapshotSource is a mock implementation of SnapshotSource
type MockSnapshotSource struct {
	mock.Mock
}

func (m *MockSnapshotSource) Fetch(ctx context.Context, itemKey string) (*orderlist.Snapshot, error) {
	args := m.Called(ctx, itemKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderlist.Snapshot), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}
