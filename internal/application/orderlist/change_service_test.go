package orderlist

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/backoffice/backend/internal/domain/orderlist"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ============================================
// ChangeService Tests
// ============================================

func TestChangeService_UpdateItemFields_StaffChange(t *testing.T) {
	ctx := context.Background()
	repo := new(MockOrderListRepository)
	list := newActiveList(t, "1001")
	itemID := list.Items[0].ID
	staff := orderlist.Staff{UserID: uuid.New()}

	repo.On("FindByItemID", ctx, itemID).Return(list, nil)
	repo.On("Save", ctx, list).Return(nil).Once()

	svc := NewChangeService(repo, zap.NewNop())

	resp, err := svc.UpdateItemFields(ctx, itemID, UpdateItemFieldsRequest{Field: "quantity", Value: json.Number("25")}, staff)

	require.NoError(t, err)
	assert.Equal(t, []string{"quantity"}, resp.ChangedFields)
	require.NotNil(t, resp.Item.Quantity)
	assert.True(t, resp.Item.Quantity.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, "manual", resp.Item.QuantitySource)
	assert.Equal(t, "approved", resp.Item.FieldStatus["quantity"])
	repo.AssertExpectations(t)
}

func TestChangeService_UpdateItemFields_NoOpSkipsSave(t *testing.T) {
	ctx := context.Background()
	repo := new(MockOrderListRepository)
	list := newActiveList(t, "1001")
	itemID := list.Items[0].ID

	repo.On("FindByItemID", ctx, itemID).Return(list, nil)

	svc := NewChangeService(repo, zap.NewNop())

	resp, err := svc.UpdateItemFields(ctx, itemID, UpdateItemFieldsRequest{Field: "comment", Value: nil}, orderlist.Staff{UserID: uuid.New()})

	require.NoError(t, err)
	assert.Empty(t, resp.ChangedFields)
	assert.NotNil(t, resp.ChangedFields)
	assert.Empty(t, list.ActivityLog)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestChangeService_UpdateItemFields_CustomerPublishesEvent(t *testing.T) {
	ctx := context.Background()
	repo := new(MockOrderListRepository)
	publisher := new(MockEventPublisher)
	list := newActiveList(t, "1001")
	itemID := list.Items[0].ID
	customer := orderlist.Customer{CustomerID: list.CustomerID}

	repo.On("FindByItemID", ctx, itemID).Return(list, nil)
	repo.On("Save", ctx, list).Return(nil)
	publisher.On("Publish", ctx, mock.MatchedBy(func(events []shared.DomainEvent) bool {
		return events[0].EventType() == orderlist.EventTypeCustomerChangeSubmitted
	})).Return(nil).Once()

	svc := NewChangeService(repo, zap.NewNop())
	svc.SetEventPublisher(publisher)

	resp, err := svc.UpdateItemFields(ctx, itemID, UpdateItemFieldsRequest{
		Fields: map[string]any{"marked": true, "interval": "monthly"},
	}, customer)

	require.NoError(t, err)
	assert.Equal(t, []string{"interval", "marked"}, resp.ChangedFields)
	assert.Equal(t, "pending", resp.Item.FieldStatus["marked"])
	publisher.AssertExpectations(t)
}

func TestChangeService_UpdateItemFields_ValidationPropagates(t *testing.T) {
	ctx := context.Background()
	repo := new(MockOrderListRepository)
	list := newActiveList(t, "1001")
	itemID := list.Items[0].ID
	repo.On("FindByItemID", ctx, itemID).Return(list, nil)

	svc := NewChangeService(repo, zap.NewNop())

	_, err := svc.UpdateItemFields(ctx, itemID, UpdateItemFieldsRequest{Field: "interval", Value: "daily"}, orderlist.Staff{UserID: uuid.New()})
	assert.True(t, errors.Is(err, shared.ErrValidation))

	_, err = svc.UpdateItemFields(ctx, itemID, UpdateItemFieldsRequest{}, orderlist.Staff{UserID: uuid.New()})
	assert.True(t, errors.Is(err, shared.ErrValidation))
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestChangeService_UpdateDelivery(t *testing.T) {
	ctx := context.Background()
	repo := new(MockOrderListRepository)
	list := newActiveList(t, "1001")
	itemID := list.Items[0].ID
	status := "delivered"

	repo.On("FindByItemID", ctx, itemID).Return(list, nil)
	repo.On("Save", ctx, list).Return(nil).Once()

	svc := NewChangeService(repo, zap.NewNop())

	resp, err := svc.UpdateDelivery(ctx, itemID, "2024-03", UpdateDeliveryRequest{Status: &status}, orderlist.Staff{UserID: uuid.New()})

	require.NoError(t, err)
	assert.Equal(t, "delivered", resp.Delivery.Status)
	assert.Equal(t, []string{"delivery.2024-03.status"}, resp.ChangedFields)

	_, err = svc.UpdateDelivery(ctx, itemID, "March", UpdateDeliveryRequest{Status: &status}, orderlist.Staff{UserID: uuid.New()})
	assert.True(t, errors.Is(err, shared.ErrValidation))
	repo.AssertNumberOfCalls(t, "Save", 1)
}

func TestChangeService_UpdateList(t *testing.T) {
	ctx := context.Background()
	repo := new(MockOrderListRepository)
	list := newActiveList(t)
	name := "Renamed"

	repo.On("FindByID", ctx, list.ID).Return(list, nil)
	repo.On("Save", ctx, list).Return(nil)

	svc := NewChangeService(repo, zap.NewNop())

	resp, err := svc.UpdateList(ctx, list.ID, UpdateListRequest{Name: &name}, orderlist.Staff{UserID: uuid.New()})

	require.NoError(t, err)
	assert.Equal(t, "Renamed", resp.List.Name)
	assert.Equal(t, []string{"name"}, resp.ChangedFields)
	require.Len(t, list.ActivityLog, 1)
	assert.Nil(t, list.ActivityLog[0].ItemID)
}

func TestChangeService_GetList_HidesForeignLists(t *testing.T) {
	ctx := context.Background()
	repo := new(MockOrderListRepository)
	list := newActiveList(t, "1001")
	repo.On("FindByID", ctx, list.ID).Return(list, nil)

	svc := NewChangeService(repo, zap.NewNop())

	_, err := svc.GetList(ctx, list.ID, orderlist.Customer{CustomerID: uuid.New()})
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	resp, err := svc.GetList(ctx, list.ID, orderlist.Customer{CustomerID: list.CustomerID})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 1)
}

func TestChangeService_ListLists(t *testing.T) {
	ctx := context.Background()
	list := newActiveList(t)

	t.Run("staff filter passes through with defaults", func(t *testing.T) {
		repo := new(MockOrderListRepository)
		customerID := uuid.New()
		want := orderlist.ListFilter{
			Filter:     shared.Filter{Page: 2, PageSize: 20, OrderBy: "name", OrderDir: "desc"},
			CustomerID: &customerID,
			Status:     orderlist.ListStatusActive,
		}
		repo.On("FindAll", ctx, want).Return([]orderlist.OrderList{*list}, int64(21), nil)

		svc := NewChangeService(repo, zap.NewNop())
		resp, err := svc.ListLists(ctx, ListListsRequest{
			CustomerID: customerID.String(),
			Status:     "active",
			Page:       2,
			OrderBy:    "name",
		}, orderlist.Staff{UserID: uuid.New()})

		require.NoError(t, err)
		assert.Equal(t, int64(21), resp.Total)
		assert.Equal(t, 2, resp.Page)
		assert.Equal(t, 20, resp.PageSize)
		require.Len(t, resp.Lists, 1)
		assert.Equal(t, list.ID, resp.Lists[0].ID)
		assert.Equal(t, "active", resp.Lists[0].Status)
		repo.AssertExpectations(t)
	})

	t.Run("customer is scoped to own lists", func(t *testing.T) {
		repo := new(MockOrderListRepository)
		customer := orderlist.Customer{CustomerID: uuid.New()}
		repo.On("FindAll", ctx, mock.MatchedBy(func(f orderlist.ListFilter) bool {
			return f.CustomerID != nil && *f.CustomerID == customer.CustomerID
		})).Return([]orderlist.OrderList{}, int64(0), nil)

		svc := NewChangeService(repo, zap.NewNop())
		resp, err := svc.ListLists(ctx, ListListsRequest{CustomerID: uuid.NewString()}, customer)

		require.NoError(t, err)
		assert.Empty(t, resp.Lists)
		assert.NotNil(t, resp.Lists)
		repo.AssertExpectations(t)
	})
}

func TestChangeService_DeleteList(t *testing.T) {
	ctx := context.Background()
	staff := orderlist.Staff{UserID: uuid.New()}

	t.Run("staff delete a disabled list", func(t *testing.T) {
		repo := new(MockOrderListRepository)
		list := newActiveList(t, "1001")
		list.Status = orderlist.ListStatusDisabled
		repo.On("FindByID", ctx, list.ID).Return(list, nil)
		repo.On("Delete", ctx, list.ID).Return(nil).Once()

		svc := NewChangeService(repo, zap.NewNop())
		require.NoError(t, svc.DeleteList(ctx, list.ID, staff))
		repo.AssertExpectations(t)
	})

	t.Run("active lists must be disabled first", func(t *testing.T) {
		repo := new(MockOrderListRepository)
		list := newActiveList(t)
		repo.On("FindByID", ctx, list.ID).Return(list, nil)

		svc := NewChangeService(repo, zap.NewNop())
		err := svc.DeleteList(ctx, list.ID, staff)

		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, shared.CodeInvalidState, domainErr.Code)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("customers cannot delete", func(t *testing.T) {
		repo := new(MockOrderListRepository)
		list := newActiveList(t)
		list.Status = orderlist.ListStatusDrafted
		repo.On("FindByID", ctx, list.ID).Return(list, nil)

		svc := NewChangeService(repo, zap.NewNop())
		err := svc.DeleteList(ctx, list.ID, orderlist.Customer{CustomerID: list.CustomerID})

		assert.ErrorIs(t, err, shared.ErrPermissionDenied)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}
