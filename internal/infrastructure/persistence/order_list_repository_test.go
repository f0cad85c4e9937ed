package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/backoffice/backend/internal/domain/orderlist"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOrderListTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newRepoTestList(t *testing.T) (*orderlist.OrderList, *orderlist.ListItem) {
	t.Helper()
	list, err := orderlist.NewOrderList(uuid.New(), "Spring restock", orderlist.Staff{UserID: uuid.New()})
	require.NoError(t, err)
	item, err := list.AddItem("1001", orderlist.Staff{UserID: uuid.New()})
	require.NoError(t, err)
	item.Name = "Bolt M8"
	item.Quantity = decimal.NewNullDecimal(decimal.NewFromInt(12))

	shipped := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	item.Deliveries["2024-03"] = orderlist.Delivery{
		Period:       "2024-03",
		Quantity:     decimal.NewFromInt(7),
		Status:       orderlist.DeliveryStatusPartial,
		CargoNumbers: []string{"C-1", "C-2"},
		ShippedAt:    &shipped,
	}
	return list, item
}

func TestGormOrderListRepository_SaveAndFind(t *testing.T) {
	db := setupOrderListTestDB(t)
	repo := NewGormOrderListRepository(db)
	ctx := context.Background()

	list, item := newRepoTestList(t)
	itemID := item.ID
	require.NoError(t, repo.Save(ctx, list))

	t.Run("round trips items and deliveries", func(t *testing.T) {
		got, err := repo.FindByID(ctx, list.ID)
		require.NoError(t, err)

		assert.Equal(t, "Spring restock", got.Name)
		assert.Equal(t, orderlist.ListStatusDrafted, got.Status)
		assert.True(t, orderlist.IsStaff(got.Creator))
		require.Len(t, got.Items, 1)

		gotItem := got.Items[0]
		assert.Equal(t, itemID, gotItem.ID)
		assert.Equal(t, "1001", gotItem.ExternalKey)
		assert.Equal(t, "Bolt M8", gotItem.Name)
		require.True(t, gotItem.Quantity.Valid)
		assert.True(t, gotItem.Quantity.Decimal.Equal(decimal.NewFromInt(12)))

		d, ok := gotItem.Delivery("2024-03")
		require.True(t, ok)
		assert.True(t, d.Quantity.Equal(decimal.NewFromInt(7)))
		assert.Equal(t, orderlist.DeliveryStatusPartial, d.Status)
		assert.Equal(t, []string{"C-1", "C-2"}, d.CargoNumbers)
		require.NotNil(t, d.ShippedAt)
		assert.True(t, d.ShippedAt.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("finds the owning list by item id", func(t *testing.T) {
		got, err := repo.FindByItemID(ctx, itemID)
		require.NoError(t, err)
		assert.Equal(t, list.ID, got.ID)
	})

	t.Run("unknown ids are not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)

		_, err = repo.FindByItemID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormOrderListRepository_SavePersistsActivityLog(t *testing.T) {
	db := setupOrderListTestDB(t)
	repo := NewGormOrderListRepository(db)
	ctx := context.Background()

	list, item := newRepoTestList(t)
	require.NoError(t, repo.Save(ctx, list))

	customer := orderlist.Customer{CustomerID: list.CustomerID}
	changed, err := list.UpdateItemFields(item.ID, map[string]any{"comment": "ship early"}, customer)
	require.NoError(t, err)
	require.Equal(t, []string{"comment"}, changed)
	require.NoError(t, repo.Save(ctx, list))

	loaded, err := repo.FindByID(ctx, list.ID)
	require.NoError(t, err)
	pending := loaded.UnacknowledgedCustomerChanges()
	require.Len(t, pending, 1)
	assert.Equal(t, "comment", pending[0].Field)
	assert.Equal(t, orderlist.ApprovalPending, loaded.Items[0].FieldStatus["comment"])

	staff := orderlist.Staff{UserID: uuid.New()}
	n, err := loaded.Acknowledge(staff, nil, time.Now())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoError(t, repo.Save(ctx, loaded))

	again, err := repo.FindByID(ctx, list.ID)
	require.NoError(t, err)
	assert.Empty(t, again.UnacknowledgedCustomerChanges())
	require.Len(t, again.ActivityLog, 1)
	assert.Equal(t, orderlist.ApprovalApproved, again.ActivityLog[0].Approval)
	require.NotNil(t, again.ActivityLog[0].AcknowledgedBy)
	assert.Equal(t, staff.UserID, *again.ActivityLog[0].AcknowledgedBy)
}

func TestGormOrderListRepository_ActivityLogKeepsFieldOrder(t *testing.T) {
	db := setupOrderListTestDB(t)
	repo := NewGormOrderListRepository(db)
	ctx := context.Background()

	list, item := newRepoTestList(t)
	require.NoError(t, repo.Save(ctx, list))

	customer := orderlist.Customer{CustomerID: list.CustomerID}
	changed, err := list.UpdateItemFields(item.ID, map[string]any{
		"marked":  true,
		"comment": "ship early",
		"code":    "B-8",
		"name":    "Bolt M8 zinc",
	}, customer)
	require.NoError(t, err)
	require.Equal(t, []string{"name", "code", "comment", "marked"}, changed)
	require.NoError(t, repo.Save(ctx, list))

	// All entries of one edit share created_at; push the first one later so
	// only the sequence can restore the order.
	require.NoError(t, db.Model(&models.ActivityLogModel{}).
		Where("list_id = ? AND seq = ?", list.ID, 1).
		Update("created_at", time.Now().Add(time.Hour)).Error)

	loaded, err := repo.FindByID(ctx, list.ID)
	require.NoError(t, err)
	fields := make([]string, 0, len(loaded.ActivityLog))
	for i, e := range loaded.ActivityLog {
		assert.Equal(t, int64(i+1), e.Seq)
		fields = append(fields, e.Field)
	}
	assert.Equal(t, []string{"name", "code", "comment", "marked"}, fields)

	_, err = loaded.UpdateItemFields(item.ID, map[string]any{"comment": "hold"}, customer)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, loaded))

	again, err := repo.FindByID(ctx, list.ID)
	require.NoError(t, err)
	require.Len(t, again.ActivityLog, 5)
	assert.Equal(t, int64(5), again.ActivityLog[4].Seq)
	assert.Equal(t, "comment", again.ActivityLog[4].Field)
}

func TestGormOrderListRepository_SaveRemovesDroppedItems(t *testing.T) {
	db := setupOrderListTestDB(t)
	repo := NewGormOrderListRepository(db)
	ctx := context.Background()

	list, _ := newRepoTestList(t)
	_, err := list.AddItem("1002", orderlist.Staff{UserID: uuid.New()})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, list))

	list.Items = list.Items[1:]
	require.NoError(t, repo.Save(ctx, list))

	got, err := repo.FindByID(ctx, list.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "1002", got.Items[0].ExternalKey)
}

func TestGormOrderListRepository_OptimisticLocking(t *testing.T) {
	db := setupOrderListTestDB(t)
	repo := NewGormOrderListRepository(db)
	ctx := context.Background()

	list, _ := newRepoTestList(t)
	require.NoError(t, repo.Save(ctx, list))

	first, err := repo.FindByID(ctx, list.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, list.ID)
	require.NoError(t, err)

	first.Description = "first writer"
	require.NoError(t, repo.Save(ctx, first))
	assert.Equal(t, 2, first.Version)

	second.Description = "second writer"
	err = repo.Save(ctx, second)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
}

func TestGormOrderListRepository_FindIDsByStatus(t *testing.T) {
	db := setupOrderListTestDB(t)
	repo := NewGormOrderListRepository(db)
	ctx := context.Background()

	active, _ := newRepoTestList(t)
	active.Status = orderlist.ListStatusActive
	require.NoError(t, repo.Save(ctx, active))

	drafted, _ := newRepoTestList(t)
	require.NoError(t, repo.Save(ctx, drafted))

	ids, err := repo.FindIDsByStatus(ctx, orderlist.ListStatusActive)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{active.ID}, ids)
}

func TestGormOrderListRepository_FindAll(t *testing.T) {
	db := setupOrderListTestDB(t)
	repo := NewGormOrderListRepository(db)
	ctx := context.Background()

	customerID := uuid.New()
	staff := orderlist.Staff{UserID: uuid.New()}
	for _, name := range []string{"Charlie", "Alpha", "Bravo"} {
		l, err := orderlist.NewOrderList(customerID, name, staff)
		require.NoError(t, err)
		if name == "Bravo" {
			l.Status = orderlist.ListStatusActive
		}
		require.NoError(t, repo.Save(ctx, l))
	}
	other, _ := newRepoTestList(t)
	require.NoError(t, repo.Save(ctx, other))

	t.Run("pages by a whitelisted sort field", func(t *testing.T) {
		lists, total, err := repo.FindAll(ctx, orderlist.ListFilter{
			Filter:     shared.Filter{Page: 1, PageSize: 2, OrderBy: "name", OrderDir: "asc"},
			CustomerID: &customerID,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, lists, 2)
		assert.Equal(t, "Alpha", lists[0].Name)
		assert.Equal(t, "Bravo", lists[1].Name)
		assert.Empty(t, lists[0].Items)
	})

	t.Run("filters by status", func(t *testing.T) {
		lists, total, err := repo.FindAll(ctx, orderlist.ListFilter{Status: orderlist.ListStatusActive})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, lists, 1)
		assert.Equal(t, "Bravo", lists[0].Name)
	})

	t.Run("ignores unknown sort fields", func(t *testing.T) {
		lists, total, err := repo.FindAll(ctx, orderlist.ListFilter{
			Filter: shared.Filter{Page: 1, PageSize: 10, OrderBy: "name; DROP TABLE order_lists", OrderDir: "asc"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Len(t, lists, 4)
	})
}

func TestGormOrderListRepository_Delete(t *testing.T) {
	db := setupOrderListTestDB(t)
	repo := NewGormOrderListRepository(db)
	ctx := context.Background()

	list, item := newRepoTestList(t)
	require.NoError(t, repo.Save(ctx, list))

	require.NoError(t, repo.Delete(ctx, list.ID))

	_, err := repo.FindByID(ctx, list.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = repo.FindByItemID(ctx, item.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, list.ID), shared.ErrNotFound)
}

func TestGormOrderListRepository_FindByID_DatabaseError(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}),
		&gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	repo := NewGormOrderListRepository(gormDB)

	id := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "order_lists" WHERE id = \$1`).
		WithArgs(id, 1).
		WillReturnError(fmt.Errorf("connection refused"))

	_, err = repo.FindByID(context.Background(), id)
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
