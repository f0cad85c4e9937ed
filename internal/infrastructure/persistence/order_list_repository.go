package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/backoffice/backend/internal/domain/orderlist"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderListSortFields contains allowed sort fields for order lists
var OrderListSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"status":     true,
}

// approvalColumns are the only activity log columns that change after insert
var approvalColumns = []string{"approval", "acknowledged_by", "acknowledged_at", "rejection_reason"}

// GormOrderListRepository implements orderlist.OrderListRepository using GORM
type GormOrderListRepository struct {
	db *gorm.DB
}

// NewGormOrderListRepository creates a new GormOrderListRepository
func NewGormOrderListRepository(db *gorm.DB) *GormOrderListRepository {
	return &GormOrderListRepository{db: db}
}

// FindByID loads a list with its items and activity log
func (r *GormOrderListRepository) FindByID(ctx context.Context, id uuid.UUID) (*orderlist.OrderList, error) {
	var m models.OrderListModel
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, created_at ASC")
		}).
		Preload("ActivityLog", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain()
}

// FindByItemID loads the list owning the given item
func (r *GormOrderListRepository) FindByItemID(ctx context.Context, itemID uuid.UUID) (*orderlist.OrderList, error) {
	var item models.ListItemModel
	if err := r.db.WithContext(ctx).
		Select("id", "list_id").
		First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return r.FindByID(ctx, item.ListID)
}

// FindIDsByStatus returns the ids of lists in a status, oldest first
func (r *GormOrderListRepository) FindIDsByStatus(ctx context.Context, status orderlist.ListStatus) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.OrderListModel{}).
		Where("status = ?", status).
		Order("created_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// FindAll returns one page of lists without items, plus the total match count
func (r *GormOrderListRepository) FindAll(ctx context.Context, filter orderlist.ListFilter) ([]orderlist.OrderList, int64, error) {
	var total int64
	if err := r.applyListFilter(r.db.WithContext(ctx).Model(&models.OrderListModel{}), filter).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField := ValidateSortField(filter.OrderBy, OrderListSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query := r.applyListFilter(r.db.WithContext(ctx).Model(&models.OrderListModel{}), filter).
		Order(fmt.Sprintf("%s %s", sortField, sortOrder))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.OrderListModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	lists := make([]orderlist.OrderList, 0, len(rows))
	for i := range rows {
		l, err := rows[i].ToDomain()
		if err != nil {
			return nil, 0, err
		}
		lists = append(lists, *l)
	}
	return lists, total, nil
}

func (r *GormOrderListRepository) applyListFilter(query *gorm.DB, filter orderlist.ListFilter) *gorm.DB {
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	return query
}

// Save creates or updates a list, its items and its activity log in one transaction.
// The stored version must match the aggregate's version, otherwise the save
// fails with a concurrency conflict.
func (r *GormOrderListRepository) Save(ctx context.Context, list *orderlist.OrderList) error {
	m, err := models.OrderListModelFromDomain(list)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.OrderListModel
		err := tx.Select("id", "version").First(&current, "id = ?", m.ID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Omit(clause.Associations).Create(m).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if current.Version != m.Version {
				return shared.ErrConcurrencyConflict
			}
			m.Version++
			m.UpdatedAt = time.Now()
			result := tx.Model(&models.OrderListModel{}).
				Where("id = ? AND version = ?", m.ID, current.Version).
				Updates(map[string]any{
					"name":        m.Name,
					"description": m.Description,
					"status":      m.Status,
					"version":     m.Version,
					"updated_at":  m.UpdatedAt,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return shared.ErrConcurrencyConflict
			}
		}

		if err := r.saveItems(tx, m); err != nil {
			return err
		}
		return r.saveActivityLog(tx, m.ActivityLog)
	})
	if err != nil {
		return err
	}

	list.Version = m.Version
	list.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *GormOrderListRepository) saveItems(tx *gorm.DB, m *models.OrderListModel) error {
	keep := make([]uuid.UUID, len(m.Items))
	for i := range m.Items {
		keep[i] = m.Items[i].ID
	}

	del := tx.Where("list_id = ?", m.ID)
	if len(keep) > 0 {
		del = del.Where("id NOT IN ?", keep)
	}
	if err := del.Delete(&models.ListItemModel{}).Error; err != nil {
		return err
	}
	if len(m.Items) == 0 {
		return nil
	}

	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&m.Items).Error
}

// saveActivityLog inserts new entries and refreshes the approval columns of existing ones.
func (r *GormOrderListRepository) saveActivityLog(tx *gorm.DB, entries []models.ActivityLogModel) error {
	if len(entries) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(approvalColumns),
	}).Create(&entries).Error
}

// Delete removes a list together with its items and activity log
func (r *GormOrderListRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("list_id = ?", id).Delete(&models.ActivityLogModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("list_id = ?", id).Delete(&models.ListItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.OrderListModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}
