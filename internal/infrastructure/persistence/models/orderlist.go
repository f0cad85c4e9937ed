package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/backoffice/backend/internal/domain/orderlist"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderListModel is the persistence model for the OrderList aggregate root
type OrderListModel struct {
	AggregateModel
	CustomerID  uuid.UUID            `gorm:"type:uuid;not null;index"`
	Name        string               `gorm:"type:varchar(200);not null"`
	Description string               `gorm:"type:text"`
	Status      orderlist.ListStatus `gorm:"type:varchar(20);not null;index"`
	CreatorID   uuid.UUID            `gorm:"type:uuid;not null"`
	CreatorRole orderlist.Role       `gorm:"type:varchar(20);not null"`
	Items       []ListItemModel      `gorm:"foreignKey:ListID"`
	ActivityLog []ActivityLogModel   `gorm:"foreignKey:ListID"`
}

// TableName returns the table name for GORM
func (OrderListModel) TableName() string {
	return "order_lists"
}

// ListItemModel is the persistence model for a ListItem.
// Deliveries and field approval states are stored as JSON documents.
type ListItemModel struct {
	BaseModel
	ListID          uuid.UUID                  `gorm:"type:uuid;not null;index;uniqueIndex:idx_list_item_key"`
	ExternalKey     string                     `gorm:"type:varchar(64);not null;uniqueIndex:idx_list_item_key"`
	Position        int                        `gorm:"not null;default:0"`
	Name            string                     `gorm:"type:varchar(300)"`
	Code            string                     `gorm:"type:varchar(100)"`
	Image           string                     `gorm:"type:text"`
	WarehouseName   string                     `gorm:"type:varchar(200)"`
	WarehouseCode   string                     `gorm:"type:varchar(50)"`
	Quantity        decimal.NullDecimal        `gorm:"type:decimal(18,4)"`
	QuantitySource  orderlist.QuantitySource   `gorm:"type:varchar(20);not null;default:'external'"`
	Interval        orderlist.DeliveryInterval `gorm:"column:delivery_interval;type:varchar(20)"`
	Comment         string                     `gorm:"type:text"`
	Marked          bool                       `gorm:"not null;default:false"`
	DeliveriesJSON  string                     `gorm:"column:deliveries;type:jsonb;not null;default:'{}'"`
	FieldStatusJSON string                     `gorm:"column:field_status;type:jsonb;not null;default:'{}'"`
	CreatorID       uuid.UUID                  `gorm:"type:uuid;not null"`
	CreatorRole     orderlist.Role             `gorm:"type:varchar(20);not null"`
	LastSyncedAt    *time.Time
}

// TableName returns the table name for GORM
func (ListItemModel) TableName() string {
	return "list_items"
}

// ActivityLogModel is the persistence model for an ActivityLogEntry
type ActivityLogModel struct {
	ID              uuid.UUID               `gorm:"type:uuid;primary_key"`
	ListID          uuid.UUID               `gorm:"type:uuid;not null;index;uniqueIndex:idx_activity_log_entries_list_seq,priority:1"`
	Seq             int64                   `gorm:"not null;uniqueIndex:idx_activity_log_entries_list_seq,priority:2"`
	ItemID          *uuid.UUID              `gorm:"type:uuid;index"`
	Field           string                  `gorm:"type:varchar(100);not null"`
	OldValue        *string                 `gorm:"type:text"`
	NewValue        *string                 `gorm:"type:text"`
	Action          string                  `gorm:"type:varchar(150);not null"`
	ActorID         uuid.UUID               `gorm:"type:uuid;not null"`
	ActorRole       orderlist.Role          `gorm:"type:varchar(20);not null"`
	CreatedAt       time.Time               `gorm:"not null;index"`
	Approval        orderlist.ApprovalState `gorm:"type:varchar(20);not null;index"`
	AcknowledgedBy  *uuid.UUID              `gorm:"type:uuid"`
	AcknowledgedAt  *time.Time
	RejectionReason string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ActivityLogModel) TableName() string {
	return "activity_log_entries"
}

// deliveryDocument is the stored JSON shape of one period's delivery
type deliveryDocument struct {
	Quantity     decimal.Decimal `json:"quantity"`
	Status       string          `json:"status"`
	DeliveredAt  *time.Time      `json:"delivered_at,omitempty"`
	CargoNumbers []string        `json:"cargo_numbers,omitempty"`
	Remark       string          `json:"remark,omitempty"`
	ShippedAt    *time.Time      `json:"shipped_at,omitempty"`
	ETA          *time.Time      `json:"eta,omitempty"`
	ShipmentType string          `json:"shipment_type,omitempty"`
}

// OrderListModelFromDomain converts a domain list, its items and activity log
func OrderListModelFromDomain(l *orderlist.OrderList) (*OrderListModel, error) {
	m := &OrderListModel{
		CustomerID:  l.CustomerID,
		Name:        l.Name,
		Description: l.Description,
		Status:      l.Status,
	}
	m.FromDomainAggregateRoot(l.BaseAggregateRoot)
	if l.Creator != nil {
		m.CreatorID = l.Creator.ActorID()
		m.CreatorRole = l.Creator.ActorRole()
	}

	m.Items = make([]ListItemModel, 0, len(l.Items))
	for i := range l.Items {
		item, err := ListItemModelFromDomain(&l.Items[i])
		if err != nil {
			return nil, err
		}
		m.Items = append(m.Items, *item)
	}

	m.ActivityLog = make([]ActivityLogModel, 0, len(l.ActivityLog))
	for _, e := range l.ActivityLog {
		m.ActivityLog = append(m.ActivityLog, ActivityLogModelFromDomain(e))
	}
	return m, nil
}

// ToDomain converts the model and any loaded associations to a domain list
func (m *OrderListModel) ToDomain() (*orderlist.OrderList, error) {
	creator, err := orderlist.NewActor(m.CreatorRole, m.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("order list %s creator: %w", m.ID, err)
	}
	l := &orderlist.OrderList{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: m.BaseModel.ToDomain(),
			Version:    m.Version,
		},
		CustomerID:  m.CustomerID,
		Name:        m.Name,
		Description: m.Description,
		Status:      m.Status,
		Creator:     creator,
		Items:       make([]orderlist.ListItem, 0, len(m.Items)),
		ActivityLog: make([]orderlist.ActivityLogEntry, 0, len(m.ActivityLog)),
	}
	for i := range m.Items {
		item, err := m.Items[i].ToDomain()
		if err != nil {
			return nil, err
		}
		l.Items = append(l.Items, *item)
	}
	for i := range m.ActivityLog {
		l.ActivityLog = append(l.ActivityLog, m.ActivityLog[i].ToDomain())
	}
	return l, nil
}

// ListItemModelFromDomain converts a domain item
func ListItemModelFromDomain(i *orderlist.ListItem) (*ListItemModel, error) {
	deliveries := make(map[string]deliveryDocument, len(i.Deliveries))
	for period, d := range i.Deliveries {
		deliveries[period.String()] = deliveryDocument{
			Quantity:     d.Quantity,
			Status:       string(d.Status),
			DeliveredAt:  d.DeliveredAt,
			CargoNumbers: d.CargoNumbers,
			Remark:       d.Remark,
			ShippedAt:    d.ShippedAt,
			ETA:          d.ETA,
			ShipmentType: d.ShipmentType,
		}
	}
	deliveriesJSON, err := json.Marshal(deliveries)
	if err != nil {
		return nil, fmt.Errorf("encode deliveries of item %s: %w", i.ID, err)
	}

	status := i.FieldStatus
	if status == nil {
		status = map[string]orderlist.ApprovalState{}
	}
	statusJSON, err := json.Marshal(status)
	if err != nil {
		return nil, fmt.Errorf("encode field status of item %s: %w", i.ID, err)
	}

	m := &ListItemModel{
		ListID:          i.ListID,
		ExternalKey:     i.ExternalKey,
		Position:        i.Position,
		Name:            i.Name,
		Code:            i.Code,
		Image:           i.Image,
		WarehouseName:   i.WarehouseName,
		WarehouseCode:   i.WarehouseCode,
		Quantity:        i.Quantity,
		QuantitySource:  i.QuantitySource,
		Interval:        i.Interval,
		Comment:         i.Comment,
		Marked:          i.Marked,
		DeliveriesJSON:  string(deliveriesJSON),
		FieldStatusJSON: string(statusJSON),
		LastSyncedAt:    i.LastSyncedAt,
	}
	m.FromDomainBaseEntity(i.BaseEntity)
	if i.Creator != nil {
		m.CreatorID = i.Creator.ActorID()
		m.CreatorRole = i.Creator.ActorRole()
	}
	return m, nil
}

// ToDomain converts the model to a domain item.
// A malformed stored document is an error so it is never silently overwritten.
func (m *ListItemModel) ToDomain() (*orderlist.ListItem, error) {
	creator, err := orderlist.NewActor(m.CreatorRole, m.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("list item %s creator: %w", m.ID, err)
	}

	item := &orderlist.ListItem{
		BaseEntity:     m.BaseModel.ToDomain(),
		ListID:         m.ListID,
		ExternalKey:    m.ExternalKey,
		Position:       m.Position,
		Name:           m.Name,
		Code:           m.Code,
		Image:          m.Image,
		WarehouseName:  m.WarehouseName,
		WarehouseCode:  m.WarehouseCode,
		Quantity:       m.Quantity,
		QuantitySource: m.QuantitySource,
		Interval:       m.Interval,
		Comment:        m.Comment,
		Marked:         m.Marked,
		Deliveries:     make(orderlist.Deliveries),
		FieldStatus:    make(map[string]orderlist.ApprovalState),
		Creator:        creator,
		LastSyncedAt:   m.LastSyncedAt,
	}
	if item.QuantitySource == "" {
		item.QuantitySource = orderlist.QuantitySourceExternal
	}

	if m.DeliveriesJSON != "" {
		var docs map[string]deliveryDocument
		if err := json.Unmarshal([]byte(m.DeliveriesJSON), &docs); err != nil {
			return nil, fmt.Errorf("decode deliveries of item %s: %w", m.ID, err)
		}
		for raw, doc := range docs {
			period, err := orderlist.ParsePeriodKey(raw)
			if err != nil {
				return nil, fmt.Errorf("decode deliveries of item %s: %w", m.ID, err)
			}
			item.Deliveries[period] = orderlist.Delivery{
				Period:       period,
				Quantity:     doc.Quantity,
				Status:       orderlist.DeliveryStatus(doc.Status),
				DeliveredAt:  doc.DeliveredAt,
				CargoNumbers: doc.CargoNumbers,
				Remark:       doc.Remark,
				ShippedAt:    doc.ShippedAt,
				ETA:          doc.ETA,
				ShipmentType: doc.ShipmentType,
			}
		}
	}

	if m.FieldStatusJSON != "" {
		if err := json.Unmarshal([]byte(m.FieldStatusJSON), &item.FieldStatus); err != nil {
			return nil, fmt.Errorf("decode field status of item %s: %w", m.ID, err)
		}
	}
	return item, nil
}

// ActivityLogModelFromDomain converts a domain log entry
func ActivityLogModelFromDomain(e orderlist.ActivityLogEntry) ActivityLogModel {
	return ActivityLogModel{
		ID:              e.ID,
		ListID:          e.ListID,
		Seq:             e.Seq,
		ItemID:          e.ItemID,
		Field:           e.Field,
		OldValue:        e.OldValue,
		NewValue:        e.NewValue,
		Action:          e.Action,
		ActorID:         e.ActorID,
		ActorRole:       e.ActorRole,
		CreatedAt:       e.CreatedAt,
		Approval:        e.Approval,
		AcknowledgedBy:  e.AcknowledgedBy,
		AcknowledgedAt:  e.AcknowledgedAt,
		RejectionReason: e.RejectionReason,
	}
}

// ToDomain converts the model to a domain log entry
func (m *ActivityLogModel) ToDomain() orderlist.ActivityLogEntry {
	return orderlist.ActivityLogEntry{
		ID:              m.ID,
		ListID:          m.ListID,
		Seq:             m.Seq,
		ItemID:          m.ItemID,
		Field:           m.Field,
		OldValue:        m.OldValue,
		NewValue:        m.NewValue,
		Action:          m.Action,
		ActorID:         m.ActorID,
		ActorRole:       m.ActorRole,
		CreatedAt:       m.CreatedAt,
		Approval:        m.Approval,
		AcknowledgedBy:  m.AcknowledgedBy,
		AcknowledgedAt:  m.AcknowledgedAt,
		RejectionReason: m.RejectionReason,
	}
}
