package orderlist

import (
	"time"

	"github.com/backoffice/backend/internal/domain/orderlist"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== List DTOs ====================

// ListResponse represents an order list with its items
type ListResponse struct {
	ID             uuid.UUID      `json:"id"`
	CustomerID     uuid.UUID      `json:"customer_id"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	Status         string         `json:"status"`
	CreatorID      uuid.UUID      `json:"creator_id"`
	CreatorRole    string         `json:"creator_role"`
	Items          []ItemResponse `json:"items"`
	PendingChanges int            `json:"pending_changes"`
	Version        int            `json:"version"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// ListListsRequest is the query of a list browse
type ListListsRequest struct {
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=active disabled drafted"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string `form:"order_by"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToFilter converts the query to a repository filter, filling paging defaults
func (r ListListsRequest) ToFilter() (orderlist.ListFilter, error) {
	filter := orderlist.ListFilter{Filter: shared.DefaultFilter(), Status: orderlist.ListStatus(r.Status)}
	if r.Page > 0 {
		filter.Page = r.Page
	}
	if r.PageSize > 0 {
		filter.PageSize = r.PageSize
	}
	if r.OrderBy != "" {
		filter.OrderBy = r.OrderBy
	}
	if r.OrderDir != "" {
		filter.OrderDir = r.OrderDir
	}
	if r.CustomerID != "" {
		id, err := uuid.Parse(r.CustomerID)
		if err != nil {
			return filter, shared.NewDomainError(shared.CodeValidation, "invalid customer_id")
		}
		filter.CustomerID = &id
	}
	return filter, nil
}

// ListSummaryResponse is a list without its items
type ListSummaryResponse struct {
	ID          uuid.UUID `json:"id"`
	CustomerID  uuid.UUID `json:"customer_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListPageResponse is one page of a list browse
type ListPageResponse struct {
	Lists    []ListSummaryResponse `json:"lists"`
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

// ItemResponse represents one list item
type ItemResponse struct {
	ID             uuid.UUID          `json:"id"`
	ListID         uuid.UUID          `json:"list_id"`
	ExternalKey    string             `json:"external_key"`
	Position       int                `json:"position"`
	Name           string             `json:"name"`
	Code           string             `json:"code"`
	Image          string             `json:"image,omitempty"`
	WarehouseName  string             `json:"warehouse_name,omitempty"`
	WarehouseCode  string             `json:"warehouse_code,omitempty"`
	Quantity       *decimal.Decimal   `json:"quantity"`
	QuantitySource string             `json:"quantity_source"`
	Interval       string             `json:"interval,omitempty"`
	Comment        string             `json:"comment,omitempty"`
	Marked         bool               `json:"marked"`
	Deliveries     []DeliveryResponse `json:"deliveries"`
	FieldStatus    map[string]string  `json:"field_status,omitempty"`
	LastSyncedAt   *time.Time         `json:"last_synced_at,omitempty"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// DeliveryResponse represents one period's delivery
type DeliveryResponse struct {
	Period       string          `json:"period"`
	Quantity     decimal.Decimal `json:"quantity"`
	Status       string          `json:"status,omitempty"`
	DeliveredAt  *time.Time      `json:"delivered_at,omitempty"`
	CargoNumbers []string        `json:"cargo_numbers"`
	Remark       string          `json:"remark,omitempty"`
	ShippedAt    *time.Time      `json:"shipped_at,omitempty"`
	ETA          *time.Time      `json:"eta,omitempty"`
	ShipmentType string          `json:"shipment_type,omitempty"`
}

// ActivityLogResponse represents one activity log entry
type ActivityLogResponse struct {
	ID              uuid.UUID  `json:"id"`
	ListID          uuid.UUID  `json:"list_id"`
	ItemID          *uuid.UUID `json:"item_id,omitempty"`
	Field           string     `json:"field"`
	OldValue        *string    `json:"old_value"`
	NewValue        *string    `json:"new_value"`
	Action          string     `json:"action"`
	ActorID         uuid.UUID  `json:"actor_id"`
	ActorRole       string     `json:"actor_role"`
	CreatedAt       time.Time  `json:"created_at"`
	Approval        string     `json:"approval"`
	AcknowledgedBy  *uuid.UUID `json:"acknowledged_by,omitempty"`
	AcknowledgedAt  *time.Time `json:"acknowledged_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

// ==================== Change DTOs ====================

// UpdateItemFieldsRequest edits one field (Field/Value) or several (Fields)
type UpdateItemFieldsRequest struct {
	Field  string         `json:"field"`
	Value  any            `json:"value"`
	Fields map[string]any `json:"fields"`
}

// Values merges the single-field and multi-field forms
func (r UpdateItemFieldsRequest) Values() map[string]any {
	values := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		values[k] = v
	}
	if r.Field != "" {
		values[r.Field] = r.Value
	}
	return values
}

// ItemFieldUpdateResponse is the result of an item edit
type ItemFieldUpdateResponse struct {
	Item          ItemResponse `json:"item"`
	ChangedFields []string     `json:"changed_fields"`
}

// UpdateDeliveryRequest patches one period's delivery. Omitted fields are left untouched.
type UpdateDeliveryRequest struct {
	Quantity     *decimal.Decimal `json:"quantity"`
	Status       *string          `json:"status"`
	DeliveredAt  *time.Time       `json:"delivered_at"`
	CargoNumbers []string         `json:"cargo_numbers"`
	Remark       *string          `json:"remark"`
	ShippedAt    *time.Time       `json:"shipped_at"`
	ETA          *time.Time       `json:"eta"`
	ShipmentType *string          `json:"shipment_type"`
}

// ToPatch converts the request into a domain patch
func (r UpdateDeliveryRequest) ToPatch() orderlist.DeliveryPatch {
	patch := orderlist.DeliveryPatch{
		Quantity:     r.Quantity,
		DeliveredAt:  r.DeliveredAt,
		CargoNumbers: r.CargoNumbers,
		Remark:       r.Remark,
		ShippedAt:    r.ShippedAt,
		ETA:          r.ETA,
		ShipmentType: r.ShipmentType,
	}
	if r.Status != nil {
		s := orderlist.DeliveryStatus(*r.Status)
		patch.Status = &s
	}
	return patch
}

// DeliveryUpdateResponse is the result of a delivery patch
type DeliveryUpdateResponse struct {
	Delivery      DeliveryResponse `json:"delivery"`
	ChangedFields []string         `json:"changed_fields"`
}

// UpdateListRequest edits list-level fields
type UpdateListRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// Values returns the fields present in the request
func (r UpdateListRequest) Values() map[string]any {
	values := make(map[string]any, 3)
	if r.Name != nil {
		values[orderlist.ListFieldName] = *r.Name
	}
	if r.Description != nil {
		values[orderlist.ListFieldDescription] = *r.Description
	}
	if r.Status != nil {
		values[orderlist.ListFieldStatus] = *r.Status
	}
	return values
}

// ListUpdateResponse is the result of a list edit
type ListUpdateResponse struct {
	List          ListResponse `json:"list"`
	ChangedFields []string     `json:"changed_fields"`
}

// ==================== Acknowledgment DTOs ====================

// AcknowledgeRequest selects log entries to acknowledge; empty means all pending
type AcknowledgeRequest struct {
	LogIDs []uuid.UUID `json:"log_ids"`
}

// BulkAcknowledgeRequest acknowledges across several lists
type BulkAcknowledgeRequest struct {
	ListIDs []uuid.UUID `json:"list_ids" binding:"required,min=1,max=100"`
	LogIDs  []uuid.UUID `json:"log_ids"`
}

// AcknowledgeResponse reports how many entries were acknowledged
type AcknowledgeResponse struct {
	AcknowledgedCount int `json:"acknowledged_count"`
}

// ListAcknowledgeResult is one list's outcome in a bulk acknowledgment
type ListAcknowledgeResult struct {
	ListID            uuid.UUID `json:"list_id"`
	AcknowledgedCount int       `json:"acknowledged_count"`
	Error             string    `json:"error,omitempty"`
}

// RejectChangeRequest rejects one pending customer change
type RejectChangeRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// ==================== Refresh DTOs ====================

// RefreshManyRequest refreshes the given items
type RefreshManyRequest struct {
	ItemIDs []uuid.UUID `json:"item_ids" binding:"required,min=1,max=500"`
}

// RefreshStats aggregates the outcome of a refresh run
type RefreshStats struct {
	TotalLists  int                 `json:"total_lists"`
	TotalItems  int                 `json:"total_items"`
	Refreshed   int                 `json:"refreshed"`
	Changed     int                 `json:"changed"`
	Failed      int                 `json:"failed"`
	FailedLists int                 `json:"failed_lists"`
	Lists       []ListRefreshResult `json:"lists"`
	Unresolved  []ItemRefreshError  `json:"unresolved,omitempty"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  time.Time           `json:"finished_at"`
}

// Duration returns how long the run took
func (s *RefreshStats) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

func (s *RefreshStats) add(r ListRefreshResult) {
	s.TotalLists++
	s.TotalItems += r.Items
	s.Refreshed += r.Refreshed
	s.Changed += r.Changed
	s.Failed += r.Failed
	if r.Error != "" {
		s.FailedLists++
	}
	s.Lists = append(s.Lists, r)
}

// ListRefreshResult is one list's outcome in a refresh run
type ListRefreshResult struct {
	ListID    uuid.UUID          `json:"list_id"`
	Items     int                `json:"items"`
	Refreshed int                `json:"refreshed"`
	Changed   int                `json:"changed"`
	Failed    int                `json:"failed"`
	Errors    []ItemRefreshError `json:"errors,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// ItemRefreshError describes why one item could not be refreshed
type ItemRefreshError struct {
	ItemID      uuid.UUID `json:"item_id"`
	ExternalKey string    `json:"external_key,omitempty"`
	Code        string    `json:"code"`
	Message     string    `json:"message"`
}

// ==================== Mappers ====================

// ToListResponse converts a domain list to a response DTO
func ToListResponse(list *orderlist.OrderList) ListResponse {
	items := make([]ItemResponse, len(list.Items))
	for i := range list.Items {
		items[i] = ToItemResponse(&list.Items[i])
	}
	resp := ListResponse{
		ID:             list.ID,
		CustomerID:     list.CustomerID,
		Name:           list.Name,
		Description:    list.Description,
		Status:         string(list.Status),
		Items:          items,
		PendingChanges: len(list.UnacknowledgedCustomerChanges()),
		Version:        list.Version,
		CreatedAt:      list.CreatedAt,
		UpdatedAt:      list.UpdatedAt,
	}
	if list.Creator != nil {
		resp.CreatorID = list.Creator.ActorID()
		resp.CreatorRole = string(list.Creator.ActorRole())
	}
	return resp
}

// ToListSummaryResponse converts a domain list to a summary DTO
func ToListSummaryResponse(list *orderlist.OrderList) ListSummaryResponse {
	return ListSummaryResponse{
		ID:          list.ID,
		CustomerID:  list.CustomerID,
		Name:        list.Name,
		Description: list.Description,
		Status:      string(list.Status),
		Version:     list.Version,
		CreatedAt:   list.CreatedAt,
		UpdatedAt:   list.UpdatedAt,
	}
}

// ToItemResponse converts a domain item to a response DTO
func ToItemResponse(item *orderlist.ListItem) ItemResponse {
	resp := ItemResponse{
		ID:             item.ID,
		ListID:         item.ListID,
		ExternalKey:    item.ExternalKey,
		Position:       item.Position,
		Name:           item.Name,
		Code:           item.Code,
		Image:          item.Image,
		WarehouseName:  item.WarehouseName,
		WarehouseCode:  item.WarehouseCode,
		QuantitySource: string(item.QuantitySource),
		Interval:       string(item.Interval),
		Comment:        item.Comment,
		Marked:         item.Marked,
		Deliveries:     make([]DeliveryResponse, 0, len(item.Deliveries)),
		LastSyncedAt:   item.LastSyncedAt,
		UpdatedAt:      item.UpdatedAt,
	}
	if item.Quantity.Valid {
		q := item.Quantity.Decimal
		resp.Quantity = &q
	}
	for _, period := range item.Deliveries.Periods() {
		resp.Deliveries = append(resp.Deliveries, ToDeliveryResponse(item.Deliveries[period]))
	}
	if len(item.FieldStatus) > 0 {
		resp.FieldStatus = make(map[string]string, len(item.FieldStatus))
		for field, state := range item.FieldStatus {
			resp.FieldStatus[field] = string(state)
		}
	}
	return resp
}

// ToDeliveryResponse converts a delivery to a response DTO
func ToDeliveryResponse(d orderlist.Delivery) DeliveryResponse {
	cargo := d.CargoNumbers
	if cargo == nil {
		cargo = []string{}
	}
	return DeliveryResponse{
		Period:       string(d.Period),
		Quantity:     d.Quantity,
		Status:       string(d.Status),
		DeliveredAt:  d.DeliveredAt,
		CargoNumbers: cargo,
		Remark:       d.Remark,
		ShippedAt:    d.ShippedAt,
		ETA:          d.ETA,
		ShipmentType: d.ShipmentType,
	}
}

// ToActivityLogResponses converts log entries to response DTOs
func ToActivityLogResponses(entries []orderlist.ActivityLogEntry) []ActivityLogResponse {
	out := make([]ActivityLogResponse, len(entries))
	for i, e := range entries {
		out[i] = ActivityLogResponse{
			ID:              e.ID,
			ListID:          e.ListID,
			ItemID:          e.ItemID,
			Field:           e.Field,
			OldValue:        e.OldValue,
			NewValue:        e.NewValue,
			Action:          e.Action,
			ActorID:         e.ActorID,
			ActorRole:       string(e.ActorRole),
			CreatedAt:       e.CreatedAt,
			Approval:        string(e.Approval),
			AcknowledgedBy:  e.AcknowledgedBy,
			AcknowledgedAt:  e.AcknowledgedAt,
			RejectionReason: e.RejectionReason,
		}
	}
	return out
}
