package handler

import (
	"context"

	apporderlist "github.com/backoffice/backend/internal/application/orderlist"
	"github.com/backoffice/backend/internal/domain/orderlist"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ListService is the edit surface of the change tracker
type ListService interface {
	ListLists(ctx context.Context, req apporderlist.ListListsRequest, actor orderlist.Actor) (*apporderlist.ListPageResponse, error)
	DeleteList(ctx context.Context, listID uuid.UUID, actor orderlist.Actor) error
	GetList(ctx context.Context, listID uuid.UUID, actor orderlist.Actor) (*apporderlist.ListResponse, error)
	UpdateList(ctx context.Context, listID uuid.UUID, req apporderlist.UpdateListRequest, actor orderlist.Actor) (*apporderlist.ListUpdateResponse, error)
	UpdateItemFields(ctx context.Context, itemID uuid.UUID, req apporderlist.UpdateItemFieldsRequest, actor orderlist.Actor) (*apporderlist.ItemFieldUpdateResponse, error)
	UpdateDelivery(ctx context.Context, itemID uuid.UUID, period string, req apporderlist.UpdateDeliveryRequest, actor orderlist.Actor) (*apporderlist.DeliveryUpdateResponse, error)
}

// OrderListHandler serves list and item reads and edits
type OrderListHandler struct {
	BaseHandler
	lists ListService
}

// NewOrderListHandler creates a new OrderListHandler
func NewOrderListHandler(lists ListService) *OrderListHandler {
	return &OrderListHandler{lists: lists}
}

// ListLists handles GET /lists
func (h *OrderListHandler) ListLists(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req apporderlist.ListListsRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.lists.ListLists(c.Request.Context(), req, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Lists, page.Total, page.Page, page.PageSize)
}

// DeleteList handles DELETE /lists/:id
func (h *OrderListHandler) DeleteList(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	listID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.lists.DeleteList(c.Request.Context(), listID, actor); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// GetList handles GET /lists/:id
func (h *OrderListHandler) GetList(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	listID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	list, err := h.lists.GetList(c.Request.Context(), listID, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}

// UpdateList handles PATCH /lists/:id
func (h *OrderListHandler) UpdateList(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	listID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req apporderlist.UpdateListRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.lists.UpdateList(c.Request.Context(), listID, req, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// UpdateItem handles PATCH /items/:itemId
func (h *OrderListHandler) UpdateItem(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	itemID, ok := h.UUIDParam(c, "itemId")
	if !ok {
		return
	}
	var req apporderlist.UpdateItemFieldsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.lists.UpdateItemFields(c.Request.Context(), itemID, req, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// UpdateDelivery handles PUT /items/:itemId/deliveries/:period
func (h *OrderListHandler) UpdateDelivery(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	itemID, ok := h.UUIDParam(c, "itemId")
	if !ok {
		return
	}
	var req apporderlist.UpdateDeliveryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.lists.UpdateDelivery(c.Request.Context(), itemID, c.Param("period"), req, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
