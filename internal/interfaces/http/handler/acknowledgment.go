package handler

import (
	"context"

	apporderlist "github.com/backoffice/backend/internal/application/orderlist"
	"github.com/backoffice/backend/internal/domain/orderlist"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AcknowledgmentService is the query and command surface over pending customer changes
type AcknowledgmentService interface {
	ListUnacknowledged(ctx context.Context, listID uuid.UUID, actor orderlist.Actor) ([]apporderlist.ActivityLogResponse, error)
	Acknowledge(ctx context.Context, listID uuid.UUID, actor orderlist.Actor, logIDs []uuid.UUID) (*apporderlist.AcknowledgeResponse, error)
	BulkAcknowledge(ctx context.Context, listIDs []uuid.UUID, actor orderlist.Actor, logIDs []uuid.UUID) ([]apporderlist.ListAcknowledgeResult, error)
	RejectChange(ctx context.Context, listID, logID uuid.UUID, actor orderlist.Actor, reason string) (*apporderlist.ActivityLogResponse, error)
}

// AcknowledgmentHandler serves the pending-change endpoints
type AcknowledgmentHandler struct {
	BaseHandler
	acks AcknowledgmentService
}

// NewAcknowledgmentHandler creates a new AcknowledgmentHandler
func NewAcknowledgmentHandler(acks AcknowledgmentService) *AcknowledgmentHandler {
	return &AcknowledgmentHandler{acks: acks}
}

// ListPending handles GET /lists/:id/changes/pending
func (h *AcknowledgmentHandler) ListPending(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	listID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	entries, err := h.acks.ListUnacknowledged(c.Request.Context(), listID, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// Acknowledge handles POST /lists/:id/changes/acknowledge.
// Without log_ids every pending change on the list is acknowledged.
func (h *AcknowledgmentHandler) Acknowledge(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	listID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req apporderlist.AcknowledgeRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}
	resp, err := h.acks.Acknowledge(c.Request.Context(), listID, actor, req.LogIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// BulkAcknowledge handles POST /lists/changes/acknowledge
func (h *AcknowledgmentHandler) BulkAcknowledge(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req apporderlist.BulkAcknowledgeRequest
	if !h.BindJSON(c, &req) {
		return
	}
	results, err := h.acks.BulkAcknowledge(c.Request.Context(), req.ListIDs, actor, req.LogIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, results)
}

// Reject handles POST /lists/:id/changes/:logId/reject
func (h *AcknowledgmentHandler) Reject(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	listID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	logID, ok := h.UUIDParam(c, "logId")
	if !ok {
		return
	}
	var req apporderlist.RejectChangeRequest
	if !h.BindJSON(c, &req) {
		return
	}
	entry, err := h.acks.RejectChange(c.Request.Context(), listID, logID, actor, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}
