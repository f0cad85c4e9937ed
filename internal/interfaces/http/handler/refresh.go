package handler

import (
	"context"
	"errors"

	apporderlist "github.com/backoffice/backend/internal/application/orderlist"
	"github.com/backoffice/backend/internal/infrastructure/scheduler"
	"github.com/backoffice/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ItemRefresher reconciles items against the legacy source on demand
type ItemRefresher interface {
	RefreshOne(ctx context.Context, itemID uuid.UUID) (*apporderlist.ItemResponse, error)
	RefreshMany(ctx context.Context, itemIDs []uuid.UUID) (*apporderlist.RefreshStats, error)
}

// SweepController runs full sweeps and reports their history
type SweepController interface {
	TriggerNow(ctx context.Context) (*scheduler.SweepRun, error)
	History() []scheduler.SweepRun
}

// RefreshHandler serves the refresh endpoints
type RefreshHandler struct {
	BaseHandler
	items  ItemRefresher
	sweeps SweepController
}

// NewRefreshHandler creates a new RefreshHandler
func NewRefreshHandler(items ItemRefresher, sweeps SweepController) *RefreshHandler {
	return &RefreshHandler{items: items, sweeps: sweeps}
}

// RefreshItem handles POST /items/:itemId/refresh
func (h *RefreshHandler) RefreshItem(c *gin.Context) {
	itemID, ok := h.UUIDParam(c, "itemId")
	if !ok {
		return
	}
	item, err := h.items.RefreshOne(c.Request.Context(), itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// RefreshItems handles POST /items/refresh. Per-item failures are part of the stats.
func (h *RefreshHandler) RefreshItems(c *gin.Context) {
	var req apporderlist.RefreshManyRequest
	if !h.BindJSON(c, &req) {
		return
	}
	stats, err := h.items.RefreshMany(c.Request.Context(), req.ItemIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// RefreshAll handles POST /lists/refresh by running a sweep and waiting for it
func (h *RefreshHandler) RefreshAll(c *gin.Context) {
	run, err := h.sweeps.TriggerNow(c.Request.Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrSweepInProgress) {
			h.ErrorWithCode(c, dto.ErrCodeSweepInProgress, "A refresh sweep is already running")
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, run)
}

// History handles GET /refresh/history
func (h *RefreshHandler) History(c *gin.Context) {
	h.Success(c, h.sweeps.History())
}
