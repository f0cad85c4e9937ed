package orderlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/backoffice/backend/internal/domain/orderlist"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultItemTimeout bounds a single external fetch during refresh
const DefaultItemTimeout = 15 * time.Second

// RefreshMetrics receives per-item refresh outcomes
type RefreshMetrics interface {
	ItemRefreshed(ctx context.Context, changed bool)
	ItemFailed(ctx context.Context, code string)
}

type noopRefreshMetrics struct{}

func (noopRefreshMetrics) ItemRefreshed(context.Context, bool) {}
func (noopRefreshMetrics) ItemFailed(context.Context, string)  {}

// RefreshService pulls external snapshots into local lists. Lists and items are
// processed one at a time so the external source sees at most one query from a
// sweep.
type RefreshService struct {
	repo        orderlist.OrderListRepository
	source      orderlist.SnapshotSource
	publisher   shared.EventPublisher
	metrics     RefreshMetrics
	logger      *zap.Logger
	itemTimeout time.Duration
	now         func() time.Time
}

// NewRefreshService creates a new RefreshService
func NewRefreshService(repo orderlist.OrderListRepository, source orderlist.SnapshotSource, itemTimeout time.Duration, logger *zap.Logger) *RefreshService {
	if itemTimeout <= 0 {
		itemTimeout = DefaultItemTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefreshService{
		repo:        repo,
		source:      source,
		metrics:     noopRefreshMetrics{},
		logger:      logger,
		itemTimeout: itemTimeout,
		now:         time.Now,
	}
}

// SetEventPublisher sets the publisher for reconciliation events
func (s *RefreshService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetMetrics sets the metrics sink
func (s *RefreshService) SetMetrics(metrics RefreshMetrics) {
	if metrics != nil {
		s.metrics = metrics
	}
}

// RefreshAll refreshes every item of every active list. Item failures are
// counted and never abort the sweep; each list is saved once.
func (s *RefreshService) RefreshAll(ctx context.Context) (*RefreshStats, error) {
	stats := &RefreshStats{StartedAt: s.now(), Lists: make([]ListRefreshResult, 0)}
	ids, err := s.repo.FindIDsByStatus(ctx, orderlist.ListStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to load active lists: %w", err)
	}

	for _, listID := range ids {
		if err := ctx.Err(); err != nil {
			stats.FinishedAt = s.now()
			return stats, err
		}
		list, err := s.repo.FindByID(ctx, listID)
		if err != nil {
			s.logger.Warn("Failed to load list for refresh", zap.String("list_id", listID.String()), zap.Error(err))
			stats.add(ListRefreshResult{ListID: listID, Error: err.Error()})
			continue
		}
		stats.add(s.refreshList(ctx, list, list.ItemIDs()))
	}

	stats.FinishedAt = s.now()
	s.logger.Info("Refresh sweep completed",
		zap.Int("lists", stats.TotalLists),
		zap.Int("items", stats.TotalItems),
		zap.Int("refreshed", stats.Refreshed),
		zap.Int("changed", stats.Changed),
		zap.Int("failed", stats.Failed),
		zap.Duration("duration", stats.Duration()))
	return stats, nil
}

// RefreshOne refreshes a single item and saves its list. Errors propagate.
func (s *RefreshService) RefreshOne(ctx context.Context, itemID uuid.UUID) (*ItemResponse, error) {
	list, err := s.repo.FindByItemID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if _, err := s.refreshItem(ctx, list, itemID); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, list); err != nil {
		return nil, fmt.Errorf("failed to save list %s: %w", list.ID, err)
	}
	publishEvents(ctx, s.publisher, s.logger, list)

	item, err := list.Item(itemID)
	if err != nil {
		return nil, err
	}
	resp := ToItemResponse(item)
	return &resp, nil
}

// RefreshMany refreshes the given items grouped by list, saving each touched
// list once. Unknown items are reported as unresolved.
func (s *RefreshService) RefreshMany(ctx context.Context, itemIDs []uuid.UUID) (*RefreshStats, error) {
	stats := &RefreshStats{StartedAt: s.now(), Lists: make([]ListRefreshResult, 0)}

	var order []uuid.UUID
	lists := make(map[uuid.UUID]*orderlist.OrderList)
	grouped := make(map[uuid.UUID][]uuid.UUID)
	seen := make(map[uuid.UUID]struct{}, len(itemIDs))

	for _, itemID := range itemIDs {
		if _, dup := seen[itemID]; dup {
			continue
		}
		seen[itemID] = struct{}{}

		if listID, ok := owningList(lists, itemID); ok {
			grouped[listID] = append(grouped[listID], itemID)
			continue
		}
		list, err := s.repo.FindByItemID(ctx, itemID)
		if err != nil {
			stats.TotalItems++
			stats.Failed++
			stats.Unresolved = append(stats.Unresolved, itemError(itemID, "", err))
			continue
		}
		lists[list.ID] = list
		order = append(order, list.ID)
		grouped[list.ID] = append(grouped[list.ID], itemID)
	}

	for _, listID := range order {
		if err := ctx.Err(); err != nil {
			stats.FinishedAt = s.now()
			return stats, err
		}
		stats.add(s.refreshList(ctx, lists[listID], grouped[listID]))
	}
	stats.FinishedAt = s.now()
	return stats, nil
}

func owningList(lists map[uuid.UUID]*orderlist.OrderList, itemID uuid.UUID) (uuid.UUID, bool) {
	for id, list := range lists {
		if _, err := list.Item(itemID); err == nil {
			return id, true
		}
	}
	return uuid.Nil, false
}

// refreshList reconciles the given items of one list and saves it once.
// Items only count as refreshed once the save succeeds.
func (s *RefreshService) refreshList(ctx context.Context, list *orderlist.OrderList, itemIDs []uuid.UUID) ListRefreshResult {
	result := ListRefreshResult{ListID: list.ID, Items: len(itemIDs)}
	log := s.logger.With(zap.String("list_id", list.ID.String()))

	type merged struct {
		itemID  uuid.UUID
		changed bool
	}
	var done []merged
	for _, itemID := range itemIDs {
		changed, err := s.refreshItem(ctx, list, itemID)
		if err != nil {
			ie := s.recordItemFailure(ctx, &result, list, itemID, err)
			log.Warn("Item refresh failed",
				zap.String("item_id", itemID.String()),
				zap.String("external_key", ie.ExternalKey),
				zap.String("code", ie.Code),
				zap.Error(err))
			continue
		}
		done = append(done, merged{itemID: itemID, changed: changed})
	}

	if len(done) == 0 {
		return result
	}
	if err := s.repo.Save(ctx, list); err != nil {
		log.Error("Failed to save refreshed list", zap.Int("items", len(done)), zap.Error(err))
		result.Error = err.Error()
		list.ClearDomainEvents()
		for _, m := range done {
			s.recordItemFailure(ctx, &result, list, m.itemID, fmt.Errorf("failed to save list: %w", err))
		}
		return result
	}

	for _, m := range done {
		result.Refreshed++
		if m.changed {
			result.Changed++
		}
		s.metrics.ItemRefreshed(ctx, m.changed)
	}
	publishEvents(ctx, s.publisher, s.logger, list)
	return result
}

func (s *RefreshService) recordItemFailure(ctx context.Context, result *ListRefreshResult, list *orderlist.OrderList, itemID uuid.UUID, err error) ItemRefreshError {
	key := ""
	if item, lookupErr := list.Item(itemID); lookupErr == nil {
		key = item.ExternalKey
	}
	ie := itemError(itemID, key, err)
	result.Failed++
	result.Errors = append(result.Errors, ie)
	s.metrics.ItemFailed(ctx, ie.Code)
	return ie
}

// refreshItem fetches the item's snapshot under a timeout and merges it.
func (s *RefreshService) refreshItem(ctx context.Context, list *orderlist.OrderList, itemID uuid.UUID) (bool, error) {
	item, err := list.Item(itemID)
	if err != nil {
		return false, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.itemTimeout)
	defer cancel()
	snap, err := s.source.Fetch(fetchCtx, item.ExternalKey)
	if err != nil {
		if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, shared.ErrTransientFetch) {
			return false, fmt.Errorf("%w: fetch of item %s timed out after %s", shared.ErrTransientFetch, item.ExternalKey, s.itemTimeout)
		}
		return false, err
	}
	for _, skipped := range snap.Skipped {
		s.logger.Warn("Skipped malformed delivery period",
			zap.String("external_key", item.ExternalKey),
			zap.String("period", skipped.Period),
			zap.String("shipment_id", skipped.ShipmentID),
			zap.String("reason", skipped.Reason))
	}

	result, err := list.ApplyReconciliation(itemID, *snap, s.now())
	if err != nil {
		return false, err
	}
	return result.Changed, nil
}

func itemError(itemID uuid.UUID, key string, err error) ItemRefreshError {
	code := "INTERNAL_ERROR"
	var de *shared.DomainError
	if errors.As(err, &de) {
		code = de.Code
	}
	return ItemRefreshError{ItemID: itemID, ExternalKey: key, Code: code, Message: err.Error()}
}
