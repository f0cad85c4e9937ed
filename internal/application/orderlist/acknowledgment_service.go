package orderlist

import (
	"context"
	"fmt"
	"time"

	"github.com/backoffice/backend/internal/domain/orderlist"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// AcknowledgmentService exposes the review workflow for customer changes
type AcknowledgmentService struct {
	repo      orderlist.OrderListRepository
	publisher shared.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewAcknowledgmentService creates a new AcknowledgmentService
func NewAcknowledgmentService(repo orderlist.OrderListRepository, logger *zap.Logger) *AcknowledgmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcknowledgmentService{repo: repo, logger: logger, now: time.Now}
}

// SetEventPublisher sets the publisher for acknowledgment events
func (s *AcknowledgmentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// ListUnacknowledged returns the list's pending customer changes
func (s *AcknowledgmentService) ListUnacknowledged(ctx context.Context, listID uuid.UUID, actor orderlist.Actor) ([]ActivityLogResponse, error) {
	list, err := s.repo.FindByID(ctx, listID)
	if err != nil {
		return nil, err
	}
	if !list.VisibleTo(actor) {
		return nil, shared.ErrNotFound
	}
	return ToActivityLogResponses(list.UnacknowledgedCustomerChanges()), nil
}

// Acknowledge approves pending customer changes on one list
func (s *AcknowledgmentService) Acknowledge(ctx context.Context, listID uuid.UUID, actor orderlist.Actor, logIDs []uuid.UUID) (*AcknowledgeResponse, error) {
	if !orderlist.IsStaff(actor) {
		return nil, shared.NewDomainError(shared.CodePermissionDenied, "only staff may acknowledge changes")
	}
	count, err := s.acknowledgeList(ctx, listID, actor, logIDs)
	if err != nil {
		return nil, err
	}
	return &AcknowledgeResponse{AcknowledgedCount: count}, nil
}

// BulkAcknowledge acknowledges across lists. Every list is attempted; failures
// are reported per list.
func (s *AcknowledgmentService) BulkAcknowledge(ctx context.Context, listIDs []uuid.UUID, actor orderlist.Actor, logIDs []uuid.UUID) ([]ListAcknowledgeResult, error) {
	if !orderlist.IsStaff(actor) {
		return nil, shared.NewDomainError(shared.CodePermissionDenied, "only staff may acknowledge changes")
	}

	results := make([]ListAcknowledgeResult, 0, len(listIDs))
	var errs error
	for _, listID := range listIDs {
		count, err := s.acknowledgeList(ctx, listID, actor, logIDs)
		result := ListAcknowledgeResult{ListID: listID, AcknowledgedCount: count}
		if err != nil {
			result.AcknowledgedCount = 0
			result.Error = err.Error()
			errs = multierr.Append(errs, fmt.Errorf("list %s: %w", listID, err))
		}
		results = append(results, result)
	}
	if errs != nil {
		s.logger.Warn("Bulk acknowledge completed with failures",
			zap.Int("lists", len(listIDs)),
			zap.Int("failed", len(multierr.Errors(errs))),
			zap.Error(errs))
	}
	return results, nil
}

// RejectChange rejects one pending customer change with a reason
func (s *AcknowledgmentService) RejectChange(ctx context.Context, listID, logID uuid.UUID, actor orderlist.Actor, reason string) (*ActivityLogResponse, error) {
	list, err := s.repo.FindByID(ctx, listID)
	if err != nil {
		return nil, err
	}
	if err := list.RejectChange(actor, logID, reason, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, list); err != nil {
		return nil, fmt.Errorf("failed to save list %s: %w", listID, err)
	}
	publishEvents(ctx, s.publisher, s.logger, list)

	for i := range list.ActivityLog {
		if list.ActivityLog[i].ID == logID {
			resp := ToActivityLogResponses(list.ActivityLog[i : i+1])[0]
			return &resp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *AcknowledgmentService) acknowledgeList(ctx context.Context, listID uuid.UUID, actor orderlist.Actor, logIDs []uuid.UUID) (int, error) {
	list, err := s.repo.FindByID(ctx, listID)
	if err != nil {
		return 0, err
	}
	count, err := list.Acknowledge(actor, logIDs, s.now())
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	if err := s.repo.Save(ctx, list); err != nil {
		return 0, fmt.Errorf("failed to save list %s: %w", listID, err)
	}
	publishEvents(ctx, s.publisher, s.logger, list)
	return count, nil
}
