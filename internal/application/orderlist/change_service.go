package orderlist

import (
	"context"
	"fmt"

	"github.com/backoffice/backend/internal/domain/orderlist"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChangeService applies tracked edits to lists, items and deliveries
type ChangeService struct {
	repo      orderlist.OrderListRepository
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewChangeService creates a new ChangeService
func NewChangeService(repo orderlist.OrderListRepository, logger *zap.Logger) *ChangeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangeService{repo: repo, logger: logger}
}

// SetEventPublisher sets the publisher for change events
func (s *ChangeService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// GetList returns a list if the actor may see it
func (s *ChangeService) GetList(ctx context.Context, listID uuid.UUID, actor orderlist.Actor) (*ListResponse, error) {
	list, err := s.loadVisible(ctx, listID, actor)
	if err != nil {
		return nil, err
	}
	resp := ToListResponse(list)
	return &resp, nil
}

// ListLists returns one page of lists. A customer only ever sees their own,
// whatever customer_id they ask for.
func (s *ChangeService) ListLists(ctx context.Context, req ListListsRequest, actor orderlist.Actor) (*ListPageResponse, error) {
	filter, err := req.ToFilter()
	if err != nil {
		return nil, err
	}
	if c, ok := actor.(orderlist.Customer); ok {
		id := c.CustomerID
		filter.CustomerID = &id
	}

	lists, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	resp := &ListPageResponse{
		Lists:    make([]ListSummaryResponse, len(lists)),
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	for i := range lists {
		resp.Lists[i] = ToListSummaryResponse(&lists[i])
	}
	return resp, nil
}

// DeleteList removes a list that is no longer in the refresh sweep
func (s *ChangeService) DeleteList(ctx context.Context, listID uuid.UUID, actor orderlist.Actor) error {
	list, err := s.repo.FindByID(ctx, listID)
	if err != nil {
		return err
	}
	if err := list.CheckDeletable(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, listID); err != nil {
		return fmt.Errorf("failed to delete list %s: %w", listID, err)
	}
	s.logger.Info("List deleted",
		zap.String("list_id", listID.String()),
		zap.String("actor_id", actor.ActorID().String()))
	return nil
}

// UpdateItemFields edits item fields. An empty ChangedFields means nothing changed
// and nothing was saved.
func (s *ChangeService) UpdateItemFields(ctx context.Context, itemID uuid.UUID, req UpdateItemFieldsRequest, actor orderlist.Actor) (*ItemFieldUpdateResponse, error) {
	values := req.Values()
	if len(values) == 0 {
		return nil, shared.NewDomainError(shared.CodeValidation, "no fields to update")
	}
	list, err := s.repo.FindByItemID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	fields, err := list.UpdateItemFields(itemID, values, actor)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, list, fields); err != nil {
		return nil, err
	}

	item, err := list.Item(itemID)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		fields = []string{}
	}
	return &ItemFieldUpdateResponse{Item: ToItemResponse(item), ChangedFields: fields}, nil
}

// UpdateDelivery patches one period's delivery on an item
func (s *ChangeService) UpdateDelivery(ctx context.Context, itemID uuid.UUID, period string, req UpdateDeliveryRequest, actor orderlist.Actor) (*DeliveryUpdateResponse, error) {
	list, err := s.repo.FindByItemID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	delivery, fields, err := list.UpdateDelivery(itemID, period, req.ToPatch(), actor)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, list, fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = []string{}
	}
	return &DeliveryUpdateResponse{Delivery: ToDeliveryResponse(delivery), ChangedFields: fields}, nil
}

// UpdateList edits list-level fields
func (s *ChangeService) UpdateList(ctx context.Context, listID uuid.UUID, req UpdateListRequest, actor orderlist.Actor) (*ListUpdateResponse, error) {
	values := req.Values()
	if len(values) == 0 {
		return nil, shared.NewDomainError(shared.CodeValidation, "no fields to update")
	}
	list, err := s.repo.FindByID(ctx, listID)
	if err != nil {
		return nil, err
	}
	fields, err := list.UpdateListFields(values, actor)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, list, fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = []string{}
	}
	return &ListUpdateResponse{List: ToListResponse(list), ChangedFields: fields}, nil
}

func (s *ChangeService) persist(ctx context.Context, list *orderlist.OrderList, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.repo.Save(ctx, list); err != nil {
		return fmt.Errorf("failed to save list %s: %w", list.ID, err)
	}
	s.logger.Debug("List changes saved",
		zap.String("list_id", list.ID.String()),
		zap.Strings("fields", fields))
	publishEvents(ctx, s.publisher, s.logger, list)
	return nil
}

func (s *ChangeService) loadVisible(ctx context.Context, listID uuid.UUID, actor orderlist.Actor) (*orderlist.OrderList, error) {
	list, err := s.repo.FindByID(ctx, listID)
	if err != nil {
		return nil, err
	}
	if !list.VisibleTo(actor) {
		return nil, shared.ErrNotFound
	}
	return list, nil
}
