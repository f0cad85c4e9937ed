package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apporderlist "github.com/backoffice/backend/internal/application/orderlist"
	"github.com/backoffice/backend/internal/domain/orderlist"
	"github.com/backoffice/backend/internal/infrastructure/scheduler"
	"github.com/backoffice/backend/internal/interfaces/http/dto"
	"github.com/backoffice/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type mockListService struct{ mock.Mock }

func (m *mockListService) GetList(ctx context.Context, listID uuid.UUID, actor orderlist.Actor) (*apporderlist.ListResponse, error) {
	args := m.Called(ctx, listID, actor)
	if v := args.Get(0); v != nil {
		return v.(*apporderlist.ListResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockListService) UpdateList(ctx context.Context, listID uuid.UUID, req apporderlist.UpdateListRequest, actor orderlist.Actor) (*apporderlist.ListUpdateResponse, error) {
	args := m.Called(ctx, listID, req, actor)
	if v := args.Get(0); v != nil {
		return v.(*apporderlist.ListUpdateResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockListService) UpdateItemFields(ctx context.Context, itemID uuid.UUID, req apporderlist.UpdateItemFieldsRequest, actor orderlist.Actor) (*apporderlist.ItemFieldUpdateResponse, error) {
	args := m.Called(ctx, itemID, req, actor)
	if v := args.Get(0); v != nil {
		return v.(*apporderlist.ItemFieldUpdateResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockListService) UpdateDelivery(ctx context.Context, itemID uuid.UUID, period string, req apporderlist.UpdateDeliveryRequest, actor orderlist.Actor) (*apporderlist.DeliveryUpdateResponse, error) {
	args := m.Called(ctx, itemID, period, req, actor)
	if v := args.Get(0); v != nil {
		return v.(*apporderlist.DeliveryUpdateResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockListService) ListLists(ctx context.Context, req apporderlist.ListListsRequest, actor orderlist.Actor) (*apporderlist.ListPageResponse, error) {
	args := m.Called(ctx, req, actor)
	if v := args.Get(0); v != nil {
		return v.(*apporderlist.ListPageResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockListService) DeleteList(ctx context.Context, listID uuid.UUID, actor orderlist.Actor) error {
	return m.Called(ctx, listID, actor).Error(0)
}

type mockAckService struct{ mock.Mock }

func (m *mockAckService) ListUnacknowledged(ctx context.Context, listID uuid.UUID, actor orderlist.Actor) ([]apporderlist.ActivityLogResponse, error) {
	args := m.Called(ctx, listID, actor)
	if v := args.Get(0); v != nil {
		return v.([]apporderlist.ActivityLogResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAckService) Acknowledge(ctx context.Context, listID uuid.UUID, actor orderlist.Actor, logIDs []uuid.UUID) (*apporderlist.AcknowledgeResponse, error) {
	args := m.Called(ctx, listID, actor, logIDs)
	if v := args.Get(0); v != nil {
		return v.(*apporderlist.AcknowledgeResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAckService) BulkAcknowledge(ctx context.Context, listIDs []uuid.UUID, actor orderlist.Actor, logIDs []uuid.UUID) ([]apporderlist.ListAcknowledgeResult, error) {
	args := m.Called(ctx, listIDs, actor, logIDs)
	if v := args.Get(0); v != nil {
		return v.([]apporderlist.ListAcknowledgeResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAckService) RejectChange(ctx context.Context, listID, logID uuid.UUID, actor orderlist.Actor, reason string) (*apporderlist.ActivityLogResponse, error) {
	args := m.Called(ctx, listID, logID, actor, reason)
	if v := args.Get(0); v != nil {
		return v.(*apporderlist.ActivityLogResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockRefresher struct{ mock.Mock }

func (m *mockRefresher) RefreshOne(ctx context.Context, itemID uuid.UUID) (*apporderlist.ItemResponse, error) {
	args := m.Called(ctx, itemID)
	if v := args.Get(0); v != nil {
		return v.(*apporderlist.ItemResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRefresher) RefreshMany(ctx context.Context, itemIDs []uuid.UUID) (*apporderlist.RefreshStats, error) {
	args := m.Called(ctx, itemIDs)
	if v := args.Get(0); v != nil {
		return v.(*apporderlist.RefreshStats), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSweeps struct{ mock.Mock }

func (m *mockSweeps) TriggerNow(ctx context.Context) (*scheduler.SweepRun, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*scheduler.SweepRun), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSweeps) History() []scheduler.SweepRun {
	return m.Called().Get(0).([]scheduler.SweepRun)
}

// withActor stands in for the auth middleware
func withActor(actor orderlist.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor != nil {
			c.Set(middleware.ActorKey, actor)
		}
		c.Next()
	}
}

func newEngine(actor orderlist.Actor) *gin.Engine {
	r := gin.New()
	r.Use(withActor(actor))
	return r
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    *dto.Meta       `json:"meta"`
	Error   *dto.ErrorInfo  `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}
