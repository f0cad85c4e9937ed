package router

import (
	"github.com/backoffice/backend/internal/infrastructure/config"
	"github.com/backoffice/backend/internal/infrastructure/logger"
	"github.com/backoffice/backend/internal/interfaces/http/handler"
	"github.com/backoffice/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// Handlers groups everything the API routes dispatch to
type Handlers struct {
	Lists   *handler.OrderListHandler
	Acks    *handler.AcknowledgmentHandler
	Refresh *handler.RefreshHandler
	Health  *handler.HealthHandler
}

// EngineOptions configures the gin engine
type EngineOptions struct {
	HTTP        config.HTTPConfig
	ServiceName string
	Tracing     bool
}

// NewEngine builds a gin engine with the shared middleware chain
func NewEngine(opts EngineOptions, log *zap.Logger) (*gin.Engine, error) {
	binding.EnableDecoderUseNumber = true
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(opts.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	if opts.Tracing {
		engine.Use(otelgin.Middleware(opts.ServiceName))
	}
	engine.Use(
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORS(middleware.CORSConfigFromHTTP(opts.HTTP)),
		middleware.BodyLimit(opts.HTTP.MaxBodySize),
	)
	return engine, nil
}

// RegisterAPI mounts the health probes and every /api/v1 route.
// Deletion, acknowledgment, rejection and refresh endpoints are staff only.
func RegisterAPI(engine *gin.Engine, h Handlers, validator middleware.TokenValidator, log *zap.Logger) {
	if h.Health != nil {
		engine.GET("/health", h.Health.Live)
		engine.GET("/ready", h.Health.Ready)
	}

	staff := middleware.RequireStaff()

	lists := NewDomainGroup("lists", "/lists").
		GET("", h.Lists.ListLists).
		GET("/:id", h.Lists.GetList).
		PATCH("/:id", h.Lists.UpdateList).
		DELETE("/:id", staff, h.Lists.DeleteList).
		GET("/:id/changes/pending", h.Acks.ListPending).
		POST("/:id/changes/acknowledge", staff, h.Acks.Acknowledge).
		POST("/:id/changes/:logId/reject", staff, h.Acks.Reject).
		POST("/changes/acknowledge", staff, h.Acks.BulkAcknowledge).
		POST("/refresh", staff, h.Refresh.RefreshAll)

	items := NewDomainGroup("items", "/items").
		PATCH("/:itemId", h.Lists.UpdateItem).
		PUT("/:itemId/deliveries/:period", h.Lists.UpdateDelivery).
		POST("/:itemId/refresh", staff, h.Refresh.RefreshItem).
		POST("/refresh", staff, h.Refresh.RefreshItems)

	refresh := NewDomainGroup("refresh", "/refresh").
		GET("/history", staff, h.Refresh.History)

	NewRouter(engine, WithMiddleware(middleware.Authenticate(validator, log))).
		Register(lists, items, refresh).
		Setup()
}
