package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apporderlist "github.com/backoffice/backend/internal/application/orderlist"
	"github.com/backoffice/backend/internal/infrastructure/auth"
	"github.com/backoffice/backend/internal/infrastructure/cache"
	"github.com/backoffice/backend/internal/infrastructure/config"
	"github.com/backoffice/backend/internal/infrastructure/event"
	"github.com/backoffice/backend/internal/infrastructure/legacy"
	"github.com/backoffice/backend/internal/infrastructure/logger"
	"github.com/backoffice/backend/internal/infrastructure/persistence"
	"github.com/backoffice/backend/internal/infrastructure/scheduler"
	"github.com/backoffice/backend/internal/infrastructure/telemetry"
	"github.com/backoffice/backend/internal/interfaces/http/handler"
	"github.com/backoffice/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	tel, err := telemetry.NewProvider(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log := tel.WrapLogger(baseLog)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting order list service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("telemetry", tel.IsEnabled()),
	)

	db, err := persistence.NewDatabase(&cfg.Database, log, cfg.Log.Level)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := tel.InstrumentDB(db.DB, cfg.Database.DBName); err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	legacyDB, err := legacy.Open(&cfg.Legacy)
	if err != nil {
		log.Fatal("Failed to connect to legacy database", zap.Error(err))
	}
	defer func() {
		if err := legacyDB.Close(); err != nil {
			log.Error("Error closing legacy database", zap.Error(err))
		}
	}()
	source := legacy.NewSource(legacyDB, cfg.Legacy.FetchTimeout)

	// Services
	repo := persistence.NewGormOrderListRepository(db.DB)
	changeService := apporderlist.NewChangeService(repo, log)
	ackService := apporderlist.NewAcknowledgmentService(repo, log)
	refreshService := apporderlist.NewRefreshService(repo, source, cfg.Refresh.ItemTimeout, log)

	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(apporderlist.NewPendingChangeNotifier(log))
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	changeService.SetEventPublisher(bus)
	ackService.SetEventPublisher(bus)
	refreshService.SetEventPublisher(bus)

	metrics, err := telemetry.NewRefreshMetrics(tel.Meter("listsync"))
	if err != nil {
		log.Fatal("Failed to register refresh metrics", zap.Error(err))
	}
	refreshService.SetMetrics(metrics)

	// Refresh scheduler
	lock, closeLock, err := cache.NewSweepLock(ctx, cfg.Redis, cfg.Refresh.UseRedis, log)
	if err != nil {
		log.Fatal("Failed to create sweep lock", zap.Error(err))
	}
	defer func() {
		if err := closeLock(); err != nil {
			log.Error("Error closing sweep lock", zap.Error(err))
		}
	}()

	sweeps, err := scheduler.NewRefreshScheduler(scheduler.RefreshSchedulerConfig{
		Interval:     cfg.Refresh.Interval,
		SweepTimeout: cfg.Refresh.LockTTL,
		LockTTL:      cfg.Refresh.LockTTL,
		HistorySize:  cfg.Refresh.HistorySize,
	}, refreshService, lock, log)
	if err != nil {
		log.Fatal("Invalid refresh scheduler configuration", zap.Error(err))
	}
	sweeps.SetObserver(metrics)
	if cfg.Refresh.Enabled {
		if err := sweeps.Start(ctx); err != nil {
			log.Fatal("Failed to start refresh scheduler", zap.Error(err))
		}
		log.Info("Refresh scheduler started", zap.Duration("interval", cfg.Refresh.Interval))
	}

	// HTTP
	engine, err := router.NewEngine(router.EngineOptions{
		HTTP:        cfg.HTTP,
		ServiceName: cfg.Telemetry.ServiceName,
		Tracing:     tel.IsEnabled(),
	}, log)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}
	router.RegisterAPI(engine, router.Handlers{
		Lists:   handler.NewOrderListHandler(changeService),
		Acks:    handler.NewAcknowledgmentHandler(ackService),
		Refresh: handler.NewRefreshHandler(refreshService, sweeps),
		Health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"database": func(context.Context) error { return db.Ping() },
			"legacy":   legacyDB.PingContext,
		}),
	}, auth.NewJWTService(cfg.JWT), log)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := sweeps.Stop(shutdownCtx); err != nil {
		log.Error("Refresh scheduler did not stop cleanly", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Event bus did not stop cleanly", zap.Error(err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		log.Error("Telemetry did not flush", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
