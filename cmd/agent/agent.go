package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alert-agent/internal/config"
	"alert-agent/internal/db"
	"alert-agent/internal/handlers"
	"alert-agent/internal/platform"
	"alert-agent/internal/services"
	syncengine "alert-agent/internal/sync"
	"alert-agent/internal/voice"
	"alert-agent/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Agent bundles the long-lived service instances constructed once at
// startup. Singleton semantics come from this wiring, not from globals.
type Agent struct {
	store        *db.Database
	connectivity *platform.ProbeMonitor
	engine       *syncengine.Engine
	calls        *services.CallService
	server       *http.Server
}

// SetupAgent constructs and wires every component from the configuration
func SetupAgent(cfg *config.Config) (*Agent, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if cfg.Server.Port <= 0 {
		return nil, errors.New("invalid server port")
	}

	store, err := db.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Repositories
	alertRepo := db.NewAlertRepository(store.GetDB())
	responseRepo := db.NewResponseRepository(store.GetDB())
	callRepo := db.NewCallLogRepository(store.GetDB())
	queueRepo := db.NewQueueRepository(store.GetDB())

	// Connectivity is probed against the sync backend itself
	connectivity := platform.NewProbeMonitor(cfg.Sync.BaseURL+"/health", cfg.Sync.ProbeInterval)

	engine := syncengine.NewEngine(queueRepo, connectivity, syncengine.Config{
		BaseURL:        cfg.Sync.BaseURL,
		RequestTimeout: cfg.Sync.RequestTimeout,
		DrainSchedule:  cfg.Sync.DrainSchedule,
		PruneKeep:      cfg.Sync.PruneKeep,
	})
	engine.SetSyncedHook(services.NewSyncedMarker(responseRepo, callRepo))

	// Platform capabilities: the real bindings are injected by the host
	// platform build; the defaults degrade gracefully.
	location := platform.NoLocationProvider{}
	transport := platform.NewNoVoiceTransport()
	callUI := platform.NoCallUI{}
	dialer := platform.LogDialer{}

	tokens := voice.NewTokenClient(cfg.Voice.BaseURL, 15*time.Second)

	// Services
	alertService := services.NewAlertService(alertRepo)
	responseService := services.NewResponseService(alertRepo, responseRepo, engine, location)
	locationService := services.NewLocationService(engine, location)
	callService := services.NewCallService(callRepo, engine, tokens, transport, callUI, dialer, cfg.User.ID)

	router := gin.Default()
	setupRoutes(router, alertService, responseService, locationService, callService, engine)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Agent{
		store:        store,
		connectivity: connectivity,
		engine:       engine,
		calls:        callService,
		server:       srv,
	}, nil
}

// setupRoutes configures the local HTTP API consumed by the UI layer
func setupRoutes(
	router *gin.Engine,
	alertService *services.AlertService,
	responseService *services.ResponseService,
	locationService *services.LocationService,
	callService *services.CallService,
	engine *syncengine.Engine,
) {
	alertHandler := handlers.NewAlertHandler(alertService, responseService)
	callHandler := handlers.NewCallHandler(callService)
	syncHandler := handlers.NewSyncHandler(engine, locationService)

	router.GET("/health", handleHealthCheck)

	api := router.Group("/api")
	{
		api.GET("/alerts", alertHandler.List)
		api.POST("/alerts", alertHandler.Ingest)
		api.GET("/alerts/:id", alertHandler.Get)
		api.POST("/alerts/:id/resolve", alertHandler.Resolve)
		api.POST("/alerts/:id/expire", alertHandler.Expire)
		api.POST("/alerts/:id/responses", alertHandler.Respond)
		api.GET("/alerts/:id/responses", alertHandler.ListResponses)

		api.POST("/calls", callHandler.Place)
		api.POST("/calls/end", callHandler.End)
		api.POST("/calls/mute", callHandler.Mute)
		api.POST("/calls/speaker", callHandler.Speaker)
		api.GET("/calls/active", callHandler.Active)
		api.GET("/calls", callHandler.History)

		api.GET("/sync/status", syncHandler.Status)
		api.POST("/sync/process", syncHandler.Process)
		api.POST("/location/report", syncHandler.ReportLocation)
	}
}

// handleHealthCheck handles the health check endpoint
func handleHealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"time":    time.Now().UTC(),
		"version": version,
		"service": "alert-agent",
	})
}

// Start runs the agent until an interrupt arrives, then shuts down
func (a *Agent) Start() error {
	a.connectivity.Start()
	a.calls.Start()
	if err := a.engine.Start(); err != nil {
		return err
	}

	go func() {
		logger.Info("Starting local API", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down agent...")
	return a.Shutdown()
}

// Shutdown stops the triggers, the API server, and the store
func (a *Agent) Shutdown() error {
	a.engine.Stop()
	a.calls.Stop()
	a.connectivity.Stop()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := a.server.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if err := a.store.Close(); err != nil {
		return fmt.Errorf("store close failed: %w", err)
	}

	return nil
}
