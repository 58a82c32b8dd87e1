package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NomadCrew/ap-workbench/config"
	"github.com/NomadCrew/ap-workbench/handlers"
	"github.com/NomadCrew/ap-workbench/internal/apclient"
	"github.com/NomadCrew/ap-workbench/internal/copilot"
	"github.com/NomadCrew/ap-workbench/internal/documents"
	"github.com/NomadCrew/ap-workbench/internal/events"
	"github.com/NomadCrew/ap-workbench/internal/jobs"
	"github.com/NomadCrew/ap-workbench/internal/rules"
	"github.com/NomadCrew/ap-workbench/internal/websocket"
	"github.com/NomadCrew/ap-workbench/internal/workbench"
	"github.com/NomadCrew/ap-workbench/logger"
	"github.com/NomadCrew/ap-workbench/router"
	"github.com/NomadCrew/ap-workbench/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 15 * time.Second

// @title AP Workbench API
// @version 1.0
// @description Session-scoped review workbench over the accounts-payable backend.
// @BasePath /v1
func main() {
	logger.InitLogger()
	log := logger.GetLogger()
	defer logger.Close()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Server.Environment == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = config.ConnectRedis(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
	}

	backend := apclient.NewClient(cfg.Backend.BaseURL, apclient.WithTimeout(cfg.Backend.Timeout()))

	var (
		store     workbench.Store
		publisher events.Publisher
	)
	if redisClient != nil {
		store = workbench.NewRedisStore(redisClient, cfg.Session.TTL())
		publisher = events.NewRedisPublisher(redisClient)
	} else {
		log.Warn("Redis disabled; sessions and events are kept in process memory")
		store = workbench.NewMemoryStore(cfg.Session.TTL())
		publisher = events.NewMemoryHub()
	}
	guard := services.NewSubmitGuard(redisClient, cfg.SubmitGuard.TTL())
	wb := workbench.NewService(backend, store, publisher, guard)

	tracker := jobs.NewTracker(backend, publisher, cfg.Jobs.PollInterval(), cfg.Jobs.MaxLifetime())
	tracker.OnDone(func(ctx context.Context, sessionID string, jobID int64) {
		if _, err := wb.Mutate(ctx, sessionID, func(s *workbench.Session) error {
			s.UntrackJob(jobID)
			return nil
		}); err != nil {
			log.Debugw("Could not untrack finished job", "sessionID", sessionID, "jobID", jobID, "error", err)
		}
	})

	source, err := documentSource(ctx, cfg, backend)
	if err != nil {
		log.Fatalf("Failed to configure document source: %v", err)
	}
	registry := documents.NewRegistry(source, cfg.Documents.MaxOpenHandles)
	registry.TrackSessions(wb)
	go registry.Run(ctx, cfg.Documents.SweepInterval())
	log.Infow("Document source configured", "source", source)

	hub := websocket.NewHub(publisher)
	eventsHandler := websocket.NewHandler(hub, wb, &cfg.Server)

	wb.OnSessionClose(tracker.StopSession)
	wb.OnSessionClose(registry.ReleaseSession)
	wb.OnSessionClose(hub.CloseSession)

	healthService := services.NewHealthService(backend, redisClient, cfg.Server.Version)
	healthService.SetActiveSubscribersGetter(eventsHandler.ActiveConnections)

	r := router.SetupRouter(router.Dependencies{
		Config:          cfg,
		RedisClient:     redisClient,
		SessionHandler:  handlers.NewSessionHandler(wb),
		CopilotHandler:  handlers.NewCopilotHandler(copilot.NewService(backend, wb)),
		JobHandler:      handlers.NewJobHandler(backend, tracker, wb),
		DocumentHandler: handlers.NewDocumentHandler(registry, wb),
		InvoiceHandler:  handlers.NewInvoiceHandler(backend),
		RulesHandler:    handlers.NewRulesHandler(rules.NewService(backend, cfg.Rules.PromoteThreshold)),
		HealthHandler:   handlers.NewHealthHandler(healthService),
		EventsHandler:   eventsHandler,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("Starting server", "port", cfg.Server.Port, "environment", cfg.Server.Environment, "backend", backend.BaseURL())
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("Server stopped unexpectedly", "error", err)
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown failed", "error", err)
	}
	if err := hub.Shutdown(shutdownCtx); err != nil {
		log.Errorw("WebSocket hub shutdown failed", "error", err)
	}
	if err := tracker.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Job tracker shutdown failed", "error", err)
	}
	if err := publisher.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Event publisher shutdown failed", "error", err)
	}
	log.Info("Server exited")
}

func documentSource(ctx context.Context, cfg *config.Config, backend *apclient.Client) (documents.Source, error) {
	if cfg.Documents.Source != config.DocumentSourceS3 {
		return documents.NewBackendSource(backend), nil
	}
	return documents.NewS3Source(ctx, documents.S3Options{
		Bucket:          cfg.Documents.S3Bucket,
		Region:          cfg.Documents.S3Region,
		Endpoint:        cfg.Documents.S3Endpoint,
		AccessKeyID:     cfg.Documents.S3AccessKeyID,
		SecretAccessKey: cfg.Documents.S3SecretAccessKey,
		Prefix:          cfg.Documents.S3Prefix,
	})
}
