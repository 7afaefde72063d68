package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meetloop/schedule-service/config"
	"github.com/meetloop/schedule-service/internal/postgres"
	"github.com/meetloop/schedule-service/internal/service"
	httpx "github.com/meetloop/schedule-service/internal/transport/http"
	"github.com/meetloop/schedule-service/internal/transport/ws"
	"github.com/meetloop/schedule-service/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

func main() {
	// --- env & config ---
	// .env не обязателен: в контейнере переменные приходят снаружи
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting schedule-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- postgres ---
	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	// --- repos ---
	slotRepo := postgres.NewSlotRepository(db.Pool)
	callRepo := postgres.NewCallRepository(db.Pool)
	notifRepo := postgres.NewNotificationRepository(db.Pool)

	// --- ws hub (реестр соединений) ---
	hub := ws.NewHub()

	// --- services ---
	dispatcher := service.NewDispatcher(notifRepo, hub)
	slotSvc := service.NewSlotService(slotRepo, dispatcher)
	feedSvc := service.NewFeedService(slotRepo)
	presenceSvc := service.NewPresenceService(callRepo)
	scheduler := service.NewSlotScheduler(slotRepo)
	reconciler := service.NewCallReconciler(callRepo, dispatcher, cfg.StaleWindow(), cfg.GraceWindow())
	cron := service.NewCronCoordinator(scheduler, reconciler)

	// --- transports ---
	wsServer := ws.NewServer(hub, presenceSvc)
	validate := validator.New()
	handler := httpx.NewHandler(slotSvc, feedSvc, presenceSvc, dispatcher, cron, validate)
	router := httpx.NewRouter(handler, presenceSvc, wsServer, cfg.Cron.Secret)

	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	hub.CloseAll()
	slog.Info("stopped")
}
