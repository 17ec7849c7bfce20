package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jobdeck/jobdeck/api/internal/chat"
	"github.com/jobdeck/jobdeck/api/internal/config"
	"github.com/jobdeck/jobdeck/api/internal/database"
	"github.com/jobdeck/jobdeck/api/internal/handler"
	"github.com/jobdeck/jobdeck/api/internal/jobs"
	"github.com/jobdeck/jobdeck/api/internal/middleware"
	"github.com/jobdeck/jobdeck/api/internal/notify"
	"github.com/jobdeck/jobdeck/api/internal/queue"
	"github.com/jobdeck/jobdeck/api/internal/repository"
	"github.com/jobdeck/jobdeck/api/internal/ws"
	"github.com/jobdeck/jobdeck/api/pkg/jwt"
)

func main() {
	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize database connection
	db := database.NewSurrealDB(database.Config{
		Host:      cfg.Database.Host,
		Port:      cfg.Database.Port,
		User:      cfg.Database.User,
		Password:  cfg.Database.Password,
		Namespace: cfg.Database.Namespace,
		Database:  cfg.Database.Database,
	})

	ctx := context.Background()
	if err := db.Connect(ctx); err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	slog.Info("connected to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Database),
	)

	// Initialize JWT service (public key only, the API never signs)
	jwtService, err := jwt.NewService(jwt.Config{
		PrivateKeyPath: cfg.JWT.PrivateKeyPath,
		PublicKeyPath:  cfg.JWT.PublicKeyPath,
		Issuer:         cfg.JWT.Issuer,
		ExpirationMins: cfg.JWT.ExpirationMins,
	})
	if err != nil {
		slog.Error("failed to initialize JWT service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize repositories
	dispatchRepo := repository.NewDispatchRepository(db)
	userRepo := repository.NewUserRepository(db)
	appRepo := repository.NewApplicationRepository(db)
	jobRepo := repository.NewJobRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)

	// Initialize the dispatch queue and its reclaimer
	dispatchQueue := queue.New(dispatchRepo, queue.Config{
		Visibility:      cfg.Queue.Visibility,
		ReclaimInterval: cfg.Queue.ReclaimInterval,
	}, logger)
	dispatchQueue.Start()
	defer dispatchQueue.Stop()

	// Initialize the delivery transport
	var transport notify.Transport
	if cfg.SMTP.IsConfigured() {
		transport = notify.NewSMTPTransport(notify.SMTPConfig{
			Host:       cfg.SMTP.Host,
			Port:       cfg.SMTP.Port,
			Username:   cfg.SMTP.Username,
			Password:   cfg.SMTP.Password,
			From:       cfg.SMTP.From,
			RatePerSec: cfg.SMTP.RatePerSec,
			Burst:      cfg.SMTP.Burst,
		}, logger)
	} else {
		slog.Warn("SMTP not configured, notifications will only be logged")
		transport = notify.NewLogTransport(logger)
	}

	renderer, err := notify.NewTemplateRenderer(nil)
	if err != nil {
		slog.Error("failed to build templates", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize the dispatcher and retry policies
	policies := notify.DefaultPolicies()
	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		Users:       userRepo,
		Apps:        appRepo,
		Alerts:      alertRepo,
		Jobs:        jobRepo,
		Recommender: jobRepo,
		Transport:   transport,
		Renderer:    renderer,
		Logger:      logger,
	})

	// Initialize the worker pool
	pool := jobs.NewWorkerPool(jobs.WorkerPoolConfig{
		Queue:          dispatchQueue,
		Dispatcher:     dispatcher,
		Policies:       policies,
		Workers:        cfg.Queue.Workers,
		AttemptTimeout: cfg.Queue.AttemptTimeout,
		Logger:         logger,
	})
	pool.Start()
	defer pool.Stop()

	// Initialize the batch scheduler
	if cfg.Scheduler.Enabled {
		scheduler := jobs.NewScheduler(jobs.SchedulerConfig{
			Queue:         dispatchQueue,
			Policies:      policies,
			Store:         scheduleRepo,
			Alerts:        alertRepo,
			Apps:          appRepo,
			Users:         userRepo,
			Timezone:      cfg.Scheduler.Timezone,
			FollowUpAfter: cfg.Scheduler.FollowUpAfter,
			Logger:        logger,
		})
		scheduler.Start()
		defer scheduler.Stop()
	} else {
		slog.Info("batch scheduler disabled")
	}

	// Initialize the chat surface
	hub := chat.NewHub(logger)
	defer hub.Close()
	chatHandler := chat.NewHandler(hub, logger)
	gateway := ws.NewGateway(jwtService, userRepo, logger)

	// Routes
	mux := http.NewServeMux()

	healthHandler := handler.NewHealthHandler(dispatchRepo, logger)
	mux.Handle("GET /health", healthHandler)

	mux.Handle("GET /v1/chat/ws", gateway.Wrap(chatHandler))

	// Admin audit endpoints - only mounted when a key hash is configured
	if cfg.Admin.KeyHash != "" {
		adminMiddleware := middleware.AdminKey(cfg.Admin.KeyHash)
		dispatchHandler := handler.NewDispatchHandler(dispatchRepo)
		mux.Handle("GET /v1/admin/dispatches", adminMiddleware(http.HandlerFunc(dispatchHandler.List)))
	} else {
		slog.Warn("ADMIN_KEY_HASH not set, admin endpoints disabled")
	}

	// Apply global middleware
	wrapped := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.Logger,
		middleware.Recovery,
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      wrapped,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Graceful shutdown: stop accepting requests first, then let the
	// deferred Stop calls drain the scheduler, workers and reclaimer.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	slog.Info("server exited")
}
