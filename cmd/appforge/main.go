package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	afhttp "github.com/appforge-ai/AppForge/internal/adapter/http"
	afnats "github.com/appforge-ai/AppForge/internal/adapter/nats"
	afotel "github.com/appforge-ai/AppForge/internal/adapter/otel"
	"github.com/appforge-ai/AppForge/internal/adapter/postgres"
	"github.com/appforge-ai/AppForge/internal/adapter/ristretto"
	"github.com/appforge-ai/AppForge/internal/adapter/sim"
	"github.com/appforge-ai/AppForge/internal/adapter/slack"
	"github.com/appforge-ai/AppForge/internal/adapter/ws"
	"github.com/appforge-ai/AppForge/internal/config"
	"github.com/appforge-ai/AppForge/internal/domain/event"
	"github.com/appforge-ai/AppForge/internal/domain/workflow"
	"github.com/appforge-ai/AppForge/internal/engine"
	"github.com/appforge-ai/AppForge/internal/logger"
	"github.com/appforge-ai/AppForge/internal/middleware"
	"github.com/appforge-ai/AppForge/internal/port/notifier"
	"github.com/appforge-ai/AppForge/internal/resilience"
)

const version = "0.1.0"

func main() {
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "admin":
			if err := runAdmin(args[1:]); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				os.Exit(1)
			}
			return
		case "version":
			fmt.Println("appforge " + version)
			return
		case "serve":
			args = args[1:]
		}
	}
	if len(args) != 0 {
		fmt.Fprintf(os.Stderr, "Usage: appforge [serve|admin|version]\n")
		os.Exit(2)
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"definition", cfg.Engine.DefinitionPath,
		"workers", cfg.Engine.Workers,
	)

	ctx := context.Background()

	// --- Telemetry ---
	otelShutdown, err := afotel.Setup(ctx, cfg.Logging.Service, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(shutdownCtx)
	}()

	// --- Infrastructure ---

	// PostgreSQL
	pgPool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pgPool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	store := postgres.New(pgPool)

	// NATS, behind a circuit breaker on the publish path
	rawQueue, err := afnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = rawQueue.Drain() }()
	queue := resilience.WrapQueue(rawQueue,
		resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	// Compiled-template cache
	tmplCache, err := ristretto.NewTemplateCache(cfg.Cache.TemplateMB << 20)
	if err != nil {
		return fmt.Errorf("template cache: %w", err)
	}
	defer tmplCache.Close()

	// --- Workflow engine ---

	def, err := workflow.Load(cfg.Engine.DefinitionPath, engine.KnownConditions())
	if err != nil {
		return fmt.Errorf("workflow definition: %w", err)
	}
	slog.Info("workflow definition loaded", "description", def.Description)

	hub := ws.NewHub(log)

	notifiers := notifier.Multi{afnats.NewHumanNotifier(queue), ws.NewNotifier(hub)}
	if cfg.Notify.SlackWebhookURL != "" {
		notifiers = append(notifiers, slack.NewNotifier(cfg.Notify.SlackWebhookURL))
		slog.Info("slack notifier enabled")
	}

	var metrics engine.Metrics
	if cfg.Telemetry.Enabled {
		metrics, err = afotel.NewMetrics()
		if err != nil {
			return fmt.Errorf("otel metrics: %w", err)
		}
	}

	eng, err := engine.New(engine.Options{
		Definition: def,
		Store:      store,
		Log:        store,
		Delegator:  afnats.NewDelegator(queue),
		Notifier:   notifiers,
		Compile:    tmplCache.Compile,
		Metrics:    metrics,
		Config:     cfg.Engine,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	workers := engine.NewPool(eng, cfg.Engine.Workers, log)
	defer workers.Close()

	submit := func(ctx context.Context, ev *event.Event) error {
		ctx, span := afotel.StartEventSpan(ctx, ev.ID, ev.ProjectID, string(ev.Kind))
		defer span.End()
		return workers.Submit(ctx, ev)
	}
	cancelEvents, err := afnats.SubscribeEvents(ctx, queue, submit)
	if err != nil {
		return fmt.Errorf("event subscriber: %w", err)
	}
	defer cancelEvents()

	// Simulated agent backends for local development
	if cfg.Engine.SimAgents {
		publish := func(ctx context.Context, ev *event.Event) error {
			return afnats.PublishEvent(ctx, queue, ev)
		}
		agents := sim.New(queue, publish, log, sim.Options{Delay: 500 * time.Millisecond})
		cancelSim, err := agents.Start(ctx)
		if err != nil {
			return fmt.Errorf("sim agents: %w", err)
		}
		defer cancelSim()
		slog.Info("simulated agents running")
	}

	// --- HTTP ---

	handlers := &afhttp.Handlers{
		Store:  store,
		Events: store,
		Queue:  queue,
		Publish: func(ctx context.Context, ev *event.Event) error {
			return afnats.PublishEvent(ctx, queue, ev)
		},
		Version: version,
	}

	keyLookup := func(ctx context.Context, prefix string) ([]byte, error) {
		key, err := store.GetAPIKeyByPrefix(ctx, prefix)
		if err != nil {
			return nil, err
		}
		return key.Hash, nil
	}

	r := chi.NewRouter()
	r.Use(afhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(afhttp.SecurityHeaders)
	r.Use(afhttp.Logger)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	if cfg.Telemetry.Enabled {
		r.Use(afotel.HTTPMiddleware(cfg.Logging.Service))
	}
	r.Use(middleware.Auth(keyLookup, cfg.Auth.Enabled))

	r.Get("/ws", hub.HandleWS)
	afhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
