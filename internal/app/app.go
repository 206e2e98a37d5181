package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"MinifluxAI/internal/config"
	"MinifluxAI/internal/enrichment"
	"MinifluxAI/internal/infrastructure/llm"
	"MinifluxAI/internal/infrastructure/miniflux"
	"MinifluxAI/internal/infrastructure/ml"
	"MinifluxAI/internal/infrastructure/scheduler"
	"MinifluxAI/internal/infrastructure/storage"
	"MinifluxAI/internal/logging"
	"MinifluxAI/internal/usecase"
	"MinifluxAI/internal/webhook"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	queue     storage.Queue
	intake    *usecase.Intake
	drainer   *usecase.Drainer
	scheduler *usecase.Scheduler
	server    *webhook.Server
}

// New opens the queue and builds every component. Callers must Close the result.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	if err := scheduler.Validate(cfg.Scheduler.CronExpression); err != nil {
		return nil, err
	}

	registry := enrichment.NewRegistry()
	registry.Register(ml.NewClient(cfg.Enrichment))
	registry.Register(llm.NewChatGPTClient(cfg.Enrichment))
	summarizer, err := registry.Resolve(cfg.Enrichment.Provider)
	if err != nil {
		return nil, err
	}

	queue, err := storage.OpenQueue(ctx, cfg.Queue, baseLogger.With("component", "queue"))
	if err != nil {
		return nil, fmt.Errorf("open queue: %w", err)
	}

	intake := usecase.NewIntake(usecase.IntakeDeps{
		Queue:       queue,
		Secret:      cfg.Miniflux.WebhookSecret,
		Concurrency: cfg.Pipeline.IntakeConcurrency,
		Logger:      baseLogger.With("component", "intake"),
	})

	drainer := usecase.NewDrainer(usecase.DrainerDeps{
		Queue:            queue,
		Summarizer:       summarizer,
		Updater:          miniflux.NewClient(cfg.Miniflux),
		Concurrency:      cfg.Pipeline.DrainConcurrency,
		MinContentLength: cfg.Pipeline.MinContentLength,
		Logger:           baseLogger.With("component", "drainer", "provider", summarizer.Name()),
	})

	cron := scheduler.NewCronScheduler(
		cfg.Scheduler.CronExpression,
		cfg.Scheduler.Location(),
		baseLogger.With("component", "scheduler"),
	)

	handler := webhook.NewHandler(intake, cfg.Server.MaxBodyBytes, baseLogger.With("component", "webhook"))

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		queue:     queue,
		intake:    intake,
		drainer:   drainer,
		scheduler: usecase.NewScheduler(cron, drainer, baseLogger.With("component", "scheduler")),
		server:    webhook.NewServer(cfg.Server.WebhookPath, handler, baseLogger),
	}, nil
}

// Serve runs the webhook listener and the drain schedule until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	a.logger.Info("listening for webhooks", "addr", a.cfg.Server.Addr, "path", a.cfg.Server.WebhookPath)
	serveErr := a.server.ListenAndServe(ctx, a.cfg.Server.Addr)

	stopErr := a.scheduler.Stop(context.WithoutCancel(ctx))
	return errors.Join(serveErr, stopErr)
}

// DrainOnce runs a single drain cycle outside the schedule.
func (a *Application) DrainOnce(ctx context.Context) (usecase.DrainReport, error) {
	return a.drainer.Drain(ctx)
}

// Handler exposes the HTTP routes without binding a listener.
func (a *Application) Handler() http.Handler {
	return a.server.Handler()
}

// Close releases the queue backend.
func (a *Application) Close() error {
	if a.queue == nil {
		return nil
	}
	return a.queue.Close()
}
