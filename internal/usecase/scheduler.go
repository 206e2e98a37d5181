package usecase

import (
	"context"
	"log/slog"
	"time"

	"MinifluxAI/internal/ports"
)

// Scheduler wires the cron driver to the drain use case.
type Scheduler struct {
	driver  ports.Scheduler
	drainer *Drainer
	logger  *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring drain cycles.
func NewScheduler(driver ports.Scheduler, drainer *Drainer, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, drainer: drainer, logger: logger}
}

// Start registers the drain cycle with the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.drainer == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.logger.Debug("drain cycle triggered", "at", trigger)
		if _, err := s.drainer.Drain(ctx); err != nil {
			s.logger.Error("drain cycle failed", "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
