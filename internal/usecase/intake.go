package usecase

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"MinifluxAI/internal/config"
	"MinifluxAI/internal/domain"
	"MinifluxAI/internal/ports"
	"MinifluxAI/internal/signature"
)

// IntakeDeps wires the intake use case.
type IntakeDeps struct {
	Queue       ports.EntryQueue
	Secret      string
	Concurrency int
	Logger      *slog.Logger
}

// Intake authenticates webhook batches and stages their entries.
type Intake struct {
	queue       ports.EntryQueue
	secret      []byte
	concurrency int
	logger      *slog.Logger
}

// StageReport summarizes one staging pass.
type StageReport struct {
	Received int
	Staged   int
	Failed   int
}

// NewIntake constructs the intake use case.
func NewIntake(deps IntakeDeps) *Intake {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Intake{
		queue:       deps.Queue,
		secret:      []byte(deps.Secret),
		concurrency: concurrencyOrDefault(deps.Concurrency),
		logger:      logger,
	}
}

// Accept verifies sig over body before parsing it, then stages every entry.
// Staging failures are logged and counted but never returned.
func (i *Intake) Accept(ctx context.Context, sig string, body []byte) (StageReport, error) {
	if sig == "" {
		return StageReport{}, errSignatureMissing()
	}

	ok, err := signature.Verify(i.secret, body, sig)
	if err != nil {
		return StageReport{}, errConfigInvalid(err)
	}
	if !ok {
		return StageReport{}, errSignatureMismatch()
	}

	batch, err := domain.ParseBatch(body)
	if err != nil {
		return StageReport{}, errMalformedBatch(err)
	}

	i.logger.Debug("webhook batch accepted", "event_type", batch.EventType, "entries", len(batch.Entries))
	return i.Stage(ctx, batch.Entries), nil
}

// Stage writes each entry under entry:<id> with at most i.concurrency writes in flight.
func (i *Intake) Stage(ctx context.Context, entries []domain.Entry) StageReport {
	var staged, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(i.concurrency)
	for _, entry := range entries {
		g.Go(func() error {
			key := entry.Key()
			if err := i.queue.Put(ctx, key, entry); err != nil {
				failed.Add(1)
				i.logger.Error("stage entry failed", "key", key, "error", err)
				return nil
			}
			staged.Add(1)
			i.logger.Debug("entry staged", "key", key)
			return nil
		})
	}
	_ = g.Wait()

	report := StageReport{
		Received: len(entries),
		Staged:   int(staged.Load()),
		Failed:   int(failed.Load()),
	}
	i.logger.Info("webhook batch staged", "received", report.Received, "staged", report.Staged, "failed", report.Failed)
	return report
}

func concurrencyOrDefault(n int) int {
	if n <= 0 {
		return config.DefaultConcurrency
	}
	return n
}
