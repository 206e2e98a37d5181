package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"MinifluxAI/internal/config"
	"MinifluxAI/internal/content"
	"MinifluxAI/internal/domain"
	"MinifluxAI/internal/ports"
)

// DrainerDeps wires all driven adapters into the drain cycle.
type DrainerDeps struct {
	Queue            ports.EntryQueue
	Summarizer       ports.Summarizer
	Updater          ports.EntryUpdater
	Concurrency      int
	MinContentLength int
	Logger           *slog.Logger
}

// Drainer enriches staged entries and commits them back to Miniflux.
type Drainer struct {
	queue            ports.EntryQueue
	summarizer       ports.Summarizer
	updater          ports.EntryUpdater
	concurrency      int
	minContentLength int
	logger           *slog.Logger
}

// Outcome is the per-key result of a drain cycle.
type Outcome int

const (
	// OutcomeCommitted means the entry was rewritten and removed from the queue.
	OutcomeCommitted Outcome = iota
	// OutcomeSkipped means the entry stays queued because it is ineligible or got an empty summary.
	OutcomeSkipped
	// OutcomeFailed means a dependency failed and the entry stays queued for the next cycle.
	OutcomeFailed
	// OutcomeMissing means the key vanished or held an undecodable value.
	OutcomeMissing
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCommitted:
		return "committed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	case OutcomeMissing:
		return "missing"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// DrainReport counts per-key outcomes of one cycle.
type DrainReport struct {
	CycleID   string
	Listed    int
	Committed int
	Skipped   int
	Failed    int
	Missing   int
}

func (r *DrainReport) record(o Outcome) {
	switch o {
	case OutcomeCommitted:
		r.Committed++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	case OutcomeMissing:
		r.Missing++
	}
}

// NewDrainer constructs the drain use case.
func NewDrainer(deps DrainerDeps) *Drainer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	minLength := deps.MinContentLength
	if minLength <= 0 {
		minLength = config.DefaultMinContentLength
	}
	return &Drainer{
		queue:            deps.Queue,
		summarizer:       deps.Summarizer,
		updater:          deps.Updater,
		concurrency:      concurrencyOrDefault(deps.Concurrency),
		minContentLength: minLength,
		logger:           logger,
	}
}

// Drain processes every key staged under the entry prefix. Only a failure to
// list the queue is returned; per-key failures leave the key for the next cycle.
func (d *Drainer) Drain(ctx context.Context) (DrainReport, error) {
	report := DrainReport{CycleID: uuid.NewString()}
	logger := d.logger.With("cycle_id", report.CycleID)

	keys, err := d.queue.List(ctx, domain.EntryKeyPrefix)
	if err != nil {
		return report, fmt.Errorf("list pending entries: %w", err)
	}
	report.Listed = len(keys)
	if len(keys) == 0 {
		logger.Debug("drain cycle found nothing to do")
		return report, nil
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for _, key := range keys {
		g.Go(func() error {
			outcome := d.process(ctx, logger.With("key", key), key)
			mu.Lock()
			report.record(outcome)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("drain cycle finished",
		"listed", report.Listed,
		"committed", report.Committed,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"missing", report.Missing,
	)
	return report, nil
}

func (d *Drainer) process(ctx context.Context, logger *slog.Logger, key string) Outcome {
	entry, err := d.queue.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) || errors.Is(err, domain.ErrCorruptEntry) {
			logger.Warn("pending entry unreadable", "error", err)
			return OutcomeMissing
		}
		logger.Error("load pending entry failed", "error", err)
		return OutcomeFailed
	}
	logger = logger.With("entry_id", entry.ID)

	original := content.StripSummary(entry.Content)
	if !Eligible(original, d.minContentLength) {
		logger.Debug("entry content too short to summarize")
		return OutcomeSkipped
	}

	summary, err := d.summarizer.Summarize(ctx, BuildPrompt(entry.Title, entry.URL, original))
	if err != nil {
		logger.Error("summarize entry failed", "error", err)
		return OutcomeFailed
	}
	if strings.TrimSpace(summary) == "" {
		logger.Warn("summarizer returned an empty summary")
		return OutcomeSkipped
	}

	composed, err := content.Compose(summary, original)
	if err != nil {
		logger.Error("compose entry content failed", "error", err)
		return OutcomeFailed
	}

	if err := d.updater.UpdateContent(ctx, entry.ID, composed); err != nil {
		logger.Error("update entry failed", "error", err)
		return OutcomeFailed
	}

	if err := d.queue.Delete(ctx, key); err != nil {
		logger.Error("remove committed entry failed", "error", err)
		return OutcomeFailed
	}

	logger.Info("entry summarized")
	return OutcomeCommitted
}

// Eligible reports whether text, once trimmed, is non-empty and at least
// minLength characters long.
func Eligible(text string, minLength int) bool {
	trimmed := strings.TrimSpace(text)
	return trimmed != "" && utf8.RuneCountInString(trimmed) >= minLength
}

// BuildPrompt formats the summarization input for one entry.
func BuildPrompt(title, url, body string) string {
	return fmt.Sprintf("Title: %s\nURL: %s\nContent: %s", title, url, body)
}
