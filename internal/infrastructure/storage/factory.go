package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"MinifluxAI/internal/config"
	"MinifluxAI/internal/ports"
)

// Queue is a durable entry queue that owns releasable resources.
type Queue interface {
	ports.EntryQueue
	io.Closer
}

// OpenQueue builds the backend named by cfg.Backend.
func OpenQueue(ctx context.Context, cfg config.QueueConfig, logger *slog.Logger) (Queue, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "pebble":
		mode, err := ParseFsyncMode(cfg.Fsync)
		if err != nil {
			return nil, err
		}
		return OpenPebbleQueue(PebbleOptions{
			DataDir: cfg.DataDir,
			Fsync:   mode,
			Logger:  logger,
		})
	case "postgres", "postgresql":
		return OpenPostgresQueue(ctx, cfg.DSN, cfg.Table)
	case "memory", "mem":
		return NewMemoryQueue(), nil
	default:
		return nil, fmt.Errorf("unsupported queue backend: %s", cfg.Backend)
	}
}
