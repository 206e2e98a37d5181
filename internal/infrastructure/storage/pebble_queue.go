package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cockroachdb/pebble"

	"MinifluxAI/internal/domain"
	"MinifluxAI/internal/ports"
)

// FsyncMode defines durability behavior for queue writes.
type FsyncMode int

const (
	// FsyncModeAlways syncs the WAL on every put and delete.
	FsyncModeAlways FsyncMode = iota
	// FsyncModeInterval lets Pebble coalesce WAL syncs within FsyncInterval.
	FsyncModeInterval
	// FsyncModeNever leaves syncing to Pebble's own policy.
	FsyncModeNever
)

// ParseFsyncMode maps a config string to a FsyncMode; empty means always.
func ParseFsyncMode(value string) (FsyncMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "always":
		return FsyncModeAlways, nil
	case "interval":
		return FsyncModeInterval, nil
	case "never":
		return FsyncModeNever, nil
	default:
		return FsyncModeAlways, fmt.Errorf("unknown fsync mode %q", value)
	}
}

// PebbleOptions configures the embedded queue.
type PebbleOptions struct {
	DataDir       string
	Fsync         FsyncMode
	FsyncInterval time.Duration
	Logger        *slog.Logger
}

// PebbleQueue stores pending entries in an embedded Pebble database.
type PebbleQueue struct {
	db        *pebble.DB
	writeOpts *pebble.WriteOptions
}

var _ ports.EntryQueue = (*PebbleQueue)(nil)

// OpenPebbleQueue creates or opens the database under opts.DataDir.
func OpenPebbleQueue(opts PebbleOptions) (*PebbleQueue, error) {
	if strings.TrimSpace(opts.DataDir) == "" {
		return nil, errors.New("pebble queue: data dir is required")
	}

	po := &pebble.Options{}
	if opts.Logger != nil {
		po.Logger = pebbleLogger{logger: opts.Logger}
	}

	writeOpts := pebble.NoSync
	switch opts.Fsync {
	case FsyncModeAlways:
		writeOpts = pebble.Sync
	case FsyncModeInterval:
		interval := opts.FsyncInterval
		if interval <= 0 {
			interval = 5 * time.Millisecond
		}
		po.WALMinSyncInterval = func() time.Duration { return interval }
		writeOpts = pebble.Sync
	case FsyncModeNever:
	}

	db, err := pebble.Open(opts.DataDir, po)
	if err != nil {
		return nil, fmt.Errorf("open pebble %s: %w", opts.DataDir, err)
	}
	return &PebbleQueue{db: db, writeOpts: writeOpts}, nil
}

// Put stores entry under key, replacing any previous value.
func (q *PebbleQueue) Put(ctx context.Context, key string, entry domain.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := domain.EncodeEntry(entry)
	if err != nil {
		return fmt.Errorf("encode entry %s: %w", key, err)
	}
	if err := q.db.Set([]byte(key), raw, q.writeOpts); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Get copies and decodes the value stored under key.
func (q *PebbleQueue) Get(ctx context.Context, key string) (domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return domain.Entry{}, err
	}
	val, closer, err := q.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return domain.Entry{}, ports.ErrNotFound
		}
		return domain.Entry{}, fmt.Errorf("get %s: %w", key, err)
	}
	buf := append([]byte(nil), val...)
	_ = closer.Close()
	return domain.DecodeEntry(buf)
}

// List scans keys in [prefix, upperBound(prefix)).
func (q *PebbleQueue) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	iter, err := q.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: prefixUpperBound([]byte(prefix)),
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}

	var keys []string
	for iter.First(); iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	if err := iter.Error(); err != nil {
		_ = iter.Close()
		return nil, fmt.Errorf("iterate %s: %w", prefix, err)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("close iterator: %w", err)
	}
	return keys, nil
}

// Delete removes key; deleting an absent key is not an error.
func (q *PebbleQueue) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := q.db.Delete([]byte(key), q.writeOpts); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close closes the Pebble database.
func (q *PebbleQueue) Close() error {
	if q == nil || q.db == nil {
		return nil
	}
	return q.db.Close()
}

// prefixUpperBound returns the smallest key greater than every key with prefix,
// or nil when the prefix is all 0xff bytes.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// pebbleLogger routes Pebble's internal logging into slog.
type pebbleLogger struct {
	logger *slog.Logger
}

func (l pebbleLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l pebbleLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l pebbleLogger) Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.logger.Error(msg, "fatal", true)
	panic(msg)
}
