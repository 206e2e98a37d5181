package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"testing"

	"MinifluxAI/internal/domain"
	"MinifluxAI/internal/ports"
)

func newTestPebbleQueue(t *testing.T) *PebbleQueue {
	t.Helper()
	q, err := OpenPebbleQueue(PebbleOptions{DataDir: t.TempDir(), Fsync: FsyncModeNever})
	if err != nil {
		t.Fatalf("open pebble queue: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func queueBackends(t *testing.T) map[string]ports.EntryQueue {
	t.Helper()
	return map[string]ports.EntryQueue{
		"memory": NewMemoryQueue(),
		"pebble": newTestPebbleQueue(t),
	}
}

func runQueueContract(t *testing.T, q ports.EntryQueue) {
	t.Helper()
	ctx := context.Background()

	first := domain.Entry{ID: 10, Title: "first", URL: "https://example.org/10", Content: "a", FeedID: 1}
	second := domain.Entry{ID: 11, Title: "second", Content: "b", FeedID: 1}
	for _, e := range []domain.Entry{first, second} {
		if err := q.Put(ctx, e.Key(), e); err != nil {
			t.Fatalf("put %s: %v", e.Key(), err)
		}
	}
	if err := q.Put(ctx, "other:1", domain.Entry{ID: 1}); err != nil {
		t.Fatalf("put foreign key: %v", err)
	}

	got, err := q.Get(ctx, first.Key())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != first {
		t.Fatalf("got %+v want %+v", got, first)
	}

	nul := domain.Entry{ID: 12, Title: "nul", URL: "u", Content: "<p>a\u0000b\x00c</p>", FeedID: 1}
	if err := q.Put(ctx, "raw:12", nul); err != nil {
		t.Fatalf("put entry with NUL content: %v", err)
	}
	if got, err := q.Get(ctx, "raw:12"); err != nil || got != nul {
		t.Fatalf("NUL content did not round-trip: %+v, %v", got, err)
	}

	keys, err := q.List(ctx, domain.EntryKeyPrefix)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if want := []string{"entry:10", "entry:11"}; !reflect.DeepEqual(keys, want) {
		t.Fatalf("list got %v want %v", keys, want)
	}

	updated := first
	updated.Content = "rewritten"
	if err := q.Put(ctx, first.Key(), updated); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err = q.Get(ctx, first.Key())
	if err != nil {
		t.Fatalf("get after overwrite: %v", err)
	}
	if got.Content != "rewritten" {
		t.Fatalf("expected last write to win, got %q", got.Content)
	}

	if err := q.Delete(ctx, first.Key()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := q.Get(ctx, first.Key()); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := q.Delete(ctx, first.Key()); err != nil {
		t.Fatalf("delete of absent key should succeed: %v", err)
	}

	keys, err = q.List(ctx, domain.EntryKeyPrefix)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if want := []string{"entry:11"}; !reflect.DeepEqual(keys, want) {
		t.Fatalf("list after delete got %v want %v", keys, want)
	}
}

func TestQueueContract(t *testing.T) {
	t.Parallel()

	for name, q := range queueBackends(t) {
		t.Run(name, func(t *testing.T) {
			runQueueContract(t, q)
		})
	}
}

func TestQueueConcurrentPuts(t *testing.T) {
	t.Parallel()

	for name, q := range queueBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var wg sync.WaitGroup
			for i := 1; i <= 50; i++ {
				wg.Add(1)
				go func(id int64) {
					defer wg.Done()
					entry := domain.Entry{ID: id, Title: fmt.Sprintf("entry %d", id)}
					if err := q.Put(ctx, entry.Key(), entry); err != nil {
						t.Errorf("put %d: %v", id, err)
					}
				}(int64(i))
			}
			wg.Wait()

			keys, err := q.List(ctx, domain.EntryKeyPrefix)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(keys) != 50 {
				t.Fatalf("expected 50 keys, got %d", len(keys))
			}
		})
	}
}

func TestPebbleQueueSurvivesReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	q, err := OpenPebbleQueue(PebbleOptions{DataDir: dir, Fsync: FsyncModeAlways})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	entry := domain.Entry{ID: 77, Title: "durable"}
	if err := q.Put(context.Background(), entry.Key(), entry); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenPebbleQueue(PebbleOptions{DataDir: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(context.Background(), entry.Key())
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got != entry {
		t.Fatalf("got %+v want %+v", got, entry)
	}
}

func TestMemoryQueueCorruptValue(t *testing.T) {
	t.Parallel()

	q := NewMemoryQueue()
	q.PutRaw("entry:5", []byte("{broken"))
	if _, err := q.Get(context.Background(), "entry:5"); !errors.Is(err, domain.ErrCorruptEntry) {
		t.Fatalf("expected ErrCorruptEntry, got %v", err)
	}
}

func TestPrefixUpperBound(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   []byte
		want []byte
	}{
		{[]byte("entry:"), []byte("entry;")},
		{[]byte{'a', 0xff}, []byte{'b'}},
		{[]byte{0xff, 0xff}, nil},
	}
	for _, tc := range cases {
		if got := prefixUpperBound(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("prefixUpperBound(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseFsyncMode(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]FsyncMode{"": FsyncModeAlways, "Interval": FsyncModeInterval, "never": FsyncModeNever} {
		got, err := ParseFsyncMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseFsyncMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseFsyncMode("sometimes"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestPebbleLoggerFatalPanics(t *testing.T) {
	t.Parallel()

	logger := pebbleLogger{logger: slog.New(slog.DiscardHandler)}
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected Fatalf to panic")
		}
		if msg, _ := r.(string); msg != "corrupt manifest 7" {
			t.Fatalf("unexpected panic value %v", r)
		}
	}()
	logger.Fatalf("corrupt manifest %d", 7)
}
