package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"MinifluxAI/internal/domain"
	"MinifluxAI/internal/ports"
)

// MemoryQueue is a process-local queue for tests and dry runs. Values are kept
// encoded so decoding behaves like the durable backends.
type MemoryQueue struct {
	mu     sync.RWMutex
	values map[string][]byte
}

var _ ports.EntryQueue = (*MemoryQueue)(nil)

// NewMemoryQueue builds an empty queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{values: map[string][]byte{}}
}

// Put encodes entry and stores it under key, replacing any previous value.
func (q *MemoryQueue) Put(ctx context.Context, key string, entry domain.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := domain.EncodeEntry(entry)
	if err != nil {
		return err
	}
	q.PutRaw(key, raw)
	return nil
}

// PutRaw stores an already encoded value as-is.
func (q *MemoryQueue) PutRaw(key string, raw []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.values[key] = append([]byte(nil), raw...)
}

// Get decodes the value under key or returns ports.ErrNotFound.
func (q *MemoryQueue) Get(ctx context.Context, key string) (domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return domain.Entry{}, err
	}
	q.mu.RLock()
	raw, ok := q.values[key]
	q.mu.RUnlock()
	if !ok {
		return domain.Entry{}, ports.ErrNotFound
	}
	return domain.DecodeEntry(raw)
}

// List returns the keys starting with prefix in lexical order.
func (q *MemoryQueue) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	keys := make([]string, 0, len(q.values))
	for key := range q.values {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes key; deleting an absent key is not an error.
func (q *MemoryQueue) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.values, key)
	return nil
}

// Len reports the number of stored keys.
func (q *MemoryQueue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.values)
}

// Close is a no-op.
func (q *MemoryQueue) Close() error { return nil }
