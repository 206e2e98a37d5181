package ports

import (
	"context"
	"errors"
	"time"

	"MinifluxAI/internal/domain"
)

// ErrNotFound is returned by EntryQueue.Get when the key is absent.
var ErrNotFound = errors.New("queue key not found")

// EntryQueue is the durable staging area for entries awaiting summarization.
type EntryQueue interface {
	Put(ctx context.Context, key string, entry domain.Entry) error
	Get(ctx context.Context, key string) (domain.Entry, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// Summarizer generates summary text for an entry prompt.
type Summarizer interface {
	Summarize(ctx context.Context, input string) (string, error)
}

// EntryUpdater overwrites the stored content of an entry in the content store.
type EntryUpdater interface {
	UpdateContent(ctx context.Context, id int64, content string) error
}

// Scheduler controls when drain cycles execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
