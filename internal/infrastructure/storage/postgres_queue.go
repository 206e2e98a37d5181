package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"MinifluxAI/internal/domain"
	"MinifluxAI/internal/ports"
)

const defaultPostgresTable = "pending_entries"

// PostgresQueue keeps pending entries in a single Postgres table keyed by queue key.
type PostgresQueue struct {
	db      *sql.DB
	table   string
	builder squirrel.StatementBuilderType
	ownsDB  bool
}

var _ ports.EntryQueue = (*PostgresQueue)(nil)

// OpenPostgresQueue connects to dsn and makes sure the queue table exists.
func OpenPostgresQueue(ctx context.Context, dsn, table string) (*PostgresQueue, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	q := NewPostgresQueue(db, table)
	q.ownsDB = true
	if err := q.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return q, nil
}

// NewPostgresQueue wires an existing sql.DB; the caller keeps ownership of db.
func NewPostgresQueue(db *sql.DB, table string) *PostgresQueue {
	if strings.TrimSpace(table) == "" {
		table = defaultPostgresTable
	}
	return &PostgresQueue{
		db:      db,
		table:   pq.QuoteIdentifier(table),
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// EnsureSchema creates the queue table when missing.
func (q *PostgresQueue) EnsureSchema(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, q.schemaQuery()); err != nil {
		return fmt.Errorf("create queue table: %w", err)
	}
	return nil
}

// schemaQuery keeps the payload as TEXT: JSONB rejects the \u0000 escape.
func (q *PostgresQueue) schemaQuery() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	entry_key  TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, q.table)
}

// Put upserts the entry; a second write for the same key replaces the payload.
func (q *PostgresQueue) Put(ctx context.Context, key string, entry domain.Entry) error {
	raw, err := domain.EncodeEntry(entry)
	if err != nil {
		return fmt.Errorf("encode entry %s: %w", key, err)
	}

	query, args, err := q.putQuery(key, raw)
	if err != nil {
		return fmt.Errorf("build put: %w", err)
	}
	if _, err := q.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Get loads and decodes the entry stored under key.
func (q *PostgresQueue) Get(ctx context.Context, key string) (domain.Entry, error) {
	query, args, err := q.getQuery(key)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("build get: %w", err)
	}

	var payload []byte
	if err := q.db.QueryRowContext(ctx, query, args...).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Entry{}, ports.ErrNotFound
		}
		return domain.Entry{}, fmt.Errorf("get %s: %w", key, err)
	}
	return domain.DecodeEntry(payload)
}

// List returns every key starting with prefix in lexical order.
func (q *PostgresQueue) List(ctx context.Context, prefix string) ([]string, error) {
	query, args, err := q.listQuery(prefix)
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}
	return keys, nil
}

// Delete removes key; deleting an absent key is not an error.
func (q *PostgresQueue) Delete(ctx context.Context, key string) error {
	query, args, err := q.deleteQuery(key)
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := q.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close releases the connection pool when the queue opened it.
func (q *PostgresQueue) Close() error {
	if q.db == nil || !q.ownsDB {
		return nil
	}
	return q.db.Close()
}

func (q *PostgresQueue) putQuery(key string, payload []byte) (string, []interface{}, error) {
	return q.builder.
		Insert(q.table).
		Columns("entry_key", "payload", "updated_at").
		Values(key, string(payload), squirrel.Expr("NOW()")).
		Suffix("ON CONFLICT (entry_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()").
		ToSql()
}

func (q *PostgresQueue) getQuery(key string) (string, []interface{}, error) {
	return q.builder.
		Select("payload").
		From(q.table).
		Where(squirrel.Eq{"entry_key": key}).
		ToSql()
}

func (q *PostgresQueue) listQuery(prefix string) (string, []interface{}, error) {
	return q.builder.
		Select("entry_key").
		From(q.table).
		Where(squirrel.Like{"entry_key": escapeLike(prefix) + "%"}).
		OrderBy("entry_key").
		ToSql()
}

func (q *PostgresQueue) deleteQuery(key string) (string, []interface{}, error) {
	return q.builder.
		Delete(q.table).
		Where(squirrel.Eq{"entry_key": key}).
		ToSql()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
