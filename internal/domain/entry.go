package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// EntryKeyPrefix namespaces pending entries inside the durable queue.
const EntryKeyPrefix = "entry:"

var (
	// ErrMalformedBatch reports a webhook body that does not match the batch schema.
	ErrMalformedBatch = errors.New("malformed entries batch")
	// ErrCorruptEntry reports a stored queue value that no longer decodes.
	ErrCorruptEntry = errors.New("corrupt queued entry")
)

// Entry is a Miniflux entry staged for summarization.
type Entry struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
	FeedID  int64  `json:"feed_id"`
}

// Key returns the queue key the entry is staged under.
func (e Entry) Key() string {
	return EntryKey(e.ID)
}

// EntryKey builds the queue key for an entry id.
func EntryKey(id int64) string {
	return EntryKeyPrefix + strconv.FormatInt(id, 10)
}

// EntryIDFromKey extracts the entry id from a queue key.
func EntryIDFromKey(key string) (int64, error) {
	raw, ok := strings.CutPrefix(key, EntryKeyPrefix)
	if !ok {
		return 0, fmt.Errorf("key %q outside %s namespace", key, EntryKeyPrefix)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("key %q: %w", key, err)
	}
	return id, nil
}

// Batch is the payload of a Miniflux new_entries webhook.
type Batch struct {
	EventType string
	Entries   []Entry
}

type rawBatch struct {
	EventType string             `json:"event_type"`
	Entries   *[]json.RawMessage `json:"entries"`
}

type rawEntry struct {
	ID      *int64  `json:"id"`
	Title   *string `json:"title"`
	URL     *string `json:"url"`
	Content *string `json:"content"`
	FeedID  *int64  `json:"feed_id"`
}

// ParseBatch decodes and validates a webhook body. Every failure wraps ErrMalformedBatch.
func ParseBatch(body []byte) (Batch, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Batch{}, fmt.Errorf("%w: body is not a JSON object", ErrMalformedBatch)
	}

	var raw rawBatch
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return Batch{}, fmt.Errorf("%w: %v", ErrMalformedBatch, err)
	}
	if raw.Entries == nil {
		return Batch{}, fmt.Errorf("%w: entries field is required", ErrMalformedBatch)
	}

	batch := Batch{
		EventType: raw.EventType,
		Entries:   make([]Entry, 0, len(*raw.Entries)),
	}
	for i, item := range *raw.Entries {
		entry, err := parseEntry(item)
		if err != nil {
			return Batch{}, fmt.Errorf("%w: entries[%d]: %v", ErrMalformedBatch, i, err)
		}
		batch.Entries = append(batch.Entries, entry)
	}
	return batch, nil
}

func parseEntry(data json.RawMessage) (Entry, error) {
	var raw rawEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return Entry{}, err
	}
	if raw.ID == nil {
		return Entry{}, errors.New("id is required")
	}
	if *raw.ID <= 0 {
		return Entry{}, fmt.Errorf("id must be positive, got %d", *raw.ID)
	}

	switch {
	case raw.Title == nil:
		return Entry{}, errors.New("title is required")
	case raw.URL == nil:
		return Entry{}, errors.New("url is required")
	case raw.Content == nil:
		return Entry{}, errors.New("content is required")
	case raw.FeedID == nil:
		return Entry{}, errors.New("feed_id is required")
	}

	return Entry{
		ID:      *raw.ID,
		Title:   *raw.Title,
		URL:     *raw.URL,
		Content: *raw.Content,
		FeedID:  *raw.FeedID,
	}, nil
}

// EncodeEntry serializes an entry for storage.
func EncodeEntry(entry Entry) ([]byte, error) {
	return json.Marshal(entry)
}

// DecodeEntry restores a stored entry. Failures wrap ErrCorruptEntry.
func DecodeEntry(data []byte) (Entry, error) {
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	if entry.ID <= 0 {
		return Entry{}, fmt.Errorf("%w: missing id", ErrCorruptEntry)
	}
	return entry, nil
}
