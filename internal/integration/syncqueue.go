package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// QueuedSync is a calendar event whose sync failed.
type QueuedSync struct {
	ID        string        `json:"id"`
	Event     CalendarEvent `json:"event"`
	LastError string        `json:"last_error"`
	Attempts  int           `json:"attempts"`
	QueuedAt  time.Time     `json:"queued_at"`
}

// SyncOutcome reports what happened to one queued event during a retry.
// Error is empty when the event synced.
type SyncOutcome struct {
	ID       string        `json:"id"`
	Event    CalendarEvent `json:"event"`
	Attempts int           `json:"attempts"`
	Error    string        `json:"error,omitempty"`
}

// SyncResult is the outcome of replaying the queue.
type SyncResult struct {
	Synced   int           `json:"synced"`
	Failed   int           `json:"failed"`
	Errors   []string      `json:"errors"`
	Outcomes []SyncOutcome `json:"outcomes"`
}

// SyncQueue keeps failed calendar syncs so they can be retried later.
type SyncQueue interface {
	Enqueue(event CalendarEvent, cause error) error
	Pending() ([]QueuedSync, error)
	Retry(ctx context.Context, syncer CalendarSyncer) (*SyncResult, error)
}

type fileSyncQueue struct {
	path    string
	mu      sync.Mutex
	backoff time.Duration
}

// NewSyncQueue creates a SyncQueue persisted as JSON at path. The file is
// removed when the queue empties.
func NewSyncQueue(path string) SyncQueue {
	return &fileSyncQueue{path: path, backoff: 100 * time.Millisecond}
}

func (q *fileSyncQueue) Enqueue(event CalendarEvent, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	queue, err := q.load()
	if err != nil {
		return fmt.Errorf("loading calendar queue: %w", err)
	}

	item := QueuedSync{
		ID:       uuid.New().String(),
		Event:    event,
		Attempts: 1,
		QueuedAt: time.Now().UTC(),
	}
	if cause != nil {
		item.LastError = cause.Error()
	}
	return q.save(append(queue, item))
}

func (q *fileSyncQueue) Pending() ([]QueuedSync, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	queue, err := q.load()
	if err != nil {
		return nil, fmt.Errorf("loading calendar queue: %w", err)
	}
	return queue, nil
}

// Retry replays every queued event through syncer, attempting each up to
// three times with exponential backoff. Events that still fail stay queued
// with their attempt count incremented. The result carries one outcome per
// queued event, in queue order.
func (q *fileSyncQueue) Retry(ctx context.Context, syncer CalendarSyncer) (*SyncResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	queue, err := q.load()
	if err != nil {
		return nil, fmt.Errorf("loading calendar queue: %w", err)
	}

	result := &SyncResult{}
	if len(queue) == 0 {
		return result, nil
	}

	var remaining []QueuedSync
	for _, item := range queue {
		outcome := SyncOutcome{ID: item.ID, Event: item.Event, Attempts: item.Attempts}
		if err := q.attempt(ctx, syncer, item.Event); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s (%s): %v", item.Event.Summary, item.ID, err))
			item.LastError = err.Error()
			item.Attempts++
			outcome.Attempts = item.Attempts
			outcome.Error = item.LastError
			result.Outcomes = append(result.Outcomes, outcome)
			remaining = append(remaining, item)
			continue
		}
		result.Synced++
		result.Outcomes = append(result.Outcomes, outcome)
	}

	if err := q.save(remaining); err != nil {
		return result, fmt.Errorf("saving calendar queue: %w", err)
	}
	return result, nil
}

func (q *fileSyncQueue) attempt(ctx context.Context, syncer CalendarSyncer, event CalendarEvent) error {
	const maxAttempts = 3

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(q.backoff << (i - 1)):
			}
		}
		if lastErr = syncer.Sync(ctx, event); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (q *fileSyncQueue) load() ([]QueuedSync, error) {
	data, err := os.ReadFile(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var queue []QueuedSync
	if err := json.Unmarshal(data, &queue); err != nil {
		return nil, fmt.Errorf("parsing calendar queue: %w", err)
	}
	return queue, nil
}

func (q *fileSyncQueue) save(queue []QueuedSync) error {
	if len(queue) == 0 {
		err := os.Remove(q.path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(q.path), 0o755); err != nil {
		return fmt.Errorf("creating calendar queue directory: %w", err)
	}
	data, err := json.MarshalIndent(queue, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling calendar queue: %w", err)
	}
	return os.WriteFile(q.path, data, 0o644)
}
