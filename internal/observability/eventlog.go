package observability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event types written by the scheduler and the calendar sync.
const (
	EventTaskAdded      = "task.added"
	EventTaskPopped     = "task.popped"
	EventTaskDeleted    = "task.deleted"
	EventTaskCompleted  = "task.completed"
	EventTaskPromoted   = "task.promoted"
	EventCalendarSynced = "calendar.synced"
	EventCalendarFailed = "calendar.failed"
)

// maxEventLine bounds a single JSONL line. Event data is small; anything
// larger is treated as corrupt.
const maxEventLine = 1 << 20

// Event is one line of the scheduler activity log.
type Event struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Type    string         `json:"type"`
	Message string         `json:"msg"`
	Data    map[string]any `json:"data,omitempty"`
}

// TaskName returns the "name" entry of the event data, or "".
func (e Event) TaskName() string {
	name, _ := e.Data["name"].(string)
	return name
}

// EventFilter selects events on Read. Zero fields match everything.
type EventFilter struct {
	Since *time.Time
	Until *time.Time
	Type  string
	Level string
	// Task matches the "name" field of the event data.
	Task string
}

func (f EventFilter) match(e Event) bool {
	switch {
	case f.Since != nil && e.Time.Before(*f.Since):
		return false
	case f.Until != nil && e.Time.After(*f.Until):
		return false
	case f.Type != "" && e.Type != f.Type:
		return false
	case f.Level != "" && e.Level != f.Level:
		return false
	case f.Task != "" && e.TaskName() != f.Task:
		return false
	}
	return true
}

// EventLog appends and reads scheduler activity.
type EventLog interface {
	Write(event Event) error
	Read(filter EventFilter) ([]Event, error)
	Close() error
}

type jsonlEventLog struct {
	mu   sync.Mutex
	path string
	out  *os.File
	enc  *json.Encoder
}

// NewJSONLEventLog opens the JSONL activity log at path, creating it and
// its directory when missing. Writes append; reads rescan the file.
func NewJSONLEventLog(path string) (EventLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating event log directory: %w", err)
	}
	out, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	return &jsonlEventLog{path: path, out: out, enc: enc}, nil
}

// Write appends event as one line. A zero Time is stamped with the
// current UTC time and an empty Level defaults to INFO.
func (l *jsonlEventLog) Write(event Event) error {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	if event.Level == "" {
		event.Level = "INFO"
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enc.Encode(event); err != nil {
		return fmt.Errorf("writing %s event: %w", event.Type, err)
	}
	return nil
}

// Read returns the events matching filter in log order. Lines that do
// not decode are skipped.
func (l *jsonlEventLog) Read(filter EventFilter) ([]Event, error) {
	in, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading event log: %w", err)
	}
	defer in.Close()

	var matched []Event
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), maxEventLine)
	for sc.Scan() {
		var e Event
		if len(sc.Bytes()) == 0 || json.Unmarshal(sc.Bytes(), &e) != nil {
			continue
		}
		if filter.match(e) {
			matched = append(matched, e)
		}
	}
	if err := sc.Err(); err != nil {
		return matched, fmt.Errorf("scanning event log: %w", err)
	}
	return matched, nil
}

func (l *jsonlEventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.out.Close(); err != nil {
		return fmt.Errorf("closing event log: %w", err)
	}
	return nil
}
