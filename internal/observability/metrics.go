package observability

import (
	"fmt"
	"strconv"
	"time"
)

// Metrics are counts derived from the event log.
type Metrics struct {
	TasksAdded          int            `json:"tasks_added" yaml:"tasks_added"`
	TasksCompleted      int            `json:"tasks_completed" yaml:"tasks_completed"`
	TasksPopped         int            `json:"tasks_popped" yaml:"tasks_popped"`
	TasksDeleted        int            `json:"tasks_deleted" yaml:"tasks_deleted"`
	TasksPromoted       int            `json:"tasks_promoted" yaml:"tasks_promoted"`
	CalendarSynced      int            `json:"calendar_synced" yaml:"calendar_synced"`
	CalendarFailed      int            `json:"calendar_failed" yaml:"calendar_failed"`
	AddedByQuadrant     map[string]int `json:"added_by_quadrant" yaml:"added_by_quadrant"`
	CompletedByQuadrant map[string]int `json:"completed_by_quadrant" yaml:"completed_by_quadrant"`
	EventCount          int            `json:"event_count" yaml:"event_count"`
	OldestEvent         *time.Time     `json:"oldest_event,omitempty" yaml:"oldest_event,omitempty"`
	NewestEvent         *time.Time     `json:"newest_event,omitempty" yaml:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a MetricsCalculator reading from eventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate aggregates all events at or after since.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{
		AddedByQuadrant:     make(map[string]int),
		CompletedByQuadrant: make(map[string]int),
		EventCount:          len(events),
	}

	for i, event := range events {
		t := event.Time
		if i == 0 {
			m.OldestEvent = &t
		}
		m.NewestEvent = &t

		quadrant, _ := event.Data["quadrant"].(string)
		switch event.Type {
		case EventTaskAdded:
			m.TasksAdded++
			if quadrant != "" {
				m.AddedByQuadrant[quadrant]++
			}
		case EventTaskCompleted:
			m.TasksCompleted++
			if quadrant != "" {
				m.CompletedByQuadrant[quadrant]++
			}
		case EventTaskPopped:
			m.TasksPopped++
		case EventTaskDeleted:
			m.TasksDeleted++
		case EventTaskPromoted:
			m.TasksPromoted++
		case EventCalendarSynced:
			m.CalendarSynced++
		case EventCalendarFailed:
			m.CalendarFailed++
		}
	}

	return m, nil
}

// ParseSince turns a window like "7d", "24h" or "30m" into the instant
// that far before now. The count must be a whole, unsigned number.
func ParseSince(s string, now time.Time) (time.Time, error) {
	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	digits := s[:len(s)-1]
	if digits[0] < '0' || digits[0] > '9' {
		return time.Time{}, fmt.Errorf("invalid duration %q: count must be a whole number", s)
	}
	num, err := strconv.Atoi(digits)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: count must be a whole number", s)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	case 'm':
		return now.Add(-time.Duration(num) * time.Minute), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d, h or m)", string(suffix))
	}
}
