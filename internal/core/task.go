package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/valter-silva-au/smart-scheduler/pkg/models"
)

// deadlineLayouts are tried in order when parsing a deadline string.
// Layouts without a zone are interpreted in the policy's location.
var deadlineLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

const (
	deadlineFormat      = "2006-01-02T15:04:05"
	deadlineFormatMicro = "2006-01-02T15:04:05.000000"
)

// TaskPolicy carries everything task construction depends on besides the
// task's own fields: the promotion threshold, the local time zone in which
// zone-less deadlines are read, and the clock.
type TaskPolicy struct {
	Threshold time.Duration
	Location  *time.Location
	Now       func() time.Time
}

// DefaultTaskPolicy returns a policy using the 6 hour threshold, the
// process-local zone and the wall clock.
func DefaultTaskPolicy() TaskPolicy {
	return TaskPolicy{
		Threshold: DefaultDeadlineThreshold,
		Location:  time.Local,
		Now:       time.Now,
	}
}

func (p TaskPolicy) location() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

func (p TaskPolicy) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// Task is a single unit of work. It is immutable once constructed; its
// priority and quadrant are fixed at construction time.
type Task struct {
	name        string
	description string
	importance  models.Importance
	urgency     models.Urgency
	deadline    time.Time
	priority    int
	quadrant    models.Quadrant
	promoted    bool
	location    *time.Location
}

// NewTask builds a task with the default policy.
func NewTask(name string, importance models.Importance, urgency models.Urgency, deadline, description string) (*Task, error) {
	return DefaultTaskPolicy().NewTask(name, importance, urgency, deadline, description)
}

// NewTask parses deadline and computes the task's priority state against
// the policy's clock. A malformed deadline fails construction.
func (p TaskPolicy) NewTask(name string, importance models.Importance, urgency models.Urgency, deadline, description string) (*Task, error) {
	loc := p.location()
	parsed, err := ParseDeadline(deadline, loc)
	if err != nil {
		return nil, fmt.Errorf("creating task %q: %w", name, err)
	}
	return p.build(name, importance, urgency, parsed, description), nil
}

// NewTaskAt is like NewTask but takes an already parsed deadline.
func (p TaskPolicy) NewTaskAt(name string, importance models.Importance, urgency models.Urgency, deadline time.Time, description string) *Task {
	return p.build(name, importance, urgency, deadline.In(p.location()), description)
}

// FromRecord rebuilds a task from its flat record. Only name, description,
// importance, urgency and deadline are read; the priority state is
// recomputed against the policy's clock. Zero importance or urgency, as
// left by a record missing those fields, default to 1.
func (p TaskPolicy) FromRecord(rec models.TaskRecord) (*Task, error) {
	importance := rec.Importance
	if importance == 0 {
		importance = models.NotImportant
	}
	urgency := rec.Urgency
	if urgency == 0 {
		urgency = models.NotUrgent
	}
	return p.NewTask(rec.Name, importance, urgency, rec.Deadline, rec.Description)
}

func (p TaskPolicy) build(name string, importance models.Importance, urgency models.Urgency, deadline time.Time, description string) *Task {
	state := ComputePriorityState(importance, urgency, deadline, p.now(), p.Threshold)
	return &Task{
		name:        name,
		description: description,
		importance:  importance,
		urgency:     state.Urgency,
		deadline:    deadline,
		priority:    state.Priority,
		quadrant:    state.Quadrant,
		promoted:    state.Promoted,
		location:    p.location(),
	}
}

func (t *Task) Name() string                  { return t.name }
func (t *Task) Description() string           { return t.description }
func (t *Task) Importance() models.Importance { return t.importance }
func (t *Task) Urgency() models.Urgency       { return t.urgency }
func (t *Task) Deadline() time.Time           { return t.deadline }
func (t *Task) Priority() int                 { return t.priority }
func (t *Task) Quadrant() models.Quadrant     { return t.quadrant }

// Promoted reports whether construction raised the task's urgency.
func (t *Task) Promoted() bool { return t.promoted }

// Before reports whether t sorts ahead of other: higher priority first.
func (t *Task) Before(other *Task) bool {
	return t.priority > other.priority
}

// ToRecord converts the task to its flat, persisted form.
func (t *Task) ToRecord() models.TaskRecord {
	return models.TaskRecord{
		Name:        t.name,
		Description: t.description,
		Importance:  t.importance,
		Urgency:     t.urgency,
		Deadline:    FormatDeadline(t.deadline, t.location),
		Priority:    t.priority,
		Quadrant:    t.quadrant,
	}
}

// ParseDeadline parses an ISO-8601 style timestamp. Timestamps without a
// zone offset are read in loc.
func ParseDeadline(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidDeadline)
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not an ISO-8601 timestamp", ErrInvalidDeadline, s)
}

// FormatDeadline renders t as a zone-less ISO-8601 timestamp in loc.
// Microseconds are only written when present.
func FormatDeadline(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	if t.Nanosecond()/1000 != 0 {
		return t.Format(deadlineFormatMicro)
	}
	return t.Format(deadlineFormat)
}

// FormatTimestamp renders a completion timestamp the same way as deadlines.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	return FormatDeadline(t, loc)
}
