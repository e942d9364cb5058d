package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Importance represents whether a task matters to the user's goals.
type Importance int

const (
	NotImportant Importance = 1
	Important    Importance = 2
)

// Urgency represents whether a task demands attention soon.
type Urgency int

const (
	NotUrgent Urgency = 1
	Urgent    Urgency = 2
)

// Quadrant is one of the four fixed Eisenhower matrix labels.
type Quadrant string

const (
	Quadrant1 Quadrant = "Quadrant 1 (Not Important & Not Urgent)"
	Quadrant2 Quadrant = "Quadrant 2 (Not Important but Urgent)"
	Quadrant3 Quadrant = "Quadrant 3 (Important but Not Urgent)"
	Quadrant4 Quadrant = "Quadrant 4 (Important & Urgent)"
)

// AllQuadrants lists the quadrants from lowest to highest priority class.
var AllQuadrants = []Quadrant{Quadrant1, Quadrant2, Quadrant3, Quadrant4}

// Number returns the quadrant's ordinal (1-4), or 0 for an unknown label.
func (q Quadrant) Number() int {
	for i, known := range AllQuadrants {
		if q == known {
			return i + 1
		}
	}
	return 0
}

// Short returns the compact "Q<n>" form used in tables.
func (q Quadrant) Short() string {
	if n := q.Number(); n > 0 {
		return fmt.Sprintf("Q%d", n)
	}
	return "Q?"
}

// TaskRecord is the flat, persisted representation of a task.
// Importance, urgency, priority and quadrant are informational on disk:
// loading a record recomputes them through task construction.
type TaskRecord struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Importance  Importance `json:"importance" yaml:"importance"`
	Urgency     Urgency    `json:"urgency" yaml:"urgency"`
	Deadline    string     `json:"deadline" yaml:"deadline"`
	Priority    int        `json:"priority" yaml:"priority"`
	Quadrant    Quadrant   `json:"quadrant" yaml:"quadrant"`
}

// CompletedRecord is a TaskRecord stored in the completed archive.
type CompletedRecord struct {
	TaskRecord  `yaml:",inline"`
	CompletedAt string `json:"completed_at" yaml:"completed_at"`
}

// UnmarshalJSON accepts both numbers and numeric strings.
func (i *Importance) UnmarshalJSON(data []byte) error {
	n, err := parseLevel(data)
	if err != nil {
		return fmt.Errorf("parsing importance: %w", err)
	}
	*i = Importance(n)
	return nil
}

// UnmarshalJSON accepts both numbers and numeric strings.
func (u *Urgency) UnmarshalJSON(data []byte) error {
	n, err := parseLevel(data)
	if err != nil {
		return fmt.Errorf("parsing urgency: %w", err)
	}
	*u = Urgency(n)
	return nil
}

// parseLevel decodes a JSON number, numeric string or null into an int.
// Fractional values are rejected.
func parseLevel(data []byte) (int, error) {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == "" {
		return 0, nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, err
		}
		raw = strings.TrimSpace(s)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return 0, err
		}
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("level %s is not a whole number", raw)
		}
		n = int(f)
	}
	return n, nil
}

// JournalOp identifies a completion journal entry kind.
type JournalOp string

const (
	JournalBegin  JournalOp = "complete.begin"
	JournalCommit JournalOp = "complete.commit"
	JournalAbort  JournalOp = "complete.abort"
)

// JournalEntry is one line of the completion journal.
type JournalEntry struct {
	ID          string           `json:"id"`
	Op          JournalOp        `json:"op"`
	Time        string           `json:"time"`
	TaskName    string           `json:"task_name,omitempty"`
	ArchivePath string           `json:"archive_path,omitempty"`
	Record      *CompletedRecord `json:"record,omitempty"`
}
