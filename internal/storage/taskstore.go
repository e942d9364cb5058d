// Package storage persists the scheduler's pending tasks, completed
// archives and completion journal as local files.
package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/valter-silva-au/smart-scheduler/pkg/models"
)

// TaskStore persists the pending collection as a JSON array of task
// records, fully rewritten on every save.
type TaskStore interface {
	Load() ([]models.TaskRecord, error)
	Save(records []models.TaskRecord) error
	Path() string
}

type fileTaskStore struct {
	path string
}

// NewTaskStore creates a TaskStore backed by the JSON file at path.
func NewTaskStore(path string) TaskStore {
	return &fileTaskStore{path: path}
}

func (s *fileTaskStore) Path() string {
	return s.path
}

// Load returns the stored records in file order. Elements that do not
// decode as task records are skipped.
func (s *fileTaskStore) Load() ([]models.TaskRecord, error) {
	raw, err := readRecords(s.path)
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	return decodeRecords[models.TaskRecord](s.path, raw), nil
}

func (s *fileTaskStore) Save(records []models.TaskRecord) error {
	if records == nil {
		records = []models.TaskRecord{}
	}
	if err := writeRecords(s.path, records); err != nil {
		return fmt.Errorf("saving tasks: %w", err)
	}
	return nil
}

func decodeRecords[T any](path string, raw []json.RawMessage) []T {
	out := make([]T, 0, len(raw))
	for i, r := range raw {
		var rec T
		if err := json.Unmarshal(r, &rec); err != nil {
			slog.Warn("skipping malformed record", "path", path, "index", i, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out
}
