package core

import "github.com/valter-silva-au/smart-scheduler/pkg/models"

// TaskStore persists the pending collection. It is defined here so core
// does not import the storage package.
type TaskStore interface {
	// Load returns the persisted records. A missing or malformed file
	// yields an empty slice, not an error.
	Load() ([]models.TaskRecord, error)
	// Save replaces the persisted records.
	Save(records []models.TaskRecord) error
}

// ArchiveStore reads and rewrites completed archives at caller-supplied paths.
type ArchiveStore interface {
	Load(path string) ([]models.CompletedRecord, error)
	Save(path string, records []models.CompletedRecord) error
}

// CompletionJournal is a write-ahead log for the two-file completion move.
type CompletionJournal interface {
	Begin(taskName, archivePath string, record models.CompletedRecord) (string, error)
	Commit(id string) error
	// Abort closes a begin entry whose move never touched either file.
	Abort(id string) error
	// Uncommitted returns begin entries that have no matching commit.
	Uncommitted() ([]models.JournalEntry, error)
}

// EventLogger is the subset of the observability event log that core
// services need. Defining it here avoids importing the observability package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}
