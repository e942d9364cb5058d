package storage

import (
	"fmt"

	"github.com/valter-silva-au/smart-scheduler/pkg/models"
)

// ArchiveStore reads and rewrites completed-task archives. The path is
// supplied per call so one store serves any number of archives.
type ArchiveStore interface {
	Load(path string) ([]models.CompletedRecord, error)
	Save(path string, records []models.CompletedRecord) error
}

type fileArchiveStore struct{}

// NewArchiveStore creates an ArchiveStore over JSON array files.
func NewArchiveStore() ArchiveStore {
	return fileArchiveStore{}
}

// Load returns the archive at path. A missing or corrupt archive is empty.
func (fileArchiveStore) Load(path string) ([]models.CompletedRecord, error) {
	raw, err := readRecords(path)
	if err != nil {
		return nil, fmt.Errorf("loading archive: %w", err)
	}
	return decodeRecords[models.CompletedRecord](path, raw), nil
}

func (fileArchiveStore) Save(path string, records []models.CompletedRecord) error {
	if records == nil {
		records = []models.CompletedRecord{}
	}
	if err := writeRecords(path, records); err != nil {
		return fmt.Errorf("saving archive: %w", err)
	}
	return nil
}
