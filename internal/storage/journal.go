package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/smart-scheduler/pkg/models"
)

// CompletionJournal is an append-only JSONL log of completion moves. A
// move is opened with Begin and closed with Commit or Abort; entries left
// open by a crash are returned by Uncommitted.
type CompletionJournal interface {
	Begin(taskName, archivePath string, record models.CompletedRecord) (string, error)
	Commit(id string) error
	Abort(id string) error
	Uncommitted() ([]models.JournalEntry, error)
	// Compact rewrites the journal keeping only open entries.
	Compact() error
}

type fileJournal struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewCompletionJournal creates a CompletionJournal at path. The file and
// its directory are created on first write.
func NewCompletionJournal(path string) CompletionJournal {
	return &fileJournal{path: path, now: time.Now}
}

func (j *fileJournal) Begin(taskName, archivePath string, record models.CompletedRecord) (string, error) {
	rec := record
	entry := models.JournalEntry{
		ID:          uuid.New().String(),
		Op:          models.JournalBegin,
		TaskName:    taskName,
		ArchivePath: archivePath,
		Record:      &rec,
	}
	if err := j.append(entry); err != nil {
		return "", fmt.Errorf("journaling completion of %q: %w", taskName, err)
	}
	return entry.ID, nil
}

func (j *fileJournal) Commit(id string) error {
	return j.append(models.JournalEntry{ID: id, Op: models.JournalCommit})
}

func (j *fileJournal) Abort(id string) error {
	return j.append(models.JournalEntry{ID: id, Op: models.JournalAbort})
}

func (j *fileJournal) append(entry models.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry.Time = j.now().UTC().Format(time.RFC3339Nano)
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshalling journal entry: %w", err)
	}
	line = append(line, '\n')

	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return fmt.Errorf("creating journal directory: %w", err)
	}
	unlock, err := lockFile(j.path)
	if err != nil {
		return err
	}
	defer unlock()

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("writing journal entry: %w", err)
	}
	return f.Sync()
}

func (j *fileJournal) Uncommitted() ([]models.JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.readAll()
	if err != nil {
		return nil, err
	}
	return openEntries(entries), nil
}

func (j *fileJournal) Compact() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.readAll()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	open := openEntries(entries)
	if len(open) == len(entries) {
		return nil
	}

	unlock, err := lockFile(j.path)
	if err != nil {
		return err
	}
	defer unlock()

	tmp, err := os.CreateTemp(filepath.Dir(j.path), filepath.Base(j.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("compacting journal: %w", err)
	}
	tmpName := tmp.Name()
	enc := json.NewEncoder(tmp)
	for _, e := range open {
		if err := enc.Encode(e); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("compacting journal: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("compacting journal: %w", err)
	}
	if err := os.Rename(tmpName, j.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("compacting journal: %w", err)
	}
	return nil
}

// readAll returns every well-formed entry. A torn final line from a crash
// mid-append is skipped.
func (j *fileJournal) readAll() ([]models.JournalEntry, error) {
	f, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	defer f.Close()

	var entries []models.JournalEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e models.JournalEntry
		if err := json.Unmarshal(line, &e); err != nil {
			slog.Warn("skipping malformed journal line", "path", j.path, "error", err)
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}
	return entries, nil
}

func openEntries(entries []models.JournalEntry) []models.JournalEntry {
	closed := make(map[string]bool)
	for _, e := range entries {
		if e.Op == models.JournalCommit || e.Op == models.JournalAbort {
			closed[e.ID] = true
		}
	}
	var open []models.JournalEntry
	for _, e := range entries {
		if e.Op == models.JournalBegin && !closed[e.ID] {
			open = append(open, e)
		}
	}
	return open
}
