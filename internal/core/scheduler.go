package core

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/valter-silva-au/smart-scheduler/pkg/models"
)

// SchedulerOptions configures a Scheduler. Archive is required for
// MarkTaskCompleted; Journal and Events may be nil.
type SchedulerOptions struct {
	Policy  TaskPolicy
	Archive ArchiveStore
	Journal CompletionJournal
	Events  EventLogger
}

// Scheduler owns the pending collection, keeps it in priority order and
// rewrites the task store after every mutation.
type Scheduler struct {
	policy  TaskPolicy
	store   TaskStore
	archive ArchiveStore
	journal CompletionJournal
	events  EventLogger
	queue   taskQueue
}

// NewScheduler loads the pending collection from store, rebuilding every
// record through task construction with the current clock, and finishes
// any completion the journal shows as interrupted.
func NewScheduler(store TaskStore, opts SchedulerOptions) (*Scheduler, error) {
	if store == nil {
		return nil, fmt.Errorf("creating scheduler: task store is nil")
	}

	policy := opts.Policy
	if policy.Threshold == 0 {
		policy.Threshold = DefaultDeadlineThreshold
	}
	if policy.Location == nil {
		policy.Location = time.Local
	}
	if policy.Now == nil {
		policy.Now = time.Now
	}

	s := &Scheduler{
		policy:  policy,
		store:   store,
		archive: opts.Archive,
		journal: opts.Journal,
		events:  opts.Events,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	if err := s.recover(); err != nil {
		return nil, err
	}
	return s, nil
}

// Policy returns the task policy the scheduler builds tasks with.
func (s *Scheduler) Policy() TaskPolicy {
	return s.policy
}

// NewTask builds a task with the scheduler's policy. It does not add it.
func (s *Scheduler) NewTask(name string, importance models.Importance, urgency models.Urgency, deadline, description string) (*Task, error) {
	return s.policy.NewTask(name, importance, urgency, deadline, description)
}

// AddTask inserts task into the pending collection and persists it.
func (s *Scheduler) AddTask(task *Task) error {
	if task == nil {
		return fmt.Errorf("adding task: %w: task is nil", ErrInvalidTask)
	}
	if strings.TrimSpace(task.Name()) == "" {
		return fmt.Errorf("adding task: %w: name must not be empty", ErrInvalidTask)
	}

	s.queue.Push(task)
	if err := s.save(); err != nil {
		s.queue.RemoveAt(s.queue.Len() - 1)
		return fmt.Errorf("adding task %q: %w", task.Name(), err)
	}

	s.logEvent("task.added", taskEventData(task))
	if task.Promoted() {
		s.logEvent("task.promoted", taskEventData(task))
	}
	return nil
}

// ListTasks returns the records of all pending tasks by descending priority.
func (s *Scheduler) ListTasks() []models.TaskRecord {
	ordered := s.queue.Ordered()
	out := make([]models.TaskRecord, len(ordered))
	for i, t := range ordered {
		out[i] = t.ToRecord()
	}
	return out
}

// Tasks returns the pending tasks by descending priority.
func (s *Scheduler) Tasks() []*Task {
	return s.queue.Ordered()
}

// Len returns the number of pending tasks.
func (s *Scheduler) Len() int {
	return s.queue.Len()
}

// HasTask reports whether a pending task is named name.
func (s *Scheduler) HasTask(name string) bool {
	return s.queue.IndexOf(name) >= 0
}

// Peek returns the highest-priority task without removing it, or nil.
func (s *Scheduler) Peek() *Task {
	return s.queue.Peek()
}

// PopTask removes and returns the highest-priority task. It returns nil
// and no error when the collection is empty.
func (s *Scheduler) PopTask() (*Task, error) {
	if s.queue.Len() == 0 {
		return nil, nil
	}

	before := s.queue.Items()
	task := s.queue.PopMax()
	if err := s.save(); err != nil {
		s.queue.Replace(before)
		return nil, fmt.Errorf("popping task: %w", err)
	}

	s.logEvent("task.popped", taskEventData(task))
	return task, nil
}

// DeleteTask removes every pending task named name without archiving it
// and returns how many were removed. No match is not an error.
func (s *Scheduler) DeleteTask(name string) (int, error) {
	before := s.queue.Items()
	removed := s.queue.RemoveAll(name)
	if err := s.save(); err != nil {
		s.queue.Replace(before)
		return 0, fmt.Errorf("deleting task %q: %w", name, err)
	}

	for _, t := range removed {
		s.logEvent("task.deleted", taskEventData(t))
	}
	return len(removed), nil
}

// MarkTaskCompleted moves the first pending task named name (in scan
// order) into the archive at archivePath, stamping it with completed_at.
//
// The move is journaled: the begin entry is written first, then the
// archive, then the pending store, then the commit. An interrupted move is
// rolled forward by the next NewScheduler. A failure before the archive
// is written aborts the entry and leaves both files untouched.
func (s *Scheduler) MarkTaskCompleted(name, archivePath string) (*models.CompletedRecord, error) {
	idx := s.queue.IndexOf(name)
	if idx < 0 {
		return nil, fmt.Errorf("completing task %q: %w", name, ErrTaskNotFound)
	}
	if s.archive == nil {
		return nil, fmt.Errorf("completing task %q: no archive store configured", name)
	}

	task := s.queue.items[idx]
	record := models.CompletedRecord{
		TaskRecord:  task.ToRecord(),
		CompletedAt: FormatTimestamp(s.policy.now(), s.policy.location()),
	}

	var txID string
	if s.journal != nil {
		id, err := s.journal.Begin(name, archivePath, record)
		if err != nil {
			return nil, fmt.Errorf("completing task %q: journaling: %w", name, err)
		}
		txID = id
	}

	archived, err := s.archive.Load(archivePath)
	if err == nil {
		err = s.archive.Save(archivePath, append(archived, record))
	}
	if err != nil {
		s.abort(txID)
		return nil, fmt.Errorf("completing task %q: archiving: %w", name, err)
	}

	s.queue.RemoveAt(idx)
	if err := s.save(); err != nil {
		// The archive already holds the record; recovery removes the
		// task from the pending file on the next start.
		return nil, fmt.Errorf("completing task %q: %w", name, err)
	}

	if s.journal != nil {
		if err := s.journal.Commit(txID); err != nil {
			slog.Warn("committing completion journal entry", "task", name, "error", err)
		}
	}

	s.logEvent("task.completed", taskEventData(task))
	return &record, nil
}

// CompletedTasks returns the archive at archivePath.
func (s *Scheduler) CompletedTasks(archivePath string) ([]models.CompletedRecord, error) {
	if s.archive == nil {
		return nil, fmt.Errorf("reading completed tasks: no archive store configured")
	}
	return s.archive.Load(archivePath)
}

func (s *Scheduler) save() error {
	items := s.queue.Items()
	records := make([]models.TaskRecord, len(items))
	for i, t := range items {
		records[i] = t.ToRecord()
	}
	if err := s.store.Save(records); err != nil {
		return fmt.Errorf("saving pending tasks: %w", err)
	}
	return nil
}

func (s *Scheduler) load() error {
	records, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("loading pending tasks: %w", err)
	}

	tasks := make([]*Task, 0, len(records))
	for _, rec := range records {
		t, err := s.policy.FromRecord(rec)
		if err != nil {
			slog.Warn("skipping unreadable task record", "task", rec.Name, "error", err)
			continue
		}
		if t.Promoted() && rec.Urgency == models.NotUrgent {
			s.logEvent("task.promoted", taskEventData(t))
		}
		tasks = append(tasks, t)
	}
	s.queue.Replace(tasks)
	return nil
}

// recover rolls forward completions the journal shows as begun but not
// committed.
func (s *Scheduler) recover() error {
	if s.journal == nil || s.archive == nil {
		return nil
	}

	entries, err := s.journal.Uncommitted()
	if err != nil {
		return fmt.Errorf("reading completion journal: %w", err)
	}

	for _, entry := range entries {
		if entry.Record == nil {
			if err := s.journal.Commit(entry.ID); err != nil {
				return fmt.Errorf("recovering completion %s: %w", entry.ID, err)
			}
			continue
		}
		rec := *entry.Record

		archived, err := s.archive.Load(entry.ArchivePath)
		if err != nil {
			return fmt.Errorf("recovering completion of %q: %w", rec.Name, err)
		}
		if !containsCompleted(archived, rec) {
			if err := s.archive.Save(entry.ArchivePath, append(archived, rec)); err != nil {
				return fmt.Errorf("recovering completion of %q: archiving: %w", rec.Name, err)
			}
		}

		if idx := s.indexOfRecord(rec.TaskRecord); idx >= 0 {
			s.queue.RemoveAt(idx)
			if err := s.save(); err != nil {
				return fmt.Errorf("recovering completion of %q: %w", rec.Name, err)
			}
		}

		if err := s.journal.Commit(entry.ID); err != nil {
			return fmt.Errorf("recovering completion of %q: %w", rec.Name, err)
		}
		slog.Info("recovered interrupted completion", "task", rec.Name, "archive", entry.ArchivePath)
		s.logEvent("task.completed", map[string]any{
			"name":      rec.Name,
			"quadrant":  string(rec.Quadrant),
			"priority":  rec.Priority,
			"recovered": true,
		})
	}
	return nil
}

func (s *Scheduler) abort(txID string) {
	if s.journal == nil || txID == "" {
		return
	}
	if err := s.journal.Abort(txID); err != nil {
		slog.Warn("aborting completion journal entry", "id", txID, "error", err)
	}
}

// indexOfRecord finds the first pending task matching rec by name and
// deadline.
func (s *Scheduler) indexOfRecord(rec models.TaskRecord) int {
	for i, t := range s.queue.items {
		if t.name == rec.Name && FormatDeadline(t.deadline, t.location) == rec.Deadline {
			return i
		}
	}
	return -1
}

func containsCompleted(records []models.CompletedRecord, rec models.CompletedRecord) bool {
	for _, r := range records {
		if r.Name == rec.Name && r.CompletedAt == rec.CompletedAt {
			return true
		}
	}
	return false
}

func (s *Scheduler) logEvent(eventType string, data map[string]any) {
	if s.events == nil {
		return
	}
	if err := s.events.LogEvent(eventType, data); err != nil {
		slog.Debug("writing event", "type", eventType, "error", err)
	}
}

func taskEventData(t *Task) map[string]any {
	return map[string]any{
		"name":     t.Name(),
		"quadrant": string(t.Quadrant()),
		"priority": t.Priority(),
		"deadline": FormatDeadline(t.Deadline(), t.location),
	}
}
