package core

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/valter-silva-au/smart-scheduler/pkg/models"
)

// memTaskStore is an in-memory TaskStore.
type memTaskStore struct {
	records []models.TaskRecord
	saves   int
	saveErr error
}

func (m *memTaskStore) Load() ([]models.TaskRecord, error) {
	out := make([]models.TaskRecord, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *memTaskStore) Save(records []models.TaskRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.records = make([]models.TaskRecord, len(records))
	copy(m.records, records)
	return nil
}

// memArchive is an in-memory ArchiveStore keyed by path.
type memArchive struct {
	files   map[string][]models.CompletedRecord
	saveErr error
}

func newMemArchive() *memArchive {
	return &memArchive{files: make(map[string][]models.CompletedRecord)}
}

func (m *memArchive) Load(path string) ([]models.CompletedRecord, error) {
	recs := m.files[path]
	out := make([]models.CompletedRecord, len(recs))
	copy(out, recs)
	return out, nil
}

func (m *memArchive) Save(path string, records []models.CompletedRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.files[path] = append([]models.CompletedRecord(nil), records...)
	return nil
}

// memJournal is an in-memory CompletionJournal.
type memJournal struct {
	entries []models.JournalEntry
	next    int
}

func (m *memJournal) Begin(taskName, archivePath string, record models.CompletedRecord) (string, error) {
	m.next++
	id := fmt.Sprintf("tx-%d", m.next)
	rec := record
	m.entries = append(m.entries, models.JournalEntry{
		ID: id, Op: models.JournalBegin, TaskName: taskName, ArchivePath: archivePath, Record: &rec,
	})
	return id, nil
}

func (m *memJournal) Commit(id string) error {
	m.entries = append(m.entries, models.JournalEntry{ID: id, Op: models.JournalCommit})
	return nil
}

func (m *memJournal) Abort(id string) error {
	m.entries = append(m.entries, models.JournalEntry{ID: id, Op: models.JournalAbort})
	return nil
}

func (m *memJournal) Uncommitted() ([]models.JournalEntry, error) {
	closed := make(map[string]bool)
	for _, e := range m.entries {
		if e.Op != models.JournalBegin {
			closed[e.ID] = true
		}
	}
	var open []models.JournalEntry
	for _, e := range m.entries {
		if e.Op == models.JournalBegin && !closed[e.ID] {
			open = append(open, e)
		}
	}
	return open, nil
}

func (m *memJournal) count(op models.JournalOp) int {
	n := 0
	for _, e := range m.entries {
		if e.Op == op {
			n++
		}
	}
	return n
}

// memEvents records event types.
type memEvents struct {
	types []string
}

func (m *memEvents) LogEvent(eventType string, _ map[string]any) error {
	m.types = append(m.types, eventType)
	return nil
}

type schedulerFixture struct {
	store   *memTaskStore
	archive *memArchive
	journal *memJournal
	events  *memEvents
	sched   *Scheduler
}

const archivePath = "completed.json"

func newFixture(t *testing.T, records ...models.TaskRecord) *schedulerFixture {
	t.Helper()
	f := &schedulerFixture{
		store:   &memTaskStore{records: records},
		archive: newMemArchive(),
		journal: &memJournal{},
		events:  &memEvents{},
	}
	f.sched = f.open(t)
	return f
}

func (f *schedulerFixture) open(t *testing.T) *Scheduler {
	t.Helper()
	s, err := NewScheduler(f.store, SchedulerOptions{
		Policy:  fixedPolicy(testNow),
		Archive: f.archive,
		Journal: f.journal,
		Events:  f.events,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func (f *schedulerFixture) add(t *testing.T, name string, importance models.Importance, urgency models.Urgency, until time.Duration) *Task {
	t.Helper()
	task := mustTask(t, f.sched.Policy(), name, importance, urgency, until)
	if err := f.sched.AddTask(task); err != nil {
		t.Fatalf("AddTask(%q): %v", name, err)
	}
	return task
}

func recordNames(recs []models.TaskRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name
	}
	return out
}

func TestNewScheduler_NilStore(t *testing.T) {
	if _, err := NewScheduler(nil, SchedulerOptions{}); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestScheduler_AddAndList(t *testing.T) {
	f := newFixture(t)
	f.add(t, "Laundry", models.NotImportant, models.NotUrgent, 5*24*time.Hour)
	f.add(t, "Essay", models.Important, models.NotUrgent, 2*time.Hour)

	list := f.sched.ListTasks()
	if !equalNames(recordNames(list), []string{"Essay", "Laundry"}) {
		t.Fatalf("ListTasks() = %v", recordNames(list))
	}
	if list[0].Quadrant != models.Quadrant4 || list[0].Priority != 6 {
		t.Errorf("Essay = %+v, want Quadrant 4 priority 6", list[0])
	}
	if list[1].Quadrant != models.Quadrant1 || list[1].Priority != 3 {
		t.Errorf("Laundry = %+v, want Quadrant 1 priority 3", list[1])
	}

	// The store keeps insertion order.
	if !equalNames(recordNames(f.store.records), []string{"Laundry", "Essay"}) {
		t.Errorf("persisted order = %v", recordNames(f.store.records))
	}
	if f.sched.Len() != 2 || !f.sched.HasTask("Essay") || f.sched.HasTask("Nope") {
		t.Error("Len/HasTask disagree with the added tasks")
	}
	if f.sched.Peek().Name() != "Essay" {
		t.Errorf("Peek() = %q", f.sched.Peek().Name())
	}
}

func TestScheduler_ReloadKeepsContents(t *testing.T) {
	f := newFixture(t)
	f.add(t, "a", models.NotImportant, models.Urgent, 72*time.Hour)
	f.add(t, "b", models.Important, models.Urgent, 72*time.Hour)
	f.add(t, "c", models.NotImportant, models.NotUrgent, 72*time.Hour)
	before := f.sched.ListTasks()

	reopened := f.open(t)
	after := reopened.ListTasks()
	if len(after) != len(before) {
		t.Fatalf("reloaded %d tasks, want %d", len(after), len(before))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("task %d: %+v != %+v", i, after[i], before[i])
		}
	}
}

func TestScheduler_ReloadRecomputesPromotion(t *testing.T) {
	rec := models.TaskRecord{
		Name:       "Thesis",
		Importance: models.Important,
		Urgency:    models.NotUrgent,
		Deadline:   deadlineIn(3 * time.Hour),
		Priority:   4,
		Quadrant:   models.Quadrant3,
	}
	f := newFixture(t, rec)

	list := f.sched.ListTasks()
	if list[0].Quadrant != models.Quadrant4 || list[0].Urgency != models.Urgent {
		t.Errorf("reloaded task = %+v, want promoted", list[0])
	}
	if len(f.events.types) != 1 || f.events.types[0] != "task.promoted" {
		t.Errorf("events = %v, want [task.promoted]", f.events.types)
	}
}

func TestScheduler_LoadSkipsBadRecords(t *testing.T) {
	f := newFixture(t,
		models.TaskRecord{Name: "good", Importance: 1, Urgency: 1, Deadline: deadlineIn(72 * time.Hour)},
		models.TaskRecord{Name: "bad", Importance: 1, Urgency: 1, Deadline: "whenever"},
	)
	if !equalNames(recordNames(f.sched.ListTasks()), []string{"good"}) {
		t.Errorf("ListTasks() = %v", recordNames(f.sched.ListTasks()))
	}
}

func TestScheduler_AddInvalid(t *testing.T) {
	f := newFixture(t)

	if err := f.sched.AddTask(nil); !errors.Is(err, ErrInvalidTask) {
		t.Errorf("AddTask(nil) error = %v, want ErrInvalidTask", err)
	}
	unnamed := fixedPolicy(testNow).NewTaskAt("  ", models.Important, models.Urgent, testNow.Add(time.Hour), "")
	if err := f.sched.AddTask(unnamed); !errors.Is(err, ErrInvalidTask) {
		t.Errorf("AddTask(unnamed) error = %v, want ErrInvalidTask", err)
	}
	if f.sched.Len() != 0 || f.store.saves != 0 {
		t.Error("invalid tasks must not change the collection or the store")
	}
}

func TestScheduler_AddRollsBackOnSaveFailure(t *testing.T) {
	f := newFixture(t)
	f.add(t, "kept", models.NotImportant, models.NotUrgent, 72*time.Hour)
	f.store.saveErr = errors.New("disk full")

	task := mustTask(t, f.sched.Policy(), "lost", models.Important, models.Urgent, time.Hour)
	if err := f.sched.AddTask(task); err == nil {
		t.Fatal("expected error")
	}
	if f.sched.HasTask("lost") || f.sched.Len() != 1 {
		t.Errorf("collection after failed add = %v", recordNames(f.sched.ListTasks()))
	}
}

func TestScheduler_DuplicateNamesAllowed(t *testing.T) {
	f := newFixture(t)
	f.add(t, "dup", models.NotImportant, models.NotUrgent, 72*time.Hour)
	f.add(t, "dup", models.Important, models.Urgent, 72*time.Hour)
	if f.sched.Len() != 2 {
		t.Errorf("Len() = %d, want 2", f.sched.Len())
	}
}

func TestScheduler_PopTask(t *testing.T) {
	f := newFixture(t)
	f.add(t, "low", models.NotImportant, models.NotUrgent, 72*time.Hour)
	f.add(t, "high", models.Important, models.Urgent, 72*time.Hour)

	got, err := f.sched.PopTask()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name() != "high" {
		t.Errorf("PopTask() = %q, want high", got.Name())
	}
	if !equalNames(recordNames(f.store.records), []string{"low"}) {
		t.Errorf("store after pop = %v", recordNames(f.store.records))
	}
}

func TestScheduler_PopTaskEmpty(t *testing.T) {
	f := newFixture(t)
	got, err := f.sched.PopTask()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("PopTask() = %v, want nil", got)
	}
	if f.store.saves != 0 {
		t.Error("popping an empty collection must not rewrite the store")
	}
}

func TestScheduler_PopTaskRollsBack(t *testing.T) {
	f := newFixture(t)
	f.add(t, "only", models.Important, models.Urgent, 72*time.Hour)
	f.store.saveErr = errors.New("read-only")

	if _, err := f.sched.PopTask(); err == nil {
		t.Fatal("expected error")
	}
	if !f.sched.HasTask("only") {
		t.Error("task should remain after a failed pop")
	}
}

func TestScheduler_DeleteTask(t *testing.T) {
	f := newFixture(t)
	f.add(t, "dup", models.NotImportant, models.NotUrgent, 72*time.Hour)
	f.add(t, "other", models.NotImportant, models.NotUrgent, 72*time.Hour)
	f.add(t, "dup", models.Important, models.Urgent, 72*time.Hour)

	n, err := f.sched.DeleteTask("dup")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteTask removed %d, want 2", n)
	}
	if !equalNames(recordNames(f.store.records), []string{"other"}) {
		t.Errorf("store after delete = %v", recordNames(f.store.records))
	}
	if len(f.archive.files) != 0 {
		t.Error("delete must not archive")
	}

	n, err = f.sched.DeleteTask("missing")
	if err != nil || n != 0 {
		t.Errorf("DeleteTask(missing) = %d, %v, want 0, nil", n, err)
	}
}

func TestScheduler_MarkTaskCompleted(t *testing.T) {
	f := newFixture(t)
	f.add(t, "Essay", models.Important, models.NotUrgent, 2*time.Hour)
	f.add(t, "Laundry", models.NotImportant, models.NotUrgent, 72*time.Hour)

	rec, err := f.sched.MarkTaskCompleted("Essay", archivePath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.CompletedAt != "2025-11-04T12:00:00" {
		t.Errorf("CompletedAt = %q", rec.CompletedAt)
	}

	archived := f.archive.files[archivePath]
	if len(archived) != 1 || archived[0].Name != "Essay" || archived[0].Quadrant != models.Quadrant4 {
		t.Errorf("archive = %+v", archived)
	}
	if !equalNames(recordNames(f.store.records), []string{"Laundry"}) {
		t.Errorf("pending = %v", recordNames(f.store.records))
	}
	if f.journal.count(models.JournalBegin) != 1 || f.journal.count(models.JournalCommit) != 1 {
		t.Errorf("journal = %+v", f.journal.entries)
	}

	completed, err := f.sched.CompletedTasks(archivePath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(completed) != 1 {
		t.Errorf("CompletedTasks() = %d records, want 1", len(completed))
	}
}

func TestScheduler_MarkTaskCompletedAppends(t *testing.T) {
	f := newFixture(t)
	f.add(t, "one", models.NotImportant, models.NotUrgent, 72*time.Hour)
	f.add(t, "two", models.NotImportant, models.NotUrgent, 72*time.Hour)

	for _, name := range []string{"one", "two"} {
		if _, err := f.sched.MarkTaskCompleted(name, archivePath); err != nil {
			t.Fatalf("MarkTaskCompleted(%q): %v", name, err)
		}
	}
	archived := f.archive.files[archivePath]
	if len(archived) != 2 || archived[0].Name != "one" || archived[1].Name != "two" {
		t.Errorf("archive = %+v", archived)
	}
}

func TestScheduler_MarkTaskCompletedFirstInScanOrder(t *testing.T) {
	f := newFixture(t)
	f.add(t, "dup", models.NotImportant, models.NotUrgent, 72*time.Hour)
	f.add(t, "dup", models.Important, models.Urgent, 72*time.Hour)

	rec, err := f.sched.MarkTaskCompleted("dup", archivePath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Priority != 3 {
		t.Errorf("completed priority %d, want the first inserted (3)", rec.Priority)
	}
	if f.sched.Len() != 1 {
		t.Errorf("Len() = %d, want 1", f.sched.Len())
	}
}

func TestScheduler_MarkTaskCompletedUnknown(t *testing.T) {
	f := newFixture(t)
	f.add(t, "real", models.NotImportant, models.NotUrgent, 72*time.Hour)
	saves := f.store.saves

	_, err := f.sched.MarkTaskCompleted("ghost", archivePath)
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("error = %v, want ErrTaskNotFound", err)
	}
	if f.store.saves != saves {
		t.Error("pending store must not be rewritten")
	}
	if _, ok := f.archive.files[archivePath]; ok {
		t.Error("archive must not be touched")
	}
	if len(f.journal.entries) != 0 {
		t.Error("journal must not be touched")
	}
}

func TestScheduler_MarkTaskCompletedArchiveFailure(t *testing.T) {
	f := newFixture(t)
	f.add(t, "task", models.NotImportant, models.NotUrgent, 72*time.Hour)
	f.archive.saveErr = errors.New("permission denied")

	if _, err := f.sched.MarkTaskCompleted("task", archivePath); err == nil {
		t.Fatal("expected error")
	}
	if !f.sched.HasTask("task") || len(f.store.records) != 1 {
		t.Error("task must stay pending when archiving fails")
	}
	if f.journal.count(models.JournalAbort) != 1 {
		t.Errorf("journal = %+v, want an abort entry", f.journal.entries)
	}
}

func TestScheduler_RecoversInterruptedCompletion(t *testing.T) {
	pending := mustTask(t, fixedPolicy(testNow), "Essay", models.Important, models.NotUrgent, 2*time.Hour).ToRecord()
	other := mustTask(t, fixedPolicy(testNow), "Laundry", models.NotImportant, models.NotUrgent, 72*time.Hour).ToRecord()

	f := &schedulerFixture{
		store:   &memTaskStore{records: []models.TaskRecord{pending, other}},
		archive: newMemArchive(),
		journal: &memJournal{},
		events:  &memEvents{},
	}
	if _, err := f.journal.Begin("Essay", archivePath, models.CompletedRecord{TaskRecord: pending, CompletedAt: "2025-11-04T11:59:00"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := f.open(t)

	if s.HasTask("Essay") {
		t.Error("recovered task should be removed from pending")
	}
	if !equalNames(recordNames(f.store.records), []string{"Laundry"}) {
		t.Errorf("pending store = %v", recordNames(f.store.records))
	}
	archived := f.archive.files[archivePath]
	if len(archived) != 1 || archived[0].CompletedAt != "2025-11-04T11:59:00" {
		t.Errorf("archive = %+v", archived)
	}
	open, _ := f.journal.Uncommitted()
	if len(open) != 0 {
		t.Errorf("uncommitted entries left: %+v", open)
	}
}

func TestScheduler_RecoveryDoesNotDuplicateArchive(t *testing.T) {
	rec := mustTask(t, fixedPolicy(testNow), "Essay", models.Important, models.Urgent, 72*time.Hour).ToRecord()
	done := models.CompletedRecord{TaskRecord: rec, CompletedAt: "2025-11-04T11:00:00"}

	f := &schedulerFixture{
		store:   &memTaskStore{records: []models.TaskRecord{rec}},
		archive: newMemArchive(),
		journal: &memJournal{},
		events:  &memEvents{},
	}
	f.archive.files[archivePath] = []models.CompletedRecord{done}
	if _, err := f.journal.Begin("Essay", archivePath, done); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := f.open(t)

	if len(f.archive.files[archivePath]) != 1 {
		t.Errorf("archive has %d records, want 1", len(f.archive.files[archivePath]))
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestScheduler_AbortedEntriesAreNotRecovered(t *testing.T) {
	rec := mustTask(t, fixedPolicy(testNow), "Keep", models.NotImportant, models.NotUrgent, 72*time.Hour).ToRecord()
	f := &schedulerFixture{
		store:   &memTaskStore{records: []models.TaskRecord{rec}},
		archive: newMemArchive(),
		journal: &memJournal{},
		events:  &memEvents{},
	}
	id, _ := f.journal.Begin("Keep", archivePath, models.CompletedRecord{TaskRecord: rec, CompletedAt: "2025-11-04T11:00:00"})
	_ = f.journal.Abort(id)

	s := f.open(t)
	if !s.HasTask("Keep") {
		t.Error("aborted completion must leave the task pending")
	}
	if len(f.archive.files[archivePath]) != 0 {
		t.Error("aborted completion must not be archived")
	}
}

func TestScheduler_EventsLogged(t *testing.T) {
	f := newFixture(t)
	f.add(t, "Essay", models.Important, models.NotUrgent, 2*time.Hour)
	f.add(t, "a", models.NotImportant, models.NotUrgent, 72*time.Hour)
	f.add(t, "b", models.NotImportant, models.NotUrgent, 72*time.Hour)
	if _, err := f.sched.PopTask(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.sched.DeleteTask("a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.sched.MarkTaskCompleted("b", archivePath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"task.added", "task.promoted", "task.added", "task.added", "task.popped", "task.deleted", "task.completed"}
	if !equalNames(f.events.types, want) {
		t.Errorf("events = %v, want %v", f.events.types, want)
	}
}

func TestScheduler_NoArchiveConfigured(t *testing.T) {
	s, err := NewScheduler(&memTaskStore{}, SchedulerOptions{Policy: fixedPolicy(testNow)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.AddTask(mustTask(t, s.Policy(), "x", models.Important, models.Urgent, time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.MarkTaskCompleted("x", archivePath); err == nil {
		t.Error("expected error without an archive store")
	}
	if _, err := s.CompletedTasks(archivePath); err == nil {
		t.Error("expected error without an archive store")
	}
}
