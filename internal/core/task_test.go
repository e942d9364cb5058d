package core

import (
	"errors"
	"testing"
	"time"

	"github.com/valter-silva-au/smart-scheduler/pkg/models"
)

func fixedPolicy(now time.Time) TaskPolicy {
	return TaskPolicy{
		Threshold: DefaultDeadlineThreshold,
		Location:  time.UTC,
		Now:       func() time.Time { return now },
	}
}

func deadlineIn(d time.Duration) string {
	return FormatDeadline(testNow.Add(d), time.UTC)
}

func TestNewTask_EssayIsPromoted(t *testing.T) {
	p := fixedPolicy(testNow)
	task, err := p.NewTask("Essay", models.Important, models.NotUrgent, deadlineIn(2*time.Hour), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if task.Urgency() != models.Urgent {
		t.Errorf("Urgency = %d, want %d", task.Urgency(), models.Urgent)
	}
	if task.Priority() != 6 {
		t.Errorf("Priority = %d, want 6", task.Priority())
	}
	if task.Quadrant() != models.Quadrant4 {
		t.Errorf("Quadrant = %q, want %q", task.Quadrant(), models.Quadrant4)
	}
	if !task.Promoted() {
		t.Error("expected Promoted() = true")
	}
}

func TestNewTask_LaundryStaysInQuadrant1(t *testing.T) {
	p := fixedPolicy(testNow)
	task, err := p.NewTask("Laundry", models.NotImportant, models.NotUrgent, deadlineIn(5*24*time.Hour), "wash and fold")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if task.Urgency() != models.NotUrgent {
		t.Errorf("Urgency = %d, want %d", task.Urgency(), models.NotUrgent)
	}
	if task.Priority() != 3 {
		t.Errorf("Priority = %d, want 3", task.Priority())
	}
	if task.Quadrant() != models.Quadrant1 {
		t.Errorf("Quadrant = %q, want %q", task.Quadrant(), models.Quadrant1)
	}
	if task.Description() != "wash and fold" {
		t.Errorf("Description = %q", task.Description())
	}
}

func TestTaskBefore(t *testing.T) {
	p := fixedPolicy(testNow)
	high := mustTask(t, p, "high", models.Important, models.Urgent, 72*time.Hour)
	low := mustTask(t, p, "low", models.NotImportant, models.NotUrgent, 72*time.Hour)
	peer := mustTask(t, p, "peer", models.NotImportant, models.NotUrgent, 24*time.Hour)

	if !high.Before(low) {
		t.Error("higher priority should sort first")
	}
	if low.Before(high) {
		t.Error("lower priority should not sort first")
	}
	if low.Before(peer) || peer.Before(low) {
		t.Error("equal priorities should not order each other")
	}
}

func TestNewTask_MalformedDeadline(t *testing.T) {
	inputs := []string{"", "tomorrow", "2025-13-40T99:00:00", "04/11/2025"}
	for _, in := range inputs {
		task, err := NewTask("bad", models.Important, models.Urgent, in, "")
		if err == nil {
			t.Errorf("NewTask(deadline=%q) expected error", in)
			continue
		}
		if !errors.Is(err, ErrInvalidDeadline) {
			t.Errorf("NewTask(deadline=%q) error = %v, want ErrInvalidDeadline", in, err)
		}
		if task != nil {
			t.Errorf("NewTask(deadline=%q) returned a partial task", in)
		}
	}
}

func TestParseDeadline_Layouts(t *testing.T) {
	want := time.Date(2025, 11, 4, 21, 0, 0, 0, time.UTC)
	inputs := []string{
		"2025-11-04T21:00:00",
		"2025-11-04T21:00",
		"2025-11-04 21:00:00",
		"2025-11-04 21:00",
		"2025-11-04T21:00:00Z",
		"2025-11-04T23:00:00+02:00",
		"  2025-11-04T21:00:00  ",
	}
	for _, in := range inputs {
		got, err := ParseDeadline(in, time.UTC)
		if err != nil {
			t.Errorf("ParseDeadline(%q) unexpected error: %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseDeadline(%q) = %v, want %v", in, got, want)
		}
	}

	dateOnly, err := ParseDeadline("2025-11-04", time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dateOnly.Equal(time.Date(2025, 11, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date-only deadline = %v", dateOnly)
	}
}

func TestParseDeadline_UsesLocation(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	got, err := ParseDeadline("2025-11-04T21:00:00", jakarta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(time.Date(2025, 11, 4, 14, 0, 0, 0, time.UTC)) {
		t.Errorf("ParseDeadline in WIB = %v", got.UTC())
	}
}

func TestFormatDeadline(t *testing.T) {
	whole := time.Date(2025, 11, 4, 21, 0, 0, 0, time.UTC)
	if got := FormatDeadline(whole, time.UTC); got != "2025-11-04T21:00:00" {
		t.Errorf("FormatDeadline = %q", got)
	}
	frac := whole.Add(1500 * time.Microsecond)
	if got := FormatDeadline(frac, time.UTC); got != "2025-11-04T21:00:00.001500" {
		t.Errorf("FormatDeadline with micros = %q", got)
	}
	offset := time.Date(2025, 11, 4, 23, 0, 0, 0, time.FixedZone("EET", 2*3600))
	if got := FormatDeadline(offset, time.UTC); got != "2025-11-04T21:00:00" {
		t.Errorf("FormatDeadline converts to location, got %q", got)
	}
}

func TestToRecord(t *testing.T) {
	p := fixedPolicy(testNow)
	task := mustTask(t, p, "Report", models.Important, models.NotUrgent, 48*time.Hour)
	rec := task.ToRecord()

	want := models.TaskRecord{
		Name:        "Report",
		Description: "",
		Importance:  models.Important,
		Urgency:     models.NotUrgent,
		Deadline:    "2025-11-06T12:00:00",
		Priority:    4,
		Quadrant:    models.Quadrant3,
	}
	if rec != want {
		t.Errorf("ToRecord() = %+v, want %+v", rec, want)
	}
}

func TestFromRecord_RecomputesWithCurrentClock(t *testing.T) {
	saved := mustTask(t, fixedPolicy(testNow), "Thesis", models.Important, models.NotUrgent, 10*time.Hour).ToRecord()
	if saved.Quadrant != models.Quadrant3 {
		t.Fatalf("precondition: saved quadrant = %q", saved.Quadrant)
	}

	later := fixedPolicy(testNow.Add(5 * time.Hour))
	reloaded, err := later.FromRecord(saved)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reloaded.Quadrant() != models.Quadrant4 {
		t.Errorf("Quadrant after reload = %q, want %q", reloaded.Quadrant(), models.Quadrant4)
	}
	if reloaded.Priority() != 6 {
		t.Errorf("Priority after reload = %d, want 6", reloaded.Priority())
	}
}

func TestFromRecord_IgnoresStoredPriorityAndQuadrant(t *testing.T) {
	rec := models.TaskRecord{
		Name:       "Groceries",
		Importance: models.NotImportant,
		Urgency:    models.Urgent,
		Deadline:   deadlineIn(72 * time.Hour),
		Priority:   99,
		Quadrant:   "bogus",
	}
	task, err := fixedPolicy(testNow).FromRecord(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Priority() != 5 || task.Quadrant() != models.Quadrant2 {
		t.Errorf("got priority %d quadrant %q, want 5 %q", task.Priority(), task.Quadrant(), models.Quadrant2)
	}
}

func TestFromRecord_DefaultsMissingLevels(t *testing.T) {
	rec := models.TaskRecord{Name: "Legacy", Deadline: deadlineIn(72 * time.Hour)}
	task, err := fixedPolicy(testNow).FromRecord(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Importance() != models.NotImportant || task.Urgency() != models.NotUrgent {
		t.Errorf("levels = (%d, %d), want (1, 1)", task.Importance(), task.Urgency())
	}
}

func TestFromRecord_BadDeadline(t *testing.T) {
	_, err := fixedPolicy(testNow).FromRecord(models.TaskRecord{Name: "x", Deadline: "soon"})
	if !errors.Is(err, ErrInvalidDeadline) {
		t.Errorf("error = %v, want ErrInvalidDeadline", err)
	}
}

func mustTask(t *testing.T, p TaskPolicy, name string, importance models.Importance, urgency models.Urgency, until time.Duration) *Task {
	t.Helper()
	task, err := p.NewTask(name, importance, urgency, FormatDeadline(p.now().Add(until), p.location()), "")
	if err != nil {
		t.Fatalf("creating task %q: %v", name, err)
	}
	return task
}
