package observability

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

var alertNow = time.Date(2025, 11, 4, 12, 0, 0, 0, time.UTC)

func pending(name string, until time.Duration) PendingTask {
	return PendingTask{Name: name, Quadrant: q4, Deadline: alertNow.Add(until)}
}

func TestAlertEngine_OverdueAndDueSoon(t *testing.T) {
	engine := NewAlertEngine(DefaultAlertThresholds())
	tasks := []PendingTask{
		pending("later", 72*time.Hour),
		pending("soon", 3*time.Hour),
		pending("late", -90*time.Minute),
	}

	alerts := engine.Evaluate(tasks, alertNow)
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %+v", alerts)
	}

	overdue := alerts[0]
	if overdue.Condition != ConditionOverdue || overdue.Severity != SeverityHigh || overdue.Task != "late" {
		t.Errorf("first alert = %+v", overdue)
	}
	if overdue.ID != "overdue-late-2" {
		t.Errorf("ID = %q", overdue.ID)
	}
	if !strings.Contains(overdue.Message, "1h30m0s past") {
		t.Errorf("message = %q", overdue.Message)
	}

	soon := alerts[1]
	if soon.Condition != ConditionDueSoon || soon.Severity != SeverityMedium || soon.Task != "soon" {
		t.Errorf("second alert = %+v", soon)
	}
	if !soon.TriggeredAt.Equal(alertNow) {
		t.Errorf("TriggeredAt = %v", soon.TriggeredAt)
	}
}

func TestAlertEngine_DuplicateNamesGetDistinctIDs(t *testing.T) {
	engine := NewAlertEngine(DefaultAlertThresholds())
	tasks := []PendingTask{
		pending("Essay", -time.Hour),
		pending("Essay", -time.Hour),
		pending("Essay", 2*time.Hour),
		pending("Essay", 2*time.Hour),
	}

	alerts := engine.Evaluate(tasks, alertNow)
	if len(alerts) != 4 {
		t.Fatalf("expected 4 alerts, got %+v", alerts)
	}
	seen := make(map[string]bool)
	for _, a := range alerts {
		if seen[a.ID] {
			t.Errorf("duplicate alert ID %q", a.ID)
		}
		seen[a.ID] = true
	}
	if alerts[0].ID != "overdue-Essay-0" || alerts[3].ID != "due-soon-Essay-3" {
		t.Errorf("unexpected IDs %q, %q", alerts[0].ID, alerts[3].ID)
	}
}

func TestAlertEngine_DueSoonBoundary(t *testing.T) {
	engine := NewAlertEngine(AlertThresholds{DueSoonHours: 24})

	if got := engine.Evaluate([]PendingTask{pending("edge", 24*time.Hour)}, alertNow); len(got) != 0 {
		t.Errorf("deadline exactly at the window should not alert, got %+v", got)
	}
	if got := engine.Evaluate([]PendingTask{pending("inside", 24*time.Hour-time.Second)}, alertNow); len(got) != 1 {
		t.Errorf("deadline inside the window should alert, got %+v", got)
	}
	if got := engine.Evaluate([]PendingTask{pending("now", 0)}, alertNow); len(got) != 1 || got[0].Condition != ConditionDueSoon {
		t.Errorf("deadline at now should be due soon, got %+v", got)
	}
}

func TestAlertEngine_DueSoonDisabled(t *testing.T) {
	engine := NewAlertEngine(AlertThresholds{DueSoonHours: 0})
	got := engine.Evaluate([]PendingTask{pending("soon", time.Hour), pending("late", -time.Hour)}, alertNow)
	if len(got) != 1 || got[0].Condition != ConditionOverdue {
		t.Errorf("expected only the overdue alert, got %+v", got)
	}
}

func TestAlertEngine_PendingTooLarge(t *testing.T) {
	engine := NewAlertEngine(AlertThresholds{DueSoonHours: 1, MaxPending: 3})

	var tasks []PendingTask
	for i := 0; i < 3; i++ {
		tasks = append(tasks, pending(fmt.Sprintf("t%d", i), 48*time.Hour))
	}
	if got := engine.Evaluate(tasks, alertNow); len(got) != 0 {
		t.Errorf("at the maximum there should be no alert, got %+v", got)
	}

	tasks = append(tasks, pending("t3", 48*time.Hour))
	got := engine.Evaluate(tasks, alertNow)
	if len(got) != 1 || got[0].Condition != ConditionPendingTooLarge || got[0].Severity != SeverityLow {
		t.Fatalf("expected a pending size alert, got %+v", got)
	}
	if got[0].Task != "" {
		t.Errorf("size alert should not name a task, got %q", got[0].Task)
	}
}

func TestAlertEngine_NoTasks(t *testing.T) {
	if got := NewAlertEngine(DefaultAlertThresholds()).Evaluate(nil, alertNow); len(got) != 0 {
		t.Errorf("expected no alerts, got %+v", got)
	}
}
