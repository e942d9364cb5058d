package observability

import (
	"fmt"
	"time"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert conditions.
const (
	ConditionOverdue         = "task_overdue"
	ConditionDueSoon         = "task_due_soon"
	ConditionPendingTooLarge = "pending_too_large"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	Task        string        `json:"task,omitempty"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// PendingTask is the view of a pending task the alert engine needs.
type PendingTask struct {
	Name     string
	Quadrant string
	Deadline time.Time
}

// AlertThresholds configures when alerts fire.
type AlertThresholds struct {
	DueSoonHours int `yaml:"due_soon_hours" json:"due_soon_hours"`
	MaxPending   int `yaml:"max_pending" json:"max_pending"`
}

// DefaultAlertThresholds returns the built-in thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		DueSoonHours: 24,
		MaxPending:   20,
	}
}

// AlertEngine evaluates deadline alerts over the pending tasks.
type AlertEngine interface {
	Evaluate(tasks []PendingTask, now time.Time) []Alert
}

type alertEngine struct {
	thresholds AlertThresholds
}

// NewAlertEngine creates an AlertEngine with the given thresholds.
func NewAlertEngine(thresholds AlertThresholds) AlertEngine {
	return &alertEngine{thresholds: thresholds}
}

// Evaluate returns overdue alerts, then due-soon alerts, each in the order
// tasks were given, then the pending-size alert. Task alert IDs carry the
// task's index in tasks so duplicate names stay distinct.
func (ae *alertEngine) Evaluate(tasks []PendingTask, now time.Time) []Alert {
	var overdue, dueSoon []Alert
	window := time.Duration(ae.thresholds.DueSoonHours) * time.Hour

	for i, task := range tasks {
		left := task.Deadline.Sub(now)
		switch {
		case left < 0:
			overdue = append(overdue, Alert{
				ID:          fmt.Sprintf("overdue-%s-%d", task.Name, i),
				Condition:   ConditionOverdue,
				Severity:    SeverityHigh,
				Message:     fmt.Sprintf("task %q is %s past its deadline", task.Name, roundDuration(-left)),
				Task:        task.Name,
				TriggeredAt: now,
			})
		case window > 0 && left < window:
			dueSoon = append(dueSoon, Alert{
				ID:          fmt.Sprintf("due-soon-%s-%d", task.Name, i),
				Condition:   ConditionDueSoon,
				Severity:    SeverityMedium,
				Message:     fmt.Sprintf("task %q is due in %s", task.Name, roundDuration(left)),
				Task:        task.Name,
				TriggeredAt: now,
			})
		}
	}

	alerts := append(overdue, dueSoon...)
	if ae.thresholds.MaxPending > 0 && len(tasks) > ae.thresholds.MaxPending {
		alerts = append(alerts, Alert{
			ID:          "pending-size",
			Condition:   ConditionPendingTooLarge,
			Severity:    SeverityLow,
			Message:     fmt.Sprintf("%d pending tasks, exceeding the maximum of %d", len(tasks), ae.thresholds.MaxPending),
			TriggeredAt: now,
		})
	}
	return alerts
}

func roundDuration(d time.Duration) time.Duration {
	if d < time.Minute {
		return d.Round(time.Second)
	}
	return d.Round(time.Minute)
}
