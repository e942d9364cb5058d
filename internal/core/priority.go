package core

import (
	"fmt"
	"time"

	"github.com/valter-silva-au/smart-scheduler/pkg/models"
)

// DefaultDeadlineThreshold is how close a deadline must be before an
// important task is promoted to urgent.
const DefaultDeadlineThreshold = 6 * time.Hour

// PriorityState is the derived part of a task: the possibly promoted
// urgency and the priority and quadrant computed from it.
type PriorityState struct {
	Urgency  models.Urgency
	Priority int
	Quadrant models.Quadrant
	Promoted bool
}

// ComputePriorityState derives urgency, priority and quadrant for a task.
// An important, not-urgent task whose deadline is less than threshold away
// from now is promoted to urgent before priority and quadrant are computed.
func ComputePriorityState(importance models.Importance, urgency models.Urgency, deadline, now time.Time, threshold time.Duration) PriorityState {
	state := PriorityState{Urgency: urgency}
	if importance == models.Important && urgency == models.NotUrgent && deadline.Sub(now) < threshold {
		state.Urgency = models.Urgent
		state.Promoted = true
	}
	state.Priority = CalculatePriority(importance, state.Urgency)
	state.Quadrant = DetermineQuadrant(importance, state.Urgency)
	return state
}

// CalculatePriority returns urgency*2 + importance.
func CalculatePriority(importance models.Importance, urgency models.Urgency) int {
	return int(urgency)*2 + int(importance)
}

// DetermineQuadrant maps an (importance, urgency) pair to its quadrant.
// Pairs outside {1,2}x{1,2} fall through to Quadrant 4.
func DetermineQuadrant(importance models.Importance, urgency models.Urgency) models.Quadrant {
	switch {
	case importance == models.NotImportant && urgency == models.NotUrgent:
		return models.Quadrant1
	case importance == models.NotImportant && urgency == models.Urgent:
		return models.Quadrant2
	case importance == models.Important && urgency == models.NotUrgent:
		return models.Quadrant3
	default:
		return models.Quadrant4
	}
}

// IsUrgent reports whether deadline falls within threshold of now.
func IsUrgent(deadline, now time.Time, threshold time.Duration) bool {
	return deadline.Sub(now) < threshold
}

// TimeRemaining renders the time left before deadline, e.g. "3h 20m left".
func TimeRemaining(deadline, now time.Time) string {
	delta := deadline.Sub(now)
	if delta < 0 {
		return "past deadline"
	}
	hours := int(delta / time.Hour)
	minutes := int((delta % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm left", hours, minutes)
}

// ReadableDate formats t for display, e.g. "04 November 2025, 21:00".
func ReadableDate(t time.Time) string {
	return t.Format("02 January 2006, 15:04")
}
