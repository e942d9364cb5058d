// Package integration connects the scheduler to external calendars. Events
// are exported as iCalendar files or posted to a webhook, and failed syncs
// are queued for a later retry.
package integration

import (
	"context"
	"path/filepath"
	"time"

	"github.com/valter-silva-au/smart-scheduler/pkg/models"
)

const (
	// DefaultEventDescription is used when a task has no description.
	DefaultEventDescription = "Created automatically by Smart Scheduler"
	// DefaultEventMinutes is the event length when none is configured.
	DefaultEventMinutes = 60
)

// CalendarEvent is a calendar entry created for a task, starting at the
// task's deadline.
type CalendarEvent struct {
	Summary         string    `json:"summary"`
	Description     string    `json:"description"`
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
}

// NewCalendarEvent builds an event, applying the default description and
// duration when description is empty or minutes is not positive.
func NewCalendarEvent(summary string, start time.Time, minutes int, description string) CalendarEvent {
	if description == "" {
		description = DefaultEventDescription
	}
	if minutes <= 0 {
		minutes = DefaultEventMinutes
	}
	return CalendarEvent{
		Summary:         summary,
		Description:     description,
		Start:           start,
		DurationMinutes: minutes,
	}
}

// End returns the event's end time.
func (e CalendarEvent) End() time.Time {
	return e.Start.Add(time.Duration(e.DurationMinutes) * time.Minute)
}

// CalendarSyncer pushes an event to a calendar.
type CalendarSyncer interface {
	Sync(ctx context.Context, event CalendarEvent) error
}

// NewCalendarSyncer returns the syncer described by cfg, or nil when
// calendar sync is disabled. A webhook URL selects the webhook syncer;
// otherwise events are written as .ics files under ICSDir.
func NewCalendarSyncer(cfg models.CalendarConfig) CalendarSyncer {
	if !cfg.Enabled {
		return nil
	}
	if cfg.WebhookURL != "" {
		return NewWebhookCalendar(cfg.WebhookURL, cfg.Name)
	}
	return NewICSCalendar(cfg.ICSDir, cfg.Name)
}

// ResolveICSDir makes a relative ICS directory relative to base.
func ResolveICSDir(base, dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(base, dir)
}
