package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const icsTimeLayout = "20060102T150405Z"

type icsCalendar struct {
	dir  string
	name string
	now  func() time.Time
}

// NewICSCalendar creates a CalendarSyncer that writes one .ics file per
// event into dir. name becomes the calendar's X-WR-CALNAME.
func NewICSCalendar(dir, name string) CalendarSyncer {
	return &icsCalendar{dir: dir, name: name, now: time.Now}
}

func (c *icsCalendar) Sync(ctx context.Context, event CalendarEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating calendar directory: %w", err)
	}

	path := filepath.Join(c.dir, EventFileName(event))
	content := BuildEventICS(event, c.name, c.now())
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing calendar event: %w", err)
	}
	return nil
}

// EventFileName returns the .ics file name for event: a slug of the
// summary plus the start time.
func EventFileName(event CalendarEvent) string {
	return fmt.Sprintf("%s-%s.ics", slugify(event.Summary), event.Start.UTC().Format("20060102T1504"))
}

// BuildEventICS renders event as a single-event iCalendar document.
func BuildEventICS(event CalendarEvent, calendarName string, now time.Time) string {
	summary := strings.TrimSpace(event.Summary)
	if summary == "" {
		summary = "Smart Scheduler task"
	}

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Smart Scheduler//Task Export//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
	}
	if calendarName != "" {
		lines = append(lines, "X-WR-CALNAME:"+escapeICSText(calendarName))
	}
	lines = append(lines,
		"BEGIN:VEVENT",
		"UID:"+uuid.New().String()+"@smart-scheduler",
		"DTSTAMP:"+now.UTC().Format(icsTimeLayout),
		"DTSTART:"+event.Start.UTC().Format(icsTimeLayout),
		"DTEND:"+event.End().UTC().Format(icsTimeLayout),
		"SUMMARY:"+escapeICSText(summary),
	)
	if desc := strings.TrimSpace(event.Description); desc != "" {
		lines = append(lines, "DESCRIPTION:"+escapeICSText(desc))
	}
	lines = append(lines, "END:VEVENT", "END:VCALENDAR", "")

	return strings.Join(lines, "\r\n")
}

func escapeICSText(s string) string {
	repl := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\r\n", "\\n",
		"\n", "\\n",
		"\r", "\\n",
	)
	return repl.Replace(s)
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "task"
	}
	return slug
}
