package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/valter-silva-au/smart-scheduler/internal/core"
	"github.com/valter-silva-au/smart-scheduler/pkg/models"
)

var (
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// quadrantStyle colours text with the configured colour for q.
func quadrantStyle(q models.Quadrant) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(quadrantColors().For(q)))
}

// printTaskLine writes one table row for rec. Rows whose deadline cannot
// be parsed show the raw string without a remaining time.
func printTaskLine(w io.Writer, i int, rec models.TaskRecord, now time.Time) {
	badge := quadrantStyle(rec.Quadrant).Render(fmt.Sprintf("%-3s", rec.Quadrant.Short()))
	due := rec.Deadline
	left := ""
	if d, err := core.ParseDeadline(rec.Deadline, location()); err == nil {
		due = core.ReadableDate(d)
		left = core.TimeRemaining(d, now)
	}
	fmt.Fprintf(w, "%3d. %s  P%d  %-28s %-24s %s\n", i, badge, rec.Priority, rec.Name, due, dimStyle.Render(left))
	if rec.Description != "" {
		fmt.Fprintf(w, "          %s\n", dimStyle.Render(rec.Description))
	}
}

func printTaskDetail(w io.Writer, t *core.Task, now time.Time) {
	fmt.Fprintf(w, "%s\n", quadrantStyle(t.Quadrant()).Bold(true).Render(t.Name()))
	fmt.Fprintf(w, "  Quadrant:   %s\n", t.Quadrant())
	fmt.Fprintf(w, "  Priority:   %d\n", t.Priority())
	fmt.Fprintf(w, "  Deadline:   %s (%s)\n", core.ReadableDate(t.Deadline()), core.TimeRemaining(t.Deadline(), now))
	if t.Description() != "" {
		fmt.Fprintf(w, "  Notes:      %s\n", t.Description())
	}
	if t.Promoted() {
		fmt.Fprintf(w, "  %s\n", warnStyle.Render("Promoted to urgent: the deadline is close."))
	}
}

func location() *time.Location {
	if Sched != nil {
		if loc := Sched.Policy().Location; loc != nil {
			return loc
		}
	}
	return time.Local
}

func now() time.Time {
	if Sched != nil {
		if clock := Sched.Policy().Now; clock != nil {
			return clock()
		}
	}
	return time.Now()
}
