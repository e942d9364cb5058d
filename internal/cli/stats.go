package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/smart-scheduler/internal/observability"
	"github.com/valter-silva-au/smart-scheduler/pkg/models"
)

var (
	statsJSON  bool
	statsSince string
)

// statsReport is the summary printed by `stats`.
type statsReport struct {
	Pending    int                    `json:"pending"`
	Completed  int                    `json:"completed"`
	Promoted   int                    `json:"promoted"`
	ByQuadrant map[string]int         `json:"by_quadrant"`
	Activity   *observability.Metrics `json:"activity,omitempty"`
}

func buildStats(since time.Time) (*statsReport, error) {
	report := &statsReport{ByQuadrant: make(map[string]int)}
	for _, q := range models.AllQuadrants {
		report.ByQuadrant[string(q)] = 0
	}

	for _, t := range Sched.Tasks() {
		report.Pending++
		report.ByQuadrant[string(t.Quadrant())]++
		if t.Promoted() {
			report.Promoted++
		}
	}

	completed, err := Sched.CompletedTasks(ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("reading completed tasks: %w", err)
	}
	report.Completed = len(completed)

	if MetricsCalc != nil {
		m, err := MetricsCalc.Calculate(since)
		if err != nil {
			return nil, fmt.Errorf("calculating metrics: %w", err)
		}
		report.Activity = m
	}
	return report, nil
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show task counts and recent activity",
	Long: `Show pending and completed counts, pending tasks per quadrant, and
activity counts derived from the event log (tasks added, completed, popped,
deleted and promoted) within the --since window.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireScheduler(); err != nil {
			return err
		}

		sinceTime, err := observability.ParseSince(statsSince, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		report, err := buildStats(sinceTime)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if statsJSON {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting stats as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintf(out, "  %-24s %d\n", "Pending:", report.Pending)
		fmt.Fprintf(out, "  %-24s %d\n", "Completed:", report.Completed)
		fmt.Fprintf(out, "  %-24s %d\n", "Promoted (pending):", report.Promoted)

		fmt.Fprintln(out, "\n  Pending by quadrant:")
		for _, q := range models.AllQuadrants {
			label := quadrantStyle(q).Render(string(q))
			fmt.Fprintf(out, "    %s  %d\n", label, report.ByQuadrant[string(q)])
		}

		if m := report.Activity; m != nil {
			fmt.Fprintf(out, "\n  Activity (since %s)\n", sinceTime.Format("2006-01-02"))
			fmt.Fprintf(out, "    %-22s %d\n", "Events recorded:", m.EventCount)
			fmt.Fprintf(out, "    %-22s %d\n", "Tasks added:", m.TasksAdded)
			fmt.Fprintf(out, "    %-22s %d\n", "Tasks completed:", m.TasksCompleted)
			fmt.Fprintf(out, "    %-22s %d\n", "Tasks popped:", m.TasksPopped)
			fmt.Fprintf(out, "    %-22s %d\n", "Tasks deleted:", m.TasksDeleted)
			fmt.Fprintf(out, "    %-22s %d\n", "Tasks promoted:", m.TasksPromoted)
			if m.CalendarSynced+m.CalendarFailed > 0 {
				fmt.Fprintf(out, "    %-22s %d synced, %d failed\n", "Calendar:", m.CalendarSynced, m.CalendarFailed)
			}
			if m.NewestEvent != nil {
				fmt.Fprintf(out, "    %-22s %s\n", "Last event:", m.NewestEvent.Format(time.RFC3339))
			}
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output stats as JSON")
	statsCmd.Flags().StringVar(&statsSince, "since", "7d", "Time window for activity (e.g. 7d, 24h, 30m)")
	rootCmd.AddCommand(statsCmd)
}
