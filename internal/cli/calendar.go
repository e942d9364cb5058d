package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/smart-scheduler/internal/core"
	"github.com/valter-silva-au/smart-scheduler/internal/integration"
	"github.com/valter-silva-au/smart-scheduler/internal/observability"
)

// syncTask creates a calendar event at the task's deadline. A failed sync
// is queued for `calendar retry` and returned; the task stays saved.
func syncTask(ctx context.Context, task *core.Task) error {
	if Calendar == nil {
		return nil
	}

	minutes := 0
	if Config != nil {
		minutes = Config.Calendar.DurationMinutes
	}
	event := integration.NewCalendarEvent(task.Name(), task.Deadline(), minutes, task.Description())

	if err := Calendar.Sync(ctx, event); err != nil {
		logEvent(observability.EventCalendarFailed, "WARN", map[string]any{
			"name":  task.Name(),
			"error": err.Error(),
		})
		if SyncQueue != nil {
			if qerr := SyncQueue.Enqueue(event, err); qerr != nil {
				slog.Warn("queueing failed calendar sync", "task", task.Name(), "error", qerr)
			}
		}
		return err
	}

	logEvent(observability.EventCalendarSynced, "INFO", map[string]any{"name": task.Name()})
	return nil
}

// logEvent appends to the event log when one is configured. Write
// failures are logged and otherwise ignored.
func logEvent(eventType, level string, data map[string]any) {
	if EventLog == nil {
		return
	}
	if err := EventLog.Write(observability.Event{
		Time:    time.Now().UTC(),
		Level:   level,
		Type:    eventType,
		Message: eventType,
		Data:    data,
	}); err != nil {
		slog.Warn("writing event log", "type", eventType, "error", err)
	}
}

func logRetryOutcomes(outcomes []integration.SyncOutcome) {
	for _, o := range outcomes {
		data := map[string]any{
			"name":     o.Event.Summary,
			"attempts": o.Attempts,
			"retry":    true,
		}
		if o.Error != "" {
			data["error"] = o.Error
			logEvent(observability.EventCalendarFailed, "WARN", data)
			continue
		}
		logEvent(observability.EventCalendarSynced, "INFO", data)
	}
}

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Inspect and retry calendar syncs",
}

var calendarPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List calendar events waiting to be synced",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if SyncQueue == nil {
			return fmt.Errorf("calendar sync queue not initialized")
		}
		pending, err := SyncQueue.Pending()
		if err != nil {
			return fmt.Errorf("reading calendar sync queue: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(pending) == 0 {
			fmt.Fprintln(out, "No calendar syncs pending.")
			return nil
		}
		fmt.Fprintf(out, "%d calendar sync(s) pending:\n\n", len(pending))
		for _, p := range pending {
			fmt.Fprintf(out, "  %s  %s\n", core.ReadableDate(p.Event.Start), p.Event.Summary)
			if p.LastError != "" {
				fmt.Fprintf(out, "      last error: %s (attempts: %d)\n", p.LastError, p.Attempts)
			}
		}
		return nil
	},
}

var calendarRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Retry calendar syncs that failed earlier",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if SyncQueue == nil {
			return fmt.Errorf("calendar sync queue not initialized")
		}
		if Calendar == nil {
			return fmt.Errorf("calendar sync is disabled (set calendar.enabled in %s)", core.ConfigFileName)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		res, err := SyncQueue.Retry(ctx, Calendar)
		if res != nil {
			logRetryOutcomes(res.Outcomes)
		}
		if err != nil {
			return fmt.Errorf("retrying calendar syncs: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Synced %d, still failing %d.\n", res.Synced, res.Failed)
		for _, e := range res.Errors {
			fmt.Fprintf(out, "  %s\n", e)
		}
		return nil
	},
}

func init() {
	calendarCmd.AddCommand(calendarPendingCmd)
	calendarCmd.AddCommand(calendarRetryCmd)
	rootCmd.AddCommand(calendarCmd)
}
