package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/smart-scheduler/internal/core"
	"github.com/valter-silva-au/smart-scheduler/pkg/models"
)

var (
	addDeadline    string
	addImportance  int
	addUrgency     int
	addDescription string
	addNoSync      bool
)

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a task",
	Long: `Add a task to the pending list.

The deadline is an ISO-8601 timestamp such as 2025-11-04T21:00 and is read
in the configured time zone when it carries no offset. Importance and
urgency are 1 (not) or 2 (yes). An important task due within the promotion
threshold is promoted to urgent.

When calendar sync is enabled an event is created at the deadline. A failed
sync is reported and queued; the task is still saved.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireScheduler(); err != nil {
			return err
		}
		if err := validateLevel("importance", addImportance); err != nil {
			return err
		}
		if err := validateLevel("urgency", addUrgency); err != nil {
			return err
		}

		name := args[0]
		out := cmd.OutOrStdout()
		if Sched.HasTask(name) {
			fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("Warning: a pending task named %q already exists.", name)))
		}

		task, err := Sched.NewTask(name, models.Importance(addImportance), models.Urgency(addUrgency), addDeadline, addDescription)
		if err != nil {
			return fmt.Errorf("creating task: %w", err)
		}
		if err := Sched.AddTask(task); err != nil {
			return err
		}

		fmt.Fprintf(out, "Added task.\n\n")
		printTaskDetail(out, task, now())

		if !addNoSync {
			if err := syncTask(context.Background(), task); err != nil {
				fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("\nCalendar sync failed: %s (queued for `smartsched calendar retry`)", err)))
			}
		}
		return nil
	},
}

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending tasks by priority",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireScheduler(); err != nil {
			return err
		}
		records := Sched.ListTasks()
		out := cmd.OutOrStdout()

		if listJSON {
			data, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting tasks as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		if len(records) == 0 {
			fmt.Fprintln(out, "No pending tasks.")
			return nil
		}
		t := now()
		for i, rec := range records {
			printTaskLine(out, i+1, rec, t)
		}
		return nil
	},
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show the highest-priority task",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireScheduler(); err != nil {
			return err
		}
		task := Sched.Peek()
		if task == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No pending tasks.")
			return nil
		}
		printTaskDetail(cmd.OutOrStdout(), task, now())
		return nil
	},
}

var popCmd = &cobra.Command{
	Use:   "pop",
	Short: "Remove and show the highest-priority task without archiving it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireScheduler(); err != nil {
			return err
		}
		task, err := Sched.PopTask()
		if err != nil {
			return err
		}
		if task == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No pending tasks.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed:\n\n")
		printTaskDetail(cmd.OutOrStdout(), task, now())
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete every pending task with the given name",
	Long:  "Delete every pending task with the given name. Deleted tasks are not archived.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireScheduler(); err != nil {
			return err
		}
		n, err := Sched.DeleteTask(args[0])
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No pending task named %q.\n", args[0])
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d task(s) named %q.\n", n, args[0])
		return nil
	},
}

var doneCmd = &cobra.Command{
	Use:   "done <name>",
	Short: "Mark a task as completed and move it to the archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireScheduler(); err != nil {
			return err
		}
		rec, err := Sched.MarkTaskCompleted(args[0], ArchivePath)
		if err != nil {
			if errors.Is(err, core.ErrTaskNotFound) {
				return fmt.Errorf("no pending task named %q", args[0])
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Completed %q at %s.\n", rec.Name, rec.CompletedAt)
		return nil
	},
}

var completedJSON bool

var completedCmd = &cobra.Command{
	Use:   "completed",
	Short: "List completed tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireScheduler(); err != nil {
			return err
		}
		records, err := Sched.CompletedTasks(ArchivePath)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if completedJSON {
			data, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting completed tasks as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		if len(records) == 0 {
			fmt.Fprintln(out, "No completed tasks.")
			return nil
		}
		for i, rec := range records {
			badge := quadrantStyle(rec.Quadrant).Render(fmt.Sprintf("%-3s", rec.Quadrant.Short()))
			fmt.Fprintf(out, "%3d. %s  %-28s completed %s\n", i+1, badge, rec.Name, rec.CompletedAt)
		}
		return nil
	},
}

func validateLevel(field string, v int) error {
	if v != 1 && v != 2 {
		return fmt.Errorf("invalid --%s %d: must be 1 or 2", field, v)
	}
	return nil
}

func init() {
	addCmd.Flags().StringVarP(&addDeadline, "deadline", "d", "", "Deadline as ISO-8601, e.g. 2025-11-04T21:00")
	addCmd.Flags().IntVarP(&addImportance, "importance", "i", 1, "Importance: 1 = not important, 2 = important")
	addCmd.Flags().IntVarP(&addUrgency, "urgency", "u", 1, "Urgency: 1 = not urgent, 2 = urgent")
	addCmd.Flags().StringVar(&addDescription, "description", "", "Optional notes")
	addCmd.Flags().BoolVar(&addNoSync, "no-sync", false, "Skip calendar sync for this task")
	_ = addCmd.MarkFlagRequired("deadline")

	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output tasks as JSON")
	completedCmd.Flags().BoolVar(&completedJSON, "json", false, "Output completed tasks as JSON")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(popCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(completedCmd)
}
