package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/smart-scheduler/internal/mcp"
)

var alertsNotify bool

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show deadline alerts",
	Long: `Evaluate alert conditions against the pending tasks and display any triggered alerts.

Alerts fire for overdue tasks, tasks due within alerts.due_soon_hours, and a
pending list longer than alerts.max_pending. With --notify the alerts are
also posted to alerts.webhook_url.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireScheduler(); err != nil {
			return err
		}
		if AlertEngine == nil {
			return fmt.Errorf("alert engine not initialized")
		}

		alerts := AlertEngine.Evaluate(mcp.PendingTasks(Sched.Tasks()), now())
		out := cmd.OutOrStdout()

		if len(alerts) == 0 {
			fmt.Fprintln(out, "No active alerts.")
		} else {
			fmt.Fprintf(out, "%d active alert(s):\n\n", len(alerts))
			for _, alert := range alerts {
				severity := strings.ToUpper(string(alert.Severity))
				fmt.Fprintf(out, "  [%s] %s\n", severity, alert.Message)
				fmt.Fprintf(out, "         triggered at %s\n\n", alert.TriggeredAt.Format("2006-01-02 15:04 MST"))
			}
		}

		if !alertsNotify || len(alerts) == 0 {
			return nil
		}
		if Notifier == nil {
			return fmt.Errorf("notifier not configured (set alerts.webhook_url)")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := Notifier.Notify(ctx, alerts); err != nil {
			return fmt.Errorf("sending alerts: %w", err)
		}
		fmt.Fprintf(out, "Sent %d alert(s).\n", len(alerts))
		return nil
	},
}

func init() {
	alertsCmd.Flags().BoolVar(&alertsNotify, "notify", false, "Post alerts to the configured webhook")
	rootCmd.AddCommand(alertsCmd)
}
