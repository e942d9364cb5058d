package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	schedmcp "github.com/valter-silva-au/smart-scheduler/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the smartsched MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the smartsched MCP server on stdio",
	Long: `Start the smartsched MCP server on stdio transport.

The server exposes the scheduler as MCP tools that AI assistants can call:
list_tasks, add_task, peek_task, pop_task, delete_task, complete_task,
list_completed, get_metrics, get_alerts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireScheduler(); err != nil {
			return err
		}

		srv := schedmcp.NewServer(Sched, schedmcp.Options{
			ArchivePath: ArchivePath,
			Metrics:     MetricsCalc,
			Alerts:      AlertEngine,
			OnTaskAdded: syncTask,
		}, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
