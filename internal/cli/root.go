package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

var verbose bool

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// SetLogLevel installs a text slog handler on stderr at the named level
// (debug, info, warn, error). Unknown names fall back to warn.
func SetLogLevel(level string) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(level)})))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

var rootCmd = &cobra.Command{
	Use:   "smartsched",
	Short: "Smart Scheduler - Eisenhower matrix task prioritisation",
	Long: `Smart Scheduler (smartsched) keeps a priority-ordered list of tasks.

Each task is placed in an Eisenhower quadrant from its importance and
urgency. Important tasks whose deadline is close are promoted to urgent.
Pending tasks are stored in a JSON file; completed tasks move to a
separate archive.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			SetLogLevel("debug")
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "smartsched %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func requireScheduler() error {
	if Sched == nil {
		return fmt.Errorf("scheduler not initialized")
	}
	return nil
}
