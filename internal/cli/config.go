package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/smart-scheduler/internal/core"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := Config
		if cfg == nil {
			cfg = core.DefaultGlobalConfig()
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("formatting configuration: %w", err)
		}
		if ConfigMgr != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", ConfigMgr.ConfigPath())
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if ConfigMgr == nil {
			return fmt.Errorf("configuration manager not initialized")
		}
		path := ConfigMgr.ConfigPath()
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		data, err := yaml.Marshal(core.DefaultGlobalConfig())
		if err != nil {
			return fmt.Errorf("formatting configuration: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing configuration: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing configuration file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
