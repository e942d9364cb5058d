// Package core contains the scheduling engine: task construction and
// priority calculation, the priority-ordered scheduler, and configuration
// loading.
package core

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/valter-silva-au/smart-scheduler/pkg/models"
)

// ConfigFileName is the name of the YAML configuration file, without extension.
const ConfigFileName = ".schedconfig"

// hexColorPattern matches #RGB and #RRGGBB colours.
var hexColorPattern = regexp.MustCompile(`^#([0-9A-Fa-f]{3}|[0-9A-Fa-f]{6})$`)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ConfigurationManager defines the interface for loading and validating
// the scheduler configuration.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
	ConfigPath() string
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading the YAML configuration file.
type viperConfigManager struct {
	// basePath is the root directory where .schedconfig resides.
	basePath string
}

// NewConfigurationManager creates a new ConfigurationManager that reads
// configuration files relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultGlobalConfig returns a GlobalConfig populated with the built-in defaults.
func DefaultGlobalConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		Storage: models.StorageConfig{
			DataDir:       "data",
			TaskFile:      "task.json",
			CompletedFile: "completed.json",
			JournalFile:   ".completion_journal.jsonl",
		},
		Scheduler: models.SchedulerConfig{
			DeadlineThreshold: DefaultDeadlineThreshold,
			Timezone:          "Local",
		},
		Calendar: models.CalendarConfig{
			Enabled:         false,
			Name:            "Smart Scheduler",
			DurationMinutes: 60,
			ICSDir:          "calendar",
		},
		Alerts: models.AlertConfig{
			DueSoonHours: 24,
			MaxPending:   20,
		},
		QuadrantColors: models.QuadrantColors{
			Q1: "#A0A0A0",
			Q2: "#F5A623",
			Q3: "#4A90E2",
			Q4: "#D0021B",
		},
		LogLevel: "warn",
	}
}

// ConfigPath returns where `config init` writes the configuration file.
func (cm *viperConfigManager) ConfigPath() string {
	return filepath.Join(cm.basePath, ConfigFileName+".yaml")
}

// LoadGlobalConfig reads the .schedconfig file from the base path using Viper.
// If the file does not exist, the defaults are returned.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	cfg := DefaultGlobalConfig()

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	v.SetDefault("storage.data_dir", cfg.Storage.DataDir)
	v.SetDefault("storage.task_file", cfg.Storage.TaskFile)
	v.SetDefault("storage.completed_file", cfg.Storage.CompletedFile)
	v.SetDefault("storage.journal_file", cfg.Storage.JournalFile)
	v.SetDefault("scheduler.deadline_threshold", cfg.Scheduler.DeadlineThreshold.String())
	v.SetDefault("scheduler.timezone", cfg.Scheduler.Timezone)
	v.SetDefault("calendar.enabled", cfg.Calendar.Enabled)
	v.SetDefault("calendar.name", cfg.Calendar.Name)
	v.SetDefault("calendar.duration_minutes", cfg.Calendar.DurationMinutes)
	v.SetDefault("calendar.ics_dir", cfg.Calendar.ICSDir)
	v.SetDefault("calendar.webhook_url", cfg.Calendar.WebhookURL)
	v.SetDefault("alerts.due_soon_hours", cfg.Alerts.DueSoonHours)
	v.SetDefault("alerts.max_pending", cfg.Alerts.MaxPending)
	v.SetDefault("alerts.webhook_url", cfg.Alerts.WebhookURL)
	v.SetDefault("quadrant_colors.q1", cfg.QuadrantColors.Q1)
	v.SetDefault("quadrant_colors.q2", cfg.QuadrantColors.Q2)
	v.SetDefault("quadrant_colors.q3", cfg.QuadrantColors.Q3)
	v.SetDefault("quadrant_colors.q4", cfg.QuadrantColors.Q4)
	v.SetDefault("log_level", cfg.LogLevel)

	v.SetEnvPrefix("SMARTSCHED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
		}
	}

	cfg.Storage.DataDir = v.GetString("storage.data_dir")
	cfg.Storage.TaskFile = v.GetString("storage.task_file")
	cfg.Storage.CompletedFile = v.GetString("storage.completed_file")
	cfg.Storage.JournalFile = v.GetString("storage.journal_file")
	cfg.Scheduler.DeadlineThreshold = v.GetDuration("scheduler.deadline_threshold")
	cfg.Scheduler.Timezone = v.GetString("scheduler.timezone")
	cfg.Calendar.Enabled = v.GetBool("calendar.enabled")
	cfg.Calendar.Name = v.GetString("calendar.name")
	cfg.Calendar.DurationMinutes = v.GetInt("calendar.duration_minutes")
	cfg.Calendar.ICSDir = v.GetString("calendar.ics_dir")
	cfg.Calendar.WebhookURL = v.GetString("calendar.webhook_url")
	cfg.Alerts.DueSoonHours = v.GetInt("alerts.due_soon_hours")
	cfg.Alerts.MaxPending = v.GetInt("alerts.max_pending")
	cfg.Alerts.WebhookURL = v.GetString("alerts.webhook_url")
	cfg.QuadrantColors.Q1 = v.GetString("quadrant_colors.q1")
	cfg.QuadrantColors.Q2 = v.GetString("quadrant_colors.q2")
	cfg.QuadrantColors.Q3 = v.GetString("quadrant_colors.q3")
	cfg.QuadrantColors.Q4 = v.GetString("quadrant_colors.q4")
	cfg.LogLevel = strings.ToLower(v.GetString("log_level"))

	return cfg, nil
}

// ValidateConfig checks the configuration for invalid values and returns
// an error naming every problem found.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if cfg.Storage.TaskFile == "" {
		errs = append(errs, "storage.task_file must not be empty")
	}
	if cfg.Storage.CompletedFile == "" {
		errs = append(errs, "storage.completed_file must not be empty")
	}
	if cfg.Storage.TaskFile != "" && cfg.Storage.TaskFile == cfg.Storage.CompletedFile {
		errs = append(errs, "storage.task_file and storage.completed_file must differ")
	}
	if cfg.Scheduler.DeadlineThreshold <= 0 {
		errs = append(errs, fmt.Sprintf("scheduler.deadline_threshold must be positive, got %s", cfg.Scheduler.DeadlineThreshold))
	}
	if _, err := LoadLocation(cfg.Scheduler.Timezone); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.Calendar.DurationMinutes <= 0 {
		errs = append(errs, fmt.Sprintf("calendar.duration_minutes must be positive, got %d", cfg.Calendar.DurationMinutes))
	}
	if cfg.Alerts.DueSoonHours < 0 {
		errs = append(errs, fmt.Sprintf("alerts.due_soon_hours must not be negative, got %d", cfg.Alerts.DueSoonHours))
	}
	if cfg.Alerts.MaxPending < 0 {
		errs = append(errs, fmt.Sprintf("alerts.max_pending must not be negative, got %d", cfg.Alerts.MaxPending))
	}
	colors := []struct{ key, value string }{
		{"quadrant_colors.q1", cfg.QuadrantColors.Q1},
		{"quadrant_colors.q2", cfg.QuadrantColors.Q2},
		{"quadrant_colors.q3", cfg.QuadrantColors.Q3},
		{"quadrant_colors.q4", cfg.QuadrantColors.Q4},
	}
	for _, c := range colors {
		if !hexColorPattern.MatchString(c.value) {
			errs = append(errs, fmt.Sprintf("%s must be a hex colour like #D0021B, got %q", c.key, c.value))
		}
	}
	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, fmt.Sprintf("log_level must be one of debug, info, warn, error, got %q", cfg.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// LoadLocation resolves a configured time zone name. "Local" and the empty
// string mean the process-local zone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("scheduler.timezone %q is not a known time zone", name)
	}
	return loc, nil
}

// PolicyFromConfig builds the task policy described by cfg.
func PolicyFromConfig(cfg *models.GlobalConfig) (TaskPolicy, error) {
	policy := DefaultTaskPolicy()
	if cfg == nil {
		return policy, nil
	}
	loc, err := LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return TaskPolicy{}, err
	}
	policy.Location = loc
	if cfg.Scheduler.DeadlineThreshold > 0 {
		policy.Threshold = cfg.Scheduler.DeadlineThreshold
	}
	return policy, nil
}
