package models

import "time"

// StorageConfig locates the scheduler's data files. Relative paths are
// resolved against DataDir, and DataDir against the base path.
type StorageConfig struct {
	DataDir       string `yaml:"data_dir" mapstructure:"data_dir"`
	TaskFile      string `yaml:"task_file" mapstructure:"task_file"`
	CompletedFile string `yaml:"completed_file" mapstructure:"completed_file"`
	JournalFile   string `yaml:"journal_file" mapstructure:"journal_file"`
}

// SchedulerConfig controls priority calculation.
type SchedulerConfig struct {
	DeadlineThreshold time.Duration `yaml:"deadline_threshold" mapstructure:"deadline_threshold"`
	Timezone          string        `yaml:"timezone" mapstructure:"timezone"`
}

// CalendarConfig controls the calendar-sync collaborator.
type CalendarConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	Name            string `yaml:"name" mapstructure:"name"`
	DurationMinutes int    `yaml:"duration_minutes" mapstructure:"duration_minutes"`
	ICSDir          string `yaml:"ics_dir" mapstructure:"ics_dir"`
	WebhookURL      string `yaml:"webhook_url,omitempty" mapstructure:"webhook_url"`
}

// AlertConfig holds deadline alert thresholds.
type AlertConfig struct {
	DueSoonHours int    `yaml:"due_soon_hours" mapstructure:"due_soon_hours"`
	MaxPending   int    `yaml:"max_pending" mapstructure:"max_pending"`
	WebhookURL   string `yaml:"webhook_url,omitempty" mapstructure:"webhook_url"`
}

// QuadrantColors maps each quadrant to a hex display colour.
type QuadrantColors struct {
	Q1 string `yaml:"q1" mapstructure:"q1"`
	Q2 string `yaml:"q2" mapstructure:"q2"`
	Q3 string `yaml:"q3" mapstructure:"q3"`
	Q4 string `yaml:"q4" mapstructure:"q4"`
}

// FallbackColor is used for labels that match no quadrant.
const FallbackColor = "#CCCCCC"

// For returns the colour configured for q.
func (c QuadrantColors) For(q Quadrant) string {
	var color string
	switch q {
	case Quadrant1:
		color = c.Q1
	case Quadrant2:
		color = c.Q2
	case Quadrant3:
		color = c.Q3
	case Quadrant4:
		color = c.Q4
	}
	if color == "" {
		return FallbackColor
	}
	return color
}

// GlobalConfig holds system-wide settings read from .schedconfig via Viper.
type GlobalConfig struct {
	Storage        StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Scheduler      SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`
	Calendar       CalendarConfig  `yaml:"calendar" mapstructure:"calendar"`
	Alerts         AlertConfig     `yaml:"alerts" mapstructure:"alerts"`
	QuadrantColors QuadrantColors  `yaml:"quadrant_colors" mapstructure:"quadrant_colors"`
	LogLevel       string          `yaml:"log_level" mapstructure:"log_level"`
}
