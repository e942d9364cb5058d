package cli

import (
	"github.com/valter-silva-au/smart-scheduler/internal/core"
	"github.com/valter-silva-au/smart-scheduler/internal/integration"
	"github.com/valter-silva-au/smart-scheduler/internal/observability"
	"github.com/valter-silva-au/smart-scheduler/pkg/models"
)

// Scheduler state, set during app initialization in app.go.
var (
	Sched       *core.Scheduler
	ArchivePath string
	BasePath    string
	Config      *models.GlobalConfig
	ConfigMgr   core.ConfigurationManager
)

// Calendar sync collaborators. Calendar is nil when sync is disabled.
var (
	Calendar  integration.CalendarSyncer
	SyncQueue integration.SyncQueue
)

// Observability service instances, set during app initialization in app.go.
var (
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
)

func quadrantColors() models.QuadrantColors {
	if Config == nil {
		return core.DefaultGlobalConfig().QuadrantColors
	}
	return Config.QuadrantColors
}
