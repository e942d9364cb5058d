// Package internal provides the App struct that wires all components of the
// Smart Scheduler together and initializes the CLI layer.
package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/valter-silva-au/smart-scheduler/internal/cli"
	"github.com/valter-silva-au/smart-scheduler/internal/core"
	"github.com/valter-silva-au/smart-scheduler/internal/integration"
	"github.com/valter-silva-au/smart-scheduler/internal/observability"
	"github.com/valter-silva-au/smart-scheduler/internal/storage"
	"github.com/valter-silva-au/smart-scheduler/pkg/models"
)

// HomeEnv overrides the base path when set.
const HomeEnv = "SMARTSCHED_HOME"

const (
	eventLogFile  = ".smartsched_events.jsonl"
	syncQueueFile = ".calendar_queue.json"
)

// App holds all service dependencies for the Smart Scheduler.
type App struct {
	BasePath string
	DataDir  string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.GlobalConfig

	// Storage layer
	TaskStore   storage.TaskStore
	Archive     storage.ArchiveStore
	Journal     storage.CompletionJournal
	ArchivePath string

	// Core services
	Scheduler *core.Scheduler

	// Integration services
	Calendar  integration.CalendarSyncer
	SyncQueue integration.SyncQueue

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
}

// NewApp creates and wires all components of the Smart Scheduler.
// basePath is the directory holding .schedconfig; data files live under
// its storage.data_dir.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	globalCfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		slog.Warn("reading configuration, using defaults", "path", app.ConfigMgr.ConfigPath(), "error", err)
		globalCfg = core.DefaultGlobalConfig()
	}
	if err := app.ConfigMgr.ValidateConfig(globalCfg); err != nil {
		return nil, err
	}
	app.Config = globalCfg
	cli.SetLogLevel(globalCfg.LogLevel)

	policy, err := core.PolicyFromConfig(globalCfg)
	if err != nil {
		return nil, err
	}

	// --- Storage layer ---
	app.DataDir = resolvePath(basePath, globalCfg.Storage.DataDir)
	app.TaskStore = storage.NewTaskStore(resolvePath(app.DataDir, globalCfg.Storage.TaskFile))
	app.Archive = storage.NewArchiveStore()
	app.ArchivePath = resolvePath(app.DataDir, globalCfg.Storage.CompletedFile)
	app.Journal = storage.NewCompletionJournal(resolvePath(app.DataDir, globalCfg.Storage.JournalFile))

	// --- Observability ---
	app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(app.DataDir, eventLogFile))
	if err != nil {
		// Non-fatal: disable the event log if it can't be created.
		slog.Warn("opening event log, activity metrics disabled", "error", err)
		app.EventLog = nil
	}
	if app.EventLog != nil {
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}
	thresholds := observability.DefaultAlertThresholds()
	if globalCfg.Alerts.DueSoonHours > 0 {
		thresholds.DueSoonHours = globalCfg.Alerts.DueSoonHours
	}
	if globalCfg.Alerts.MaxPending > 0 {
		thresholds.MaxPending = globalCfg.Alerts.MaxPending
	}
	app.AlertEngine = observability.NewAlertEngine(thresholds)
	if globalCfg.Alerts.WebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(globalCfg.Alerts.WebhookURL)
	}

	// --- Core services ---
	var evtAdapter core.EventLogger
	if app.EventLog != nil {
		evtAdapter = &eventLogAdapter{log: app.EventLog}
	}
	app.Scheduler, err = core.NewScheduler(app.TaskStore, core.SchedulerOptions{
		Policy:  policy,
		Archive: app.Archive,
		Journal: app.Journal,
		Events:  evtAdapter,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing scheduler: %w", err)
	}
	if err := app.Journal.Compact(); err != nil {
		slog.Warn("compacting completion journal", "error", err)
	}

	// --- Integration services ---
	calCfg := globalCfg.Calendar
	calCfg.ICSDir = integration.ResolveICSDir(app.DataDir, calCfg.ICSDir)
	app.Calendar = integration.NewCalendarSyncer(calCfg)
	app.SyncQueue = integration.NewSyncQueue(filepath.Join(app.DataDir, syncQueueFile))

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = globalCfg
	cli.ConfigMgr = app.ConfigMgr
	cli.Sched = app.Scheduler
	cli.ArchivePath = app.ArchivePath

	cli.Calendar = app.Calendar
	cli.SyncQueue = app.SyncQueue

	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier

	return app, nil
}

// Close releases resources held by the App, such as the event log file handle.
// It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the directory holding the scheduler's
// configuration. It checks SMARTSCHED_HOME, then walks up from the current
// directory looking for .schedconfig(.yaml), then falls back to the cwd.
func ResolveBasePath() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if hasConfigFile(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	// Fall back to cwd.
	cwd, _ := os.Getwd()
	return cwd
}

func hasConfigFile(dir string) bool {
	for _, name := range []string{core.ConfigFileName + ".yaml", core.ConfigFileName + ".yml", core.ConfigFileName} {
		if fi, err := os.Stat(filepath.Join(dir, name)); err == nil && !fi.IsDir() {
			return true
		}
	}
	return false
}

// resolvePath joins p onto base unless p is absolute.
func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// --- Adapters ---

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	return a.log.Write(observability.Event{
		Time:    time.Now().UTC(),
		Level:   "INFO",
		Type:    eventType,
		Message: eventType,
		Data:    data,
	})
}
