// Package mcp exposes the scheduler as MCP (Model Context Protocol) tools
// so assistants can add, list and complete tasks.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/smart-scheduler/internal/core"
	"github.com/valter-silva-au/smart-scheduler/internal/observability"
	"github.com/valter-silva-au/smart-scheduler/pkg/models"
)

// TaskScheduler is the part of core.Scheduler the tools use.
type TaskScheduler interface {
	Policy() core.TaskPolicy
	NewTask(name string, importance models.Importance, urgency models.Urgency, deadline, description string) (*core.Task, error)
	AddTask(task *core.Task) error
	ListTasks() []models.TaskRecord
	Tasks() []*core.Task
	Peek() *core.Task
	PopTask() (*core.Task, error)
	DeleteTask(name string) (int, error)
	MarkTaskCompleted(name, archivePath string) (*models.CompletedRecord, error)
	CompletedTasks(archivePath string) ([]models.CompletedRecord, error)
}

// Options carries the optional collaborators of a Server.
type Options struct {
	// ArchivePath is the completed archive used by complete_task.
	ArchivePath string
	Metrics     observability.MetricsCalculator
	Alerts      observability.AlertEngine
	// OnTaskAdded runs after a task is persisted; a returned error is
	// reported as a warning and does not undo the add.
	OnTaskAdded func(ctx context.Context, task *core.Task) error
}

// Server wraps the scheduler and exposes it as MCP tools.
type Server struct {
	server *gomcp.Server
	sched  TaskScheduler
	opts   Options
}

// NewServer creates an MCP server over sched.
func NewServer(sched TaskScheduler, opts Options, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		sched: sched,
		opts:  opts,
	}
	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "smartsched", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type taskOutput struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Importance    int    `json:"importance"`
	Urgency       int    `json:"urgency"`
	Deadline      string `json:"deadline"`
	Priority      int    `json:"priority"`
	Quadrant      string `json:"quadrant"`
	TimeRemaining string `json:"time_remaining,omitempty"`
	CompletedAt   string `json:"completed_at,omitempty"`
}

type listTasksInput struct {
	Quadrant int `json:"quadrant,omitempty" jsonschema:"only list tasks in this quadrant (1-4)"`
}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type addTaskInput struct {
	Name        string `json:"name" jsonschema:"required,the task name"`
	Deadline    string `json:"deadline" jsonschema:"required,deadline as an ISO-8601 timestamp such as 2025-11-04T21:00:00"`
	Importance  int    `json:"importance,omitempty" jsonschema:"1 = not important, 2 = important (default 1)"`
	Urgency     int    `json:"urgency,omitempty" jsonschema:"1 = not urgent, 2 = urgent (default 1)"`
	Description string `json:"description,omitempty" jsonschema:"optional notes"`
}

type addTaskOutput struct {
	Task     taskOutput `json:"task"`
	Promoted bool       `json:"promoted"`
	Warning  string     `json:"warning,omitempty"`
}

type emptyInput struct{}

type nextTaskOutput struct {
	Task  *taskOutput `json:"task"`
	Empty bool        `json:"empty"`
}

type nameInput struct {
	Name string `json:"name" jsonschema:"required,the task name"`
}

type deleteTaskOutput struct {
	Removed int `json:"removed"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 24h, 30m). Defaults to 7d."`
}

type metricsOutput struct {
	TasksAdded          int            `json:"tasks_added"`
	TasksCompleted      int            `json:"tasks_completed"`
	TasksPopped         int            `json:"tasks_popped"`
	TasksDeleted        int            `json:"tasks_deleted"`
	TasksPromoted       int            `json:"tasks_promoted"`
	AddedByQuadrant     map[string]int `json:"added_by_quadrant"`
	CompletedByQuadrant map[string]int `json:"completed_by_quadrant"`
	EventCount          int            `json:"event_count"`
}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	Task        string `json:"task,omitempty"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List pending tasks by descending priority, optionally limited to one Eisenhower quadrant.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "add_task",
		Description: "Add a task. Important tasks due within the promotion threshold are promoted to urgent.",
	}, s.handleAddTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "peek_task",
		Description: "Return the highest-priority pending task without removing it.",
	}, s.handlePeekTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "pop_task",
		Description: "Remove and return the highest-priority pending task. It is not archived.",
	}, s.handlePopTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "delete_task",
		Description: "Delete every pending task with the given name without archiving it.",
	}, s.handleDeleteTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "complete_task",
		Description: "Mark the first pending task with the given name as completed and move it to the archive.",
	}, s.handleCompleteTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_completed",
		Description: "List archived completed tasks with their completion time.",
	}, s.handleListCompleted)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get counts of added, completed, popped, deleted and promoted tasks from the event log.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate deadline alerts: overdue tasks, tasks due soon, and too many pending tasks.",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleListTasks(_ context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	if input.Quadrant < 0 || input.Quadrant > 4 {
		return errorResult(fmt.Sprintf("invalid quadrant %d: must be 1-4", input.Quadrant)), listTasksOutput{}, nil
	}

	now := s.now()
	out := listTasksOutput{Tasks: []taskOutput{}}
	for _, task := range s.sched.Tasks() {
		if input.Quadrant != 0 && task.Quadrant().Number() != input.Quadrant {
			continue
		}
		out.Tasks = append(out.Tasks, taskToOutput(task, now))
	}
	out.Count = len(out.Tasks)
	return nil, out, nil
}

func (s *Server) handleAddTask(ctx context.Context, _ *gomcp.CallToolRequest, input addTaskInput) (*gomcp.CallToolResult, addTaskOutput, error) {
	if input.Name == "" {
		return errorResult("name is required"), addTaskOutput{}, nil
	}
	importance, err := level(input.Importance, "importance")
	if err != nil {
		return errorResult(err.Error()), addTaskOutput{}, nil
	}
	urgency, err := level(input.Urgency, "urgency")
	if err != nil {
		return errorResult(err.Error()), addTaskOutput{}, nil
	}

	task, err := s.sched.NewTask(input.Name, models.Importance(importance), models.Urgency(urgency), input.Deadline, input.Description)
	if err != nil {
		return errorResult(err.Error()), addTaskOutput{}, nil
	}
	if err := s.sched.AddTask(task); err != nil {
		return errorResult(err.Error()), addTaskOutput{}, nil
	}

	out := addTaskOutput{
		Task:     taskToOutput(task, s.now()),
		Promoted: task.Promoted(),
	}
	if s.opts.OnTaskAdded != nil {
		if err := s.opts.OnTaskAdded(ctx, task); err != nil {
			out.Warning = fmt.Sprintf("task saved, but calendar sync failed: %s", err)
		}
	}
	return nil, out, nil
}

func (s *Server) handlePeekTask(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, nextTaskOutput, error) {
	task := s.sched.Peek()
	if task == nil {
		return nil, nextTaskOutput{Empty: true}, nil
	}
	out := taskToOutput(task, s.now())
	return nil, nextTaskOutput{Task: &out}, nil
}

func (s *Server) handlePopTask(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, nextTaskOutput, error) {
	task, err := s.sched.PopTask()
	if err != nil {
		return errorResult(err.Error()), nextTaskOutput{}, nil
	}
	if task == nil {
		return nil, nextTaskOutput{Empty: true}, nil
	}
	out := taskToOutput(task, s.now())
	return nil, nextTaskOutput{Task: &out}, nil
}

func (s *Server) handleDeleteTask(_ context.Context, _ *gomcp.CallToolRequest, input nameInput) (*gomcp.CallToolResult, deleteTaskOutput, error) {
	if input.Name == "" {
		return errorResult("name is required"), deleteTaskOutput{}, nil
	}
	n, err := s.sched.DeleteTask(input.Name)
	if err != nil {
		return errorResult(err.Error()), deleteTaskOutput{}, nil
	}
	return nil, deleteTaskOutput{Removed: n}, nil
}

func (s *Server) handleCompleteTask(_ context.Context, _ *gomcp.CallToolRequest, input nameInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.Name == "" {
		return errorResult("name is required"), taskOutput{}, nil
	}
	rec, err := s.sched.MarkTaskCompleted(input.Name, s.opts.ArchivePath)
	if err != nil {
		if errors.Is(err, core.ErrTaskNotFound) {
			return errorResult(fmt.Sprintf("no pending task named %q", input.Name)), taskOutput{}, nil
		}
		return errorResult(err.Error()), taskOutput{}, nil
	}
	return nil, completedToOutput(*rec), nil
}

func (s *Server) handleListCompleted(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	recs, err := s.sched.CompletedTasks(s.opts.ArchivePath)
	if err != nil {
		return errorResult(err.Error()), listTasksOutput{}, nil
	}
	out := listTasksOutput{Tasks: make([]taskOutput, len(recs)), Count: len(recs)}
	for i, rec := range recs {
		out.Tasks[i] = completedToOutput(rec)
	}
	return nil, out, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.opts.Metrics == nil {
		return errorResult("metrics calculator not available"), emptyMetricsOutput(), nil
	}

	since := input.Since
	if since == "" {
		since = "7d"
	}
	sinceTime, err := observability.ParseSince(since, time.Now().UTC())
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	m, err := s.opts.Metrics.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}
	return nil, metricsOutput{
		TasksAdded:          m.TasksAdded,
		TasksCompleted:      m.TasksCompleted,
		TasksPopped:         m.TasksPopped,
		TasksDeleted:        m.TasksDeleted,
		TasksPromoted:       m.TasksPromoted,
		AddedByQuadrant:     m.AddedByQuadrant,
		CompletedByQuadrant: m.CompletedByQuadrant,
		EventCount:          m.EventCount,
	}, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.opts.Alerts == nil {
		return errorResult("alert engine not available"), getAlertsOutput{}, nil
	}

	alerts := s.opts.Alerts.Evaluate(PendingTasks(s.sched.Tasks()), s.now())
	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			Task:        a.Task,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

// --- Helpers ---

// PendingTasks converts scheduler tasks to the alert engine's view.
func PendingTasks(tasks []*core.Task) []observability.PendingTask {
	out := make([]observability.PendingTask, len(tasks))
	for i, t := range tasks {
		out[i] = observability.PendingTask{
			Name:     t.Name(),
			Quadrant: string(t.Quadrant()),
			Deadline: t.Deadline(),
		}
	}
	return out
}

func (s *Server) now() time.Time {
	if p := s.sched.Policy(); p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func level(v int, field string) (int, error) {
	switch v {
	case 0:
		return 1, nil
	case 1, 2:
		return v, nil
	default:
		return 0, fmt.Errorf("invalid %s %d: must be 1 or 2", field, v)
	}
}

func taskToOutput(t *core.Task, now time.Time) taskOutput {
	rec := t.ToRecord()
	out := recordToOutput(rec)
	out.TimeRemaining = core.TimeRemaining(t.Deadline(), now)
	return out
}

func completedToOutput(rec models.CompletedRecord) taskOutput {
	out := recordToOutput(rec.TaskRecord)
	out.CompletedAt = rec.CompletedAt
	return out
}

func recordToOutput(rec models.TaskRecord) taskOutput {
	return taskOutput{
		Name:        rec.Name,
		Description: rec.Description,
		Importance:  int(rec.Importance),
		Urgency:     int(rec.Urgency),
		Deadline:    rec.Deadline,
		Priority:    rec.Priority,
		Quadrant:    string(rec.Quadrant),
	}
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{
		AddedByQuadrant:     make(map[string]int),
		CompletedByQuadrant: make(map[string]int),
	}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
