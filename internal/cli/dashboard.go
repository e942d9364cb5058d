package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/smart-scheduler/internal/core"
	"github.com/valter-silva-au/smart-scheduler/internal/mcp"
	"github.com/valter-silva-au/smart-scheduler/pkg/models"
)

// Dashboard panel indices.
const (
	panelBoard = iota
	panelMetrics
	panelAlerts
	panelCount
)

// boardOrder lists quadrants from most to least pressing.
var boardOrder = []models.Quadrant{
	models.Quadrant4,
	models.Quadrant3,
	models.Quadrant2,
	models.Quadrant1,
}

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	// Data.
	board       map[models.Quadrant][]taskSnapshot
	metricsData *metricsSnapshot
	alerts      []alertSnapshot

	// State.
	loading bool
	err     error
}

type taskSnapshot struct {
	name     string
	due      string
	left     string
	promoted bool
}

type metricsSnapshot struct {
	tasksAdded     int
	tasksCompleted int
	tasksPromoted  int
	tasksDeleted   int
	eventCount     int
}

type alertSnapshot struct {
	severity string
	message  string
	time     string
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	board   map[models.Quadrant][]taskSnapshot
	metrics *metricsSnapshot
	alerts  []alertSnapshot
	err     error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	severityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelBoard,
		loading:     true,
		board:       make(map[models.Quadrant][]taskSnapshot),
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.board = msg.board
		m.metricsData = msg.metrics
		m.alerts = msg.alerts
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" Smart Scheduler ")
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	boardPanel := m.renderBoardPanel()
	metricsPanel := m.renderMetricsPanel()
	alertsPanel := m.renderAlertsPanel()

	// Available width for panels after accounting for margins.
	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		// Board on the left, metrics and alerts stacked on the right.
		boardWidth := availableWidth*2/3 - 4
		sideWidth := availableWidth/3 - 4
		boardPanel = m.applyPanelStyle(panelBoard, boardPanel, boardWidth)
		metricsPanel = m.applyPanelStyle(panelMetrics, metricsPanel, sideWidth)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, sideWidth)
		side := lipgloss.JoinVertical(lipgloss.Left, metricsPanel, alertsPanel)
		body = lipgloss.JoinHorizontal(lipgloss.Top, boardPanel, side)
	} else {
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		boardPanel = m.applyPanelStyle(panelBoard, boardPanel, panelWidth)
		metricsPanel = m.applyPanelStyle(panelMetrics, metricsPanel, panelWidth)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, boardPanel, metricsPanel, alertsPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderBoardPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Tasks"))
	b.WriteString("\n")

	total := 0
	for _, q := range boardOrder {
		total += len(m.board[q])
	}
	if total == 0 {
		b.WriteString("  No pending tasks.")
		return b.String()
	}

	for _, q := range boardOrder {
		tasks := m.board[q]
		style := quadrantStyle(q)
		b.WriteString(style.Bold(true).Render(fmt.Sprintf("%s %s (%d)", q.Short(), quadrantCaption(q), len(tasks))))
		b.WriteString("\n")
		for _, t := range tasks {
			marker := " "
			if t.promoted {
				marker = "!"
			}
			b.WriteString(fmt.Sprintf("  %s %-24s %s  %s\n", marker, t.name, t.due, helpStyle.Render(t.left)))
		}
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("  Total: %d", total))
	return b.String()
}

func (m dashboardModel) renderMetricsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Activity (7d)"))
	b.WriteString("\n")

	if m.metricsData == nil {
		b.WriteString("  No metrics available.")
		return b.String()
	}

	md := m.metricsData
	lines := []struct {
		label string
		value int
	}{
		{"Events", md.eventCount},
		{"Added", md.tasksAdded},
		{"Completed", md.tasksCompleted},
		{"Promoted", md.tasksPromoted},
		{"Deleted", md.tasksDeleted},
	}

	for _, l := range lines {
		b.WriteString(fmt.Sprintf("  %-14s %d\n", l.label, l.value))
	}

	return b.String()
}

func (m dashboardModel) renderAlertsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Alerts"))
	b.WriteString("\n")

	if len(m.alerts) == 0 {
		b.WriteString("  No active alerts.")
		return b.String()
	}

	for _, a := range m.alerts {
		sev := styleForSeverity(a.severity).Render(fmt.Sprintf("[%s]", strings.ToUpper(a.severity)))
		b.WriteString(fmt.Sprintf("  %s %s\n", sev, a.message))
	}

	b.WriteString(fmt.Sprintf("\n  Total: %d alert(s)", len(m.alerts)))

	return b.String()
}

// quadrantCaption is the short Eisenhower action for q.
func quadrantCaption(q models.Quadrant) string {
	switch q {
	case models.Quadrant4:
		return "Do now"
	case models.Quadrant3:
		return "Schedule"
	case models.Quadrant2:
		return "Delegate"
	case models.Quadrant1:
		return "Drop"
	default:
		return ""
	}
}

func styleForSeverity(severity string) lipgloss.Style {
	switch strings.ToLower(severity) {
	case "high":
		return severityHigh
	case "medium":
		return severityMedium
	case "low":
		return severityLow
	default:
		return lipgloss.NewStyle()
	}
}

func loadData() tea.Msg {
	result := dataLoadedMsg{
		board: make(map[models.Quadrant][]taskSnapshot),
	}

	if Sched == nil {
		result.err = fmt.Errorf("scheduler not initialized")
		return result
	}

	t := now()
	tasks := Sched.Tasks()
	for _, task := range tasks {
		result.board[task.Quadrant()] = append(result.board[task.Quadrant()], taskSnapshot{
			name:     task.Name(),
			due:      core.ReadableDate(task.Deadline()),
			left:     core.TimeRemaining(task.Deadline(), t),
			promoted: task.Promoted(),
		})
	}

	if MetricsCalc != nil {
		since := time.Now().UTC().AddDate(0, 0, -7)
		metrics, err := MetricsCalc.Calculate(since)
		if err != nil {
			result.err = fmt.Errorf("loading metrics: %w", err)
			return result
		}
		result.metrics = &metricsSnapshot{
			tasksAdded:     metrics.TasksAdded,
			tasksCompleted: metrics.TasksCompleted,
			tasksPromoted:  metrics.TasksPromoted,
			tasksDeleted:   metrics.TasksDeleted,
			eventCount:     metrics.EventCount,
		}
	}

	if AlertEngine != nil {
		alerts := AlertEngine.Evaluate(mcp.PendingTasks(tasks), t)
		result.alerts = make([]alertSnapshot, 0, len(alerts))

		// Sort alerts by severity: high first, then medium, then low.
		sort.SliceStable(alerts, func(i, j int) bool {
			return severityRank(string(alerts[i].Severity)) < severityRank(string(alerts[j].Severity))
		})

		for _, a := range alerts {
			result.alerts = append(result.alerts, alertSnapshot{
				severity: string(a.Severity),
				message:  a.Message,
				time:     a.TriggeredAt.Format("2006-01-02 15:04 MST"),
			})
		}
	}

	return result
}

func severityRank(s string) int {
	switch s {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	default:
		return 3
	}
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI showing tasks by quadrant, activity and alerts",
	Long: `Launch an interactive terminal dashboard showing the pending tasks on an
Eisenhower board, recent activity and deadline alerts.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireScheduler(); err != nil {
			return err
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
