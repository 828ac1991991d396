package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fanforge/fanforge-go/internal/models"
	"github.com/fanforge/fanforge-go/internal/track"
)

// StatusUpdate carries a non-terminal task observation into the monitor.
type StatusUpdate struct {
	Task models.Task
}

// ModeChange reports an ACTIVE/BACKGROUND switch from the tracker.
type ModeChange struct {
	Mode track.Mode
}

// BalanceUpdate reports a credit balance change from the ledger.
type BalanceUpdate struct {
	Balance int
}

// Completed carries the terminal COMPLETED task.
type Completed struct {
	Task models.Task
}

// Failed carries the terminal failure.
type Failed struct {
	Err error
}

// LogMessage appends a line to the log tail.
type LogMessage struct {
	Message string
}

// Model renders one tracked generation session.
type Model struct {
	taskID    models.TaskID
	action    models.ActionType
	status    models.TaskStatus
	mode      track.Mode
	balance   int
	logs      []string
	spinner   spinner.Model
	startTime time.Time
	result    *models.Task
	err       error
	width     int
	quit      bool
}

// NewModel creates a monitor for the given task.
func NewModel(taskID models.TaskID, action models.ActionType, balance int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Model{
		taskID:    taskID,
		action:    action,
		status:    models.TaskStatusPending,
		mode:      track.ModeActive,
		balance:   balance,
		logs:      []string{},
		spinner:   sp,
		startTime: time.Now(),
		width:     80,
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quit = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case StatusUpdate:
		m.status = msg.Task.Status

	case ModeChange:
		m.mode = msg.Mode

	case BalanceUpdate:
		m.balance = msg.Balance

	case Completed:
		task := msg.Task
		m.status = task.Status
		m.result = &task
		return m, tea.Quit

	case Failed:
		m.status = models.TaskStatusFailed
		m.err = msg.Err
		return m, tea.Quit

	case LogMessage:
		m.logs = append(m.logs, fmt.Sprintf("[%s] %s",
			time.Now().Format("15:04:05"), msg.Message))
		if len(m.logs) > 8 {
			m.logs = m.logs[len(m.logs)-8:]
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.quit {
		return "Shutting down...\n"
	}

	var s strings.Builder

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39")).
		MarginBottom(1)

	s.WriteString(headerStyle.Render("🎨 Fanforge Generation Monitor"))
	s.WriteString("\n\n")

	summaryStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("244"))

	summary := fmt.Sprintf("Task: %s | Action: %s | 💳 Credits: %d | Elapsed: %s",
		m.taskID, m.action, m.balance, time.Since(m.startTime).Round(time.Second))
	s.WriteString(summaryStyle.Render(summary))
	s.WriteString("\n\n")

	sectionStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1).
		Width(m.width - 2)

	var body strings.Builder
	switch {
	case m.result != nil:
		body.WriteString("✅ Generation complete\n")
		if len(m.result.Details) > 0 {
			body.WriteString(fmt.Sprintf("Result: %s\n", string(m.result.Details)))
		}
	case m.err != nil:
		errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		body.WriteString(errorStyle.Render(fmt.Sprintf("❌ Generation failed: %v", m.err)) + "\n")
	default:
		body.WriteString(fmt.Sprintf("%s %s %s\n", statusIcon(m.status), m.spinner.View(), m.status))
		if m.mode == track.ModeBackground {
			hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
			body.WriteString(hintStyle.Render("⏳ Still working, safe to leave. Press 'q' and check back later") + "\n")
		}
	}

	s.WriteString(sectionStyle.Render(body.String()))
	s.WriteString("\n\n")

	logSectionStyle := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Width(m.width - 2).
		Height(8)

	var logSection strings.Builder
	logSection.WriteString("📝 Recent Logs\n")
	for _, log := range m.logs {
		logSection.WriteString(log + "\n")
	}

	s.WriteString(logSectionStyle.Render(logSection.String()))
	s.WriteString("\n\n")

	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	s.WriteString(footerStyle.Render("Press 'q' to quit | Logs: logs/fanforge_*.log"))

	return s.String()
}

func statusIcon(status models.TaskStatus) string {
	switch status {
	case models.TaskStatusPending:
		return "⏸"
	case models.TaskStatusProcessing:
		return "🔄"
	case models.TaskStatusCompleted:
		return "✅"
	case models.TaskStatusFailed:
		return "❌"
	default:
		return "❓"
	}
}
