package form

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"openclaw-setup/internal/adapter/tui/theme"
	"openclaw-setup/internal/domain"
)

// TimelineModel renders the provisioning stages with a spinner on the
// active one.
type TimelineModel struct {
	Spinner spinner.Model
	status  map[domain.Stage]domain.StageStatus
}

// NewTimeline creates a timeline with every stage pending.
func NewTimeline() TimelineModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorInfo)
	return TimelineModel{Spinner: s, status: make(map[domain.Stage]domain.StageStatus)}
}

// Set records the status of one stage.
func (m *TimelineModel) Set(stage domain.Stage, status domain.StageStatus) {
	if m.status == nil {
		m.status = make(map[domain.Stage]domain.StageStatus)
	}
	m.status[stage] = status
}

// Load replaces every stage status.
func (m *TimelineModel) Load(states []domain.StageState) {
	m.status = make(map[domain.Stage]domain.StageStatus, len(states))
	for _, s := range states {
		m.status[s.Stage] = s.Status
	}
}

// Status returns the status of stage, pending when unknown.
func (m TimelineModel) Status(stage domain.Stage) domain.StageStatus {
	if s, ok := m.status[stage]; ok {
		return s
	}
	return domain.StatusPending
}

// Active reports whether any stage is running.
func (m TimelineModel) Active() bool {
	for _, s := range m.status {
		if s == domain.StatusActive {
			return true
		}
	}
	return false
}

// Update advances the spinner while a stage is active.
func (m TimelineModel) Update(msg tea.Msg) (TimelineModel, tea.Cmd) {
	if _, ok := msg.(spinner.TickMsg); !ok {
		return m, nil
	}
	var cmd tea.Cmd
	m.Spinner, cmd = m.Spinner.Update(msg)
	return m, cmd
}

// View renders one line per stage.
func (m TimelineModel) View() string {
	var b strings.Builder
	for i, stage := range domain.Stages() {
		if i > 0 {
			b.WriteByte('\n')
		}
		label := stage.Label()
		switch m.Status(stage) {
		case domain.StatusActive:
			b.WriteString(m.Spinner.View() + " " + theme.TextInfo.Render(label+theme.SymbolEllipsis))
		case domain.StatusDone:
			b.WriteString(theme.TextSuccess.Render(theme.SymbolSuccess) + " " + label)
		case domain.StatusError:
			b.WriteString(theme.TextError.Render(theme.SymbolError+" "+label))
		default:
			b.WriteString(theme.TextMuted.Render(theme.SymbolPending + " " + label))
		}
	}
	return b.String()
}
