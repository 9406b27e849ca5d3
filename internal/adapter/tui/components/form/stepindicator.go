// Package form provides the input widgets of the setup wizard: the step
// indicator, form fields and the run progress timeline.
package form

import (
	"fmt"
	"strings"

	"openclaw-setup/internal/adapter/tui/theme"
	"openclaw-setup/internal/usecase/wizard"
)

// StepIndicatorModel displays wizard progress as a row of numbered steps
// joined by connectors, a "Step 3/5: Tailscale" header and a progress bar.
type StepIndicatorModel struct {
	Steps []wizard.StepView
	width int
}

// NewStepIndicator creates a step indicator.
func NewStepIndicator(steps []wizard.StepView) StepIndicatorModel {
	return StepIndicatorModel{Steps: steps}
}

// SetWidth sets the rendering width.
func (m *StepIndicatorModel) SetWidth(w int) {
	m.width = w
}

// SetSteps replaces the rendered step state.
func (m *StepIndicatorModel) SetSteps(steps []wizard.StepView) {
	m.Steps = steps
}

// Current returns the active step, or the zero StepView.
func (m StepIndicatorModel) Current() wizard.StepView {
	for _, s := range m.Steps {
		if s.Active {
			return s
		}
	}
	return wizard.StepView{}
}

// View renders the step indicator.
func (m StepIndicatorModel) View() string {
	if len(m.Steps) == 0 || m.width < 20 {
		return ""
	}

	var row strings.Builder
	for i, s := range m.Steps {
		label := fmt.Sprintf(" %d ", s.Number)
		switch {
		case s.Active:
			row.WriteString(theme.StepActive.Render("[" + label + "]"))
		case s.Completed:
			row.WriteString(theme.StepDone.Render(" " + theme.SymbolSuccess + " "))
		default:
			row.WriteString(theme.StepPending.Render(label))
		}
		if i == len(m.Steps)-1 {
			break
		}
		line := strings.Repeat(theme.SymbolLine, 3)
		if s.Connector {
			row.WriteString(theme.StepDone.Render(line))
		} else {
			row.WriteString(theme.StepPending.Render(line))
		}
	}

	cur := m.Current()
	header := theme.StepActive.Render(
		fmt.Sprintf("Step %d/%d: %s", cur.Number, len(m.Steps), cur.Name),
	)

	barWidth := m.width - 10
	if barWidth < 10 {
		barWidth = 10
	}
	done := 0
	for _, s := range m.Steps {
		if s.Completed {
			done++
		}
	}
	pct := float64(done) / float64(len(m.Steps))
	filled := theme.Clamp(int(pct*float64(barWidth)), 0, barWidth)
	bar := theme.TimelineFill.Render(strings.Repeat("█", filled)) +
		theme.TimelineTrack.Render(strings.Repeat("░", barWidth-filled))
	pctStr := theme.TextMuted.Render(fmt.Sprintf(" %d%%", int(pct*100)))

	return row.String() + "\n" + header + "\n" + bar + pctStr
}
