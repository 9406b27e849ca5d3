package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"openclaw-setup/internal/adapter/tui/theme"
)

// KeyHint is a single keybinding hint shown in the status bar.
type KeyHint struct {
	Key  string // e.g. "Enter"
	Desc string // e.g. "Next"
}

// StatusBarModel renders a bottom line with keybinding hints on the left and
// the gateway address and state on the right.
type StatusBarModel struct {
	Hints   []KeyHint
	Gateway string
	State   string
	// Extra is transient status text, e.g. "Running setup...".
	Extra string
	width int
}

// NewStatusBar creates an empty status bar.
func NewStatusBar() StatusBarModel {
	return StatusBarModel{}
}

// SetWidth updates the available width.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// View renders the status bar as a single line.
func (m StatusBarModel) View() string {
	var hints []string
	for _, h := range m.Hints {
		hints = append(hints, theme.StatusKey.Render(h.Key)+": "+h.Desc)
	}
	left := strings.Join(hints, "  "+theme.Dim.Render("|")+"  ")

	var parts []string
	if m.Gateway != "" {
		parts = append(parts, m.Gateway)
	}
	if m.State != "" {
		parts = append(parts, m.State)
	}
	right := theme.TextMuted.Render(strings.Join(parts, " "+theme.SymbolBullet+" "))
	if m.Extra != "" {
		if right != "" {
			right += "  "
		}
		right += theme.TextInfo.Render(m.Extra)
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}
