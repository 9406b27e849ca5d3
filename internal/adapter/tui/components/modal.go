package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"openclaw-setup/internal/adapter/tui/theme"
)

// ModalModel is a full-screen overlay for long gateway output: doctor
// reports, console results and the raw config file.
type ModalModel struct {
	Viewport viewport.Model
	Title    string
	Visible  bool
	// Raw is the unrendered content, used for clipboard copies.
	Raw    string
	width  int
	height int
}

// NewModal creates a hidden modal.
func NewModal() ModalModel {
	return ModalModel{}
}

// Open shows content as-is.
func (m *ModalModel) Open(title, content string) {
	m.Title = title
	m.Raw = content
	m.Visible = true
	w, h := 80, 24
	if m.width > 0 {
		w, h = m.width-4, m.height-4
	}
	m.Viewport = viewport.New(w, h)
	m.Viewport.MouseWheelEnabled = true
	m.Viewport.SetContent(content)
}

// OpenOutput shows command output rendered as a markdown code block of the
// given language ("" for plain text).
func (m *ModalModel) OpenOutput(title, lang, output string) {
	width := 76
	if m.width > 8 {
		width = m.width - 8
	}
	m.Open(title, RenderMarkdown(CodeBlock(lang, output), width))
	m.Raw = output
}

// Close hides the modal.
func (m *ModalModel) Close() {
	m.Visible = false
}

// SetSize updates the modal dimensions.
func (m *ModalModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if m.Visible {
		m.Viewport.Width = w - 4
		m.Viewport.Height = h - 4
	}
}

// Update handles modal keys: Esc or q closes, j/k scroll.
func (m ModalModel) Update(msg tea.Msg) (ModalModel, tea.Cmd) {
	if !m.Visible {
		return m, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc", "q":
			m.Close()
			return m, nil
		case "j", "down":
			m.Viewport.LineDown(3)
			return m, nil
		case "k", "up":
			m.Viewport.LineUp(3)
			return m, nil
		case "g":
			m.Viewport.GotoTop()
			return m, nil
		case "G":
			m.Viewport.GotoBottom()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	return m, cmd
}

// View renders the modal overlay.
func (m ModalModel) View() string {
	if !m.Visible {
		return ""
	}

	titleBar := theme.Bold.Render("  " + m.Title)
	scrollInfo := theme.TextMuted.Render(fmt.Sprintf(" %.0f%%", m.Viewport.ScrollPercent()*100))
	footer := theme.Dim.Render("  Esc/q: close  j/k: scroll  y: copy") + "  " + scrollInfo

	inner := lipgloss.JoinVertical(lipgloss.Left, titleBar, m.Viewport.View(), footer)

	w, h := m.width, m.height
	if w == 0 {
		w, h = 84, 28
	}
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorderActive).
		Padding(0, 1).
		Width(w - 2).
		Height(h - 2).
		Render(inner)
}

// CodeBlock wraps text in a fenced markdown block.
func CodeBlock(lang, text string) string {
	text = strings.TrimRight(text, "\n")
	return "```" + lang + "\n" + text + "\n```\n"
}

// RenderMarkdown renders md for the terminal, falling back to the raw text
// when glamour cannot build a renderer.
func RenderMarkdown(md string, width int) string {
	if strings.TrimSpace(md) == "" {
		return md
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
