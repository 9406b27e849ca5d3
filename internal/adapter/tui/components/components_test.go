package components

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestTabBarNavigation(t *testing.T) {
	tb := NewTabBar([]Tab{{ID: "wizard", Label: "Setup"}, {ID: "dashboard", Label: "Dashboard"}})
	assert.Equal(t, "wizard", tb.ActiveID())

	tb.Next()
	assert.Equal(t, "dashboard", tb.ActiveID())
	tb.Next()
	assert.Equal(t, "wizard", tb.ActiveID())
	tb.Prev()
	assert.Equal(t, "dashboard", tb.ActiveID())

	tb.SetBadge("dashboard", 3)
	tb.SetWidth(100)
	view := tb.View()
	assert.Contains(t, view, "Setup")
	assert.Contains(t, view, "3")

	tb.SetWidth(40)
	assert.Contains(t, tb.View(), "[2/2]")
}

func TestEmptyTabBar(t *testing.T) {
	tb := NewTabBar(nil)
	tb.Next()
	assert.Empty(t, tb.ActiveID())
	assert.Empty(t, tb.View())
}

func TestStatusBar(t *testing.T) {
	sb := NewStatusBar()
	sb.Hints = []KeyHint{{Key: "Enter", Desc: "Run"}}
	sb.Gateway = "https://gw.example.com"
	sb.State = "Configured"
	sb.Extra = "Refreshing"
	sb.SetWidth(120)

	view := sb.View()
	assert.Contains(t, view, "Enter")
	assert.Contains(t, view, "https://gw.example.com")
	assert.Contains(t, view, "Refreshing")
}

func TestModalLifecycle(t *testing.T) {
	m := NewModal()
	assert.Empty(t, m.View())

	m.SetSize(100, 30)
	m.OpenOutput("openclaw.doctor", "", "all checks passed\n")
	assert.True(t, m.Visible)
	assert.Equal(t, "all checks passed\n", m.Raw)
	assert.Contains(t, m.View(), "openclaw.doctor")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.False(t, m.Visible)

	m.Open("Gateway token", "tok")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.Visible)
}

func TestCodeBlock(t *testing.T) {
	assert.Equal(t, "```json\n{}\n```\n", CodeBlock("json", "{}\n\n"))
	assert.Equal(t, "  ", RenderMarkdown("  ", 80))
	assert.NotEmpty(t, RenderMarkdown(CodeBlock("", "hello"), 80))
}
