// Package components provides reusable Bubble Tea sub-models for the setup TUI.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"openclaw-setup/internal/adapter/tui/theme"
)

// Tab is a single tab entry.
type Tab struct {
	ID    string
	Label string
	Badge int // e.g. pending device count; 0 = hidden
}

// TabBarModel is a horizontal tab bar. The parent model routes Ctrl+N and
// Ctrl+P to Next and Prev.
type TabBarModel struct {
	Tabs      []Tab
	Active    int
	width     int
	collapsed bool
}

// NewTabBar creates a tab bar with the first tab active.
func NewTabBar(tabs []Tab) TabBarModel {
	return TabBarModel{Tabs: tabs}
}

// SetWidth updates the available width. Narrow terminals show only the
// active tab.
func (m *TabBarModel) SetWidth(w int) {
	m.width = w
	m.collapsed = w < theme.MinTabWidth
}

// Next advances to the next tab, wrapping around.
func (m *TabBarModel) Next() {
	if len(m.Tabs) == 0 {
		return
	}
	m.Active = (m.Active + 1) % len(m.Tabs)
}

// Prev moves to the previous tab, wrapping around.
func (m *TabBarModel) Prev() {
	if len(m.Tabs) == 0 {
		return
	}
	m.Active = (m.Active - 1 + len(m.Tabs)) % len(m.Tabs)
}

// SetBadge sets the badge of the tab with the given ID.
func (m *TabBarModel) SetBadge(id string, n int) {
	for i := range m.Tabs {
		if m.Tabs[i].ID == id {
			m.Tabs[i].Badge = n
		}
	}
}

// ActiveID returns the ID of the active tab.
func (m TabBarModel) ActiveID() string {
	if len(m.Tabs) == 0 {
		return ""
	}
	return m.Tabs[m.Active].ID
}

// View renders the tab bar.
func (m TabBarModel) View() string {
	if len(m.Tabs) == 0 {
		return ""
	}

	if m.collapsed {
		label := theme.TabActive.Render(m.Tabs[m.Active].Label)
		counter := theme.Dim.Render(fmt.Sprintf("[%d/%d]", m.Active+1, len(m.Tabs)))
		return lipgloss.JoinHorizontal(lipgloss.Center, label, " ", counter)
	}

	var parts []string
	for i, t := range m.Tabs {
		label := t.Label
		if t.Badge > 0 {
			label += " " + theme.TextWarning.Render(fmt.Sprint(t.Badge))
		}
		if i == m.Active {
			parts = append(parts, theme.TabActive.Render(label))
		} else {
			parts = append(parts, theme.TabNormal.Render(label))
		}
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Center, parts...)

	if m.width > 0 {
		if remaining := m.width - lipgloss.Width(bar); remaining > 0 {
			bar += theme.TabNormal.UnsetPadding().Render(strings.Repeat(" ", remaining))
		}
	}
	return bar
}
