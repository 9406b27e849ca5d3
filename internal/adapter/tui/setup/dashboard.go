package setup

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"openclaw-setup/internal/adapter/tui/components"
	"openclaw-setup/internal/adapter/tui/components/form"
	"openclaw-setup/internal/adapter/tui/theme"
	"openclaw-setup/internal/domain"
)

// Dashboard field keys. Focus slot 0 is the device list; slot i>0 is
// dashFields[i-1].
const (
	keyPairChannel = "pair.channel"
	keyPairCode    = "pair.code"
	keyConsoleCmd  = "console.command"
	keyConsoleArg  = "console.arg"
)

func buildDashFields() []form.Field {
	return []form.Field{
		form.NewChoiceField(keyPairChannel, "Pairing channel", []string{"telegram", "discord", "slack"}, "telegram"),
		form.NewTextField(keyPairCode, "Pairing code", "Code the bot sent you"),
		form.NewTextField(keyConsoleCmd, "Console command", domain.ConsoleDoctor),
		form.NewTextField(keyConsoleArg, "Argument", "optional"),
	}
}

func (m *Model) focusDash(slot int) tea.Cmd {
	n := len(m.dashFields) + 1
	m.dashFocus = (slot + n) % n
	var cmd tea.Cmd
	for i := range m.dashFields {
		if i == m.dashFocus-1 {
			cmd = m.dashFields[i].Focus()
		} else {
			m.dashFields[i].Blur()
		}
	}
	return cmd
}

func (m *Model) dashValue(key string) string {
	for _, f := range m.dashFields {
		if f.Key == key {
			return f.Value()
		}
	}
	return ""
}

func (m Model) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "tab":
		return m, m.focusDash(m.dashFocus + 1)
	case "shift+tab":
		return m, m.focusDash(m.dashFocus - 1)
	case "esc":
		m.resetArmed = false
		return m, m.focusDash(0)
	}

	if m.dashFocus > 0 {
		var cmd tea.Cmd
		i := m.dashFocus - 1
		m.dashFields[i], cmd = m.dashFields[i].Update(msg)
		return m, cmd
	}

	// Shortcuts only apply while the device list has focus so they never
	// swallow typed text.
	if key != "x" && key != "y" {
		m.resetArmed = false
	}
	switch key {
	case "up", "k":
		m.deviceIdx = theme.Clamp(m.deviceIdx-1, 0, max(len(m.frame.Devices)-1, 0))
	case "down", "j":
		m.deviceIdx = theme.Clamp(m.deviceIdx+1, 0, max(len(m.frame.Devices)-1, 0))
	case "a":
		return m.approveSelected()
	case "r":
		m.refreshing = true
		return m, refreshCmd(m.ctx, m.sess)
	case "d":
		m.setStatus("Running doctor" + theme.SymbolEllipsis)
		return m, consoleCmd(m.ctx, m.sess, domain.ConsoleDoctor, "")
	case "g":
		m.setStatus("Restarting gateway" + theme.SymbolEllipsis)
		return m, consoleCmd(m.ctx, m.sess, domain.ConsoleGatewayRestart, "")
	case "t":
		return m, tokenCmd(m.ctx, m.sess, m.opts.Copy)
	case "v":
		return m, configCmd(m.ctx, m.sess)
	case "x":
		m.resetArmed = true
		m.setStatus("Reset the gateway configuration? Press y to confirm, Esc to cancel")
	case "y":
		if m.resetArmed {
			m.resetArmed = false
			return m, resetCmd(m.ctx, m.sess)
		}
	}
	return m, nil
}

func (m Model) submitDashboard(msg form.SubmitMsg) (tea.Model, tea.Cmd) {
	switch msg.Key {
	case keyPairChannel:
		return m, m.focusDash(m.dashFocus + 1)
	case keyPairCode:
		channel := m.dashValue(keyPairChannel)
		return m, pairCmd(m.ctx, m.sess, channel, msg.Value)
	case keyConsoleCmd:
		return m, m.focusDash(m.dashFocus + 1)
	case keyConsoleArg:
		return m, consoleCmd(m.ctx, m.sess, m.dashValue(keyConsoleCmd), msg.Value)
	}
	return m, nil
}

func statCard(label, value string, width int) string {
	return theme.PanelCard.Width(width).Render(
		theme.PanelLabel.Render(label) + "\n" + theme.PanelValue.Render(value),
	)
}

func (m Model) viewDashboard() string {
	if !m.dashReady {
		return theme.TextMuted.Render("  Loading gateway status" + theme.SymbolEllipsis)
	}

	cardW := theme.Clamp((m.width-8)/4, 16, 30)
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		statCard("Gateway", m.dash.GatewayLabel(), cardW),
		statCard("Version", m.dash.VersionLabel(), cardW),
		statCard("Channels", m.dash.ChannelsLabel(), cardW),
		statCard("Tailscale", m.dash.TailscaleLabel(), cardW),
	)

	devices := m.viewDevices()
	if m.dashFocus == 0 {
		devices = theme.BorderActive.Render(devices)
	} else {
		devices = theme.BorderNormal.Render(devices)
	}

	var fields []string
	for _, f := range m.dashFields {
		fields = append(fields, f.View())
	}

	parts := []string{cards, "", devices, "", strings.Join(fields, "\n")}
	if len(m.dash.Groups) > 0 {
		parts = append(parts, "", theme.TextMuted.Render(fmt.Sprintf("%d provider groups available", len(m.dash.Groups))))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func dashboardHints(focus int) []components.KeyHint {
	if focus > 0 {
		return []components.KeyHint{
			{Key: "Enter", Desc: "Submit"},
			{Key: "Tab", Desc: "Next"},
			{Key: "Esc", Desc: "Devices"},
			{Key: "Ctrl+P", Desc: "Setup"},
		}
	}
	return []components.KeyHint{
		{Key: "a", Desc: "Approve"},
		{Key: "r", Desc: "Refresh"},
		{Key: "d", Desc: "Doctor"},
		{Key: "g", Desc: "Restart"},
		{Key: "t", Desc: "Token"},
		{Key: "v", Desc: "Config"},
		{Key: "x", Desc: "Reset"},
	}
}
