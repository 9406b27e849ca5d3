package setup

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"openclaw-setup/internal/adapter/tui/components"
	"openclaw-setup/internal/adapter/tui/components/form"
	"openclaw-setup/internal/adapter/tui/theme"
	"openclaw-setup/internal/domain"
	"openclaw-setup/internal/usecase/provision"
	"openclaw-setup/internal/usecase/validate"
	"openclaw-setup/internal/usecase/wizard"
)

// Field keys.
const (
	keyAuthSecret     = "auth_secret"
	keyTelegramOn     = "telegram.enabled"
	keyTelegramToken  = "telegram.token"
	keyDiscordOn      = "discord.enabled"
	keyDiscordToken   = "discord.token"
	keySlackOn        = "slack.enabled"
	keySlackBot       = "slack.bot_token"
	keySlackApp       = "slack.app_token"
	keyTailscaleOn    = "tailscale.enabled"
	keyTailscaleKey   = "tailscale.auth_key"
	keyTailscaleHost  = "tailscale.hostname"
	keyFlow           = "flow"
	keyCustomTemplate = "custom.template"
	keyCustomID       = "custom.id"
	keyCustomBaseURL  = "custom.base_url"
	keyCustomAPI      = "custom.api"
	keyCustomKeyEnv   = "custom.api_key_env"
	keyCustomModel    = "custom.model_id"
)

// noTemplate is the custom template choice that leaves the fields alone.
const noTemplate = "none"

// Focus slots of step 1.
const (
	focusProviders = iota
	focusAuth
	focusSecret
)

// dependsOn hides a field until its toggle is on.
var dependsOn = map[string]string{
	keyTelegramToken: keyTelegramOn,
	keyDiscordToken:  keyDiscordOn,
	keySlackBot:      keySlackOn,
	keySlackApp:      keySlackOn,
	keyTailscaleKey:  keyTailscaleOn,
	keyTailscaleHost: keyTailscaleOn,
}

func secretField(key, label, placeholder, value string) form.Field {
	f := form.NewSecretField(key, label, placeholder)
	f.SetValue(value)
	return f
}

func textField(key, label, placeholder, value string) form.Field {
	f := form.NewTextField(key, label, placeholder)
	f.SetValue(value)
	return f
}

// buildStepFields creates the inputs of every step, seeded from form.
func buildStepFields(f wizard.Form) map[int][]form.Field {
	tgToken := secretField(keyTelegramToken, "Telegram bot token", "123456:ABC-DEF...", f.Telegram.Token)
	tgToken.SetResult(validate.TelegramToken(f.Telegram.Token))
	dcToken := secretField(keyDiscordToken, "Discord bot token", "Bot token from the developer portal", f.Discord.Token)
	dcToken.SetResult(validate.DiscordToken(f.Discord.Token))
	tsKey := secretField(keyTailscaleKey, "Tailscale auth key", validate.TailscaleAuthKeyPrefix+"...", f.Tailscale.AuthKey)
	tsKey.SetResult(validate.TailscaleKey(f.Tailscale.AuthKey))

	flow := f.Flow
	if flow == "" {
		flow = wizard.FlowQuickstart
	}
	templates := append([]string{noTemplate}, wizard.CustomTemplateNames()...)

	return map[int][]form.Field{
		wizard.StepProvider: {
			secretField(keyAuthSecret, "API key / token", wizard.PlaceholderKey, f.AuthSecret),
		},
		wizard.StepChannels: {
			form.NewToggleField(keyTelegramOn, "Telegram", f.Telegram.Enabled),
			tgToken,
			form.NewToggleField(keyDiscordOn, "Discord", f.Discord.Enabled),
			dcToken,
			form.NewToggleField(keySlackOn, "Slack", f.Slack.Enabled),
			secretField(keySlackBot, "Slack bot token", "xoxb-...", f.Slack.BotToken),
			secretField(keySlackApp, "Slack app token", "xapp-...", f.Slack.AppToken),
		},
		wizard.StepTailscale: {
			form.NewToggleField(keyTailscaleOn, "Join a Tailscale network", f.Tailscale.Enabled),
			tsKey,
			textField(keyTailscaleHost, "Hostname", wizard.DefaultTailscaleHostname, f.Tailscale.Hostname),
		},
		wizard.StepAdvanced: {
			form.NewChoiceField(keyFlow, "Setup flow", []string{wizard.FlowQuickstart, wizard.FlowAdvanced}, flow),
			form.NewChoiceField(keyCustomTemplate, "Custom provider template", templates, noTemplate),
			textField(keyCustomID, "Provider ID", "e.g. ollama", f.Custom.ID),
			textField(keyCustomBaseURL, "Base URL", "http://localhost:11434/v1", f.Custom.BaseURL),
			textField(keyCustomAPI, "API", "openai-completions", f.Custom.API),
			textField(keyCustomKeyEnv, "API key env var", "e.g. OLLAMA_API_KEY", f.Custom.APIKeyEnv),
			textField(keyCustomModel, "Model ID", "e.g. llama3.2", f.Custom.ModelID),
		},
	}
}

// --- choice lists ---

type groupItem struct{ g domain.ProviderGroup }

func (i groupItem) Title() string       { return i.g.Label }
func (i groupItem) Description() string { return i.g.Hint }
func (i groupItem) FilterValue() string { return i.g.Label }

type authItem struct{ o domain.AuthOption }

func (i authItem) Title() string { return i.o.Label }
func (i authItem) Description() string {
	if domain.IsOAuthChoice(i.o.Value) {
		return i.o.Value + " (OAuth)"
	}
	return i.o.Value
}
func (i authItem) FilterValue() string { return i.o.Label }

func newChoiceList() list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 60, 8)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	return l
}

func setGroupItems(l *list.Model, groups []domain.ProviderGroup, selected string) {
	items := make([]list.Item, len(groups))
	cursor := 0
	for i, g := range groups {
		items[i] = groupItem{g}
		if g.Value == selected {
			cursor = i
		}
	}
	l.SetItems(items)
	l.Select(cursor)
}

func setAuthItems(l *list.Model, opts []domain.AuthOption, selected string) {
	items := make([]list.Item, len(opts))
	cursor := 0
	for i, o := range opts {
		items[i] = authItem{o}
		if o.Value == selected {
			cursor = i
		}
	}
	l.SetItems(items)
	l.Select(cursor)
}

// --- focus ---

// visible returns the indices of the fields of step that are on screen.
func (m *Model) visible(step int) []int {
	fields := m.fields[step]
	on := make(map[string]bool)
	for _, f := range fields {
		if f.Kind == form.KindToggle {
			on[f.Key] = f.Checked()
		}
	}
	var out []int
	for i, f := range fields {
		if parent, ok := dependsOn[f.Key]; ok && !on[parent] {
			continue
		}
		out = append(out, i)
	}
	return out
}

// focusSlots is the number of focusable widgets on step.
func (m *Model) focusSlots(step int) int {
	switch step {
	case wizard.StepProvider:
		return 3
	case wizard.StepReview:
		return 0
	}
	return len(m.visible(step))
}

// focusCurrent moves keyboard focus to slot m.focus of the active step.
func (m *Model) focusCurrent() tea.Cmd {
	step := m.Step()
	for s, fields := range m.fields {
		for i := range fields {
			m.fields[s][i].Blur()
		}
	}
	n := m.focusSlots(step)
	if n == 0 {
		m.focus = 0
		return nil
	}
	m.focus = theme.Clamp(m.focus, 0, n-1)

	if step == wizard.StepProvider {
		if m.focus == focusSecret {
			return m.fields[step][0].Focus()
		}
		return nil
	}
	idx := m.visible(step)[m.focus]
	return m.fields[step][idx].Focus()
}

func (m *Model) moveFocus(delta int) tea.Cmd {
	n := m.focusSlots(m.Step())
	if n == 0 {
		return nil
	}
	m.focus = (m.focus + delta + n) % n
	return m.focusCurrent()
}

// focusedField returns the focused form field of the active step, or nil
// when a list or nothing has focus.
func (m *Model) focusedField() *form.Field {
	step := m.Step()
	fields := m.fields[step]
	for i := range fields {
		if fields[i].Focused() {
			return &fields[i]
		}
	}
	return nil
}

func (m *Model) fieldByKey(key string) *form.Field {
	for s := range m.fields {
		for i := range m.fields[s] {
			if m.fields[s][i].Key == key {
				return &m.fields[s][i]
			}
		}
	}
	return nil
}

func (m *Model) setFieldValue(key, value string) {
	if f := m.fieldByKey(key); f != nil {
		f.SetValue(value)
	}
}

// --- navigation ---

func (m Model) next() (tea.Model, tea.Cmd) {
	if err := m.sess.Navigator.Next(); err != nil {
		m.setError(err)
		return m, nil
	}
	m.statusErr = nil
	m.focus = 0
	return m, m.focusCurrent()
}

func (m Model) back() (tea.Model, tea.Cmd) {
	if m.sess.Navigator.Back() {
		m.focus = 0
		return m, m.focusCurrent()
	}
	return m, nil
}

func (m Model) click(step int) (tea.Model, tea.Cmd) {
	if m.sess.Navigator.Click(step) {
		m.focus = 0
		return m, m.focusCurrent()
	}
	return m, nil
}

func (m Model) startRun() (tea.Model, tea.Cmd) {
	if m.running {
		return m, nil
	}
	m.running = true
	m.runErr = nil
	m.statusErr = nil
	m.status = ""
	m.bridge.BeginRun()
	m.bridge.SetAttached(true)
	return m, tea.Batch(runCmd(m.ctx, m.sess), m.timeline.Spinner.Tick)
}

// --- updates ---

func (m Model) updateWizard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	step := m.Step()
	key := msg.String()

	switch key {
	case "esc":
		if m.running {
			return m, nil
		}
		return m.back()
	case "tab":
		return m, m.moveFocus(1)
	case "shift+tab":
		return m, m.moveFocus(-1)
	case "pgdown":
		if step < wizard.StepReview {
			return m.next()
		}
	case "pgup":
		return m.back()
	case "alt+1", "alt+2", "alt+3", "alt+4", "alt+5":
		return m.click(int(key[len(key)-1] - '0'))
	}

	if step == wizard.StepReview {
		return m.updateReview(msg)
	}

	if step == wizard.StepProvider && m.focus != focusSecret {
		return m.updateProviderLists(msg)
	}

	f := m.focusedField()
	if f == nil {
		return m, nil
	}
	if (key == "down" || key == "up") && f.Kind != form.KindText && f.Kind != form.KindSecret {
		if key == "down" {
			return m, m.moveFocus(1)
		}
		return m, m.moveFocus(-1)
	}
	var cmd tea.Cmd
	*f, cmd = f.Update(msg)
	return m, cmd
}

func (m Model) updateProviderLists(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type != tea.KeyEnter {
		var cmd tea.Cmd
		if m.focus == focusProviders {
			m.providers, cmd = m.providers.Update(msg)
		} else {
			m.auths, cmd = m.auths.Update(msg)
		}
		return m, cmd
	}

	if m.focus == focusProviders {
		item, ok := m.providers.SelectedItem().(groupItem)
		if !ok {
			return m, nil
		}
		m.sess.Selector.Select(item.g)
		// A single auth method is applied by the selector itself.
		if len(item.g.Options) == 1 {
			m.focus = focusSecret
		} else {
			m.focus = focusAuth
		}
		return m, m.focusCurrent()
	}

	item, ok := m.auths.SelectedItem().(authItem)
	if !ok {
		return m, nil
	}
	m.sess.Selector.SetChoice(item.o.Value)
	m.focus = focusSecret
	return m, m.focusCurrent()
}

func (m Model) updateReview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.frame.Complete {
			return m, nil
		}
		return m.startRun()
	case "r":
		if m.frame.Retry && !m.running {
			return m.startRun()
		}
	case "c":
		if m.frame.Token != "" {
			return m, copyCmd(m.opts.Copy, "Gateway token", m.frame.Token)
		}
	case "up", "k":
		m.deviceIdx = theme.Clamp(m.deviceIdx-1, 0, max(len(m.frame.Devices)-1, 0))
	case "down", "j":
		m.deviceIdx = theme.Clamp(m.deviceIdx+1, 0, max(len(m.frame.Devices)-1, 0))
	case "a":
		return m.approveSelected()
	}
	return m, nil
}

func (m Model) approveSelected() (tea.Model, tea.Cmd) {
	if m.deviceIdx >= len(m.frame.Devices) {
		return m, nil
	}
	row := m.frame.Devices[m.deviceIdx]
	if row.Approving || row.Approved {
		return m, nil
	}
	m.bridge.MarkApproving(row.ID)
	return m, approveCmd(m.ctx, m.sess, row.ID)
}

func (m Model) handleSubmit(msg form.SubmitMsg) (tea.Model, tea.Cmd) {
	if m.tabs.ActiveID() == tabDashboard {
		return m.submitDashboard(msg)
	}
	step := m.Step()
	if step == wizard.StepProvider {
		m.sess.Selector.SetSecret(msg.Value)
		return m.next()
	}
	if m.focus >= m.focusSlots(step)-1 {
		return m.next()
	}
	return m, m.moveFocus(1)
}

// applyChange writes one field into the wizard state.
func (m *Model) applyChange(key, value string) {
	on := value == "true"
	st := m.sess.State
	switch key {
	case keyAuthSecret:
		m.sess.Selector.SetSecret(value)
	case keyTelegramOn:
		st.Update(func(f *wizard.Form) { f.Telegram.Enabled = on })
	case keyTelegramToken:
		st.Update(func(f *wizard.Form) { f.Telegram.Token = value })
		m.fieldByKey(key).SetResult(validate.TelegramToken(value))
	case keyDiscordOn:
		st.Update(func(f *wizard.Form) { f.Discord.Enabled = on })
	case keyDiscordToken:
		st.Update(func(f *wizard.Form) { f.Discord.Token = value })
		m.fieldByKey(key).SetResult(validate.DiscordToken(value))
	case keySlackOn:
		st.Update(func(f *wizard.Form) { f.Slack.Enabled = on })
	case keySlackBot:
		st.Update(func(f *wizard.Form) { f.Slack.BotToken = value })
	case keySlackApp:
		st.Update(func(f *wizard.Form) { f.Slack.AppToken = value })
	case keyTailscaleOn:
		st.Update(func(f *wizard.Form) { f.Tailscale.Enabled = on })
	case keyTailscaleKey:
		st.Update(func(f *wizard.Form) { f.Tailscale.AuthKey = value })
		m.fieldByKey(key).SetResult(validate.TailscaleKey(value))
	case keyTailscaleHost:
		st.Update(func(f *wizard.Form) { f.Tailscale.Hostname = value })
	case keyFlow:
		st.Update(func(f *wizard.Form) { f.Flow = value })
	case keyCustomTemplate:
		if value == noTemplate {
			return
		}
		st.Update(func(f *wizard.Form) { f.ApplyCustomTemplate(value) })
		c := st.Form().Custom
		m.setFieldValue(keyCustomID, c.ID)
		m.setFieldValue(keyCustomBaseURL, c.BaseURL)
		m.setFieldValue(keyCustomAPI, c.API)
		m.setFieldValue(keyCustomModel, c.ModelID)
	case keyCustomID:
		st.Update(func(f *wizard.Form) { f.Custom.ID = value })
	case keyCustomBaseURL:
		st.Update(func(f *wizard.Form) { f.Custom.BaseURL = value })
	case keyCustomAPI:
		st.Update(func(f *wizard.Form) { f.Custom.API = value })
	case keyCustomKeyEnv:
		st.Update(func(f *wizard.Form) { f.Custom.APIKeyEnv = value })
	case keyCustomModel:
		st.Update(func(f *wizard.Form) { f.Custom.ModelID = value })
	}
}

// --- views ---

func (m Model) viewWizard() string {
	step := m.Step()
	var content string
	switch step {
	case wizard.StepProvider:
		content = m.viewProvider()
	case wizard.StepReview:
		content = m.viewReview()
	default:
		content = m.viewFields(step)
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.steps.View(), "", content)
}

func sectionTitle(s string, focused bool) string {
	if focused {
		return theme.Selected.Render(theme.SymbolCursor + " " + s)
	}
	return theme.Bold.Render("  " + s)
}

func (m Model) viewProvider() string {
	parts := []string{sectionTitle("AI provider", m.focus == focusProviders)}
	if len(m.providers.Items()) == 0 {
		parts = append(parts, theme.TextMuted.Render("  Loading providers from the gateway"+theme.SymbolEllipsis))
	} else {
		parts = append(parts, m.providers.View())
	}
	if len(m.auths.Items()) > 0 {
		parts = append(parts, "", sectionTitle("Auth method", m.focus == focusAuth), m.auths.View())
	}
	parts = append(parts, "", m.fields[wizard.StepProvider][0].View())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewFields(step int) string {
	var parts []string
	for _, i := range m.visible(step) {
		parts = append(parts, m.fields[step][i].View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewReview() string {
	var rows []string
	for _, it := range m.frame.Review {
		rows = append(rows, fmt.Sprintf("  %-16s %s", it.Label+":", theme.TextInfo.Render(it.Value)))
	}
	parts := []string{theme.Bold.Render("Review"), strings.Join(rows, "\n")}

	if m.running || len(m.frame.Stages) > 0 {
		parts = append(parts, "", theme.Bold.Render("Progress"), m.timeline.View())
	}
	for _, n := range m.frame.Notices {
		parts = append(parts, noticeLine(n))
	}
	if m.frame.Tailscale != nil {
		parts = append(parts, "  Tailscale: "+m.frame.Tailscale.Describe())
	}
	if m.frame.Log != "" {
		parts = append(parts, "", theme.LogBox.Render(strings.TrimRight(m.frame.Log, "\n")))
	}
	if m.frame.Complete {
		parts = append(parts, "", theme.TextSuccess.Render(theme.SymbolSuccess+" "+provision.MsgSetupComplete))
		if m.frame.Token != "" {
			parts = append(parts, "  Gateway token: "+theme.TextAccent.Render(m.frame.Token))
		}
		parts = append(parts, "", m.viewDevices())
	} else if !m.running {
		label := "Press Enter to run setup"
		if m.frame.Retry {
			label = "Press r to retry"
		}
		parts = append(parts, "", theme.TextInfo.Render(label))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func noticeLine(n Notice) string {
	switch n.Kind {
	case provision.NoticeSuccess:
		return theme.TextSuccess.Render(theme.SymbolSuccess + " " + n.Text)
	case provision.NoticeWarning:
		return theme.TextWarning.Render(theme.SymbolWarning + " " + n.Text)
	case provision.NoticeError:
		return theme.TextError.Render(theme.SymbolError + " " + n.Text)
	}
	return theme.TextInfo.Render(theme.SymbolInfo + " " + n.Text)
}

// viewDevices renders the pending device list shared by the review step
// and the dashboard.
func (m Model) viewDevices() string {
	title := theme.Bold.Render("Pending devices")
	if m.frame.Offline {
		title += " " + theme.TextWarning.Render("(offline)")
	}
	lines := []string{title}
	if len(m.frame.Devices) == 0 {
		msg := m.frame.DevicesEmpty
		if msg == "" {
			msg = "Waiting for devices" + theme.SymbolEllipsis
		}
		lines = append(lines, "  "+theme.TextMuted.Render(msg))
	}
	for i, r := range m.frame.Devices {
		cursor := "  "
		if i == m.deviceIdx {
			cursor = theme.Selected.Render(theme.SymbolCursor + " ")
		}
		line := cursor + r.ID
		switch {
		case r.Approved:
			line += " " + theme.TextSuccess.Render(theme.SymbolSuccess+" approved")
		case r.Approving:
			line += " " + theme.TextMuted.Render("approving"+theme.SymbolEllipsis)
		case r.Err != "":
			line += " " + theme.TextError.Render(theme.SymbolError+" "+r.Err)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) wizardHints() []components.KeyHint {
	switch m.Step() {
	case wizard.StepReview:
		if m.frame.Complete {
			return []components.KeyHint{{Key: "a", Desc: "Approve"}, {Key: "c", Desc: "Copy token"}, {Key: "Ctrl+N", Desc: "Dashboard"}, {Key: "Ctrl+C", Desc: "Quit"}}
		}
		return []components.KeyHint{{Key: "Enter", Desc: "Run"}, {Key: "Esc", Desc: "Back"}, {Key: "Ctrl+C", Desc: "Quit"}}
	}
	return []components.KeyHint{
		{Key: "Tab", Desc: "Next field"},
		{Key: "Enter", Desc: "Select"},
		{Key: "PgDn", Desc: "Next step"},
		{Key: "Esc", Desc: "Back"},
		{Key: "Ctrl+C", Desc: "Quit"},
	}
}
