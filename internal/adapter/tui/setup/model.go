package setup

import (
	"context"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"openclaw-setup/internal/adapter/tui/components"
	"openclaw-setup/internal/adapter/tui/components/form"
	"openclaw-setup/internal/adapter/tui/theme"
	"openclaw-setup/internal/adapter/tui/uxerror"
	"openclaw-setup/internal/domain"
	"openclaw-setup/internal/usecase/dashboard"
	"openclaw-setup/internal/usecase/session"
)

// Tab IDs.
const (
	tabWizard    = "wizard"
	tabDashboard = "dashboard"
)

// Options configure the wizard model.
type Options struct {
	// Gateway is the base URL shown in the status bar.
	Gateway string
	// Copy writes to the system clipboard. Nil disables copying.
	Copy func(string) error
}

// Model is the root Bubble Tea model. It owns no wizard state of its own:
// every input is forwarded to the session and the screen is redrawn from
// the Frame the session renders into the Bridge.
type Model struct {
	ctx    context.Context
	sess   *session.Session
	bridge *Bridge
	opts   Options

	tabs      components.TabBarModel
	steps     form.StepIndicatorModel
	providers list.Model
	auths     list.Model
	fields    map[int][]form.Field
	focus     int
	timeline  form.TimelineModel
	modal     components.ModalModel

	frame     Frame
	groupsRev int
	authRev   int
	scrollRev int

	running bool
	runErr  error

	dash       dashboard.Snapshot
	dashReady  bool
	refreshing bool
	dashFields []form.Field
	dashFocus  int
	deviceIdx  int
	resetArmed bool

	status    string
	statusErr *uxerror.FriendlyError
	width     int
	height    int
}

// New creates the model. bridge must be the Views the session was built
// with.
func New(ctx context.Context, sess *session.Session, bridge *Bridge, opts Options) Model {
	m := Model{
		ctx:    ctx,
		sess:   sess,
		bridge: bridge,
		opts:   opts,
		tabs: components.NewTabBar([]components.Tab{
			{ID: tabWizard, Label: "Setup"},
			{ID: tabDashboard, Label: "Dashboard"},
		}),
		steps:      form.NewStepIndicator(sess.Navigator.Steps()),
		providers:  newChoiceList(),
		auths:      newChoiceList(),
		fields:     buildStepFields(sess.State.Form()),
		timeline:   form.NewTimeline(),
		modal:      components.NewModal(),
		dashFields: buildDashFields(),
	}
	m.frame = bridge.Frame()
	m.syncFrame()
	m.focusCurrent()
	return m
}

// Init loads provider groups and dashboard panels.
func (m Model) Init() tea.Cmd {
	return tea.Batch(refreshCmd(m.ctx, m.sess), m.timeline.Spinner.Tick)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case FrameMsg:
		m.frame = m.bridge.Frame()
		m.syncFrame()
		m.tabs.SetBadge(tabDashboard, len(m.frame.Devices))
		return m, nil

	case runDoneMsg:
		return m.handleRunDone(msg)

	case refreshDoneMsg:
		m.refreshing = false
		m.dash = msg.snap
		m.dashReady = true
		return m, nil

	case approveDoneMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus(theme.SymbolSuccess + " Approved " + msg.id)
		}
		return m, nil

	case outputMsg:
		return m.handleOutput(msg)

	case tokenMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.modal.Open("Gateway token", msg.token)
		if msg.copied {
			m.setStatus("Gateway token copied to clipboard")
		}
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus(msg.what + " copied to clipboard")
		}
		return m, nil

	case form.ChangedMsg:
		m.applyChange(msg.Key, msg.Value)
		return m, nil

	case form.SubmitMsg:
		return m.handleSubmit(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.timeline, cmd = m.timeline.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.modal.Visible {
		if msg.String() == "y" {
			return m, copyCmd(m.opts.Copy, m.modal.Title, m.modal.Raw)
		}
		var cmd tea.Cmd
		m.modal, cmd = m.modal.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "ctrl+c":
		m.bridge.SetAttached(false)
		return m, tea.Quit
	case "ctrl+n":
		m.tabs.Next()
		return m.enterTab()
	case "ctrl+p":
		m.tabs.Prev()
		return m.enterTab()
	}

	if m.tabs.ActiveID() == tabDashboard {
		return m.updateDashboard(msg)
	}
	return m.updateWizard(msg)
}

// enterTab attaches the device list while the dashboard is on screen and
// reloads its panels.
func (m Model) enterTab() (tea.Model, tea.Cmd) {
	if m.tabs.ActiveID() != tabDashboard {
		m.bridge.SetAttached(m.frame.Complete)
		return m, nil
	}
	m.bridge.SetAttached(true)
	m.sess.StartPolling(m.ctx)
	m.refreshing = true
	return m, refreshCmd(m.ctx, m.sess)
}

func (m Model) handleRunDone(msg runDoneMsg) (tea.Model, tea.Cmd) {
	m.running = false
	m.runErr = msg.err
	if msg.err != nil {
		m.setError(msg.err)
		return m, nil
	}
	m.setStatus(theme.SymbolSuccess + " Setup complete")
	m.refreshing = true
	return m, refreshCmd(m.ctx, m.sess)
}

func (m Model) handleOutput(msg outputMsg) (tea.Model, tea.Cmd) {
	if msg.output != "" {
		m.modal.OpenOutput(msg.title, msg.lang, msg.output)
	}
	if msg.err != nil {
		m.setError(msg.err)
		return m, nil
	}
	if msg.notice != "" {
		m.setStatus(msg.notice)
	}
	m.refreshing = true
	return m, refreshCmd(m.ctx, m.sess)
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = nil
}

func (m *Model) setError(err error) {
	fe := uxerror.Humanize(err)
	m.statusErr = &fe
	m.status = ""
}

// syncFrame copies the session's rendered state into the widgets.
func (m *Model) syncFrame() {
	f := m.frame
	if len(f.Steps) > 0 {
		m.steps.SetSteps(f.Steps)
	}
	if f.GroupsRev != m.groupsRev {
		m.groupsRev = f.GroupsRev
		setGroupItems(&m.providers, f.Groups, f.Selected)
	}
	if f.AuthRev != m.authRev {
		m.authRev = f.AuthRev
		setAuthItems(&m.auths, f.AuthOptions, f.AuthChoice)
	}
	if f.ScrollRev != m.scrollRev {
		m.scrollRev = f.ScrollRev
		m.focus = 0
		m.focusCurrent()
	}
	if secret := m.fieldByKey(keyAuthSecret); secret != nil {
		secret.SetPlaceholder(f.Hint.Placeholder)
		secret.Description = f.Hint.Text
		secret.SetResult(f.AuthResult)
	}
	states := make([]domain.StageState, 0, len(f.Stages))
	for stage, status := range f.Stages {
		states = append(states, domain.StageState{Stage: stage, Status: status})
	}
	m.timeline.Load(states)
}

func (m *Model) layout() {
	w := theme.Clamp(m.width-4, 20, theme.MaxContentWidth)
	m.tabs.SetWidth(m.width)
	m.steps.SetWidth(w)
	listH := theme.Clamp(m.height/3, 4, 14)
	m.providers.SetSize(w, listH)
	m.auths.SetSize(w, theme.Clamp(listH/2, 3, 8))
	m.modal.SetSize(m.width, m.height)
}

// View renders the active tab.
func (m Model) View() string {
	if m.width == 0 {
		return "  Initializing" + theme.SymbolEllipsis
	}
	if m.modal.Visible {
		return m.modal.View()
	}

	var body string
	var hints []components.KeyHint
	if m.tabs.ActiveID() == tabDashboard {
		body = m.viewDashboard()
		hints = dashboardHints(m.dashFocus)
	} else {
		body = m.viewWizard()
		hints = m.wizardHints()
	}

	sb := components.NewStatusBar()
	sb.Hints = hints
	sb.Gateway = m.opts.Gateway
	sb.State = m.dash.GatewayLabel()
	if m.running {
		sb.Extra = "Running setup" + theme.SymbolEllipsis
	} else if m.refreshing {
		sb.Extra = "Refreshing" + theme.SymbolEllipsis
	}
	sb.SetWidth(m.width)

	parts := []string{
		theme.Title.Render("OpenClaw Setup"),
		m.tabs.View(),
		"",
		body,
	}
	if line := m.statusLine(); line != "" {
		parts = append(parts, "", line)
	}
	parts = append(parts, "", sb.View())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) statusLine() string {
	if m.statusErr != nil {
		return theme.TextError.Render(theme.SymbolError+" ") + m.statusErr.Render()
	}
	if m.status != "" {
		return theme.TextInfo.Render(m.status)
	}
	return ""
}

// Running reports whether a provisioning run is in flight.
func (m Model) Running() bool {
	return m.running
}

// Step returns the active wizard step.
func (m Model) Step() int {
	return m.sess.Navigator.Current()
}

var _ tea.Model = Model{}
