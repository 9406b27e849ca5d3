package setup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openclaw-setup/internal/adapter/tui/components/form"
	"openclaw-setup/internal/domain"
	"openclaw-setup/internal/usecase/pairing"
	"openclaw-setup/internal/usecase/provision"
	"openclaw-setup/internal/usecase/session"
	"openclaw-setup/internal/usecase/wizard"
)

type fakeSetupAPI struct {
	mu      sync.Mutex
	payload []domain.RunPayload
	console []domain.ConsoleRequest
	pairs   []domain.PairingApproveRequest
	resets  atomic.Int32
	runFail bool
}

func (f *fakeSetupAPI) Run(_ context.Context, p domain.RunPayload) (*domain.RunResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payload = append(f.payload, p)
	if f.runFail {
		return &domain.RunResponse{OK: false, Output: "onboard exited 1"}, nil
	}
	return &domain.RunResponse{OK: true, GatewayToken: "gw-token"}, nil
}

func (f *fakeSetupAPI) ConfigureTailscale(context.Context, domain.TailscaleConfigureRequest) (*domain.TailscaleStatus, error) {
	return &domain.TailscaleStatus{OK: true}, nil
}

func (f *fakeSetupAPI) PendingDevices(context.Context) ([]string, error) {
	return []string{"dev-1"}, nil
}

func (f *fakeSetupAPI) ApproveDevice(context.Context, domain.DeviceApproveRequest) (*domain.ActionResult, error) {
	return &domain.ActionResult{OK: true}, nil
}

func (f *fakeSetupAPI) ApprovePairing(_ context.Context, req domain.PairingApproveRequest) (*domain.ActionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pairs = append(f.pairs, req)
	return &domain.ActionResult{OK: true, Output: "approved"}, nil
}

func (f *fakeSetupAPI) Status(context.Context) (*domain.StatusResponse, error) {
	return &domain.StatusResponse{
		AuthGroups: []domain.ProviderGroup{
			{Value: "openai", Label: "OpenAI", Options: []domain.AuthOption{
				{Value: "openai-api-key", Label: "API key"},
				{Value: "openai-codex", Label: "Codex OAuth"},
			}},
			{Value: "gemini", Label: "Gemini", Options: []domain.AuthOption{
				{Value: "google-gemini-cli", Label: "Gemini CLI"},
			}},
		},
	}, nil
}

func (f *fakeSetupAPI) Debug(context.Context) (*domain.DebugResponse, error) {
	return &domain.DebugResponse{}, nil
}

func (f *fakeSetupAPI) TailscaleStatus(context.Context) (*domain.TailscaleStatus, error) {
	return &domain.TailscaleStatus{}, nil
}

func (f *fakeSetupAPI) Reset(context.Context) (*domain.ActionResult, error) {
	f.resets.Add(1)
	return &domain.ActionResult{OK: true}, nil
}

func (f *fakeSetupAPI) Console(_ context.Context, req domain.ConsoleRequest) (*domain.ActionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.console = append(f.console, req)
	return &domain.ActionResult{OK: true, Output: "all checks passed"}, nil
}

func (f *fakeSetupAPI) RawConfig(context.Context) (*domain.RawConfig, error) {
	return &domain.RawConfig{OK: true, Path: "/data/openclaw.json", Content: `{"gateway":{}}`}, nil
}

func (f *fakeSetupAPI) SaveRawConfig(context.Context, string) (*domain.SaveConfigResult, error) {
	return &domain.SaveConfigResult{OK: true}, nil
}

func (f *fakeSetupAPI) GatewayToken(context.Context) (*domain.GatewayTokenResponse, error) {
	return &domain.GatewayTokenResponse{OK: true, Token: "gw-token"}, nil
}

func (f *fakeSetupAPI) Import(context.Context, string, io.Reader) (*domain.ActionResult, error) {
	return &domain.ActionResult{OK: true}, nil
}

func newTestModel(t *testing.T, api *fakeSetupAPI, opts Options) (Model, *session.Session) {
	t.Helper()
	b := NewBridge()
	sess := session.New(session.Deps{
		API:    api,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, session.Config{
		Form:    wizard.DefaultForm(),
		Delays:  provision.Delays{},
		Pairing: pairing.Config{Interval: 5 * time.Millisecond},
	}, session.Views{Navigator: b, Selector: b, Presenter: b, Progress: b, Devices: b})
	t.Cleanup(sess.Close)

	m := New(context.Background(), sess, b, opts)
	m = step(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, sess
}

// step feeds msg to the model and pulls the latest frame, the way the
// program does after a FrameMsg.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	next, _ = out.Update(FrameMsg{})
	return next.(Model)
}

// press sends a key and returns the resulting model and command.
func press(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(k)
	out, ok := next.(Model)
	require.True(t, ok)
	next, _ = out.Update(FrameMsg{})
	return next.(Model), cmd
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func loadGroups(t *testing.T, m Model, sess *session.Session) Model {
	t.Helper()
	return step(t, m, refreshCmd(context.Background(), sess)())
}

func TestModelLoadsProviders(t *testing.T) {
	m, sess := newTestModel(t, &fakeSetupAPI{}, Options{})
	assert.Contains(t, m.View(), "Loading providers")

	m = loadGroups(t, m, sess)
	assert.True(t, m.dashReady)
	assert.Len(t, m.providers.Items(), 2)
	assert.Contains(t, m.View(), "OpenAI")
	assert.Equal(t, wizard.StepProvider, m.Step())
}

func TestModelSelectProviderAndAuth(t *testing.T) {
	m, sess := newTestModel(t, &fakeSetupAPI{}, Options{})
	m = loadGroups(t, m, sess)

	// OpenAI offers two methods so focus lands on the auth list.
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "openai", sess.State.Form().Provider)
	assert.Equal(t, focusAuth, m.focus)
	require.Len(t, m.auths.Items(), 2)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "openai-api-key", sess.State.Form().AuthChoice)
	assert.Equal(t, focusSecret, m.focus)
	secret := m.fieldByKey(keyAuthSecret)
	require.NotNil(t, secret)
	assert.True(t, secret.Focused())
	assert.Equal(t, wizard.PlaceholderKey, secret.Input.Placeholder)
}

func TestModelSingleOptionSkipsAuthList(t *testing.T) {
	m, sess := newTestModel(t, &fakeSetupAPI{}, Options{})
	m = loadGroups(t, m, sess)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "gemini", sess.State.Form().Provider)
	assert.Equal(t, "google-gemini-cli", sess.State.Form().AuthChoice)
	assert.Equal(t, focusSecret, m.focus)
	assert.True(t, m.frame.AuthResult.OK)
}

func TestModelNextBlockedWithoutSecret(t *testing.T) {
	m, sess := newTestModel(t, &fakeSetupAPI{}, Options{})
	m = loadGroups(t, m, sess)
	require.True(t, sess.Selector.SelectByValue("openai"))
	sess.Selector.SetChoice("openai-api-key")
	m = step(t, m, FrameMsg{})

	m = step(t, m, form.SubmitMsg{Key: keyAuthSecret, Value: ""})
	assert.Equal(t, wizard.StepProvider, m.Step())
	require.NotNil(t, m.statusErr)
	assert.Equal(t, "Invalid Input", m.statusErr.Title)

	m = step(t, m, form.ChangedMsg{Key: keyAuthSecret, Value: "sk-test"})
	assert.Equal(t, "sk-test", sess.State.Form().AuthSecret)
	m = step(t, m, form.SubmitMsg{Key: keyAuthSecret, Value: "sk-test"})
	assert.Equal(t, wizard.StepChannels, m.Step())
	assert.Nil(t, m.statusErr)
}

func TestModelChannelFields(t *testing.T) {
	m, sess := newTestModel(t, &fakeSetupAPI{}, Options{})
	require.True(t, sess.Navigator.GoToStep(wizard.StepChannels))
	m = step(t, m, FrameMsg{})

	assert.NotContains(t, m.View(), "Telegram bot token")
	assert.Len(t, m.visible(wizard.StepChannels), 3)

	// The focused Telegram toggle emits a change that reveals its token.
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	require.NotNil(t, cmd)
	m = step(t, m, cmd())
	assert.True(t, sess.State.Form().Telegram.Enabled)
	assert.Contains(t, m.View(), "Telegram bot token")

	m = step(t, m, form.ChangedMsg{Key: keyTelegramToken, Value: "bad"})
	assert.Equal(t, "bad", sess.State.Form().Telegram.Token)
	assert.False(t, m.fieldByKey(keyTelegramToken).Result().OK)

	m = step(t, m, form.ChangedMsg{Key: keyTelegramToken, Value: "123456:ABCDEFGHIJKLMNOPQRSTUV"})
	assert.True(t, m.fieldByKey(keyTelegramToken).Result().OK)
}

func TestModelCustomTemplateFillsFields(t *testing.T) {
	names := wizard.CustomTemplateNames()
	require.NotEmpty(t, names)

	m, sess := newTestModel(t, &fakeSetupAPI{}, Options{})
	m = step(t, m, form.ChangedMsg{Key: keyCustomTemplate, Value: names[0]})

	custom := sess.State.Form().Custom
	assert.NotEmpty(t, custom.ID)
	assert.Equal(t, custom.ID, m.fieldByKey(keyCustomID).Value())
	assert.Equal(t, custom.BaseURL, m.fieldByKey(keyCustomBaseURL).Value())

	m = step(t, m, form.ChangedMsg{Key: keyFlow, Value: wizard.FlowAdvanced})
	assert.Equal(t, wizard.FlowAdvanced, sess.State.Form().Flow)
}

func TestModelRunCompletes(t *testing.T) {
	api := &fakeSetupAPI{}
	m, sess := newTestModel(t, api, Options{})
	m = loadGroups(t, m, sess)
	require.True(t, sess.Selector.SelectByValue("gemini"))
	require.True(t, sess.Navigator.GoToStep(wizard.StepReview))
	m = step(t, m, FrameMsg{})
	assert.Contains(t, m.View(), "Press Enter to run setup")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.Running())

	// A second Enter while running is ignored.
	_, again := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, again)

	m = step(t, m, runCmd(context.Background(), sess)())
	assert.False(t, m.Running())
	assert.True(t, m.frame.Complete)
	assert.Equal(t, "gw-token", m.frame.Token)
	assert.Equal(t, domain.StatusDone, m.frame.Stages[domain.StageHealth])
	assert.Contains(t, m.View(), provision.MsgSetupComplete)

	api.mu.Lock()
	require.Len(t, api.payload, 1)
	assert.Equal(t, "google-gemini-cli", api.payload[0].AuthChoice)
	api.mu.Unlock()

	// The poller attached by the run lists the pending device.
	assert.Eventually(t, func() bool {
		return len(m.bridge.Frame().Devices) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestModelRunFailureOffersRetry(t *testing.T) {
	api := &fakeSetupAPI{runFail: true}
	m, sess := newTestModel(t, api, Options{})
	m = loadGroups(t, m, sess)
	require.True(t, sess.Selector.SelectByValue("gemini"))
	require.True(t, sess.Navigator.GoToStep(wizard.StepReview))

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = step(t, m, runCmd(context.Background(), sess)())
	require.Error(t, m.runErr)
	assert.True(t, m.frame.Retry)
	assert.Equal(t, "onboard exited 1", m.frame.Log)
	assert.Contains(t, m.View(), "Press r to retry")

	api.mu.Lock()
	api.runFail = false
	api.mu.Unlock()
	m, cmd := press(t, m, keyRune('r'))
	require.NotNil(t, cmd)
	m = step(t, m, runCmd(context.Background(), sess)())
	assert.True(t, m.frame.Complete)
	assert.False(t, m.frame.Retry)
}

func TestModelDashboardToken(t *testing.T) {
	var copied string
	m, _ := newTestModel(t, &fakeSetupAPI{}, Options{Copy: func(s string) error {
		copied = s
		return nil
	}})

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	require.NotNil(t, cmd)
	assert.Equal(t, tabDashboard, m.tabs.ActiveID())
	assert.True(t, m.bridge.Attached())
	m = step(t, m, cmd())
	assert.Contains(t, m.View(), "Gateway")

	m, cmd = press(t, m, keyRune('t'))
	require.NotNil(t, cmd)
	m = step(t, m, cmd())
	assert.Equal(t, "gw-token", copied)
	assert.True(t, m.modal.Visible)
	assert.Equal(t, "gw-token", m.modal.Raw)
	assert.Equal(t, "Gateway token copied to clipboard", m.status)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.modal.Visible)
}

func TestModelDashboardResetNeedsConfirm(t *testing.T) {
	api := &fakeSetupAPI{}
	m, _ := newTestModel(t, api, Options{})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})

	m, cmd := press(t, m, keyRune('y'))
	assert.Nil(t, cmd)

	m, _ = press(t, m, keyRune('x'))
	assert.True(t, m.resetArmed)
	m, _ = press(t, m, keyRune('r'))
	assert.False(t, m.resetArmed)

	m, _ = press(t, m, keyRune('x'))
	m, cmd = press(t, m, keyRune('y'))
	require.NotNil(t, cmd)
	m = step(t, m, cmd())
	assert.Equal(t, int32(1), api.resets.Load())
	assert.Contains(t, m.status, "Configuration reset")
}

func TestModelDashboardConsoleAndPairing(t *testing.T) {
	api := &fakeSetupAPI{}
	m, _ := newTestModel(t, api, Options{})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})

	m, cmd := press(t, m, keyRune('d'))
	require.NotNil(t, cmd)
	m = step(t, m, cmd())
	assert.True(t, m.modal.Visible)
	assert.Equal(t, "all checks passed", m.modal.Raw)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	api.mu.Lock()
	require.Len(t, api.console, 1)
	assert.Equal(t, domain.ConsoleDoctor, api.console[0].Command)
	api.mu.Unlock()

	// Focus the pairing code field and submit a code.
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 2, m.dashFocus)
	m.dashFields[1].SetValue("ABC123")
	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	next, cmd := m.Update(cmd())
	m = next.(Model)
	require.NotNil(t, cmd)
	m = step(t, m, cmd())

	api.mu.Lock()
	require.Len(t, api.pairs, 1)
	assert.Equal(t, "telegram", api.pairs[0].Channel)
	assert.Equal(t, "ABC123", api.pairs[0].Code)
	api.mu.Unlock()
}

func TestModelApproveFromReview(t *testing.T) {
	m, sess := newTestModel(t, &fakeSetupAPI{}, Options{})
	require.True(t, sess.Navigator.GoToStep(wizard.StepReview))
	m.bridge.RenderDevices([]string{"dev-1"})
	m = step(t, m, FrameMsg{})

	m, cmd := press(t, m, keyRune('a'))
	require.NotNil(t, cmd)
	assert.True(t, m.frame.Devices[0].Approving)

	// Approving rows ignore a second press.
	_, again := press(t, m, keyRune('a'))
	assert.Nil(t, again)

	m = step(t, m, cmd())
	assert.Contains(t, m.status, "Approved dev-1")
	assert.Empty(t, m.frame.Devices)
	assert.Equal(t, pairing.ConnectedMessage, m.frame.DevicesEmpty)
}

func TestModelErrorsAreHumanized(t *testing.T) {
	m, _ := newTestModel(t, &fakeSetupAPI{}, Options{})
	m = step(t, m, copiedMsg{what: "Gateway token", err: errors.New("no clipboard utility")})
	require.NotNil(t, m.statusErr)
	assert.Empty(t, m.status)

	m = step(t, m, copiedMsg{what: "Gateway token"})
	assert.Nil(t, m.statusErr)
	assert.Equal(t, "Gateway token copied to clipboard", m.status)
}

func TestModelCopyWithoutClipboard(t *testing.T) {
	msg := copyCmd(nil, "Gateway token", "tok")()
	done, ok := msg.(copiedMsg)
	require.True(t, ok)
	assert.Error(t, done.err)
}
