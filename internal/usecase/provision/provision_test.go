package provision

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openclaw-setup/internal/domain"
	"openclaw-setup/internal/usecase/pairing"
	"openclaw-setup/internal/usecase/wizard"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAPI struct {
	mu         sync.Mutex
	runResp    *domain.RunResponse
	runErr     error
	runCalls   []domain.RunPayload
	block      chan struct{}
	tsStatus   *domain.TailscaleStatus
	tsErr      error
	tsRequests []domain.TailscaleConfigureRequest
}

func (f *fakeAPI) Run(ctx context.Context, payload domain.RunPayload) (*domain.RunResponse, error) {
	f.mu.Lock()
	f.runCalls = append(f.runCalls, payload)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.runErr != nil {
		return nil, f.runErr
	}
	if f.runResp != nil {
		return f.runResp, nil
	}
	return &domain.RunResponse{OK: true, Output: "onboarded", GatewayToken: "gw-token"}, nil
}

func (f *fakeAPI) ConfigureTailscale(_ context.Context, req domain.TailscaleConfigureRequest) (*domain.TailscaleStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tsRequests = append(f.tsRequests, req)
	if f.tsErr != nil {
		return nil, f.tsErr
	}
	if f.tsStatus != nil {
		return f.tsStatus, nil
	}
	return &domain.TailscaleStatus{OK: true, Connected: true, Hostname: req.Hostname, IP: "100.64.0.1"}, nil
}

func (f *fakeAPI) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runCalls)
}

type notice struct {
	kind NoticeKind
	msg  string
}

type fakePresenter struct {
	mu        sync.Mutex
	notices   []notice
	logs      []string
	retries   int
	completed []string
	tailscale []domain.TailscaleStatus
}

func (p *fakePresenter) Notify(kind NoticeKind, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, notice{kind, msg})
}

func (p *fakePresenter) ShowLog(output string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logs = append(p.logs, output)
}

func (p *fakePresenter) ShowRetry() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.retries++
}

func (p *fakePresenter) ShowComplete(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, token)
}

func (p *fakePresenter) ShowTailscale(s domain.TailscaleStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tailscale = append(p.tailscale, s)
}

type fakeNav struct{ steps []int }

func (n *fakeNav) GoToStep(step int) bool {
	n.steps = append(n.steps, step)
	return true
}

type fakeTokens struct {
	saved []string
	err   error
}

func (t *fakeTokens) SaveToken(_ context.Context, token string) error {
	t.saved = append(t.saved, token)
	return t.err
}

func (t *fakeTokens) LoadToken(context.Context) (string, error) {
	if len(t.saved) == 0 {
		return "", domain.ErrNotFound
	}
	return t.saved[len(t.saved)-1], nil
}

type fakeHistory struct {
	mu   sync.Mutex
	recs []domain.RunRecord
}

func (h *fakeHistory) RecordRun(_ context.Context, rec domain.RunRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recs = append(h.recs, rec)
	return nil
}

func (h *fakeHistory) ListRuns(context.Context, int) ([]domain.RunRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.recs, nil
}

type fakePoller struct{ starts int }

func (p *fakePoller) Start(context.Context) *pairing.Handle {
	p.starts++
	return nil
}

type stageEvent struct {
	stage  domain.Stage
	status domain.StageStatus
}

type recordingSink struct {
	mu     sync.Mutex
	events []stageEvent
}

func (s *recordingSink) StageChanged(stage domain.Stage, status domain.StageStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, stageEvent{stage, status})
}

type harness struct {
	api       *fakeAPI
	state     *wizard.State
	presenter *fakePresenter
	nav       *fakeNav
	tokens    *fakeTokens
	history   *fakeHistory
	poller    *fakePoller
	sink      *recordingSink
	sleeps    []time.Duration
	orch      *Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		api:       &fakeAPI{},
		presenter: &fakePresenter{},
		nav:       &fakeNav{},
		tokens:    &fakeTokens{},
		history:   &fakeHistory{},
		poller:    &fakePoller{},
		sink:      &recordingSink{},
	}
	form := wizard.DefaultForm()
	form.Provider = "anthropic"
	form.AuthChoice = "anthropic-api-key"
	form.AuthSecret = "sk-ant-1"
	h.state = wizard.NewState(form)

	h.orch = NewOrchestrator(Deps{
		API:       h.api,
		State:     h.state,
		Tracker:   NewTracker(h.sink),
		Navigator: h.nav,
		Presenter: h.presenter,
		Tokens:    h.tokens,
		History:   h.history,
		Poller:    h.poller,
		Delays:    DefaultDelays(),
		Logger:    discardLogger(),
		Sleep: func(ctx context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			return ctx.Err()
		},
	})
	return h
}

func statusOf(stages []domain.StageState, s domain.Stage) domain.StageStatus {
	for _, st := range stages {
		if st.Stage == s {
			return st.Status
		}
	}
	return ""
}

func TestRunSuccess(t *testing.T) {
	h := newHarness(t)

	res, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "gw-token", res.GatewayToken)
	assert.Empty(t, res.Warnings)
	for _, s := range res.Stages {
		assert.Equal(t, domain.StatusDone, s.Status, s.Stage)
	}

	assert.Equal(t, []time.Duration{
		500 * time.Millisecond, 500 * time.Millisecond, 1000 * time.Millisecond, 500 * time.Millisecond,
	}, h.sleeps)
	assert.Equal(t, []string{"gw-token"}, h.tokens.saved)
	assert.Equal(t, []string{"gw-token"}, h.presenter.completed)
	assert.Contains(t, h.presenter.notices, notice{NoticeSuccess, MsgSetupComplete})
	assert.Equal(t, []string{"onboarded"}, h.presenter.logs)
	assert.Equal(t, 1, h.poller.starts)
	assert.False(t, h.orch.Running())

	require.Len(t, h.history.recs, 1)
	assert.Equal(t, domain.OutcomeSuccess, h.history.recs[0].Outcome)
	assert.Equal(t, res.RunID, h.history.recs[0].ID)
	assert.Equal(t, "anthropic", h.history.recs[0].Provider)
}

func TestRunStageOrder(t *testing.T) {
	h := newHarness(t)
	_, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	var order []domain.Stage
	for _, e := range h.sink.events {
		if e.status == domain.StatusActive {
			order = append(order, e.stage)
		}
	}
	// Tailscale is disabled, so it completes without becoming active.
	assert.Equal(t, []domain.Stage{
		domain.StageOnboard, domain.StageToken, domain.StageChannels, domain.StageGateway, domain.StageHealth,
	}, order)
}

func TestRunTailscaleDisabledMakesNoCall(t *testing.T) {
	h := newHarness(t)
	h.state.Update(func(f *wizard.Form) {
		f.Tailscale.AuthKey = "tskey-auth-abc"
	})

	res, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, statusOf(res.Stages, domain.StageTailscale))
	assert.Empty(t, h.api.tsRequests)
}

func TestRunTailscaleEnabled(t *testing.T) {
	h := newHarness(t)
	h.state.Update(func(f *wizard.Form) {
		f.Tailscale = wizard.TailscaleSettings{Enabled: true, AuthKey: " tskey-auth-abc "}
	})

	res, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, h.api.tsRequests, 1)
	assert.Equal(t, domain.TailscaleConfigureRequest{AuthKey: "tskey-auth-abc", Hostname: wizard.DefaultTailscaleHostname}, h.api.tsRequests[0])
	assert.Equal(t, domain.StatusDone, statusOf(res.Stages, domain.StageTailscale))
	require.Len(t, h.presenter.tailscale, 1)
	assert.True(t, h.presenter.tailscale[0].Connected)
}

func TestRunTailscaleEnabledWithoutKey(t *testing.T) {
	h := newHarness(t)
	h.state.Update(func(f *wizard.Form) { f.Tailscale.Enabled = true })

	res, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h.api.tsRequests)
	assert.Equal(t, domain.StatusDone, statusOf(res.Stages, domain.StageTailscale))
}

func TestRunTailscaleFailureContinues(t *testing.T) {
	tests := []struct {
		name    string
		status  *domain.TailscaleStatus
		err     error
		warning string
	}{
		{"backend", &domain.TailscaleStatus{OK: false, Error: "bad key"}, nil, "Tailscale setup failed: bad key"},
		{"backend no detail", &domain.TailscaleStatus{OK: false}, nil, "Tailscale setup failed: unknown error"},
		{"transport", nil, errors.New("dial tcp: refused"), "Tailscale error: dial tcp: refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.api.tsStatus = tt.status
			h.api.tsErr = tt.err
			h.state.Update(func(f *wizard.Form) {
				f.Tailscale = wizard.TailscaleSettings{Enabled: true, AuthKey: "tskey-auth-abc"}
			})

			res, err := h.orch.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, []string{tt.warning}, res.Warnings)
			assert.Equal(t, domain.StatusError, statusOf(res.Stages, domain.StageTailscale))
			assert.Equal(t, domain.StatusDone, statusOf(res.Stages, domain.StageChannels))
			assert.Equal(t, domain.StatusDone, statusOf(res.Stages, domain.StageHealth))
			assert.Contains(t, h.presenter.notices, notice{NoticeError, tt.warning})
			assert.Equal(t, domain.OutcomeWarning, h.history.recs[0].Outcome)
		})
	}
}

func TestRunBackendFailure(t *testing.T) {
	h := newHarness(t)
	h.api.runResp = &domain.RunResponse{OK: false, Output: "onboard: invalid key", Error: "exit 1"}

	res, err := h.orch.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBackend)

	assert.Equal(t, domain.StatusError, statusOf(res.Stages, domain.StageOnboard))
	for _, s := range res.Stages[1:] {
		assert.Equal(t, domain.StatusPending, s.Status, s.Stage)
	}
	assert.Empty(t, h.sleeps)
	assert.Contains(t, h.presenter.notices, notice{NoticeError, MsgSetupFailed})
	assert.Equal(t, []string{"onboard: invalid key"}, h.presenter.logs)
	assert.Equal(t, 1, h.presenter.retries)
	assert.Empty(t, h.tokens.saved)
	assert.Zero(t, h.poller.starts)
	assert.False(t, h.orch.Running())
	assert.Equal(t, domain.OutcomeFailed, h.history.recs[0].Outcome)
}

func TestRunTransportFailure(t *testing.T) {
	h := newHarness(t)
	h.api.runErr = errors.New("connection reset")

	res, err := h.orch.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, domain.StatusError, statusOf(res.Stages, domain.StageOnboard))
	assert.Equal(t, domain.StatusPending, statusOf(res.Stages, domain.StageToken))
	assert.Contains(t, h.presenter.notices, notice{NoticeError, "Error: connection reset"})
	assert.Equal(t, 1, h.presenter.retries)
	assert.False(t, h.orch.Running())
}

func TestRunRetryAfterFailure(t *testing.T) {
	h := newHarness(t)
	h.api.runErr = errors.New("connection reset")
	_, err := h.orch.Run(context.Background())
	require.Error(t, err)

	h.api.runErr = nil
	res, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, statusOf(res.Stages, domain.StageOnboard))
	assert.NotEqual(t, h.history.recs[0].ID, h.history.recs[1].ID)
}

func TestRunNoProvider(t *testing.T) {
	h := newHarness(t)
	h.state.Update(func(f *wizard.Form) { f.AuthChoice = "" })

	_, err := h.orch.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoProvider)
	assert.Zero(t, h.api.runCount())
	assert.Equal(t, []int{wizard.StepProvider}, h.nav.steps)
	assert.Equal(t, []notice{{NoticeWarning, MsgSelectProvider}}, h.presenter.notices)
	assert.False(t, h.orch.Running())
	assert.Empty(t, h.history.recs)
}

func TestRunRejectedWhileRunning(t *testing.T) {
	h := newHarness(t)
	h.api.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := h.orch.Run(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return h.api.runCount() == 1 }, time.Second, time.Millisecond)
	assert.True(t, h.orch.Running())

	_, err := h.orch.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrRunInProgress)
	assert.Equal(t, 1, h.api.runCount(), "rejected run must not reach the backend")

	close(h.api.block)
	require.NoError(t, <-done)
	assert.False(t, h.orch.Running())
}

func TestRunHungBackendStaysRunningUntilCancel(t *testing.T) {
	h := newHarness(t)
	h.api.block = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := h.orch.Run(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool { return h.api.runCount() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.True(t, h.orch.Running())

	cancel()
	err := <-done
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.False(t, h.orch.Running())
}

func TestRunTimeout(t *testing.T) {
	h := newHarness(t)
	h.api.block = make(chan struct{})
	h.orch.deps.Timeout = 10 * time.Millisecond

	_, err := h.orch.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.False(t, h.orch.Running())
}

func TestRunCancelledDuringSyntheticStage(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	h.orch.deps.Sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	res, err := h.orch.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.StatusDone, statusOf(res.Stages, domain.StageOnboard))
	assert.Equal(t, domain.StatusError, statusOf(res.Stages, domain.StageToken))
	assert.Equal(t, domain.StatusPending, statusOf(res.Stages, domain.StageChannels))
	assert.Equal(t, 1, h.presenter.retries)
	require.Len(t, h.history.recs, 1, "history is recorded even after cancellation")
}

func TestRunTokenStoreFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.tokens.err = errors.New("disk full")

	_, err := h.orch.Run(context.Background())
	require.NoError(t, err)
}

func TestRunWithoutToken(t *testing.T) {
	h := newHarness(t)
	h.api.runResp = &domain.RunResponse{OK: true}

	res, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.GatewayToken)
	assert.Empty(t, h.tokens.saved)
	assert.Empty(t, h.presenter.logs)
}

func TestRunPayloadFromForm(t *testing.T) {
	h := newHarness(t)
	h.state.Update(func(f *wizard.Form) {
		f.Telegram = wizard.ChannelToggle{Enabled: false, Token: "123:abc"}
		f.Discord = wizard.ChannelToggle{Enabled: true, Token: "d"}
	})

	_, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, h.api.runCalls, 1)
	p := h.api.runCalls[0]
	assert.Nil(t, p.TelegramToken)
	require.NotNil(t, p.DiscordToken)
	assert.Equal(t, "sk-ant-1", p.AuthSecret)
}

func TestTrackerRejectsRegression(t *testing.T) {
	tr := NewTracker(nil)
	require.NoError(t, tr.Set(domain.StageOnboard, domain.StatusActive))
	require.NoError(t, tr.Set(domain.StageOnboard, domain.StatusDone))

	err := tr.Set(domain.StageOnboard, domain.StatusActive)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, domain.StatusDone, tr.Status(domain.StageOnboard))

	assert.ErrorIs(t, tr.Set(domain.StageOnboard, domain.StatusPending), domain.ErrInvalidTransition)
	assert.ErrorIs(t, tr.Set(domain.Stage("bogus"), domain.StatusDone), domain.ErrNotFound)

	tr.Reset()
	assert.Equal(t, domain.StatusPending, tr.Status(domain.StageOnboard))
}

func TestTrackerSnapshotOrder(t *testing.T) {
	tr := NewTracker(nil)
	snap := tr.Snapshot()
	require.Len(t, snap, len(domain.Stages()))
	for i, s := range domain.Stages() {
		assert.Equal(t, s, snap[i].Stage)
		assert.Equal(t, domain.StatusPending, snap[i].Status)
	}
}

func TestSleepCtx(t *testing.T) {
	assert.NoError(t, sleepCtx(context.Background(), 0))
	assert.NoError(t, sleepCtx(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}
