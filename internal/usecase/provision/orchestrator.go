// Package provision runs the setup submission and walks the progress
// timeline through to the device approval phase.
package provision

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"openclaw-setup/internal/domain"
	"openclaw-setup/internal/infra/tracer"
	"openclaw-setup/internal/usecase/pairing"
	"openclaw-setup/internal/usecase/wizard"
)

// Notification texts.
const (
	MsgSelectProvider   = "Please select an AI provider first"
	MsgSetupComplete    = "Setup completed successfully!"
	MsgSetupFailed      = "Setup failed - check the log below"
	MsgTailscaleStart   = "Setting up Tailscale (may install first, this can take a minute)..."
	MsgTailscaleOK      = "Tailscale configured successfully"
	msgTailscaleUnknown = "unknown error"
)

// NoticeKind is the severity of a user notification.
type NoticeKind string

const (
	NoticeInfo    NoticeKind = "info"
	NoticeSuccess NoticeKind = "success"
	NoticeWarning NoticeKind = "warning"
	NoticeError   NoticeKind = "error"
)

// Presenter receives everything a run shows outside the stage timeline.
type Presenter interface {
	Notify(kind NoticeKind, msg string)
	ShowLog(output string)
	ShowRetry()
	ShowComplete(gatewayToken string)
	ShowTailscale(status domain.TailscaleStatus)
}

// StepNavigator moves the wizard back to a step.
type StepNavigator interface {
	GoToStep(step int) bool
}

// DevicePoller starts device approval polling after a successful run.
type DevicePoller interface {
	Start(ctx context.Context) *pairing.Handle
}

// Delays are the synthetic durations of the stages the gateway reports no
// progress for.
type Delays struct {
	Token    time.Duration
	Channels time.Duration
	Gateway  time.Duration
	Health   time.Duration
}

// DefaultDelays returns the standard stage timing.
func DefaultDelays() Delays {
	return Delays{
		Token:    500 * time.Millisecond,
		Channels: 500 * time.Millisecond,
		Gateway:  1000 * time.Millisecond,
		Health:   500 * time.Millisecond,
	}
}

// Deps holds the orchestrator's collaborators. API and State are required.
type Deps struct {
	API       domain.ProvisionAPI
	State     *wizard.State
	Tracker   *Tracker
	Navigator StepNavigator
	Presenter Presenter
	Tokens    domain.TokenStore
	History   domain.RunHistory
	Poller    DevicePoller
	Delays    Delays
	// Timeout bounds the whole run. Zero means no limit.
	Timeout time.Duration
	Logger  *slog.Logger

	// Sleep and Now are overridable for tests.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// Result describes a completed run.
type Result struct {
	RunID        string
	Output       string
	GatewayToken string
	// Warnings lists failures of non-fatal sub-calls (Tailscale).
	Warnings []string
	Stages   []domain.StageState
	// Poller is the device approval loop started on success, or nil.
	Poller *pairing.Handle
}

// Orchestrator runs one provisioning attempt at a time.
type Orchestrator struct {
	deps    Deps
	running atomic.Bool
}

// NewOrchestrator creates an Orchestrator, filling unset optional deps.
func NewOrchestrator(deps Deps) *Orchestrator {
	if deps.Tracker == nil {
		deps.Tracker = NewTracker(nil)
	}
	if deps.Presenter == nil {
		deps.Presenter = NopPresenter{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Sleep == nil {
		deps.Sleep = sleepCtx
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Orchestrator{deps: deps}
}

// Running reports whether a run is in flight.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// Tracker returns the stage tracker.
func (o *Orchestrator) Tracker() *Tracker {
	return o.deps.Tracker
}

// Run submits the current wizard answers and walks the stage timeline.
// A second call while a run is in flight fails with ErrRunInProgress and
// performs no request.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	const op = "Orchestrator.Run"

	if !o.running.CompareAndSwap(false, true) {
		return nil, domain.NewDomainError(op, domain.ErrRunInProgress, "")
	}
	defer o.running.Store(false)

	form, selected := o.deps.State.Snapshot()
	if form.AuthChoice == "" && selected == nil {
		o.deps.Presenter.Notify(NoticeWarning, MsgSelectProvider)
		if o.deps.Navigator != nil {
			o.deps.Navigator.GoToStep(wizard.StepProvider)
		}
		return nil, domain.NewDomainError(op, domain.ErrNoProvider, "")
	}

	if o.deps.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.deps.Timeout)
		defer cancel()
	}

	started := o.deps.Now()
	res := &Result{RunID: newRunID(started)}
	logger := o.deps.Logger.With("run_id", res.RunID)

	ctx, span := tracer.StartSpan(ctx, "provision.run",
		trace.WithAttributes(
			tracer.StringAttr("run.id", res.RunID),
			tracer.StringAttr("auth.choice", form.AuthChoice),
		),
	)
	defer span.End()

	err := o.run(ctx, logger, form, res)
	res.Stages = o.deps.Tracker.Snapshot()
	o.record(ctx, logger, started, form, res, err)

	if err != nil {
		tracer.RecordError(span, err)
		return res, err
	}
	tracer.SetOK(span)
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, logger *slog.Logger, form wizard.Form, res *Result) error {
	const op = "Orchestrator.Run"
	t := o.deps.Tracker
	p := o.deps.Presenter

	t.Reset()
	payload := wizard.BuildPayload(form)
	o.mark(logger, domain.StageOnboard, domain.StatusActive)

	logger.Info("submitting setup run", "flow", payload.Flow, "auth_choice", payload.AuthChoice)
	resp, err := o.deps.API.Run(ctx, payload)
	if err != nil {
		o.mark(logger, domain.StageOnboard, domain.StatusError)
		p.Notify(NoticeError, "Error: "+err.Error())
		p.ShowRetry()
		logger.Error("setup run request failed", "error", err)
		return domain.NewDomainError(op, domain.ErrTransport, err.Error())
	}

	res.Output = resp.Output
	if !resp.OK {
		o.mark(logger, domain.StageOnboard, domain.StatusError)
		p.Notify(NoticeError, MsgSetupFailed)
		p.ShowRetry()
		if resp.Output != "" {
			p.ShowLog(resp.Output)
		}
		detail := resp.Error
		if detail == "" {
			detail = "onboarding failed"
		}
		logger.Warn("setup run reported failure", "error", detail)
		return domain.NewDomainError(op, domain.ErrBackend, detail)
	}
	o.mark(logger, domain.StageOnboard, domain.StatusDone)

	if resp.GatewayToken != "" {
		res.GatewayToken = resp.GatewayToken
		if o.deps.Tokens != nil {
			if err := o.deps.Tokens.SaveToken(ctx, resp.GatewayToken); err != nil {
				logger.Warn("persist gateway token failed", "error", err)
			}
		}
	}

	if err := o.synthetic(ctx, logger, domain.StageToken, o.deps.Delays.Token); err != nil {
		return err
	}
	if err := o.synthetic(ctx, logger, domain.StageChannels, o.deps.Delays.Channels); err != nil {
		return err
	}
	if warn := o.tailscale(ctx, logger, form); warn != "" {
		res.Warnings = append(res.Warnings, warn)
	}
	if err := o.synthetic(ctx, logger, domain.StageGateway, o.deps.Delays.Gateway); err != nil {
		return err
	}
	if err := o.synthetic(ctx, logger, domain.StageHealth, o.deps.Delays.Health); err != nil {
		return err
	}

	p.Notify(NoticeSuccess, MsgSetupComplete)
	if resp.Output != "" {
		p.ShowLog(resp.Output)
	}
	p.ShowComplete(res.GatewayToken)

	if o.deps.Poller != nil {
		res.Poller = o.deps.Poller.Start(context.WithoutCancel(ctx))
	}
	logger.Info("setup run completed", "warnings", len(res.Warnings))
	return nil
}

// synthetic completes a stage after a fixed delay. A cancelled context
// marks the stage as failed and offers a retry.
func (o *Orchestrator) synthetic(ctx context.Context, logger *slog.Logger, stage domain.Stage, d time.Duration) error {
	o.mark(logger, stage, domain.StatusActive)
	if err := o.deps.Sleep(ctx, d); err != nil {
		o.mark(logger, stage, domain.StatusError)
		o.deps.Presenter.Notify(NoticeError, "Error: "+err.Error())
		o.deps.Presenter.ShowRetry()
		return domain.NewDomainError("Orchestrator.Run", err, string(stage))
	}
	o.mark(logger, stage, domain.StatusDone)
	return nil
}

// tailscale runs the configure sub-call when enabled. It returns a warning
// text on failure; the stage is marked error but the run goes on.
func (o *Orchestrator) tailscale(ctx context.Context, logger *slog.Logger, form wizard.Form) string {
	if !form.Tailscale.Enabled {
		o.mark(logger, domain.StageTailscale, domain.StatusDone)
		return ""
	}
	o.mark(logger, domain.StageTailscale, domain.StatusActive)

	req, ok := form.TailscaleRequest()
	if !ok {
		o.mark(logger, domain.StageTailscale, domain.StatusDone)
		return ""
	}

	ctx, span := tracer.StartSpan(ctx, "provision.tailscale",
		trace.WithAttributes(tracer.StringAttr("tailscale.hostname", req.Hostname)),
	)
	defer span.End()

	p := o.deps.Presenter
	p.Notify(NoticeInfo, MsgTailscaleStart)

	status, err := o.deps.API.ConfigureTailscale(ctx, req)
	var msg string
	switch {
	case err != nil:
		msg = "Tailscale error: " + err.Error()
	case !status.OK:
		detail := status.Error
		if detail == "" {
			detail = msgTailscaleUnknown
		}
		msg = "Tailscale setup failed: " + detail
	}
	if msg != "" {
		tracer.RecordError(span, errors.New(msg))
		logger.Warn("tailscale configure failed", "error", msg)
		p.Notify(NoticeError, msg)
		o.mark(logger, domain.StageTailscale, domain.StatusError)
		return msg
	}

	tracer.SetOK(span)
	p.Notify(NoticeSuccess, MsgTailscaleOK)
	p.ShowTailscale(*status)
	o.mark(logger, domain.StageTailscale, domain.StatusDone)
	return ""
}

func (o *Orchestrator) mark(logger *slog.Logger, stage domain.Stage, status domain.StageStatus) {
	if err := o.deps.Tracker.Set(stage, status); err != nil {
		logger.Error("stage transition rejected", "stage", stage, "status", status, "error", err)
		return
	}
	logger.Debug("stage", "stage", stage, "status", status)
}

func (o *Orchestrator) record(ctx context.Context, logger *slog.Logger, started time.Time, form wizard.Form, res *Result, runErr error) {
	if o.deps.History == nil {
		return
	}
	rec := domain.RunRecord{
		ID:         res.RunID,
		StartedAt:  started,
		FinishedAt: o.deps.Now(),
		Outcome:    domain.OutcomeSuccess,
		Provider:   form.Provider,
		AuthChoice: form.AuthChoice,
		Stages:     res.Stages,
	}
	switch {
	case runErr != nil:
		rec.Outcome = domain.OutcomeFailed
		rec.Error = runErr.Error()
	case len(res.Warnings) > 0:
		rec.Outcome = domain.OutcomeWarning
		rec.Error = res.Warnings[0]
	}
	// The caller's context may already be done when the run failed on it.
	if err := o.deps.History.RecordRun(context.WithoutCancel(ctx), rec); err != nil {
		logger.Warn("record run history failed", "error", err)
	}
}

func newRunID(t time.Time) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NopPresenter discards run output.
type NopPresenter struct{}

func (NopPresenter) Notify(NoticeKind, string) {}
func (NopPresenter) ShowLog(string) {}
func (NopPresenter) ShowRetry() {}
func (NopPresenter) ShowComplete(string) {}
func (NopPresenter) ShowTailscale(domain.TailscaleStatus) {}
