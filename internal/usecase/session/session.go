// Package session wires one wizard instance: form state, navigation,
// provider selection, the run orchestrator and the device poller share a
// lifetime that starts at New and ends at Close.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"openclaw-setup/internal/domain"
	"openclaw-setup/internal/usecase/admin"
	"openclaw-setup/internal/usecase/dashboard"
	"openclaw-setup/internal/usecase/pairing"
	"openclaw-setup/internal/usecase/provision"
	"openclaw-setup/internal/usecase/wizard"
)

// Views are the render sinks for a session. Nil fields discard output.
type Views struct {
	Navigator wizard.NavigatorView
	Selector  wizard.SelectorView
	Presenter provision.Presenter
	Progress  provision.ProgressSink
	Devices   pairing.View
}

// Config carries the tunables a session passes to its components.
type Config struct {
	Form    wizard.Form
	Delays  provision.Delays
	Pairing pairing.Config
	// RunTimeout bounds one run. Zero disables the limit.
	RunTimeout time.Duration
}

// Session is one wizard instance.
type Session struct {
	State     *wizard.State
	Navigator *wizard.Navigator
	Selector  *wizard.Selector
	Poller    *pairing.Poller
	Runner    *provision.Orchestrator
	Dashboard *dashboard.Refresher
	Admin     *admin.Service

	api    domain.SetupAPI
	logger *slog.Logger

	mu     sync.Mutex
	handle *pairing.Handle
	closed bool
}

// Deps are the external collaborators of a session.
type Deps struct {
	API     domain.SetupAPI
	Tokens  domain.TokenStore
	History domain.RunHistory
	Logger  *slog.Logger
}

// New creates a session positioned on step 1.
func New(deps Deps, cfg Config, views Views) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if views.Devices == nil {
		views.Devices = detachedView{}
	}

	state := wizard.NewState(cfg.Form)
	nav := wizard.NewNavigator(state, views.Navigator)
	sel := wizard.NewSelector(state, views.Selector)
	poller := pairing.NewPoller(deps.API, views.Devices, cfg.Pairing, logger.With("component", "pairing"))

	s := &Session{
		State:     state,
		Navigator: nav,
		Selector:  sel,
		Poller:    poller,
		Dashboard: dashboard.NewRefresher(deps.API, sel, logger.With("component", "dashboard")),
		Admin:     admin.NewService(deps.API, deps.Tokens, logger.With("component", "admin")),
		api:       deps.API,
		logger:    logger,
	}
	s.Runner = provision.NewOrchestrator(provision.Deps{
		API:       deps.API,
		State:     state,
		Tracker:   provision.NewTracker(views.Progress),
		Navigator: nav,
		Presenter: views.Presenter,
		Tokens:    deps.Tokens,
		History:   deps.History,
		Poller:    poller,
		Delays:    cfg.Delays,
		Timeout:   cfg.RunTimeout,
		Logger:    logger.With("component", "provision"),
	})
	return s
}

// Run starts a provisioning run. A successful run replaces the previous
// device poller; a failed one leaves it running. The new handle is owned by
// the session until Close, and a run that finishes after Close has its
// poller stopped at once.
func (s *Session) Run(ctx context.Context) (*provision.Result, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, domain.NewDomainError("Session.Run", domain.ErrStopped, "session closed")
	}

	res, err := s.Runner.Run(ctx)
	if res == nil || res.Poller == nil {
		return res, err
	}
	s.adopt(res.Poller)
	return res, err
}

// StartPolling starts the device poller outside a run, for example when the
// gateway is already configured. A running poller is replaced.
func (s *Session) StartPolling(ctx context.Context) *pairing.Handle {
	h := s.Poller.Start(ctx)
	s.adopt(h)
	return h
}

// adopt makes h the session's poller handle and stops the one it replaces.
// After Close, h itself is stopped.
func (s *Session) adopt(h *pairing.Handle) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		h.Stop()
		return
	}
	prev := s.handle
	s.handle = h
	s.mu.Unlock()
	prev.Stop()
}

// Refresh reloads the dashboard panels and the provider options.
func (s *Session) Refresh(ctx context.Context) dashboard.Snapshot {
	return s.Dashboard.Refresh(ctx)
}

// ApprovePairing approves a pairing code received on channel.
func (s *Session) ApprovePairing(ctx context.Context, channel, code string) (*domain.ActionResult, error) {
	return pairing.ApprovePairing(ctx, s.api, channel, code)
}

// Close stops the device poller. Later runs are rejected.
func (s *Session) Close() {
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	s.closed = true
	s.mu.Unlock()
	h.Stop()
}

// detachedView stops the poller on its first tick when the caller supplied
// no device view.
type detachedView struct{}

func (detachedView) Attached() bool { return false }
func (detachedView) RenderDevices([]string) {}
func (detachedView) RenderOffline() {}
func (detachedView) RenderEmpty(string) {}
func (detachedView) RenderApproved(string) {}
func (detachedView) RenderRemoved(string) {}
func (detachedView) RenderApproveFailed(string, error) {}
