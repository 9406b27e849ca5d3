// Package pairing polls the gateway for pending device pairing requests and
// approves them.
package pairing

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"openclaw-setup/internal/domain"
)

// Empty-state messages.
const (
	EmptyMessage     = "No pending devices"
	ConnectedMessage = "All devices connected!"
)

// View is where the poller renders the pending list.
type View interface {
	// Attached reports whether the device list is still on screen. The
	// poller stops at the first tick that finds it detached.
	Attached() bool
	RenderDevices(ids []string)
	RenderOffline()
	RenderEmpty(message string)
	RenderApproved(id string)
	RenderRemoved(id string)
	RenderApproveFailed(id string, err error)
}

// Config controls poll cadence.
type Config struct {
	Interval    time.Duration // default 3s
	RemoveDelay time.Duration // how long an approved row stays visible; 0 removes at once
}

// Poller tracks pending device requests for one wizard session.
type Poller struct {
	api    domain.DeviceAPI
	view   View
	cfg    Config
	logger *slog.Logger

	// renderMu orders list renders so a poll never paints over a removal.
	renderMu sync.Mutex

	mu       sync.Mutex
	rows     []string
	approved map[string]struct{}
	removals map[string]*time.Timer
	anyOK    bool
	loops    int
}

// NewPoller creates a Poller.
func NewPoller(api domain.DeviceAPI, view View, cfg Config, logger *slog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	if cfg.RemoveDelay < 0 {
		cfg.RemoveDelay = 0
	}
	return &Poller{
		api:      api,
		view:     view,
		cfg:      cfg,
		logger:   logger,
		approved: make(map[string]struct{}),
		removals: make(map[string]*time.Timer),
	}
}

// Handle controls a running poll loop. It is owned by whoever called Start.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Stop ends the loop and waits for the in-flight tick to return.
// It is safe to call more than once and on a nil Handle.
func (h *Handle) Stop() {
	if h == nil {
		return
	}
	h.once.Do(h.cancel)
	<-h.done
}

// Done is closed when the loop has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Start runs the poll loop in the background: one tick immediately, then one
// per interval until the handle is stopped, ctx ends or the view detaches.
func (p *Poller) Start(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	p.mu.Lock()
	if p.loops > 0 {
		p.logger.Debug("device poller started while another loop is running", "loops", p.loops)
	}
	p.loops++
	p.mu.Unlock()

	go p.loop(ctx, h)
	return h
}

func (p *Poller) loop(ctx context.Context, h *Handle) {
	defer func() {
		p.mu.Lock()
		p.loops--
		if p.loops == 0 {
			p.dropRemovals()
		}
		p.mu.Unlock()
		h.cancel()
		close(h.done)
	}()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		if !p.tick(ctx) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// tick runs one poll and reports whether the loop should continue.
func (p *Poller) tick(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	if !p.view.Attached() {
		p.logger.Debug("device list detached, stopping poller")
		return false
	}
	if err := p.Poll(ctx); err != nil && ctx.Err() != nil {
		return false
	}
	return true
}

// Poll fetches the pending list once and renders it. On a fetch error the
// offline indicator is shown and the previous rows stay displayed.
func (p *Poller) Poll(ctx context.Context) error {
	ids, err := p.api.PendingDevices(ctx)
	if err != nil {
		p.logger.Debug("pending devices fetch failed", "error", err)
		p.view.RenderOffline()
		return err
	}

	p.renderMu.Lock()
	defer p.renderMu.Unlock()

	p.mu.Lock()
	rows := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, done := p.approved[id]; !done {
			rows = append(rows, id)
		}
	}
	p.rows = rows
	connected := p.anyOK
	p.mu.Unlock()

	if len(rows) == 0 {
		if connected {
			p.view.RenderEmpty(ConnectedMessage)
		} else {
			p.view.RenderEmpty(EmptyMessage)
		}
		return nil
	}
	p.view.RenderDevices(slices.Clone(rows))
	return nil
}

// Pending returns the rows currently displayed.
func (p *Poller) Pending() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.rows)
}

// Approve confirms one pending request. On success the id is suppressed from
// later polls and its row is removed after the configured delay. On failure
// the row is re-enabled for retry.
func (p *Poller) Approve(ctx context.Context, requestID string) error {
	res, err := p.api.ApproveDevice(ctx, domain.DeviceApproveRequest{RequestID: requestID})
	if err == nil && !res.OK {
		err = domain.NewDomainError("Poller.Approve", domain.ErrBackend, res.Message())
	}
	if err != nil {
		p.logger.Warn("device approval failed", "request_id", requestID, "error", err)
		p.view.RenderApproveFailed(requestID, err)
		return err
	}

	p.mu.Lock()
	p.approved[requestID] = struct{}{}
	p.anyOK = true
	p.mu.Unlock()

	p.logger.Info("device approved", "request_id", requestID)
	p.view.RenderApproved(requestID)

	if p.cfg.RemoveDelay == 0 {
		p.removeRow(requestID)
	} else {
		p.mu.Lock()
		if t, ok := p.removals[requestID]; ok {
			t.Stop()
		}
		p.removals[requestID] = time.AfterFunc(p.cfg.RemoveDelay, func() {
			p.mu.Lock()
			delete(p.removals, requestID)
			p.mu.Unlock()
			p.removeRow(requestID)
		})
		p.mu.Unlock()
	}
	return nil
}

// ApproveFunc returns the approve action bound to this poller, for views
// that attach it to each rendered row.
func (p *Poller) ApproveFunc() func(ctx context.Context, requestID string) error {
	return p.Approve
}

func (p *Poller) removeRow(id string) {
	p.renderMu.Lock()
	defer p.renderMu.Unlock()

	p.mu.Lock()
	p.rows = slices.DeleteFunc(p.rows, func(r string) bool { return r == id })
	remaining := len(p.rows)
	p.mu.Unlock()

	if !p.view.Attached() {
		return
	}
	p.view.RenderRemoved(id)
	if remaining == 0 {
		p.view.RenderEmpty(ConnectedMessage)
	}
}

// dropRemovals cancels pending row removals once no loop is left to own
// the view. The rows are dropped without rendering. Callers hold p.mu.
func (p *Poller) dropRemovals() {
	for id, t := range p.removals {
		if t.Stop() {
			p.rows = slices.DeleteFunc(p.rows, func(r string) bool { return r == id })
		}
		delete(p.removals, id)
	}
}

// Approved reports whether id was approved by this poller.
func (p *Poller) Approved(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.approved[id]
	return ok
}

// ApprovePairing approves a pairing code a user received on a channel.
func ApprovePairing(ctx context.Context, api domain.DeviceAPI, channel, code string) (*domain.ActionResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.NewDomainError("ApprovePairing", domain.ErrValidation, "enter a pairing code")
	}
	res, err := api.ApprovePairing(ctx, domain.PairingApproveRequest{Code: code, Channel: channel})
	if err != nil {
		return nil, err
	}
	if !res.OK {
		return res, domain.NewDomainError("ApprovePairing", domain.ErrBackend, res.Message())
	}
	return res, nil
}
