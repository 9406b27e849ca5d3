// Package dashboard collects the gateway status panels in one refresh.
package dashboard

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"openclaw-setup/internal/domain"
	"openclaw-setup/internal/infra/tracer"
)

// Channels shown on the dashboard, in display order.
var dashboardChannels = []struct{ key, label string }{
	{"telegram", "Telegram"},
	{"discord", "Discord"},
	{"slack", "Slack"},
}

// Snapshot is the result of one refresh. A panel whose fetch failed keeps
// its zero value, which renders as the "not configured" default.
type Snapshot struct {
	Configured bool
	Version    string
	Groups     []domain.ProviderGroup
	Channels   []string
	Tailscale  *domain.TailscaleStatus
}

// GatewayLabel is "Running" once the gateway is configured.
func (s Snapshot) GatewayLabel() string {
	if s.Configured {
		return "Running"
	}
	return "Not configured"
}

// VersionLabel returns the gateway version or a dash.
func (s Snapshot) VersionLabel() string {
	if s.Version == "" {
		return "-"
	}
	return s.Version
}

// ChannelsLabel lists the enabled channels or "None".
func (s Snapshot) ChannelsLabel() string {
	if len(s.Channels) == 0 {
		return "None"
	}
	return strings.Join(s.Channels, ", ")
}

// TailscaleLabel summarises the overlay state in a few words.
func (s Snapshot) TailscaleLabel() string {
	switch {
	case s.Tailscale == nil:
		return "Not installed"
	case s.Tailscale.Connected:
		if s.Tailscale.IP != "" {
			return s.Tailscale.IP
		}
		return "Connected"
	case s.Tailscale.IsInstalled():
		return "Installed (not connected)"
	}
	return "Not installed"
}

// GroupSink receives the provider groups from a refresh.
type GroupSink interface {
	SetGroups(groups []domain.ProviderGroup)
}

// Refresher fans out the three dashboard fetches.
type Refresher struct {
	api    domain.StatusAPI
	groups GroupSink
	logger *slog.Logger
}

// NewRefresher creates a Refresher. groups may be nil.
func NewRefresher(api domain.StatusAPI, groups GroupSink, logger *slog.Logger) *Refresher {
	return &Refresher{api: api, groups: groups, logger: logger}
}

// Refresh fetches status, debug and Tailscale state concurrently. Each
// fetch fails independently; Refresh itself never fails.
func (r *Refresher) Refresh(ctx context.Context) Snapshot {
	ctx, span := tracer.StartSpan(ctx, "dashboard.refresh")
	defer span.End()

	var (
		status *domain.StatusResponse
		debug  *domain.DebugResponse
		ts     *domain.TailscaleStatus
	)

	// Sub-fetch errors are logged and dropped so one failure never cancels
	// the others through the group context.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := r.api.Status(gctx)
		if err != nil {
			r.logger.Debug("dashboard status fetch failed", "error", err)
			return nil
		}
		status = s
		return nil
	})
	g.Go(func() error {
		d, err := r.api.Debug(gctx)
		if err != nil {
			r.logger.Debug("dashboard debug fetch failed", "error", err)
			return nil
		}
		debug = d
		return nil
	})
	g.Go(func() error {
		t, err := r.api.TailscaleStatus(gctx)
		if err != nil {
			r.logger.Debug("dashboard tailscale fetch failed", "error", err)
			return nil
		}
		ts = t
		return nil
	})
	_ = g.Wait()

	var snap Snapshot
	if status != nil {
		snap.Configured = status.Configured
		snap.Version = status.OpenclawVersion
		snap.Groups = status.AuthGroups
		if len(status.AuthGroups) > 0 && r.groups != nil {
			r.groups.SetGroups(status.AuthGroups)
		}
	}
	if debug != nil {
		for _, ch := range dashboardChannels {
			if debug.ChannelEnabled(ch.key) {
				snap.Channels = append(snap.Channels, ch.label)
			}
		}
	}
	snap.Tailscale = ts

	tracer.SetOK(span)
	return snap
}
