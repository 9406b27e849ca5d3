package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openclaw-setup/internal/domain"
)

type fakeStatusAPI struct {
	status    *domain.StatusResponse
	statusErr error
	debug     *domain.DebugResponse
	debugErr  error
	ts        *domain.TailscaleStatus
	tsErr     error
}

func (f *fakeStatusAPI) Status(context.Context) (*domain.StatusResponse, error) {
	return f.status, f.statusErr
}

func (f *fakeStatusAPI) Debug(context.Context) (*domain.DebugResponse, error) {
	return f.debug, f.debugErr
}

func (f *fakeStatusAPI) TailscaleStatus(context.Context) (*domain.TailscaleStatus, error) {
	return f.ts, f.tsErr
}

type groupRecorder struct{ calls [][]domain.ProviderGroup }

func (g *groupRecorder) SetGroups(groups []domain.ProviderGroup) {
	g.calls = append(g.calls, groups)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRefreshAll(t *testing.T) {
	yes := true
	groups := []domain.ProviderGroup{{Value: "anthropic", Label: "Anthropic"}}
	api := &fakeStatusAPI{
		status: &domain.StatusResponse{AuthGroups: groups, Configured: true, OpenclawVersion: "2026.1.5"},
		debug: &domain.DebugResponse{Channels: map[string]json.RawMessage{
			"telegram": json.RawMessage(`{"enabled":true}`),
			"discord":  json.RawMessage(`false`),
			"slack":    json.RawMessage(`true`),
		}},
		ts: &domain.TailscaleStatus{OK: true, Installed: &yes, Connected: true, IP: "100.64.0.7"},
	}
	rec := &groupRecorder{}

	snap := NewRefresher(api, rec, discardLogger()).Refresh(context.Background())

	assert.Equal(t, "Running", snap.GatewayLabel())
	assert.Equal(t, "2026.1.5", snap.VersionLabel())
	assert.Equal(t, "Telegram, Slack", snap.ChannelsLabel())
	assert.Equal(t, "100.64.0.7", snap.TailscaleLabel())
	require.Len(t, rec.calls, 1)
	assert.Equal(t, groups, rec.calls[0])
}

func TestRefreshAllFailReturnsDefaults(t *testing.T) {
	boom := errors.New("offline")
	api := &fakeStatusAPI{statusErr: boom, debugErr: boom, tsErr: boom}
	rec := &groupRecorder{}

	snap := NewRefresher(api, rec, discardLogger()).Refresh(context.Background())

	assert.Equal(t, "Not configured", snap.GatewayLabel())
	assert.Equal(t, "-", snap.VersionLabel())
	assert.Equal(t, "None", snap.ChannelsLabel())
	assert.Equal(t, "Not installed", snap.TailscaleLabel())
	assert.Empty(t, rec.calls)
}

func TestRefreshPartialFailure(t *testing.T) {
	api := &fakeStatusAPI{
		statusErr: errors.New("500"),
		debug:     &domain.DebugResponse{Channels: map[string]json.RawMessage{"discord": json.RawMessage(`1`)}},
		tsErr:     errors.New("timeout"),
	}
	snap := NewRefresher(api, nil, discardLogger()).Refresh(context.Background())

	assert.Equal(t, "Not configured", snap.GatewayLabel())
	assert.Equal(t, "Discord", snap.ChannelsLabel())
	assert.Nil(t, snap.Tailscale)
}

func TestRefreshEmptyGroupsKeepSelector(t *testing.T) {
	api := &fakeStatusAPI{status: &domain.StatusResponse{Configured: false}}
	rec := &groupRecorder{}
	NewRefresher(api, rec, discardLogger()).Refresh(context.Background())
	assert.Empty(t, rec.calls)
}

func TestTailscaleLabel(t *testing.T) {
	yes, no := true, false
	tests := []struct {
		ts   *domain.TailscaleStatus
		want string
	}{
		{nil, "Not installed"},
		{&domain.TailscaleStatus{Connected: true}, "Connected"},
		{&domain.TailscaleStatus{Connected: true, IP: "100.1.2.3"}, "100.1.2.3"},
		{&domain.TailscaleStatus{Installed: &yes}, "Installed (not connected)"},
		{&domain.TailscaleStatus{Installed: &no}, "Not installed"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Snapshot{Tailscale: tt.ts}.TailscaleLabel())
	}
}
