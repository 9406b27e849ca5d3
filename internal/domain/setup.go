package domain

import (
	"bytes"
	"encoding/json"
)

// RunPayload is the body of POST run. Channel fields are pointers so that a
// disabled channel is omitted entirely while an enabled channel with an empty
// token is still transmitted as "".
type RunPayload struct {
	Flow       string `json:"flow"`
	AuthChoice string `json:"authChoice"`
	AuthSecret string `json:"authSecret"`

	TelegramToken *string `json:"telegramToken,omitempty"`
	DiscordToken  *string `json:"discordToken,omitempty"`
	SlackBotToken *string `json:"slackBotToken,omitempty"`
	SlackAppToken *string `json:"slackAppToken,omitempty"`

	CustomProviderID        string `json:"customProviderId,omitempty"`
	CustomProviderBaseURL   string `json:"customProviderBaseUrl,omitempty"`
	CustomProviderAPI       string `json:"customProviderApi,omitempty"`
	CustomProviderAPIKeyEnv string `json:"customProviderApiKeyEnv,omitempty"`
	CustomProviderModelID   string `json:"customProviderModelId,omitempty"`
}

// RunResponse is the envelope returned by POST run.
type RunResponse struct {
	OK           bool   `json:"ok"`
	Output       string `json:"output,omitempty"`
	GatewayToken string `json:"gatewayToken,omitempty"`
	Error        string `json:"error,omitempty"`
}

// StatusResponse is returned by GET status.
type StatusResponse struct {
	AuthGroups      []ProviderGroup `json:"authGroups"`
	Configured      bool            `json:"configured"`
	OpenclawVersion string          `json:"openclawVersion"`
}

// DebugResponse is returned by GET debug. Only channel enablement is read;
// each channel value is whatever the gateway reports for it.
type DebugResponse struct {
	Channels map[string]json.RawMessage `json:"channels"`
}

// ChannelEnabled reports whether the debug payload lists name with a truthy value.
func (d DebugResponse) ChannelEnabled(name string) bool {
	raw, ok := d.Channels[name]
	if !ok {
		return false
	}
	v := bytes.TrimSpace(raw)
	switch string(v) {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}

// TailscaleConfigureRequest is the body of POST tailscale/configure.
type TailscaleConfigureRequest struct {
	AuthKey  string `json:"authKey"`
	Hostname string `json:"hostname"`
}

// TailscaleStatus is returned by tailscale/configure and tailscale/status.
// Installed is a pointer because "not reported" and "false" differ.
type TailscaleStatus struct {
	OK        bool   `json:"ok"`
	Connected bool   `json:"connected,omitempty"`
	Installed *bool  `json:"installed,omitempty"`
	Hostname  string `json:"hostname,omitempty"`
	IP        string `json:"ip,omitempty"`
	Error     string `json:"error,omitempty"`
}

// IsInstalled reports whether the gateway said Tailscale is installed.
func (s TailscaleStatus) IsInstalled() bool {
	return s.Installed != nil && *s.Installed
}

// Describe renders the overlay state as a one-line status.
func (s TailscaleStatus) Describe() string {
	switch {
	case s.Connected:
		d := "Connected"
		if s.Hostname != "" {
			d += " - " + s.Hostname
		}
		if s.IP != "" {
			d += " (" + s.IP + ")"
		}
		return d
	case s.Installed != nil && !*s.Installed:
		return "Not installed - Tailscale will be installed automatically when you run setup"
	case s.Error != "":
		return "Error - " + s.Error
	case s.IsInstalled():
		return "Installed but not connected"
	}
	return "Not installed"
}

// PendingDevice is a device pairing request waiting for operator approval.
type PendingDevice struct {
	RequestID string `json:"requestId"`
}

// PendingDevicesResponse is returned by GET devices/pending.
type PendingDevicesResponse struct {
	RequestIDs []string `json:"requestIds"`
}

// DeviceApproveRequest is the body of POST devices/approve.
type DeviceApproveRequest struct {
	RequestID string `json:"requestId"`
	Channel   string `json:"channel,omitempty"`
}

// PairingApproveRequest is the body of POST pairing/approve.
type PairingApproveRequest struct {
	Code    string `json:"code"`
	Channel string `json:"channel,omitempty"`
}

// ActionResult is the generic {ok, output?, error?} envelope.
type ActionResult struct {
	OK       bool   `json:"ok"`
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
	ExitCode *int   `json:"exitCode,omitempty"`
}

// Message returns the error text, falling back to the output.
func (r ActionResult) Message() string {
	if r.Error != "" {
		return r.Error
	}
	return r.Output
}

// ConsoleRequest is the body of POST console/run.
type ConsoleRequest struct {
	Command string `json:"command"`
	Arg     string `json:"arg,omitempty"`
}

// Console commands with dedicated shortcuts.
const (
	ConsoleGatewayRestart = "gateway.restart"
	ConsoleDoctor         = "openclaw.doctor"
)

// RawConfig is returned by GET config/raw.
type RawConfig struct {
	OK      bool   `json:"ok"`
	Content string `json:"content"`
	Path    string `json:"path,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SaveConfigResult is returned by POST config/raw.
type SaveConfigResult struct {
	OK            bool   `json:"ok"`
	RestartOutput string `json:"restartOutput,omitempty"`
	Error         string `json:"error,omitempty"`
}

// GatewayTokenResponse is returned by GET gateway-token.
type GatewayTokenResponse struct {
	OK    bool   `json:"ok"`
	Token string `json:"token,omitempty"`
	Error string `json:"error,omitempty"`
}
