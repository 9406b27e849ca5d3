package setupapi

import (
	"context"
	"io"
	"net/http"

	"openclaw-setup/internal/domain"
)

const apiPrefix = "setup/api/"

// Run submits the onboarding payload. It blocks until the gateway finishes
// onboarding, so it uses the long timeout.
func (c *Client) Run(ctx context.Context, payload domain.RunPayload) (*domain.RunResponse, error) {
	var out domain.RunResponse
	if err := c.doJSON(ctx, "SetupAPI.Run", apiPrefix+"run", true, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfigureTailscale joins the gateway to a tailnet.
func (c *Client) ConfigureTailscale(ctx context.Context, req domain.TailscaleConfigureRequest) (*domain.TailscaleStatus, error) {
	var out domain.TailscaleStatus
	if err := c.doJSON(ctx, "SetupAPI.ConfigureTailscale", apiPrefix+"tailscale/configure", true, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PendingDevices lists pairing request IDs awaiting approval.
func (c *Client) PendingDevices(ctx context.Context) ([]string, error) {
	var out domain.PendingDevicesResponse
	if err := c.get(ctx, "SetupAPI.PendingDevices", apiPrefix+"devices/pending", &out); err != nil {
		return nil, err
	}
	return out.RequestIDs, nil
}

// ApproveDevice approves one pending device by request ID.
func (c *Client) ApproveDevice(ctx context.Context, req domain.DeviceApproveRequest) (*domain.ActionResult, error) {
	var out domain.ActionResult
	if err := c.doJSON(ctx, "SetupAPI.ApproveDevice", apiPrefix+"devices/approve", false, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApprovePairing approves a pairing code received on a channel.
func (c *Client) ApprovePairing(ctx context.Context, req domain.PairingApproveRequest) (*domain.ActionResult, error) {
	var out domain.ActionResult
	if err := c.doJSON(ctx, "SetupAPI.ApprovePairing", apiPrefix+"pairing/approve", false, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status returns provider groups, configuration state and version.
func (c *Client) Status(ctx context.Context) (*domain.StatusResponse, error) {
	var out domain.StatusResponse
	if err := c.get(ctx, "SetupAPI.Status", apiPrefix+"status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Debug returns the gateway's debug snapshot.
func (c *Client) Debug(ctx context.Context) (*domain.DebugResponse, error) {
	var out domain.DebugResponse
	if err := c.get(ctx, "SetupAPI.Debug", apiPrefix+"debug", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TailscaleStatus returns the overlay network state.
func (c *Client) TailscaleStatus(ctx context.Context) (*domain.TailscaleStatus, error) {
	var out domain.TailscaleStatus
	if err := c.get(ctx, "SetupAPI.TailscaleStatus", apiPrefix+"tailscale/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reset deletes the gateway configuration.
func (c *Client) Reset(ctx context.Context) (*domain.ActionResult, error) {
	var out domain.ActionResult
	err := c.do(ctx, request{op: "SetupAPI.Reset", method: http.MethodPost, path: apiPrefix + "reset"}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Console runs an allow-listed gateway command.
func (c *Client) Console(ctx context.Context, req domain.ConsoleRequest) (*domain.ActionResult, error) {
	var out domain.ActionResult
	if err := c.doJSON(ctx, "SetupAPI.Console", apiPrefix+"console/run", true, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RawConfig fetches the gateway config file.
func (c *Client) RawConfig(ctx context.Context) (*domain.RawConfig, error) {
	var out domain.RawConfig
	if err := c.get(ctx, "SetupAPI.RawConfig", apiPrefix+"config/raw", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveRawConfig replaces the gateway config file.
func (c *Client) SaveRawConfig(ctx context.Context, content string) (*domain.SaveConfigResult, error) {
	var out domain.SaveConfigResult
	body := struct {
		Content string `json:"content"`
	}{content}
	if err := c.doJSON(ctx, "SetupAPI.SaveRawConfig", apiPrefix+"config/raw", true, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GatewayToken reveals the gateway access token.
func (c *Client) GatewayToken(ctx context.Context) (*domain.GatewayTokenResponse, error) {
	var out domain.GatewayTokenResponse
	if err := c.get(ctx, "SetupAPI.GatewayToken", apiPrefix+"gateway-token", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Import uploads a backup archive. The endpoint lives outside the API
// prefix and takes the raw archive as the body.
func (c *Client) Import(ctx context.Context, contentType string, body io.Reader) (*domain.ActionResult, error) {
	var out domain.ActionResult
	err := c.do(ctx, request{
		op:          "SetupAPI.Import",
		method:      http.MethodPost,
		path:        "setup/import",
		body:        body,
		contentType: contentType,
		long:        true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

var _ domain.SetupAPI = (*Client)(nil)
