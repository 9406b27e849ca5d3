package domain

import (
	"context"
	"io"
)

// ProvisionAPI submits a provisioning run and its gated sub-calls.
type ProvisionAPI interface {
	Run(ctx context.Context, payload RunPayload) (*RunResponse, error)
	ConfigureTailscale(ctx context.Context, req TailscaleConfigureRequest) (*TailscaleStatus, error)
}

// DeviceAPI lists and approves pending device pairings.
type DeviceAPI interface {
	PendingDevices(ctx context.Context) ([]string, error)
	ApproveDevice(ctx context.Context, req DeviceApproveRequest) (*ActionResult, error)
	ApprovePairing(ctx context.Context, req PairingApproveRequest) (*ActionResult, error)
}

// StatusAPI provides the read-only dashboard endpoints.
type StatusAPI interface {
	Status(ctx context.Context) (*StatusResponse, error)
	Debug(ctx context.Context) (*DebugResponse, error)
	TailscaleStatus(ctx context.Context) (*TailscaleStatus, error)
}

// AdminAPI covers the auxiliary administration endpoints.
type AdminAPI interface {
	Reset(ctx context.Context) (*ActionResult, error)
	Console(ctx context.Context, req ConsoleRequest) (*ActionResult, error)
	RawConfig(ctx context.Context) (*RawConfig, error)
	SaveRawConfig(ctx context.Context, content string) (*SaveConfigResult, error)
	GatewayToken(ctx context.Context) (*GatewayTokenResponse, error)
	Import(ctx context.Context, contentType string, body io.Reader) (*ActionResult, error)
}

// SetupAPI is the full gateway setup surface.
type SetupAPI interface {
	ProvisionAPI
	DeviceAPI
	StatusAPI
	AdminAPI
}

// TokenStore persists the gateway access token issued by a successful run.
type TokenStore interface {
	SaveToken(ctx context.Context, token string) error
	LoadToken(ctx context.Context) (string, error)
}
