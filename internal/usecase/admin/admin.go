// Package admin wraps the gateway's auxiliary setup endpoints: the debug
// console, raw config editing, token reveal, backup import and reset.
package admin

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"openclaw-setup/internal/domain"
)

// DefaultImportContentType is sent when the caller does not know the
// archive type.
const DefaultImportContentType = "application/gzip"

// Service runs admin operations against the gateway.
type Service struct {
	api    domain.AdminAPI
	tokens domain.TokenStore
	logger *slog.Logger
}

// NewService creates a Service. tokens may be nil.
func NewService(api domain.AdminAPI, tokens domain.TokenStore, logger *slog.Logger) *Service {
	return &Service{api: api, tokens: tokens, logger: logger}
}

// checkAction turns a not-ok envelope into an ErrBackend error while still
// returning the envelope so callers can show its output.
func checkAction(op string, res *domain.ActionResult, err error) (*domain.ActionResult, error) {
	if err != nil {
		return nil, domain.WrapOp(op, err)
	}
	if !res.OK {
		return res, domain.NewDomainError(op, domain.ErrBackend, res.Message())
	}
	return res, nil
}

// Console runs an allow-listed gateway command with an optional argument.
func (s *Service) Console(ctx context.Context, command, arg string) (*domain.ActionResult, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, domain.NewDomainError("Admin.Console", domain.ErrValidation, "select a command first")
	}
	s.logger.Info("console command", "command", command)
	res, err := s.api.Console(ctx, domain.ConsoleRequest{Command: command, Arg: strings.TrimSpace(arg)})
	return checkAction("Admin.Console", res, err)
}

// RestartGateway is the dashboard restart shortcut.
func (s *Service) RestartGateway(ctx context.Context) (*domain.ActionResult, error) {
	return s.Console(ctx, domain.ConsoleGatewayRestart, "")
}

// Doctor runs the gateway's diagnostic command. Its output is returned even
// when the command exits non-zero, since that output is the diagnosis.
func (s *Service) Doctor(ctx context.Context) (*domain.ActionResult, error) {
	return s.Console(ctx, domain.ConsoleDoctor, "")
}

// LoadConfig fetches the gateway's raw config file.
func (s *Service) LoadConfig(ctx context.Context) (*domain.RawConfig, error) {
	cfg, err := s.api.RawConfig(ctx)
	if err != nil {
		return nil, domain.WrapOp("Admin.LoadConfig", err)
	}
	if !cfg.OK {
		return cfg, domain.NewDomainError("Admin.LoadConfig", domain.ErrBackend, cfg.Error)
	}
	return cfg, nil
}

// SaveConfig overwrites the gateway config; the gateway backs up the old file
// and restarts.
func (s *Service) SaveConfig(ctx context.Context, content string) (*domain.SaveConfigResult, error) {
	s.logger.Info("saving gateway config", "bytes", len(content))
	res, err := s.api.SaveRawConfig(ctx, content)
	if err != nil {
		return nil, domain.WrapOp("Admin.SaveConfig", err)
	}
	if !res.OK {
		return res, domain.NewDomainError("Admin.SaveConfig", domain.ErrBackend, res.Error)
	}
	return res, nil
}

// RevealToken fetches the gateway access token and persists it like a
// successful run does.
func (s *Service) RevealToken(ctx context.Context) (string, error) {
	res, err := s.api.GatewayToken(ctx)
	if err != nil {
		return "", domain.WrapOp("Admin.RevealToken", err)
	}
	if !res.OK || res.Token == "" {
		detail := res.Error
		if detail == "" {
			detail = "no gateway token"
		}
		return "", domain.NewDomainError("Admin.RevealToken", domain.ErrBackend, detail)
	}
	if s.tokens != nil {
		if err := s.tokens.SaveToken(ctx, res.Token); err != nil {
			s.logger.Warn("persist gateway token failed", "error", err)
		}
	}
	return res.Token, nil
}

// Import uploads a backup archive. The gateway snapshots the current state
// before overwriting it.
func (s *Service) Import(ctx context.Context, contentType string, body io.Reader) (*domain.ActionResult, error) {
	if body == nil {
		return nil, domain.NewDomainError("Admin.Import", domain.ErrValidation, "select a backup file first")
	}
	if contentType == "" {
		contentType = DefaultImportContentType
	}
	s.logger.Info("importing backup", "content_type", contentType)
	res, err := s.api.Import(ctx, contentType, body)
	return checkAction("Admin.Import", res, err)
}

// Reset wipes the gateway configuration so setup can run again.
func (s *Service) Reset(ctx context.Context) (*domain.ActionResult, error) {
	s.logger.Warn("resetting gateway configuration")
	res, err := s.api.Reset(ctx)
	return checkAction("Admin.Reset", res, err)
}
