package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"openclaw-setup/internal/adapter/setupapi"
	"openclaw-setup/internal/adapter/store"
	"openclaw-setup/internal/domain"
	"openclaw-setup/internal/infra/config"
	"openclaw-setup/internal/infra/logger"
	"openclaw-setup/internal/infra/middleware"
	"openclaw-setup/internal/infra/tracer"
	"openclaw-setup/internal/usecase/pairing"
	"openclaw-setup/internal/usecase/provision"
	"openclaw-setup/internal/usecase/session"
	"openclaw-setup/internal/usecase/wizard"
)

// app holds the components every command shares. Build it with newApp and
// always Close it.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	client *setupapi.Client

	// store is nil when the state database could not be opened; storeErr
	// then says why. Gateway commands still work without it.
	store    *store.Store
	tokens   *store.TokenStore
	storeErr error

	closers []func() error
}

// appMode tweaks wiring for the interactive wizard, which owns the terminal.
type appMode int

const (
	modeCLI appMode = iota
	modeTUI
)

// loadConfig reads the config file and applies the global flag overrides.
func loadConfig(opts *globalOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, domain.NewDomainError("config.Load", domain.ErrConfigLoad, err.Error())
	}
	if opts.baseURL != "" {
		cfg.Gateway.BaseURL = opts.baseURL
	}
	if opts.logLevel != "" {
		cfg.Logger.Level = opts.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return nil, domain.NewDomainError("config.Validate", domain.ErrValidation, err.Error())
	}
	return cfg, nil
}

// newApp loads the configuration and builds the logger, tracer, setup API
// client and state store.
func newApp(ctx context.Context, opts *globalOptions, mode appMode) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	return newAppWithConfig(ctx, cfg, opts, mode)
}

func newAppWithConfig(ctx context.Context, cfg *config.Config, opts *globalOptions, mode appMode) (*app, error) {
	if mode == modeTUI {
		keepOffTerminal(cfg)
	}

	a := &app{cfg: cfg}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	a.logger = log
	a.closers = append(a.closers, closeLog)

	shutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("tracer: %w", err)
	}
	a.closers = append(a.closers, func() error {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdown(sctx)
	})

	a.client, err = setupapi.New(clientConfig(cfg), log.With("component", "setupapi"))
	if err != nil {
		a.Close()
		return nil, domain.NewDomainError("setupapi.New", domain.ErrValidation, err.Error())
	}

	a.store, a.storeErr = store.Open(cfg.State.Path)
	if a.storeErr != nil {
		log.Warn("state database unavailable, token and history are not persisted", "path", cfg.State.Path, "error", a.storeErr)
	} else {
		a.closers = append(a.closers, a.store.Close)
		a.tokens = store.NewTokenStore(a.store, a.client.Jar(), a.client.BaseURL())
		if ok, err := a.tokens.Restore(ctx); err != nil {
			log.Warn("restore gateway token failed", "error", err)
		} else if ok {
			log.Debug("restored gateway token cookie")
		}
	}

	log.Debug("openclaw-setup starting",
		"gateway", cfg.Gateway.BaseURL,
		"config", opts.configPath,
		"state", cfg.State.Path,
	)
	return a, nil
}

// keepOffTerminal moves log and trace output that would land on the
// terminal into files next to the state database.
func keepOffTerminal(cfg *config.Config) {
	dir := filepath.Dir(cfg.State.Path)
	switch strings.ToLower(cfg.Logger.Output) {
	case "", "stdout", "stderr":
		cfg.Logger.Output = filepath.Join(dir, "openclaw-setup.log")
	}
	if cfg.Tracer.Enabled && cfg.Tracer.Exporter == "stdout" && cfg.Tracer.Output == "" {
		cfg.Tracer.Output = filepath.Join(dir, "traces.json")
	}
}

func clientConfig(cfg *config.Config) setupapi.Config {
	c := setupapi.Config{
		BaseURL:     cfg.Gateway.BaseURL,
		Password:    cfg.Gateway.Password,
		Timeout:     cfg.Gateway.Timeout,
		LongTimeout: cfg.Run.Timeout,
		UserAgent:   cfg.HTTP.UserAgent,
		RateLimit:   cfg.HTTP.RateLimit,
		Burst:       cfg.HTTP.Burst,
	}
	if cb := cfg.HTTP.CircuitBreaker; cb.Enabled {
		c.Breaker = &middleware.BreakerConfig{
			Name:        "setupapi",
			MaxFailures: cb.MaxFailures,
			Timeout:     cb.Timeout,
			Interval:    cb.Interval,
		}
	}
	return c
}

// Close releases everything newApp opened, in reverse order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// requireStore returns the state database or the reason it is unavailable.
func (a *app) requireStore() (*store.Store, error) {
	if a.store == nil {
		return nil, a.storeErr
	}
	return a.store, nil
}

// session builds a wizard session over the app's client and store.
func (a *app) session(form wizard.Form, views session.Views) *session.Session {
	deps := session.Deps{API: a.client, Logger: a.logger}
	// A nil *TokenStore must not become a non-nil interface.
	if a.tokens != nil {
		deps.Tokens = a.tokens
	}
	if a.store != nil {
		deps.History = a.store
	}
	s := a.cfg.Run.Stages
	return session.New(deps, session.Config{
		Form: form,
		Delays: provision.Delays{
			Token:    s.Token,
			Channels: s.Channels,
			Gateway:  s.Gateway,
			Health:   s.Health,
		},
		Pairing: pairing.Config{
			Interval:    a.cfg.Pairing.Interval,
			RemoveDelay: a.cfg.Pairing.RemoveDelay,
		},
		RunTimeout: a.cfg.Run.Timeout,
	}, views)
}

// plainSession is a session without views for commands that only call
// the dashboard, device or admin operations.
func (a *app) plainSession() *session.Session {
	return a.session(wizard.DefaultForm(), session.Views{})
}

// formFromDefaults converts the config's wizard defaults into a form. A
// custom provider template is applied first so explicit fields win.
func formFromDefaults(d config.WizardDefaults, defaultHostname string) wizard.Form {
	f := wizard.DefaultForm()
	if d.Flow != "" {
		f.Flow = d.Flow
	}
	f.Provider = d.Provider
	f.AuthChoice = d.AuthChoice
	f.AuthSecret = d.AuthSecret
	f.Telegram = wizard.ChannelToggle{Enabled: d.Telegram.Enabled, Token: d.Telegram.Token}
	f.Discord = wizard.ChannelToggle{Enabled: d.Discord.Enabled, Token: d.Discord.Token}
	f.Slack = wizard.SlackSettings{Enabled: d.Slack.Enabled, BotToken: d.Slack.BotToken, AppToken: d.Slack.AppToken}
	f.Tailscale = wizard.TailscaleSettings{Enabled: d.Tailscale.Enabled, AuthKey: d.Tailscale.AuthKey, Hostname: d.Tailscale.Hostname}
	if f.Tailscale.Hostname == "" && defaultHostname != wizard.DefaultTailscaleHostname {
		f.Tailscale.Hostname = defaultHostname
	}

	c := d.CustomProvider
	if c.Template != "" {
		f.ApplyCustomTemplate(c.Template)
	}
	for dst, v := range map[*string]string{
		&f.Custom.ID:        c.ID,
		&f.Custom.BaseURL:   c.BaseURL,
		&f.Custom.API:       c.API,
		&f.Custom.APIKeyEnv: c.APIKeyEnv,
		&f.Custom.ModelID:   c.ModelID,
	} {
		if v != "" {
			*dst = v
		}
	}
	return f
}

// form returns the configured defaults overlaid with an answers file, if
// one is given. Keys missing from the file keep their configured value.
func (a *app) form(answersPath string) (wizard.Form, error) {
	f := formFromDefaults(a.cfg.Defaults, a.cfg.Tailscale.DefaultHostname)
	if answersPath == "" {
		return f, nil
	}
	data, err := os.ReadFile(answersPath)
	if err != nil {
		return f, fmt.Errorf("read answers: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, domain.NewDomainError("answers", domain.ErrValidation, "parse "+answersPath+": "+err.Error())
	}
	return f, nil
}

// applySelection replays the form's provider answers through the selector so
// a prefilled form goes through the same path as a manual pick. Groups must
// already be loaded.
func applySelection(s *session.Session, f wizard.Form) error {
	const op = "applySelection"
	if f.Provider != "" && !s.Selector.SelectByValue(f.Provider) {
		return domain.NewDomainError(op, domain.ErrValidation,
			fmt.Sprintf("provider %q is not offered by the gateway", f.Provider))
	}
	if f.AuthChoice != "" {
		s.Selector.SetChoice(f.AuthChoice)
	}
	if r := s.Selector.SetSecret(f.AuthSecret); !r.OK {
		return domain.NewDomainError(op, domain.ErrValidation, r.Message)
	}
	return nil
}
