package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"openclaw-setup/internal/adapter/tui/theme"
	"openclaw-setup/internal/domain"
	"openclaw-setup/internal/infra/config"
)

// CheckStatus is the outcome class of a doctor check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// doctorEnv is what the checks inspect. cfg and app are nil when the
// configuration could not be loaded.
type doctorEnv struct {
	cfgPath string
	cfg     *config.Config
	cfgErr  error
	app     *app

	// status is filled by the reachability check for later checks.
	status *domain.StatusResponse
}

// Check is a named check function.
type Check struct {
	Name string
	Fn   func(ctx context.Context, env *doctorEnv) CheckResult
}

// Doctor returns the command that checks the local setup and the gateway
// connection.
func Doctor(opts *globalOptions) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and gateway connectivity",
		Long: `Check the local configuration, state database and the connection to
the gateway's setup API.

With --remote the gateway's own diagnostic command runs afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			env := &doctorEnv{cfgPath: opts.configPath}
			env.cfg, env.cfgErr = loadConfig(opts)
			if env.cfgErr == nil {
				a, err := newAppWithConfig(ctx, env.cfg, opts, modeCLI)
				if err != nil {
					env.cfgErr = err
				} else {
					env.app = a
					defer a.Close()
				}
			}

			if err := runChecks(ctx, cmd.OutOrStdout(), env, doctorChecks()); err != nil {
				return err
			}
			if remote && env.app != nil {
				fmt.Fprintln(cmd.OutOrStdout())
				sess := env.app.plainSession()
				defer sess.Close()
				res, err := sess.Admin.Doctor(ctx)
				printAction(cmd, res)
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Also run the gateway's diagnostic command")
	return cmd
}

func doctorChecks() []Check {
	return []Check{
		{Name: "Config file", Fn: checkConfigFile},
		{Name: "Gateway reachable", Fn: checkGateway},
		{Name: "Gateway setup", Fn: checkConfigured},
		{Name: "State database", Fn: checkStateStore},
		{Name: "Gateway token", Fn: checkStoredToken},
		{Name: "Clipboard", Fn: checkClipboard},
	}
}

// runChecks runs every check in order and prints a summary. It fails when
// any check failed.
func runChecks(ctx context.Context, out io.Writer, env *doctorEnv, checks []Check) error {
	fmt.Fprintln(out, theme.Bold.Render("openclaw-setup doctor"))
	fmt.Fprintln(out, strings.Repeat(theme.SymbolLine, 50))

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(ctx, env)
		result.Name = check.Name

		fmt.Fprintf(out, "  %s %s: %s\n", statusIcon(result.Status), result.Name, result.Message)
		if result.Fix != "" {
			fmt.Fprintf(out, "      Fix: %s\n", result.Fix)
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Fprintln(out, strings.Repeat(theme.SymbolLine, 50))
	fmt.Fprintf(out, "Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		return domain.NewDomainError("doctor", domain.ErrValidation, fmt.Sprintf("%d check(s) failed", fail))
	}
	return nil
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass:
		return theme.TextSuccess.Render("[PASS]")
	case StatusWarn:
		return theme.TextWarning.Render("[WARN]")
	case StatusFail:
		return theme.TextError.Render("[FAIL]")
	}
	return "[????]"
}

var skippedNoConfig = CheckResult{Status: StatusFail, Message: "cannot check, config not loaded"}

func checkConfigFile(_ context.Context, env *doctorEnv) CheckResult {
	if env.cfgErr != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("config error: %v", env.cfgErr),
			Fix:     "Check the YAML syntax or regenerate it with 'openclaw-setup config init --force'",
		}
	}
	if _, err := os.Stat(env.cfgPath); errors.Is(err, os.ErrNotExist) {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s not found, using defaults and environment", env.cfgPath),
			Fix:     "Run 'openclaw-setup config init' to write one",
		}
	}
	return CheckResult{Status: StatusPass, Message: "config loaded from " + env.cfgPath}
}

func checkGateway(ctx context.Context, env *doctorEnv) CheckResult {
	if env.app == nil {
		return skippedNoConfig
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	start := time.Now()
	status, err := env.app.client.Status(ctx)
	latency := time.Since(start)
	base := env.cfg.Gateway.BaseURL
	switch {
	case errors.Is(err, domain.ErrAuthInvalid):
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("%s rejected the setup password", base),
			Fix:     "Set gateway.password or " + config.EnvPrefix + "PASSWORD to the gateway's SETUP_PASSWORD",
		}
	case err != nil:
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("cannot reach %s: %v", base, err),
			Fix:     "Check gateway.base_url and that the gateway is running",
		}
	}
	env.status = status
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("%s reachable (latency: %dms)", base, latency.Milliseconds()),
	}
}

func checkConfigured(_ context.Context, env *doctorEnv) CheckResult {
	if env.status == nil {
		return CheckResult{Status: StatusWarn, Message: "skipped, gateway not reachable"}
	}
	if !env.status.Configured {
		return CheckResult{
			Status:  StatusWarn,
			Message: "gateway is not configured yet",
			Fix:     "Run 'openclaw-setup' or 'openclaw-setup run'",
		}
	}
	msg := "gateway is configured"
	if env.status.OpenclawVersion != "" {
		msg += " (OpenClaw " + env.status.OpenclawVersion + ")"
	}
	return CheckResult{Status: StatusPass, Message: msg}
}

func checkStateStore(_ context.Context, env *doctorEnv) CheckResult {
	if env.app == nil {
		return skippedNoConfig
	}
	path := env.cfg.State.Path
	if env.app.store == nil {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("cannot open %s: %v", path, env.app.storeErr),
			Fix:     fmt.Sprintf("Check permissions on %s or set state.path", filepath.Dir(path)),
		}
	}
	return CheckResult{Status: StatusPass, Message: path + " writable"}
}

func checkStoredToken(ctx context.Context, env *doctorEnv) CheckResult {
	if env.app == nil || env.app.tokens == nil {
		return CheckResult{Status: StatusWarn, Message: "skipped, state database unavailable"}
	}
	token, err := env.app.tokens.LoadToken(ctx)
	if err != nil {
		return CheckResult{Status: StatusWarn, Message: err.Error()}
	}
	if token == "" {
		return CheckResult{
			Status:  StatusWarn,
			Message: "no gateway token stored",
			Fix:     "Run 'openclaw-setup token' after setup has completed",
		}
	}
	return CheckResult{Status: StatusPass, Message: "gateway token stored"}
}

func checkClipboard(_ context.Context, _ *doctorEnv) CheckResult {
	if clipboard.Unsupported {
		return CheckResult{
			Status:  StatusWarn,
			Message: "no clipboard tool found, copy shortcuts are disabled",
			Fix:     "Install xclip, xsel or wl-clipboard",
		}
	}
	return CheckResult{Status: StatusPass, Message: "clipboard available"}
}
