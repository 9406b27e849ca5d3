// Package uxerror translates setup client errors into user-facing messages
// with recovery hints, shared by the TUI and the CLI.
package uxerror

import (
	"errors"
	"fmt"
	"strings"

	"openclaw-setup/internal/adapter/tui/theme"
	"openclaw-setup/internal/domain"
)

// FriendlyError is a user-facing error with suggestions for recovery.
type FriendlyError struct {
	Title   string   // short heading, e.g. "Gateway Unreachable"
	Message string   // one-liner explanation
	Hints   []string // actionable recovery suggestions
	Raw     string   // original error text
}

// Render formats the error for the terminal.
func (fe FriendlyError) Render() string {
	var sb strings.Builder
	sb.WriteString(fe.Title)
	if fe.Message != "" {
		sb.WriteString("\n  ")
		sb.WriteString(fe.Message)
	}
	if len(fe.Hints) > 0 {
		sb.WriteString("\n  Suggestions:")
		for _, h := range fe.Hints {
			sb.WriteString(fmt.Sprintf("\n    %s %s", theme.SymbolBullet, h))
		}
	}
	return sb.String()
}

type errorPattern struct {
	match   func(err error) bool
	produce func(err error) FriendlyError
}

// Order matters: transport errors can also carry ErrAuthInvalid, ErrTimeout
// or ErrCircuitOpen, and the more specific sentinel wins.
var patterns = []errorPattern{
	{
		match: is(domain.ErrAuthInvalid),
		produce: constantError("Authentication Failed", "The gateway rejected the setup password.",
			[]string{"Check gateway.password or OPENCLAW_SETUP_PASSWORD", "Use the SETUP_PASSWORD value of the deployment"}),
	},
	{
		match: is(domain.ErrCircuitOpen),
		produce: constantError("Gateway Paused", "Too many consecutive failures; requests are paused briefly.",
			[]string{"Wait for the breaker timeout and retry", "Check that the gateway is up"}),
	},
	{
		match: is(domain.ErrTimeout),
		produce: constantError("Request Timed Out", "The gateway did not answer in time.",
			[]string{"Onboarding can take minutes; raise run.timeout", "Check the gateway logs"}),
	},
	{
		match: is(domain.ErrRunInProgress),
		produce: constantError("Setup Already Running", "Wait for the current run to finish.", nil),
	},
	{
		match: is(domain.ErrNoProvider),
		produce: constantError("No AI Provider", "Select an AI provider and auth method first.",
			[]string{"Go back to step 1", "Set defaults.provider and defaults.auth_choice for non-interactive runs"}),
	},
	{
		match: is(domain.ErrValidation),
		produce: func(err error) FriendlyError {
			return FriendlyError{Title: "Invalid Input", Message: detail(err), Raw: err.Error()}
		},
	},
	{
		match: is(domain.ErrBackend),
		produce: func(err error) FriendlyError {
			return FriendlyError{
				Title:   "Gateway Reported a Failure",
				Message: detail(err),
				Hints:   []string{"Run 'openclaw-setup console openclaw.doctor' for diagnostics"},
				Raw:     err.Error(),
			}
		},
	},
	{
		match: is(domain.ErrStateStore),
		produce: constantError("Local State Unavailable", "The state database could not be opened or written.",
			[]string{"Check state.path and its directory permissions"}),
	},
	{
		match:   containsAny("429", "rate limit", "too many requests"),
		produce: constantError("Rate Limited", "The gateway is throttling requests.", []string{"Wait a moment before retrying", "Lower http.rate_limit"}),
	},
	{
		match: is(domain.ErrTransport),
		produce: constantError("Gateway Unreachable", "Could not talk to the setup API.",
			[]string{"Check gateway.base_url or --base-url", "Verify the gateway is deployed and running"}),
	},
}

// Humanize converts a raw error into a FriendlyError with recovery hints.
func Humanize(err error) FriendlyError {
	if err == nil {
		return FriendlyError{Title: "Unknown Error", Raw: "nil"}
	}
	for _, p := range patterns {
		if p.match(err) {
			return p.produce(err)
		}
	}
	return FriendlyError{
		Title:   "Unexpected Error",
		Message: err.Error(),
		Hints:   []string{"Try again", "Run with --log-level debug for more details"},
		Raw:     err.Error(),
	}
}

// detail returns the DomainError detail when there is one.
func detail(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) && de.Detail != "" {
		return de.Detail
	}
	return err.Error()
}

func is(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

// containsAny matches errors whose text contains any of substrs,
// case-insensitively.
func containsAny(substrs ...string) func(error) bool {
	return func(err error) bool {
		lower := strings.ToLower(err.Error())
		for _, s := range substrs {
			if strings.Contains(lower, s) {
				return true
			}
		}
		return false
	}
}

func constantError(title, message string, hints []string) func(error) FriendlyError {
	return func(err error) FriendlyError {
		return FriendlyError{Title: title, Message: message, Hints: hints, Raw: err.Error()}
	}
}
