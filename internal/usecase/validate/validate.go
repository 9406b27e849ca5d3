// Package validate holds the pure input checks used by the setup wizard.
// Every function maps a raw value to a Result and touches no state.
package validate

import (
	"regexp"
	"strings"

	"openclaw-setup/internal/domain"
)

// Severity classifies a Result for display.
type Severity string

const (
	SeverityNone    Severity = ""
	SeverityValid   Severity = "valid"
	SeverityInvalid Severity = "invalid"
	SeverityWarning Severity = "warning"
)

// Result is the outcome of a single validation.
type Result struct {
	OK       bool
	Message  string
	Severity Severity
}

func neutral() Result { return Result{OK: true} }

func valid(msg string) Result { return Result{OK: true, Message: msg, Severity: SeverityValid} }

func invalid(msg string) Result { return Result{OK: false, Message: msg, Severity: SeverityInvalid} }

func warning(msg string) Result { return Result{OK: true, Message: msg, Severity: SeverityWarning} }

// Key prefix conventions that only produce warnings.
var keyPrefixes = map[string]struct {
	prefix, vendor string
}{
	"openai-api-key":     {"sk-", "OpenAI"},
	"openrouter-api-key": {"sk-or-", "OpenRouter"},
}

// AuthSecret validates the provider secret for the chosen auth method.
// This is the only validator that blocks wizard navigation.
func AuthSecret(choice, secret string) Result {
	secret = strings.TrimSpace(secret)
	if choice == "" {
		return neutral()
	}
	if domain.IsOAuthChoice(choice) {
		return valid("OAuth - no key needed")
	}
	if secret == "" {
		return invalid("API key / token required for this provider")
	}
	if kp, ok := keyPrefixes[choice]; ok && !strings.HasPrefix(secret, kp.prefix) {
		return warning(kp.vendor + ` keys usually start with "` + kp.prefix + `"`)
	}
	return valid("Key provided")
}

var telegramTokenRe = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]{20,}$`)

// TelegramToken checks the bot token shape "<digits>:<20+ chars>".
func TelegramToken(token string) Result {
	token = strings.TrimSpace(token)
	if token == "" {
		return neutral()
	}
	if telegramTokenRe.MatchString(token) {
		return valid("Valid Telegram token format")
	}
	return invalid("Expected format: 123456:ABC-DEF...")
}

// minDiscordTokenLen is a length heuristic; Discord bot tokens are opaque.
const minDiscordTokenLen = 50

// DiscordToken checks that a Discord bot token is plausibly long.
func DiscordToken(token string) Result {
	token = strings.TrimSpace(token)
	if token == "" {
		return neutral()
	}
	if len(token) >= minDiscordTokenLen {
		return valid("Token length looks good")
	}
	return invalid("Discord tokens are usually 60+ characters")
}

// TailscaleAuthKeyPrefix is the prefix of reusable/ephemeral Tailscale auth keys.
const TailscaleAuthKeyPrefix = "tskey-auth-"

// TailscaleKey checks the auth key prefix.
func TailscaleKey(key string) Result {
	key = strings.TrimSpace(key)
	if key == "" {
		return neutral()
	}
	if strings.HasPrefix(key, TailscaleAuthKeyPrefix) {
		return valid("Valid Tailscale auth key format")
	}
	return invalid("Expected format: " + TailscaleAuthKeyPrefix + "...")
}
