package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateGateway(cfg, ve)
	validateHTTP(cfg, ve)
	validateRun(cfg, ve)
	validatePairing(cfg, ve)
	validateState(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateDefaults(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateGateway(cfg *Config, ve *ValidationError) {
	g := cfg.Gateway
	if g.BaseURL == "" {
		ve.Add("gateway.base_url must not be empty")
	} else if u, err := url.Parse(g.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		ve.Add("gateway.base_url %q must be an absolute http or https URL", g.BaseURL)
	}
	if g.Timeout < 0 {
		ve.Add("gateway.timeout must be >= 0")
	}
}

func validateHTTP(cfg *Config, ve *ValidationError) {
	h := cfg.HTTP
	if h.RateLimit < 0 {
		ve.Add("http.rate_limit must be >= 0")
	}
	if h.RateLimit > 0 && h.Burst <= 0 {
		ve.Add("http.burst must be > 0 when rate_limit is set")
	}
	if cb := h.CircuitBreaker; cb.Enabled {
		if cb.MaxFailures == 0 {
			ve.Add("http.circuit_breaker.max_failures must be > 0 when enabled")
		}
		if cb.Timeout <= 0 {
			ve.Add("http.circuit_breaker.timeout must be > 0 when enabled")
		}
	}
}

func validateRun(cfg *Config, ve *ValidationError) {
	if cfg.Run.Timeout < 0 {
		ve.Add("run.timeout must be >= 0")
	}
	s := cfg.Run.Stages
	for name, d := range map[string]time.Duration{
		"token":    s.Token,
		"channels": s.Channels,
		"gateway":  s.Gateway,
		"health":   s.Health,
	} {
		if d < 0 {
			ve.Add("run.stages.%s must be >= 0", name)
		}
	}
}

func validatePairing(cfg *Config, ve *ValidationError) {
	if cfg.Pairing.Interval <= 0 {
		ve.Add("pairing.interval must be > 0")
	}
	if cfg.Pairing.RemoveDelay < 0 {
		ve.Add("pairing.remove_delay must be >= 0")
	}
}

func validateState(cfg *Config, ve *ValidationError) {
	if cfg.State.Path == "" {
		ve.Add("state.path must not be empty")
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is invalid (want: debug, info, warn, error)", cfg.Logger.Level)
	}
	if f := cfg.Logger.Format; f != "text" && f != "json" {
		ve.Add("logger.format %q is invalid (want: text, json)", f)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	if e := cfg.Tracer.Exporter; e != "noop" && e != "stdout" {
		ve.Add("tracer.exporter %q is invalid (want: noop, stdout)", e)
	}
}

func validateDefaults(cfg *Config, ve *ValidationError) {
	d := cfg.Defaults
	if d.Flow != "" && d.Flow != "quickstart" && d.Flow != "advanced" {
		ve.Add("defaults.flow %q is invalid (want: quickstart, advanced)", d.Flow)
	}
	if d.Tailscale.AuthKey != "" && !strings.HasPrefix(d.Tailscale.AuthKey, "tskey-") {
		ve.Add("defaults.tailscale.auth_key must start with tskey-")
	}
	if c := d.CustomProvider; c.BaseURL != "" {
		if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			ve.Add("defaults.custom_provider.base_url %q is not an absolute URL", c.BaseURL)
		}
	}
}
