// Package setupapi is the HTTP client for the gateway's /setup endpoints.
package setupapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"openclaw-setup/internal/domain"
	"openclaw-setup/internal/infra/middleware"
	"openclaw-setup/internal/infra/tracer"
)

// maxResponseBody caps how much of a response is read. Console and doctor
// output can be large, so this is generous.
const maxResponseBody = 10 * 1024 * 1024

// Config configures a Client.
type Config struct {
	BaseURL  string
	Password string
	// Timeout bounds ordinary calls. Zero disables it.
	Timeout time.Duration
	// LongTimeout bounds the run and Tailscale configure calls, which wait
	// for onboarding on the gateway. Zero disables it.
	LongTimeout time.Duration
	UserAgent   string
	RateLimit   float64
	Burst       int
	// Breaker enables the circuit breaker when non-nil.
	Breaker *middleware.BreakerConfig
	// Transport overrides the base transport, mainly for tests.
	Transport http.RoundTripper
}

// Client implements domain.SetupAPI over HTTP.
type Client struct {
	base        *url.URL
	http        *http.Client
	jar         http.CookieJar
	timeout     time.Duration
	longTimeout time.Duration
	logger      *slog.Logger
}

// New creates a Client. The base URL must be absolute.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid gateway base URL %q", cfg.BaseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = "openclaw-setup"
	}
	mws := []middleware.Middleware{
		middleware.UserAgent(ua),
		middleware.BasicAuth("", cfg.Password),
		middleware.RateLimit(middleware.NewLimiter(cfg.RateLimit, cfg.Burst)),
	}
	if cfg.Breaker != nil {
		mws = append(mws, middleware.CircuitBreaker(middleware.NewBreaker(*cfg.Breaker, logger)))
	}

	return &Client{
		base: base,
		http: &http.Client{
			Transport: middleware.Chain(cfg.Transport, mws...),
			Jar:       jar,
		},
		jar:         jar,
		timeout:     cfg.Timeout,
		longTimeout: cfg.LongTimeout,
		logger:      logger,
	}, nil
}

// BaseURL returns the gateway base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// Jar returns the cookie jar shared by every request.
func (c *Client) Jar() http.CookieJar { return c.jar }

// request describes one call to the setup API.
type request struct {
	op          string // e.g. "SetupAPI.Run"
	method      string
	path        string // relative to the base URL
	body        io.Reader
	contentType string
	long        bool
}

// envelopeCheck detects an {ok: ...} envelope in a non-2xx response.
type envelopeCheck struct {
	OK    *bool  `json:"ok"`
	Error string `json:"error"`
}

// do performs req and decodes the JSON response into out. A non-2xx
// response that still carries an {ok} envelope is decoded normally so the
// caller sees the backend's own error text. Everything else that goes wrong
// is an ErrTransport.
func (c *Client) do(ctx context.Context, req request, out any) error {
	ctx, span := tracer.StartSpan(ctx, "setupapi.request",
		trace.WithAttributes(
			tracer.StringAttr("http.method", req.method),
			tracer.StringAttr("setupapi.path", req.path),
		),
	)
	defer span.End()

	timeout := c.timeout
	if req.long {
		timeout = c.longTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.base.JoinPath(req.path).String(), req.body)
	if err != nil {
		tracer.RecordError(span, err)
		return domain.NewDomainError(req.op, domain.ErrTransport, err.Error())
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		tracer.RecordError(span, err)
		c.logger.Debug("setup api request failed", "op", req.op, "error", err)
		return transportError(req.op, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(tracer.IntAttr("http.status_code", resp.StatusCode))
	c.logger.Debug("setup api request",
		"op", req.op,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		tracer.RecordError(span, err)
		return transportError(req.op, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env envelopeCheck
		if json.Unmarshal(data, &env) != nil || env.OK == nil {
			err := statusError(req.op, resp.StatusCode, data, env.Error)
			tracer.RecordError(span, err)
			return err
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		tracer.RecordError(span, err)
		return domain.NewDomainError(req.op, domain.ErrTransport, "decode response: "+err.Error())
	}
	tracer.SetOK(span)
	return nil
}

// doJSON marshals body and performs a JSON POST.
func (c *Client) doJSON(ctx context.Context, op, path string, long bool, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return domain.NewDomainError(op, domain.ErrInvalidInput, "marshal request: "+err.Error())
	}
	return c.do(ctx, request{
		op:          op,
		method:      http.MethodPost,
		path:        path,
		body:        bytes.NewReader(payload),
		contentType: "application/json",
		long:        long,
	}, out)
}

func (c *Client) get(ctx context.Context, op, path string, out any) error {
	return c.do(ctx, request{op: op, method: http.MethodGet, path: path}, out)
}

func transportError(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrCircuitOpen):
		return domain.NewDomainError(op, fmt.Errorf("%w: %w", domain.ErrTransport, domain.ErrCircuitOpen), "gateway unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return domain.NewDomainError(op, fmt.Errorf("%w: %w", domain.ErrTransport, domain.ErrTimeout), err.Error())
	}
	return domain.NewDomainError(op, domain.ErrTransport, err.Error())
}

func statusError(op string, code int, body []byte, msg string) error {
	if msg == "" {
		msg = strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200] + "..."
		}
	}
	detail := fmt.Sprintf("HTTP %d", code)
	if msg != "" {
		detail += ": " + msg
	}
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return domain.NewDomainError(op, fmt.Errorf("%w: %w", domain.ErrTransport, domain.ErrAuthInvalid), detail)
	}
	return domain.NewDomainError(op, domain.ErrTransport, detail)
}
