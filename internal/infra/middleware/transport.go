// Package middleware composes http.RoundTripper decorators for the setup API
// client: basic auth, user agent, client-side rate limiting and a circuit
// breaker.
package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"openclaw-setup/internal/domain"
)

// Middleware decorates a RoundTripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain wraps base with mws. The first middleware is outermost.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}

// BasicAuth sets HTTP basic auth on every request. An empty password
// disables it.
func BasicAuth(user, password string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		if password == "" {
			return next
		}
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			r = r.Clone(r.Context())
			r.SetBasicAuth(user, password)
			return next.RoundTrip(r)
		})
	}
}

// UserAgent sets the User-Agent header unless the request already has one.
func UserAgent(ua string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get("User-Agent") == "" {
				r = r.Clone(r.Context())
				r.Header.Set("User-Agent", ua)
			}
			return next.RoundTrip(r)
		})
	}
}

// RateLimit blocks each request until limiter admits it or the request
// context ends. A nil limiter disables limiting.
func RateLimit(limiter *rate.Limiter) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		if limiter == nil {
			return next
		}
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if err := limiter.Wait(r.Context()); err != nil {
				return nil, fmt.Errorf("rate limit: %w", err)
			}
			return next.RoundTrip(r)
		})
	}
}

// NewLimiter builds a limiter for perSecond requests. Zero disables limiting.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	Name        string
	MaxFailures uint32
	Timeout     time.Duration
	Interval    time.Duration
}

// errServerStatus marks a 5xx response as a breaker failure. The response
// itself still reaches the caller.
var errServerStatus = errors.New("server error status")

// maxEnvelopePeek bounds how much of a 5xx body is read to look for an
// {ok} envelope.
const maxEnvelopePeek = 64 << 10

// NewBreaker creates a breaker that opens after MaxFailures consecutive
// transport errors or 5xx responses without an {ok} envelope.
func NewBreaker(cfg BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[*http.Response] {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1, // one trial request while half-open
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
}

// CircuitBreaker routes requests through cb. While the circuit is open,
// requests fail fast with domain.ErrCircuitOpen. A nil cb disables it.
func CircuitBreaker(cb *gobreaker.CircuitBreaker[*http.Response]) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		if cb == nil {
			return next
		}
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			resp, err := cb.Execute(func() (*http.Response, error) {
				resp, err := next.RoundTrip(r)
				if err != nil {
					return nil, err
				}
				if resp.StatusCode >= 500 && !hasEnvelope(resp) {
					return resp, errServerStatus
				}
				return resp, nil
			})
			switch {
			case errors.Is(err, errServerStatus):
				return resp, nil
			case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
				return nil, fmt.Errorf("%w: %s: %v", domain.ErrCircuitOpen, cb.Name(), err)
			}
			return resp, err
		})
	}
}

// hasEnvelope reports whether resp carries the {ok} JSON envelope the setup
// API wraps its own failures in. Such a response means the gateway is up,
// so it does not count against the breaker. The body is restored for the
// caller.
func hasEnvelope(resp *http.Response) bool {
	if resp.Body == nil || resp.Body == http.NoBody {
		return false
	}
	peek, err := io.ReadAll(io.LimitReader(resp.Body, maxEnvelopePeek))
	resp.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(peek), resp.Body), resp.Body}
	if err != nil {
		return false
	}

	var env struct {
		OK *bool `json:"ok"`
	}
	return json.Unmarshal(peek, &env) == nil && env.OK != nil
}
