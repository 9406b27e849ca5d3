package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"openclaw-setup/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func get(t *testing.T, rt http.RoundTripper, ctx context.Context, url string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := rt.RoundTrip(req)
	if resp != nil {
		t.Cleanup(func() { resp.Body.Close() })
	}
	return resp, err
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(r)
			})
		}
	}
	base := RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		order = append(order, "base")
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})

	_, err := get(t, Chain(base, tag("outer"), tag("inner")), context.Background(), "http://example.invalid/")
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "base"}, order)
}

func TestBasicAuthAndUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		w.Header().Set("X-Auth", map[bool]string{true: user + ":" + pass, false: "none"}[ok])
		w.Header().Set("X-UA", r.UserAgent())
	}))
	defer srv.Close()

	rt := Chain(nil, BasicAuth("", "hunter2"), UserAgent("openclaw-setup/test"))
	resp, err := get(t, rt, context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, ":hunter2", resp.Header.Get("X-Auth"))
	assert.Equal(t, "openclaw-setup/test", resp.Header.Get("X-UA"))

	resp, err = get(t, Chain(nil, BasicAuth("", "")), context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "none", resp.Header.Get("X-Auth"))
}

func TestRateLimitHonoursContext(t *testing.T) {
	var hits atomic.Int32
	base := RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		hits.Add(1)
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})
	rt := Chain(base, RateLimit(rate.NewLimiter(rate.Every(time.Hour), 1)))

	_, err := get(t, rt, context.Background(), "http://example.invalid/")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = get(t, rt, ctx, "http://example.invalid/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
	assert.Equal(t, int32(1), hits.Load())
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, NewLimiter(0, 5))
	l := NewLimiter(2, 0)
	require.NotNil(t, l)
	assert.Equal(t, 1, l.Burst())
}

func TestCircuitBreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cb := NewBreaker(BreakerConfig{Name: "setupapi", MaxFailures: 2, Timeout: time.Minute}, discardLogger())
	rt := Chain(nil, CircuitBreaker(cb))

	for i := 0; i < 2; i++ {
		resp, err := get(t, rt, context.Background(), srv.URL)
		require.NoError(t, err, "5xx responses still reach the caller")
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := get(t, rt, context.Background(), srv.URL)
	assert.ErrorIs(t, err, domain.ErrCircuitOpen)
	assert.Equal(t, int32(2), hits.Load())
}

func TestCircuitBreakerIgnoresClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cb := NewBreaker(BreakerConfig{Name: "setupapi", MaxFailures: 1, Timeout: time.Minute}, discardLogger())
	rt := Chain(nil, CircuitBreaker(cb))
	for i := 0; i < 3; i++ {
		resp, err := get(t, rt, context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreakerIgnoresBackendEnvelopes(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"ok":false,"error":"onboard exited 1"}`)
	}))
	defer srv.Close()

	cb := NewBreaker(BreakerConfig{Name: "setupapi", MaxFailures: 2, Timeout: time.Minute}, discardLogger())
	rt := Chain(nil, CircuitBreaker(cb))

	for i := 0; i < 6; i++ {
		resp, err := get(t, rt, context.Background(), srv.URL)
		require.NoError(t, err, "attempt %d", i+1)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":false,"error":"onboard exited 1"}`, string(body))
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Equal(t, int32(6), hits.Load())
}

func TestCircuitBreakerCountsNonEnvelopeBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>upstream down</html>")
	}))
	defer srv.Close()

	cb := NewBreaker(BreakerConfig{Name: "setupapi", MaxFailures: 1, Timeout: time.Minute}, discardLogger())
	rt := Chain(nil, CircuitBreaker(cb))

	resp, err := get(t, rt, context.Background(), srv.URL)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "<html>upstream down</html>", string(body))
	assert.Equal(t, gobreaker.StateOpen, cb.State())
}

func TestCircuitBreakerCountsTransportErrors(t *testing.T) {
	boom := errors.New("connection refused")
	base := RoundTripperFunc(func(*http.Request) (*http.Response, error) { return nil, boom })
	cb := NewBreaker(BreakerConfig{Name: "setupapi", MaxFailures: 1, Timeout: time.Minute}, discardLogger())
	rt := Chain(base, CircuitBreaker(cb))

	_, err := get(t, rt, context.Background(), "http://example.invalid/")
	assert.ErrorIs(t, err, boom)
	_, err = get(t, rt, context.Background(), "http://example.invalid/")
	assert.ErrorIs(t, err, domain.ErrCircuitOpen)
}
