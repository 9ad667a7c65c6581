// Package transport provides the HTTP plumbing under the YouTube Data API
// client: API key injection, request pacing and a circuit breaker.
package transport

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"ytpicker/internal/retry"
)

// ErrCircuitOpen is returned when the breaker rejects a request.
var ErrCircuitOpen = errors.New("transport: circuit breaker is open")

// Config holds transport configuration.
type Config struct {
	// UserAgent for outgoing requests.
	UserAgent string
	// RequestsPerSecond paces requests per API key (0 = unlimited).
	RequestsPerSecond float64
	// Burst is the token bucket size.
	Burst int
	// Timeout for individual HTTP requests.
	Timeout time.Duration
	// Breaker configures the circuit breaker.
	Breaker BreakerConfig
}

// BreakerConfig configures circuit breaker behavior.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold uint32
	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout time.Duration
	// HalfOpenMaxRequests is the number of probe requests allowed while half-open.
	HalfOpenMaxRequests uint32
}

// DefaultConfig returns sensible defaults for the Data API.
func DefaultConfig() Config {
	return Config{
		UserAgent:         "ytpicker/1.0",
		RequestsPerSecond: 5,
		Burst:             5,
		Timeout:           15 * time.Second,
		Breaker: BreakerConfig{
			FailureThreshold:    5,
			OpenTimeout:         30 * time.Second,
			HalfOpenMaxRequests: 1,
		},
	}
}

// NewPool returns a pooled base transport shared between API keys.
func NewPool() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
}

// Transport is an http.RoundTripper bound to one API key.
type Transport struct {
	apiKey    string
	userAgent string
	base      http.RoundTripper
	limiter   *RateLimiter
	breaker   *gobreaker.CircuitBreaker
}

// New creates a Transport that authenticates with apiKey and sends requests
// through base (http.DefaultTransport when nil).
func New(apiKey string, base http.RoundTripper, cfg Config) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker = DefaultConfig().Breaker
	}

	threshold := cfg.Breaker.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "youtube-data-api",
		MaxRequests: cfg.Breaker.HalfOpenMaxRequests,
		Timeout:     cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("transport: circuit state changed")
		},
	})

	return &Transport{
		apiKey:    apiKey,
		userAgent: cfg.UserAgent,
		base:      base,
		limiter:   NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
		breaker:   breaker,
	}
}

// serverStatusError carries a 5xx response through the breaker so it counts
// as a failure while still reaching the caller intact.
type serverStatusError struct {
	resp *http.Response
}

func (e *serverStatusError) Error() string {
	return fmt.Sprintf("upstream status %d", e.resp.StatusCode)
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	r := req.Clone(req.Context())
	if t.apiKey != "" {
		q := r.URL.Query()
		q.Set("key", t.apiKey)
		r.URL.RawQuery = q.Encode()
	}
	if t.userAgent != "" && r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", t.userAgent)
	}

	out, err := t.breaker.Execute(func() (interface{}, error) {
		resp, err := t.base.RoundTrip(r)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return nil, &serverStatusError{resp: resp}
		}
		return resp, nil
	})

	var statusErr *serverStatusError
	switch {
	case errors.As(err, &statusErr):
		return statusErr.resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, retry.Permanent(fmt.Errorf("%w: %v", ErrCircuitOpen, err))
	case err != nil:
		return nil, err
	}

	resp := out.(*http.Response)
	if resp.StatusCode == http.StatusTooManyRequests {
		t.limiter.RecordThrottle()
	} else if resp.StatusCode < 300 {
		t.limiter.RecordSuccess()
	}
	return resp, nil
}

// Limiter exposes the per-key rate limiter.
func (t *Transport) Limiter() *RateLimiter {
	return t.limiter
}

// BreakerState reports the circuit state ("closed", "open", "half-open").
func (t *Transport) BreakerState() string {
	return t.breaker.State().String()
}
