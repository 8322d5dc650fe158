package throttle

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
)

// Config defines the throttler's requests per second and burst capacity.
type Config struct {
	RPS   int
	Burst int
}

// Validate reports whether both limits are positive.
func (c Config) Validate() error {
	if c.RPS <= 0 || c.Burst <= 0 {
		return fmt.Errorf("rps[%d] and burst[%d] %w", c.RPS, c.Burst, ErrMustNotBeZero)
	}
	return nil
}

// throttle is an http.RoundTripper, using the time/rate token
// bucket limiter to restrict calls to the backing service.
type throttle struct {
	limiter *rate.Limiter
	cfg     Config
	next    http.RoundTripper
	logFn   func() *slog.Logger
}

// NewRoundTripper returns an http.RoundTripper that holds each request until
// the token bucket described by cfg admits it. logFn is resolved per request;
// a nil-returning logFn disables the exhaustion logs.
func NewRoundTripper(cfg Config, logFn func() *slog.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if next == nil {
		next = http.DefaultTransport
	}
	if logFn == nil {
		logFn = func() *slog.Logger { return nil }
	}

	t := &throttle{
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		cfg:     cfg,
		next:    next,
		logFn:   logFn,
	}

	return t, nil
}

func (t *throttle) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	logger := t.logFn()
	if logger == nil {
		if err := t.wait(r); err != nil {
			return nil, err
		}
		return t.next.RoundTrip(r)
	}

	// Allow consumes the token when it succeeds, so no wait is needed.
	if t.limiter.Allow() {
		return t.next.RoundTrip(r)
	}

	logger.Info("throttle tokens exhausted", "method", r.Method, "host", r.URL.Host, "path", r.URL.Path, "rate", t.cfg.RPS, "burst", t.cfg.Burst)

	start := time.Now()
	err := t.wait(r)
	logger.Info("throttle wait complete", "method", r.Method, "path", r.URL.Path, "waited", time.Since(start).String())
	if err != nil {
		return nil, err
	}

	return t.next.RoundTrip(r)
}

func (t *throttle) wait(r *http.Request) error {
	ctx := r.Context()

	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrWaitingFailed, err)
	}

	if err := ctx.Err(); err != nil { // Check context hasn't expired again.
		return fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return nil
}
