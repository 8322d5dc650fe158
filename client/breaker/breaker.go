// Package breaker provides an [http.RoundTripper] that stops calling the
// backing service after repeated transport failures, using
// [github.com/sony/gobreaker/v2].
//
// Only transport errors count as failures. A response of any status,
// including 5xx, is a successful exchange from the breaker's point of view,
// and so is a request the caller cancelled.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrOpen is wrapped around requests rejected while the breaker is open
// or half-open and saturated.
var ErrOpen = errors.New("circuit breaker open")

// Config describes when the breaker trips and how long it stays open.
type Config struct {
	Name        string
	MaxFailures uint32
	OpenFor     time.Duration
}

// Validate reports whether cfg can build a breaker.
func (c Config) Validate() error {
	if c.MaxFailures == 0 {
		return errors.New("max failures must be greater than zero")
	}
	if c.OpenFor <= 0 {
		return errors.New("open duration must be greater than zero")
	}
	return nil
}

type breaker struct {
	cb   *gobreaker.CircuitBreaker[*http.Response]
	next http.RoundTripper
}

// NewRoundTripper wraps next with a circuit breaker described by cfg.
// State changes are logged through logFn when it returns a logger.
func NewRoundTripper(cfg Config, logFn func() *slog.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if next == nil {
		next = http.DefaultTransport
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logFn == nil {
				return
			}
			if logger := logFn(); logger != nil {
				logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			}
		},
	}

	return &breaker{
		cb:   gobreaker.NewCircuitBreaker[*http.Response](settings),
		next: next,
	}, nil
}

// isSuccessful keeps caller cancellations out of the failure count.
// Deadlines and client timeouts still count.
func isSuccessful(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

func (b *breaker) RoundTrip(r *http.Request) (*http.Response, error) {
	resp, err := b.cb.Execute(func() (*http.Response, error) {
		return b.next.RoundTrip(r)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w", ErrOpen, err)
		}
		return nil, err
	}

	return resp, nil
}
