package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/fetcher/client/breaker"
	"github.com/adamwoolhether/fetcher/client/throttle"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error
type options struct {
	transport         Transport
	builder           TransportBuilder
	client            *http.Client
	rt                http.RoundTripper
	timeout           *time.Duration
	userAgent         string
	throttle          *throttle.Config
	breaker           *breaker.Config
	registerer        prometheus.Registerer
	noFollowRedirects bool
	tracerProvider    trace.TracerProvider
	requestID         bool
	validateStatus    func(int) bool
	statusText        bool
	logger            *slog.Logger
}

// httpConfigured reports whether any option targets the default HTTP transport.
func (o *options) httpConfigured() bool {
	return o.builder != nil || o.client != nil || o.rt != nil || o.timeout != nil ||
		o.userAgent != "" || o.throttle != nil || o.breaker != nil ||
		o.registerer != nil || o.noFollowRedirects
}

// WithTransport replaces the default HTTP transport entirely.
// It cannot be combined with options that configure the *http.Client.
func WithTransport(t Transport) Option {
	return func(o *options) error {
		if t == nil {
			return errors.New("transport must not be nil")
		}
		o.transport = t
		return nil
	}
}

// WithTransportBuilder builds the transport around the assembled *http.Client,
// keeping throttle, breaker, metrics and user agent settings in effect.
func WithTransportBuilder(b TransportBuilder) Option {
	return func(o *options) error {
		if b == nil {
			return errors.New("transport builder must not be nil")
		}
		o.builder = b
		return nil
	}
}

// WithHTTPClient replaces the default [http.Client]. The client is copied,
// never mutated.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		o.client = hc
		return nil
	}
}

// WithRoundTripper sets a custom [http.RoundTripper] as the base of the chain.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *options) error {
		if rt == nil {
			return errors.New("round tripper must not be nil")
		}
		o.rt = rt
		return nil
	}
}

// WithTimeout sets the overall request timeout on the underlying [http.Client].
func WithTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		o.timeout = &d
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header to all outgoing requests.
func WithUserAgent(header string) Option {
	return func(o *options) error {
		o.userAgent = header
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting with the given requests per second and burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(o *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, throttle.ErrMustNotBeZero)
		}
		o.throttle = &throttle.Config{RPS: rps, Burst: burst}
		return nil
	}
}

// WithCircuitBreaker stops dispatching for openFor after maxFailures
// consecutive transport failures. Responses of any status count as successes.
func WithCircuitBreaker(name string, maxFailures uint32, openFor time.Duration) Option {
	return func(o *options) error {
		cfg := breaker.Config{Name: name, MaxFailures: maxFailures, OpenFor: openFor}
		if err := cfg.Validate(); err != nil {
			return err
		}
		o.breaker = &cfg
		return nil
	}
}

// WithMetrics registers request counters and latency histograms on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) error {
		if reg == nil {
			return errors.New("registerer must not be nil")
		}
		o.registerer = reg
		return nil
	}
}

// WithNoFollowRedirects prevents the [Client] from following HTTP redirects.
func WithNoFollowRedirects() Option {
	return func(o *options) error {
		o.noFollowRedirects = true
		return nil
	}
}

// WithTracerProvider records a client span around every dispatch.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) error {
		if tp == nil {
			return errors.New("tracer provider must not be nil")
		}
		o.tracerProvider = tp
		return nil
	}
}

// WithRequestID stamps a random X-Request-Id on calls that don't carry one.
func WithRequestID() Option {
	return func(o *options) error {
		o.requestID = true
		return nil
	}
}

// WithValidateStatus makes statuses rejected by fn fail the call with a
// [*RemoteError] instead of returning an envelope with OK false.
func WithValidateStatus(fn func(status int) bool) Option {
	return func(o *options) error {
		if fn == nil {
			return errors.New("validate func must not be nil")
		}
		o.validateStatus = fn
		return nil
	}
}

// WithStatusText fills Envelope.Message with the response status text.
// By default the field is omitted.
func WithStatusText() Option {
	return func(o *options) error {
		o.statusText = true
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// CallOption is a functional option for a single verb call.
type CallOption func(*callOpts)

type callOpts struct {
	headers map[string]string
	noAuth  bool
	rawBody bool
}

// WithHeaders adds headers to the call. A "Token" header here overrides
// the configured credential.
func WithHeaders(headers map[string]string) CallOption {
	return func(opts *callOpts) {
		for k, v := range headers {
			opts.headers[k] = v
		}
	}
}

// WithoutAuth skips the Token header for this call.
func WithoutAuth() CallOption {
	return func(opts *callOpts) {
		opts.noAuth = true
	}
}

// WithRawBody hands the body to the transport as-is instead of form
// encoding it. Strings and byte slices are sent verbatim, anything else
// as JSON.
func WithRawBody() CallOption {
	return func(opts *callOpts) {
		opts.rawBody = true
	}
}
