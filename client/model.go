package client

import (
	"context"
	"net/http"
)

const (
	// AuthHeader carries the configured credential on authenticated calls.
	AuthHeader = "Token"

	// RequestIDHeader is stamped on every request when [WithRequestID] is set.
	RequestIDHeader = "X-Request-Id"

	contentTypeHeader = "Content-Type"
	contentTypeForm   = "application/x-www-form-urlencoded"
	contentTypeJSON   = "application/json"

	tracerName = "github.com/adamwoolhether/fetcher/client"
)

// MaxBodySize caps the amount of response body read per call.
// Anything larger is treated as an unusable response and the rest of the
// body is left unread.
const MaxBodySize = 10 << 20 // 10MB

// Descriptor is the transient request description handed to a [Transport].
//
// Body is nil, a pre-encoded string or []byte, or any other value the
// transport serializes as JSON.
type Descriptor struct {
	Method string
	URL    string
	Header http.Header
	Body   any
}

// RawResponse is what a [Transport] hands back after a completed exchange.
type RawResponse struct {
	Status     int
	StatusText string
	Header     http.Header
	Body       []byte
}

// Transport performs the network exchange for a [Descriptor].
//
// A transport that received a response but classifies it as a failure
// reports it with a [*StatusError]. Any other error means no usable
// response was obtained.
type Transport interface {
	RoundTrip(ctx context.Context, d *Descriptor) (*RawResponse, error)
}

// TransportFunc adapts an ordinary function to the [Transport] interface.
type TransportFunc func(ctx context.Context, d *Descriptor) (*RawResponse, error)

// RoundTrip calls f(ctx, d).
func (f TransportFunc) RoundTrip(ctx context.Context, d *Descriptor) (*RawResponse, error) {
	return f(ctx, d)
}

// TransportBuilder constructs a [Transport] around the *http.Client that
// [Build] assembled, so RoundTripper level options still apply.
type TransportBuilder func(hc *http.Client) Transport
