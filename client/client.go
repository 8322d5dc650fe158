package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/fetcher/internal/validate"
)

// Client talks to a single backing service. It is immutable after
// [Build] and safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	transport  Transport
	tracer     trace.Tracer
	logger     *slog.Logger
	requestID  bool
	statusText bool
}

// Build creates a [Client] for baseURL. An empty token disables the
// Token header on every call.
func Build(baseURL, token string, optFns ...Option) (*Client, error) {
	if err := validate.Var("baseURL", baseURL, "required,url"); err != nil {
		return nil, fmt.Errorf("validating base url: %w", err)
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	client := &Client{
		baseURL:    baseURL,
		token:      token,
		tracer:     noop.NewTracerProvider().Tracer(tracerName),
		logger:     slog.Default(),
		requestID:  opts.requestID,
		statusText: opts.statusText,
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.tracerProvider != nil {
		client.tracer = opts.tracerProvider.Tracer(tracerName)
	}

	transport, err := buildTransport(&opts, client.logger)
	if err != nil {
		return nil, err
	}
	if opts.validateStatus != nil {
		transport = statusValidator{fn: opts.validateStatus, next: transport}
	}
	client.transport = transport

	return client, nil
}

// BaseURL returns the URL every path is appended to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get dispatches a GET with params as the query string.
func (c *Client) Get(ctx context.Context, path string, params map[string]string, opts ...CallOption) (*Envelope[json.RawMessage], error) {
	return c.dispatch(ctx, http.MethodGet, path, params, nil, opts)
}

// Delete dispatches a DELETE with params as the query string.
func (c *Client) Delete(ctx context.Context, path string, params map[string]string, opts ...CallOption) (*Envelope[json.RawMessage], error) {
	return c.dispatch(ctx, http.MethodDelete, path, params, nil, opts)
}

// Post dispatches a POST. The body is form encoded unless [WithRawBody] is given.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...CallOption) (*Envelope[json.RawMessage], error) {
	return c.dispatch(ctx, http.MethodPost, path, nil, body, opts)
}

// Put dispatches a PUT. The body is form encoded unless [WithRawBody] is given.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...CallOption) (*Envelope[json.RawMessage], error) {
	return c.dispatch(ctx, http.MethodPut, path, nil, body, opts)
}

// Patch dispatches a PATCH. The body is form encoded unless [WithRawBody] is given.
func (c *Client) Patch(ctx context.Context, path string, body any, opts ...CallOption) (*Envelope[json.RawMessage], error) {
	return c.dispatch(ctx, http.MethodPatch, path, nil, body, opts)
}

// dispatch builds the descriptor, runs it through the transport and
// normalizes the outcome. Exactly one of the return values is non-nil.
func (c *Client) dispatch(ctx context.Context, method, path string, params map[string]string, body any, optFns []CallOption) (*Envelope[json.RawMessage], error) {
	settings := newCallOpts()
	for _, opt := range optFns {
		opt(&settings)
	}

	d := Descriptor{
		Method: method,
		URL:    c.buildURL(path, params),
		Header: c.resolveHeaders(settings.headers, !settings.noAuth),
	}

	if hasBody(method) {
		encoded, contentType, err := encodeBody(body, !settings.rawBody)
		if err != nil {
			return nil, fmt.Errorf("encoding body: %w", err)
		}
		d.Body = encoded
		if contentType != "" && d.Header.Get(contentTypeHeader) == "" {
			d.Header.Set(contentTypeHeader, contentType)
		}
	}

	if c.requestID && d.Header.Get(RequestIDHeader) == "" {
		d.Header.Set(RequestIDHeader, uuid.NewString())
	}

	ctx, span := c.tracer.Start(ctx, "fetcher.dispatch", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.full", d.URL),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(d.Header))

	raw, err := c.transport.RoundTrip(ctx, &d)
	if err != nil {
		ferr := handleError(err)
		span.RecordError(ferr)
		span.SetStatus(codes.Error, ferr.Error())
		if errors.Is(err, context.Canceled) {
			c.logger.Debug("dispatch canceled", "method", method, "url", d.URL, "error", ferr)
			return nil, ferr
		}
		c.logger.Error("dispatch failed", "method", method, "url", d.URL, "error", ferr)
		return nil, ferr
	}

	env := formatResponse(raw, !c.statusText)
	span.SetAttributes(attribute.Int("http.response.status_code", env.Code))
	c.logger.Debug("dispatch complete", "method", method, "url", d.URL, "status", env.Code)

	return env, nil
}

func newCallOpts() callOpts {
	return callOpts{headers: make(map[string]string)}
}

func hasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}
