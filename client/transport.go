package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/adamwoolhether/fetcher/client/breaker"
	"github.com/adamwoolhether/fetcher/client/metrics"
	"github.com/adamwoolhether/fetcher/client/throttle"
)

// httpTransport is the default [Transport], backed by an *http.Client.
type httpTransport struct {
	c      *http.Client
	logger *slog.Logger
}

// NewHTTPTransport returns a [Transport] that sends descriptors through hc.
// A nil logger falls back to slog.Default().
func NewHTTPTransport(hc *http.Client, logger *slog.Logger) Transport {
	if hc == nil {
		hc = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &httpTransport{c: hc, logger: logger}
}

func (t *httpTransport) RoundTrip(ctx context.Context, d *Descriptor) (*RawResponse, error) {
	body, contentType, err := EncodeRaw(d.Body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, d.Method, d.URL, body)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	req.Header = d.Header.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if contentType != "" && req.Header.Get(contentTypeHeader) == "" {
		req.Header.Set(contentTypeHeader, contentType)
	}

	resp, err := t.c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exec http do: %w", err)
	}

	shouldExhaust := true
	defer func() {
		if shouldExhaust {
			if _, err := io.Copy(io.Discard, resp.Body); err != nil {
				t.logger.Error("failed to discard unused body", "error", err)
			}
		}
		if err := resp.Body.Close(); err != nil {
			t.logger.Error("failed to close response body", "error", err)
		}
	}()

	raw := &RawResponse{
		Status:     resp.StatusCode,
		StatusText: StatusText(resp.StatusCode, resp.Status),
		Header:     resp.Header,
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, &StatusError{Response: raw, Err: fmt.Errorf("reading body: %w", err)}
	}
	if len(b) > MaxBodySize {
		shouldExhaust = false
		return nil, &StatusError{Response: raw, Err: ErrBodyTooLarge}
	}
	raw.Body = b

	return raw, nil
}

// EncodeRaw serializes a descriptor body that was not form encoded.
// Strings and byte slices pass through unchanged, anything else is JSON.
func EncodeRaw(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return strings.NewReader(b), "", nil
	case []byte:
		return bytes.NewReader(b), "", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("encoding request payload: %w", err)
		}
		return bytes.NewReader(data), contentTypeJSON, nil
	}
}

// StatusText derives the reason phrase from a "200 OK" style status line,
// falling back to the standard text for code.
func StatusText(code int, status string) string {
	text := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
	if text == "" {
		return http.StatusText(code)
	}
	return text
}

// statusValidator rejects responses whose status fails fn.
type statusValidator struct {
	fn   func(int) bool
	next Transport
}

func (v statusValidator) RoundTrip(ctx context.Context, d *Descriptor) (*RawResponse, error) {
	resp, err := v.next.RoundTrip(ctx, d)
	if err != nil {
		return nil, err
	}

	if !v.fn(resp.Status) {
		return nil, &StatusError{Response: resp, Err: ErrUnexpectedStatusCode}
	}

	return resp, nil
}

// userAgent is an http.RoundTripper, enabling the persistent User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}

// buildTransport assembles the RoundTripper chain and wraps it in the
// configured Transport.
func buildTransport(opts *options, logger *slog.Logger) (Transport, error) {
	if opts.transport != nil {
		if opts.httpConfigured() {
			return nil, ErrTransportConflict
		}
		return opts.transport, nil
	}

	hc := &http.Client{}
	if opts.client != nil {
		cpy := *opts.client
		hc = &cpy
	}

	if opts.timeout != nil {
		hc.Timeout = *opts.timeout
	}

	if opts.noFollowRedirects {
		hc.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var rt http.RoundTripper
	switch {
	case opts.rt != nil:
		rt = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		rt = opts.client.Transport
	default:
		rt = http.DefaultTransport
	}

	logFn := func() *slog.Logger { return logger }

	if opts.userAgent != "" {
		rt = userAgent{value: opts.userAgent, base: rt}
	}
	if opts.breaker != nil {
		br, err := breaker.NewRoundTripper(*opts.breaker, logFn, rt)
		if err != nil {
			return nil, fmt.Errorf("configuring circuit breaker: %w", err)
		}
		rt = br
	}
	if opts.throttle != nil {
		th, err := throttle.NewRoundTripper(*opts.throttle, logFn, rt)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		rt = th
	}
	if opts.registerer != nil {
		m, err := metrics.NewRoundTripper(opts.registerer, rt)
		if err != nil {
			return nil, fmt.Errorf("configuring metrics: %w", err)
		}
		rt = m
	}
	hc.Transport = rt

	if opts.builder != nil {
		return opts.builder(hc), nil
	}

	return NewHTTPTransport(hc, logger), nil
}
