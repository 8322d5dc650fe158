// Package restytransport adapts a resty.Client to the client.Transport
// interface, letting resty serialize raw bodies and read responses.
package restytransport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/adamwoolhether/fetcher/client"
)

// Transport sends descriptors through resty.
type Transport struct {
	rc *resty.Client
}

// New creates a Transport over hc. A nil hc gets resty's defaults.
// Response bodies are capped at client.MaxBodySize.
func New(hc *http.Client, logger *slog.Logger) *Transport {
	var rc *resty.Client
	if hc != nil {
		rc = resty.NewWithClient(hc)
	} else {
		rc = resty.New()
	}

	if logger == nil {
		logger = slog.Default()
	}
	rc.SetLogger(slogAdapter{logger: logger})
	rc.SetResponseBodyLimit(client.MaxBodySize)

	return &Transport{rc: rc}
}

// Builder returns a client.TransportBuilder for use with
// client.WithTransportBuilder.
func Builder(logger *slog.Logger) client.TransportBuilder {
	return func(hc *http.Client) client.Transport {
		return New(hc, logger)
	}
}

// RoundTrip executes d. Resty accepts every status, so only failures to
// obtain or read a response are reported as errors.
func (t *Transport) RoundTrip(ctx context.Context, d *client.Descriptor) (*client.RawResponse, error) {
	req := t.rc.R().SetContext(ctx)
	if len(d.Header) > 0 {
		req.SetHeaderMultiValues(d.Header)
	}
	if d.Body != nil {
		req.SetBody(d.Body)
	}

	resp, err := req.Execute(d.Method, d.URL)
	if err != nil {
		if resp != nil && resp.RawResponse != nil {
			if errors.Is(err, resty.ErrResponseBodyTooLarge) {
				return nil, &client.StatusError{Response: toRaw(resp), Err: fmt.Errorf("%w: %w", client.ErrBodyTooLarge, err)}
			}
			return nil, &client.StatusError{Response: toRaw(resp), Err: fmt.Errorf("reading body: %w", err)}
		}
		return nil, fmt.Errorf("resty execute: %w", err)
	}

	return toRaw(resp), nil
}

func toRaw(resp *resty.Response) *client.RawResponse {
	return &client.RawResponse{
		Status:     resp.StatusCode(),
		StatusText: client.StatusText(resp.StatusCode(), resp.Status()),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}
}

// slogAdapter satisfies resty.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Errorf(format string, v ...any) {
	a.logger.Error(fmt.Sprintf(format, v...), "component", "resty")
}

func (a slogAdapter) Warnf(format string, v ...any) {
	a.logger.Warn(fmt.Sprintf(format, v...), "component", "resty")
}

func (a slogAdapter) Debugf(format string, v ...any) {
	a.logger.Debug(fmt.Sprintf(format, v...), "component", "resty")
}
