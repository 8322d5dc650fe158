// Command fetcher sends one request to a backing service and prints the
// normalized envelope.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/adamwoolhether/fetcher"
	"github.com/adamwoolhether/fetcher/client"
	"github.com/adamwoolhether/fetcher/client/restytransport"
	"github.com/adamwoolhether/fetcher/internal/config"
	"github.com/adamwoolhether/fetcher/internal/logger"
)

// errDispatch marks a failure whose ErrorResult was already written.
var errDispatch = errors.New("dispatch failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errDispatch) {
			fmt.Fprintf(os.Stderr, "fetcher: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load(args, stderr)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	zl := logger.New(cfg.LogLevel, stderr)
	defer func() { _ = zl.Sync() }()
	log := logger.Slog(zl)

	c, err := fetcher.New(cfg.BaseURL, cfg.Token, clientOptions(cfg, log)...)
	if err != nil {
		return fmt.Errorf("build client: %w", err)
	}

	log.Debug("dispatching", "method", cfg.Method, "base_url", cfg.BaseURL, "path", cfg.Path, "transport", cfg.Transport)

	env, err := call(ctx, c, cfg)
	if err != nil {
		res, ok := client.AsErrorResult(err)
		if !ok {
			return err
		}
		if err := writeJSON(stderr, res); err != nil {
			return err
		}
		return errDispatch
	}

	return writeJSON(stdout, env)
}

func clientOptions(cfg *config.Config, log *slog.Logger) []client.Option {
	opts := []client.Option{
		client.WithLogger(log),
		client.WithTimeout(cfg.Timeout),
		client.WithRequestID(),
	}

	if cfg.UserAgent != "" {
		opts = append(opts, client.WithUserAgent(cfg.UserAgent))
	}
	if cfg.RPS > 0 {
		opts = append(opts, client.WithThrottle(cfg.RPS, max(cfg.Burst, 1)))
	}
	if cfg.StatusText {
		opts = append(opts, client.WithStatusText())
	}
	if cfg.Transport == "resty" {
		opts = append(opts, client.WithTransportBuilder(restytransport.Builder(log)))
	}

	return opts
}

func call(ctx context.Context, c *client.Client, cfg *config.Config) (*client.Envelope[json.RawMessage], error) {
	headers := make(map[string]string, len(cfg.Headers)+1)
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	callOpts := []client.CallOption{client.WithHeaders(headers)}
	if cfg.NoAuth {
		callOpts = append(callOpts, client.WithoutAuth())
	}

	switch cfg.Method {
	case http.MethodGet, http.MethodDelete:
		if cfg.JSON != "" || len(cfg.Form) > 0 {
			return nil, fmt.Errorf("--json and --form are not supported for %s", cfg.Method)
		}
		if cfg.Method == http.MethodGet {
			return c.Get(ctx, cfg.Path, cfg.Params, callOpts...)
		}
		return c.Delete(ctx, cfg.Path, cfg.Params, callOpts...)
	}

	if len(cfg.Params) > 0 {
		return nil, fmt.Errorf("--param is not supported for %s", cfg.Method)
	}

	var body any
	switch {
	case cfg.JSON != "":
		if !json.Valid([]byte(cfg.JSON)) {
			return nil, errors.New("--json is not valid JSON")
		}
		if !hasHeader(headers, "Content-Type") {
			headers["Content-Type"] = "application/json"
		}
		body = cfg.JSON
		callOpts = append(callOpts, client.WithRawBody())
	case len(cfg.Form) > 0:
		body = cfg.Form
	}

	switch cfg.Method {
	case http.MethodPost:
		return c.Post(ctx, cfg.Path, body, callOpts...)
	case http.MethodPut:
		return c.Put(ctx, cfg.Path, body, callOpts...)
	case http.MethodPatch:
		return c.Patch(ctx, cfg.Path, body, callOpts...)
	default:
		return nil, fmt.Errorf("unsupported method %q", cfg.Method)
	}
}

func hasHeader(headers map[string]string, key string) bool {
	for k := range headers {
		if http.CanonicalHeaderKey(k) == key {
			return true
		}
	}
	return false
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
