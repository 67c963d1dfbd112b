// Package apicall is the default ports.APIExecutor: a read-only HTTP fetch.
package apicall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

var _ ports.APIExecutor = (*Fetcher)(nil)

// MaxResponseBytes caps the body read from an endpoint.
const MaxResponseBytes = 1 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Fetcher performs GET requests. Calls are made once and never retried.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

// Option configures the Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithLogger sets the logger for the Fetcher.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher with a 30s client timeout.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch calls cfg.Endpoint with cfg.Params as query parameters.
// JSON bodies are decoded; anything else is returned as a string.
func (f *Fetcher) Fetch(ctx context.Context, cfg domain.APIConfig) (any, error) {
	method := strings.ToUpper(cfg.Method)
	if method != "" && method != domain.MethodGET {
		return nil, fmt.Errorf("%s %s: %w", method, cfg.Endpoint, domain.ErrMethodNotAllowed)
	}

	target, err := url.Parse(cfg.Endpoint)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q", cfg.Endpoint)
	}
	q := target.Query()
	for _, p := range cfg.Params {
		if p.Key == "" {
			continue
		}
		q.Add(p.Key, p.Value)
	}
	target.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", cfg.Endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	f.logger.Debug("api call", "endpoint", cfg.Endpoint, "status", resp.StatusCode, "duration", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Endpoint: cfg.Endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return string(body), nil
	}
	return decoded, nil
}
