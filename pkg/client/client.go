// Package client is a Go client for the Tendril HTTP service.
//
// Every user action (load, save, validate, turn, test endpoint) runs through a
// singleflight group keyed by action, bot id and a digest of the request payload.
// An identical call made while the first is still outstanding waits for it and
// shares its result. A call with a different payload for the same action and bot
// is queued behind the running one and then sent, so a newer save is never dropped.
package client

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/adapters/apicall"
	"github.com/aretw0/tendril/pkg/codec"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/validator"
	"golang.org/x/sync/singleflight"
)

// APIError is a non-2xx response of the service.
type APIError struct {
	StatusCode int
	Message    string
	Errors     []validator.Issue
	Warnings   []validator.Issue
	// Err is the domain sentinel matching the status, if any.
	Err error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tendril: %d %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// SaveResult is the response of a successful save.
type SaveResult struct {
	Message  string            `json:"message"`
	Warnings []validator.Issue `json:"warnings"`
}

// Client talks to one Tendril service.
// Conversation sessions are tracked per bot, so Turn needs no session bookkeeping.
type Client struct {
	baseURL string
	http    *http.Client
	apiKey  string
	api     ports.APIExecutor
	logger  *slog.Logger

	group singleflight.Group

	mu       sync.Mutex
	sessions map[string]string
	// queues serializes calls of one action on one bot.
	queues map[string]*sync.Mutex
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for service calls.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithAPIKey sets the bearer key sent with conversation turns.
func WithAPIKey(key string) Option {
	return func(cl *Client) {
		cl.apiKey = key
	}
}

// WithAPIExecutor sets the executor used by TestEndpoint.
func WithAPIExecutor(api ports.APIExecutor) Option {
	return func(cl *Client) {
		cl.api = api
	}
}

// WithLogger sets a structured logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   logging.NewNop(),
		sessions: make(map[string]string),
		queues:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.api == nil {
		c.api = apicall.New(apicall.WithHTTPClient(c.http), apicall.WithLogger(c.logger))
	}
	return c
}

// do runs fn once per identical call. Calls of the same action on the same bot
// with a different payload wait for the running one. Every caller gets its own
// copy of the result.
func do[T any](c *Client, action, botID string, payload any, clone func(T) T, fn func() (T, error)) (T, error) {
	var zero T
	sum, err := digest(payload)
	if err != nil {
		return zero, err
	}
	scope := action + ":" + botID
	key := scope + ":" + sum

	v, err, shared := c.group.Do(key, func() (any, error) {
		unlock := c.queue(scope)
		defer unlock()
		return fn()
	})
	if shared {
		c.logger.Debug("Joined in-flight call", "key", key)
	}
	if err != nil {
		return zero, err
	}
	return clone(v.(T)), nil
}

// queue blocks until no other call holds scope and returns the release func.
func (c *Client) queue(scope string) func() {
	c.mu.Lock()
	q, ok := c.queues[scope]
	if !ok {
		q = &sync.Mutex{}
		c.queues[scope] = q
	}
	c.mu.Unlock()

	q.Lock()
	return q.Unlock
}

// digest identifies a request payload. A nil payload has an empty digest.
func digest(payload any) (string, error) {
	if payload == nil {
		return "", nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:8]), nil
}

// LoadBot fetches and normalizes a bot.
func (c *Client) LoadBot(ctx context.Context, botID string) (*domain.Bot, error) {
	return do(c, "load", botID, nil, cloneBot, func() (*domain.Bot, error) {
		var body map[string]any
		if _, err := c.call(ctx, http.MethodGet, configPath(botID), nil, nil, &body, domain.ErrNotFound); err != nil {
			return nil, err
		}
		bot, err := codec.Normalize(codec.Unwrap(body))
		if err != nil {
			return nil, err
		}
		if bot.ID == "" {
			bot.ID = botID
		}
		return bot, nil
	})
}

// SaveBot replaces the stored bot.
// Structural errors come back as an *APIError carrying the issues.
func (c *Client) SaveBot(ctx context.Context, bot *domain.Bot) (*SaveResult, error) {
	payload := codec.Serialize(bot)
	return do(c, "save", bot.ID, payload, cloneSaveResult, func() (*SaveResult, error) {
		var res SaveResult
		if _, err := c.call(ctx, http.MethodPost, configPath(bot.ID), payload, nil, &res, domain.ErrMalformedGraph); err != nil {
			return nil, err
		}
		return &res, nil
	})
}

// Validate asks the service for the integrity report of bot.
func (c *Client) Validate(ctx context.Context, bot *domain.Bot) (validator.Report, error) {
	payload := codec.Serialize(bot)
	return do(c, "validate", bot.ID, payload, cloneReport, func() (validator.Report, error) {
		var report validator.Report
		path := "/api/bots/" + url.PathEscape(bot.ID) + "/validate"
		_, err := c.call(ctx, http.MethodPost, path, payload, nil, &report, domain.ErrMalformedGraph)
		return report, err
	})
}

// Turn runs one conversation turn with botID, starting a session when none is known.
// When the session ended or is gone, the stored session id is dropped so the next
// Turn starts over.
func (c *Client) Turn(ctx context.Context, botID, input string) (domain.Turn, error) {
	return c.chat(ctx, botID, map[string]string{"input": input})
}

// Act applies the back or end control to the conversation with botID.
func (c *Client) Act(ctx context.Context, botID string, action domain.ActionType) (domain.Turn, error) {
	return c.chat(ctx, botID, map[string]string{"action": string(action)})
}

func (c *Client) chat(ctx context.Context, botID string, payload map[string]string) (domain.Turn, error) {
	return do(c, "turn", botID, payload, domain.Turn.Clone, func() (domain.Turn, error) {
		header := http.Header{}
		if id := c.SessionID(botID); id != "" {
			header.Set(domain.SessionHeader, id)
		}
		if c.apiKey != "" {
			header.Set("Authorization", "Bearer "+c.apiKey)
		}

		var turn domain.Turn
		resp, err := c.call(ctx, http.MethodPost, "/api/bots/"+url.PathEscape(botID)+"/chat", payload, header, &turn, domain.ErrSessionNotFound)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusGone) {
				c.ResetSession(botID)
			}
			return domain.Turn{}, err
		}

		if id := resp.Header.Get(domain.SessionHeader); id != "" {
			c.mu.Lock()
			c.sessions[botID] = id
			c.mu.Unlock()
		}
		if turn.SessionEnded {
			c.ResetSession(botID)
		}
		return turn, nil
	})
}

// TestEndpoint runs an api executor config the way a conversation would.
func (c *Client) TestEndpoint(ctx context.Context, botID string, cfg domain.APIConfig) (any, error) {
	return do(c, "test", botID, cfg, cloneValue, func() (any, error) {
		return c.api.Fetch(ctx, cfg)
	})
}

func cloneBot(b *domain.Bot) *domain.Bot {
	if b == nil {
		return nil
	}
	cp := b.Clone()
	return &cp
}

func cloneSaveResult(r *SaveResult) *SaveResult {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Warnings = slices.Clone(r.Warnings)
	return &cp
}

func cloneReport(r validator.Report) validator.Report {
	return validator.Report{Errors: slices.Clone(r.Errors), Warnings: slices.Clone(r.Warnings)}
}

// cloneValue deep-copies decoded JSON values.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// SessionID returns the conversation session tracked for botID.
func (c *Client) SessionID(botID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[botID]
}

// ResetSession forgets the session tracked for botID.
func (c *Client) ResetSession(botID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, botID)
}

func configPath(botID string) string {
	return "/api/bots/" + url.PathEscape(botID) + "/config"
}

// call performs one request. notFound is the sentinel wrapped by 404 responses.
func (c *Client) call(ctx context.Context, method, path string, in any, header http.Header, out any, notFound error) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return nil, decodeError(resp.StatusCode, raw, notFound)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}

func decodeError(status int, raw []byte, notFound error) error {
	var body struct {
		Error    string            `json:"error"`
		Errors   []validator.Issue `json:"errors"`
		Warnings []validator.Issue `json:"warnings"`
	}
	apiErr := &APIError{StatusCode: status}
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Message, apiErr.Errors, apiErr.Warnings = body.Error, body.Errors, body.Warnings
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}

	switch status {
	case http.StatusNotFound:
		apiErr.Err = notFound
	case http.StatusGone:
		apiErr.Err = domain.ErrSessionEnded
	case http.StatusBadRequest:
		if len(apiErr.Errors) > 0 {
			apiErr.Err = validator.Report{Errors: apiErr.Errors}.Err()
		}
	}
	return apiErr
}
