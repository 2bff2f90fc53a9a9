package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"optimahub/internal/platform/metrics"
	"optimahub/internal/requestctx"
)

const maxErrorBody = 64 * 1024

// Credentials is the per-session bearer credential holder.
type Credentials interface {
	Token() string
	Clear()
}

// API is what entity services call. *Session implements it.
type API interface {
	Do(ctx context.Context, req Request, out any) error
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithMetrics(collector *metrics.Collector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithUnauthorizedHook runs after a 401 has cleared the session credential.
func WithUnauthorizedHook(fn func(ctx context.Context)) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// Client is the single shared connection to the remote API.
type Client struct {
	baseURL        string
	http           *http.Client
	timeout        time.Duration
	metrics        *metrics.Collector
	onUnauthorized func(ctx context.Context)
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Bind returns a view of the client that authenticates with creds.
func (c *Client) Bind(creds Credentials) *Session {
	return &Session{client: c, creds: creds}
}

type Session struct {
	client *Client
	creds  Credentials
}

func (s *Session) Do(ctx context.Context, req Request, out any) error {
	return s.client.do(ctx, s.creds, req, out)
}

func (c *Client) do(ctx context.Context, creds Credentials, req Request, out any) error {
	var payload []byte
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", req.Method, req.Path, err)
		}
		payload = encoded
	}
	idempotencyKey := ""
	if !req.Idempotent {
		idempotencyKey = uuid.NewString()
	}

	attempts := 1
	if req.Idempotent {
		attempts = 2
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		retry := attempt > 0
		status, body, err := c.roundTrip(ctx, creds, req, payload, idempotencyKey, retry)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			lastErr = err
			slog.Warn("upstream request failed", "method", req.Method, "path", req.Path, "attempt", attempt+1, "err", err)
			continue
		}

		if status == http.StatusUnauthorized && !req.Anonymous {
			if creds != nil {
				creds.Clear()
			}
			slog.Warn("upstream rejected credential", "method", req.Method, "path", req.Path, "requestId", requestctx.GetRequestID(ctx))
			if c.onUnauthorized != nil {
				c.onUnauthorized(ctx)
			}
			return &Error{Status: status, Message: errorMessage(body), Method: req.Method, Path: req.Path}
		}

		if status >= 500 {
			lastErr = &Error{Status: status, Message: errorMessage(body), Method: req.Method, Path: req.Path}
			continue
		}

		if status < 200 || status > 299 || (req.ExpectStatus != 0 && status != req.ExpectStatus) {
			return &Error{Status: status, Message: errorMessage(body), Method: req.Method, Path: req.Path}
		}

		if out == nil || len(bytes.TrimSpace(body)) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode %s %s: %w", req.Method, req.Path, err)
		}
		return nil
	}
	return lastErr
}

func (c *Client) roundTrip(ctx context.Context, creds Credentials, req Request, payload []byte, idempotencyKey string, retry bool) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return 0, nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}
	if reqID := requestctx.GetRequestID(ctx); reqID != "" {
		httpReq.Header.Set("X-Request-ID", reqID)
	}
	if !req.Anonymous && creds != nil {
		if token := creds.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.RecordUpstream(0, time.Since(start), retry)
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	c.metrics.RecordUpstream(resp.StatusCode, time.Since(start), retry)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, raw, nil
}

func errorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if msg, ok := payload.Error.(string); ok {
			return msg
		}
		return ""
	}
	return strings.TrimSpace(string(body))
}

// IsTransient reports whether err came from the network or a 5xx answer.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	status := StatusOf(err)
	return status == 0 || status >= 500 || errors.Is(err, context.DeadlineExceeded)
}
