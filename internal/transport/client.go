// Package transport talks to the remote chat backend over HTTP.
// It only classifies responses; deciding what the user sees is the caller's job.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"shopchat/internal/logging"
	"shopchat/internal/types"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	chatPath   = "/chat"
	healthPath = "/health"
)

// Config configures a Client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration // zero disables the request timeout
	UserAgent string
}

// Client is an HTTP client for the chat backend. It does not retry.
type Client struct {
	http    *resty.Client
	baseURL string
	logger  *zap.Logger
}

// NewClient creates a client for cfg.BaseURL.
func NewClient(cfg Config) *Client {
	return NewClientWithHTTP(cfg, nil)
}

// NewClientWithHTTP creates a client on top of an existing *http.Client.
func NewClientWithHTTP(cfg Config, hc *http.Client) *Client {
	logger := logging.Get(logging.CategoryTransport)

	var rc *resty.Client
	if hc != nil {
		rc = resty.NewWithClient(hc)
	} else {
		rc = resty.New()
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	rc.SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(0).
		SetLogger(logger.Sugar())
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}
	if cfg.UserAgent != "" {
		rc.SetHeader("User-Agent", cfg.UserAgent)
	}

	rc.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug("backend response",
			zap.String("method", resp.Request.Method),
			zap.String("url", resp.Request.URL),
			zap.Int("status", resp.StatusCode()),
			zap.Duration("elapsed", resp.Time()))
		return nil
	})

	return &Client{
		http:    rc,
		baseURL: baseURL,
		logger:  logger,
	}
}

// CloseIdleConnections releases pooled keep-alive connections.
func (c *Client) CloseIdleConnections() {
	c.http.GetClient().CloseIdleConnections()
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Chat posts req to /chat.
//
// On 2xx the decoded body is returned. On any other status a *StatusError is
// returned together with the body decoded on a best-effort basis (nil if it
// wasn't JSON), so callers can still honour flags such as requires_customer_id.
func (c *Client) Chat(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
	if req.Metadata == nil {
		req.Metadata = map[string]any{}
	}
	if req.Messages == nil {
		req.Messages = []types.Message{}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		Post(chatPath)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}

	body := resp.Body()
	status := resp.StatusCode()

	var out types.ChatResponse
	decodeErr := json.Unmarshal(body, &out)

	if status < 200 || status > 299 {
		se := &StatusError{StatusCode: status}
		if decodeErr == nil {
			se.Message = firstNonEmpty(out.Response, out.Detail)
			return &out, se
		}
		se.Message = truncate(strings.TrimSpace(string(body)), 200)
		return nil, se
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, decodeErr)
	}
	if out.SourceType != "" {
		c.logger.Debug("reply source", zap.String("source_type", out.SourceType))
	}
	return &out, nil
}

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status string `json:"status"`
}

// Health checks GET /health and expects {"status":"healthy"}.
func (c *Client) Health(ctx context.Context) error {
	var hr healthResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&hr).
		Get(healthPath)
	if err != nil {
		return fmt.Errorf("health request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return &StatusError{StatusCode: resp.StatusCode(), Message: truncate(resp.String(), 200)}
	}
	if hr.Status != "healthy" {
		return fmt.Errorf("%w: status %q", ErrUnhealthy, hr.Status)
	}
	return nil
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrServerError matches any 5xx StatusError.
	ErrServerError = errors.New("chat backend server error")

	// ErrUnexpectedStatus matches any non-2xx, non-5xx StatusError.
	ErrUnexpectedStatus = errors.New("unexpected chat backend status")

	// ErrDecode reports a 2xx response whose body was not valid JSON.
	ErrDecode = errors.New("malformed chat backend response")

	// ErrUnhealthy reports a health check that answered with another status.
	ErrUnhealthy = errors.New("chat backend unhealthy")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("chat backend returned %d", e.StatusCode)
	}
	return fmt.Sprintf("chat backend returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the status onto ErrServerError or ErrUnexpectedStatus.
func (e *StatusError) Unwrap() error {
	if e.StatusCode >= 500 {
		return ErrServerError
	}
	return ErrUnexpectedStatus
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
