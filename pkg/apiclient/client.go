package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dmitrymomot/notisync/pkg/notifications"
)

// DefaultTimeout bounds every remote call unless the config overrides it.
const DefaultTimeout = 10 * time.Second

// Remote endpoint paths, relative to the configured base URL.
const (
	listPath        = "/api/notifications/"
	unreadCountPath = "/api/notifications/unread-count/"
	markReadPath    = "/api/notifications/{id}/mark-read/"
	markAllReadPath = "/api/notifications/mark-all-read/"
	deletePath      = "/api/notifications/{id}/"
)

// csrfHeader carries the session's CSRF credential on mutating requests.
const csrfHeader = "X-CSRFToken"

// Config describes how to reach the remote notification store.
type Config struct {
	// BaseURL is the API origin, e.g. "https://app.example.com".
	BaseURL string `env:"NOTIFICATIONS_API_URL,required"`

	// Timeout bounds each individual request.
	Timeout time.Duration `env:"NOTIFICATIONS_API_TIMEOUT" envDefault:"10s"`
}

// Client performs the remote notification operations. It is a plain I/O
// boundary: every call maps to exactly one HTTP request, timeouts are
// enforced per call, and no retries happen here; retry policy belongs to
// the polling scheduler.
//
// Client is safe for concurrent use.
type Client struct {
	http *resty.Client
}

// Option configures a Client.
type Option func(*resty.Client)

// WithCSRFToken attaches the session's CSRF credential to every request.
// Obtaining and refreshing the token is the caller's concern.
func WithCSRFToken(token string) Option {
	return func(rc *resty.Client) {
		if token != "" {
			rc.SetHeader(csrfHeader, token)
		}
	}
}

// WithHeader attaches a static header to every request, e.g. a session
// credential supplied by the embedding application.
func WithHeader(key, value string) Option {
	return func(rc *resty.Client) {
		rc.SetHeader(key, value)
	}
}

// WithCookie attaches a cookie to every request.
func WithCookie(cookie *http.Cookie) Option {
	return func(rc *resty.Client) {
		if cookie != nil {
			rc.SetCookie(cookie)
		}
	}
}

// WithHTTPTransport replaces the underlying transport, mainly for tests
// and custom proxy setups.
func WithHTTPTransport(transport http.RoundTripper) Option {
	return func(rc *resty.Client) {
		if transport != nil {
			rc.SetTransport(transport)
		}
	}
}

// New creates a client for the remote notification API.
func New(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("apiclient: base URL is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("apiclient: invalid base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	rc := resty.New()
	rc.SetBaseURL(strings.TrimRight(baseURL, "/"))
	rc.SetTimeout(timeout)
	rc.SetRetryCount(0)
	rc.SetHeader("Accept", "application/json")

	for _, opt := range opts {
		opt(rc)
	}

	return &Client{http: rc}, nil
}

// List fetches the full notification list for the current user.
func (c *Client) List(ctx context.Context) ([]notifications.Notification, error) {
	var out []notifications.Notification

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(listPath)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	if resp.IsError() {
		return nil, &ServerError{Status: resp.StatusCode()}
	}

	return out, nil
}

// UnreadCount fetches the server's unread counter. The engine derives its
// own count from the cached list; this exists for consumers that want the
// server's number without a full list fetch.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(unreadCountPath)
	if err != nil {
		return 0, &NetworkError{Err: err}
	}
	if resp.IsError() {
		return 0, &ServerError{Status: resp.StatusCode()}
	}

	return out.Count, nil
}

// MarkRead marks one notification as read server-side. A 404 means the
// notification is already gone, which is treated as success: the caller's
// goal (the notification no longer counts as unread) is satisfied.
func (c *Client) MarkRead(ctx context.Context, id int64) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		Post(markReadPath)
	return mutationResult(resp, err)
}

// MarkAllRead marks every notification as read server-side.
func (c *Client) MarkAllRead(ctx context.Context) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Post(markAllReadPath)
	return mutationResult(resp, err)
}

// Delete removes one notification server-side. As with MarkRead, a 404 is
// treated as success.
func (c *Client) Delete(ctx context.Context, id int64) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		Delete(deletePath)
	return mutationResult(resp, err)
}

// mutationResult folds the shared mutation semantics: transport failures
// become NetworkError, 404 is already-satisfied, any other non-2xx is a
// ServerError.
func mutationResult(resp *resty.Response, err error) error {
	if err != nil {
		return &NetworkError{Err: err}
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil
	}
	if resp.IsError() {
		return &ServerError{Status: resp.StatusCode()}
	}
	return nil
}
