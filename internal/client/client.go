// Package client is a typed Go client for the sitecms REST API.
//
// Every GET goes through an apicache.Cache keyed by the full request URL, and
// every write clears the cached reads it affects.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sitecms/internal/apicache"
	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTransient marks network failures and 5xx answers. Callers may retry.
	ErrTransient = errors.New("transient failure")
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status      int
	Message     string
	Field       string
	FieldErrors map[string]string
}

func (e *APIError) Error() string {
	switch {
	case e.Message != "" && e.Field != "":
		return fmt.Sprintf("%s: %s (status %d)", e.Field, e.Message, e.Status)
	case e.Message != "":
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	case len(e.FieldErrors) > 0:
		return fmt.Sprintf("%d field errors (status %d)", len(e.FieldErrors), e.Status)
	default:
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
}

// Unwrap maps the status code onto the package sentinels.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity:
		return ErrValidation
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return ErrUnauthorized
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusTooManyRequests || e.Status >= 500:
		return ErrTransient
	}
	return nil
}

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithCache shares a cache between clients.
func WithCache(cache *apicache.Cache) Option {
	return func(c *Client) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// WithToken sets the bearer token used for admin calls.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    HTTPDoer
	cache   *apicache.Cache
	logger  *zap.Logger

	mu    sync.RWMutex
	token string
}

// New returns a client for the API rooted at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}

	c := &Client{
		baseURL: base,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = apicache.New(nil, apicache.WithLogger(c.logger))
	}
	return c, nil
}

// Cache exposes the read cache.
func (c *Client) Cache() *apicache.Cache {
	return c.cache
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// cachedGet decodes a memoized public read.
func (c *Client) cachedGet(ctx context.Context, path string, dst any) error {
	target := c.baseURL + path
	raw, err := c.cache.Fetch(ctx, target, func(ctx context.Context) ([]byte, error) {
		return c.do(ctx, http.MethodGet, target, nil, false)
	})
	if err != nil {
		return err
	}
	return decodeInto(raw, dst, path)
}

// send performs an uncached request and decodes the answer into dst when it
// is not nil.
func (c *Client) send(ctx context.Context, method, path string, body any, auth bool, dst any) error {
	raw, err := c.do(ctx, method, c.baseURL+path, body, auth)
	if err != nil {
		return err
	}
	if dst == nil || len(raw) == 0 {
		return nil
	}
	return decodeInto(raw, dst, path)
}

func (c *Client) do(ctx context.Context, method, target string, body any, auth bool) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		token := c.Token()
		if token == "" {
			return nil, &APIError{Status: http.StatusUnauthorized, Message: "not logged in"}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransient, method, target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrTransient, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp.StatusCode, raw)
		c.logger.Debug("api request failed",
			zap.String("method", method),
			zap.String("url", target),
			zap.Int("status", resp.StatusCode),
		)
		return nil, apiErr
	}
	return raw, nil
}

func decodeAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{Status: status}
	var body struct {
		Error  string            `json:"error"`
		Field  string            `json:"field"`
		Errors map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
		return apiErr
	}
	apiErr.Message = body.Error
	apiErr.Field = body.Field
	if len(body.Errors) > 0 {
		apiErr.FieldErrors = body.Errors
	}
	return apiErr
}

func (c *Client) clear(ctx context.Context, paths ...string) {
	for _, path := range paths {
		if err := c.cache.ClearURL(ctx, c.baseURL+path); err != nil {
			c.logger.Warn("failed to clear cached read", zap.String("path", path), zap.Error(err))
		}
	}
}

// canonicalSlug matches the server's slug normalization so that reads and
// writes of one page share cache keys.
func canonicalSlug(slug string) string {
	return url.PathEscape(strings.ToLower(strings.TrimSpace(slug)))
}

func contentPath(slug string) string {
	return "/api/content/" + canonicalSlug(slug)
}

func formPath(slug string) string {
	return "/api/forms/slug/" + canonicalSlug(slug)
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
