// Package client talks to a running bridge over HTTP.
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
	"time"

	"github.com/okian/herobans/internal/adapters/assets"
	"github.com/okian/herobans/internal/domain/catalog"
	"github.com/okian/herobans/internal/domain/model"
)

// DefaultTimeout bounds each request.
const DefaultTimeout = 5 * time.Second

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 512

// ErrStatus marks answers outside the 2xx range.
var ErrStatus = errors.New("unexpected status")

// StatusError carries a non-2xx answer.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %d", ErrStatus, e.Code)
	}
	return fmt.Sprintf("%s %d: %s", ErrStatus, e.Code, e.Body)
}

// Unwrap lets errors.Is match ErrStatus.
func (e *StatusError) Unwrap() error { return ErrStatus }

// Client is a StateClient for a remote bridge.
type Client struct {
	base *url.URL
	http *http.Client
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// New creates a client for the bridge at baseURL, e.g. http://127.0.0.1:8765.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse base url: unsupported scheme %q", u.Scheme)
	}
	c := &Client{
		base: u,
		http: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the bridge's current state.
func (c *Client) Get(ctx context.Context) (model.State, error) {
	var st model.State
	err := c.do(ctx, http.MethodGet, "/api/state", nil, nil, &st)
	return st, err
}

// Set replaces the bridge's state and returns the stored record.
func (c *Client) Set(ctx context.Context, payload any) (model.State, error) {
	var st model.State
	err := c.do(ctx, http.MethodPost, "/api/state", nil, payload, &st)
	return st, err
}

// Fonts lists the bridge's selectable fonts.
func (c *Client) Fonts(ctx context.Context) ([]assets.Font, error) {
	var body struct {
		Fonts []assets.Font `json:"fonts"`
	}
	err := c.do(ctx, http.MethodGet, "/api/fonts", nil, nil, &body)
	return body.Fonts, err
}

// Heroes asks the bridge for autocomplete suggestions. A limit <= 0 uses
// the bridge's default.
func (c *Client) Heroes(ctx context.Context, term string, limit int) ([]catalog.Hero, error) {
	q := url.Values{}
	if term != "" {
		q.Set("q", term)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var body struct {
		Heroes []catalog.Hero `json:"heroes"`
	}
	err := c.do(ctx, http.MethodGet, "/api/heroes", q, nil, &body)
	return body.Heroes, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()

	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s %s: %w", method, path, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))})
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}
