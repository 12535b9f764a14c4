// Package fetch is the net/http implementation of mirror.Fetcher.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agentstation/metalayer/pkg/constants"
	"github.com/agentstation/metalayer/pkg/errors"
	"github.com/agentstation/metalayer/pkg/mirror"
)

// DefaultUserAgent identifies us to content servers.
const DefaultUserAgent = "metalayer/1.0"

// maxBodySize caps a single download.
const maxBodySize = 512 << 20

// Client fetches content with a bounded timeout.
type Client struct {
	http      *http.Client
	userAgent string
}

var _ mirror.Fetcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides constants.DefaultHTTPTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying client entirely.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a fetch client.
func New(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: constants.DefaultHTTPTimeout},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch performs a GET, sending conditional headers when the request has them.
// Any HTTP status is a successful fetch; only transport errors fail.
func (c *Client) Fetch(ctx context.Context, r mirror.Request) (*mirror.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return nil, errors.WrapResource("create", "request", "GET "+r.URL, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if r.ETag != "" {
		req.Header.Set("If-None-Match", r.ETag)
	}
	if r.LastModified != "" {
		req.Header.Set("If-Modified-Since", r.LastModified)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WrapIO("fetch", r.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, errors.WrapIO("read", r.URL, err)
	}
	if len(body) > maxBodySize {
		return nil, errors.NewIOError("read", r.URL, fmt.Errorf("body exceeds %d bytes", maxBodySize))
	}

	return &mirror.Response{
		StatusCode:   resp.StatusCode,
		MediaType:    resp.Header.Get("Content-Type"),
		Content:      body,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}, nil
}
