// Package httpclient implements loader.HTTPClient over net/http and over colly.
package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/nDmitry/imagefeed/internal/entity"
	"github.com/nDmitry/imagefeed/internal/loader"
)

// ErrBodyTooLarge is returned when a response body exceeds the configured limit
var ErrBodyTooLarge = errors.New("response body too large")

// ClientConfig holds configuration options for creating HTTP clients
type ClientConfig struct {
	// MaxIdleConns controls the maximum number of idle (keep-alive) connections across all hosts
	MaxIdleConns int

	// MaxIdleConnsPerHost controls the maximum idle (keep-alive) connections to keep per-host
	MaxIdleConnsPerHost int

	IdleConnTimeout time.Duration

	// Timeout is the overall request limit enforced by the http.Client.
	// Zero leaves requests bounded only by their context.
	Timeout time.Duration

	DialTimeout           time.Duration
	KeepAlive             time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration

	UserAgent string

	// MaxBodySize is the largest accepted response body, in bytes, after decompression
	MaxBodySize int64
}

// DefaultConfig returns a ClientConfig with defaults suited to a mobile-style API
func DefaultConfig() ClientConfig {
	return ClientConfig{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		DialTimeout:           10 * time.Second,
		KeepAlive:             60 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		UserAgent:             "imagefeed/1.0",
		MaxBodySize:           10 << 20,
	}
}

// NewHTTPClient creates a new http.Client with the provided configuration.
// If config is nil, DefaultConfig() is used.
func NewHTTPClient(config *ClientConfig) *http.Client {
	if config == nil {
		cfg := DefaultConfig()
		config = &cfg
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: config.KeepAlive,
		}).DialContext,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
	}
}

// New returns the HTTP client selected by cfg.Driver
func New(cfg entity.RemoteConfig) (loader.HTTPClient, error) {
	config := DefaultConfig()

	if cfg.UserAgent != "" {
		config.UserAgent = cfg.UserAgent
	}

	if cfg.MaxBodySize > 0 {
		config.MaxBodySize = cfg.MaxBodySize
	}

	switch cfg.Driver {
	case "", entity.RemoteDriverHTTP:
		return NewClient(&config), nil
	case entity.RemoteDriverColly:
		return NewCollyClient(config, cfg.Parallelism, cfg.Delay)
	default:
		return nil, fmt.Errorf("unknown remote driver %q", cfg.Driver)
	}
}

// Client performs GET requests with net/http, negotiating brotli and gzip compression.
type Client struct {
	http        *http.Client
	userAgent   string
	maxBodySize int64
}

// NewClient creates a Client. If config is nil, DefaultConfig() is used.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		cfg := DefaultConfig()
		config = &cfg
	}

	return &Client{
		http:        NewHTTPClient(config),
		userAgent:   config.UserAgent,
		maxBodySize: config.MaxBodySize,
	}
}

// Get fetches url and returns the fully read, decompressed response.
// Non-2xx responses are not errors here.
func (c *Client) Get(ctx context.Context, url string) (*loader.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)

	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	req.Header.Set("Accept-Encoding", "br, gzip")

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	res, err := c.http.Do(req)

	if err != nil {
		return nil, fmt.Errorf("could not fetch %s: %w", url, err)
	}

	defer res.Body.Close()

	body, err := decodeBody(res.Body, res.Header.Get("Content-Encoding"))

	if err != nil {
		return nil, fmt.Errorf("could not decode response body: %w", err)
	}

	raw, err := readLimited(body, c.maxBodySize)

	if err != nil {
		return nil, err
	}

	header := res.Header.Clone()
	// The body handed to mappers is already decoded
	header.Del("Content-Encoding")
	header.Del("Content-Length")

	return &loader.Response{
		StatusCode: res.StatusCode,
		Header:     header,
		Body:       raw,
	}, nil
}

// decodeBody wraps body in a decompressor matching contentEncoding.
// Unknown encodings are passed through unchanged.
func decodeBody(body io.Reader, contentEncoding string) (io.Reader, error) {
	// Parse encoding (handle "gzip, br" - take first)
	encoding := strings.ToLower(strings.TrimSpace(strings.Split(contentEncoding, ",")[0]))

	switch encoding {
	case "br":
		return brotli.NewReader(body), nil
	case "gzip":
		return gzip.NewReader(body)
	default:
		return body, nil
	}
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}

	raw, err := io.ReadAll(io.LimitReader(r, limit+1))

	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}

	if int64(len(raw)) > limit {
		return nil, fmt.Errorf("%w (exceeds %d bytes)", ErrBodyTooLarge, limit)
	}

	return raw, nil
}

// decodeBytes is decodeBody for an already read body
func decodeBytes(body []byte, contentEncoding string, limit int64) ([]byte, error) {
	r, err := decodeBody(bytes.NewReader(body), contentEncoding)

	if err != nil {
		return nil, err
	}

	return readLimited(r, limit)
}
