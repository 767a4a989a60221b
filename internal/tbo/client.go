/**
 * @description
 * HTTP client core for the TBO hotel supplier API.
 * Owns the proxied transport, request timeouts, and the bounded retry policy for
 * transport-level failures.
 *
 * @dependencies
 * - backend/internal/config
 * - github.com/redis/go-redis/v9: token cache
 *
 * @notes
 * - TBO allowlists source IPs, so every request is routed through a fixed-IP
 *   egress proxy when TBO_PROXY_URL is configured.
 * - Retry applies to Authenticate, static data and Search only, and only to
 *   transport-level non-responses. BlockRoom and Book are never re-sent after a
 *   definitive supplier reply; a rejection with the same trace/result/hotel
 *   triple will not succeed on a second attempt.
 */

package tbo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/faredown/hotels-backend/internal/config"
	"github.com/faredown/hotels-backend/internal/logger"
	"github.com/redis/go-redis/v9"
)

const (
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 5 * time.Second
)

type Client struct {
	AuthURL    string
	SearchURL  string
	BookingURL string
	StaticURL  string

	ClientID       string
	UserName       string
	Password       string
	StaticUserName string
	StaticPassword string
	EndUserIP      string

	MaxRetries int

	HTTPClient *http.Client
	Cache      *redis.Client
}

// NewClient builds a supplier client from config. The Redis client backs the
// auth-token and static-data caches; it may be nil in tests that exercise a
// single call.
func NewClient(cfg *config.Config, cache *redis.Client) (*Client, error) {
	transport := &http.Transport{}
	if cfg.TBO.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.TBO.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid TBO_PROXY_URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &Client{
		AuthURL:        cfg.TBO.AuthURL,
		SearchURL:      cfg.TBO.SearchURL,
		BookingURL:     cfg.TBO.BookingURL,
		StaticURL:      cfg.TBO.StaticURL,
		ClientID:       cfg.TBO.ClientID,
		UserName:       cfg.TBO.UserName,
		Password:       cfg.TBO.Password,
		StaticUserName: cfg.TBO.StaticUserName,
		StaticPassword: cfg.TBO.StaticPassword,
		EndUserIP:      cfg.TBO.EndUserIP,
		MaxRetries:     cfg.TBO.MaxRetries,
		HTTPClient: &http.Client{
			Timeout:   cfg.TBO.RequestTimeout,
			Transport: transport,
		},
		Cache: cache,
	}, nil
}

// postJSON sends one JSON request and returns the raw response body.
// A non-2xx HTTP status is a transport-level failure here; supplier-level
// failures travel inside a 200 body as ResponseStatus != 1 and are handled by
// each call's normalization.
func (c *Client) postJSON(ctx context.Context, op, rawURL string, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("tbo %s: marshal request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tbo %s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tbo %s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tbo %s: read response: %w", op, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("tbo %s: http status %d: %s", op, resp.StatusCode, truncate(raw, 300))
	}
	return raw, nil
}

// getJSON issues a GET with query params (static-data endpoints only).
func (c *Client) getJSON(ctx context.Context, op, rawURL string, query url.Values) (json.RawMessage, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("tbo %s: parse url: %w", op, err)
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("tbo %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tbo %s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tbo %s: read response: %w", op, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("tbo %s: http status %d: %s", op, resp.StatusCode, truncate(raw, 300))
	}
	return raw, nil
}

// withRetry runs fn up to MaxRetries times with exponential backoff, capped.
// It gives up immediately on context cancellation or a *SupplierError, which is
// a definitive supplier answer rather than a transport failure.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	attempts := c.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := retryBaseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		var se *SupplierError
		if errors.As(lastErr, &se) {
			return lastErr
		}
		if attempt == attempts {
			break
		}
		logger.Info("Retrying TBO %s after transport error (attempt %d/%d): %v", op, attempt, attempts, lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > retryMaxDelay {
			delay = retryMaxDelay
		}
	}
	return lastErr
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
