// Package roblox implements the resilient HTTP client for the Roblox web
// APIs: batched presence lookups, username resolution, and place details.
// All calls retry transparently on rate limits, server errors, and
// connection failures; callers only ever see a final success or a terminal
// failure.
package roblox

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

const (
	requestTimeout = 10 * time.Second

	backoffBase = time.Second
	backoffMax  = 60 * time.Second

	// Wait applied on a rate limit when the provider gives no reset hint.
	rateLimitFallback = 2 * time.Second

	// Minimum gap between operational rate-limit alerts for one API host.
	alertCooldown = 60 * time.Second
)

// ErrMalformed marks a response whose payload could not be decoded.
var ErrMalformed = errors.New("malformed response payload")

// AlertFunc receives operational rate-limit alerts. Implementations must not
// block for long; the client is sleeping out a rate limit when it calls this.
type AlertFunc func(ctx context.Context, apiName, detail string)

// Config holds the client settings.
type Config struct {
	// Cookie is the .ROBLOSECURITY token. Optional; presence calls work
	// unauthenticated but may see stricter rate limits.
	Cookie string

	// Alert, when set, is invoked on rate-limit hits, at most once per
	// cooldown window per API host.
	Alert AlertFunc
}

// Client issues calls to the Roblox web APIs with uniform retry behavior.
type Client struct {
	httpClient *http.Client
	cookie     string
	alert      AlertFunc
	logger     *slog.Logger

	// Test seams. Production uses the defaults set in NewClient.
	sleep     func(ctx context.Context, d time.Duration) error
	randFloat func() float64
	now       func() time.Time

	presenceURL     string
	usersBaseURL    string
	placeDetailsURL string

	mu         sync.Mutex
	lastAlerts map[string]time.Time
}

// NewClient creates a new Roblox API client.
//
// TLS certificate verification is disabled on purpose: these are
// consumer-grade, cookie-authenticated endpoints and the original deployment
// targets environments with intercepting proxies.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
		cookie:          cfg.Cookie,
		alert:           cfg.Alert,
		logger:          logger.With("component", "roblox_client"),
		sleep:           sleepContext,
		randFloat:       rand.Float64,
		now:             time.Now,
		presenceURL:     "https://presence.roblox.com/v1/presence/users",
		usersBaseURL:    "https://users.roblox.com/v1/users",
		placeDetailsURL: "https://games.roblox.com/v1/games/multiget-place-details",
		lastAlerts:      make(map[string]time.Time),
	}
}

// execute performs an HTTP call with the full retry policy and decodes the
// 2xx response body into out. Rate limits and server errors retry until the
// context is cancelled; other non-2xx statuses return an *APIError
// immediately.
func (c *Client) execute(ctx context.Context, method, rawURL string, body, out any) error {
	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	attempt := 0
	for {
		status, header, payload, err := c.attempt(ctx, method, rawURL, reqBody)

		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			wait := c.backoff(attempt)
			attempt++
			c.logger.WarnContext(ctx, "Request failed, backing off",
				"url", rawURL, "wait", wait, "attempt", attempt, "error", err)
			if sleepErr := c.sleep(ctx, wait); sleepErr != nil {
				return sleepErr
			}

		case status == http.StatusTooManyRequests || header.Get("x-ratelimit-remaining") == "0":
			wait := c.rateLimitWait(header)
			c.logger.WarnContext(ctx, "Rate limited, waiting for reset",
				"url", rawURL, "wait", wait)
			c.alertRateLimit(ctx, rawURL, wait)
			if sleepErr := c.sleep(ctx, wait); sleepErr != nil {
				return sleepErr
			}

		case status >= 500:
			wait := c.backoff(attempt)
			attempt++
			c.logger.WarnContext(ctx, "Server error, backing off",
				"url", rawURL, "status", status, "wait", wait, "attempt", attempt)
			if sleepErr := c.sleep(ctx, wait); sleepErr != nil {
				return sleepErr
			}

		case status < 200 || status >= 300:
			return &APIError{StatusCode: status, URL: rawURL}

		default:
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(payload, out); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrMalformed, rawURL, err)
			}
			return nil
		}
	}
}

// attempt performs a single HTTP request and fully consumes the response.
func (c *Client) attempt(ctx context.Context, method, rawURL string, body []byte) (int, http.Header, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.cookie != "" {
		req.Header.Set("Cookie", ".ROBLOSECURITY="+c.cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, resp.Header, payload, nil
}

// backoff computes the exponential backoff for the given zero-based attempt:
// base doubled per attempt, capped, plus up to one second of jitter.
func (c *Client) backoff(attempt int) time.Duration {
	wait := backoffBase << uint(attempt)
	if wait > backoffMax || wait <= 0 {
		wait = backoffMax
	}
	return wait + time.Duration(c.randFloat()*float64(time.Second))
}

// rateLimitWait derives the wait from the provider's reset hint plus jitter
// in [0.5s, 1.5s).
func (c *Client) rateLimitWait(header http.Header) time.Duration {
	reset := rateLimitFallback
	if v := header.Get("x-ratelimit-reset"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			reset = time.Duration(secs) * time.Second
		}
	}
	jitter := time.Duration((0.5 + c.randFloat()) * float64(time.Second))
	return reset + jitter
}

// alertRateLimit forwards a rate-limit hit to the alert hook, no more than
// once per cooldown window per API host.
func (c *Client) alertRateLimit(ctx context.Context, rawURL string, wait time.Duration) {
	if c.alert == nil {
		return
	}

	apiName := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		apiName = u.Host
	}

	now := c.now()
	c.mu.Lock()
	if last, ok := c.lastAlerts[apiName]; ok && now.Sub(last) < alertCooldown {
		c.mu.Unlock()
		c.logger.DebugContext(ctx, "Rate limit alert suppressed by cooldown", "api", apiName)
		return
	}
	c.lastAlerts[apiName] = now
	c.mu.Unlock()

	c.alert(ctx, apiName, fmt.Sprintf("Endpoint: %s\nRetrying after %.1fs", rawURL, wait.Seconds()))
}

// sleepContext sleeps for d or until the context is cancelled, whichever
// comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
