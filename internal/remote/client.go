// Package remote is the authenticated HTTP client for the gymtrack server.
// It owns the request-level failure policy: timeouts, retry with backoff
// for idempotent reads, rate-limit handling, and ETag conflict surfacing.
// Write replay across restarts is the sync queue's job, not this layer's.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/claude/gymtrack/internal/localstore"
	"github.com/claude/gymtrack/internal/token"
)

const (
	requestTimeout = 30 * time.Second
	maxAttempts    = 3
)

// AuthState is the locally persisted identity: the account id and the
// bearer token issued for it.
type AuthState struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

// MergeSummary is the server's report after a migration.
type MergeSummary struct {
	UserID          string `json:"userId"`
	WorkoutsMerged  int    `json:"workoutsMerged"`
	SettingsMerged  bool   `json:"settingsMerged"`
	TemplatesMerged int    `json:"templatesMerged"`
}

// Client talks to the gymtrack server. Auth state lives in the local store
// so a cleared token survives across Client instances.
type Client struct {
	baseURL    string
	store      *localstore.Store
	httpClient *http.Client
	log        *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a client targeting the given base URL.
func New(baseURL string, store *localstore.Store, log *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		store:      store,
		httpClient: &http.Client{},
		log:        log,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Auth returns the stored auth state, if any.
func (c *Client) Auth() (AuthState, bool) {
	var st AuthState
	ok, err := c.store.GetJSON(localstore.KeyAuth, &st)
	if err != nil || !ok || st.Token == "" {
		return AuthState{}, false
	}
	return st, true
}

// usableToken returns the stored token if it has lifetime left beyond the
// clock-skew buffer. No network call is spent on a token known to be dead.
func (c *Client) usableToken() (string, error) {
	st, ok := c.Auth()
	if !ok {
		return "", ErrAuthRequired
	}
	if !token.Usable(st.Token, c.now()) {
		return "", ErrAuthRequired
	}
	return st.Token, nil
}

// clearAuth drops the stored identity after the server rejected it.
func (c *Client) clearAuth() {
	if err := c.store.Remove(localstore.KeyAuth); err != nil {
		c.log.Warn("failed to clear auth state", "error", err)
	}
}

// response bundles what callers need from a completed request.
type response struct {
	status     int
	body       []byte
	etag       string
	retryAfter time.Duration
}

// do runs one authenticated request with the request-level retry policy.
// Idempotent GETs are retried on network failure and on 429; other methods
// get retries only for 429 (the response was received, so the request is
// not in an unknown state).
func (c *Client) do(ctx context.Context, method, path string, body []byte, headers map[string]string, authed bool) (*response, error) {
	var bearer string
	if authed {
		var err error
		bearer, err = c.usableToken()
		if err != nil {
			return nil, err
		}
	}

	var lastErr error
	var wait time.Duration
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if wait <= 0 {
				wait = backoff(attempt)
			}
			if err := c.sleep(ctx, wait); err != nil {
				return nil, &NetworkError{Err: err}
			}
		}
		wait = 0

		resp, err := c.once(ctx, method, path, body, headers, bearer)
		if err != nil {
			lastErr = err
			if method == http.MethodGet {
				c.log.Warn("request failed, retrying", "method", method, "path", path, "attempt", attempt+1, "error", err)
				continue
			}
			return nil, err
		}

		if resp.status == http.StatusTooManyRequests {
			// Honor Retry-After when the server sends one, otherwise fall
			// back to exponential backoff on the next pass.
			lastErr = ErrRateLimited
			wait = resp.retryAfter
			continue
		}

		return c.classify(resp)
	}

	if errors.Is(lastErr, ErrRateLimited) {
		return nil, ErrRateLimited
	}
	return nil, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}

// once performs a single HTTP exchange with the 30-second timeout applied.
func (c *Client) once(ctx context.Context, method, path string, body []byte, headers map[string]string, bearer string) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and transport failures are one class: retryable.
		return nil, &NetworkError{Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	r := &response{
		status: httpResp.StatusCode,
		body:   respBody,
		etag:   httpResp.Header.Get("ETag"),
	}
	if ra := httpResp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			r.retryAfter = time.Duration(secs) * time.Second
		}
	}
	return r, nil
}

// classify maps terminal status codes to the failure taxonomy.
func (c *Client) classify(resp *response) (*response, error) {
	switch {
	case resp.status >= 200 && resp.status < 300:
		return resp, nil
	case resp.status == http.StatusUnauthorized:
		c.clearAuth()
		return nil, ErrAuthExpired
	case resp.status == http.StatusConflict:
		return nil, &ConflictError{Message: errorMessage(resp.body)}
	case resp.status == http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, &ServerError{Status: resp.status, Message: errorMessage(resp.body)}
	}
}

func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return string(body)
}

func backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}
