// Package helix binds the upstream provider capability to the Twitch Helix API.
package helix

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/okian/streamscout/internal/adapters/upstream"
	"github.com/okian/streamscout/internal/domain/model"
	"github.com/okian/streamscout/pkg/logger"
	"github.com/okian/streamscout/pkg/metrics"
)

// Defaults.
const (
	defaultBaseURL          = "https://api.twitch.tv/helix"
	defaultAuthURL          = "https://id.twitch.tv/oauth2/token"
	defaultRequestTimeout   = 30 * time.Second
	defaultRetryMax         = 3
	defaultRetryWaitMin     = time.Second
	defaultRetryWaitMax     = 10 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
	defaultWarmupDelay      = 2 * time.Second

	// MaxPerCall is the Helix cap on ids/names per request and items per page.
	MaxPerCall = 100

	maxErrorBody = 256
)

// Operation labels for metrics and errors.
const (
	opToken          = "token"
	opWarmup         = "warmup"
	opValidate       = "validate"
	opListTop        = "list_top"
	opListBroadcasts = "list_broadcasts"
)

// Client opens Helix sessions with app-access credentials.
type Client struct {
	clientID     string
	clientSecret string

	baseURL          string
	authURL          string
	requestTimeout   time.Duration
	retryMax         int
	retryWaitMin     time.Duration
	retryWaitMax     time.Duration
	handshakeTimeout time.Duration
	warmupDelay      time.Duration
	pageDelay        time.Duration

	logger logger.Logger
}

var _ upstream.Connector = (*Client)(nil)

// New creates a Client. Credentials are checked on Connect.
func New(clientID, clientSecret string, opts ...Option) *Client {
	c := &Client{
		clientID:         strings.TrimSpace(clientID),
		clientSecret:     strings.TrimSpace(clientSecret),
		baseURL:          defaultBaseURL,
		authURL:          defaultAuthURL,
		requestTimeout:   defaultRequestTimeout,
		retryMax:         defaultRetryMax,
		retryWaitMin:     defaultRetryWaitMin,
		retryWaitMax:     defaultRetryWaitMax,
		handshakeTimeout: defaultHandshakeTimeout,
		warmupDelay:      defaultWarmupDelay,
		logger:           logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")
	return c
}

// CheckCredentials fails fast with upstream.ErrAuth when credentials are absent.
func (c *Client) CheckCredentials() error {
	if c.clientID == "" || c.clientSecret == "" {
		return fmt.Errorf("%w: %v", upstream.ErrAuth, errMissingCreds)
	}
	return nil
}

// Connect exchanges credentials for a token, probes the streams endpoint and
// waits the warm-up delay. All of it must finish within the handshake timeout.
func (c *Client) Connect(ctx context.Context) (upstream.Session, error) {
	if err := c.CheckCredentials(); err != nil {
		return nil, err
	}

	hctx, cancel := context.WithTimeout(ctx, c.handshakeTimeout)
	defer cancel()

	rc := c.newRetryClient()
	token, err := c.fetchToken(hctx, rc)
	if err != nil {
		rc.HTTPClient.CloseIdleConnections()
		return nil, c.handshakeErr(ctx, hctx, err)
	}

	s := &session{
		http:      rc,
		baseURL:   c.baseURL,
		clientID:  c.clientID,
		token:     token,
		pageDelay: c.pageDelay,
		logger:    c.logger,
	}

	if _, err := s.get(hctx, opWarmup, "/streams", url.Values{"first": {"1"}}); err != nil {
		_ = s.Close()
		return nil, c.handshakeErr(ctx, hctx, err)
	}

	if c.warmupDelay > 0 {
		t := time.NewTimer(c.warmupDelay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-hctx.Done():
			_ = s.Close()
			return nil, c.handshakeErr(ctx, hctx, hctx.Err())
		}
	}

	c.logger.Debug(ctx, "helix session ready")
	return s, nil
}

// handshakeErr distinguishes our own deadline from caller cancellation.
func (c *Client) handshakeErr(parent, hctx context.Context, err error) error {
	switch {
	case errors.Is(err, upstream.ErrAuth):
		return err
	case parent.Err() != nil:
		return fmt.Errorf("helix handshake: %w", parent.Err())
	case errors.Is(hctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w after %s: %v", upstream.ErrHandshakeTimeout, c.handshakeTimeout, err)
	default:
		return fmt.Errorf("helix handshake: %w", err)
	}
}

func (c *Client) newRetryClient() *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = c.retryMax
	rc.RetryWaitMin = c.retryWaitMin
	rc.RetryWaitMax = c.retryWaitMax
	rc.HTTPClient.Timeout = c.requestTimeout
	rc.Logger = logger.Retryable(c.logger)
	// Hand the final response back so 429/401 can be classified.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return rc
}

func (c *Client) fetchToken(ctx context.Context, rc *retryablehttp.Client) (string, error) {
	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"client_credentials"},
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &upstream.CallError{Op: opToken, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := rc.Do(req)
	if err != nil {
		metrics.RecordUpstreamCall(opToken, "error", time.Since(start))
		return "", &upstream.CallError{Op: opToken, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordUpstreamCall(opToken, "error", time.Since(start))
		return "", &upstream.CallError{Op: opToken, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		metrics.RecordUpstreamCall(opToken, "auth", time.Since(start))
		return "", fmt.Errorf("%w: token endpoint answered %d: %s", upstream.ErrAuth, resp.StatusCode, snippet(body))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		metrics.RecordUpstreamCall(opToken, "error", time.Since(start))
		return "", &upstream.CallError{Op: opToken, Status: resp.StatusCode, Err: fmt.Errorf("%w: %s", errUnexpectedCode, snippet(body))}
	}

	token := gjson.GetBytes(body, "access_token").String()
	if token == "" {
		metrics.RecordUpstreamCall(opToken, "error", time.Since(start))
		return "", &upstream.CallError{Op: opToken, Status: resp.StatusCode, Err: errNoAccessToken}
	}
	metrics.RecordUpstreamCall(opToken, "ok", time.Since(start))
	return token, nil
}

// session is one authenticated Helix connection.
type session struct {
	http      *retryablehttp.Client
	baseURL   string
	clientID  string
	token     string
	pageDelay time.Duration
	logger    logger.Logger
	closed    atomic.Bool
}

func (s *session) Validate(ctx context.Context, names []string) ([]model.Entity, error) {
	if len(names) == 0 {
		return nil, nil
	}
	if len(names) > MaxPerCall {
		return nil, &upstream.CallError{Op: opValidate, Err: ErrBatchTooLarge}
	}
	body, err := s.get(ctx, opValidate, "/games", url.Values{"name": names})
	if err != nil {
		return nil, err
	}
	return parseEntities(body), nil
}

func (s *session) ListTop(ctx context.Context, count int) ([]model.Entity, error) {
	var (
		out    []model.Entity
		cursor string
	)
	for page := 0; len(out) < count; page++ {
		if page > 0 && s.pageDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.pageDelay):
			}
		}
		q := url.Values{"first": {strconv.Itoa(min(count-len(out), MaxPerCall))}}
		if cursor != "" {
			q.Set("after", cursor)
		}
		body, err := s.get(ctx, opListTop, "/games/top", q)
		if err != nil {
			if len(out) > 0 {
				s.logger.Warn(ctx, "top listing truncated", logger.Int("fetched", len(out)), logger.Error(err))
				return out, nil
			}
			return nil, err
		}
		entities := parseEntities(body)
		out = append(out, entities...)
		cursor = gjson.Get(body, "pagination.cursor").String()
		if len(entities) == 0 || cursor == "" {
			break
		}
	}
	if len(out) > count {
		out = out[:count]
	}
	return out, nil
}

func (s *session) ListBroadcasts(ctx context.Context, entityID string, limit int) ([]model.Broadcast, error) {
	if limit <= 0 || limit > MaxPerCall {
		limit = MaxPerCall
	}
	body, err := s.get(ctx, opListBroadcasts, "/streams", url.Values{
		"game_id": {entityID},
		"first":   {strconv.Itoa(limit)},
	})
	if err != nil {
		return nil, err
	}
	var out []model.Broadcast
	gjson.Get(body, "data").ForEach(func(_, v gjson.Result) bool {
		out = append(out, model.Broadcast{
			ID:          v.Get("id").String(),
			UserName:    v.Get("user_name").String(),
			ViewerCount: int(v.Get("viewer_count").Int()),
		})
		return true
	})
	return out, nil
}

func (s *session) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.http.HTTPClient.CloseIdleConnections()
	}
	return nil
}

// get performs one authenticated GET and classifies the outcome.
func (s *session) get(ctx context.Context, op, path string, q url.Values) (string, error) {
	if s.closed.Load() {
		return "", &upstream.CallError{Op: op, Err: ErrSessionClosed}
	}

	u := s.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", &upstream.CallError{Op: op, Err: err}
	}
	req.Header.Set("Client-Id", s.clientID)
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.http.Do(req)
	if err != nil {
		metrics.RecordUpstreamCall(op, "error", time.Since(start))
		return "", &upstream.CallError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if remaining, convErr := strconv.Atoi(resp.Header.Get("Ratelimit-Remaining")); convErr == nil {
		metrics.UpdateRateLimitRemaining(remaining)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordUpstreamCall(op, "error", time.Since(start))
		return "", &upstream.CallError{Op: op, Status: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		metrics.RecordUpstreamCall(op, "rate_limited", time.Since(start))
		return "", &upstream.CallError{
			Op:     op,
			Status: resp.StatusCode,
			Err:    &upstream.RateLimitedError{RetryAfter: retryAfter(resp.Header, time.Now())},
		}
	case resp.StatusCode == http.StatusUnauthorized:
		metrics.RecordUpstreamCall(op, "auth", time.Since(start))
		return "", &upstream.CallError{Op: op, Status: resp.StatusCode, Err: upstream.ErrAuth}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		metrics.RecordUpstreamCall(op, "error", time.Since(start))
		return "", &upstream.CallError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%w: %s", errUnexpectedCode, snippet(raw))}
	}

	body := string(raw)
	if !gjson.Valid(body) {
		metrics.RecordUpstreamCall(op, "malformed", time.Since(start))
		return "", &upstream.CallError{Op: op, Status: resp.StatusCode, Err: ErrMalformed}
	}
	metrics.RecordUpstreamCall(op, "ok", time.Since(start))
	return body, nil
}

func parseEntities(body string) []model.Entity {
	var out []model.Entity
	gjson.Get(body, "data").ForEach(func(_, v gjson.Result) bool {
		id := v.Get("id").String()
		if id == "" {
			return true
		}
		out = append(out, model.Entity{
			ID:        id,
			Name:      v.Get("name").String(),
			BoxArtURL: v.Get("box_art_url").String(),
		})
		return true
	})
	return out
}

// retryAfter reads Retry-After seconds, falling back to Helix's Ratelimit-Reset epoch.
func retryAfter(h http.Header, now time.Time) time.Duration {
	if s, err := strconv.Atoi(h.Get("Retry-After")); err == nil && s > 0 {
		return time.Duration(s) * time.Second
	}
	if reset, err := strconv.ParseInt(h.Get("Ratelimit-Reset"), 10, 64); err == nil {
		if d := time.Unix(reset, 0).Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
