package clio

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const (
	defaultMaxAttempts = 7
	defaultMinSleep    = 250 * time.Millisecond
	unauthorizedWait   = time.Second
	rateLimitFallback  = 30 * time.Second
	serverBackoffStart = time.Second
	serverBackoffCap   = 60 * time.Second
)

var retryInPattern = regexp.MustCompile(`Retry in (\d+)`)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithMinSleep sets the floor every attempt is padded to. Zero disables it.
func WithMinSleep(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.minSleep = d
		}
	}
}

// Client issues authenticated requests against the Clio API and absorbs
// 401, 429 and 5xx responses with bounded retries.
type Client struct {
	tokens      *TokenManager
	http        *http.Client
	sleep       Sleeper
	now         func() time.Time
	log         *zap.Logger
	maxAttempts int
	minSleep    time.Duration
}

func NewClient(tokens *TokenManager, opts ...Option) *Client {
	c := &Client{
		tokens:      tokens,
		http:        &http.Client{Timeout: 60 * time.Second},
		sleep:       sleepContext,
		now:         time.Now,
		log:         zap.NewNop(),
		maxAttempts: defaultMaxAttempts,
		minSleep:    defaultMinSleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends the request, retrying per status. When every attempt fails the last
// response is returned without an error; only transport failures on the final
// attempt, token errors and cancellation produce an error.
func (c *Client) Do(ctx context.Context, method, rawURL string, params url.Values, body []byte) (*http.Response, error) {
	target, err := withParams(rawURL, params)
	if err != nil {
		return nil, err
	}

	serverBackoff := backoff.NewExponentialBackOff()
	serverBackoff.InitialInterval = serverBackoffStart
	serverBackoff.RandomizationFactor = 0
	serverBackoff.Multiplier = 2
	serverBackoff.MaxInterval = serverBackoffCap

	for attempt := 1; ; attempt++ {
		last := attempt >= c.maxAttempts

		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, method, target, bodyReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := c.now()
		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if last {
				return nil, err
			}
			wait := serverBackoff.NextBackOff()
			c.log.Warn("clio transport error, retrying",
				zap.String("method", method), zap.String("url", target),
				zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
			if err := c.pause(ctx, start, wait); err != nil {
				return nil, err
			}
			continue
		}

		if !retryable(resp.StatusCode) {
			if err := c.pause(ctx, start, 0); err != nil {
				resp.Body.Close()
				return nil, err
			}
			return resp, nil
		}

		// Buffer the body so the final response stays readable.
		payload, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewReader(payload))

		var wait time.Duration
		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			wait = unauthorizedWait
		case resp.StatusCode == http.StatusTooManyRequests:
			wait = retryAfter(resp.Header, payload)
		default:
			wait = serverBackoff.NextBackOff()
		}
		if last {
			c.log.Warn("clio retries exhausted",
				zap.String("method", method), zap.String("url", target),
				zap.Int("status", resp.StatusCode), zap.Int("attempts", attempt))
			return resp, nil
		}

		c.log.Warn("clio request retrying",
			zap.String("method", method), zap.String("url", target),
			zap.Int("status", resp.StatusCode), zap.Int("attempt", attempt), zap.Duration("wait", wait))

		if resp.StatusCode == http.StatusUnauthorized {
			if _, err := c.tokens.Refresh(ctx); err != nil {
				return nil, err
			}
		}
		if err := c.pause(ctx, start, wait); err != nil {
			return nil, err
		}
	}
}

func retryable(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusTooManyRequests || (status >= 500 && status < 600)
}

// pause waits the larger of the remaining floor and the required wait.
func (c *Client) pause(ctx context.Context, start time.Time, required time.Duration) error {
	wait := max(c.minSleep-c.now().Sub(start), required)
	if wait <= 0 {
		return nil
	}
	return c.sleep(ctx, wait)
}

// retryAfter reads the Retry-After header, then a "Retry in N" hint in the
// error message, falling back to 30s.
func retryAfter(h http.Header, body []byte) time.Duration {
	if v := strings.TrimSpace(h.Get("Retry-After")); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
		return rateLimitFallback
	}
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		if m := retryInPattern.FindStringSubmatch(envelope.Error.Message); m != nil {
			if secs, err := strconv.Atoi(m[1]); err == nil {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return rateLimitFallback
}

func withParams(rawURL string, params url.Values) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, vs := range params {
		q.Del(k)
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func bodyReader(body []byte) io.Reader {
	if body == nil {
		return nil
	}
	return bytes.NewReader(body)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
