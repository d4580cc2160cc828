package gpswox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	baseBackoff = time.Second
	maxBackoff  = 5 * time.Second
	maxBodySize = 32 << 20
)

// RetryPolicy bounds one logical request. MaxRetries is the total number of
// attempts; Timeout applies to each attempt separately.
type RetryPolicy struct {
	MaxRetries int
	Timeout    time.Duration
}

// DefaultPolicy is used for login and device calls.
var DefaultPolicy = RetryPolicy{MaxRetries: 3, Timeout: 15 * time.Second}

// Response is a fully read HTTP response. Bodies are read inside the attempt
// so the per-attempt timeout covers them too.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Backoff returns the delay after the given failed attempt (1-based):
// 1s, 2s, 4s, then capped at 5s.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 4 {
		return maxBackoff
	}
	d := baseBackoff << (attempt - 1)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// Fetcher issues HTTP requests with per-attempt timeouts and exponential
// backoff on transport failures. Completed responses are never retried,
// whatever their status code.
type Fetcher struct {
	client *http.Client
	sleep  func(ctx context.Context, d time.Duration) error
	logger log.FieldLogger
}

// NewFetcher creates a fetcher. A nil client uses a fresh http.Client.
func NewFetcher(client *http.Client, logger log.FieldLogger) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Fetcher{client: client, sleep: sleepContext, logger: logger}
}

// Do performs the request according to policy.
func (f *Fetcher) Do(ctx context.Context, method, rawURL string, body []byte, policy RetryPolicy) (*Response, error) {
	attempts := policy.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	safeURL := RedactURL(rawURL)

	var lastErr error
	made := 0
	for attempt := 1; attempt <= attempts; attempt++ {
		made = attempt
		resp, err := f.attempt(ctx, method, rawURL, body, policy.Timeout)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}

		f.logger.WithFields(log.Fields{
			"url":     safeURL,
			"attempt": attempt,
			"of":      attempts,
		}).WithError(err).Warn("Provider request failed")

		if attempt < attempts {
			if err := f.sleep(ctx, Backoff(attempt)); err != nil {
				lastErr = err
				break
			}
		}
	}
	return nil, &NetworkError{URL: safeURL, Attempts: made, Err: lastErr}
}

func (f *Fetcher) attempt(ctx context.Context, method, rawURL string, body []byte, timeout time.Duration) (*Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
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

var secretParams = []string{"password", "user_api_hash"}

// RedactURL hides credentials and session tokens in a URL for logging.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	changed := false
	for _, p := range secretParams {
		if q.Has(p) {
			q.Set(p, "***")
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}
