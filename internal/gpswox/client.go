package gpswox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultDriverEndpoints are the driver URL templates tried in order. The
// provider does not document one stable driver endpoint, so deployments can
// replace this list through configuration.
var DefaultDriverEndpoints = []string{
	"{base}/get_user_drivers?user_api_hash={hash}&lang=en",
	"{base}/user_drivers?user_api_hash={hash}&lang=en",
	"{base}/get_drivers?user_api_hash={hash}&lang=en",
	"{base}/drivers?user_api_hash={hash}&lang=en",
}

// DefaultHistoryEndpoints are the history URL templates tried in order.
var DefaultHistoryEndpoints = []string{
	"{base}/get_history?user_api_hash={hash}&device_id={device_id}&from_date={from_date}&from_time={from_time}&to_date={to_date}&to_time={to_time}&lang=en",
	"{base}/get_history?user_api_hash={hash}&device_id={device_id}&date_from={date_from}&date_to={date_to}&lang=en",
	"{base}/history?user_api_hash={hash}&device_id={device_id}&from={date_from}&to={date_to}&lang=en",
}

// ProviderTimeLayout is the date-time layout the provider expects in queries.
const ProviderTimeLayout = "2006-01-02 15:04:05"

// ClientConfig tunes a Client.
type ClientConfig struct {
	RequestPolicy    RetryPolicy
	ProbePolicy      RetryPolicy
	DriverEndpoints  []string
	HistoryEndpoints []string
}

// Client talks to the GPS provider API.
type Client struct {
	fetcher *Fetcher
	auth    *Authenticator
	cfg     ClientConfig
	logger  log.FieldLogger
}

// NewClient wires a provider client. Empty endpoint lists use the defaults.
func NewClient(fetcher *Fetcher, auth *Authenticator, cfg ClientConfig, logger log.FieldLogger) *Client {
	if len(cfg.DriverEndpoints) == 0 {
		cfg.DriverEndpoints = DefaultDriverEndpoints
	}
	if len(cfg.HistoryEndpoints) == 0 {
		cfg.HistoryEndpoints = DefaultHistoryEndpoints
	}
	if cfg.RequestPolicy.MaxRetries == 0 {
		cfg.RequestPolicy = DefaultPolicy
	}
	if cfg.ProbePolicy.MaxRetries == 0 {
		cfg.ProbePolicy = RetryPolicy{MaxRetries: 1, Timeout: 8 * time.Second}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Client{fetcher: fetcher, auth: auth, cfg: cfg, logger: logger}
}

// Login returns a session token for baseURL.
func (c *Client) Login(ctx context.Context, baseURL, email, password string) (string, error) {
	return c.auth.GetAPIHash(ctx, baseURL, email, password)
}

// InvalidateSession forces the next Login to authenticate again.
func (c *Client) InvalidateSession(ctx context.Context) {
	c.auth.Invalidate(ctx)
}

type statusEnvelope struct {
	Status  FlexFloat  `json:"status"`
	Message FlexString `json:"message"`
	Error   FlexString `json:"error"`
}

func (e statusEnvelope) message() string {
	if e.Message != "" {
		return e.Message.String()
	}
	return e.Error.String()
}

// GetDevices returns the flattened device list.
func (c *Client) GetDevices(ctx context.Context, baseURL, token string) ([]RawDevice, error) {
	q := url.Values{}
	q.Set("user_api_hash", token)
	q.Set("lang", "en")
	devicesURL := baseURL + "/get_devices?" + q.Encode()

	resp, err := c.fetcher.Do(ctx, http.MethodGet, devicesURL, nil, c.cfg.RequestPolicy)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.auth.Invalidate(ctx)
		return nil, &AuthenticationError{Message: "session rejected", StatusCode: resp.StatusCode}
	}

	if !json.Valid(resp.Body) {
		return nil, &ParseError{URL: RedactURL(devicesURL), Err: errInvalidJSON(resp.Body)}
	}

	if isObject(resp.Body) {
		var env statusEnvelope
		if err := json.Unmarshal(resp.Body, &env); err == nil && env.Status.Valid && env.Status.Value != 1 {
			msg := env.message()
			if looksLikeAuthFailure(msg) {
				c.auth.Invalidate(ctx)
				return nil, &AuthenticationError{Message: msg, StatusCode: resp.StatusCode}
			}
			return nil, &ProviderError{Status: env.Status.Value, Message: msg, StatusCode: resp.StatusCode}
		}
	}

	devices, ok := ExtractFirst(resp.Body, DeviceExtractors)
	if !ok {
		if resp.StatusCode >= 400 {
			return nil, &ProviderError{Message: http.StatusText(resp.StatusCode), StatusCode: resp.StatusCode}
		}
		return []RawDevice{}, nil
	}
	return devices, nil
}

// DriverResult is the outcome of driver endpoint probing.
type DriverResult struct {
	Drivers  []RawDriver
	Endpoint string
}

// GetDrivers probes the configured driver endpoints. No candidate answering
// is a valid result and yields an empty list.
func (c *Client) GetDrivers(ctx context.Context, baseURL, token string) (DriverResult, error) {
	vars := map[string]string{"base": baseURL, "hash": token}
	urls := make([]string, 0, len(c.cfg.DriverEndpoints))
	for _, tpl := range c.cfg.DriverEndpoints {
		urls = append(urls, ExpandTemplate(tpl, vars))
	}

	res, err := Probe(ctx, c.fetcher, urls, c.cfg.ProbePolicy, acceptJSON(DriverExtractors, c.sessionRejected(ctx)), c.logger)
	if err != nil {
		return DriverResult{Drivers: []RawDriver{}}, err
	}
	if res.Index < 0 {
		c.logger.Info("No driver endpoint returned drivers")
		return DriverResult{Drivers: []RawDriver{}}, nil
	}
	c.logger.WithFields(log.Fields{
		"endpoint": res.Endpoint,
		"drivers":  len(res.Items),
	}).Debug("Drivers loaded")
	return DriverResult{Drivers: res.Items, Endpoint: res.Endpoint}, nil
}

// HistoryResult is the outcome of history endpoint probing. Found is false
// when no candidate returned positions.
type HistoryResult struct {
	Samples  []HistorySample
	Endpoint string
	Found    bool
}

// GetHistory probes the history endpoints for one device and time range.
func (c *Client) GetHistory(ctx context.Context, baseURL, token, deviceID string, from, to time.Time) (HistoryResult, error) {
	vars := map[string]string{
		"base":      baseURL,
		"hash":      token,
		"device_id": deviceID,
		"from_date": from.Format("2006-01-02"),
		"from_time": from.Format("15:04:05"),
		"to_date":   to.Format("2006-01-02"),
		"to_time":   to.Format("15:04:05"),
		"date_from": from.Format(ProviderTimeLayout),
		"date_to":   to.Format(ProviderTimeLayout),
	}
	urls := make([]string, 0, len(c.cfg.HistoryEndpoints))
	for _, tpl := range c.cfg.HistoryEndpoints {
		urls = append(urls, ExpandTemplate(tpl, vars))
	}

	res, err := Probe(ctx, c.fetcher, urls, c.cfg.ProbePolicy, acceptJSON(HistoryExtractors, c.sessionRejected(ctx)), c.logger.WithField("device_id", deviceID))
	if err != nil {
		return HistoryResult{}, err
	}
	if res.Index < 0 {
		return HistoryResult{Samples: []HistorySample{}}, nil
	}
	return HistoryResult{Samples: res.Items, Endpoint: res.Endpoint, Found: true}, nil
}

// sessionRejected drops the cached token. Probing carries on with the next
// candidate; the next Login authenticates again.
func (c *Client) sessionRejected(ctx context.Context) func(*Response) {
	return func(resp *Response) {
		c.logger.WithField("status", resp.StatusCode).Warn("Provider rejected the session token")
		c.auth.Invalidate(ctx)
	}
}

// isAuthRejection reports 401/403 answers and status envelopes whose message
// reads like an authentication failure.
func isAuthRejection(resp *Response) bool {
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return true
	}
	if !isObject(resp.Body) {
		return false
	}
	var env statusEnvelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return false
	}
	return env.Status.Valid && env.Status.Value != 1 && looksLikeAuthFailure(env.message())
}

func acceptJSON[T any](extractors []Extractor[T], onAuthFailure func(*Response)) func(*Response) ([]T, bool) {
	return func(resp *Response) ([]T, bool) {
		if isAuthRejection(resp) {
			if onAuthFailure != nil {
				onAuthFailure(resp)
			}
			return nil, false
		}
		if resp.StatusCode >= 400 || !json.Valid(resp.Body) {
			return nil, false
		}
		return ExtractFirst(resp.Body, extractors)
	}
}

func looksLikeAuthFailure(msg string) bool {
	m := strings.ToLower(msg)
	for _, marker := range []string{"unauthenticated", "unauthorized", "api hash", "api_hash", "login", "session"} {
		if strings.Contains(m, marker) {
			return true
		}
	}
	return false
}

type invalidJSONError struct{ snippet string }

func (e invalidJSONError) Error() string { return "body is not valid JSON: " + e.snippet }

func errInvalidJSON(body []byte) error {
	s := strings.TrimSpace(string(body))
	if len(s) > 120 {
		s = s[:120] + "..."
	}
	return invalidJSONError{snippet: s}
}
