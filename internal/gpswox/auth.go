package gpswox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultSessionTTL is how long a login token is reused.
const DefaultSessionTTL = time.Hour

// Authenticator exchanges credentials for a session token through the cache.
type Authenticator struct {
	fetcher *Fetcher
	cache   TokenCache
	ttl     time.Duration
	policy  RetryPolicy
	now     func() time.Time
	logger  log.FieldLogger
}

// NewAuthenticator wires an authenticator. ttl <= 0 uses DefaultSessionTTL.
func NewAuthenticator(fetcher *Fetcher, cache TokenCache, ttl time.Duration, policy RetryPolicy, logger log.FieldLogger) *Authenticator {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Authenticator{
		fetcher: fetcher,
		cache:   cache,
		ttl:     ttl,
		policy:  policy,
		now:     time.Now,
		logger:  logger,
	}
}

type loginResponse struct {
	Status      FlexFloat  `json:"status"`
	UserAPIHash FlexString `json:"user_api_hash"`
	Message     FlexString `json:"message"`
	Error       FlexString `json:"error"`
}

// GetAPIHash returns the cached token or logs in.
func (a *Authenticator) GetAPIHash(ctx context.Context, baseURL, email, password string) (string, error) {
	if token, ok := a.cache.Get(ctx); ok {
		return token, nil
	}
	if email == "" || password == "" {
		return "", ErrMissingCredentials
	}

	q := url.Values{}
	q.Set("email", email)
	q.Set("password", password)
	loginURL := baseURL + "/login?" + q.Encode()

	resp, err := a.fetcher.Do(ctx, http.MethodGet, loginURL, nil, a.policy)
	if err != nil {
		a.cache.Invalidate(ctx)
		return "", err
	}

	var body loginResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		a.cache.Invalidate(ctx)
		return "", &ParseError{URL: RedactURL(loginURL), Err: err}
	}

	token := strings.TrimSpace(body.UserAPIHash.String())
	if !body.Status.Valid || body.Status.Value != 1 || token == "" {
		a.cache.Invalidate(ctx)
		msg := body.Message.String()
		if msg == "" {
			msg = body.Error.String()
		}
		if msg == "" {
			msg = fmt.Sprintf("login rejected (http %d)", resp.StatusCode)
		}
		return "", &AuthenticationError{Message: msg, StatusCode: resp.StatusCode}
	}

	a.cache.Set(ctx, token, a.now().Add(a.ttl))
	a.logger.WithField("base_url", baseURL).Info("Authenticated against GPS provider")
	return token, nil
}

// Invalidate drops the cached token so the next call logs in again.
func (a *Authenticator) Invalidate(ctx context.Context) {
	a.cache.Invalidate(ctx)
}
