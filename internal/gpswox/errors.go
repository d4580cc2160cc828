package gpswox

import (
	"errors"
	"fmt"
)

var (
	ErrMissingBaseURL     = errors.New("gpswox api url is not configured")
	ErrMissingCredentials = errors.New("gpswox credentials are not configured")
)

// NetworkError is returned when every attempt of a request failed at the
// transport level (dial, TLS, timeout, truncated body).
type NetworkError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error after %d attempt(s) to %s: %v", e.Attempts, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthenticationError is returned when the provider rejects the credentials
// or the session token.
type AuthenticationError struct {
	Message    string
	StatusCode int
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return "gpswox authentication failed"
	}
	return "gpswox authentication failed: " + e.Message
}

// ProviderError is returned for a well-formed response carrying an
// unexpected status.
type ProviderError struct {
	Status     float64
	Message    string
	StatusCode int
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unexpected response"
	}
	return fmt.Sprintf("gpswox provider error (status %v, http %d): %s", e.Status, e.StatusCode, msg)
}

// ParseError is returned when a response body is not the JSON we expect.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid response from %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsAuthError reports whether err is, or wraps, an *AuthenticationError.
func IsAuthError(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}
