package gpswox

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoginServer(t *testing.T, body string, logins *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/login", r.URL.Path)
		atomic.AddInt32(logins, 1)
		w.Write([]byte(body))
	}))
}

func TestAuthenticator_CachesToken(t *testing.T) {
	var logins int32
	server := newLoginServer(t, `{"status":1,"user_api_hash":"abc"}`, &logins)
	defer server.Close()

	fetcher, _ := newTestFetcher(server.Client())
	a := NewAuthenticator(fetcher, NewMemoryTokenCache(), 0, DefaultPolicy, quietLogger())

	for i := 0; i < 2; i++ {
		token, err := a.GetAPIHash(context.Background(), server.URL+"/api", "ops@example.com", "pw")
		require.NoError(t, err)
		assert.Equal(t, "abc", token)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&logins))
}

func TestAuthenticator_RelogsAfterTTL(t *testing.T) {
	var logins int32
	server := newLoginServer(t, `{"status":1,"user_api_hash":"abc"}`, &logins)
	defer server.Close()

	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	cache := NewMemoryTokenCache()
	cache.now = func() time.Time { return now }

	fetcher, _ := newTestFetcher(server.Client())
	a := NewAuthenticator(fetcher, cache, time.Hour, DefaultPolicy, quietLogger())
	a.now = func() time.Time { return now }

	_, err := a.GetAPIHash(context.Background(), server.URL+"/api", "ops@example.com", "pw")
	require.NoError(t, err)

	now = now.Add(61 * time.Minute)
	_, err = a.GetAPIHash(context.Background(), server.URL+"/api", "ops@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&logins))
}

func TestAuthenticator_RejectedLogin(t *testing.T) {
	var logins int32
	server := newLoginServer(t, `{"status":0,"message":"Wrong email or password"}`, &logins)
	defer server.Close()

	cache := NewMemoryTokenCache()
	fetcher, _ := newTestFetcher(server.Client())
	a := NewAuthenticator(fetcher, cache, 0, DefaultPolicy, quietLogger())

	_, err := a.GetAPIHash(context.Background(), server.URL+"/api", "ops@example.com", "bad")

	var authErr *AuthenticationError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "Wrong email or password", authErr.Message)
	assert.True(t, IsAuthError(err))
	_, ok := cache.Get(context.Background())
	assert.False(t, ok)
}

func TestAuthenticator_MissingHash(t *testing.T) {
	var logins int32
	server := newLoginServer(t, `{"status":1}`, &logins)
	defer server.Close()

	fetcher, _ := newTestFetcher(server.Client())
	a := NewAuthenticator(fetcher, NewMemoryTokenCache(), 0, DefaultPolicy, quietLogger())

	_, err := a.GetAPIHash(context.Background(), server.URL+"/api", "ops@example.com", "pw")
	assert.True(t, IsAuthError(err))
	assert.Contains(t, err.Error(), "login rejected")
}

func TestAuthenticator_MalformedBody(t *testing.T) {
	var logins int32
	server := newLoginServer(t, `<html>maintenance</html>`, &logins)
	defer server.Close()

	fetcher, _ := newTestFetcher(server.Client())
	a := NewAuthenticator(fetcher, NewMemoryTokenCache(), 0, DefaultPolicy, quietLogger())

	_, err := a.GetAPIHash(context.Background(), server.URL+"/api", "ops@example.com", "pw")
	var parseErr *ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestAuthenticator_MissingCredentials(t *testing.T) {
	fetcher, _ := newTestFetcher(nil)
	a := NewAuthenticator(fetcher, NewMemoryTokenCache(), 0, DefaultPolicy, quietLogger())

	_, err := a.GetAPIHash(context.Background(), "https://gps.example.com/api", "", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}
