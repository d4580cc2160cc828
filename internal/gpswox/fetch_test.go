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

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 5 * time.Second},
		{10, 5 * time.Second},
		{0, time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Backoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestFetcher_RetriesTransportFailures(t *testing.T) {
	var calls int32
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return nil, errDial
		}
		return jsonResponse(http.StatusOK, `{"status":1}`), nil
	})}
	f, rec := newTestFetcher(client)

	resp, err := f.Do(context.Background(), http.MethodGet, "http://provider.test/api/login", nil, RetryPolicy{MaxRetries: 3, Timeout: time.Second})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":1}`, string(resp.Body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
}

func TestFetcher_NetworkErrorAfterExhaustion(t *testing.T) {
	var calls int32
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errDial
	})}
	f, rec := newTestFetcher(client)

	_, err := f.Do(context.Background(), http.MethodGet, "http://provider.test/api/login?password=secret", nil, DefaultPolicy)

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, 3, netErr.Attempts)
	assert.ErrorIs(t, err, errDial)
	assert.NotContains(t, netErr.URL, "secret")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Len(t, rec.delays, 2)
}

func TestFetcher_DoesNotRetryHTTPErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom"}`))
	}))
	defer server.Close()

	f, rec := newTestFetcher(server.Client())
	resp, err := f.Do(context.Background(), http.MethodGet, server.URL, nil, DefaultPolicy)

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, rec.delays)
}

func TestFetcher_TimeoutIsRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	f, _ := newTestFetcher(server.Client())
	resp, err := f.Do(context.Background(), http.MethodGet, server.URL, nil, RetryPolicy{MaxRetries: 2, Timeout: 50 * time.Millisecond})

	require.NoError(t, err)
	assert.Equal(t, "[]", string(resp.Body))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetcher_PostsJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	f, _ := newTestFetcher(server.Client())
	_, err := f.Do(context.Background(), http.MethodPost, server.URL, []byte(`{"a":1}`), DefaultPolicy)
	assert.NoError(t, err)
}

func TestRedactURL(t *testing.T) {
	redacted := RedactURL("https://gps.example.com/api/login?email=a%40b.c&password=hunter2")
	assert.NotContains(t, redacted, "hunter2")
	assert.Contains(t, redacted, "email=a%40b.c")

	redacted = RedactURL("https://gps.example.com/api/get_devices?user_api_hash=abc123&lang=en")
	assert.NotContains(t, redacted, "abc123")

	assert.Equal(t, "https://gps.example.com/api", RedactURL("https://gps.example.com/api"))
}
