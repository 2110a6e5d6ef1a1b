package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string, opts ...Option) *Client {
	base := []Option{
		WithRetryDelay(time.Millisecond),
		WithMaxDelay(2 * time.Millisecond),
		WithRateLimit(10000, 10000),
	}
	return New("test/poe1", baseURL, append(base, opts...)...)
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/data/currencyoverview", r.URL.Path)
		assert.Equal(t, "Settlers", r.URL.Query().Get("league"))
		w.Write([]byte(`{"lines":[]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	params := url.Values{"league": {"Settlers"}}

	body, err := c.Fetch(context.Background(), "/api/data/currencyoverview", params)
	require.NoError(t, err)
	assert.JSONEq(t, `{"lines":[]}`, string(body))
}

func TestFetch_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	body, err := c.Fetch(context.Background(), "/x", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Fetch(context.Background(), "/x", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetch_PermanentNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Fetch(context.Background(), "/missing", nil)
	require.Error(t, err)
	assert.True(t, IsPermanent(err), "404 must be permanent")
	assert.False(t, IsTransient(err))
	assert.Equal(t, int32(1), calls.Load(), "permanent failures must not be retried")
}

func TestFetch_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(srv.URL, WithMaxRetries(2))
	_, err := c.Fetch(context.Background(), "/x", nil)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, int32(3), calls.Load(), "initial attempt plus two retries")
}

func TestFetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := testClient(srv.URL)
	_, err := c.Fetch(ctx, "/x", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPermanentHelper(t *testing.T) {
	err := Permanent("/api/data/itemoverview", assert.AnError)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestJitterBounds(t *testing.T) {
	d := 100 * time.Millisecond
	for i := 0; i < 50; i++ {
		j := jitter(d)
		assert.GreaterOrEqual(t, j, d/2)
		assert.LessOrEqual(t, j, d)
	}
}
