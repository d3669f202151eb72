package httpretry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryClient_RetriesOnUnavailable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rc := NewRetryClient(srv.Client(), 2, WithBackoff(time.Millisecond, 5*time.Millisecond))
	req, err := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader(`{"page":"home"}`))
	require.NoError(t, err)

	resp, err := rc.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRetryClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	rc := NewRetryClient(srv.Client(), 3, WithBackoff(time.Millisecond, time.Millisecond))
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	resp, err := rc.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetryClient_ReturnsLastResponseWhenExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	rc := NewRetryClient(srv.Client(), 2, WithBackoff(time.Millisecond, time.Millisecond))
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	resp, err := rc.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRetryClient_StopsOnCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rc := NewRetryClient(srv.Client(), 2)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)

	_, err := rc.Do(req)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryableStatus(t *testing.T) {
	assert.True(t, IsRetryableStatus(http.StatusServiceUnavailable))
	assert.True(t, IsRetryableStatus(http.StatusTooManyRequests))
	assert.False(t, IsRetryableStatus(http.StatusInternalServerError))
	assert.False(t, IsRetryableStatus(http.StatusNotFound))
}
