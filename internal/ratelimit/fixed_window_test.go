package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedWindowLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter, err := NewFixedWindowLimiter(mr.Addr(), "", "test:ratelimit", 2, time.Minute)
	require.NoError(t, err)
	defer limiter.Close()

	ctx := context.Background()
	assert.True(t, limiter.Allow(ctx, "ip-1"))
	assert.True(t, limiter.Allow(ctx, "ip-1"))
	assert.False(t, limiter.Allow(ctx, "ip-1"))
	assert.True(t, limiter.Allow(ctx, "ip-2"), "keys are counted independently")
}

func TestFixedWindowLimiterFailsClosed(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter, err := NewFixedWindowLimiter(mr.Addr(), "", "", 1, time.Minute)
	require.NoError(t, err)
	defer limiter.Close()

	mr.Close()
	assert.False(t, limiter.Allow(context.Background(), "ip-1"))
}

func TestNewFixedWindowLimiterValidates(t *testing.T) {
	_, err := NewFixedWindowLimiter("", "", "", 1, time.Second)
	assert.Error(t, err)

	_, err = NewFixedWindowLimiter("localhost:6379", "", "", 0, time.Second)
	assert.Error(t, err)
}

func TestMiddlewareBlocksOverQuota(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter, err := NewFixedWindowLimiter(mr.Addr(), "", "", 1, time.Minute)
	require.NoError(t, err)
	defer limiter.Close()

	h := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"msg":"Too many requests, try again later"}`, rec.Body.String())
}
