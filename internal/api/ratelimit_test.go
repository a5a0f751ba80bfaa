package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forex-journal/internal/journal"
	"forex-journal/internal/resilience"
	"forex-journal/internal/session"
	"forex-journal/internal/store"
)

func TestUserLimiterRefills(t *testing.T) {
	clock := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	l := newUserLimiter(2, 2)
	l.now = func() time.Time { return clock }

	ok, _ := l.allow("u1")
	assert.True(t, ok)
	ok, _ = l.allow("u1")
	assert.True(t, ok)

	ok, wait := l.allow("u1")
	assert.False(t, ok)
	assert.Equal(t, 500*time.Millisecond, wait)

	ok, _ = l.allow("u2")
	assert.True(t, ok, "buckets are per user")

	clock = clock.Add(500 * time.Millisecond)
	ok, _ = l.allow("u1")
	assert.True(t, ok)

	clock = clock.Add(time.Hour)
	for i := 0; i < 2; i++ {
		ok, _ = l.allow("u1")
		assert.True(t, ok)
	}
	ok, _ = l.allow("u1")
	assert.False(t, ok, "refill is capped at burst")
}

func TestUserLimiterDropsIdleBuckets(t *testing.T) {
	clock := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	l := newUserLimiter(1, 5)
	l.now = func() time.Time { return clock }
	assert.Equal(t, time.Minute, l.idle)

	for _, u := range []string{"u1", "u2", "u3"} {
		ok, _ := l.allow(u)
		assert.True(t, ok)
	}
	assert.Len(t, l.buckets, 3)

	clock = clock.Add(30 * time.Second)
	l.allow("u1")
	assert.Len(t, l.buckets, 3)

	clock = clock.Add(45 * time.Second)
	l.allow("u4")
	assert.Len(t, l.buckets, 2, "u2 and u3 were idle past the refill time")
	assert.Contains(t, l.buckets, "u1")
	assert.Contains(t, l.buckets, "u4")

	slow := newUserLimiter(0.01, 10)
	assert.Equal(t, 1000*time.Second, slow.idle)
}

func TestRateLimitMiddleware(t *testing.T) {
	st := store.NewMemoryStore()
	reg := session.NewRegistry(st, journal.NewCalculator(1), zerolog.Nop())
	srv := NewServer(Config{Addr: ":0", RateLimit: 0.001, RateBurst: 2}, st, reg, zerolog.Nop())
	ts := &testServer{t: t, server: srv}

	for i := 0; i < 2; i++ {
		w, _ := ts.as("u1", http.MethodGet, "/api/trades", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w, env := ts.as("u1", http.MethodGet, "/api/trades", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.True(t, env.Error)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	w, _ = ts.as("u2", http.MethodGet, "/api/trades", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = ts.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code, "health is not rate limited")
}

func TestHealthReportsCircuit(t *testing.T) {
	st := store.NewGuardedStore("memory", store.NewMemoryStore(), resilience.DefaultCircuitBreakerConfig())
	ts := newTestServer(t, st, "")

	w, _ := ts.do(http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"circuit":{"name":"memory","state":"closed"`)
}
