package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forex-journal/internal/journal"
	"forex-journal/internal/models"
	"forex-journal/internal/session"
	"forex-journal/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Error   bool            `json:"error"`
	Message string          `json:"message"`
	Field   string          `json:"field"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	server *Server
}

func newTestServer(t *testing.T, st store.TradeStore, secret string) *testServer {
	t.Helper()
	if st == nil {
		st = store.NewMemoryStore()
	}
	reg := session.NewRegistry(st, journal.NewCalculator(1), zerolog.Nop())
	srv := NewServer(Config{Addr: ":0", JWTSecret: secret, Version: "test"}, st, reg, zerolog.Nop())
	return &testServer{t: t, server: srv}
}

func (ts *testServer) do(method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(ts.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(ts.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (ts *testServer) as(user, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	return ts.do(method, path, body, map[string]string{headerUserID: user})
}

func pricedBody() gin.H {
	return gin.H{
		"pair": "EUR/USD", "direction": "long",
		"entryPrice": 1.1000, "exitPrice": 1.1050, "lotSize": 1,
		"stopLoss": 1.0950, "takeProfit": 1.1100,
		"entryTime": "2024-07-01T09:00:00Z", "exitTime": "2024-07-01T12:00:00Z",
		"strategy": "breakout", "tags": []string{"london"},
	}
}

func simpleBody(profit, loss interface{}, entry string) gin.H {
	b := gin.H{"pair": "GBPUSD", "direction": "sell", "entryTime": entry}
	if profit != nil {
		b["profit"] = profit
	}
	if loss != nil {
		b["loss"] = loss
	}
	return b
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil, "")
	w, _ := ts.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(headerRequestID))
}

func TestMissingIdentity(t *testing.T) {
	ts := newTestServer(t, nil, "")
	w, env := ts.do(http.MethodGet, "/api/trades", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.True(t, env.Error)
}

func TestCreateAndGetPricedTrade(t *testing.T) {
	ts := newTestServer(t, nil, "")

	w, env := ts.as("u1", http.MethodPost, "/api/trades", pricedBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.Trade
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.NotEmpty(t, created.ID)
	require.NotNil(t, created.ProfitLossPips)
	assert.InDelta(t, 50, *created.ProfitLossPips, 1e-6)
	require.NotNil(t, created.RiskRewardRatio)
	assert.InDelta(t, 2, *created.RiskRewardRatio, 1e-6)
	assert.Equal(t, models.OutcomeWin, created.Outcome)

	w, env = ts.as("u1", http.MethodGet, "/api/trades/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Trade
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, created.ID, got.ID)

	// other users never see it
	w, _ = ts.as("u2", http.MethodGet, "/api/trades/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateValidation(t *testing.T) {
	ts := newTestServer(t, nil, "")

	tests := []struct {
		name  string
		body  interface{}
		field string
	}{
		{"profit and loss", simpleBody(10, 5, "2024-07-01"), "profit"},
		{"bad direction", gin.H{"pair": "EURUSD", "direction": "up", "profit": 1, "entryTime": "2024-07-01"}, "direction"},
		{"bad pair", gin.H{"pair": "EURO", "direction": "long", "profit": 1, "entryTime": "2024-07-01"}, "pair"},
		{"missing entry time", simpleBody(10, nil, ""), "entryTime"},
		{"bad time", simpleBody(10, nil, "yesterday"), "entryTime"},
		{"partial prices", gin.H{"pair": "EURUSD", "direction": "long", "entryPrice": 1.1, "entryTime": "2024-07-01"}, "exitPrice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := ts.as("u1", http.MethodPost, "/api/trades", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, tt.field, env.Field)
		})
	}

	w, _ := ts.as("u1", http.MethodPost, "/api/trades", `{"pair": "EURUSD", "entryPrice": "abc"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := ts.as("u1", http.MethodGet, "/api/trades", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", string(env.Data))
}

func TestUpdateAndDelete(t *testing.T) {
	ts := newTestServer(t, nil, "")

	_, env := ts.as("u1", http.MethodPost, "/api/trades", simpleBody(nil, 20, "2024-07-02T10:00:00Z"))
	var created models.Trade
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, models.OutcomeLoss, created.Outcome)

	w, env := ts.as("u1", http.MethodPut, "/api/trades/"+created.ID, simpleBody(35, nil, "2024-07-02T10:00:00Z"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.Trade
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, 35.0, updated.NetProfit)
	assert.Equal(t, models.OutcomeWin, updated.Outcome)

	w, _ = ts.as("u1", http.MethodPut, "/api/trades/missing", simpleBody(1, nil, "2024-07-02"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = ts.as("u1", http.MethodDelete, "/api/trades/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = ts.as("u1", http.MethodDelete, "/api/trades/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatsCalendarAndFilters(t *testing.T) {
	ts := newTestServer(t, nil, "")

	for _, b := range []gin.H{
		simpleBody(100, nil, "2024-07-01T09:00:00Z"),
		simpleBody(nil, 40, "2024-07-01T15:00:00Z"),
		simpleBody(0, nil, "2024-07-03T09:00:00Z"),
	} {
		w, _ := ts.as("u1", http.MethodPost, "/api/trades", b)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w, env := ts.as("u1", http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats models.TradeStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 3, stats.TotalTrades)
	assert.Equal(t, 1, stats.WinningTrades)
	assert.Equal(t, 1, stats.LosingTrades)
	assert.InDelta(t, 33.333, stats.WinRate, 0.01)
	assert.Equal(t, 100.0, stats.TotalProfit)
	assert.Equal(t, 40.0, stats.TotalLoss)
	assert.Equal(t, 60.0, stats.NetProfitLoss)

	w, env = ts.as("u1", http.MethodGet, "/api/stats?outcome=loss", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 1, stats.TotalTrades)

	w, env = ts.as("u1", http.MethodGet, "/api/trades?outcome=win", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var trades []models.Trade
	require.NoError(t, json.Unmarshal(env.Data, &trades))
	require.Len(t, trades, 1)
	assert.Equal(t, 100.0, trades[0].NetProfit)

	w, env = ts.as("u1", http.MethodGet, "/api/trades?pair=gbpusd&limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &trades))
	assert.Len(t, trades, 2)

	w, _ = ts.as("u1", http.MethodGet, "/api/trades?outcome=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = ts.as("u1", http.MethodGet, "/api/trades?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = ts.as("u1", http.MethodGet, "/api/calendar?month=2024-07", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var days []models.DailySummary
	require.NoError(t, json.Unmarshal(env.Data, &days))
	require.NotEmpty(t, days)
	var total float64
	for _, d := range days {
		total += d.TotalPL
	}
	assert.Equal(t, 60.0, total)

	w, _ = ts.as("u1", http.MethodGet, "/api/calendar?month=July", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = ts.as("u1", http.MethodGet, "/api/pairs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pairs []models.PairPerformance
	require.NoError(t, json.Unmarshal(env.Data, &pairs))
	require.Len(t, pairs, 1)
	assert.Equal(t, "GBP/USD", pairs[0].Pair)
}

func TestSeriesRange(t *testing.T) {
	ts := newTestServer(t, nil, "")

	w, env := ts.as("u1", http.MethodGet, "/api/series", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"range":"30d"`)

	w, env = ts.as("u1", http.MethodGet, "/api/series?range=2w", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "range", env.Field)
}

// brokenStore fails every read.
type brokenStore struct {
	store.TradeStore
}

func (brokenStore) ListTrades(context.Context, string) ([]models.Trade, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func (brokenStore) Ping(context.Context) error {
	return errors.New("dial tcp: connection refused")
}

func TestStoreFailureIsBadGateway(t *testing.T) {
	ts := newTestServer(t, brokenStore{store.NewMemoryStore()}, "")

	w, env := ts.as("u1", http.MethodGet, "/api/trades", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, env.Message, "connection refused")

	w, _ = ts.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// slowStore never lists within the deadline.
type slowStore struct {
	store.TradeStore
}

func (slowStore) ListTrades(context.Context, string) ([]models.Trade, error) {
	return nil, context.DeadlineExceeded
}

func TestStoreTimeoutIsGatewayTimeout(t *testing.T) {
	ts := newTestServer(t, slowStore{store.NewMemoryStore()}, "")

	w, env := ts.as("u1", http.MethodGet, "/api/stats", nil)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.True(t, env.Error)
}

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestBearerAuth(t *testing.T) {
	const secret = "test-secret"
	ts := newTestServer(t, nil, secret)
	now := time.Now()

	valid := signToken(t, jwt.SigningMethodHS256, []byte(secret), jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	expired := signToken(t, jwt.SigningMethodHS256, []byte(secret), jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
	})
	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.RegisteredClaims{Subject: "alice"})
	noSubject := signToken(t, jwt.SigningMethodHS256, []byte(secret), jwt.RegisteredClaims{})
	unsigned := signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.RegisteredClaims{Subject: "alice"})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + valid, http.StatusOK},
		{"lower-case scheme", "bearer " + valid, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"basic scheme", "Basic abc", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized},
		{"no subject", "Bearer " + noSubject, http.StatusUnauthorized},
		{"alg none", "Bearer " + unsigned, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			w, _ := ts.do(http.MethodGet, "/api/trades", nil, headers)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	// the dev header is ignored once a secret is configured
	w, _ := ts.do(http.MethodGet, "/api/trades", nil, map[string]string{headerUserID: "alice"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	ts := newTestServer(t, nil, "")
	w, _ := ts.do(http.MethodGet, "/health", nil, map[string]string{headerRequestID: "req-42"})
	assert.Equal(t, "req-42", w.Header().Get(headerRequestID))
}
