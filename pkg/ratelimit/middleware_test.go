package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func doRequest(h http.Handler, method, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":12345"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_PerIP(t *testing.T) {
	m := NewMiddleware(&Config{
		PerIP:          &Limit{Capacity: 2, RefillRate: 0.001},
		IncludeHeaders: true,
	})
	defer m.Close()
	h := m.Handler(okHandler)

	rec := doRequest(h, http.MethodGet, "/auth/2fa/status", "192.0.2.1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit-IP"))

	doRequest(h, http.MethodGet, "/auth/2fa/status", "192.0.2.1")
	rec = doRequest(h, http.MethodGet, "/auth/2fa/status", "192.0.2.1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	// an empty bucket refilling at 0.001/s needs 1000s for the next token
	assert.Equal(t, "1000", rec.Header().Get("Retry-After"))

	var body struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body.Code)
	assert.Equal(t, "ip", body.Details["scope"])
	assert.Equal(t, "1000", body.Details["retry_after"])

	// a different client is unaffected
	assert.Equal(t, http.StatusOK, doRequest(h, http.MethodGet, "/auth/2fa/status", "192.0.2.2").Code)
}

func TestMiddleware_EndpointLimit(t *testing.T) {
	m := NewMiddleware(&Config{
		Endpoints: map[string]Limit{
			"POST /auth/login": {Capacity: 1, RefillRate: 0.001},
		},
	})
	defer m.Close()
	h := m.Handler(okHandler)

	assert.Equal(t, http.StatusOK, doRequest(h, http.MethodPost, "/auth/login", "192.0.2.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(h, http.MethodPost, "/auth/login", "192.0.2.1").Code)

	// other routes and methods are not limited
	assert.Equal(t, http.StatusOK, doRequest(h, http.MethodGet, "/auth/login", "192.0.2.1").Code)
	assert.Equal(t, http.StatusOK, doRequest(h, http.MethodPost, "/auth/logout", "192.0.2.1").Code)
}

func TestMiddleware_PerUser(t *testing.T) {
	m := NewMiddleware(&Config{
		PerUser: &Limit{Capacity: 1, RefillRate: 0.001},
		UserKey: func(r *http.Request) string {
			return r.Header.Get("X-Test-User")
		},
	})
	defer m.Close()
	h := m.Handler(okHandler)

	send := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("X-Test-User", user)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("u1"))
	assert.Equal(t, http.StatusTooManyRequests, send("u1"))
	assert.Equal(t, http.StatusOK, send("u2"))
	// anonymous requests have no user bucket
	assert.Equal(t, http.StatusOK, send(""))
	assert.Equal(t, http.StatusOK, send(""))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	assert.Equal(t, "198.51.100.7", ClientIP(req))

	req.Header.Set("X-Real-IP", " 203.0.113.9 ")
	assert.Equal(t, "203.0.113.9", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.1, 10.0.0.1")
	assert.Equal(t, "203.0.113.1", ClientIP(req))

	ipv6 := httptest.NewRequest(http.MethodGet, "/", nil)
	ipv6.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", ClientIP(ipv6))
}

func TestMiddleware_GlobalAndStats(t *testing.T) {
	m := NewMiddleware(&Config{
		Global: &Limit{Capacity: 1, RefillRate: 0.001},
		PerIP:  &Limit{Capacity: 10, RefillRate: 1},
		Endpoints: map[string]Limit{
			"POST /auth/login":    {Capacity: 5, RefillRate: 1},
			"POST /signup/seller": {Capacity: 5, RefillRate: 1},
		},
	})
	defer m.Close()
	h := m.Handler(okHandler)

	assert.Equal(t, http.StatusOK, doRequest(h, http.MethodPost, "/auth/login", "192.0.2.1").Code)
	rec := doRequest(h, http.MethodPost, "/auth/login", "192.0.2.2")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), `"scope":"global"`)

	stats := m.GetStats()
	assert.Equal(t, 1, stats["global"].ActiveBuckets)
	// the global rule rejected the second request before the others ran
	assert.Equal(t, 1, stats["ip"].ActiveBuckets)
	assert.Equal(t, 1, stats["endpoint"].ActiveBuckets)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, "1", retryAfter(0))
	assert.Equal(t, "1", retryAfter(200*time.Millisecond))
	assert.Equal(t, "3", retryAfter(2100*time.Millisecond))
}
