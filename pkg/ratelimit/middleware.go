package ratelimit

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tendant/settle-idm/pkg/errors"
)

// Limit is the size and refill speed of one token bucket
type Limit struct {
	Capacity   int
	RefillRate float64 // tokens per second
}

// Config selects which request limits the middleware enforces. A nil limit
// is disabled.
type Config struct {
	Global  *Limit
	PerIP   *Limit
	PerUser *Limit
	// UserKey identifies the caller for PerUser. Requests it maps to "" are
	// not counted.
	UserKey func(*http.Request) string
	// Endpoints are keyed by "METHOD /path" and counted per client IP
	Endpoints map[string]Limit

	// Buckets idle for longer than BucketTTL are forgotten
	BucketTTL      time.Duration
	IncludeHeaders bool
}

// DefaultConfig limits each client IP to 100 requests a minute. Endpoint
// limits depend on the mount prefixes and are set by the caller.
func DefaultConfig() *Config {
	return &Config{
		PerIP:          &Limit{Capacity: 100, RefillRate: 100.0 / 60.0},
		BucketTTL:      time.Hour,
		IncludeHeaders: true,
	}
}

// rule is one limit applied in order. key returns "" to skip the request.
type rule struct {
	scope   string
	limit   Limit
	limiter *RateLimiter
	key     func(*http.Request) string
}

// Middleware enforces a Config on an http.Handler
type Middleware struct {
	rules   []rule
	headers bool
}

// NewMiddleware builds the rules of config. A nil config uses DefaultConfig.
func NewMiddleware(config *Config) *Middleware {
	if config == nil {
		config = DefaultConfig()
	}
	m := &Middleware{headers: config.IncludeHeaders}

	add := func(scope string, l Limit, key func(*http.Request) string) {
		m.rules = append(m.rules, rule{
			scope:   scope,
			limit:   l,
			limiter: NewRateLimiter(l.Capacity, l.RefillRate, config.BucketTTL),
			key:     key,
		})
	}

	if config.Global != nil {
		add("global", *config.Global, func(*http.Request) string { return "global" })
	}
	if config.PerIP != nil {
		add("ip", *config.PerIP, ClientIP)
	}
	if config.PerUser != nil && config.UserKey != nil {
		add("user", *config.PerUser, config.UserKey)
	}

	endpoints := make([]string, 0, len(config.Endpoints))
	for e := range config.Endpoints {
		endpoints = append(endpoints, e)
	}
	sort.Strings(endpoints)
	for _, e := range endpoints {
		endpoint := e
		add("endpoint", config.Endpoints[e], func(r *http.Request) string {
			if r.Method+" "+r.URL.Path != endpoint {
				return ""
			}
			return ClientIP(r)
		})
	}

	return m
}

// Handler rejects a request with 429 as soon as one rule has no token left
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, rl := range m.rules {
			key := rl.key(r)
			if key == "" {
				continue
			}
			ok, wait := rl.limiter.Take(key)
			if !ok {
				m.reject(w, r, rl.scope, wait)
				return
			}
			if m.headers && (rl.scope == "ip" || rl.scope == "user") {
				w.Header().Set(limitHeader(rl.scope), strconv.Itoa(rl.limit.Capacity))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func limitHeader(scope string) string {
	if scope == "ip" {
		return "X-RateLimit-Limit-IP"
	}
	return "X-RateLimit-Limit-User"
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, scope string, wait time.Duration) {
	slog.Warn("Rate limit exceeded", "scope", scope, "ip", ClientIP(r), "method", r.Method, "path", r.URL.Path)
	err := errors.RateLimitExceeded(retryAfter(wait)).WithDetail("scope", scope)
	errors.WriteError(w, r, err)
}

// retryAfter renders wait as whole seconds, at least one
func retryAfter(wait time.Duration) string {
	secs := math.Ceil(wait.Seconds())
	if secs < 1 {
		secs = 1
	}
	if secs > math.MaxInt32 {
		secs = math.MaxInt32
	}
	return strconv.Itoa(int(secs))
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// GetStats reports the bucket count of every rule, keyed by scope. Endpoint
// rules are merged under "endpoint".
func (m *Middleware) GetStats() map[string]Stats {
	stats := make(map[string]Stats, len(m.rules))
	for _, rl := range m.rules {
		s := rl.limiter.GetStats()
		if prev, ok := stats[rl.scope]; ok {
			s.ActiveBuckets += prev.ActiveBuckets
		}
		stats[rl.scope] = s
	}
	return stats
}

// Reset refills the per-IP and per-user buckets of key
func (m *Middleware) Reset(key string) {
	for _, rl := range m.rules {
		if rl.scope == "ip" || rl.scope == "user" {
			rl.limiter.Reset(key)
		}
	}
}

// Close stops the janitors of every rule
func (m *Middleware) Close() {
	for _, rl := range m.rules {
		rl.limiter.Close()
	}
}
