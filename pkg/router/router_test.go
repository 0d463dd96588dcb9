package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/settle-idm/pkg/audit"
	pkgconfig "github.com/tendant/settle-idm/pkg/config"
	"github.com/tendant/settle-idm/pkg/credential"
	"github.com/tendant/settle-idm/pkg/delivery"
	"github.com/tendant/settle-idm/pkg/loginflow"
	loginapi "github.com/tendant/settle-idm/pkg/loginflow/api"
	"github.com/tendant/settle-idm/pkg/notification"
	"github.com/tendant/settle-idm/pkg/otp"
	"github.com/tendant/settle-idm/pkg/ratelimit"
	"github.com/tendant/settle-idm/pkg/sessions"
	"github.com/tendant/settle-idm/pkg/signup"
	twofaapi "github.com/tendant/settle-idm/pkg/twofa/api"
	"golang.org/x/crypto/bcrypt"
)

// createTestConfig wires the handlers over in-memory stores
func createTestConfig(t *testing.T, limits *ratelimit.Config) Config {
	t.Helper()
	users, err := credential.NewService(credential.NewMemoryRepository(),
		credential.WithHasher(credential.NewMultiHasher(bcrypt.MinCost)))
	require.NoError(t, err)

	ledger := otp.NewLedger(otp.NewMemoryRepository())
	registry := delivery.NewRegistry(delivery.NewEmailChannel(ledger, &notification.MockNotifier{}, time.Second))
	mgr := sessions.NewManager(sessions.NewMemoryStore(), sessions.DefaultCookieConfig())

	cfg := Config{
		PrefixConfig: pkgconfig.DefaultPrefixes(),
		LoginHandle:  loginapi.NewHandle(loginflow.NewController(users, registry), mgr, users),
		SignupHandle: signup.NewHandle(signup.NewSignupService(users)),
		TwoFaHandle:  twofaapi.NewHandle(users, registry),
		Sessions:     mgr,
		Audit:        audit.NewMiddleware(audit.Config{}),
	}
	if limits != nil {
		cfg.RateLimit = ratelimit.NewMiddleware(limits)
		t.Cleanup(cfg.RateLimit.Close)
	}
	return cfg
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSetupRoutes(t *testing.T) {
	r := chi.NewRouter()
	SetupRoutes(r, createTestConfig(t, nil))

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"login rejects bad credentials", http.MethodPost, "/auth/login", `{"email":"x@example.com","password":"nope"}`, http.StatusUnauthorized},
		{"verify without session", http.MethodPost, "/auth/2fa/verify", `{"code":"123456"}`, http.StatusUnauthorized},
		{"status without session", http.MethodGet, "/auth/2fa/status", "", http.StatusUnauthorized},
		{"logout is idempotent", http.MethodPost, "/auth/logout", "", http.StatusOK},
		{"signup customer", http.MethodPost, "/signup/customer", `{"name":"Ravi Kumar","email":"ravi@example.com","phone":"9876543210","password":"secret1","confirm_password":"secret1"}`, http.StatusCreated},
		{"me requires session", http.MethodGet, "/me", "", http.StatusUnauthorized},
		{"me 2fa requires session", http.MethodGet, "/me/2fa", "", http.StatusUnauthorized},
		{"unknown route", http.MethodGet, "/admin", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestSetupRoutes_RateLimitsLogin(t *testing.T) {
	limits := pkgconfig.RateLimitConfig{
		PerIPEnabled:     true,
		PerIPCapacity:    100,
		PerIPRefillRate:  1,
		LoginCapacity:    2,
		LoginRefillRate:  0.001,
		VerifyCapacity:   2,
		VerifyRefillRate: 0.001,
		SignupCapacity:   2,
		SignupRefillRate: 0.001,
	}
	prefixes := pkgconfig.DefaultPrefixes()

	r := chi.NewRouter()
	SetupRoutes(r, createTestConfig(t, limits.ToMiddlewareConfig(prefixes.Auth, prefixes.Signup)))

	body := `{"email":"x@example.com","password":"nope"}`
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/auth/login", body).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/auth/login", body).Code)

	rec := serve(r, http.MethodPost, "/auth/login", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1000", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMIT_EXCEEDED")

	// other endpoints keep their own budget
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/auth/2fa/status", "").Code)
}

func TestSetupPublicRoutes_OmitsAccount(t *testing.T) {
	r := chi.NewRouter()
	SetupPublicRoutes(r, createTestConfig(t, nil))

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/auth/logout", "").Code)
}
