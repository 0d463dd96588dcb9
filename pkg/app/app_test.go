package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/settle-idm/pkg/notification"
)

type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func (c *client) do(method, path string, body interface{}) (int, map[string]interface{}) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func newTestApp(t *testing.T) (*client, *notification.MockNotifier) {
	t.Helper()
	mailer := &notification.MockNotifier{}
	a, err := New(context.Background(), DefaultConfig(), WithNotifier(mailer))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	r := chi.NewRouter()
	a.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: srv.URL, http: &http.Client{Jar: jar}}, mailer
}

func TestSellerJourney(t *testing.T) {
	c, mailer := newTestApp(t)

	status, body := c.do(http.MethodPost, "/signup/seller", map[string]string{
		"name":             "Meera Shah",
		"email":            "meera@example.com",
		"phone":            "+91 98765 43210",
		"password":         "secret1",
		"confirm_password": "secret1",
	})
	require.Equal(t, http.StatusCreated, status, body)
	welcome, ok := mailer.Last()
	require.True(t, ok)
	assert.Equal(t, notification.WelcomeNotice, welcome.Type)

	login := map[string]interface{}{"email": "meera@example.com", "password": "secret1"}
	status, body = c.do(http.MethodPost, "/auth/login", login)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "/seller/dashboard", body["redirect"])

	status, body = c.do(http.MethodPut, "/me/2fa", map[string]interface{}{"enabled": true, "method": "email"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["enabled"])

	status, _ = c.do(http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = c.do(http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusUnauthorized, status)

	login["next"] = "/seller/orders"
	status, body = c.do(http.MethodPost, "/auth/login", login)
	require.Equal(t, http.StatusAccepted, status, body)
	assert.Equal(t, "2fa_required", body["status"])
	assert.Equal(t, "email", body["method"])

	sent, ok := mailer.Last()
	require.True(t, ok)
	require.Equal(t, notification.TwoFactorCodeNotice, sent.Type)

	status, body = c.do(http.MethodPost, "/auth/2fa/verify", map[string]string{"code": sent.Data["Code"]})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "/seller/orders", body["redirect"])

	status, body = c.do(http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "meera@example.com", body["email"])
	assert.Equal(t, "987****210", body["phone"])
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	bad := cfg
	bad.Persistence = "sqlite"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Session.Store = "memcached"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Prefix.Signup = bad.Prefix.Auth
	assert.Error(t, bad.Validate())

	_, err := New(context.Background(), bad)
	assert.Error(t, err)
}

func TestBootstrapAdmin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Admin = AdminConfig{Email: "root@settle.space", Password: "admin-secret"}
	a, err := New(context.Background(), cfg, WithNotifier(&notification.MockNotifier{}))
	require.NoError(t, err)
	defer a.Close()

	var out bytes.Buffer
	require.NoError(t, a.BootstrapAdmin(context.Background(), &out))
	assert.NotContains(t, out.String(), "admin-secret")

	u, err := a.Users.GetUserByEmail(context.Background(), "root@settle.space")
	require.NoError(t, err)
	assert.Equal(t, "admin", string(u.Role))
	assert.True(t, u.TwoFactorEnabled)

	// idempotent
	require.NoError(t, a.BootstrapAdmin(context.Background(), &out))
}
