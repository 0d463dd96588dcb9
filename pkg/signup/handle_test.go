package signup

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, opts ...SignupServiceOption) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	NewHandle(NewSignupService(newTestUsers(t), opts...)).RegisterRoutes(r)
	return r
}

func post(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const sellerBody = `{"name":"Ravi Kumar","email":"ravi@example.com","phone":"9876543210","password":"secret1","confirm_password":"secret1"}`

func TestSignupHandler(t *testing.T) {
	t.Run("seller created", func(t *testing.T) {
		h := newTestRouter(t)
		rec := post(h, "/seller", sellerBody)
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp SignupResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.UserID)
		assert.Equal(t, "seller", resp.Role)
	})

	t.Run("duplicate is conflict", func(t *testing.T) {
		h := newTestRouter(t)
		require.Equal(t, http.StatusCreated, post(h, "/customer", sellerBody).Code)

		rec := post(h, "/seller", sellerBody)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), ErrCodeEmailExists)
	})

	t.Run("invalid form has details", func(t *testing.T) {
		h := newTestRouter(t)
		rec := post(h, "/customer", `{"name":"R","email":"ravi@example.com","phone":"98","password":"secret1","confirm_password":"secret1"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, ErrCodeInvalidRequest, resp.Code)
		assert.Contains(t, resp.Details, "name")
		assert.Contains(t, resp.Details, "phone")
	})

	t.Run("malformed json", func(t *testing.T) {
		rec := post(newTestRouter(t), "/customer", `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("registration disabled", func(t *testing.T) {
		rec := post(newTestRouter(t, WithRegistrationEnabled(false)), "/customer", sellerBody)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
