// Package api lets a signed-in user read and change their two-factor setting.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/settle-idm/pkg/credential"
	"github.com/tendant/settle-idm/pkg/delivery"
	"github.com/tendant/settle-idm/pkg/errors"
	"github.com/tendant/settle-idm/pkg/sessions"
	"github.com/tendant/settle-idm/pkg/twofa"
)

// TwoFaHandler returns a http.Handler for the 2FA settings API. It expects
// the request context to carry a session principal.
func TwoFaHandler(h *Handle) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Get2fa)
	r.Put("/", h.Put2fa)
	return r
}

type Handle struct {
	users    *credential.Service
	channels *delivery.Registry
}

func NewHandle(users *credential.Service, channels *delivery.Registry) *Handle {
	return &Handle{users: users, channels: channels}
}

type PreferenceRequest struct {
	Enabled bool   `json:"enabled"`
	Method  string `json:"method"`
}

type PreferenceResponse struct {
	Enabled          bool           `json:"enabled"`
	Method           twofa.Method   `json:"method"`
	AvailableMethods []twofa.Method `json:"available_methods"`
}

// Get2fa returns the current setting
// (GET /)
func (h *Handle) Get2fa(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, h.response(u))
}

// Put2fa replaces the setting. Enabling SMS needs a phone number on record.
// (PUT /)
func (h *Handle) Put2fa(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var data PreferenceRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		errors.WriteError(w, r, errors.InvalidInput("body", "unable to parse request"))
		return
	}
	method := u.TwoFactorPreference().Method
	if data.Method != "" {
		m, err := twofa.ParseMethod(data.Method)
		if err != nil {
			errors.WriteError(w, r, errors.InvalidInput("method", "must be email or sms"))
			return
		}
		method = m
	}

	pref := twofa.Preference{Enabled: data.Enabled, Method: method}
	if err := h.users.SetTwoFactorPreference(r.Context(), u.ID, pref); err != nil {
		if errors.Is(err, credential.ErrPhoneRequired) {
			errors.WriteError(w, r, errors.InvalidInput("method", "add a phone number before enabling SMS"))
			return
		}
		errors.WriteError(w, r, errors.Internal(err))
		return
	}

	u.TwoFactorEnabled = pref.Enabled
	u.TwoFactorMethod = pref.Method
	render.JSON(w, r, h.response(u))
}

func (h *Handle) currentUser(w http.ResponseWriter, r *http.Request) (credential.User, bool) {
	p, ok := sessions.PrincipalFromContext(r.Context())
	if !ok {
		errors.WriteError(w, r, errors.Unauthorized("authentication required"))
		return credential.User{}, false
	}
	u, err := h.users.GetUser(r.Context(), p.UserID)
	if err != nil {
		if errors.Is(err, credential.ErrUserNotFound) {
			errors.WriteError(w, r, errors.Unauthorized("authentication required"))
		} else {
			errors.WriteError(w, r, errors.Internal(err))
		}
		return credential.User{}, false
	}
	return u, true
}

func (h *Handle) response(u credential.User) PreferenceResponse {
	pref := u.TwoFactorPreference()
	available := []twofa.Method{}
	if h.channels != nil {
		available = append(available, h.channels.Available(u)...)
	}
	return PreferenceResponse{
		Enabled:          pref.Enabled,
		Method:           pref.Method,
		AvailableMethods: available,
	}
}
