// Package api serves the browser login flow over HTTP: password, code
// verification, resend, channel switch and logout, plus the current user.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/settle-idm/pkg/credential"
	"github.com/tendant/settle-idm/pkg/errors"
	"github.com/tendant/settle-idm/pkg/loginflow"
	"github.com/tendant/settle-idm/pkg/otp"
	"github.com/tendant/settle-idm/pkg/sessions"
	"github.com/tendant/settle-idm/pkg/twofa"
)

type Handle struct {
	ctrl     *loginflow.Controller
	sessions *sessions.Manager
	users    *credential.Service
}

func NewHandle(ctrl *loginflow.Controller, mgr *sessions.Manager, users *credential.Service) *Handle {
	return &Handle{ctrl: ctrl, sessions: mgr, users: users}
}

// RegisterRoutes mounts the login flow, usually under /auth
func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.PostLogin)
	r.Route("/2fa", func(r chi.Router) {
		r.Post("/verify", h.PostVerify)
		r.Post("/resend", h.PostResend)
		r.Post("/switch", h.PostSwitch)
		r.Get("/status", h.GetStatus)
	})
	r.Post("/logout", h.PostLogout)
}

// RegisterAccountRoutes mounts /me; the caller wraps it in RequireAuth
func (h *Handle) RegisterAccountRoutes(r chi.Router) {
	r.Get("/", h.GetMe)
}

// PostLogin handles POST /login
func (h *Handle) PostLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		errors.WriteError(w, r, errors.InvalidInput("body", "unable to parse request"))
		return
	}
	if req.Email == "" || req.Password == "" {
		errors.WriteError(w, r, errors.InvalidInput("credentials", "email and password are required"))
		return
	}

	res, err := h.ctrl.SubmitPassword(r.Context(), req.Email, req.Password, req.RememberMe)
	if res.State == loginflow.StateAuthenticated {
		h.authenticate(w, r, res, req.Next)
		return
	}

	if res.Pending != nil {
		if loginflow.SafeNext(req.Next) {
			res.Pending.Next = req.Next
		}
		if _, serr := h.sessions.Start(w, r, res.Pending); serr != nil {
			slog.Error("Failed to start session", "user_id", res.User.ID, "error", serr)
			errors.WriteError(w, r, errors.Internal(serr))
			return
		}
	}

	if err != nil {
		writeFlowError(w, r, err, res)
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, challengeResponse(res))
}

// PostVerify handles POST /2fa/verify
func (h *Handle) PostVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		errors.WriteError(w, r, errors.InvalidInput("body", "unable to parse request"))
		return
	}
	if !otp.WellFormed(req.Code) {
		errors.WriteError(w, r, errors.InvalidInput("code", "must be 6 digits"))
		return
	}

	sess, ok := h.pendingSession(w, r)
	if !ok {
		return
	}
	next := sess.Pending.Next
	before := sess.Pending.FailedAttempts

	res, err := h.ctrl.SubmitCode(r.Context(), sess.Pending, req.Code)
	if err != nil {
		h.persist(w, r, sess, res, before)
		writeFlowError(w, r, err, res)
		return
	}
	h.authenticate(w, r, res, next)
}

// PostResend handles POST /2fa/resend
func (h *Handle) PostResend(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.pendingSession(w, r)
	if !ok {
		return
	}
	before := sess.Pending.FailedAttempts
	res, err := h.ctrl.Resend(r.Context(), sess.Pending)
	h.respondChallenge(w, r, sess, res, before, err)
}

// PostSwitch handles POST /2fa/switch
func (h *Handle) PostSwitch(w http.ResponseWriter, r *http.Request) {
	var req SwitchRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		errors.WriteError(w, r, errors.InvalidInput("body", "unable to parse request"))
		return
	}
	method, err := twofa.ParseMethod(req.Method)
	if err != nil {
		errors.WriteError(w, r, errors.InvalidInput("method", "must be email or sms"))
		return
	}

	sess, ok := h.pendingSession(w, r)
	if !ok {
		return
	}
	before := sess.Pending.FailedAttempts
	res, err := h.ctrl.SwitchChannel(r.Context(), sess.Pending, method)
	h.respondChallenge(w, r, sess, res, before, err)
}

// GetStatus handles GET /2fa/status. An already authenticated session
// reports its landing path.
func (h *Handle) GetStatus(w http.ResponseWriter, r *http.Request) {
	if sess, err := h.sessions.Load(r); err == nil && sess.Authenticated() {
		render.JSON(w, r, LoginResponse{
			Status:   StatusAuthenticated,
			Redirect: loginflow.LandingPath(sess.Principal.Role),
		})
		return
	}

	sess, ok := h.pendingSession(w, r)
	if !ok {
		return
	}
	res, err := h.ctrl.Status(r.Context(), sess.Pending)
	if err != nil {
		h.persist(w, r, sess, res, sess.Pending.FailedAttempts)
		writeFlowError(w, r, err, res)
		return
	}
	resp := challengeResponse(res)
	resp.ExpiresAt = &sess.Pending.ExpiresAt
	render.JSON(w, r, resp)
}

// PostLogout handles POST /logout. It succeeds with or without a session.
func (h *Handle) PostLogout(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Load(r)
	if err != nil && !sessions.IsNotFound(err) {
		slog.Error("Failed to load session on logout", "error", err)
	}
	h.ctrl.Logout(r.Context(), sess)

	if err := h.sessions.Destroy(w, r); err != nil {
		slog.Error("Failed to destroy session", "error", err)
	}
	render.JSON(w, r, LoginResponse{Status: StatusLoggedOut})
}

// GetMe handles GET /me
func (h *Handle) GetMe(w http.ResponseWriter, r *http.Request) {
	p, ok := sessions.PrincipalFromContext(r.Context())
	if !ok {
		errors.WriteError(w, r, errors.Unauthorized("authentication required"))
		return
	}
	u, err := h.users.GetUser(r.Context(), p.UserID)
	if err != nil {
		if errors.Is(err, credential.ErrUserNotFound) {
			errors.WriteError(w, r, errors.Unauthorized("authentication required"))
			return
		}
		errors.WriteError(w, r, errors.Internal(err))
		return
	}
	render.JSON(w, r, MeResponse{
		ID:               u.ID.String(),
		Name:             u.Name,
		Email:            u.Email,
		Phone:            twofa.MaskPhone(u.Phone),
		Role:             string(u.Role),
		TwoFactorEnabled: u.TwoFactorEnabled,
		TwoFactorMethod:  u.TwoFactorPreference().Method,
	})
}

// authenticate rotates the session to an authenticated one and replies with
// the landing path
func (h *Handle) authenticate(w http.ResponseWriter, r *http.Request, res loginflow.Result, next string) {
	principal := sessions.Principal{UserID: res.User.ID, Role: res.User.Role}
	if _, err := h.sessions.Promote(w, r, principal, res.RememberMe); err != nil {
		slog.Error("Failed to promote session", "user_id", res.User.ID, "error", err)
		errors.WriteError(w, r, errors.Internal(err))
		return
	}
	render.JSON(w, r, LoginResponse{
		Status:   StatusAuthenticated,
		Redirect: loginflow.Redirect(res.User.Role, next),
	})
}

// pendingSession loads the session holding an open challenge, or replies
// CHALLENGE_MISSING
func (h *Handle) pendingSession(w http.ResponseWriter, r *http.Request) (*sessions.Session, bool) {
	sess, err := h.sessions.Load(r)
	if err != nil && !sessions.IsNotFound(err) {
		slog.Error("Failed to load session", "error", err)
		errors.WriteError(w, r, errors.Internal(err))
		return nil, false
	}
	if sess == nil || sess.Pending == nil {
		errors.WriteError(w, r, errors.New(errors.ErrCodeChallengeMissing, "No login in progress, please sign in again"))
		return nil, false
	}
	return sess, true
}

// persist saves challenge changes, or ends the session when the controller
// found the challenge unusable. before is the wrong-code count the request
// started with.
func (h *Handle) persist(w http.ResponseWriter, r *http.Request, sess *sessions.Session, res loginflow.Result, before int) {
	if res.State == loginflow.StateAnonymous {
		if err := h.sessions.Destroy(w, r); err != nil {
			slog.Error("Failed to destroy session", "error", err)
		}
		return
	}
	err := h.sessions.SavePending(r.Context(), sess.Token, *sess.Pending, before)
	switch {
	case err == nil:
	case sessions.IsNotFound(err):
		slog.Info("Challenge ended by a concurrent request, not saved", "user_id", sess.Pending.UserID)
	default:
		slog.Error("Failed to save session", "error", err)
	}
}

func (h *Handle) respondChallenge(w http.ResponseWriter, r *http.Request, sess *sessions.Session, res loginflow.Result, before int, err error) {
	h.persist(w, r, sess, res, before)
	if err != nil {
		writeFlowError(w, r, err, res)
		return
	}
	render.JSON(w, r, challengeResponse(res))
}

func challengeResponse(res loginflow.Result) LoginResponse {
	left := res.AttemptsLeft
	return LoginResponse{
		Status:           StatusTwoFARequired,
		Method:           res.Method,
		Destination:      res.Destination,
		AvailableMethods: res.AvailableMethods,
		AttemptsLeft:     &left,
	}
}
