package loginflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/settle-idm/pkg/credential"
	"github.com/tendant/settle-idm/pkg/delivery"
	"github.com/tendant/settle-idm/pkg/otp"
	"github.com/tendant/settle-idm/pkg/ratelimit"
	"github.com/tendant/settle-idm/pkg/sessions"
	"github.com/tendant/settle-idm/pkg/twofa"
)

const (
	DefaultMaxAttempts = 3
	DefaultPendingTTL  = 15 * time.Minute
)

// Controller runs the login state machine over the credential store and the
// delivery channels.
type Controller struct {
	users       *credential.Service
	channels    *delivery.Registry
	limiter     ratelimit.Limiter
	maxAttempts int
	pendingTTL  time.Duration
	now         func() time.Time
}

type Option func(*Controller)

// WithIssueLimiter caps code issuance per user
func WithIssueLimiter(l ratelimit.Limiter) Option {
	return func(c *Controller) {
		if l != nil {
			c.limiter = l
		}
	}
}

// WithMaxAttempts sets how many wrong codes a challenge tolerates
func WithMaxAttempts(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithPendingTTL sets how long a challenge stays open
func WithPendingTTL(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pendingTTL = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController creates a controller. Without WithIssueLimiter issuance is unlimited.
func NewController(users *credential.Service, channels *delivery.Registry, opts ...Option) *Controller {
	c := &Controller{
		users:       users,
		channels:    channels,
		limiter:     ratelimit.Unlimited{},
		maxAttempts: DefaultMaxAttempts,
		pendingTTL:  DefaultPendingTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxAttempts returns the wrong-code cap per challenge
func (c *Controller) MaxAttempts() int {
	return c.maxAttempts
}

// SubmitPassword checks credentials. Users without 2FA are Authenticated at
// once; the others get a pending challenge and a code on their stored method.
// When that code cannot be sent the result stays PasswordVerified and the
// error lists the alternatives.
func (c *Controller) SubmitPassword(ctx context.Context, email, password string, rememberMe bool) (Result, error) {
	u, err := c.users.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, credential.ErrInvalidCredentials) {
			slog.Info("Login rejected", "reason", "invalid_credentials")
			return Result{State: StateAnonymous}, errInvalidCredentials()
		}
		slog.Error("Failed to authenticate", "error", err)
		return Result{State: StateAnonymous}, newError(ErrorTypeInternalError, "Login failed", err)
	}

	pref := u.TwoFactorPreference()
	if !pref.Enabled {
		slog.Info("User authenticated", "user_id", u.ID, "two_factor", false)
		return Result{State: StateAuthenticated, User: u, RememberMe: rememberMe}, nil
	}

	now := c.now()
	pending := &sessions.PendingChallenge{
		UserID:     u.ID,
		RememberMe: rememberMe,
		CreatedAt:  now,
		ExpiresAt:  now.Add(c.pendingTTL),
	}
	return c.challenge(ctx, u, pending, pref.Method)
}

// SubmitCode verifies code on the active channel. A wrong code keeps the
// challenge open until MaxAttempts is reached.
func (c *Controller) SubmitCode(ctx context.Context, pending *sessions.PendingChallenge, code string) (Result, error) {
	u, ferr := c.loadPending(ctx, pending)
	if ferr != nil {
		return Result{State: StateAnonymous}, ferr
	}
	res := c.awaiting(u, pending)

	if !otp.WellFormed(code) {
		return res, newError(ErrorTypeInvalidInput, "Verification code must be 6 digits", nil)
	}
	if pending.FailedAttempts >= c.maxAttempts {
		if ch, err := c.channels.Get(res.Method); err == nil {
			c.retire(ctx, ch, u)
		}
		return res, errAttemptsExceeded()
	}

	method := res.Method
	ch, err := c.channels.For(method, u)
	if err != nil {
		return res, c.unavailable(u, method, err)
	}

	ok, err := ch.Check(ctx, u, code)
	if err != nil {
		slog.Error("Failed to check verification code", "user_id", u.ID, "method", method, "error", err)
		if errors.Is(err, delivery.ErrDeliveryFailed) {
			return res, c.deliveryFailed(u, method, err)
		}
		return res, newError(ErrorTypeInternalError, "Verification failed", err)
	}

	if !ok {
		pending.FailedAttempts++
		res.AttemptsLeft = c.attemptsLeft(pending)
		slog.Info("Verification code rejected", "user_id", u.ID, "method", method, "attempt", pending.FailedAttempts)
		if pending.FailedAttempts >= c.maxAttempts {
			c.retire(ctx, ch, u)
			return res, errAttemptsExceeded()
		}
		return res, errInvalidCode()
	}

	slog.Info("User authenticated", "user_id", u.ID, "two_factor", true, "method", method)
	return Result{
		State:      StateAuthenticated,
		User:       u,
		Method:     method,
		RememberMe: pending.RememberMe,
	}, nil
}

// Resend issues a fresh code on the active channel; the previous code is
// no longer valid afterwards.
func (c *Controller) Resend(ctx context.Context, pending *sessions.PendingChallenge) (Result, error) {
	u, ferr := c.loadPending(ctx, pending)
	if ferr != nil {
		return Result{State: StateAnonymous}, ferr
	}
	return c.challenge(ctx, u, pending, c.activeMethod(u, pending))
}

// SwitchChannel moves this login to method and sends a code there. The user's
// stored preference is unchanged. A code issued on the previous channel is retired.
func (c *Controller) SwitchChannel(ctx context.Context, pending *sessions.PendingChallenge, method twofa.Method) (Result, error) {
	u, ferr := c.loadPending(ctx, pending)
	if ferr != nil {
		return Result{State: StateAnonymous}, ferr
	}
	if !method.Valid() {
		return c.awaiting(u, pending), newError(ErrorTypeInvalidInput, "Unknown verification method", twofa.ErrInvalidMethod)
	}
	if _, err := c.channels.For(method, u); err != nil {
		return c.awaiting(u, pending), c.unavailable(u, method, err)
	}

	previous := c.activeMethod(u, pending)
	res, err := c.challenge(ctx, u, pending, method)
	if err != nil {
		// the challenge stays on previous and its code remains usable
		return res, err
	}
	pending.ChannelOverride = method

	if previous != method {
		if ch, err := c.channels.Get(previous); err == nil {
			c.retire(ctx, ch, u)
		}
	}
	slog.Info("2FA channel switched", "user_id", u.ID, "from", previous, "to", method)
	return res, nil
}

// Status reports the open challenge without side effects
func (c *Controller) Status(ctx context.Context, pending *sessions.PendingChallenge) (Result, error) {
	u, ferr := c.loadPending(ctx, pending)
	if ferr != nil {
		return Result{State: StateAnonymous}, ferr
	}
	return c.awaiting(u, pending), nil
}

// Logout retires any code the open challenge still has outstanding. It is
// safe to call with no session or an already ended one.
func (c *Controller) Logout(ctx context.Context, s *sessions.Session) Result {
	if s == nil || s.Pending == nil {
		return Result{State: StateAnonymous}
	}
	u, err := c.users.GetUser(ctx, s.Pending.UserID)
	if err != nil {
		return Result{State: StateAnonymous}
	}
	if ch, err := c.channels.Get(c.activeMethod(u, s.Pending)); err == nil {
		c.retire(ctx, ch, u)
	}
	return Result{State: StateAnonymous}
}

// challenge issues a code on method for an open challenge. A successful
// issue resets the wrong-code counter.
func (c *Controller) challenge(ctx context.Context, u credential.User, pending *sessions.PendingChallenge, method twofa.Method) (Result, error) {
	res := Result{
		State:            StatePasswordVerified,
		User:             u,
		Pending:          pending,
		Method:           method,
		AvailableMethods: c.channels.Available(u),
		AttemptsLeft:     c.attemptsLeft(pending),
		RememberMe:       pending.RememberMe,
	}

	ch, err := c.channels.For(method, u)
	if err != nil {
		slog.Warn("2FA channel unavailable", "user_id", u.ID, "method", method)
		return res, c.unavailable(u, method, err)
	}
	res.Destination = ch.Destination(u)

	allowed, retryAfter, err := c.limiter.Allow(ctx, u.ID.String())
	if err != nil {
		slog.Error("Failed to check issuance limit", "user_id", u.ID, "error", err)
		return res, newError(ErrorTypeInternalError, "Could not send verification code", err)
	}
	if !allowed {
		slog.Warn("2FA issuance rate limited", "user_id", u.ID, "method", method)
		ferr := newError(ErrorTypeRateLimited, "Too many codes requested, please wait before trying again", nil)
		ferr.RetryAfter = retryAfter
		return res, ferr
	}

	ref, err := ch.SendChallenge(ctx, u)
	if err != nil {
		if errors.Is(err, delivery.ErrChannelUnavailable) {
			return res, c.unavailable(u, method, err)
		}
		return res, c.deliveryFailed(u, method, err)
	}

	pending.FailedAttempts = 0
	res.State = StateAwaitingOTP
	res.Challenge = &ref
	res.AttemptsLeft = c.maxAttempts
	slog.Info("2FA code sent", "user_id", u.ID, "method", method, "destination", ref.Destination)
	return res, nil
}

func (c *Controller) loadPending(ctx context.Context, pending *sessions.PendingChallenge) (credential.User, *Error) {
	if pending == nil || pending.Expired(c.now()) {
		return credential.User{}, errChallengeMissing()
	}
	u, err := c.users.GetUser(ctx, pending.UserID)
	if err != nil {
		if errors.Is(err, credential.ErrUserNotFound) {
			return credential.User{}, errChallengeMissing()
		}
		slog.Error("Failed to load challenge user", "user_id", pending.UserID, "error", err)
		return credential.User{}, newError(ErrorTypeInternalError, "Verification failed", err)
	}
	if !u.TwoFactorEnabled {
		return credential.User{}, errChallengeMissing()
	}
	return u, nil
}

func (c *Controller) awaiting(u credential.User, pending *sessions.PendingChallenge) Result {
	method := c.activeMethod(u, pending)
	res := Result{
		State:            StateAwaitingOTP,
		User:             u,
		Pending:          pending,
		Method:           method,
		AvailableMethods: c.channels.Available(u),
		AttemptsLeft:     c.attemptsLeft(pending),
		RememberMe:       pending.RememberMe,
	}
	if ch, err := c.channels.Get(method); err == nil {
		res.Destination = ch.Destination(u)
	}
	return res
}

func (c *Controller) activeMethod(u credential.User, pending *sessions.PendingChallenge) twofa.Method {
	if pending.ChannelOverride.Valid() {
		return pending.ChannelOverride
	}
	return u.TwoFactorPreference().Method
}

func (c *Controller) attemptsLeft(pending *sessions.PendingChallenge) int {
	return max(c.maxAttempts-pending.FailedAttempts, 0)
}

func (c *Controller) retire(ctx context.Context, ch delivery.Channel, u credential.User) {
	inv, ok := ch.(delivery.Invalidator)
	if !ok {
		return
	}
	if err := inv.Invalidate(ctx, u); err != nil {
		slog.Error("Failed to invalidate outstanding code", "user_id", u.ID, "method", ch.Method(), "error", err)
	}
}

func (c *Controller) unavailable(u credential.User, method twofa.Method, err error) *Error {
	ferr := newError(ErrorTypeChannelUnavailable,
		fmt.Sprintf("Verification by %s is not available", method), err)
	ferr.Alternatives = c.channels.Alternatives(u, method)
	return ferr
}

func (c *Controller) deliveryFailed(u credential.User, method twofa.Method, err error) *Error {
	ferr := newError(ErrorTypeDeliveryFailed,
		fmt.Sprintf("Could not send a verification code by %s", method), err)
	ferr.Alternatives = c.channels.Alternatives(u, method)
	return ferr
}

// AsError extracts a flow error from err
func AsError(err error) (*Error, bool) {
	var ferr *Error
	ok := errors.As(err, &ferr)
	return ferr, ok
}
