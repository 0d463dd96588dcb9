package loginflow

import (
	"fmt"
	"time"

	"github.com/tendant/settle-idm/pkg/credential"
	"github.com/tendant/settle-idm/pkg/delivery"
	"github.com/tendant/settle-idm/pkg/sessions"
	"github.com/tendant/settle-idm/pkg/twofa"
)

// State is the position of a login in the challenge flow
type State string

const (
	StateAnonymous        State = "anonymous"
	StatePasswordVerified State = "password_verified"
	StateAwaitingOTP      State = "awaiting_otp"
	StateAuthenticated    State = "authenticated"
)

// Error type constants
const (
	ErrorTypeInvalidCredentials = "invalid_credentials"
	ErrorTypeInvalidInput       = "invalid_input"
	ErrorTypeInvalidCode        = "invalid_code"
	ErrorTypeAttemptsExceeded   = "attempts_exceeded"
	ErrorTypeChallengeMissing   = "challenge_missing"
	ErrorTypeDeliveryFailed     = "delivery_failed"
	ErrorTypeChannelUnavailable = "channel_unavailable"
	ErrorTypeRateLimited        = "rate_limited"
	ErrorTypeInternalError      = "internal_error"
)

// Result describes where a login stands after an operation
type Result struct {
	State State
	User  credential.User

	// Pending is the open challenge; nil once authenticated
	Pending *sessions.PendingChallenge

	// Method is the active channel: the override if set, else the stored preference
	Method           twofa.Method
	Destination      string // masked
	AvailableMethods []twofa.Method
	Challenge        *delivery.ChallengeRef
	AttemptsLeft     int
	RememberMe       bool
}

// Error is a failed operation. Messages are safe to show to the user.
type Error struct {
	Type         string
	Message      string
	Alternatives []twofa.Method // other methods to try after a delivery problem
	RetryAfter   time.Duration  // set for rate_limited
	Err          error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(typ, message string, err error) *Error {
	return &Error{Type: typ, Message: message, Err: err}
}

func errInvalidCredentials() *Error {
	return newError(ErrorTypeInvalidCredentials, "Invalid email or password", nil)
}

func errChallengeMissing() *Error {
	return newError(ErrorTypeChallengeMissing, "No login in progress, please sign in again", nil)
}

func errInvalidCode() *Error {
	return newError(ErrorTypeInvalidCode, "Invalid or expired verification code", nil)
}

func errAttemptsExceeded() *Error {
	return newError(ErrorTypeAttemptsExceeded, "Too many incorrect codes, please request a new code", nil)
}
