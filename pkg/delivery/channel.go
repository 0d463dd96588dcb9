// Package delivery contains the channels a one-time code can travel over.
//
// Both channels implement the same verification capability with different
// authorities: the email channel issues codes into the OTP ledger and checks
// them there, while the SMS channel delegates issuing and checking to the
// Twilio Verify service and never touches the ledger.
package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/tendant/settle-idm/pkg/credential"
	"github.com/tendant/settle-idm/pkg/twofa"
)

var (
	// ErrChannelUnavailable means the channel has no configuration or the user
	// has no destination on it.
	ErrChannelUnavailable = errors.New("delivery channel unavailable")

	// ErrDeliveryFailed means the provider could not be reached or refused the request.
	ErrDeliveryFailed = errors.New("delivery failed")
)

// DefaultTimeout bounds a single provider call
const DefaultTimeout = 15 * time.Second

// ChallengeRef describes a sent challenge; it carries no secret.
type ChallengeRef struct {
	Method      twofa.Method
	Destination string // masked for display
	Reference   string // provider reference, if any
	SentAt      time.Time
}

// Channel sends a code to a user and checks a submitted code.
type Channel interface {
	Method() twofa.Method

	// Available reports whether the channel is configured.
	Available() bool

	// Reaches reports whether the user has a destination on this channel.
	Reaches(user credential.User) bool

	// Destination returns the masked destination shown to the user.
	Destination(user credential.User) string

	SendChallenge(ctx context.Context, user credential.User) (ChallengeRef, error)

	// Check consumes the code on success. A wrong or expired code is (false, nil).
	Check(ctx context.Context, user credential.User, code string) (bool, error)
}

// Invalidator is implemented by channels that hold issued codes themselves
// and can retire them before expiry.
type Invalidator interface {
	Invalidate(ctx context.Context, user credential.User) error
}

// callWithContext runs fn and waits for it or ctx, whichever finishes first.
// An abandoned call is left to finish and its result is dropped.
func callWithContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
