package sessions

import (
	"time"

	"github.com/google/uuid"
	"github.com/tendant/settle-idm/pkg/credential"
	"github.com/tendant/settle-idm/pkg/twofa"
)

// PendingChallenge is the state between a verified password and a verified
// code. It lives only in the session store.
type PendingChallenge struct {
	UserID     uuid.UUID `json:"user_id"`
	RememberMe bool      `json:"remember_me"`

	// ChannelOverride is set by a switch and applies to this login only
	ChannelOverride twofa.Method `json:"channel_override,omitempty"`
	FailedAttempts  int          `json:"failed_attempts"`

	// Next is a local path to return to after verification
	Next string `json:"next,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the challenge can no longer be completed at now
func (p *PendingChallenge) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// Principal is the authenticated user of a session
type Principal struct {
	UserID          uuid.UUID       `json:"user_id"`
	Role            credential.Role `json:"role"`
	AuthenticatedAt time.Time       `json:"authenticated_at"`
}

// Session is a server-side record addressed by an opaque cookie token.
// At most one of Pending and Principal is set.
type Session struct {
	Token      string            `json:"-"`
	Pending    *PendingChallenge `json:"pending,omitempty"`
	Principal  *Principal        `json:"principal,omitempty"`
	RememberMe bool              `json:"remember_me"`
	CreatedAt  time.Time         `json:"created_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// Authenticated reports whether the session carries a principal
func (s *Session) Authenticated() bool {
	return s != nil && s.Principal != nil
}
