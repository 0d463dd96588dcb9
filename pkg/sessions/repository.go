package sessions

import (
	"context"
	"errors"
)

var ErrSessionNotFound = errors.New("session not found")

// Store persists sessions by token until their ExpiresAt
type Store interface {
	// Get returns ErrSessionNotFound for unknown or expired tokens
	Get(ctx context.Context, token string) (*Session, error)

	// Save creates or replaces the session under s.Token
	Save(ctx context.Context, s *Session) error

	// Delete removes a session; unknown tokens are not an error
	Delete(ctx context.Context, token string) error

	// Update applies fn to the stored session and writes the result back
	// atomically. It returns ErrSessionNotFound for unknown or expired
	// tokens, and nothing is written when fn returns an error.
	Update(ctx context.Context, token string, fn func(*Session) error) error
}
