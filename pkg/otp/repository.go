package otp

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository stores codes. Implementations must make Replace and Consume
// atomic with respect to concurrent calls for the same user.
type Repository interface {
	// Replace marks every unused code of code.UserID used and stores code.
	Replace(ctx context.Context, code Code) error

	// Consume marks the unused code of userID with codeHash used if it expires
	// after now. It reports whether a code was consumed.
	Consume(ctx context.Context, userID uuid.UUID, codeHash string, now time.Time) (bool, error)

	// InvalidateAll marks every unused code of userID used.
	InvalidateAll(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)

	// DeleteStale removes codes that are used or expired before the given time.
	DeleteStale(ctx context.Context, before time.Time) (int64, error)

	// CountUnused returns how many unused codes userID holds, expired or not.
	CountUnused(ctx context.Context, userID uuid.UUID) (int, error)
}
