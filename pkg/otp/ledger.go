package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/settle-idm/pkg/twofa"
)

// Ledger issues and verifies one-time codes
type Ledger struct {
	repo   Repository
	expiry time.Duration
	now    func() time.Time
	random io.Reader
}

// Option configures a Ledger
type Option func(*Ledger)

// WithExpiry sets the code lifetime
func WithExpiry(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.expiry = d
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithRandom replaces crypto/rand.Reader as the code source
func WithRandom(r io.Reader) Option {
	return func(l *Ledger) {
		l.random = r
	}
}

// NewLedger creates a Ledger backed by repo
func NewLedger(repo Repository, opts ...Option) *Ledger {
	l := &Ledger{
		repo:   repo,
		expiry: DefaultExpiry,
		now:    time.Now,
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Expiry returns the lifetime of issued codes
func (l *Ledger) Expiry() time.Duration {
	return l.expiry
}

// Issue retires the user's outstanding codes and returns a new one for delivery.
func (l *Ledger) Issue(ctx context.Context, userID uuid.UUID, method twofa.Method) (string, error) {
	code, err := GenerateCode(l.random)
	if err != nil {
		return "", err
	}

	now := l.now().UTC()
	err = l.repo.Replace(ctx, Code{
		ID:        uuid.New(),
		UserID:    userID,
		CodeHash:  HashCode(code),
		Method:    method,
		CreatedAt: now,
		ExpiresAt: now.Add(l.expiry),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store code: %w", err)
	}

	slog.Debug("OTP issued", "user_id", userID, "method", method, "expires_in", l.expiry)
	return code, nil
}

// Verify consumes code if it is the user's unused, unexpired code.
// A malformed code is rejected without touching storage.
func (l *Ledger) Verify(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	if !WellFormed(code) {
		return false, nil
	}

	ok, err := l.repo.Consume(ctx, userID, HashCode(code), l.now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to consume code: %w", err)
	}
	return ok, nil
}

// Invalidate retires every outstanding code of the user
func (l *Ledger) Invalidate(ctx context.Context, userID uuid.UUID) error {
	n, err := l.repo.InvalidateAll(ctx, userID, l.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to invalidate codes: %w", err)
	}
	if n > 0 {
		slog.Debug("OTP invalidated", "user_id", userID, "count", n)
	}
	return nil
}

// Outstanding returns how many unused codes the user holds
func (l *Ledger) Outstanding(ctx context.Context, userID uuid.UUID) (int, error) {
	return l.repo.CountUnused(ctx, userID)
}

// PurgeExpired deletes used and expired codes
func (l *Ledger) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := l.repo.DeleteStale(ctx, l.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge codes: %w", err)
	}
	return n, nil
}

// RunPurge calls PurgeExpired every interval until ctx is done. A non-positive
// interval returns immediately.
func (l *Ledger) RunPurge(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := l.PurgeExpired(ctx)
			if err != nil {
				slog.Error("OTP purge failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("OTP purge", "deleted", n)
			}
		}
	}
}
