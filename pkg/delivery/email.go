package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/tendant/settle-idm/pkg/credential"
	"github.com/tendant/settle-idm/pkg/notification"
	"github.com/tendant/settle-idm/pkg/otp"
	"github.com/tendant/settle-idm/pkg/twofa"
)

// EmailChannel issues codes into the ledger and mails them
type EmailChannel struct {
	ledger   *otp.Ledger
	notifier notification.Notifier
	timeout  time.Duration
	now      func() time.Time
}

// NewEmailChannel creates the email channel. A nil notifier makes it unavailable.
func NewEmailChannel(ledger *otp.Ledger, notifier notification.Notifier, timeout time.Duration) *EmailChannel {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &EmailChannel{
		ledger:   ledger,
		notifier: notifier,
		timeout:  timeout,
		now:      time.Now,
	}
}

func (c *EmailChannel) Method() twofa.Method {
	return twofa.MethodEmail
}

func (c *EmailChannel) Available() bool {
	return c.notifier != nil && c.ledger != nil
}

func (c *EmailChannel) Reaches(user credential.User) bool {
	return user.Email != ""
}

func (c *EmailChannel) Destination(user credential.User) string {
	return twofa.MaskEmail(user.Email)
}

// SendChallenge stores a fresh code, retiring the previous one, then mails it.
// The ledger write is committed before the relay is contacted.
func (c *EmailChannel) SendChallenge(ctx context.Context, user credential.User) (ChallengeRef, error) {
	if !c.Available() || !c.Reaches(user) {
		return ChallengeRef{}, ErrChannelUnavailable
	}

	code, err := c.ledger.Issue(ctx, user.ID, twofa.MethodEmail)
	if err != nil {
		return ChallengeRef{}, fmt.Errorf("failed to issue code: %w", err)
	}

	name := user.Name
	if name == "" {
		name = "there"
	}
	data := notification.NotificationData{
		To: user.Email,
		Data: map[string]string{
			"Name":          name,
			"Code":          code,
			"ExpiryMinutes": strconv.Itoa(int(c.ledger.Expiry().Minutes())),
		},
	}

	sendCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.notifier.Send(sendCtx, notification.TwoFactorCodeNotice, data); err != nil {
		slog.Error("Failed to send verification email", "user_id", user.ID, "error", err)
		// An undelivered code must not stay redeemable.
		if invErr := c.ledger.Invalidate(context.WithoutCancel(ctx), user.ID); invErr != nil {
			slog.Error("Failed to invalidate undelivered code", "user_id", user.ID, "error", invErr)
		}
		return ChallengeRef{}, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	return ChallengeRef{
		Method:      twofa.MethodEmail,
		Destination: c.Destination(user),
		SentAt:      c.now(),
	}, nil
}

func (c *EmailChannel) Check(ctx context.Context, user credential.User, code string) (bool, error) {
	if c.ledger == nil {
		return false, ErrChannelUnavailable
	}
	return c.ledger.Verify(ctx, user.ID, code)
}

// Invalidate retires the user's outstanding email code
func (c *EmailChannel) Invalidate(ctx context.Context, user credential.User) error {
	if c.ledger == nil {
		return nil
	}
	return c.ledger.Invalidate(ctx, user.ID)
}
