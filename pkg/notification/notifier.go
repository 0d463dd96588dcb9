package notification

import "context"

// NoticeType names a transactional message
type NoticeType string

const (
	TwoFactorCodeNotice NoticeType = "twofa_code"
	WelcomeNotice       NoticeType = "welcome"
)

type NotificationData struct {
	To   string            // Recipient address
	Data map[string]string // Template values
}

// Notifier delivers a rendered notice. Implementations must respect ctx.
type Notifier interface {
	Send(ctx context.Context, noticeType NoticeType, notification NotificationData) error
}
