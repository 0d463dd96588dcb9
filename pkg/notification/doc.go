// Package notification renders and sends the transactional emails of the
// login service: the 2FA verification code and the welcome message.
//
// Templates are embedded and rendered into a plain text body with an HTML
// alternative. EmailNotifier sends them over an authenticated SMTP relay with
// github.com/wneessen/go-mail:
//
//	n, err := notification.NewEmailNotifier(notification.SMTPConfig{
//		Host:     "smtp.gmail.com",
//		Port:     587,
//		TLS:      true,
//		Username: "noreply@settle.space",
//		Password: os.Getenv("MAIL_PASSWORD"),
//		From:     "noreply@settle.space",
//	})
//	if errors.Is(err, notification.ErrNotConfigured) {
//		// run without the email channel
//	}
//
// MockNotifier records notices for tests.
package notification
