package notification

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwoFactorCodeTemplate(t *testing.T) {
	templates, err := LoadTemplates()
	require.NoError(t, err)

	tmpl := templates[TwoFactorCodeNotice]
	assert.Equal(t, "Settle Space - Verification Code", tmpl.Subject)

	text, html, err := tmpl.Render(map[string]string{
		"Name":          "<b>Priya</b>",
		"Code":          "042917",
		"ExpiryMinutes": "10",
	})
	require.NoError(t, err)

	for _, body := range []string{text, html} {
		assert.Contains(t, body, "042917")
		assert.Contains(t, body, "10 minutes")
		assert.Contains(t, body, "Never share this code with anyone")
		assert.Contains(t, body, "Settle Space will never ask for this code")
	}
	assert.Contains(t, text, "======")
	assert.NotContains(t, html, "<b>Priya</b>")
	assert.Contains(t, html, "&lt;b&gt;Priya&lt;/b&gt;")
}

func TestWelcomeTemplate(t *testing.T) {
	templates, err := LoadTemplates()
	require.NoError(t, err)
	tmpl := templates[WelcomeNotice]

	text, html, err := tmpl.Render(map[string]string{"Name": "Ravi", "Role": "seller", "ServerURL": "https://settle.space"})
	require.NoError(t, err)
	assert.Contains(t, text, "Start listing your properties")
	assert.Contains(t, html, "List unlimited properties")
	assert.Contains(t, html, "https://settle.space/login")

	text, _, err = tmpl.Render(map[string]string{"Name": "Asha"})
	require.NoError(t, err)
	assert.Contains(t, text, "Start exploring amazing properties")
}

func TestNewEmailNotifier_NotConfigured(t *testing.T) {
	_, err := NewEmailNotifier(SMTPConfig{Host: "smtp.gmail.com", Port: 587})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestEmailNotifier_SendFailsWhenRelayUnreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	n, err := NewEmailNotifier(SMTPConfig{
		Host:     "127.0.0.1",
		Port:     port,
		TLS:      true,
		Username: "user",
		Password: "pass",
		From:     "noreply@example.com",
		Timeout:  time.Second,
	})
	require.NoError(t, err)

	err = n.Send(context.Background(), TwoFactorCodeNotice, NotificationData{
		To:   "priya@example.com",
		Data: map[string]string{"Name": "Priya", "Code": "123456", "ExpiryMinutes": "10"},
	})
	assert.Error(t, err)

	err = n.Send(context.Background(), TwoFactorCodeNotice, NotificationData{})
	assert.Error(t, err)
}

func TestMockNotifier(t *testing.T) {
	m := &MockNotifier{}
	ctx := context.Background()

	_, ok := m.Last()
	assert.False(t, ok)

	require.NoError(t, m.Send(ctx, WelcomeNotice, NotificationData{To: "a@example.com"}))
	last, ok := m.Last()
	require.True(t, ok)
	assert.Equal(t, WelcomeNotice, last.Type)
	assert.Equal(t, "a@example.com", last.To)

	m.SetErr(errors.New("relay down"))
	assert.Error(t, m.Send(ctx, WelcomeNotice, NotificationData{To: "b@example.com"}))
	assert.Len(t, m.Sent(), 1)
}
