package notification

import (
	"context"
	"sync"
)

// SentNotice is a message captured by MockNotifier
type SentNotice struct {
	Type NoticeType
	NotificationData
}

// MockNotifier records notices instead of sending them. Err, when set, is
// returned from every Send and nothing is recorded.
type MockNotifier struct {
	mu   sync.Mutex
	sent []SentNotice
	Err  error
}

func (m *MockNotifier) Send(ctx context.Context, noticeType NoticeType, notification NotificationData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, SentNotice{Type: noticeType, NotificationData: notification})
	return nil
}

// Sent returns a copy of the recorded notices
func (m *MockNotifier) Sent() []SentNotice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentNotice(nil), m.sent...)
}

// Last returns the most recent notice, if any
func (m *MockNotifier) Last() (SentNotice, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return SentNotice{}, false
	}
	return m.sent[len(m.sent)-1], true
}

// SetErr changes the error returned by Send
func (m *MockNotifier) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}
