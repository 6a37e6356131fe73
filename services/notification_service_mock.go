package services

import (
	"context"
	"sync"
)

// MockNotifier records notifications instead of sending them
type MockNotifier struct {
	mu   sync.Mutex
	sent []OrderNotification
	// Err, when set, is returned from every Notify call
	Err error
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Name() string { return "mock" }

func (m *MockNotifier) Notify(ctx context.Context, n OrderNotification) (*NotificationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, n)
	if m.Err != nil {
		return nil, m.Err
	}
	return &NotificationResult{Success: true, EmailSent: n.To != "" && n.To != n.CustomerPhone, SMSSent: n.CustomerPhone != ""}, nil
}

// Sent returns a copy of every notification received so far
func (m *MockNotifier) Sent() []OrderNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OrderNotification, len(m.sent))
	copy(out, m.sent)
	return out
}
