package notification

import (
	"context"
	"sync"

	"github.com/noyon-ahamed/are-you-okay/internal/logger"
)

// SentMessage records one delivery attempt made through a MockSender.
type SentMessage struct {
	Dest    string
	Content Content
}

// MockSender Logs instead of sending. Used in tests and for local development
// when no provider credentials are configured.
type MockSender struct {
	Name string
	Err  error // when set, every Send fails with this error

	FailFor map[string]error // per-destination failures

	mu   sync.Mutex
	sent []SentMessage
	log  *logger.Logger
}

func NewMockSender(name string, log *logger.Logger) *MockSender {
	return &MockSender{Name: name, log: log}
}

func (m *MockSender) Send(ctx context.Context, dest string, content Content) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	if err, ok := m.FailFor[dest]; ok {
		return "", err
	}

	m.mu.Lock()
	m.sent = append(m.sent, SentMessage{Dest: dest, Content: content})
	m.mu.Unlock()

	if m.log != nil {
		m.log.Info("MOCK %s -> %s: %s", m.Name, dest, content.Body)
	}

	return "mock-" + m.Name, nil
}

// Sent returns a copy of every successful delivery so far.
func (m *MockSender) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}
