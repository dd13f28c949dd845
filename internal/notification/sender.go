// Package notification contains the outbound channel adapters. Each adapter
// exposes one Send call; business and transport failures both come back as a
// plain error, which the dispatcher records as a failed channel attempt.
package notification

import "context"

// Content is a rendered, ready-to-send message. Subject is used by email and
// push; Data carries structured extras for push payloads.
type Content struct {
	Subject string
	Body    string
	Data    map[string]string
}

// Sender delivers one message to one destination (phone number, email
// address or push token, depending on the channel). It returns the provider's
// message id when the provider supplies one.
type Sender interface {
	Send(ctx context.Context, dest string, content Content) (providerID string, err error)
}

// Channels groups one sender per delivery channel.
type Channels struct {
	SMS   Sender
	Call  Sender
	Email Sender
	Push  Sender
}
