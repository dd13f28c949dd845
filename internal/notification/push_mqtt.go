package notification

import (
	"context"
	"fmt"

	"github.com/noyon-ahamed/are-you-okay/internal/mqtt"
)

// MQTTPush delivers push notifications by publishing to a per-device topic.
// The destination is the device's push token; companion apps subscribe to
// <prefix>/<token>/alerts.
type MQTTPush struct {
	client      *mqtt.Client
	topicPrefix string
}

func NewMQTTPush(client *mqtt.Client, topicPrefix string) *MQTTPush {
	return &MQTTPush{
		client:      client,
		topicPrefix: topicPrefix,
	}
}

type pushPayload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

func (p *MQTTPush) Send(_ context.Context, dest string, content Content) (string, error) {
	if dest == "" {
		return "", fmt.Errorf("empty push token")
	}

	topic := fmt.Sprintf("%s/%s/alerts", p.topicPrefix, dest)
	payload := pushPayload{
		Title: content.Subject,
		Body:  content.Body,
		Data:  content.Data,
	}

	if err := p.client.PublishJSON(topic, payload); err != nil {
		return "", fmt.Errorf("push to %s failed: %w", dest, err)
	}

	return "", nil
}
