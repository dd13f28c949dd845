package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/noyon-ahamed/are-you-okay/internal/config"
	"github.com/noyon-ahamed/are-you-okay/internal/logger"

	"github.com/codeGROOVE-dev/retry"
)

// APIEmail sends transactional email through a Brevo-compatible HTTP API.
type APIEmail struct {
	cfg    config.EmailConfig
	client *http.Client
	log    *logger.Logger
}

func NewAPIEmail(cfg config.EmailConfig, timeout time.Duration, log *logger.Logger) *APIEmail {
	return &APIEmail{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

type emailSendRequest struct {
	Sender  emailAddress   `json:"sender"`
	To      []emailAddress `json:"to"`
	Subject string         `json:"subject"`
	HTML    string         `json:"htmlContent"`
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func (a *APIEmail) Send(ctx context.Context, dest string, content Content) (string, error) {
	reqBody := emailSendRequest{
		Sender:  emailAddress{Email: a.cfg.FromAddr, Name: a.cfg.FromName},
		To:      []emailAddress{{Email: dest}},
		Subject: content.Subject,
		HTML:    content.Body,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var messageID string

	err = retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.APIURL,
				bytes.NewReader(jsonData))
			if err != nil {
				return fmt.Errorf("create request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("api-key", a.cfg.APIKey)

			resp, err := a.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
				return retry.Unrecoverable(fmt.Errorf("email API rejected request: HTTP %d", resp.StatusCode))
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return fmt.Errorf("email API HTTP %d", resp.StatusCode)
			}

			var body struct {
				MessageID string `json:"messageId"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
				messageID = body.MessageID
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			a.log.Warn("Retrying email send to %s (attempt %d): %v", dest, n, err)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("email send to %s failed: %w", dest, err)
	}

	return messageID, nil
}
