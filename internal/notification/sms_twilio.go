package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/noyon-ahamed/are-you-okay/internal/config"
	"github.com/noyon-ahamed/are-you-okay/internal/logger"

	"github.com/codeGROOVE-dev/retry"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// TwilioSMS sends SMS messages through the Twilio REST API.
type TwilioSMS struct {
	cfg    config.TwilioConfig
	client *http.Client
	log    *logger.Logger
}

func NewTwilioSMS(cfg config.TwilioConfig, timeout time.Duration, log *logger.Logger) *TwilioSMS {
	return &TwilioSMS{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

func (t *TwilioSMS) Send(ctx context.Context, dest string, content Content) (string, error) {
	form := url.Values{}
	form.Set("To", dest)
	form.Set("From", t.cfg.FromNumber)
	form.Set("Body", content.Body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", twilioAPIBase, t.cfg.AccountSID)
	return t.post(ctx, endpoint, form, dest)
}

func (t *TwilioSMS) post(ctx context.Context, endpoint string, form url.Values, dest string) (string, error) {
	var sid string

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
				strings.NewReader(form.Encode()))
			if err != nil {
				return fmt.Errorf("create request: %w", err)
			}
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.SetBasicAuth(t.cfg.AccountSID, t.cfg.AuthToken)

			resp, err := t.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
				// Invalid destination or credentials will not improve on retry.
				return retry.Unrecoverable(fmt.Errorf("twilio rejected request: HTTP %d", resp.StatusCode))
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return fmt.Errorf("twilio HTTP %d", resp.StatusCode)
			}

			var body struct {
				SID string `json:"sid"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}

			sid = body.SID
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			t.log.Warn("Retrying Twilio request for %s (attempt %d): %v", dest, n, err)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("twilio send to %s failed: %w", dest, err)
	}

	return sid, nil
}
