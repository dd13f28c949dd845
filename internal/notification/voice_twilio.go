package notification

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/noyon-ahamed/are-you-okay/internal/config"
	"github.com/noyon-ahamed/are-you-okay/internal/logger"
)

// TwilioVoice places automated voice calls that read the alert message aloud.
type TwilioVoice struct {
	sms *TwilioSMS // shares HTTP transport and retry behavior
	cfg config.TwilioConfig
}

func NewTwilioVoice(cfg config.TwilioConfig, timeout time.Duration, log *logger.Logger) *TwilioVoice {
	return &TwilioVoice{
		sms: NewTwilioSMS(cfg, timeout, log),
		cfg: cfg,
	}
}

func (t *TwilioVoice) Send(ctx context.Context, dest string, content Content) (string, error) {
	twiml := fmt.Sprintf("<Response><Say voice=\"woman\">%s</Say></Response>", xmlEscape(content.Body))

	form := url.Values{}
	form.Set("To", dest)
	form.Set("From", t.cfg.FromNumber)
	form.Set("Twiml", twiml)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", twilioAPIBase, t.cfg.AccountSID)
	return t.sms.post(ctx, endpoint, form, dest)
}

var xmlReplacements = map[rune]string{
	'&':  "&amp;",
	'<':  "&lt;",
	'>':  "&gt;",
	'\'': "&apos;",
	'"':  "&quot;",
}

func xmlEscape(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if esc, ok := xmlReplacements[r]; ok {
			out = append(out, []rune(esc)...)
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
