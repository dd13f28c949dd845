package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	msg, err := Render(TemplateSOS, map[string]string{
		"userName": "Noyon",
		"location": "23.8103,90.4125",
		"message":  "Help me",
	})
	require.NoError(t, err)
	assert.Equal(t, "EMERGENCY: Noyon has sent an SOS alert! Current location: 23.8103,90.4125. Message: Help me", msg)
	assert.NotContains(t, msg, "{")
}

func TestRenderUnresolvedPlaceholder(t *testing.T) {
	_, err := Render(TemplateSOS, map[string]string{"userName": "Noyon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unresolved placeholder")
}

func TestRenderAllTemplatesComplete(t *testing.T) {
	vars := map[string]string{
		"userName":  "Noyon",
		"userPhone": "+8801712345678",
		"location":  "Dhaka",
		"magnitude": "5.2",
		"message":   "ok",
	}

	for _, tmpl := range []string{TemplateMissedCheckIn, TemplateSOS, TemplateEarthquake} {
		msg, err := Render(tmpl, vars)
		require.NoError(t, err)
		assert.NotRegexp(t, `\{[a-zA-Z]+\}`, msg)
	}
}
