package notification

import (
	"fmt"
	"regexp"
	"strings"
)

// Alert message templates. Placeholders are substituted with literal values
// before any send; a message with an unresolved placeholder is never sent.
const (
	TemplateMissedCheckIn = "Emergency Alert: Your relative '{userName}' has not checked in for the last 3 days. Please check on them. Phone: {userPhone}."
	TemplateSOS           = "EMERGENCY: {userName} has sent an SOS alert! Current location: {location}. Message: {message}"
	TemplateEarthquake    = "Earthquake Alert: Magnitude {magnitude} earthquake detected near {location}. Take safety precautions immediately!"
)

var placeholderPattern = regexp.MustCompile(`\{[a-zA-Z]+\}`)

// Render substitutes every {placeholder} in the template with its value and
// fails if any placeholder is left unresolved.
func Render(template string, vars map[string]string) (string, error) {
	rendered := template
	for key, value := range vars {
		rendered = strings.ReplaceAll(rendered, "{"+key+"}", value)
	}

	if leftover := placeholderPattern.FindString(rendered); leftover != "" {
		return "", fmt.Errorf("unresolved placeholder %s in message template", leftover)
	}

	return rendered, nil
}
