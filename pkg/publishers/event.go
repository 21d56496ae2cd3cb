package publishers

import (
	"fmt"
	"strings"
	"time"
)

// DefaultMessageTemplate formats the human-readable notification text.
const DefaultMessageTemplate = "New post detected! Check it out: %s"

// Event represents the payload published downstream.
type Event struct {
	Username   string    `json:"username"`
	PostURL    string    `json:"post_url"`
	Message    string    `json:"message"`
	Strategy   string    `json:"strategy"`
	DetectedAt time.Time `json:"detected_at"`
}

// NewEvent constructs an Event for a newly detected post.
func NewEvent(username, strategy, postURL, template string) Event {
	return Event{
		Username:   username,
		PostURL:    postURL,
		Message:    FormatMessage(template, postURL),
		Strategy:   strategy,
		DetectedAt: time.Now().UTC(),
	}
}

// FormatMessage renders template with the post URL. Templates without a %s verb get the URL appended.
func FormatMessage(template, postURL string) string {
	template = strings.TrimSpace(template)
	if template == "" {
		template = DefaultMessageTemplate
	}
	if strings.Contains(template, "%s") {
		return fmt.Sprintf(template, postURL)
	}
	return template + " " + postURL
}
