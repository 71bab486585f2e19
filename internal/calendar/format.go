package calendar

import (
	"fmt"
	"strings"

	"dailybrief/internal/domain"
)

const (
	NoEventsText = "No upcoming events found."

	untitledEvent = "No Title"
)

// FormatEvents renders events as the plain text handed to the summarizer.
func FormatEvents(events []domain.Event) string {
	if len(events) == 0 {
		return NoEventsText
	}

	var b strings.Builder
	b.WriteString("Upcoming events:\n")

	for _, event := range events {
		title := strings.TrimSpace(event.Title)
		if title == "" {
			title = untitledEvent
		}

		fmt.Fprintf(&b, "- %s (%s)\n", title, event.Start)
	}

	return b.String()
}
