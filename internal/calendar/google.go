package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dailybrief/internal/domain"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const dateLayout = "2006-01-02"

type GoogleProvider struct {
	calendarID string
	opts       []option.ClientOption
}

// NewGoogleProvider reads events of calendarID. Extra client options are
// appended after the session's HTTP client.
func NewGoogleProvider(calendarID string, opts ...option.ClientOption) *GoogleProvider {
	calendarID = strings.TrimSpace(calendarID)
	if calendarID == "" {
		calendarID = "primary"
	}

	return &GoogleProvider{
		calendarID: calendarID,
		opts:       opts,
	}
}

func (g *GoogleProvider) UpcomingEvents(
	ctx context.Context,
	session *Session,
	now time.Time,
	limit int64,
) ([]domain.Event, error) {
	if session == nil {
		return nil, errors.New("session is nil")
	}

	opts := append([]option.ClientOption{option.WithHTTPClient(session.HTTPClient())}, g.opts...)

	service, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	events, err := service.Events.List(g.calendarID).
		TimeMin(now.UTC().Format(time.RFC3339)).
		MaxResults(limit).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	result := make([]domain.Event, 0, len(events.Items))
	for _, item := range events.Items {
		if item == nil || item.Start == nil {
			continue
		}

		result = append(result, toDomainEvent(item))
	}

	return result, nil
}

func toDomainEvent(item *gcal.Event) domain.Event {
	event := domain.Event{
		ID:    item.Id,
		Title: strings.TrimSpace(item.Summary),
	}

	if item.Start.DateTime != "" {
		event.Start = item.Start.DateTime
		event.StartTime, _ = time.Parse(time.RFC3339, item.Start.DateTime)
	} else {
		event.Start = item.Start.Date
		event.StartTime, _ = time.Parse(dateLayout, item.Start.Date)
		event.AllDay = true
	}

	return event
}
