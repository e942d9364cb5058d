package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type webhookCalendar struct {
	url    string
	name   string
	client *http.Client
}

// NewWebhookCalendar creates a CalendarSyncer that posts each event as
// JSON to url, shaped like a Google Calendar event resource.
func NewWebhookCalendar(url, calendarName string) CalendarSyncer {
	return &webhookCalendar{
		url:    url,
		name:   calendarName,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookEventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type webhookEvent struct {
	Calendar    string           `json:"calendar,omitempty"`
	Summary     string           `json:"summary"`
	Description string           `json:"description"`
	Start       webhookEventTime `json:"start"`
	End         webhookEventTime `json:"end"`
}

func newWebhookEvent(event CalendarEvent, calendarName string) webhookEvent {
	zone := event.Start.Location().String()
	return webhookEvent{
		Calendar:    calendarName,
		Summary:     event.Summary,
		Description: event.Description,
		Start:       webhookEventTime{DateTime: event.Start.Format(time.RFC3339), TimeZone: zone},
		End:         webhookEventTime{DateTime: event.End().Format(time.RFC3339), TimeZone: zone},
	}
}

func (c *webhookCalendar) Sync(ctx context.Context, event CalendarEvent) error {
	body, err := json.Marshal(newWebhookEvent(event, c.name))
	if err != nil {
		return fmt.Errorf("marshalling calendar event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building calendar request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting calendar event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("calendar webhook returned status %d", resp.StatusCode)
	}
	return nil
}
