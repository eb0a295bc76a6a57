// Package calendar integrates the external calendar provider: event CRUD,
// slot finding, periodic reconciliation, and meeting reminders.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"solar_sdr_backend/platform/apperr"
	"solar_sdr_backend/platform/config"
)

const requestTimeout = 10 * time.Second

// Client is the typed calendar REST client.
type Client struct {
	baseURL    string
	token      string
	calendarID string
	http       *http.Client
}

// NewClient creates a calendar client from configuration.
func NewClient(cfg config.CalendarConfig) *Client {
	return &Client{
		baseURL:    cfg.GetCalendarURL(),
		token:      cfg.GetCalendarToken(),
		calendarID: cfg.GetCalendarID(),
		http:       &http.Client{Timeout: requestTimeout},
	}
}

// Event is the provider-side event representation.
type Event struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Attendees   []string  `json:"attendees"`
	Status      string    `json:"status"`
}

// EventPatch carries partial updates for an event.
type EventPatch struct {
	Start     *time.Time `json:"start,omitempty"`
	End       *time.Time `json:"end,omitempty"`
	Attendees []string   `json:"attendees,omitempty"`
	Status    *string    `json:"status,omitempty"`
}

// ListEvents returns provider events within the range.
func (c *Client) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	params := url.Values{}
	params.Set("timeMin", from.Format(time.RFC3339))
	params.Set("timeMax", to.Format(time.RFC3339))

	var resp struct {
		Items []Event `json:"items"`
	}
	path := fmt.Sprintf("/calendars/%s/events?%s", url.PathEscape(c.calendarID), params.Encode())
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// GetEvent fetches one event by id.
func (c *Client) GetEvent(ctx context.Context, id string) (*Event, error) {
	var event Event
	path := fmt.Sprintf("/calendars/%s/events/%s", url.PathEscape(c.calendarID), url.PathEscape(id))
	if err := c.call(ctx, http.MethodGet, path, nil, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// CreateEvent creates a provider event and returns it with the assigned id.
func (c *Client) CreateEvent(ctx context.Context, event Event) (*Event, error) {
	var created Event
	path := fmt.Sprintf("/calendars/%s/events", url.PathEscape(c.calendarID))
	if err := c.call(ctx, http.MethodPost, path, event, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateEvent patches a provider event.
func (c *Client) UpdateEvent(ctx context.Context, id string, patch EventPatch) error {
	path := fmt.Sprintf("/calendars/%s/events/%s", url.PathEscape(c.calendarID), url.PathEscape(id))
	return c.call(ctx, http.MethodPatch, path, patch, nil)
}

// DeleteEvent removes a provider event.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	path := fmt.Sprintf("/calendars/%s/events/%s", url.PathEscape(c.calendarID), url.PathEscape(id))
	return c.call(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) call(ctx context.Context, method, path string, payload, out any) error {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to encode calendar payload", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to build calendar request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "calendar unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return apperr.Wrap(apperr.KindInternal, "failed to decode calendar response", err)
			}
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return apperr.New(apperr.KindNotFound, "calendar event not found")
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return apperr.New(apperr.KindUnavailable, fmt.Sprintf("calendar returned status %d", resp.StatusCode))
	default:
		return apperr.New(apperr.KindBadRequest, fmt.Sprintf("calendar rejected request with status %d", resp.StatusCode))
	}
}
