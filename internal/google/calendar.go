package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"calbulk/internal/models"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Client provides access to one Google Calendar. It implements the
// bulk.EventSource interface consumed by the update pipeline.
type Client struct {
	service    *calendar.Service
	calendarID string
	maxResults int64
	logger     *slog.Logger
}

// NewClient creates a new Google Calendar client bound to calendarID.
// It handles loading credentials and setting up an authenticated HTTP client.
// It supports multiple accounts by looking for token files like token-personal.json;
// the accountName is used to find the correct token file.
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, accountName, calendarID string, maxResults int64) (*Client, error) {
	config, err := getOAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	store := NewFileTokenStore(TokenFileForAccount(accountName))
	token, err := store.LoadToken()
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w", accountName, err)
	}
	if token == nil {
		// Point at the accounts that do have a saved token.
		if accounts, lErr := GetTokenAccounts(); lErr == nil && len(accounts) > 0 {
			return nil, &models.AuthError{
				Err: fmt.Errorf("no token found for account %s (available accounts: %s), run the 'auth' command first",
					accountName, strings.Join(accounts, ", ")),
			}
		}
		return nil, &models.AuthError{
			Err: fmt.Errorf("no token found for account %s, run the 'auth' command first", accountName),
		}
	}

	// Refreshed tokens are written back so the next run does not have to
	// go through the interactive flow again.
	source := &autoSaveTokenSource{
		source:    oauth2.ReuseTokenSource(token, config.TokenSource(ctx, token)),
		store:     store,
		lastToken: token,
	}

	service, err := calendar.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	if maxResults <= 0 {
		maxResults = 100
	}

	return &Client{
		service:    service,
		calendarID: calendarID,
		maxResults: maxResults,
		logger:     logger,
	}, nil
}

// ListEvents fetches the events starting within [start, end) from the
// bound calendar. Recurring events are expanded into single instances.
func (c *Client) ListEvents(ctx context.Context, start, end time.Time) ([]*models.Event, error) {
	c.logger.Debug("Fetching events", "calendarID", c.calendarID, "from", start, "to", end)

	events, err := c.service.Events.List(c.calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		MaxResults(c.maxResults).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapErr("list", err)
	}

	c.logger.Info("Fetched events from Google Calendar", "count", len(events.Items), "calendarID", c.calendarID)
	return c.toInternalEvents(events.Items), nil
}

// UpdateEvent patches only the named fields of one event and returns the
// updated copy. SendUpdates is "none" so attendees are not notified on
// every bulk edit.
func (c *Client) UpdateEvent(ctx context.Context, id string, fields map[models.Field]string) (*models.Event, error) {
	patch, err := toPatch(fields)
	if err != nil {
		return nil, err
	}

	updated, err := c.service.Events.Patch(c.calendarID, id, patch).
		SendUpdates("none").
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapErr("update", err)
	}

	c.logger.Debug("Patched event", "id", id, "calendarID", c.calendarID)
	return c.toInternalEvent(updated), nil
}

// toPatch builds the sparse calendar.Event body for a field map. Fields
// cleared to the empty string must be force-sent or the API drops them
// from the patch.
func toPatch(fields map[models.Field]string) (*calendar.Event, error) {
	patch := &calendar.Event{}

	for field, value := range fields {
		switch field {
		case models.FieldTitle:
			patch.Summary = value
			if value == "" {
				patch.ForceSendFields = append(patch.ForceSendFields, "Summary")
			}
		case models.FieldDescription:
			patch.Description = value
			if value == "" {
				patch.ForceSendFields = append(patch.ForceSendFields, "Description")
			}
		case models.FieldLocation:
			patch.Location = value
			if value == "" {
				patch.ForceSendFields = append(patch.ForceSendFields, "Location")
			}
		case models.FieldColor:
			patch.ColorId = value
		case models.FieldAttendees:
			for _, email := range models.SplitAttendees(value) {
				patch.Attendees = append(patch.Attendees, &calendar.EventAttendee{Email: email})
			}
			if len(patch.Attendees) == 0 {
				patch.ForceSendFields = append(patch.ForceSendFields, "Attendees")
			}
		default:
			return nil, &models.ValidationError{Reason: fmt.Sprintf("unknown field %q", field)}
		}
	}

	return patch, nil
}

// toInternalEvents converts Google Calendar events to the internal Event model.
func (c *Client) toInternalEvents(googleEvents []*calendar.Event) []*models.Event {
	var internalEvents []*models.Event
	for _, item := range googleEvents {
		// Skip all-day events without a specific start time.
		if item.Start == nil || item.Start.DateTime == "" {
			continue
		}
		internalEvents = append(internalEvents, c.toInternalEvent(item))
	}
	return internalEvents
}

func (c *Client) toInternalEvent(item *calendar.Event) *models.Event {
	var startTime, endTime time.Time
	if item.Start != nil {
		startTime, _ = time.Parse(time.RFC3339, item.Start.DateTime)
	}
	if item.End != nil {
		endTime, _ = time.Parse(time.RFC3339, item.End.DateTime)
	}

	var attendees []string
	for _, a := range item.Attendees {
		attendees = append(attendees, a.Email)
	}

	return &models.Event{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
		StartTime:   startTime,
		EndTime:     endTime,
		Location:    item.Location,
		Color:       item.ColorId,
		Attendees:   attendees,
		Source:      fmt.Sprintf("google-%s", c.calendarID),
	}
}

// wrapErr classifies a Google API failure: expired or rejected
// credentials become an AuthError that aborts the run, anything else is
// a per-call ProviderError the Executor can isolate.
func wrapErr(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
			return &models.AuthError{Err: err}
		}
	}
	return &models.ProviderError{Op: op, Err: err}
}
