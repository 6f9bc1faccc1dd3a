package icloud

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"calbulk/internal/models"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
)

const iCloudCalDAVEndpoint = "https://caldav.icloud.com/"

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "calbulk/1.0")
	return t.Transport.RoundTrip(req)
}

// CalDAVClient is a client for one iCloud calendar. It implements the
// bulk.EventSource interface: event IDs are the calendar object paths on
// the CalDAV server.
type CalDAVClient struct {
	caldavClient *caldav.Client
	logger       *slog.Logger
	calendarPath string
	username     string
}

// NewClient creates and initializes a new CalDAVClient for iCloud.
func NewClient(logger *slog.Logger, username, password, calendarName string) (*CalDAVClient, error) {
	transport := &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}
	httpClient := &http.Client{Transport: transport}

	caldavClient, err := caldav.NewClient(httpClient, iCloudCalDAVEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	c := &CalDAVClient{
		caldavClient: caldavClient,
		logger:       logger,
		username:     username,
	}

	logger.Info("Finding iCloud calendar", "calendarName", calendarName)
	calendarPath, err := c.findCalendar(context.Background(), calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Successfully found iCloud calendar", "path", calendarPath)

	return c, nil
}

// ListEvents queries the calendar for VEVENTs starting within [start, end).
func (c *CalDAVClient) ListEvents(ctx context.Context, start, end time.Time) ([]*models.Event, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: start,
				End:   end,
			}},
		},
	}

	objects, err := c.caldavClient.QueryCalendar(ctx, c.calendarPath, query)
	if err != nil {
		return nil, &models.ProviderError{Op: "list", Err: err}
	}

	var events []*models.Event
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		for _, ve := range obj.Data.Events() {
			event, err := c.fromICal(obj.Path, ve)
			if err != nil {
				c.logger.Warn("Skipping undecodable event", "path", obj.Path, "error", err)
				continue
			}
			// The query's time-range filter is server-side; re-check the
			// half-open window so providers that over-return stay consistent.
			if event.StartTime.Before(start) || !event.StartTime.Before(end) {
				continue
			}
			events = append(events, event)
		}
	}

	c.logger.Info("Fetched events from iCloud calendar", "count", len(events))
	return events, nil
}

// UpdateEvent rewrites the named fields of the VEVENT stored at the
// object path id and PUTs the object back.
func (c *CalDAVClient) UpdateEvent(ctx context.Context, id string, fields map[models.Field]string) (*models.Event, error) {
	obj, err := c.caldavClient.GetCalendarObject(ctx, id)
	if err != nil {
		return nil, &models.ProviderError{Op: "update", Err: err}
	}
	var events []ical.Event
	if obj.Data != nil {
		events = obj.Data.Events()
	}
	if len(events) == 0 {
		return nil, &models.ProviderError{Op: "update", Err: fmt.Errorf("no VEVENT at %s", id)}
	}

	// A stored object may carry recurrence-override VEVENTs alongside the
	// master; rewrite them all so overrides keep the new field values too.
	for i := range events {
		if err := rewriteEvent(events[i], fields); err != nil {
			return nil, err
		}
	}

	if _, err := c.caldavClient.PutCalendarObject(ctx, id, obj.Data); err != nil {
		return nil, &models.ProviderError{Op: "update", Err: err}
	}

	c.logger.Debug("Updated iCloud event", "path", id)
	return c.fromICal(id, events[0])
}

// rewriteEvent sets the named fields on a VEVENT in place. Attendees are
// replaced wholesale since the planner already resolved the set operations.
func rewriteEvent(ve ical.Event, fields map[models.Field]string) error {
	for field, value := range fields {
		switch field {
		case models.FieldTitle:
			ve.Props.SetText(ical.PropSummary, value)
		case models.FieldDescription:
			ve.Props.SetText(ical.PropDescription, value)
		case models.FieldLocation:
			ve.Props.SetText(ical.PropLocation, value)
		case models.FieldColor:
			ve.Props.SetText(ical.PropColor, value)
		case models.FieldAttendees:
			delete(ve.Props, ical.PropAttendee)
			for _, email := range models.SplitAttendees(value) {
				p := ical.NewProp(ical.PropAttendee)
				p.SetText(fmt.Sprintf("mailto:%s", email))
				ve.Props.Add(p)
			}
		default:
			return &models.ValidationError{Reason: fmt.Sprintf("unknown field %q", field)}
		}
	}
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	return nil
}

// fromICal converts a VEVENT into the internal Event model. The object
// path doubles as the event identifier for later updates.
func (c *CalDAVClient) fromICal(path string, ve ical.Event) (*models.Event, error) {
	startTime, err := ve.DateTimeStart(time.UTC)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event start: %w", err)
	}
	if startTime.IsZero() {
		return nil, fmt.Errorf("event at %s has no start time", path)
	}
	endTime, err := ve.DateTimeEnd(time.UTC)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event end: %w", err)
	}

	title, _ := ve.Props.Text(ical.PropSummary)
	description, _ := ve.Props.Text(ical.PropDescription)
	location, _ := ve.Props.Text(ical.PropLocation)
	color, _ := ve.Props.Text(ical.PropColor)

	var attendees []string
	for _, p := range ve.Props.Values(ical.PropAttendee) {
		attendees = append(attendees, strings.TrimPrefix(p.Value, "mailto:"))
	}

	return &models.Event{
		ID:          path,
		Title:       title,
		Description: description,
		StartTime:   startTime,
		EndTime:     endTime,
		Location:    location,
		Color:       color,
		Attendees:   attendees,
		Source:      "icloud",
	}, nil
}

// findCalendar discovers the user's calendars and returns the path of
// the one with the matching name.
func (c *CalDAVClient) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		// iCloud rejects discovery outright when the app-specific
		// password is wrong, which is fatal for the whole run.
		return "", &models.AuthError{Err: fmt.Errorf("failed to find principal path: %w", err)}
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", &models.ProviderError{Op: "discover", Err: err}
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", &models.ProviderError{Op: "discover", Err: err}
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
