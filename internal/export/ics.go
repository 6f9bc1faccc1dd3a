// Package export renders previewed events as an iCalendar file so a
// dry run can be reviewed in any calendar app before a live run.
package export

import (
	"fmt"
	"io"
	"time"

	"calbulk/internal/models"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

// WriteICS encodes the events as a single VCALENDAR stream.
func WriteICS(w io.Writer, events []*models.Event) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//calbulk//EN")

	for _, event := range events {
		cal.Children = append(cal.Children, toICal(event))
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode events to iCal format: %w", err)
	}
	return nil
}

// toICal converts an internal Event model to an ical.Component (VEVENT).
func toICal(event *models.Event) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, eventUID(event))
	ve.Props.SetText(ical.PropSummary, event.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, event.StartTime)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, event.EndTime)

	if event.Description != "" {
		ve.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Location != "" {
		ve.Props.SetText(ical.PropLocation, event.Location)
	}
	if event.Color != "" {
		ve.Props.SetText(ical.PropColor, event.Color)
	}
	for _, attendee := range event.Attendees {
		p := ical.NewProp(ical.PropAttendee)
		p.SetText(fmt.Sprintf("mailto:%s", attendee))
		ve.Props.Add(p)
	}
	return ve
}

// eventUID prefers the provider identifier so repeated exports of the
// same plan produce the same UIDs.
func eventUID(event *models.Event) string {
	if event.ID != "" {
		return event.ID
	}
	return uuid.New().String()
}
