package bulk

import (
	"fmt"
	"strings"

	"calbulk/internal/models"
)

// Plan computes the per-event diff a FieldChange would produce, without
// touching remote state. Every input event gets a plan entry; fields
// whose target value equals the current value are omitted, so an entry
// may end up with an empty field map (a no-op the Executor reports but
// never writes).
func Plan(events []*models.Event, change models.FieldChange) ([]models.PlanEntry, error) {
	if err := ValidateChange(change); err != nil {
		return nil, err
	}

	plan := make([]models.PlanEntry, 0, len(events))
	for _, event := range events {
		plan = append(plan, planEntry(event, change))
	}
	return plan, nil
}

// ValidateChange rejects malformed field changes. Callers run it before
// touching the provider so a bad request never costs a remote call.
func ValidateChange(change models.FieldChange) error {
	if change.IsZero() {
		return &models.ValidationError{Reason: "no field changes requested"}
	}
	if change.Description != nil && change.DescriptionAppend != nil {
		return &models.ValidationError{Reason: "cannot both replace and append to the description"}
	}
	for _, add := range change.AttendeesAdd {
		for _, remove := range change.AttendeesRemove {
			if strings.EqualFold(add, remove) {
				return &models.ValidationError{
					Reason: fmt.Sprintf("attendee %q is both added and removed", add),
				}
			}
		}
	}
	return nil
}

func planEntry(event *models.Event, change models.FieldChange) models.PlanEntry {
	entry := models.PlanEntry{
		EventID:    event.ID,
		EventTitle: event.Title,
		Fields:     map[models.Field]models.FieldDiff{},
	}

	stage := func(field models.Field, oldVal, newVal string) {
		if oldVal != newVal {
			entry.Fields[field] = models.FieldDiff{Old: oldVal, New: newVal}
		}
	}

	if change.Title != nil {
		stage(models.FieldTitle, event.Title, *change.Title)
	}
	if change.Description != nil {
		stage(models.FieldDescription, event.Description, *change.Description)
	}
	if change.DescriptionAppend != nil {
		appended := strings.TrimSpace(event.Description + "\n" + *change.DescriptionAppend)
		stage(models.FieldDescription, event.Description, appended)
	}
	if change.Location != nil {
		stage(models.FieldLocation, event.Location, *change.Location)
	}
	if change.Color != nil {
		stage(models.FieldColor, event.Color, *change.Color)
	}
	if len(change.AttendeesAdd) > 0 || len(change.AttendeesRemove) > 0 {
		updated := applyAttendeeChange(event.Attendees, change.AttendeesAdd, change.AttendeesRemove)
		stage(models.FieldAttendees, models.JoinAttendees(event.Attendees), models.JoinAttendees(updated))
	}

	return entry
}

// applyAttendeeChange treats the attendee list as a set: removals are
// subtracted, additions are unioned in (adding an already-present address
// is a no-op). Existing ordering is preserved and new addresses are
// appended in the order given.
func applyAttendeeChange(current, add, remove []string) []string {
	var updated []string
	for _, attendee := range current {
		if !containsFold(remove, attendee) {
			updated = append(updated, attendee)
		}
	}
	for _, attendee := range add {
		if !containsFold(updated, attendee) {
			updated = append(updated, attendee)
		}
	}
	return updated
}

func containsFold(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}

// Preview returns a copy of the event with the plan entry's new values
// applied in memory. It feeds the ICS export and never touches the
// provider.
func Preview(event *models.Event, entry models.PlanEntry) *models.Event {
	preview := event.Clone()
	for field, diff := range entry.Fields {
		switch field {
		case models.FieldTitle:
			preview.Title = diff.New
		case models.FieldDescription:
			preview.Description = diff.New
		case models.FieldLocation:
			preview.Location = diff.New
		case models.FieldColor:
			preview.Color = diff.New
		case models.FieldAttendees:
			preview.Attendees = models.SplitAttendees(diff.New)
		}
	}
	return preview
}
