package bulk

import (
	"strings"

	"calbulk/internal/models"
)

// Match filters events down to those satisfying every predicate present
// in the criteria. The filter is stable: the result preserves input
// ordering. Empty criteria match every event.
func Match(events []*models.Event, criteria models.Criteria) ([]*models.Event, error) {
	if err := ValidateCriteria(criteria); err != nil {
		return nil, err
	}

	var matched []*models.Event
	for _, event := range events {
		if matches(event, criteria) {
			matched = append(matched, event)
		}
	}
	return matched, nil
}

// ValidateCriteria rejects malformed criteria. Callers run it before
// touching the provider so a bad request never costs a remote call.
func ValidateCriteria(c models.Criteria) error {
	if !c.RangeStart.IsZero() && !c.RangeEnd.IsZero() && !c.RangeStart.Before(c.RangeEnd) {
		return &models.ValidationError{Reason: "date range start must be before its end"}
	}
	return nil
}

func matches(event *models.Event, c models.Criteria) bool {
	if c.TitleContains != "" &&
		!strings.Contains(strings.ToLower(event.Title), strings.ToLower(c.TitleContains)) {
		return false
	}

	// An event without a description cannot satisfy a description criterion.
	if c.DescriptionContains != "" &&
		!strings.Contains(strings.ToLower(event.Description), strings.ToLower(c.DescriptionContains)) {
		return false
	}

	// Half-open window: an event starting exactly at RangeEnd is excluded.
	if !c.RangeStart.IsZero() && event.StartTime.Before(c.RangeStart) {
		return false
	}
	if !c.RangeEnd.IsZero() && !event.StartTime.Before(c.RangeEnd) {
		return false
	}

	return true
}
