package models

import (
	"strings"
	"time"
)

// Event represents a standard calendar event.
// This is an internal representation, independent of any specific calendar provider.
type Event struct {
	ID          string    // Unique identifier assigned by the provider
	Title       string    // Summary or title of the event
	Description string    // Detailed description of the event
	StartTime   time.Time // Start time of the event
	EndTime     time.Time // End time of the event
	Location    string    // Location of the event
	Color       string    // Provider color tag (e.g., Google color ID "1"-"11")
	Attendees   []string  // List of attendee emails
	Source      string    // The provider the event came from (e.g., "google")
}

// Clone returns a deep copy of the event. The attendee slice is copied so
// callers can mutate the result without touching the fetched snapshot.
func (e *Event) Clone() *Event {
	c := *e
	c.Attendees = append([]string(nil), e.Attendees...)
	return &c
}

// Field names an event field a FieldChange may target.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldLocation    Field = "location"
	FieldColor       Field = "color"
	FieldAttendees   Field = "attendees"
)

// Criteria selects which events a run targets. All present predicates
// must match (logical AND); an empty Criteria matches every event.
type Criteria struct {
	TitleContains       string    // case-insensitive substring of Event.Title
	DescriptionContains string    // case-insensitive substring of Event.Description
	RangeStart          time.Time // half-open window [RangeStart, RangeEnd) on Event.StartTime
	RangeEnd            time.Time
}

// FieldChange is the set of field-level mutations requested for matched
// events. Nil pointers mean "leave the field alone"; attendee changes are
// set operations.
type FieldChange struct {
	Title             *string
	Description       *string
	DescriptionAppend *string // appended to the existing description, exclusive with Description
	Location          *string
	Color             *string
	AttendeesAdd      []string
	AttendeesRemove   []string
}

// IsZero reports whether no mutation was requested at all.
func (fc FieldChange) IsZero() bool {
	return fc.Title == nil && fc.Description == nil && fc.DescriptionAppend == nil &&
		fc.Location == nil && fc.Color == nil &&
		len(fc.AttendeesAdd) == 0 && len(fc.AttendeesRemove) == 0
}

// FieldDiff is one staged field mutation: the value the event holds now
// and the value the run wants to write.
type FieldDiff struct {
	Old string
	New string
}

// PlanEntry is the computed, pre-execution diff for one event. An entry
// with an empty Fields map is a no-op: the event matched but already
// holds every requested value.
type PlanEntry struct {
	EventID    string
	EventTitle string
	Fields     map[Field]FieldDiff
}

// IsNoop reports whether the entry stages no writes.
func (p PlanEntry) IsNoop() bool { return len(p.Fields) == 0 }

// Status is the terminal outcome of one plan entry.
type Status string

const (
	StatusApplied     Status = "applied"
	StatusSkippedNoop Status = "skipped-noop"
	StatusFailed      Status = "failed"
	StatusDryRun      Status = "dry-run-preview"
)

// ExecutionResult records the outcome of one plan entry.
type ExecutionResult struct {
	EventID    string
	EventTitle string
	Status     Status
	Detail     string // error text when Status == StatusFailed
}

// Attendee lists cross the EventSource boundary as a single string value
// so every field diff has the same shape. Emails cannot contain commas,
// so a plain comma join is unambiguous.

// JoinAttendees renders an attendee list as a field value.
func JoinAttendees(attendees []string) string {
	return strings.Join(attendees, ",")
}

// SplitAttendees parses a field value back into an attendee list.
func SplitAttendees(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, ",")
}
