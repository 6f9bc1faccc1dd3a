package export

import (
	"strings"
	"testing"
	"time"

	"calbulk/internal/models"
)

func TestWriteICS(t *testing.T) {
	start := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	events := []*models.Event{
		{
			ID:          "evt1",
			Title:       "Standup",
			Description: "daily",
			StartTime:   start,
			EndTime:     start.Add(15 * time.Minute),
			Location:    "Room 1",
			Color:       "9",
			Attendees:   []string{"alice@example.com"},
		},
	}

	var buf strings.Builder
	if err := WriteICS(&buf, events); err != nil {
		t.Fatalf("WriteICS returned error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"BEGIN:VEVENT",
		"UID:evt1",
		"SUMMARY:Standup",
		"DESCRIPTION:daily",
		"LOCATION:Room 1",
		"COLOR:9",
		"ATTENDEE:mailto:alice@example.com",
		"END:VEVENT",
		"END:VCALENDAR",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteICSGeneratesUIDWhenMissing(t *testing.T) {
	start := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	events := []*models.Event{
		{Title: "No ID", StartTime: start, EndTime: start.Add(time.Hour)},
	}

	var buf strings.Builder
	if err := WriteICS(&buf, events); err != nil {
		t.Fatalf("WriteICS returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "UID:") {
		t.Error("every exported event needs a UID")
	}
}
