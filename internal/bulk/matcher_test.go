package bulk

import (
	"errors"
	"testing"
	"time"

	"calbulk/internal/models"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("failed to parse time %q: %v", value, err)
	}
	return parsed
}

func TestMatch(t *testing.T) {
	events := []*models.Event{
		{ID: "a", Title: "Standup", Description: "daily sync", StartTime: mustTime(t, "2024-01-02T09:00:00Z")},
		{ID: "b", Title: "Team Meeting", Description: "weekly planning", StartTime: mustTime(t, "2024-01-03T14:00:00Z")},
		{ID: "c", Title: "1:1 with Sam", StartTime: mustTime(t, "2024-01-04T10:00:00Z")},
	}

	tests := []struct {
		name     string
		criteria models.Criteria
		wantIDs  []string
	}{
		{
			name:     "empty criteria matches everything",
			criteria: models.Criteria{},
			wantIDs:  []string{"a", "b", "c"},
		},
		{
			name:     "title substring is case-insensitive",
			criteria: models.Criteria{TitleContains: "stand"},
			wantIDs:  []string{"a"},
		},
		{
			name:     "title substring with no hits",
			criteria: models.Criteria{TitleContains: "retro"},
			wantIDs:  nil,
		},
		{
			name:     "description substring is case-insensitive",
			criteria: models.Criteria{DescriptionContains: "PLANNING"},
			wantIDs:  []string{"b"},
		},
		{
			name:     "missing description fails a description criterion",
			criteria: models.Criteria{DescriptionContains: "sam"},
			wantIDs:  nil,
		},
		{
			name: "date range is half-open",
			criteria: models.Criteria{
				RangeStart: mustTime(t, "2024-01-02T09:00:00Z"),
				RangeEnd:   mustTime(t, "2024-01-04T10:00:00Z"), // event c starts exactly here
			},
			wantIDs: []string{"a", "b"},
		},
		{
			name: "open-ended range start",
			criteria: models.Criteria{
				RangeStart: mustTime(t, "2024-01-03T00:00:00Z"),
			},
			wantIDs: []string{"b", "c"},
		},
		{
			name: "all predicates combine with AND",
			criteria: models.Criteria{
				TitleContains:       "meeting",
				DescriptionContains: "weekly",
				RangeStart:          mustTime(t, "2024-01-01T00:00:00Z"),
				RangeEnd:            mustTime(t, "2024-02-01T00:00:00Z"),
			},
			wantIDs: []string{"b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched, err := Match(events, tt.criteria)
			if err != nil {
				t.Fatalf("Match returned error: %v", err)
			}

			var gotIDs []string
			for _, event := range matched {
				gotIDs = append(gotIDs, event.ID)
			}

			if len(gotIDs) != len(tt.wantIDs) {
				t.Fatalf("matched %v, want %v", gotIDs, tt.wantIDs)
			}
			for i := range gotIDs {
				if gotIDs[i] != tt.wantIDs[i] {
					t.Errorf("matched %v, want %v (ordering must be stable)", gotIDs, tt.wantIDs)
					break
				}
			}
		})
	}
}

func TestMatchRejectsInvertedRange(t *testing.T) {
	criteria := models.Criteria{
		RangeStart: mustTime(t, "2024-02-01T00:00:00Z"),
		RangeEnd:   mustTime(t, "2024-01-01T00:00:00Z"),
	}

	_, err := Match(nil, criteria)

	var valErr *models.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
