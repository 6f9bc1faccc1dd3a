package bulk

import (
	"context"
	"time"

	"calbulk/internal/models"
)

// EventSource abstracts a remote calendar provider. The pipeline only
// needs to list events in a range and patch single events by ID; both
// the Google Calendar and the iCloud CalDAV clients implement it, and
// tests substitute an in-memory double.
type EventSource interface {
	// ListEvents returns the events starting within [start, end).
	// It fails with *models.AuthError when credentials are invalid or
	// expired and with *models.ProviderError for any other remote failure.
	ListEvents(ctx context.Context, start, end time.Time) ([]*models.Event, error)

	// UpdateEvent patches the named fields of one event and returns the
	// updated copy. Remote failures surface as *models.ProviderError.
	UpdateEvent(ctx context.Context, id string, fields map[models.Field]string) (*models.Event, error)
}
