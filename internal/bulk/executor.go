package bulk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"calbulk/internal/models"
)

// Executor applies a computed plan against an EventSource, one entry at
// a time in plan order. Dry-run is the safe default mode: callers must
// opt in to live writes.
type Executor struct {
	source EventSource
	logger *slog.Logger
}

// NewExecutor creates an Executor bound to one event source.
func NewExecutor(source EventSource, logger *slog.Logger) *Executor {
	return &Executor{source: source, logger: logger}
}

// Execute processes every plan entry and returns one result per entry.
//
// In dry-run mode no write is issued: non-empty entries report
// dry-run-preview. Empty entries always report skipped-noop, in either
// mode. In live mode a failing provider call is isolated to its entry
// (recorded as failed, processing continues); any error that is not a
// *models.ProviderError aborts the run and is returned alongside the
// results gathered so far.
func (ex *Executor) Execute(ctx context.Context, plan []models.PlanEntry, dryRun bool) ([]models.ExecutionResult, error) {
	results := make([]models.ExecutionResult, 0, len(plan))

	for _, entry := range plan {
		result := models.ExecutionResult{EventID: entry.EventID, EventTitle: entry.EventTitle}

		switch {
		case entry.IsNoop():
			result.Status = models.StatusSkippedNoop
			ex.logger.Debug("Event already holds every requested value, skipping.",
				"id", entry.EventID, "title", entry.EventTitle)

		case dryRun:
			result.Status = models.StatusDryRun
			ex.logger.Info("[DRY RUN] Would update event.",
				"id", entry.EventID, "title", entry.EventTitle, "fields", fieldNames(entry))

		default:
			if err := ex.apply(ctx, entry); err != nil {
				var provErr *models.ProviderError
				if !errors.As(err, &provErr) {
					// Not a per-call provider failure: abort the rest of the run.
					return results, err
				}
				result.Status = models.StatusFailed
				result.Detail = err.Error()
				ex.logger.Error("Failed to update event, continuing with the rest of the plan.",
					"id", entry.EventID, "title", entry.EventTitle, "error", err)
			} else {
				result.Status = models.StatusApplied
				ex.logger.Info("Updated event.", "id", entry.EventID, "title", entry.EventTitle)
			}
		}

		results = append(results, result)
	}

	return results, nil
}

func (ex *Executor) apply(ctx context.Context, entry models.PlanEntry) error {
	fields := make(map[models.Field]string, len(entry.Fields))
	for field, diff := range entry.Fields {
		fields[field] = diff.New
	}

	if _, err := ex.source.UpdateEvent(ctx, entry.EventID, fields); err != nil {
		return fmt.Errorf("failed to update event %s: %w", entry.EventID, err)
	}
	return nil
}

func fieldNames(entry models.PlanEntry) []string {
	names := make([]string, 0, len(entry.Fields))
	for field := range entry.Fields {
		names = append(names, string(field))
	}
	sort.Strings(names)
	return names
}

// Summary aggregates execution results by status.
type Summary struct {
	Applied     int
	SkippedNoop int
	Failed      int
	DryRun      int
}

// Summarize counts results per terminal status.
func Summarize(results []models.ExecutionResult) Summary {
	var s Summary
	for _, r := range results {
		switch r.Status {
		case models.StatusApplied:
			s.Applied++
		case models.StatusSkippedNoop:
			s.SkippedNoop++
		case models.StatusFailed:
			s.Failed++
		case models.StatusDryRun:
			s.DryRun++
		}
	}
	return s
}
