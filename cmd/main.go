package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"calbulk/internal/bulk"
	"calbulk/internal/export"
	"calbulk/internal/google"
	"calbulk/internal/icloud"
	"calbulk/internal/models"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "calbulk",
		Usage: "Find calendar events by criteria and apply bulk field updates.",
		Commands: []*cli.Command{
			authCommand(),
			listCommand(),
			updateCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authentication flow.")

			config, err := google.GetOAuthConfigForAuthFlow(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(config, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)

			store := google.NewFileTokenStore(google.TokenFileForAccount(accountName))
			if err := store.SaveToken(token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", store.Path)
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List the events that match the given criteria.",
		Flags: append(sourceFlags(), criteriaFlags()...),
		Action: func(c *cli.Context) error {
			logger := runLogger()

			criteria, err := criteriaFromFlags(c)
			if err != nil {
				return err
			}
			if err := bulk.ValidateCriteria(criteria); err != nil {
				return err
			}

			source, err := newSource(c, logger)
			if err != nil {
				return err
			}

			matched, err := fetchAndMatch(c, source, criteria)
			if err != nil {
				return err
			}

			for _, event := range matched {
				fmt.Printf("%s  %s  %q", event.StartTime.Format(time.RFC3339), event.ID, event.Title)
				if event.Location != "" {
					fmt.Printf("  @ %s", event.Location)
				}
				fmt.Println()
			}
			fmt.Printf("%d event(s) matched.\n", len(matched))
			return nil
		},
	}
}

func updateCommand() *cli.Command {
	flags := append(sourceFlags(), criteriaFlags()...)
	flags = append(flags,
		&cli.StringFlag{Name: "set-title", Usage: "New title for matched events."},
		&cli.StringFlag{Name: "set-description", Usage: "New description (replaces existing)."},
		&cli.StringFlag{Name: "append-description", Usage: "Text appended to the existing description."},
		&cli.StringFlag{Name: "set-location", Usage: "New location."},
		&cli.StringFlag{Name: "set-color", Usage: "New event color, by name (e.g. 'blueberry') or ID (1-11)."},
		&cli.StringSliceFlag{Name: "add-attendee", Usage: "Attendee email to add. Repeatable."},
		&cli.StringSliceFlag{Name: "remove-attendee", Usage: "Attendee email to remove. Repeatable."},
		&cli.BoolFlag{Name: "apply", Usage: "Perform live writes. Without it the run is a dry-run preview."},
		&cli.StringFlag{Name: "export-ics", Usage: "Write the previewed events to this .ics file."},
	)

	return &cli.Command{
		Name:  "update",
		Usage: "Stage field changes for matching events and preview or apply them.",
		Flags: flags,
		Action: func(c *cli.Context) error {
			logger := runLogger()
			dryRun := !c.Bool("apply")
			if dryRun {
				logger.Info("Performing a dry run. No changes will be made.")
			}

			criteria, err := criteriaFromFlags(c)
			if err != nil {
				return err
			}
			change, err := changeFromFlags(c)
			if err != nil {
				return err
			}
			// Malformed input aborts here, before any remote call.
			if err := bulk.ValidateCriteria(criteria); err != nil {
				return err
			}
			if err := bulk.ValidateChange(change); err != nil {
				return err
			}

			source, err := newSource(c, logger)
			if err != nil {
				return err
			}

			matched, err := fetchAndMatch(c, source, criteria)
			if err != nil {
				return err
			}
			logger.Info("Matched events.", "count", len(matched))

			plan, err := bulk.Plan(matched, change)
			if err != nil {
				return err
			}

			if path := c.String("export-ics"); path != "" {
				if err := exportPreview(path, matched, plan); err != nil {
					return err
				}
				logger.Info("Wrote plan preview.", "file", path)
			}

			printPlan(plan)

			executor := bulk.NewExecutor(source, logger)
			results, execErr := executor.Execute(c.Context, plan, dryRun)
			printSummary(results)
			if execErr != nil {
				return execErr
			}

			if summary := bulk.Summarize(results); summary.Failed > 0 {
				return cli.Exit(fmt.Sprintf("%d event(s) failed to update", summary.Failed), 1)
			}
			return nil
		},
	}
}

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "source", Value: "google", Usage: "Calendar provider: 'google' or 'icloud'."},
		&cli.StringFlag{Name: "calendar", Value: "primary", Usage: "Calendar ID (google) or calendar name (icloud)."},
		&cli.StringFlag{Name: "account", Value: "default", Usage: "Named google account, as saved by the auth command."},
		&cli.Int64Flag{Name: "max-results", Value: 100, Usage: "Maximum number of events to fetch."},
	}
}

func criteriaFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title-contains", Usage: "Only events whose title contains this text (case-insensitive)."},
		&cli.StringFlag{Name: "description-contains", Usage: "Only events whose description contains this text (case-insensitive)."},
		&cli.StringFlag{Name: "from", Usage: "Only events starting at or after this time (YYYY-MM-DD or RFC3339)."},
		&cli.StringFlag{Name: "to", Usage: "Only events starting before this time (YYYY-MM-DD or RFC3339)."},
		&cli.StringFlag{Name: "timezone", Usage: "Timezone for date-only --from/--to values. Defaults to PRIMARY_TIMEZONE or UTC."},
	}
}

func runLogger() *slog.Logger {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	// Every run gets its own ID so log lines from overlapping cron runs
	// can be told apart.
	return setupLogger(logLevel).With("run", uuid.New().String())
}

func newSource(c *cli.Context, logger *slog.Logger) (bulk.EventSource, error) {
	switch c.String("source") {
	case "google":
		return google.NewClient(c.Context, logger,
			os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"),
			c.String("account"), c.String("calendar"), c.Int64("max-results"))
	case "icloud":
		return icloud.NewClient(logger,
			os.Getenv("ICLOUD_USERNAME"), os.Getenv("ICLOUD_APP_SPECIFIC_PASSWORD"),
			c.String("calendar"))
	default:
		return nil, &models.ValidationError{Reason: fmt.Sprintf("unknown source %q", c.String("source"))}
	}
}

// criteriaFromFlags parses the matching flags. --from/--to accept a bare
// date or a full RFC3339 timestamp; bare dates are interpreted in the
// configured timezone.
func criteriaFromFlags(c *cli.Context) (models.Criteria, error) {
	loc, err := timezone(c)
	if err != nil {
		return models.Criteria{}, err
	}

	criteria := models.Criteria{
		TitleContains:       c.String("title-contains"),
		DescriptionContains: c.String("description-contains"),
	}

	if from := c.String("from"); from != "" {
		criteria.RangeStart, err = parseTime(from, loc)
		if err != nil {
			return models.Criteria{}, err
		}
	}
	if to := c.String("to"); to != "" {
		criteria.RangeEnd, err = parseTime(to, loc)
		if err != nil {
			return models.Criteria{}, err
		}
	}

	return criteria, nil
}

func changeFromFlags(c *cli.Context) (models.FieldChange, error) {
	var change models.FieldChange

	// IsSet distinguishes "clear this field" (flag set to the empty
	// string) from "leave it alone" (flag not given).
	if c.IsSet("set-title") {
		v := c.String("set-title")
		change.Title = &v
	}
	if c.IsSet("set-description") {
		v := c.String("set-description")
		change.Description = &v
	}
	if c.IsSet("append-description") {
		v := c.String("append-description")
		change.DescriptionAppend = &v
	}
	if c.IsSet("set-location") {
		v := c.String("set-location")
		change.Location = &v
	}
	if c.IsSet("set-color") {
		v := c.String("set-color")
		if c.String("source") == "google" {
			id, err := google.ColorID(v)
			if err != nil {
				return models.FieldChange{}, err
			}
			v = id
		}
		change.Color = &v
	}
	change.AttendeesAdd = c.StringSlice("add-attendee")
	change.AttendeesRemove = c.StringSlice("remove-attendee")

	return change, nil
}

// fetchAndMatch pulls one snapshot of events from the source and runs
// the matcher over it. When no date range is given the fetch window
// defaults to the next 365 days.
func fetchAndMatch(c *cli.Context, source bulk.EventSource, criteria models.Criteria) ([]*models.Event, error) {
	start, end := criteria.RangeStart, criteria.RangeEnd
	if start.IsZero() {
		start = time.Now().UTC()
	}
	if end.IsZero() {
		end = start.AddDate(1, 0, 0)
	}

	events, err := source.ListEvents(c.Context, start, end)
	if err != nil {
		return nil, err
	}

	return bulk.Match(events, criteria)
}

func exportPreview(path string, matched []*models.Event, plan []models.PlanEntry) error {
	previews := make([]*models.Event, 0, len(plan))
	for i, entry := range plan {
		previews = append(previews, bulk.Preview(matched[i], entry))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	return export.WriteICS(f, previews)
}

func printPlan(plan []models.PlanEntry) {
	for _, entry := range plan {
		if entry.IsNoop() {
			fmt.Printf("%s %q: no changes needed\n", entry.EventID, entry.EventTitle)
			continue
		}
		fmt.Printf("%s %q:\n", entry.EventID, entry.EventTitle)
		for _, field := range []models.Field{
			models.FieldTitle, models.FieldDescription, models.FieldLocation,
			models.FieldColor, models.FieldAttendees,
		} {
			if diff, ok := entry.Fields[field]; ok {
				fmt.Printf("  %s: %q -> %q\n", field, diff.Old, diff.New)
			}
		}
	}
}

func printSummary(results []models.ExecutionResult) {
	summary := bulk.Summarize(results)
	fmt.Printf("\n%d applied, %d previewed, %d skipped (no-op), %d failed\n",
		summary.Applied, summary.DryRun, summary.SkippedNoop, summary.Failed)

	for _, result := range results {
		if result.Status == models.StatusFailed {
			fmt.Printf("FAILED %s %q: %s\n", result.EventID, result.EventTitle, result.Detail)
		}
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

func timezone(c *cli.Context) (*time.Location, error) {
	tzStr := c.String("timezone")
	if tzStr == "" {
		tzStr = os.Getenv("PRIMARY_TIMEZONE")
	}
	if tzStr == "" {
		tzStr = "UTC"
	}
	loc, err := time.LoadLocation(tzStr)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", tzStr, err)
	}
	return loc, nil
}

func parseTime(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, &models.ValidationError{
			Reason: fmt.Sprintf("cannot parse time %q, expected YYYY-MM-DD or RFC3339", value),
		}
	}
	return t, nil
}
