package google

import (
	"fmt"
	"strconv"
	"strings"

	"calbulk/internal/models"
)

// colorIDs maps Google Calendar event color names to their numeric IDs.
var colorIDs = map[string]string{
	"lavender":  "1",
	"sage":      "2",
	"grape":     "3",
	"flamingo":  "4",
	"banana":    "5",
	"tangerine": "6",
	"peacock":   "7",
	"graphite":  "8",
	"blueberry": "9",
	"basil":     "10",
	"tomato":    "11",
}

// ColorID resolves a user-supplied color to a Google color ID. Both the
// color name ("blueberry") and the raw ID ("9") are accepted.
func ColorID(value string) (string, error) {
	if id, ok := colorIDs[strings.ToLower(value)]; ok {
		return id, nil
	}
	if n, err := strconv.Atoi(value); err == nil && n >= 1 && n <= 11 {
		return strconv.Itoa(n), nil
	}
	return "", &models.ValidationError{Reason: fmt.Sprintf("unknown event color %q", value)}
}
