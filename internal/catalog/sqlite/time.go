package sqlite

import (
	"time"

	"github.com/dogebooch/extractvault/internal/catalog"
)

// formatTime renders a UTC timestamp for storage. The layout is fixed-width
// so stored strings sort in time order, which FindGroupingCandidate's window
// comparison depends on.
func formatTime(t time.Time) string {
	return t.UTC().Format(catalog.TimeLayout)
}

// parseTime parses a stored timestamp, tolerating the sqlite strftime
// default format and a few RFC3339 variants alongside our own layout.
func parseTime(s string) time.Time {
	layouts := []string{
		catalog.TimeLayout,
		"2006-01-02T15:04:05.999999999Z",
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		time.RFC3339Nano,
		time.RFC3339,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
