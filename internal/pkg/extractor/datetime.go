package extractor

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// The sheet prints its publication details as "Date 04-03-2025" and
// "Time 10:30 AM" (punctuation varies between revisions).
var (
	dateRe = regexp.MustCompile(`(?i)date\s*:?\s*(\d{2}-\d{2}-\d{4})`)
	timeRe = regexp.MustCompile(`(\d{1,2}:\d{2})\s*(AM|PM)?`)
)

// The sheet's dates are day-first.
var stampLayouts = []string{
	"02-01-2006 3:04 PM",
	"02-01-2006 15:04",
	"02-01-2006",
}

// Parses the publication timestamp out of extracted sheet text.
// Returns ErrExtraction when no date pattern matches; a date without a
// time still counts, at midnight local time.
func PublishedAt(text string) (time.Time, error) {
	dm := dateRe.FindStringSubmatch(text)
	if dm == nil {
		return time.Time{}, fmt.Errorf("%w: no date pattern in sheet text", ErrExtraction)
	}

	stamp := dm[1]
	if tm := timeRe.FindStringSubmatch(text); tm != nil {
		if tm[2] != "" {
			stamp += " " + tm[1] + " " + strings.ToUpper(tm[2])
		} else {
			stamp += " " + tm[1]
		}
	}

	for _, layout := range stampLayouts {
		if ts, err := time.Parse(layout, stamp); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable stamp %q", ErrExtraction, stamp)
}
