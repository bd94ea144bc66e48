package extractor

import (
	"regexp"
	"strings"

	"ratewatch/internal/pkg/models"
)

// Matches one table row, e.g. "USD/INR 83.57 84.42 83.50 ...".
// Spacing in extracted PDF text is unreliable; there may be no space
// between the currency code and the first rate, hence the \s*.
var rateRowRe = regexp.MustCompile(`([A-Z]{3})/INR\s*((?:\d+(?:\.\d+)?\s?)+)`)

// Parses the reference-rate rows out of extracted sheet text.
// Returns nil when the text carries no recognizable rows; that is not
// an error, because some revisions of the sheet extract as garbage.
func Rates(text string) []models.RateQuote {
	var quotes []models.RateQuote
	for _, m := range rateRowRe.FindAllStringSubmatch(text, -1) {
		quotes = append(quotes, models.RateQuote{
			Currency: m[1],
			Rates:    strings.Fields(m[2]),
		})
	}
	return quotes
}
