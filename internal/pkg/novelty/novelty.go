package novelty

import (
	"time"

	"ratewatch/internal/pkg/models"
)

// The outcome of comparing a fetched sheet against the persisted record.
type Classification int

const (
	Duplicate Classification = iota
	New
)

func (c Classification) String() string {
	if c == New {
		return "new"
	}
	return "duplicate"
}

// Decides whether a fetched sheet should be persisted.
//
// No prior record always yields New. Otherwise the sheet is New when
// its content hash differs from the stored one, or when its extracted
// publication timestamp is strictly later than the stored one — the
// second clause guards against the bank regenerating the PDF with
// byte-level differences but unchanged content, and the first against
// staleness when timestamps are missing. When extraction failed for
// the new sheet (hasPublishedAt false) only hashes are compared.
func Classify(sig string, publishedAt time.Time, hasPublishedAt bool, prior *models.DownloadRecord) Classification {
	if prior == nil {
		return New
	}
	if sig != prior.ContentHash {
		return New
	}
	if hasPublishedAt && prior.HasPublished && publishedAt.After(prior.PublishedAt) {
		return New
	}
	return Duplicate
}
