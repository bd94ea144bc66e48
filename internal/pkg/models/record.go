package models

import "time"

// The singleton persisted state describing the last saved rate sheet.
// Exactly one record exists between runs; it is overwritten whenever a
// fetched sheet is classified as new.
type DownloadRecord struct {
	ContentHash  string    `json:"content_hash"`
	PublishedAt  time.Time `json:"published_at"`
	HasPublished bool      `json:"has_published"`
	SavedFile    string    `json:"saved_file"`
	UpdatedAt    time.Time `json:"updated_at"`
}
