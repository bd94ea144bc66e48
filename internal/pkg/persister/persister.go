package persister

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"ratewatch/internal/pkg/logger"
	"ratewatch/internal/pkg/models"
	"ratewatch/internal/pkg/store"
)

// Sortable stamp embedded in saved filenames.
const stampLayout = "2006-01-02_1504"

// Writes new sheets into the downloads tree and keeps the record store
// in step with whatever was written last.
type Persister struct {
	downloadDir string
	records     *store.Store
}

// Creates a new Persister writing under downloadDir.
func New(downloadDir string, records *store.Store) *Persister {
	return &Persister{
		downloadDir: downloadDir,
		records:     records,
	}
}

// Saves the sheet under a year/month subdirectory with the publication
// stamp in the filename, then updates the singleton record. The file
// write happens first: if the process dies between the two steps the
// record still points at the previous, intact file.
func (p *Persister) SaveNew(artifact *models.FetchedArtifact, sig string, publishedAt time.Time, hasPublishedAt bool) (*models.DownloadRecord, error) {
	stampSource := publishedAt
	if !hasPublishedAt {
		// Degraded mode: no publication timestamp in the sheet, fall
		// back to the fetch time for the filename.
		stampSource = artifact.RetrievedAt
	}

	dir := filepath.Join(p.downloadDir,
		strconv.Itoa(stampSource.Year()),
		strconv.Itoa(int(stampSource.Month())))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create download dir: %v", store.ErrPersistence, err)
	}

	name := fmt.Sprintf("SBI_FOREX_CARD_RATES_%s.pdf", stampSource.Format(stampLayout))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, artifact.Body, 0644); err != nil {
		return nil, fmt.Errorf("%w: write sheet: %v", store.ErrPersistence, err)
	}

	rec := &models.DownloadRecord{
		ContentHash:  sig,
		PublishedAt:  publishedAt,
		HasPublished: hasPublishedAt,
		SavedFile:    path,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := p.records.Save(rec); err != nil {
		return nil, err
	}

	logger.Log.Info("Saved new rate sheet",
		zap.String("file", path),
		zap.String("hash", sig),
		zap.Bool("has_published_at", hasPublishedAt))

	return rec, nil
}
