package persister

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"ratewatch/internal/pkg/logger"
	"ratewatch/internal/pkg/models"
	"ratewatch/internal/pkg/store"
)

func init() {
	logger.Log = zap.NewNop()
}

func newTestPersister(t *testing.T) (*Persister, string, *store.Store) {
	t.Helper()
	downloadDir := t.TempDir()
	records, err := store.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return New(downloadDir, records), downloadDir, records
}

func TestSaveNewWithTimestamp(t *testing.T) {
	p, downloadDir, records := newTestPersister(t)

	publishedAt := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)
	artifact := &models.FetchedArtifact{
		Body:        []byte("%PDF-1.4 sheet"),
		SourceURL:   "https://example.com/rates.pdf",
		RetrievedAt: time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC),
	}

	rec, err := p.SaveNew(artifact, "cafe01", publishedAt, true)
	if err != nil {
		t.Fatalf("expected save to succeed, got %v", err)
	}

	wantPath := filepath.Join(downloadDir, "2025", "3", "SBI_FOREX_CARD_RATES_2025-03-04_1030.pdf")
	if rec.SavedFile != wantPath {
		t.Errorf("expected saved file %q, got %q", wantPath, rec.SavedFile)
	}

	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("expected the sheet on disk: %v", err)
	}
	if string(data) != string(artifact.Body) {
		t.Error("sheet bytes on disk do not match the artifact")
	}

	// The record store must agree with what was written.
	stored, found, err := records.Load()
	if err != nil || !found {
		t.Fatalf("expected a stored record, found=%v err=%v", found, err)
	}
	if stored.ContentHash != "cafe01" || stored.SavedFile != wantPath {
		t.Errorf("stored record mismatch: %+v", stored)
	}
	if !stored.PublishedAt.Equal(publishedAt) || !stored.HasPublished {
		t.Errorf("stored record lost the publication timestamp: %+v", stored)
	}
}

// Without an extracted timestamp the fetch time names the file.
func TestSaveNewFallsBackToFetchTime(t *testing.T) {
	p, downloadDir, _ := newTestPersister(t)

	artifact := &models.FetchedArtifact{
		Body:        []byte("%PDF-1.4 sheet"),
		RetrievedAt: time.Date(2025, 6, 1, 9, 15, 0, 0, time.UTC),
	}

	rec, err := p.SaveNew(artifact, "cafe02", time.Time{}, false)
	if err != nil {
		t.Fatalf("expected save to succeed, got %v", err)
	}

	wantPath := filepath.Join(downloadDir, "2025", "6", "SBI_FOREX_CARD_RATES_2025-06-01_0915.pdf")
	if rec.SavedFile != wantPath {
		t.Errorf("expected fetch-time filename %q, got %q", wantPath, rec.SavedFile)
	}
	if rec.HasPublished {
		t.Error("expected HasPublished to be false in degraded mode")
	}
}
