package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"ratewatch/internal/pkg/config"
	"ratewatch/internal/pkg/fetcher"
	"ratewatch/internal/pkg/logger"
	"ratewatch/internal/pkg/novelty"
)

func init() {
	// Ensure that the logger is not nil during tests.
	logger.Log = zap.NewNop()
}

// Serves a switchable PDF body, standing in for the bank's site.
type sheetServer struct {
	mu   sync.Mutex
	body []byte
	*httptest.Server
}

func newSheetServer(body []byte) *sheetServer {
	s := &sheetServer{body: body}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		w.Write(s.body)
	}))
	return s
}

func (s *sheetServer) serve(body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body = body
}

func testConfig(t *testing.T, url string) *config.Config {
	t.Helper()
	return &config.Config{
		RatesURL:           url,
		HTTPTimeoutSeconds: 2,
		MaxFetchBytes:      1024 * 1024,
		DownloadDir:        filepath.Join(t.TempDir(), "downloads"),
		DataDir:            filepath.Join(t.TempDir(), "data"),
		CSVDir:             filepath.Join(t.TempDir(), "csv"),
	}
}

func countPDFs(t *testing.T, root string) int {
	t.Helper()
	count := 0
	filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() && strings.HasSuffix(path, ".pdf") {
			count++
		}
		return nil
	})
	return count
}

// Runs the full first-run / duplicate / degraded-new sequence against
// one pipeline and one simulated site.
func TestRunScenarios(t *testing.T) {
	sheet1 := buildTextPDF("Date 04-03-2025 Time 10:30 AM USD/INR 83.57 84.42 83.50 84.59 83.50 84.59 82.55 84.90")
	server := newSheetServer(sheet1)
	defer server.Close()

	cfg := testConfig(t, server.URL)
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("expected pipeline construction to succeed, got %v", err)
	}

	// First run with an empty store: New, sheet saved under the
	// publication stamp, record written, CSV history created.
	classification, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("expected first run to succeed, got %v", err)
	}
	if classification != novelty.New {
		t.Fatalf("expected New on first run, got %v", classification)
	}

	savedPath := filepath.Join(cfg.DownloadDir, "2025", "3", "SBI_FOREX_CARD_RATES_2025-03-04_1030.pdf")
	if _, err := os.Stat(savedPath); err != nil {
		t.Errorf("expected saved sheet at %s: %v", savedPath, err)
	}

	rec, found, err := p.records.Load()
	if err != nil || !found {
		t.Fatalf("expected a persisted record, found=%v err=%v", found, err)
	}
	if rec.SavedFile != savedPath {
		t.Errorf("record points at %q, expected %q", rec.SavedFile, savedPath)
	}
	if !rec.HasPublished {
		t.Error("expected the record to carry the extracted publication timestamp")
	}

	if _, err := os.Stat(filepath.Join(cfg.CSVDir, "SBI_REFERENCE_RATES_USD.csv")); err != nil {
		t.Errorf("expected USD rate history CSV: %v", err)
	}

	// Second run with identical bytes: Duplicate, nothing new written,
	// record unchanged.
	classification, err = p.Run(context.Background())
	if err != nil {
		t.Fatalf("expected second run to succeed, got %v", err)
	}
	if classification != novelty.Duplicate {
		t.Fatalf("expected Duplicate on identical bytes, got %v", classification)
	}
	if n := countPDFs(t, cfg.DownloadDir); n != 1 {
		t.Errorf("expected exactly 1 saved sheet after duplicate run, got %d", n)
	}
	recAfter, _, err := p.records.Load()
	if err != nil {
		t.Fatal(err)
	}
	if recAfter.ContentHash != rec.ContentHash || !recAfter.UpdatedAt.Equal(rec.UpdatedAt) {
		t.Error("expected the record to be untouched by a duplicate run")
	}

	// Third run: different bytes whose text extraction fails. Novelty
	// must come from the hash alone, and the filename from fetch time.
	server.serve([]byte("%PDF-1.4 regenerated but unreadable sheet"))
	classification, err = p.Run(context.Background())
	if err != nil {
		t.Fatalf("expected degraded run to succeed, got %v", err)
	}
	if classification != novelty.New {
		t.Fatalf("expected New via hash-only fallback, got %v", classification)
	}
	if n := countPDFs(t, cfg.DownloadDir); n != 2 {
		t.Errorf("expected 2 saved sheets after degraded run, got %d", n)
	}
	recDegraded, _, err := p.records.Load()
	if err != nil {
		t.Fatal(err)
	}
	if recDegraded.HasPublished {
		t.Error("expected the degraded record to have no publication timestamp")
	}
	if recDegraded.ContentHash == rec.ContentHash {
		t.Error("expected the degraded record to carry the new hash")
	}
}

// A dead site aborts the run with ErrFetch.
func TestRunFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p, err := New(testConfig(t, server.URL))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := p.Run(context.Background()); !errors.Is(err, fetcher.ErrFetch) {
		t.Errorf("expected ErrFetch, got %v", err)
	}
}

// Builds a minimal single-page PDF with valid xref offsets so pdfcpu
// accepts it.
func buildTextPDF(text string) []byte {
	escaped := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(text)
	stream := "BT\n/F1 12 Tf\n72 720 Td\n(" + escaped + ") Tj\nET"

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects)+1)
	for i, obj := range objects {
		offsets[i+1] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objects)+1)
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i <= len(objects); i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return []byte(b.String())
}
