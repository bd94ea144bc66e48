package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"ratewatch/internal/pkg/logger"
	"ratewatch/internal/pkg/models"
)

// All fetch failures wrap this sentinel so the caller can map them to
// the right exit code.
var ErrFetch = errors.New("fetch failed")

// The bank occasionally serves an HTML error page with a 200 status,
// so every accepted body must start with the PDF magic prefix.
var pdfMagic = []byte("%PDF")

// Retrieves the rate sheet over HTTP, trying the fallback URL when the
// primary one fails.
type Fetcher struct {
	client    *http.Client
	urls      []string
	maxBytes  int64
	userAgent string
}

// Creates a new Fetcher. Empty URLs are skipped so a blank fallback
// simply means "primary only".
func New(primaryURL, fallbackURL string, timeout time.Duration, maxBytes int64) *Fetcher {
	urls := []string{primaryURL}
	if fallbackURL != "" {
		urls = append(urls, fallbackURL)
	}
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				return nil
			},
		},
		urls:      urls,
		maxBytes:  maxBytes,
		userAgent: "ratewatch/1.0",
	}
}

// Downloads the sheet, returning the first valid PDF body among the
// configured URLs. There is no retry loop inside a run; the external
// scheduler's next invocation is the retry.
func (f *Fetcher) Fetch(ctx context.Context) (*models.FetchedArtifact, error) {
	var lastErr error
	for _, url := range f.urls {
		body, err := f.fetchOne(ctx, url)
		if err != nil {
			logger.Log.Warn("Fetch attempt failed",
				zap.String("url", url),
				zap.Error(err))
			lastErr = err
			continue
		}
		return &models.FetchedArtifact{
			Body:        body,
			SourceURL:   url,
			RetrievedAt: time.Now().UTC(),
		}, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrFetch, lastErr)
}

// Performs a single GET and validates the response body.
func (f *Fetcher) fetchOne(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", f.maxBytes)
	}
	if !bytes.HasPrefix(body, pdfMagic) {
		return nil, errors.New("response is not a PDF document")
	}

	return body, nil
}
