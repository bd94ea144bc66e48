package ratesink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"ratewatch/internal/pkg/logger"
	"ratewatch/internal/pkg/models"
)

// Document shape sent to Elasticsearch, one per parsed currency row.
type rateDocument struct {
	Currency    string    `json:"currency_code"`
	Rates       []string  `json:"rates"`
	PublishedAt time.Time `json:"published_at"`
	SourceFile  string    `json:"source_file"`
}

// Posts the run's parsed quotes to an Elasticsearch bulk endpoint.
// One run produces one batch, so there is no buffering: build the
// NDJSON payload and send it.
type Sink struct {
	client     *http.Client
	elasticURL string
	indexName  string
}

// Creates a new Sink targeting the given _bulk URL.
func New(elasticURL, indexName string) *Sink {
	return &Sink{
		client:     &http.Client{Timeout: 15 * time.Second},
		elasticURL: elasticURL,
		indexName:  indexName,
	}
}

// Indexes the quotes. Documents get deterministic IDs from the
// publication stamp and currency so re-running a sheet overwrites
// instead of duplicating.
func (s *Sink) Index(ctx context.Context, quotes []models.RateQuote, publishedAt time.Time, sourceFile string) error {
	if len(quotes) == 0 {
		return nil
	}

	var payload bytes.Buffer
	for _, quote := range quotes {
		meta := map[string]map[string]string{
			"index": {
				"_index": s.indexName,
				"_id":    fmt.Sprintf("%s-%s", publishedAt.Format("2006-01-02-1504"), quote.Currency),
			},
		}
		metaLine, err := json.Marshal(meta)
		if err != nil {
			logger.Log.Error("Failed to marshal meta line", zap.Error(err))
			continue
		}
		payload.Write(metaLine)
		payload.WriteByte('\n')

		docLine, err := json.Marshal(rateDocument{
			Currency:    quote.Currency,
			Rates:       quote.Rates,
			PublishedAt: publishedAt,
			SourceFile:  sourceFile,
		})
		if err != nil {
			logger.Log.Error("Failed to marshal rate document", zap.Error(err))
			continue
		}
		payload.Write(docLine)
		payload.WriteByte('\n')
	}

	logger.Log.Info("Indexing parsed rates", zap.Int("count", len(quotes)))

	request, err := http.NewRequestWithContext(ctx, "POST", s.elasticURL, bytes.NewReader(payload.Bytes()))
	if err != nil {
		return fmt.Errorf("create bulk request: %w", err)
	}
	request.Header.Set("Content-Type", "application/x-ndjson")

	response, err := s.client.Do(request)
	if err != nil {
		return fmt.Errorf("bulk request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("bulk indexing returned status %d", response.StatusCode)
	}

	logger.Log.Info("Bulk indexing successful", zap.Int("status_code", response.StatusCode))
	return nil
}
