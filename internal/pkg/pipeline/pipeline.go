package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ratewatch/internal/pkg/config"
	"ratewatch/internal/pkg/extractor"
	"ratewatch/internal/pkg/fetcher"
	"ratewatch/internal/pkg/fingerprint"
	"ratewatch/internal/pkg/logger"
	"ratewatch/internal/pkg/metrics"
	"ratewatch/internal/pkg/models"
	"ratewatch/internal/pkg/novelty"
	"ratewatch/internal/pkg/persister"
	"ratewatch/internal/pkg/rates"
	"ratewatch/internal/pkg/ratesink"
	"ratewatch/internal/pkg/store"
)

// Wires the whole fetch → extract → classify → persist pass together.
// One Pipeline instance runs exactly one pass per invocation.
type Pipeline struct {
	fetcher     *fetcher.Fetcher
	records     *store.Store
	persister   *persister.Persister
	ratesWriter *rates.Writer
	history     novelty.History // nil when disabled
	sink        *ratesink.Sink  // nil when disabled
}

// Creates a new Pipeline from config. The optional redis history and
// Elasticsearch sink are only wired up when configured.
func New(config *config.Config) (*Pipeline, error) {
	records, err := store.New(config.DataDir)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		fetcher: fetcher.New(
			config.RatesURL,
			config.RatesFallbackURL,
			time.Duration(config.HTTPTimeoutSeconds)*time.Second,
			config.MaxFetchBytes,
		),
		records:     records,
		persister:   persister.New(config.DownloadDir, records),
		ratesWriter: rates.NewWriter(config.CSVDir),
	}

	if config.HistoryEnabled {
		history, err := novelty.NewRedisHistory(config)
		if err != nil {
			return nil, err
		}
		p.history = history
	}

	if config.ElasticsearchURL != "" {
		p.sink = ratesink.New(config.ElasticsearchURL, config.IndexName)
	}

	return p, nil
}

// Executes one complete pass and returns the novelty classification.
// Fetch and persistence errors abort the pass; extraction errors only
// degrade it to hash-only novelty detection.
func (p *Pipeline) Run(ctx context.Context) (novelty.Classification, error) {
	metrics.RunsTotal.Inc()

	artifact, err := p.fetcher.Fetch(ctx)
	if err != nil {
		metrics.FetchFailures.Inc()
		return novelty.Duplicate, err
	}

	sig := fingerprint.Signature(artifact.Body)

	var (
		publishedAt  time.Time
		hasPublished bool
		quotes       []models.RateQuote
	)
	text, err := extractor.Text(artifact.Body)
	if err != nil {
		logger.Log.Warn("Sheet text extraction failed, falling back to hash-only detection",
			zap.Error(err))
		metrics.ExtractionFallbacks.Inc()
	} else {
		if ts, err := extractor.PublishedAt(text); err != nil {
			logger.Log.Warn("No publication timestamp in sheet, falling back to hash-only detection",
				zap.Error(err))
			metrics.ExtractionFallbacks.Inc()
		} else {
			publishedAt = ts
			hasPublished = true
		}
		quotes = extractor.Rates(text)
	}

	// The lock covers the full read-decide-write span so overlapping
	// scheduler invocations serialize on the record.
	if err := p.records.Lock(ctx); err != nil {
		metrics.PersistFailures.Inc()
		return novelty.Duplicate, err
	}
	defer p.records.Unlock()

	prior, found, err := p.records.Load()
	if err != nil {
		metrics.PersistFailures.Inc()
		return novelty.Duplicate, err
	}
	if !found {
		prior = nil
	}

	classification := novelty.Classify(sig, publishedAt, hasPublished, prior)
	if classification == novelty.New && p.history != nil && p.history.Seen(sig) {
		logger.Log.Info("Sheet already in signature history, treating as duplicate",
			zap.String("hash", sig))
		classification = novelty.Duplicate
	}

	if classification == novelty.Duplicate {
		metrics.DuplicatesDetected.Inc()
		logger.Log.Info("No new rate sheet",
			zap.String("hash", sig),
			zap.String("source", artifact.SourceURL))
		return novelty.Duplicate, nil
	}

	rec, err := p.persister.SaveNew(artifact, sig, publishedAt, hasPublished)
	if err != nil {
		metrics.PersistFailures.Inc()
		return novelty.Duplicate, err
	}
	metrics.NewDownloads.Inc()

	if p.history != nil {
		p.history.Record(sig)
	}

	p.recordRates(ctx, quotes, rec, artifact)

	return novelty.New, nil
}

// Writes the CSV history and feeds the optional sink. Both are
// best-effort: the sheet and its record are already safely on disk,
// so failures here log a warning instead of failing the run.
func (p *Pipeline) recordRates(ctx context.Context, quotes []models.RateQuote, rec *models.DownloadRecord, artifact *models.FetchedArtifact) {
	if len(quotes) == 0 {
		return
	}
	metrics.RateQuotesParsed.Add(float64(len(quotes)))

	stamp := rec.PublishedAt
	if !rec.HasPublished {
		stamp = artifact.RetrievedAt
	}

	if err := p.ratesWriter.Append(quotes, stamp, rec.SavedFile); err != nil {
		logger.Log.Warn("Failed to update rate history CSVs", zap.Error(err))
	}

	if p.sink != nil {
		if err := p.sink.Index(ctx, quotes, stamp, rec.SavedFile); err != nil {
			logger.Log.Warn("Failed to index parsed rates", zap.Error(err))
		}
	}
}
