package main

import (
	"context"
	"errors"
	"log"
	"os"

	"go.uber.org/zap"

	"ratewatch/internal/pkg/config"
	"ratewatch/internal/pkg/fetcher"
	"ratewatch/internal/pkg/logger"
	"ratewatch/internal/pkg/metrics"
	"ratewatch/internal/pkg/pipeline"
	"ratewatch/internal/pkg/store"
)

// Exit codes for the external scheduler to alert on.
const (
	exitOK      = 0
	exitFetch   = 1
	exitPersist = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return exitPersist
	}

	if err := logger.InitLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Printf("failed to initialize logger: %v", err)
		return exitPersist
	}
	defer logger.Log.Sync()

	p, err := pipeline.New(cfg)
	if err != nil {
		logger.Log.Error("Failed to construct pipeline", zap.Error(err))
		return exitPersist
	}

	// One pass per invocation; the external scheduler provides the
	// cadence and the retries.
	classification, err := p.Run(context.Background())
	pushMetrics(cfg)
	if err != nil {
		logger.Log.Error("Run aborted", zap.Error(err))
		switch {
		case errors.Is(err, fetcher.ErrFetch):
			return exitFetch
		case errors.Is(err, store.ErrPersistence):
			return exitPersist
		default:
			return exitPersist
		}
	}

	logger.Log.Info("Run complete", zap.String("classification", classification.String()))
	return exitOK
}

// Pushes the run counters when a Pushgateway is configured. Best
// effort: a metrics outage must not change the exit code.
func pushMetrics(cfg *config.Config) {
	if cfg.PushgatewayURL == "" {
		return
	}
	if err := metrics.Push(cfg.PushgatewayURL, cfg.JobName); err != nil {
		logger.Log.Warn("Failed to push metrics", zap.Error(err))
	}
}
