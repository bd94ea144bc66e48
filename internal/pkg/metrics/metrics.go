package metrics

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
    "github.com/prometheus/client_golang/prometheus/push"
)

// Counts how many pipeline runs have completed, successfully or not.
var RunsTotal = promauto.NewCounter(prometheus.CounterOpts{
    Name: "ratewatch_runs_total",
    Help: "Total number of pipeline runs",
})

// Counts how many runs classified the fetched sheet as new and saved it.
var NewDownloads = promauto.NewCounter(prometheus.CounterOpts{
    Name: "ratewatch_new_downloads_total",
    Help: "Total number of runs that saved a new rate sheet",
})

// Counts how many runs found the sheet unchanged.
var DuplicatesDetected = promauto.NewCounter(prometheus.CounterOpts{
    Name: "ratewatch_duplicates_detected_total",
    Help: "Total number of runs that classified the sheet as a duplicate",
})

// Counts runs where the publication timestamp could not be extracted
// and novelty detection fell back to hash-only comparison.
var ExtractionFallbacks = promauto.NewCounter(prometheus.CounterOpts{
    Name: "ratewatch_extraction_fallbacks_total",
    Help: "Total number of runs that fell back to hash-only novelty detection",
})

// Fetch and persistence failures abort the run.
var (
    FetchFailures = promauto.NewCounter(prometheus.CounterOpts{
        Name: "ratewatch_fetch_failures_total",
        Help: "Total number of runs aborted by a fetch failure",
    })

    PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
        Name: "ratewatch_persist_failures_total",
        Help: "Total number of runs aborted by a persistence failure",
    })

    RateQuotesParsed = promauto.NewCounter(prometheus.CounterOpts{
        Name: "ratewatch_rate_quotes_parsed_total",
        Help: "Total number of currency rows parsed out of saved sheets",
    })
)

// Pushes all registered counters to a Pushgateway. The process exits
// after one pipeline pass, so there is nothing for Prometheus to scrape;
// pushing at the end of the run is the only way the counters survive.
func Push(gatewayURL, jobName string) error {
    return push.New(gatewayURL, jobName).
        Gatherer(prometheus.DefaultGatherer).
        Push()
}
