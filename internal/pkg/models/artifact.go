package models

import "time"

// A fetched rate sheet. Lives only for the duration of one run.
type FetchedArtifact struct {
    Body        []byte
    SourceURL   string
    RetrievedAt time.Time
}

// One parsed row of the rate table: a currency code and its quoted
// rates in sheet column order (TT buy/sell, bill buy/sell, card
// buy/sell, currency-note buy/sell).
type RateQuote struct {
    Currency string   `json:"currency_code"`
    Rates    []string `json:"rates"`
}
