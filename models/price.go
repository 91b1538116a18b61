package models

import "time"

// PriceRecord is one row of the trade-data table. Prices stay as the raw text
// the dashboard renders.
type PriceRecord struct {
	State      string `json:"state"`
	Mandi      string `json:"mandi"`
	Commodity  string `json:"commodity"`
	MinPrice   string `json:"min_price"`
	ModalPrice string `json:"modal_price"`
	MaxPrice   string `json:"max_price"`
}

// PricesResponse is the body of GET /api/prices
type PricesResponse struct {
	TotalRecords int           `json:"total_records"`
	Data         []PriceRecord `json:"data"`
}

// NewPricesResponse wraps records so that TotalRecords always matches the
// length of Data and Data is never encoded as null.
func NewPricesResponse(records []PriceRecord) PricesResponse {
	if records == nil {
		records = []PriceRecord{}
	}
	return PricesResponse{
		TotalRecords: len(records),
		Data:         records,
	}
}

// Termination describes why the pagination loop stopped.
type Termination string

const (
	// TerminationExhausted means the Next control was absent or disabled
	TerminationExhausted Termination = "exhausted"
	// TerminationInterrupted means locating or clicking the Next control failed
	TerminationInterrupted Termination = "interrupted"
	// TerminationPageTimeout means the table never changed after a click
	TerminationPageTimeout Termination = "page_timeout"
	// TerminationReadyTimeout means the first page could not be read at all
	TerminationReadyTimeout Termination = "ready_timeout"
	// TerminationPageLimit means the configured page cap was reached
	TerminationPageLimit Termination = "page_limit"
	// TerminationCancelled means the caller's context ended mid-scrape
	TerminationCancelled Termination = "cancelled"
)

// ScrapeResult is what one run of the table extractor produced.
type ScrapeResult struct {
	Records     []PriceRecord
	Pages       int
	SkippedRows int
	Termination Termination
	Duration    time.Duration
}
