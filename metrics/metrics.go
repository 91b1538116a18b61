// Package metrics holds the Prometheus collectors for scrapes and browser
// sessions. They are served on a dedicated listener, never on the API port.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scrapes counts finished scrapes by termination reason
	Scrapes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mandi_scrapes_total",
			Help: "Total number of finished scrapes by termination reason",
		},
		[]string{"termination"},
	)

	// ScrapeFailures counts scrapes that could not launch or navigate
	ScrapeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mandi_scrape_failures_total",
			Help: "Total number of scrapes that failed before reading any page",
		},
	)

	// ScrapeDuration tracks wall time of a whole scrape
	ScrapeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mandi_scrape_duration_seconds",
			Help:    "Duration of a full paginated scrape",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
	)

	// PagesScraped counts table pages read
	PagesScraped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mandi_pages_scraped_total",
			Help: "Total number of table pages read",
		},
	)

	// RecordsScraped counts price records extracted
	RecordsScraped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mandi_records_scraped_total",
			Help: "Total number of price records extracted",
		},
	)

	// RowsSkipped counts body rows with too few cells
	RowsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mandi_rows_skipped_total",
			Help: "Total number of table rows skipped for having fewer than six cells",
		},
	)

	// SessionsInUse is the number of browser sessions currently checked out
	SessionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mandi_sessions_in_use",
			Help: "Browser sessions currently owned by a scrape",
		},
	)
)
