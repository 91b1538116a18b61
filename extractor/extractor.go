// Package extractor walks the paginated trade-data table and accumulates
// price records.
//
// Pagination never fails outward. The walk ends when the Next control is
// missing or disabled, when using it fails, or when the table does not change
// after a click; the records gathered so far are returned and the reason is
// kept in models.ScrapeResult.Termination. A page whose rows do not show up
// within its timeout is read as rendered. Only acquiring a session and
// navigating to the target return an error.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mandi-prices/config"
	"mandi-prices/logging"
	"mandi-prices/metrics"
	"mandi-prices/models"
	"mandi-prices/parser"
	"mandi-prices/scraper"

	"github.com/rs/zerolog"
)

var errNotReady = errors.New("page not ready")

// Options controls one scrape
type Options struct {
	TargetURL     string
	ReadySelector string
	NextText      string
	ReadyTimeout  time.Duration
	PageTimeout   time.Duration
	PollInterval  time.Duration
	SettleDelay   time.Duration
	ScrapeTimeout time.Duration
	MaxPages      int
}

// OptionsFromConfig maps the scrape section of the configuration
func OptionsFromConfig(cfg config.ScrapeConfig) Options {
	return Options{
		TargetURL:     cfg.TargetURL,
		ReadySelector: cfg.ReadySelector,
		NextText:      cfg.NextText,
		ReadyTimeout:  cfg.ReadyTimeout.Std(),
		PageTimeout:   cfg.PageTimeout.Std(),
		PollInterval:  cfg.PollInterval.Std(),
		SettleDelay:   cfg.SettleDelay.Std(),
		ScrapeTimeout: cfg.ScrapeTimeout.Std(),
		MaxPages:      cfg.MaxPages,
	}
}

// SessionProvider hands out exclusively-owned sessions; *scraper.Pool is one
type SessionProvider interface {
	WithSession(ctx context.Context, fn func(scraper.Session) error) error
}

// Extractor runs the pagination loop against one target URL
type Extractor struct {
	sessions SessionProvider
	opts     Options
	parser   *parser.Parser
	log      zerolog.Logger
}

// New creates an Extractor
func New(sessions SessionProvider, opts Options) *Extractor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 250 * time.Millisecond
	}
	if opts.NextText == "" {
		opts.NextText = "Next"
	}
	if opts.ReadySelector == "" {
		opts.ReadySelector = parser.RowSelector
	}
	return &Extractor{
		sessions: sessions,
		opts:     opts,
		parser:   parser.NewParser(),
		log:      logging.NewLogger("extractor"),
	}
}

// Extract performs one complete scrape
func (e *Extractor) Extract(ctx context.Context) (models.ScrapeResult, error) {
	start := time.Now()
	logger, _ := logging.ForScrape(e.log, e.opts.TargetURL)

	if e.opts.ScrapeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.ScrapeTimeout)
		defer cancel()
	}

	logger.Info().Msg("starting scrape")

	var result models.ScrapeResult
	err := e.sessions.WithSession(ctx, func(s scraper.Session) error {
		if err := s.Navigate(ctx, e.opts.TargetURL); err != nil {
			return err
		}
		result = e.paginate(ctx, s, logger)
		return nil
	})
	result.Duration = time.Since(start)

	if err != nil {
		metrics.ScrapeFailures.Inc()
		logger.Error().Err(err).Dur("duration", result.Duration).Msg("scrape failed")
		return result, fmt.Errorf("scrape %s: %w", e.opts.TargetURL, err)
	}

	metrics.Scrapes.WithLabelValues(string(result.Termination)).Inc()
	metrics.ScrapeDuration.Observe(result.Duration.Seconds())
	metrics.PagesScraped.Add(float64(result.Pages))
	metrics.RecordsScraped.Add(float64(len(result.Records)))
	metrics.RowsSkipped.Add(float64(result.SkippedRows))

	logger.WithLevel(logging.TerminationLevel(result.Termination)).
		Str("termination", string(result.Termination)).
		Int("pages", result.Pages).
		Int("records", len(result.Records)).
		Int("skipped_rows", result.SkippedRows).
		Dur("duration", result.Duration).
		Msg("scrape finished")

	return result, nil
}

// paginate reads pages until the walk terminates. It never returns an error.
func (e *Extractor) paginate(ctx context.Context, s scraper.Session, logger zerolog.Logger) models.ScrapeResult {
	var result models.ScrapeResult

	html, err := e.waitReady(ctx, s)
	if err != nil {
		if ctx.Err() != nil || html == "" {
			result.Termination = e.terminate(ctx, models.TerminationReadyTimeout)
			logger.Debug().Err(err).Msg("first page could not be read")
			return result
		}
		// read the page as rendered, rows or not
		logger.Debug().Str("selector", e.opts.ReadySelector).Msg("first page not ready in time, reading it as rendered")
	}

	for {
		page, err := e.parser.ParseTable(html)
		if err != nil {
			logger.Debug().Err(err).Int("page", result.Pages+1).Msg("failed to parse page")
			result.Termination = models.TerminationInterrupted
			return result
		}

		result.Pages++
		result.Records = append(result.Records, page.Records...)
		result.SkippedRows += page.Skipped
		logger.Debug().
			Int("page", result.Pages).
			Int("page_records", len(page.Records)).
			Int("records", len(result.Records)).
			Msg("page read")

		if e.opts.MaxPages > 0 && result.Pages >= e.opts.MaxPages {
			result.Termination = models.TerminationPageLimit
			return result
		}

		next, term := e.advance(ctx, s, page.Signature, logger)
		if term != "" {
			result.Termination = term
			return result
		}
		html = next
	}
}

// advance moves to the next page and returns its HTML, or the reason
// pagination ended.
func (e *Extractor) advance(ctx context.Context, s scraper.Session, signature string, logger zerolog.Logger) (string, models.Termination) {
	control, err := s.NextControl(ctx, e.opts.NextText)
	if errors.Is(err, scraper.ErrNoControl) {
		return "", models.TerminationExhausted
	}
	if err != nil {
		logger.Debug().Err(err).Msg("failed to locate pagination control")
		return "", e.terminate(ctx, models.TerminationInterrupted)
	}

	class, err := control.Class()
	if err != nil {
		logger.Debug().Err(err).Msg("failed to read pagination control")
		return "", e.terminate(ctx, models.TerminationInterrupted)
	}
	if strings.Contains(class, "disabled") {
		return "", models.TerminationExhausted
	}

	if err := control.Click(ctx); err != nil {
		logger.Debug().Err(err).Msg("failed to click pagination control")
		return "", e.terminate(ctx, models.TerminationInterrupted)
	}

	if e.opts.SettleDelay > 0 {
		if err := sleep(ctx, e.opts.SettleDelay); err != nil {
			return "", models.TerminationCancelled
		}
	}

	changed := func(html string) (parser.TablePage, bool) {
		page, err := e.parser.ParseTable(html)
		return page, err == nil && page.Signature != signature
	}

	html, err := e.poll(ctx, s, e.opts.PageTimeout, func(html string) bool {
		page, ok := changed(html)
		return ok && page.Rows() > 0
	})
	if err == nil {
		return html, ""
	}
	// a changed table that stays empty is a real page without rows
	if ctx.Err() == nil && html != "" {
		if _, ok := changed(html); ok {
			logger.Debug().Msg("next page has no rows, reading it as rendered")
			return html, ""
		}
	}
	logger.Debug().Err(err).Msg("next page did not render")
	return "", e.terminate(ctx, models.TerminationPageTimeout)
}

// waitReady polls until the ready selector is present. On timeout the last
// HTML read is returned with the error.
func (e *Extractor) waitReady(ctx context.Context, s scraper.Session) (string, error) {
	return e.poll(ctx, s, e.opts.ReadyTimeout, func(html string) bool {
		ok, err := e.parser.HasElement(html, e.opts.ReadySelector)
		return err == nil && ok
	})
}

// poll reads the page every PollInterval until done accepts it or timeout
// elapses. The page is always checked at least once. A timeout returns the
// last HTML that could be read, or "" if none could.
func (e *Extractor) poll(ctx context.Context, s scraper.Session, timeout time.Duration, done func(string) bool) (string, error) {
	deadline := time.Now().Add(timeout)
	var last string
	for {
		html, err := s.HTML(ctx)
		if err == nil {
			if done(html) {
				return html, nil
			}
			last = html
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			if err != nil {
				return last, fmt.Errorf("%w: %w", errNotReady, err)
			}
			return last, errNotReady
		}
		if err := sleep(ctx, min(e.opts.PollInterval, remaining)); err != nil {
			return "", err
		}
	}
}

// terminate reports a cancelled context in preference to reason
func (e *Extractor) terminate(ctx context.Context, reason models.Termination) models.Termination {
	if ctx.Err() != nil {
		return models.TerminationCancelled
	}
	return reason
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
