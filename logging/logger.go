// Package logging wires zerolog for the server, the CLI and every scrape.
//
// Setup installs the process logger once at startup. Packages then derive
// their own loggers with NewLogger, and the extractor derives one more per
// run with ForScrape so every line of a scrape carries the same scrape_id.
package logging

import (
	"io"
	"os"
	"strings"

	"mandi-prices/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const service = "mandi-prices"

// Config selects level and format of the process logger
type Config struct {
	// Level is debug, info, warn or error; anything else means info
	Level string
	// Pretty writes human-readable console lines instead of JSON
	Pretty bool
	// Output defaults to os.Stderr so stdout stays free for scrape output
	Output io.Writer
}

// DefaultConfig is JSON at info level on stderr
func DefaultConfig() Config {
	return Config{Level: "info", Output: os.Stderr}
}

// Setup installs the process logger and returns it
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05.000"}
	}

	log.Logger = zerolog.New(out).With().
		Timestamp().
		Str("service", service).
		Logger()
	return log.Logger
}

func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger derives a logger for one package from the process logger
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// ForScrape tags base with a fresh scrape_id and the target URL. The id is
// returned as well so callers can report it.
func ForScrape(base zerolog.Logger, targetURL string) (zerolog.Logger, string) {
	id := uuid.NewString()
	return base.With().Str("scrape_id", id).Str("url", targetURL).Logger(), id
}

// TerminationLevel is the level a finished scrape is reported at. A walk
// that ran out of pages or hit the page cap is normal; anything else means
// the dashboard misbehaved or the caller gave up.
func TerminationLevel(t models.Termination) zerolog.Level {
	switch t {
	case models.TerminationExhausted, models.TerminationPageLimit:
		return zerolog.InfoLevel
	default:
		return zerolog.WarnLevel
	}
}
