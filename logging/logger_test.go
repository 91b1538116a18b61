package logging

import (
	"bytes"
	"strings"
	"testing"

	"mandi-prices/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestSetupFiltersByLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	logger := Setup(Config{Level: "warn", Output: &buf})

	logger.Info().Msg("hidden info")
	logger.Warn().Msg("visible warn")

	out := buf.String()
	assert.NotContains(t, out, "hidden info")
	assert.Contains(t, out, "visible warn")
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"service":"mandi-prices"`)
}

func TestNewLoggerAddsComponent(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	Setup(Config{Level: "debug", Output: &buf})

	logger := NewLogger("extractor")
	logger.Debug().Msg("page read")

	assert.True(t, strings.Contains(buf.String(), `"component":"extractor"`))
	assert.True(t, strings.Contains(buf.String(), "page read"))
}

func TestSetupPretty(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	logger := Setup(Config{Level: "info", Pretty: true, Output: &buf})
	logger.Info().Msg("console line")

	out := buf.String()
	assert.Contains(t, out, "console line")
	assert.NotContains(t, out, `"message"`)
}

func TestForScrapeTagsEveryLine(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	logger, id := ForScrape(base, "https://enam.example/trade-data")
	logger.Info().Msg("starting scrape")
	logger.Info().Msg("scrape finished")

	_, err := uuid.Parse(id)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Contains(t, line, `"scrape_id":"`+id+`"`)
		assert.Contains(t, line, `"url":"https://enam.example/trade-data"`)
	}

	_, other := ForScrape(base, "https://enam.example/trade-data")
	assert.NotEqual(t, id, other)
}

func TestTerminationLevel(t *testing.T) {
	tests := []struct {
		term models.Termination
		want zerolog.Level
	}{
		{models.TerminationExhausted, zerolog.InfoLevel},
		{models.TerminationPageLimit, zerolog.InfoLevel},
		{models.TerminationInterrupted, zerolog.WarnLevel},
		{models.TerminationPageTimeout, zerolog.WarnLevel},
		{models.TerminationReadyTimeout, zerolog.WarnLevel},
		{models.TerminationCancelled, zerolog.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(string(tt.term), func(t *testing.T) {
			assert.Equal(t, tt.want, TerminationLevel(tt.term))
		})
	}
}
