package main

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"mandi-prices/config"
	"mandi-prices/models"
	"mandi-prices/scraper"
	"mandi-prices/scraper/scrapertest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDriver(t *testing.T) {
	cfg := config.GetDefaultConfig()

	_, ok := newDriver(cfg.Scrape).(*scraper.RodDriver)
	assert.True(t, ok)

	cfg.Scrape.Driver = config.DriverStatic
	_, ok = newDriver(cfg.Scrape).(*scraper.StaticDriver)
	assert.True(t, ok)
}

func TestNewExtractorUsesPoolSize(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Scrape.PoolSize = 3

	ex, pool := newExtractor(cfg)
	require.NotNil(t, ex)
	assert.Equal(t, 3, pool.Size())
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, models.NewPricesResponse(nil)))
	assert.JSONEq(t, `{"total_records": 0, "data": []}`, buf.String())
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	renderTable(&buf, models.NewPricesResponse([]models.PriceRecord{
		{State: "Gujarat", Mandi: "Rajkot", Commodity: "Cotton", MinPrice: "6500", ModalPrice: "7000", MaxPrice: "7250"},
	}))

	out := buf.String()
	assert.Contains(t, out, "Rajkot")
	assert.Contains(t, out, "7250")
	assert.Contains(t, out, "TOTAL")
}

func TestShutdownStopsMetricsServerAndPool(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	metricsSrv := &http.Server{Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}
	served := make(chan error, 1)
	go func() { served <- metricsSrv.Serve(l) }()

	driver := &scrapertest.Driver{}
	pool := scraper.NewPool(driver, 1)

	// the API listener never started, only metrics is running
	shutdown(context.Background(), zerolog.Nop(), pool, nil, metricsSrv)

	select {
	case err := <-served:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server still serving")
	}
	assert.True(t, driver.Closed())

	_, err = net.DialTimeout("tcp", l.Addr().String(), time.Second)
	assert.Error(t, err)
}
