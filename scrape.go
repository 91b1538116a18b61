package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"mandi-prices/models"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var scrapeFormat string

// runScrape performs one scrape and writes the result to stdout
func runScrape(cmd *cobra.Command, args []string) error {
	if scrapeFormat != "json" && scrapeFormat != "table" {
		return fmt.Errorf("unknown format %q, want json or table", scrapeFormat)
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ex, pool := newExtractor(cfg)
	defer func() {
		if err := pool.Close(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("failed to close browser")
		}
	}()

	result, err := ex.Extract(cmd.Context())
	if err != nil {
		return err
	}

	resp := models.NewPricesResponse(result.Records)
	if scrapeFormat == "table" {
		renderTable(os.Stdout, resp)
	} else if err := writeJSON(os.Stdout, resp); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	logger.Info().
		Int("records", resp.TotalRecords).
		Int("pages", result.Pages).
		Str("termination", string(result.Termination)).
		Msg("scrape complete")
	return nil
}

// writeJSON writes the same body GET /api/prices returns, indented
func writeJSON(w io.Writer, resp models.PricesResponse) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func renderTable(w io.Writer, resp models.PricesResponse) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"State", "Mandi", "Commodity", "Min", "Modal", "Max"})
	for _, r := range resp.Data {
		t.AppendRow(table.Row{r.State, r.Mandi, r.Commodity, r.MinPrice, r.ModalPrice, r.MaxPrice})
	}
	t.AppendFooter(table.Row{"Total", resp.TotalRecords})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
