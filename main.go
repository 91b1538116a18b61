package main

import (
	"fmt"
	"os"

	"mandi-prices/config"
	"mandi-prices/extractor"
	"mandi-prices/logging"
	"mandi-prices/scraper"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "mandi-prices",
		Short:         "Scrape eNAM mandi prices and serve them over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to configuration file")

	scrapeCmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape once and print the result",
		RunE:  runScrape,
	}
	scrapeCmd.Flags().StringVar(&scrapeFormat, "format", "json", "Output format: json or table")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP API (default)",
			RunE:  runServe,
		},
		scrapeCmd,
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads configuration and the logger shared by every command
func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.Setup(logging.Config{
		Level:  cfg.LogLevel(),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})
	return cfg, logger, nil
}

// newDriver picks the browser driver named in the configuration
func newDriver(cfg config.ScrapeConfig) scraper.Driver {
	if cfg.Driver == config.DriverStatic {
		return scraper.NewStaticDriver(cfg.PageTimeout.Std())
	}
	return scraper.NewRodDriver(scraper.RodOptions{
		Headless:   cfg.Headless,
		BrowserBin: cfg.BrowserBin,
	})
}

// newExtractor wires driver, pool and extractor
func newExtractor(cfg *config.Config) (*extractor.Extractor, *scraper.Pool) {
	pool := scraper.NewPool(newDriver(cfg.Scrape), cfg.Scrape.PoolSize)
	return extractor.New(pool, extractor.OptionsFromConfig(cfg.Scrape)), pool
}
