package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"mandi-prices/scraper"
	"mandi-prices/server"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ex, pool := newExtractor(cfg)
	api := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.NewServer(ex).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var metricsSrv *http.Server
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:              cfg.Server.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", metricsSrv.Addr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", api.Addr).
			Bool("debug", cfg.Server.Debug).
			Str("driver", cfg.Scrape.Driver).
			Str("target_url", cfg.Scrape.TargetURL).
			Int("pool_size", cfg.Scrape.PoolSize).
			Msg("starting server")
		serveErr <- api.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			shutdown(context.Background(), logger, pool, metricsSrv)
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}

	shutdown(context.Background(), logger, pool, api, metricsSrv)
	logger.Info().Msg("server stopped")
	return nil
}

// shutdown stops the given servers, nil ones skipped, then closes the
// browser pool. Everything shares one shutdownTimeout.
func shutdown(ctx context.Context, logger zerolog.Logger, pool *scraper.Pool, servers ...*http.Server) {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	for _, srv := range servers {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Str("addr", srv.Addr).Msg("server shutdown incomplete")
		}
	}
	if err := pool.Close(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to close browser")
	}
}
