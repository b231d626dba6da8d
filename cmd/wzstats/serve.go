package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/wzstats-client/pkg/logging"
	"github.com/Sternrassler/wzstats-client/pkg/metrics"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the stats HTTP API",
	Long: `Serves profiles, match history and match details over HTTP.
Prometheus metrics are exposed on a separate address.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.NewLogger("server")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	api := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newServer(a.client, cfg.Server.RequestTimeout, logger).routes(),
		ReadHeaderTimeout: 15 * time.Second,
	}
	metricsSrv := metrics.NewServer(cfg.Server.MetricsAddr)

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range []*http.Server{api, metricsSrv} {
		g.Go(func() error {
			logger.Info().Str("addr", srv.Addr).Msg("Starting listener")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return errors.Join(api.Shutdown(shutdownCtx), metricsSrv.Shutdown(shutdownCtx))
	})

	return g.Wait()
}
