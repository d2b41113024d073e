package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nhdewitt/ticker-from-tcp/internal/config"
	"github.com/nhdewitt/ticker-from-tcp/internal/logging"
	"github.com/nhdewitt/ticker-from-tcp/internal/quote"
	"github.com/nhdewitt/ticker-from-tcp/internal/router"
	"github.com/nhdewitt/ticker-from-tcp/internal/routes"
	"github.com/nhdewitt/ticker-from-tcp/internal/server"
	"github.com/nhdewitt/ticker-from-tcp/internal/store"
	"github.com/nhdewitt/ticker-from-tcp/internal/syncer"
	"github.com/nhdewitt/ticker-from-tcp/internal/view"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
	logger.Info().Msg("Server gracefully stopped")
}

func run(cfg config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	views, err := view.New()
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Order matters: Detail matches any single segment and must come last.
	rt := router.New(
		routes.NewRoot(db, views),
		routes.NewMetrics(reg),
		routes.NewAPI(db),
		routes.NewStatic(cfg.StaticDir),
		routes.NewDetail(db, views, routes.MetricsPath),
	)

	srv, err := server.Serve(server.Config{
		Addr:            cfg.Addr(),
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		HandlerTimeout:  cfg.HandlerTimeout,
		MaxRequestBytes: cfg.MaxRequestBytes,
		RequireHost:     cfg.RequireHost,
		Logger:          logger,
		Metrics:         server.NewMetrics(reg),
	}, rt)
	if err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	logger.Info().Str("addr", srv.Addr().String()).Int("routes", rt.Len()).Msg("Server started")

	g, gctx := errgroup.WithContext(ctx)

	if cfg.SyncEnabled && len(cfg.Symbols) > 0 {
		client := quote.NewClient(quote.Config{
			BaseURL: cfg.FinnhubBaseURL,
			APIKey:  cfg.FinnhubAPIKey,
			Timeout: cfg.QuoteTimeout,
		})
		svc := syncer.New(client, db, syncer.Config{
			Symbols:  cfg.Symbols,
			Interval: cfg.RefreshInterval,
			Delay:    cfg.FetchDelay,
		}, logger)
		g.Go(func() error {
			return svc.Run(gctx)
		})
	} else {
		logger.Info().Msg("quote sync disabled")
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn().Dur("timeout", cfg.ShutdownTimeout).Msg("connections still open at shutdown deadline")
			return nil
		}
		return err
	})

	return g.Wait()
}
