package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	settler "github.com/mandala-foundation/settler/go"
	"github.com/mandala-foundation/settler/go/http"
	"github.com/mandala-foundation/settler/go/manifold"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "vaultd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to vaultd toml config")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := settler.NewLogSink(logger.With().Str("component", "sink").Logger())
	store := settler.NewInMemoryLedgerStore()
	executor := settler.NewLoggingExecutor(logger.With().Str("component", "executor").Logger())

	ledger := settler.NewVaultLedger(store, executor,
		settler.WithEventSink(sink),
		settler.WithLogger(logger.With().Str("component", "ledger").Logger()),
		settler.WithSettlementTTL(cfg.SettlementTTL),
	)

	service := settler.NewVaultService(ledger,
		settler.WithServiceSink(sink),
		settler.WithServiceLogger(logger.With().Str("component", "service").Logger()),
	)

	builder, err := manifold.NewBuilder(cfg.Manifold)
	if err != nil {
		return err
	}
	registry := manifold.NewRegistry()

	pulse := settler.NewPulse(cfg.PulseInterval, func(ctx context.Context) {
		tile, err := builder.Grow(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("tile growth failed")
			return
		}
		score, err := registry.Score(manifold.CapabilityNodeDensity, tile)
		if err != nil {
			logger.Warn().Err(err).Msg("novelty scoring failed")
			return
		}
		if err := service.LogEmergence(ctx, tile.DeepestLeaf(), score); err != nil {
			logger.Warn().Err(err).Msg("emergence telemetry failed")
		}
	}, logger.With().Str("component", "pulse").Logger())
	pulse.Start(ctx)
	defer pulse.Stop()

	server := http.NewServer(service, http.WithLogger(logger.With().Str("component", "http").Logger()))
	srv := &nethttp.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("vaultd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(cfg daemonConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse log_level: %w", err)
	}

	var logger zerolog.Logger
	if cfg.LogJSON {
		logger = zerolog.New(os.Stdout)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger.Level(level).With().Timestamp().Logger(), nil
}
