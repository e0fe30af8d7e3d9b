package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/ElasticSwap/elasticswap-avalanche/internal/chain"
	"github.com/ElasticSwap/elasticswap-avalanche/internal/config"
	"github.com/ElasticSwap/elasticswap-avalanche/internal/modules/core"
	"github.com/ElasticSwap/elasticswap-avalanche/internal/modules/elasticswap"
	"github.com/ElasticSwap/elasticswap-avalanche/internal/processor"
	"github.com/ElasticSwap/elasticswap-avalanche/internal/scheduler"
	"github.com/ElasticSwap/elasticswap-avalanche/internal/store"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logging)

	logger.Info().
		Str("version", "0.1.0").
		Str("config", configPath).
		Str("chain", cfg.Chain.Name).
		Msg("Starting ElasticSwap indexer")

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Indexer failed")
	}

	logger.Info().Msg("Indexer shutdown complete")
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.RunMigrations(ctx, &cfg.Database, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	st, err := store.NewPostgres(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer st.Close()

	eth, err := ethclient.DialContext(ctx, cfg.Chain.RPCEndpoint)
	if err != nil {
		return fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}
	defer eth.Close()

	reader := chain.NewClient(eth, logger)

	registry := core.NewModuleRegistry(st, logger)

	module, err := elasticswap.NewModule(filepath.Join(cfg.Indexer.ManifestsDir, "elasticswap.yaml"), logger)
	if err != nil {
		return fmt.Errorf("failed to create module: %w", err)
	}
	module.SetReader(reader)
	module.SetSourceRegistrar(registry)

	if err := registry.RegisterModule(module); err != nil {
		return fmt.Errorf("failed to register module: %w", err)
	}
	if err := registry.Start(); err != nil {
		return err
	}
	defer registry.Stop()

	metadataScheduler, err := scheduler.NewTokenMetadataScheduler(st, reader, cfg.Indexer.MetadataRefreshInterval, logger)
	if err != nil {
		return fmt.Errorf("failed to create metadata scheduler: %w", err)
	}
	if err := metadataScheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start metadata scheduler: %w", err)
	}
	defer metadataScheduler.Stop()

	proc := processor.New(cfg, eth, registry, []core.Module{module}, logger)
	return proc.Run(ctx)
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05.000",
		}
		logger = zerolog.New(output).Level(level).With().Timestamp().Caller().Logger()
	} else {
		logger = zerolog.New(os.Stdout).Level(level).With().Timestamp().Caller().Logger()
	}

	return logger
}
