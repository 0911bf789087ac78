// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/crossword/lib/clock"
	"github.com/bureau-foundation/crossword/lib/config"
	"github.com/bureau-foundation/crossword/lib/crossword"
	"github.com/bureau-foundation/crossword/lib/ledger"
	"github.com/bureau-foundation/crossword/lib/process"
	"github.com/bureau-foundation/crossword/lib/registry"
	"github.com/bureau-foundation/crossword/lib/registry/memstore"
	"github.com/bureau-foundation/crossword/lib/registry/sqlitestore"
	"github.com/bureau-foundation/crossword/lib/service"
	"github.com/bureau-foundation/crossword/lib/token"
	"github.com/bureau-foundation/crossword/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		showVersion bool
	)
	flags := pflag.NewFlagSet("crossword-service", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "path to crossword.yaml (default: $CROSSWORD_CONFIG)")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Printf("crossword-service %s\n", version.Info())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))
	slog.SetDefault(logger)

	ctx, stop := process.SignalContext()
	defer stop()

	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	store, storeKind, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	clk := clock.Real()
	contract, err := crossword.New(crossword.Config{
		Store:      store,
		Clock:      clk,
		Logger:     logger,
		Registerer: metricsRegistry,
	})
	if err != nil {
		return err
	}

	genesis, err := genesisAccounts(cfg.Accounts)
	if err != nil {
		return err
	}
	if err := contract.Genesis(ctx, genesis); err != nil {
		return fmt.Errorf("funding genesis accounts: %w", err)
	}

	h := &host{
		contract:  contract,
		clock:     clk,
		startedAt: clk.Now(),
		storeKind: storeKind,
		logger:    logger,
	}

	server := service.NewSocketServer(cfg.Paths.Socket, logger, service.AuthConfig{
		MaxAge: cfg.MaxCallAgeDuration(),
		Clock:  clk,
	}, metricsRegistry)
	h.registerActions(server)

	// A failed metrics endpoint stops the socket server too.
	serveCtx, cancelServe := context.WithCancel(ctx)
	defer cancelServe()
	var metricsDone chan error
	if cfg.Service.MetricsAddress != "" {
		metrics := service.NewMetricsServer(service.MetricsServerConfig{
			Address:  cfg.Service.MetricsAddress,
			Gatherer: metricsRegistry,
			Logger:   logger,
		})
		metricsDone = make(chan error, 1)
		go func() {
			err := metrics.Serve(serveCtx)
			if err != nil {
				cancelServe()
			}
			metricsDone <- err
		}()
	}

	logger.Info("crossword service running",
		"version", version.Info(),
		"socket", cfg.Paths.Socket,
		"store", storeKind,
		"environment", cfg.Environment,
		"genesis_accounts", len(genesis),
	)

	serveErr := server.Serve(serveCtx)
	if metricsDone != nil {
		cancelServe()
		if err := <-metricsDone; err != nil {
			return fmt.Errorf("metrics endpoint: %w", err)
		}
	}
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return fmt.Errorf("serving: %w", serveErr)
	}
	logger.Info("shutting down")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openStore returns the SQLite store at paths.database, or an
// in-memory store when that is empty.
func openStore(cfg *config.Config, logger *slog.Logger) (registry.Store, string, error) {
	if cfg.Paths.Database == "" {
		logger.Warn("no database configured; registry state is lost on exit")
		return memstore.New(), "memory", nil
	}
	store, err := sqlitestore.Open(sqlitestore.Config{
		Path:    cfg.Paths.Database,
		Durable: cfg.Durable(),
		Logger:  logger,
	})
	if err != nil {
		return nil, "", fmt.Errorf("opening registry: %w", err)
	}
	return store, "sqlite", nil
}

func genesisAccounts(accounts []config.AccountConfig) ([]crossword.GenesisAccount, error) {
	genesis := make([]crossword.GenesisAccount, 0, len(accounts))
	for _, account := range accounts {
		key, err := token.Parse(account.Key)
		if err != nil {
			return nil, fmt.Errorf("genesis account %s: %w", account.Name, err)
		}
		genesis = append(genesis, crossword.GenesisAccount{
			Account: ledger.Account(account.Name),
			Key:     key,
			Balance: ledger.Amount(account.Balance),
		})
	}
	return genesis, nil
}
