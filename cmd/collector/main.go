package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/app"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/config"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/observability"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/platform/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// os.Exit skips defers, so all cleanup-bearing work lives in run.
	os.Exit(run(cfg))
}

func run(cfg config.Config) int {
	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing("wsoccer-collector", logger)
	if err != nil {
		logger.Error("init tracing", "error", err)
		return 1
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("shutdown tracing", "error", err)
		}
	}()

	collector, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		return 1
	}
	defer func() {
		if err := collector.Close(); err != nil {
			logger.Warn("close app", "error", err)
		}
	}()

	logger.Info("collector starting",
		"first_season", cfg.FirstSeason,
		"last_season", cfg.LastSeason,
		"base_url", cfg.BaseURL,
	)

	result, err := collector.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("collector interrupted", "error", err)
			return 130
		}
		logger.Error("collector failed", "error", err)
		return 1
	}

	logger.Info("collector finished",
		"seasons", result.Collect.Seasons,
		"dates", result.Collect.Dates,
		"games", result.Collect.Games,
		"failed_games", result.Collect.FailedGames,
		"raw_rows", result.RawRows,
		"season_records", result.SeasonRecords,
	)
	return 0
}
