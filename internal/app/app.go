package app

import (
	"context"
	"fmt"

	"github.com/addy-wilson/bentley-ave-transfer-risk-test/external/ncaa"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/config"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/domain/archive"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/infrastructure/export"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/infrastructure/repository/memory"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/infrastructure/repository/sqlite"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/platform/logging"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/platform/resilience"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/usecase"
)

// App wires the collector pipeline from configuration.
type App struct {
	cfg      config.Config
	pipeline *usecase.PipelineService
	archive  *sqlite.ArchiveRepository
	logger   *logging.Logger
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	client := ncaa.NewClient(ncaa.ClientConfig{
		BaseURL:         cfg.BaseURL,
		Sport:           cfg.Sport,
		Division:        cfg.Division,
		Timeout:         cfg.HTTPTimeout,
		MaxRetries:      cfg.MaxRetries,
		RequestInterval: cfg.RequestInterval,
		Logger:          logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.CircuitEnabled,
			FailureThreshold: cfg.CircuitFailureCount,
			OpenTimeout:      cfg.CircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.CircuitHalfOpenMaxReq,
		},
	})

	gameLogRepo := memory.NewGameLogRepository()

	var (
		archiveRepo  archive.Repository
		archiveStore *sqlite.ArchiveRepository
	)
	if cfg.ArchiveEnabled {
		store, err := sqlite.Open(cfg.ArchivePath)
		if err != nil {
			return nil, fmt.Errorf("open payload archive: %w", err)
		}
		archiveStore = store
		archiveRepo = store
	}

	collector := usecase.NewCollectService(client, gameLogRepo, archiveRepo, logger)
	aggregator := usecase.NewAggregateService(logger)
	labeler := usecase.NewLabelService(logger)
	exporter := export.NewCSVWriter(cfg.RawOutputPath, cfg.SeasonOutputPath)
	pipeline := usecase.NewPipelineService(collector, aggregator, labeler, gameLogRepo, exporter, logger)

	return &App{
		cfg:      cfg,
		pipeline: pipeline,
		archive:  archiveStore,
		logger:   logger,
	}, nil
}

// Run executes the full pipeline and returns its summary.
func (a *App) Run(ctx context.Context) (usecase.PipelineResult, error) {
	return a.pipeline.Run(ctx, usecase.CollectConfig{
		Seasons:         a.cfg.Seasons(),
		BoxscoreWorkers: a.cfg.BoxscoreWorkers,
	})
}

func (a *App) Close() error {
	if a.archive == nil {
		return nil
	}
	return a.archive.Close()
}
