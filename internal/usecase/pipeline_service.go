package usecase

import (
	"context"
	"fmt"

	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/domain/gamelog"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/domain/seasonstats"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/platform/logging"
)

// DatasetExporter persists the two run artifacts.
type DatasetExporter interface {
	seasonstats.Writer
	WriteRaw(ctx context.Context, rows []gamelog.GameRow) error
}

// PipelineService runs the stages in order: collect, aggregate, label,
// export. Data flows strictly forward; no stage reads ahead or mutates
// upstream output.
type PipelineService struct {
	collector  *CollectService
	aggregator *AggregateService
	labeler    *LabelService
	log        gamelog.Repository
	exporter   DatasetExporter
	logger     *logging.Logger
}

type PipelineResult struct {
	Collect       CollectResult
	RawRows       int
	SeasonRecords int
}

func NewPipelineService(
	collector *CollectService,
	aggregator *AggregateService,
	labeler *LabelService,
	log gamelog.Repository,
	exporter DatasetExporter,
	logger *logging.Logger,
) *PipelineService {
	if logger == nil {
		logger = logging.Default()
	}
	return &PipelineService{
		collector:  collector,
		aggregator: aggregator,
		labeler:    labeler,
		log:        log,
		exporter:   exporter,
		logger:     logger,
	}
}

func (s *PipelineService) Run(ctx context.Context, cfg CollectConfig) (PipelineResult, error) {
	ctx, span := startRunSpan(ctx, "usecase.PipelineService.Run")
	defer span.End()

	if s.collector == nil || s.aggregator == nil || s.labeler == nil || s.log == nil || s.exporter == nil {
		return PipelineResult{}, fmt.Errorf("%w: pipeline is not fully configured", ErrDependencyUnavailable)
	}

	collectResult, err := s.collector.Run(ctx, cfg)
	if err != nil {
		return PipelineResult{Collect: collectResult}, err
	}

	rows, err := s.log.ListAll(ctx)
	if err != nil {
		return PipelineResult{Collect: collectResult}, fmt.Errorf("list collected rows: %w", err)
	}

	records := s.aggregator.Aggregate(ctx, rows)
	labeled, err := s.labeler.Label(ctx, records)
	if err != nil {
		return PipelineResult{Collect: collectResult}, fmt.Errorf("label season records: %w", err)
	}

	if err := s.exporter.WriteRaw(ctx, rows); err != nil {
		return PipelineResult{Collect: collectResult}, fmt.Errorf("write raw dataset: %w", err)
	}
	if err := s.exporter.WriteSeasons(ctx, labeled); err != nil {
		return PipelineResult{Collect: collectResult}, fmt.Errorf("write season dataset: %w", err)
	}

	result := PipelineResult{
		Collect:       collectResult,
		RawRows:       len(rows),
		SeasonRecords: len(labeled),
	}
	s.logger.InfoContext(ctx, "pipeline finished",
		"raw_rows", result.RawRows,
		"season_records", result.SeasonRecords,
	)
	return result, nil
}
