package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/domain/archive"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/domain/gamelog"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/platform/logging"
)

// StatsProvider is the remote boxscore source: schedule, scoreboard and
// boxscore lookups, each returning the raw payloads it consumed so the run
// can archive them.
type StatsProvider interface {
	FetchGameDates(ctx context.Context, season int) ([]gamelog.GameDate, []archive.Payload, error)
	FetchScoreboard(ctx context.Context, date gamelog.GameDate) ([]gamelog.GameRef, []archive.Payload, error)
	FetchBoxscore(ctx context.Context, ref gamelog.GameRef) ([]gamelog.GameRow, []archive.Payload, error)
}

type CollectConfig struct {
	Seasons         []int
	BoxscoreWorkers int
}

type CollectResult struct {
	Seasons           int
	FailedSeasons     int
	Dates             int
	SkippedDates      int
	CheckpointedDates int
	Games             int
	FailedGames       int
	DuplicateGames    int
	RowsCollected     int
	RowsKept          int
}

// CollectService drives the fetch traversal: seasons, dates per season,
// games per date. Schedule and scoreboard calls stay sequential (the source
// is rate limited and each stage feeds the next); only boxscore calls for
// independent game refs fan out through a bounded worker pool.
type CollectService struct {
	provider StatsProvider
	log      gamelog.Repository
	archive  archive.Repository
	logger   *logging.Logger
}

// NewCollectService builds the collector. archiveRepo may be nil, which
// disables payload archiving and date checkpoints.
func NewCollectService(
	provider StatsProvider,
	log gamelog.Repository,
	archiveRepo archive.Repository,
	logger *logging.Logger,
) *CollectService {
	if logger == nil {
		logger = logging.Default()
	}
	return &CollectService{
		provider: provider,
		log:      log,
		archive:  archiveRepo,
		logger:   logger,
	}
}

type boxscoreOutcome struct {
	ref      gamelog.GameRef
	rows     []gamelog.GameRow
	payloads []archive.Payload
	err      error
}

func (s *CollectService) Run(ctx context.Context, cfg CollectConfig) (CollectResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CollectService.Run")
	defer span.End()

	if s.provider == nil || s.log == nil {
		return CollectResult{}, fmt.Errorf("%w: collector is not fully configured", ErrDependencyUnavailable)
	}
	if len(cfg.Seasons) == 0 {
		return CollectResult{}, fmt.Errorf("%w: no seasons configured", ErrInvalidConfig)
	}

	workers := cfg.BoxscoreWorkers
	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return CollectResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	result := CollectResult{Seasons: len(cfg.Seasons)}
	seenGames := make(map[string]struct{}, 2048)

	for _, season := range cfg.Seasons {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		dates, payloads, err := s.provider.FetchGameDates(ctx, season)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.FailedSeasons++
			s.logger.ErrorContext(ctx, "season schedule unavailable, skipping season",
				"season", season,
				"error", err,
			)
			continue
		}
		s.savePayloads(ctx, payloads)
		s.logger.InfoContext(ctx, "season schedule fetched", "season", season, "dates", len(dates))

		done := s.doneDates(ctx, season)
		for _, date := range dates {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Dates++

			if _, ok := done[date.Path()]; ok {
				result.CheckpointedDates++
				continue
			}

			failedBefore := result.FailedGames
			if err := s.collectDate(ctx, pool, date, seenGames, &result); err != nil {
				if ctx.Err() != nil {
					return result, ctx.Err()
				}
				result.SkippedDates++
				s.logger.WarnContext(ctx, "date skipped",
					"season", season,
					"date", date.Path(),
					"error", err,
				)
				continue
			}
			if result.FailedGames > failedBefore {
				// A date with any failed boxscore stays unmarked so a
				// restarted run retries it; row dedupe keeps the
				// re-fetched overlap idempotent.
				continue
			}
			s.markDateDone(ctx, date)
		}
	}

	if result.FailedSeasons == result.Seasons {
		return result, fmt.Errorf("%w: no season schedule could be fetched", ErrDependencyUnavailable)
	}

	s.logger.InfoContext(ctx, "collection finished",
		"seasons", result.Seasons,
		"failed_seasons", result.FailedSeasons,
		"dates", result.Dates,
		"skipped_dates", result.SkippedDates,
		"checkpointed_dates", result.CheckpointedDates,
		"games", result.Games,
		"failed_games", result.FailedGames,
		"duplicate_games", result.DuplicateGames,
		"rows_collected", result.RowsCollected,
		"rows_kept", result.RowsKept,
	)
	return result, nil
}

func (s *CollectService) collectDate(
	ctx context.Context,
	pool *ants.Pool,
	date gamelog.GameDate,
	seenGames map[string]struct{},
	result *CollectResult,
) error {
	refs, payloads, err := s.provider.FetchScoreboard(ctx, date)
	if err != nil {
		return err
	}
	s.savePayloads(ctx, payloads)

	// The same game can appear on two scoreboard dates (postponements,
	// re-fetched retries); fetch each canonical ID once per run.
	fresh := make([]gamelog.GameRef, 0, len(refs))
	for _, ref := range refs {
		if _, ok := seenGames[ref.ID]; ok {
			result.DuplicateGames++
			continue
		}
		seenGames[ref.ID] = struct{}{}
		fresh = append(fresh, ref)
	}
	if len(fresh) == 0 {
		return nil
	}

	outcomes := make(chan boxscoreOutcome, len(fresh))
	var failed atomic.Int32
	var workers sync.WaitGroup

	for _, ref := range fresh {
		ref := ref
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			rows, rowPayloads, err := s.provider.FetchBoxscore(ctx, ref)
			if err != nil {
				failed.Add(1)
			}
			outcomes <- boxscoreOutcome{ref: ref, rows: rows, payloads: rowPayloads, err: err}
		}); err != nil {
			workers.Done()
			return fmt.Errorf("submit boxscore fetch to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(outcomes)

	rows := make([]gamelog.GameRow, 0, len(fresh)*24)
	for outcome := range outcomes {
		result.Games++
		if outcome.err != nil {
			s.logger.WarnContext(ctx, "boxscore fetch failed, game skipped",
				"season", date.Season,
				"date", date.Path(),
				"game_id", outcome.ref.ID,
				"error", outcome.err,
			)
			continue
		}
		rows = append(rows, outcome.rows...)
		s.savePayloads(ctx, outcome.payloads)
	}
	result.FailedGames += int(failed.Load())
	result.RowsCollected += len(rows)

	if len(rows) > 0 {
		kept, err := s.log.UpsertRows(ctx, rows)
		if err != nil {
			return fmt.Errorf("accumulate game rows: %w", err)
		}
		result.RowsKept += kept
	}

	return nil
}

func (s *CollectService) savePayloads(ctx context.Context, payloads []archive.Payload) {
	if s.archive == nil || len(payloads) == 0 {
		return
	}
	if err := s.archive.UpsertPayloads(ctx, payloads); err != nil {
		s.logger.WarnContext(ctx, "archive payloads failed", "count", len(payloads), "error", err)
	}
}

func (s *CollectService) doneDates(ctx context.Context, season int) map[string]struct{} {
	if s.archive == nil {
		return nil
	}
	done, err := s.archive.ListDoneDates(ctx, season)
	if err != nil {
		s.logger.WarnContext(ctx, "list date checkpoints failed", "season", season, "error", err)
		return nil
	}
	return done
}

func (s *CollectService) markDateDone(ctx context.Context, date gamelog.GameDate) {
	if s.archive == nil {
		return
	}
	if err := s.archive.MarkDateDone(ctx, date.Season, date.Path()); err != nil {
		s.logger.WarnContext(ctx, "mark date checkpoint failed",
			"season", date.Season,
			"date", date.Path(),
			"error", err,
		)
	}
}
