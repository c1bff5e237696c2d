package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/domain/archive"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/domain/gamelog"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/infrastructure/repository/memory"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/platform/logging"
)

type fakeProvider struct {
	mu sync.Mutex

	datesBySeason map[int][]gamelog.GameDate
	refsByDate    map[string][]gamelog.GameRef
	rowsByGame    map[string][]gamelog.GameRow

	scheduleErr map[int]error
	boxscoreErr map[string]error

	scoreboardCalls map[string]int
	boxscoreCalls   map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		datesBySeason:   make(map[int][]gamelog.GameDate),
		refsByDate:      make(map[string][]gamelog.GameRef),
		rowsByGame:      make(map[string][]gamelog.GameRow),
		scheduleErr:     make(map[int]error),
		boxscoreErr:     make(map[string]error),
		scoreboardCalls: make(map[string]int),
		boxscoreCalls:   make(map[string]int),
	}
}

func (p *fakeProvider) FetchGameDates(_ context.Context, season int) ([]gamelog.GameDate, []archive.Payload, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.scheduleErr[season]; err != nil {
		return nil, nil, err
	}
	payload := archive.Payload{EntityType: "schedule", EntityKey: fmt.Sprintf("/schedule/%d", season)}
	return p.datesBySeason[season], []archive.Payload{payload}, nil
}

func (p *fakeProvider) FetchScoreboard(_ context.Context, date gamelog.GameDate) ([]gamelog.GameRef, []archive.Payload, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scoreboardCalls[date.Path()]++
	payload := archive.Payload{EntityType: "scoreboard", EntityKey: "/scoreboard/" + date.Path()}
	return p.refsByDate[date.Path()], []archive.Payload{payload}, nil
}

func (p *fakeProvider) FetchBoxscore(_ context.Context, ref gamelog.GameRef) ([]gamelog.GameRow, []archive.Payload, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.boxscoreCalls[ref.ID]++
	if err := p.boxscoreErr[ref.ID]; err != nil {
		return nil, nil, err
	}
	payload := archive.Payload{EntityType: "boxscore", EntityKey: "/game/" + ref.ID + "/boxscore"}
	return p.rowsByGame[ref.ID], []archive.Payload{payload}, nil
}

type fakeArchive struct {
	mu       sync.Mutex
	payloads []archive.Payload
	done     map[int]map[string]struct{}
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{done: make(map[int]map[string]struct{})}
}

func (a *fakeArchive) UpsertPayloads(_ context.Context, items []archive.Payload) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.payloads = append(a.payloads, items...)
	return nil
}

func (a *fakeArchive) MarkDateDone(_ context.Context, season int, gameDate string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.done[season] == nil {
		a.done[season] = make(map[string]struct{})
	}
	a.done[season][gameDate] = struct{}{}
	return nil
}

func (a *fakeArchive) ListDoneDates(_ context.Context, season int) (map[string]struct{}, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]struct{}, len(a.done[season]))
	for k := range a.done[season] {
		out[k] = struct{}{}
	}
	return out, nil
}

func gameDate(season int, month time.Month, day int) gamelog.GameDate {
	return gamelog.GameDate{Season: season, Date: time.Date(season, month, day, 0, 0, 0, 0, time.UTC)}
}

func playerRow(ref gamelog.GameRef, first, last, team string, minutes int, won bool) gamelog.GameRow {
	return gamelog.GameRow{
		GameID:        ref.ID,
		GameDate:      ref.Date.Date,
		Season:        ref.Date.Season,
		PlayerFirst:   first,
		PlayerLast:    last,
		Team:          team,
		MinutesPlayed: minutes,
		Started:       minutes >= 60,
		TeamWon:       won,
	}
}

func TestCollectService_Run_TraversesSeasonsDatesGames(t *testing.T) {
	provider := newFakeProvider()
	sep14 := gameDate(2024, time.September, 14)
	sep15 := gameDate(2024, time.September, 15)
	provider.datesBySeason[2024] = []gamelog.GameDate{sep14, sep15}

	ref1 := gamelog.GameRef{ID: "6348656", Date: sep14}
	ref2 := gamelog.GameRef{ID: "6348657", Date: sep15}
	provider.refsByDate[sep14.Path()] = []gamelog.GameRef{ref1}
	// ref1 reappears on the next date and must be fetched only once.
	provider.refsByDate[sep15.Path()] = []gamelog.GameRef{ref1, ref2}

	provider.rowsByGame[ref1.ID] = []gamelog.GameRow{
		playerRow(ref1, "Ada", "Hegerberg", "Bentley", 90, true),
		playerRow(ref1, "Sam", "Kerr", "Merrimack", 85, false),
	}
	provider.rowsByGame[ref2.ID] = []gamelog.GameRow{
		playerRow(ref2, "Ada", "Hegerberg", "Bentley", 45, false),
	}

	repo := memory.NewGameLogRepository()
	svc := NewCollectService(provider, repo, nil, logging.NewNop())

	result, err := svc.Run(context.Background(), CollectConfig{Seasons: []int{2024}, BoxscoreWorkers: 2})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.Seasons != 1 || result.FailedSeasons != 0 {
		t.Fatalf("unexpected season counts: %+v", result)
	}
	if result.Dates != 2 || result.SkippedDates != 0 {
		t.Fatalf("unexpected date counts: %+v", result)
	}
	if result.Games != 2 || result.DuplicateGames != 1 || result.FailedGames != 0 {
		t.Fatalf("unexpected game counts: %+v", result)
	}
	if result.RowsCollected != 3 || result.RowsKept != 3 {
		t.Fatalf("unexpected row counts: %+v", result)
	}
	if got := provider.boxscoreCalls[ref1.ID]; got != 1 {
		t.Fatalf("expected one boxscore fetch for repeated game, got %d", got)
	}

	total, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 accumulated rows, got %d", total)
	}
}

func TestCollectService_Run_SecondRunIsIdempotent(t *testing.T) {
	provider := newFakeProvider()
	sep14 := gameDate(2024, time.September, 14)
	provider.datesBySeason[2024] = []gamelog.GameDate{sep14}
	ref := gamelog.GameRef{ID: "6348656", Date: sep14}
	provider.refsByDate[sep14.Path()] = []gamelog.GameRef{ref}
	provider.rowsByGame[ref.ID] = []gamelog.GameRow{
		playerRow(ref, "Ada", "Hegerberg", "Bentley", 90, true),
	}

	repo := memory.NewGameLogRepository()
	svc := NewCollectService(provider, repo, nil, logging.NewNop())
	cfg := CollectConfig{Seasons: []int{2024}, BoxscoreWorkers: 1}

	if _, err := svc.Run(context.Background(), cfg); err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := svc.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if second.RowsCollected != 1 || second.RowsKept != 0 {
		t.Fatalf("expected re-fetched rows to dedupe away, got %+v", second)
	}
	total, _ := repo.Count(context.Background())
	if total != 1 {
		t.Fatalf("expected 1 row after re-run, got %d", total)
	}
}

func TestCollectService_Run_FailedSeasonIsSkipped(t *testing.T) {
	provider := newFakeProvider()
	provider.scheduleErr[2022] = fmt.Errorf("%w: schedule unreachable", ErrFetch)
	oct1 := gameDate(2023, time.October, 1)
	provider.datesBySeason[2023] = []gamelog.GameDate{oct1}
	ref := gamelog.GameRef{ID: "7000001", Date: oct1}
	provider.refsByDate[oct1.Path()] = []gamelog.GameRef{ref}
	provider.rowsByGame[ref.ID] = []gamelog.GameRow{
		playerRow(ref, "B", "C", "Team", 70, true),
	}

	repo := memory.NewGameLogRepository()
	svc := NewCollectService(provider, repo, nil, logging.NewNop())

	result, err := svc.Run(context.Background(), CollectConfig{Seasons: []int{2022, 2023}, BoxscoreWorkers: 1})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.FailedSeasons != 1 || result.RowsKept != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestCollectService_Run_AllSeasonsFailed(t *testing.T) {
	provider := newFakeProvider()
	provider.scheduleErr[2023] = fmt.Errorf("%w: down", ErrFetch)
	provider.scheduleErr[2024] = fmt.Errorf("%w: down", ErrFetch)

	svc := NewCollectService(provider, memory.NewGameLogRepository(), nil, logging.NewNop())

	_, err := svc.Run(context.Background(), CollectConfig{Seasons: []int{2023, 2024}, BoxscoreWorkers: 1})
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}

func TestCollectService_Run_NoSeasonsConfigured(t *testing.T) {
	svc := NewCollectService(newFakeProvider(), memory.NewGameLogRepository(), nil, logging.NewNop())

	_, err := svc.Run(context.Background(), CollectConfig{})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestCollectService_Run_FailedBoxscoreSkipsGameOnly(t *testing.T) {
	provider := newFakeProvider()
	sep14 := gameDate(2024, time.September, 14)
	provider.datesBySeason[2024] = []gamelog.GameDate{sep14}
	good := gamelog.GameRef{ID: "1", Date: sep14}
	bad := gamelog.GameRef{ID: "2", Date: sep14}
	provider.refsByDate[sep14.Path()] = []gamelog.GameRef{good, bad}
	provider.rowsByGame[good.ID] = []gamelog.GameRow{
		playerRow(good, "Ada", "Hegerberg", "Bentley", 90, true),
	}
	provider.boxscoreErr[bad.ID] = fmt.Errorf("%w: boxscore 500", ErrFetch)

	repo := memory.NewGameLogRepository()
	svc := NewCollectService(provider, repo, nil, logging.NewNop())

	result, err := svc.Run(context.Background(), CollectConfig{Seasons: []int{2024}, BoxscoreWorkers: 2})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Games != 2 || result.FailedGames != 1 {
		t.Fatalf("unexpected game counts: %+v", result)
	}
	if result.RowsKept != 1 {
		t.Fatalf("expected surviving game's rows kept, got %+v", result)
	}
}

func TestCollectService_Run_CheckpointedDatesAreSkipped(t *testing.T) {
	provider := newFakeProvider()
	sep14 := gameDate(2024, time.September, 14)
	sep15 := gameDate(2024, time.September, 15)
	provider.datesBySeason[2024] = []gamelog.GameDate{sep14, sep15}
	ref := gamelog.GameRef{ID: "9", Date: sep15}
	provider.refsByDate[sep15.Path()] = []gamelog.GameRef{ref}
	provider.rowsByGame[ref.ID] = []gamelog.GameRow{
		playerRow(ref, "Ada", "Hegerberg", "Bentley", 90, true),
	}

	store := newFakeArchive()
	if err := store.MarkDateDone(context.Background(), 2024, sep14.Path()); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	svc := NewCollectService(provider, memory.NewGameLogRepository(), store, logging.NewNop())

	result, err := svc.Run(context.Background(), CollectConfig{Seasons: []int{2024}, BoxscoreWorkers: 1})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.CheckpointedDates != 1 {
		t.Fatalf("expected 1 checkpointed date, got %+v", result)
	}
	if got := provider.scoreboardCalls[sep14.Path()]; got != 0 {
		t.Fatalf("checkpointed date must not be fetched, got %d calls", got)
	}
	if _, ok := store.done[2024][sep15.Path()]; !ok {
		t.Fatalf("freshly collected date must be checkpointed")
	}
	if len(store.payloads) == 0 {
		t.Fatalf("expected archived payloads")
	}
}

func TestCollectService_Run_FailedGameLeavesDateUncheckpointed(t *testing.T) {
	provider := newFakeProvider()
	sep14 := gameDate(2024, time.September, 14)
	provider.datesBySeason[2024] = []gamelog.GameDate{sep14}
	good := gamelog.GameRef{ID: "1", Date: sep14}
	bad := gamelog.GameRef{ID: "2", Date: sep14}
	provider.refsByDate[sep14.Path()] = []gamelog.GameRef{good, bad}
	provider.rowsByGame[good.ID] = []gamelog.GameRow{
		playerRow(good, "Ada", "Hegerberg", "Bentley", 90, true),
	}
	provider.boxscoreErr[bad.ID] = fmt.Errorf("%w: boxscore 503", ErrFetch)

	store := newFakeArchive()
	repo := memory.NewGameLogRepository()
	svc := NewCollectService(provider, repo, store, logging.NewNop())
	cfg := CollectConfig{Seasons: []int{2024}, BoxscoreWorkers: 2}

	first, err := svc.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.FailedGames != 1 || first.RowsKept != 1 {
		t.Fatalf("unexpected first result: %+v", first)
	}
	if _, ok := store.done[2024][sep14.Path()]; ok {
		t.Fatalf("date with a failed boxscore must not be checkpointed")
	}

	// The source recovers; the restarted run retries the date and only the
	// previously failed game contributes new rows.
	delete(provider.boxscoreErr, bad.ID)
	provider.rowsByGame[bad.ID] = []gamelog.GameRow{
		playerRow(bad, "Sam", "Kerr", "Merrimack", 80, false),
	}

	second, err := svc.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.RowsKept != 1 {
		t.Fatalf("expected only the recovered game's rows kept, got %+v", second)
	}
	if _, ok := store.done[2024][sep14.Path()]; !ok {
		t.Fatalf("fully collected date must be checkpointed")
	}
	total, _ := repo.Count(context.Background())
	if total != 2 {
		t.Fatalf("expected 2 rows after recovery, got %d", total)
	}
}

func TestCollectService_Run_HonorsCancellation(t *testing.T) {
	provider := newFakeProvider()
	provider.datesBySeason[2024] = []gamelog.GameDate{gameDate(2024, time.September, 14)}

	svc := NewCollectService(provider, memory.NewGameLogRepository(), nil, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx, CollectConfig{Seasons: []int{2024}, BoxscoreWorkers: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
