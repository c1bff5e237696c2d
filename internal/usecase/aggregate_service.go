package usecase

import (
	"context"
	"sort"

	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/domain/gamelog"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/domain/seasonstats"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/platform/logging"
)

// AggregateService rolls game rows up to one record per player per season.
// It runs single-threaded over the whole collected dataset after all
// fetches complete; there is no streaming or incremental path.
type AggregateService struct {
	logger *logging.Logger
}

func NewAggregateService(logger *logging.Logger) *AggregateService {
	if logger == nil {
		logger = logging.Default()
	}
	return &AggregateService{logger: logger}
}

func (s *AggregateService) Aggregate(ctx context.Context, rows []gamelog.GameRow) []seasonstats.PlayerSeason {
	_, span := startUsecaseSpan(ctx, "usecase.AggregateService.Aggregate")
	defer span.End()

	type groupKey struct {
		playerKey string
		season    int
	}
	groups := make(map[groupKey][]gamelog.GameRow, len(rows)/8+1)
	for _, row := range rows {
		key := groupKey{playerKey: row.PlayerKey(), season: row.Season}
		groups[key] = append(groups[key], row)
	}

	out := make([]seasonstats.PlayerSeason, 0, len(groups))
	for key, group := range groups {
		if len(group) == 0 {
			// Unreachable given how groups are built; report, never crash.
			s.logger.WarnContext(ctx, "empty player-season group skipped",
				"player", key.playerKey,
				"season", key.season,
			)
			continue
		}

		record := seasonstats.PlayerSeason{
			PlayerKey:   key.playerKey,
			Season:      key.season,
			Team:        teamOfRecord(group),
			GamesPlayed: len(group),
		}

		latest := group[0]
		for _, row := range group {
			if row.GameDate.After(latest.GameDate) {
				latest = row
			}
			if row.Started {
				record.EstStarts++
			}
			if row.TeamWon {
				record.TeamWins++
			}
			record.TotalMinutes += row.MinutesPlayed
			record.Goals += row.Goals
			record.Assists += row.Assists
			record.Shots += row.Shots
			record.ShotsOnGoal += row.ShotsOnGoal
		}
		record.PlayerName = displayName(latest)

		games := float64(record.GamesPlayed)
		record.StartRate = float64(record.EstStarts) / games
		record.WinRate = float64(record.TeamWins) / games
		record.ProductionPerGame = (float64(record.Goals) + 0.5*float64(record.Assists)) / games

		out = append(out, record)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Season != out[j].Season {
			return out[i].Season < out[j].Season
		}
		return out[i].PlayerKey < out[j].PlayerKey
	})
	return out
}

// teamOfRecord picks the single team credited with a player's season: the
// team with the most games, ties broken by most recent game date, then by
// name for determinism. A mid-season move is folded into this one value and
// is not flagged as a transfer event; the policy lives here alone so it can
// be swapped without touching the aggregation above.
func teamOfRecord(rows []gamelog.GameRow) string {
	type teamTally struct {
		games  int
		latest int64
	}
	tallies := make(map[string]teamTally, 2)
	for _, row := range rows {
		tally := tallies[row.Team]
		tally.games++
		if ts := row.GameDate.Unix(); ts > tally.latest {
			tally.latest = ts
		}
		tallies[row.Team] = tally
	}

	var best string
	var bestTally teamTally
	for team, tally := range tallies {
		switch {
		case best == "",
			tally.games > bestTally.games,
			tally.games == bestTally.games && tally.latest > bestTally.latest,
			tally.games == bestTally.games && tally.latest == bestTally.latest && team < best:
			best = team
			bestTally = tally
		}
	}
	return best
}

func displayName(row gamelog.GameRow) string {
	switch {
	case row.PlayerFirst == "":
		return row.PlayerLast
	case row.PlayerLast == "":
		return row.PlayerFirst
	default:
		return row.PlayerFirst + " " + row.PlayerLast
	}
}
