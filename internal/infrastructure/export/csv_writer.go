package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/domain/gamelog"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/domain/seasonstats"
)

var rawHeader = []string{
	"game_id", "game_date", "season",
	"player_first", "player_last", "team",
	"minutes_played", "goals", "assists", "shots", "shots_on_goal",
	"yellow_cards", "red_cards", "started",
	"pk_attempts", "pk_goals", "game_winning_goals", "team_won",
}

var seasonHeader = []string{
	"player", "season", "team",
	"games_played", "est_starts", "start_rate",
	"team_wins", "win_rate", "total_minutes",
	"goals", "assists", "shots", "shots_on_goal",
	"production_per_game", "transferred", "left_program",
}

// CSVWriter writes the raw game-log and player-season datasets as CSV files.
type CSVWriter struct {
	rawPath    string
	seasonPath string
}

func NewCSVWriter(rawPath, seasonPath string) *CSVWriter {
	return &CSVWriter{rawPath: rawPath, seasonPath: seasonPath}
}

func (w *CSVWriter) WriteRaw(ctx context.Context, rows []gamelog.GameRow) error {
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, []string{
			row.GameID,
			row.GameDate.Format("2006-01-02"),
			strconv.Itoa(row.Season),
			row.PlayerFirst,
			row.PlayerLast,
			row.Team,
			strconv.Itoa(row.MinutesPlayed),
			strconv.Itoa(row.Goals),
			strconv.Itoa(row.Assists),
			strconv.Itoa(row.Shots),
			strconv.Itoa(row.ShotsOnGoal),
			strconv.Itoa(row.YellowCards),
			strconv.Itoa(row.RedCards),
			strconv.FormatBool(row.Started),
			strconv.Itoa(row.PKAttempts),
			strconv.Itoa(row.PKGoals),
			strconv.Itoa(row.GameWinningGoals),
			strconv.FormatBool(row.TeamWon),
		})
	}
	return writeFile(ctx, w.rawPath, rawHeader, records)
}

func (w *CSVWriter) WriteSeasons(ctx context.Context, records []seasonstats.PlayerSeason) error {
	out := make([][]string, 0, len(records))
	for _, rec := range records {
		out = append(out, []string{
			rec.PlayerName,
			strconv.Itoa(rec.Season),
			rec.Team,
			strconv.Itoa(rec.GamesPlayed),
			strconv.Itoa(rec.EstStarts),
			formatRate(rec.StartRate),
			strconv.Itoa(rec.TeamWins),
			formatRate(rec.WinRate),
			strconv.Itoa(rec.TotalMinutes),
			strconv.Itoa(rec.Goals),
			strconv.Itoa(rec.Assists),
			strconv.Itoa(rec.Shots),
			strconv.Itoa(rec.ShotsOnGoal),
			formatRate(rec.ProductionPerGame),
			strconv.FormatBool(rec.Transferred),
			strconv.FormatBool(rec.LeftProgram),
		})
	}
	return writeFile(ctx, w.seasonPath, seasonHeader, out)
}

func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func writeFile(ctx context.Context, path string, header []string, records [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header %s: %w", path, err)
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write rows %s: %w", path, err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
