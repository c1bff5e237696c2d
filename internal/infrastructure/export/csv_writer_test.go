package export

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/domain/gamelog"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/domain/seasonstats"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return records
}

func TestCSVWriter_WriteRaw(t *testing.T) {
	dir := t.TempDir()
	// Nested path exercises parent directory creation.
	rawPath := filepath.Join(dir, "data", "raw", "games.csv")
	w := NewCSVWriter(rawPath, filepath.Join(dir, "seasons.csv"))

	rows := []gamelog.GameRow{
		{
			GameID:        "6348656",
			GameDate:      time.Date(2024, 9, 14, 0, 0, 0, 0, time.UTC),
			Season:        2024,
			PlayerFirst:   "Ada",
			PlayerLast:    "Hegerberg",
			Team:          "Bentley",
			MinutesPlayed: 90,
			Goals:         2,
			Assists:       1,
			Shots:         5,
			ShotsOnGoal:   3,
			Started:       true,
			TeamWon:       true,
		},
	}
	if err := w.WriteRaw(context.Background(), rows); err != nil {
		t.Fatalf("write raw: %v", err)
	}

	records := readCSV(t, rawPath)
	if len(records) != 2 {
		t.Fatalf("expected header + 1 row, got %d records", len(records))
	}
	if records[0][0] != "game_id" || records[0][len(records[0])-1] != "team_won" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	got := records[1]
	if got[0] != "6348656" || got[1] != "2024-09-14" || got[2] != "2024" {
		t.Fatalf("unexpected game columns: %v", got)
	}
	if got[13] != "true" || got[17] != "true" {
		t.Fatalf("expected started and team_won true, got %v", got)
	}
}

func TestCSVWriter_WriteSeasonsFormatsRates(t *testing.T) {
	dir := t.TempDir()
	seasonPath := filepath.Join(dir, "seasons.csv")
	w := NewCSVWriter(filepath.Join(dir, "raw.csv"), seasonPath)

	recs := []seasonstats.PlayerSeason{
		{
			PlayerKey:         "ada|hegerberg",
			PlayerName:        "Ada Hegerberg",
			Season:            2023,
			Team:              "Bentley",
			GamesPlayed:       3,
			EstStarts:         2,
			StartRate:         2.0 / 3.0,
			TeamWins:          1,
			WinRate:           1.0 / 3.0,
			TotalMinutes:      250,
			Goals:             4,
			Assists:           1,
			ProductionPerGame: 1.5,
			Transferred:       true,
		},
	}
	if err := w.WriteSeasons(context.Background(), recs); err != nil {
		t.Fatalf("write seasons: %v", err)
	}

	records := readCSV(t, seasonPath)
	if len(records) != 2 {
		t.Fatalf("expected header + 1 row, got %d records", len(records))
	}
	got := records[1]
	if got[0] != "Ada Hegerberg" || got[1] != "2023" || got[2] != "Bentley" {
		t.Fatalf("unexpected identity columns: %v", got)
	}
	if got[5] != "0.6667" {
		t.Fatalf("start_rate not rendered with 4 decimals: %s", got[5])
	}
	if got[7] != "0.3333" {
		t.Fatalf("win_rate not rendered with 4 decimals: %s", got[7])
	}
	if got[13] != "1.5000" {
		t.Fatalf("production_per_game not rendered with 4 decimals: %s", got[13])
	}
	if got[14] != "true" || got[15] != "false" {
		t.Fatalf("unexpected label columns: %v", got)
	}
}

func TestCSVWriter_EmptyInputStillWritesHeader(t *testing.T) {
	dir := t.TempDir()
	rawPath := filepath.Join(dir, "raw.csv")
	w := NewCSVWriter(rawPath, filepath.Join(dir, "seasons.csv"))

	if err := w.WriteRaw(context.Background(), nil); err != nil {
		t.Fatalf("write raw: %v", err)
	}
	records := readCSV(t, rawPath)
	if len(records) != 1 {
		t.Fatalf("expected header only, got %d records", len(records))
	}
}
