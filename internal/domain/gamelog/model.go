package gamelog

import (
	"fmt"
	"strings"
	"time"
)

// GameDate is one calendar day with at least one scheduled game in a season.
type GameDate struct {
	Season int
	Date   time.Time
}

// Path renders the date segment used by the scoreboard endpoint.
func (d GameDate) Path() string {
	return d.Date.Format("2006/01/02")
}

// GameRef is the canonical identifier of a single game. ID is the 7-digit
// value parsed from the scoreboard entry's URL; the short-form gameID field
// of the same entry is not interchangeable with it.
type GameRef struct {
	ID   string
	Date GameDate
}

// GameRow is one player's line in one game's boxscore.
type GameRow struct {
	GameID           string
	GameDate         time.Time
	Season           int
	PlayerFirst      string
	PlayerLast       string
	Team             string
	MinutesPlayed    int
	Goals            int
	Assists          int
	Shots            int
	ShotsOnGoal      int
	YellowCards      int
	RedCards         int
	Started          bool
	PKAttempts       int
	PKGoals          int
	GameWinningGoals int
	TeamWon          bool
}

// PlayerKey is the cross-season player identity. Names are the only stable
// handle the source exposes across teams, so the key is name-only; two
// distinct players sharing a full name collapse into one (known-approximate).
func (r GameRow) PlayerKey() string {
	return NormalizePlayerKey(r.PlayerFirst, r.PlayerLast)
}

// DedupeKey identifies one player's appearance in one game. Team is part of
// the key so a shared name on both rosters never drops a legitimate row.
func (r GameRow) DedupeKey() string {
	return fmt.Sprintf("%s|%s|%s", r.PlayerKey(), normalizeToken(r.Team), r.GameID)
}

func NormalizePlayerKey(first, last string) string {
	return normalizeToken(first) + "|" + normalizeToken(last)
}

func normalizeToken(v string) string {
	return strings.ToLower(strings.Join(strings.Fields(v), " "))
}
