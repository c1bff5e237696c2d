package ncaa

import (
	"bytes"
	"strconv"
	"strings"
)

type scheduleEnvelope struct {
	GameDates []scheduleDateItem `json:"gameDates"`
}

type scheduleDateItem struct {
	ContestDate string `json:"contest_date"` // "MM-DD-YYYY"
	Games       int    `json:"games"`
}

type scoreboardEnvelope struct {
	Games []scoreboardItem `json:"games"`
}

type scoreboardItem struct {
	Game scoreboardGame `json:"game"`
}

type scoreboardGame struct {
	// GameID is the short-form identifier. The boxscore endpoint rejects
	// it; the canonical ID must come from URL instead.
	GameID    string `json:"gameID"`
	URL       string `json:"url"` // "/game/6348656"
	StartDate string `json:"startDate"`
	GameState string `json:"gameState"`
}

type boxscoreEnvelope struct {
	Teams        []boxscoreTeam     `json:"teams"`
	TeamBoxscore []teamBoxscoreItem `json:"teamBoxscore"`
}

type boxscoreTeam struct {
	TeamID    flexString `json:"teamId"`
	NameFull  string     `json:"nameFull"`
	NameShort string     `json:"nameShort"`
	Seoname   string     `json:"seoname"`
	Score     flexInt    `json:"score"`
}

type teamBoxscoreItem struct {
	TeamID      flexString       `json:"teamId"`
	PlayerStats []playerStatItem `json:"playerStats"`
}

type playerStatItem struct {
	FirstName        string  `json:"firstName"`
	LastName         string  `json:"lastName"`
	Position         string  `json:"position"`
	MinutesPlayed    flexInt `json:"minutesPlayed"`
	Goals            flexInt `json:"goals"`
	Assists          flexInt `json:"assists"`
	Shots            flexInt `json:"shots"`
	ShotsOnGoal      flexInt `json:"shotsOnGoal"`
	YellowCards      flexInt `json:"yellowCards"`
	RedCards         flexInt `json:"redCards"`
	PKAttempts       flexInt `json:"penaltyKickAttempts"`
	PKGoals          flexInt `json:"penaltyKickGoals"`
	GameWinningGoals flexInt `json:"gameWinningGoals"`
}

// flexInt tolerates the source's loose typing: numbers arrive as JSON
// numbers, quoted strings, empty strings, or are absent. Anything
// non-numeric decodes to zero so a partial stat line never sinks the row.
type flexInt int

func (v *flexInt) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(bytes.Trim(bytes.TrimSpace(data), `"`)))
	if raw == "" || raw == "null" {
		*v = 0
		return nil
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*v = 0
		return nil
	}
	*v = flexInt(int(parsed))
	return nil
}

func (v flexInt) Int() int {
	return int(v)
}

// flexString tolerates identifiers serialized as either strings or numbers.
type flexString string

func (v *flexString) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if string(raw) == "null" {
		*v = ""
		return nil
	}
	*v = flexString(strings.TrimSpace(string(bytes.Trim(raw, `"`))))
	return nil
}

func (v flexString) String() string {
	return string(v)
}
