package seasonstats

// PlayerSeason is one player's aggregated line for one season, plus the
// season-over-season labels attached by the labeling pass.
type PlayerSeason struct {
	PlayerKey  string
	PlayerName string
	Season     int
	// Team is the team of record: the team with the most games for this
	// player in this season, recency-broken on ties. A mid-season move is
	// folded into this single value and not flagged separately.
	Team              string
	GamesPlayed       int
	EstStarts         int
	StartRate         float64
	TeamWins          int
	WinRate           float64
	TotalMinutes      int
	Goals             int
	Assists           int
	Shots             int
	ShotsOnGoal       int
	ProductionPerGame float64
	// Transferred and LeftProgram are mutually exclusive. Both stay false
	// for the final collected season, which has no next season to compare
	// against.
	Transferred bool
	LeftProgram bool
}
