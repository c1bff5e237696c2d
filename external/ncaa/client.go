package ncaa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/domain/archive"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/domain/gamelog"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/platform/logging"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/platform/resilience"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/usecase"
)

const (
	defaultBaseURL         = "https://ncaa-api.henrygd.me"
	defaultSport           = "soccer-women"
	defaultDivision        = "d1"
	defaultRequestInterval = 220 * time.Millisecond
	maxResponseBytes       = 6 << 20

	startMinutesThreshold = 60
)

// The competition window runs August through November; the schedule
// endpoint is month-scoped so the season fetch walks these four months.
var seasonMonths = []time.Month{time.August, time.September, time.October, time.November}

var gameURLRegex = regexp.MustCompile(`/game/(\d+)(?:/|$)`)

var errNCAATransient = crerr.New("ncaa transient failure")

type ClientConfig struct {
	HTTPClient      *http.Client
	BaseURL         string
	Sport           string
	Division        string
	Timeout         time.Duration
	MaxRetries      int
	RequestInterval time.Duration
	Logger          *logging.Logger
	CircuitBreaker  resilience.CircuitBreakerConfig
}

// Client talks to the public NCAA stats API. It paces requests to stay
// inside the source's rate budget, retries transient failures with backoff,
// and trips a circuit breaker when the source keeps failing.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	sport           string
	division        string
	maxRetries      int
	requestInterval time.Duration
	logger          *logging.Logger
	breaker         *resilience.CircuitBreaker
	circuitEnabled  bool
	flight          resilience.SingleFlight

	paceMu      sync.Mutex
	lastRequest time.Time
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	sport := strings.TrimSpace(cfg.Sport)
	if sport == "" {
		sport = defaultSport
	}
	division := strings.TrimSpace(cfg.Division)
	if division == "" {
		division = defaultDivision
	}
	requestInterval := cfg.RequestInterval
	if requestInterval < 0 {
		requestInterval = defaultRequestInterval
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:      httpClient,
		baseURL:         baseURL,
		sport:           sport,
		division:        division,
		maxRetries:      maxInt(cfg.MaxRetries, 0),
		requestInterval: requestInterval,
		logger:          logger,
		breaker:         resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled:  breakerCfg.Enabled,
	}
}

// FetchGameDates returns the ordered distinct dates with at least one game
// inside the season window (Aug 1 – Nov 30) of the given season year. A
// failed month is skipped with a warning; the call errors only when every
// month of the season fails.
func (c *Client) FetchGameDates(ctx context.Context, season int) ([]gamelog.GameDate, []archive.Payload, error) {
	if season <= 0 {
		return nil, nil, fmt.Errorf("%w: season year must be greater than zero", usecase.ErrInvalidConfig)
	}

	windowStart := time.Date(season, time.August, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(season, time.November, 30, 0, 0, 0, 0, time.UTC)

	payloads := make([]archive.Payload, 0, len(seasonMonths))
	seen := make(map[string]struct{}, 64)
	dates := make([]gamelog.GameDate, 0, 64)
	failedMonths := 0

	for _, month := range seasonMonths {
		path := fmt.Sprintf("/schedule/%s/%s/%d/%02d", c.sport, c.division, season, int(month))

		var envelope scheduleEnvelope
		raw, err := c.doJSON(ctx, path, &envelope)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			failedMonths++
			c.logger.WarnContext(ctx, "fetch schedule month failed, continuing with remaining months",
				"season", season,
				"month", int(month),
				"error", err,
			)
			continue
		}
		payloads = append(payloads, buildPayload("schedule", path, raw))

		for _, item := range envelope.GameDates {
			if item.Games <= 0 {
				continue
			}
			parsed, err := time.Parse("01-02-2006", strings.TrimSpace(item.ContestDate))
			if err != nil {
				c.logger.WarnContext(ctx, "skip unparsable contest date",
					"season", season,
					"contest_date", item.ContestDate,
					"error", fmt.Errorf("%w: %v", usecase.ErrParse, err),
				)
				continue
			}
			if parsed.Before(windowStart) || parsed.After(windowEnd) {
				continue
			}
			key := parsed.Format("2006-01-02")
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			dates = append(dates, gamelog.GameDate{Season: season, Date: parsed})
		}
	}

	if failedMonths == len(seasonMonths) {
		return nil, nil, fmt.Errorf("%w: schedule unreachable for season %d (all %d months failed)",
			usecase.ErrFetch, season, len(seasonMonths))
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Date.Before(dates[j].Date) })
	return dates, payloads, nil
}

// FetchScoreboard returns the canonical game refs for one date. The
// canonical 7-digit ID is parsed from each entry's URL path; the sibling
// short-form gameID field is discarded because the boxscore endpoint
// rejects it. An entry with an unparsable URL is skipped and logged, never
// the whole date.
func (c *Client) FetchScoreboard(ctx context.Context, date gamelog.GameDate) ([]gamelog.GameRef, []archive.Payload, error) {
	path := fmt.Sprintf("/scoreboard/%s/%s/%s", c.sport, c.division, date.Path())

	var envelope scoreboardEnvelope
	raw, err := c.doJSON(ctx, path, &envelope)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: fetch scoreboard date=%s: %v", fetchSentinel(err), date.Path(), err)
	}
	payloads := []archive.Payload{buildPayload("scoreboard", path, raw)}

	refs := make([]gamelog.GameRef, 0, len(envelope.Games))
	for _, item := range envelope.Games {
		id, ok := parseCanonicalGameID(item.Game.URL)
		if !ok {
			c.logger.WarnContext(ctx, "skip scoreboard entry without canonical game id",
				"date", date.Path(),
				"url", item.Game.URL,
				"short_id", item.Game.GameID,
				"error", usecase.ErrParse,
			)
			continue
		}
		refs = append(refs, gamelog.GameRef{ID: id, Date: date})
	}

	return refs, payloads, nil
}

// FetchBoxscore returns one row per player of both teams, including players
// with zero minutes. Win/loss is derived from the final scores embedded in
// the same response; a draw counts as not-won for both sides.
func (c *Client) FetchBoxscore(ctx context.Context, ref gamelog.GameRef) ([]gamelog.GameRow, []archive.Payload, error) {
	path := fmt.Sprintf("/game/%s/boxscore", ref.ID)

	var envelope boxscoreEnvelope
	raw, err := c.doJSON(ctx, path, &envelope)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: fetch boxscore game=%s: %v", fetchSentinel(err), ref.ID, err)
	}
	payloads := []archive.Payload{buildPayload("boxscore", path, raw)}

	nameByTeam := make(map[string]string, len(envelope.Teams))
	scoreByTeam := make(map[string]int, len(envelope.Teams))
	for _, team := range envelope.Teams {
		id := team.TeamID.String()
		if id == "" {
			continue
		}
		name := strings.TrimSpace(team.NameFull)
		if name == "" {
			name = strings.TrimSpace(team.NameShort)
		}
		nameByTeam[id] = name
		scoreByTeam[id] = team.Score.Int()
	}

	rows := make([]gamelog.GameRow, 0, 32)
	for _, teamBox := range envelope.TeamBoxscore {
		teamID := teamBox.TeamID.String()
		teamName := nameByTeam[teamID]
		if teamName == "" {
			teamName = teamID
		}
		won := teamWon(teamID, scoreByTeam)

		for _, player := range teamBox.PlayerStats {
			first := strings.TrimSpace(player.FirstName)
			last := strings.TrimSpace(player.LastName)
			if first == "" && last == "" {
				continue
			}

			minutes := player.MinutesPlayed.Int()
			rows = append(rows, gamelog.GameRow{
				GameID:           ref.ID,
				GameDate:         ref.Date.Date,
				Season:           ref.Date.Season,
				PlayerFirst:      first,
				PlayerLast:       last,
				Team:             teamName,
				MinutesPlayed:    minutes,
				Goals:            player.Goals.Int(),
				Assists:          player.Assists.Int(),
				Shots:            player.Shots.Int(),
				ShotsOnGoal:      player.ShotsOnGoal.Int(),
				YellowCards:      player.YellowCards.Int(),
				RedCards:         player.RedCards.Int(),
				Started:          minutes >= startMinutesThreshold,
				PKAttempts:       player.PKAttempts.Int(),
				PKGoals:          player.PKGoals.Int(),
				GameWinningGoals: player.GameWinningGoals.Int(),
				TeamWon:          won,
			})
		}
	}

	return rows, payloads, nil
}

// fetchSentinel keeps a circuit-open rejection distinguishable from an
// ordinary transient fetch failure when the error is re-wrapped.
func fetchSentinel(err error) error {
	if errors.Is(err, usecase.ErrDependencyUnavailable) {
		return usecase.ErrDependencyUnavailable
	}
	return usecase.ErrFetch
}

func parseCanonicalGameID(rawURL string) (string, bool) {
	match := gameURLRegex.FindStringSubmatch(strings.TrimSpace(rawURL))
	if len(match) != 2 || match[1] == "" {
		return "", false
	}
	return match[1], true
}

func teamWon(teamID string, scoreByTeam map[string]int) bool {
	own, ok := scoreByTeam[teamID]
	if !ok {
		return false
	}
	for id, score := range scoreByTeam {
		if id == teamID {
			continue
		}
		if own <= score {
			return false
		}
	}
	return len(scoreByTeam) > 1
}

func (c *Client) doJSON(ctx context.Context, path string, target any) ([]byte, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "ncaa circuit breaker rejected request", "state", c.breaker.State())
			return nil, fmt.Errorf("%w: stats source is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.baseURL + path
	out, err, _ := c.flight.Do(path, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && crerr.Is(reqErr, errNCAATransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("decode source payload: %w", err)
	}

	return raw, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.awaitTurn(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		req.Header.Set("user-agent", "transfer-risk-research/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errNCAATransient, err)
		} else {
			raw, readErr := readBody(resp.Body)
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errNCAATransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: source status=%d body=%s", errNCAATransient, resp.StatusCode, abbreviateBody(raw))
			default:
				return nil, fmt.Errorf("source status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("source request failed")
	}
	c.logger.WarnContext(ctx, "ncaa request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

// awaitTurn enforces the minimum inter-request interval across all callers,
// including pool workers fetching boxscores concurrently.
func (c *Client) awaitTurn(ctx context.Context) error {
	if c.requestInterval <= 0 {
		return nil
	}

	c.paceMu.Lock()
	now := time.Now()
	next := c.lastRequest.Add(c.requestInterval)
	if next.Before(now) {
		next = now
	}
	c.lastRequest = next
	c.paceMu.Unlock()

	wait := time.Until(next)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func readBody(body io.Reader) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if _, err := io.Copy(buf, io.LimitReader(body, maxResponseBytes)); err != nil {
		return nil, err
	}
	return append([]byte(nil), buf.B...), nil
}

func isRetryableStatus(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= http.StatusInternalServerError
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	text := strings.TrimSpace(string(raw))
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}

func buildPayload(entityType, path string, raw []byte) archive.Payload {
	return archive.Payload{
		EntityType:  entityType,
		EntityKey:   path,
		PayloadJSON: string(raw),
		FetchedAt:   time.Now().UTC(),
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
