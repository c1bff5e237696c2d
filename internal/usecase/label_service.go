package usecase

import (
	"context"
	"fmt"

	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/domain/seasonstats"
	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/platform/logging"
)

// LabelService infers transfer status by comparing each player's team of
// record against the following season. It needs the full set of aggregated
// records across all seasons before any label can be assigned.
type LabelService struct {
	logger *logging.Logger
}

func NewLabelService(logger *logging.Logger) *LabelService {
	if logger == nil {
		logger = logging.Default()
	}
	return &LabelService{logger: logger}
}

// Label returns the records with Transferred/LeftProgram set. For a record
// at season S with team T: a record at S+1 on a different team means
// transferred; no record at S+1 means left the program; same team means
// neither. The final collected season has no next season, so its records
// keep both labels unset: an undetermined boundary, not a true negative.
func (s *LabelService) Label(ctx context.Context, records []seasonstats.PlayerSeason) ([]seasonstats.PlayerSeason, error) {
	_, span := startUsecaseSpan(ctx, "usecase.LabelService.Label")
	defer span.End()

	if len(records) == 0 {
		return nil, nil
	}

	teamByPlayerSeason := make(map[string]map[int]string, len(records))
	lastSeason := records[0].Season
	for _, record := range records {
		seasons, ok := teamByPlayerSeason[record.PlayerKey]
		if !ok {
			seasons = make(map[int]string, 3)
			teamByPlayerSeason[record.PlayerKey] = seasons
		}
		seasons[record.Season] = record.Team
		if record.Season > lastSeason {
			lastSeason = record.Season
		}
	}

	out := make([]seasonstats.PlayerSeason, len(records))
	for i, record := range records {
		seasons := teamByPlayerSeason[record.PlayerKey]
		if _, ok := seasons[record.Season]; !ok {
			return nil, fmt.Errorf("season index is missing record player=%s season=%d", record.PlayerKey, record.Season)
		}

		record.Transferred = false
		record.LeftProgram = false
		if record.Season < lastSeason {
			nextTeam, hasNext := seasons[record.Season+1]
			switch {
			case hasNext && nextTeam != record.Team:
				record.Transferred = true
			case !hasNext:
				record.LeftProgram = true
			}
		}
		out[i] = record
	}

	return out, nil
}
