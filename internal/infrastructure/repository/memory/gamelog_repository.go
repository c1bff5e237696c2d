package memory

import (
	"context"
	"sync"

	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/domain/gamelog"
)

// GameLogRepository is the run's append-only accumulator of player-game
// rows. Pool workers append through UpsertRows under one lock; nothing
// reads the log until the fetch phase is over.
type GameLogRepository struct {
	mu   sync.RWMutex
	rows []gamelog.GameRow
	keys map[string]struct{}
}

func NewGameLogRepository() *GameLogRepository {
	return &GameLogRepository{
		keys: make(map[string]struct{}, 4096),
	}
}

func (r *GameLogRepository) UpsertRows(_ context.Context, rows []gamelog.GameRow) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := 0
	for _, row := range rows {
		key := row.DedupeKey()
		if _, ok := r.keys[key]; ok {
			continue
		}
		r.keys[key] = struct{}{}
		r.rows = append(r.rows, row)
		kept++
	}

	return kept, nil
}

func (r *GameLogRepository) ListAll(_ context.Context) ([]gamelog.GameRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]gamelog.GameRow, len(r.rows))
	copy(out, r.rows)
	return out, nil
}

func (r *GameLogRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows), nil
}
