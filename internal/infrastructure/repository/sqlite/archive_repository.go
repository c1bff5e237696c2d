package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	_ "modernc.org/sqlite"

	"github.com/addy-wilson/bentley-ave-transfer-risk-test/internal/domain/archive"
)

const schema = `
CREATE TABLE IF NOT EXISTS api_payloads (
    entity_type TEXT NOT NULL,
    entity_key  TEXT NOT NULL PRIMARY KEY,
    payload     TEXT NOT NULL,
    fetched_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS date_checkpoints (
    season       INTEGER NOT NULL,
    game_date    TEXT NOT NULL,
    completed_at TIMESTAMP NOT NULL,
    PRIMARY KEY (season, game_date)
);
`

type ArchiveRepository struct {
	db *sqlx.DB
}

// Open connects to the archive database at path, creating the file and
// schema when missing.
func Open(path string) (*ArchiveRepository, error) {
	db, err := otelsqlx.Connect("sqlite", path, otelsql.WithDBSystem("sqlite"))
	if err != nil {
		return nil, fmt.Errorf("open archive db %s: %w", path, err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under the boxscore worker pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply archive schema: %w", err)
	}

	return &ArchiveRepository{db: db}, nil
}

func (r *ArchiveRepository) Close() error {
	return r.db.Close()
}

func (r *ArchiveRepository) UpsertPayloads(ctx context.Context, items []archive.Payload) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert payloads: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const query = `INSERT INTO api_payloads (entity_type, entity_key, payload, fetched_at)
VALUES (:entity_type, :entity_key, :payload, :fetched_at)
ON CONFLICT (entity_key)
DO UPDATE SET
    entity_type = excluded.entity_type,
    payload = excluded.payload,
    fetched_at = excluded.fetched_at`

	for _, item := range items {
		model := payloadModel{
			EntityType: item.EntityType,
			EntityKey:  item.EntityKey,
			Payload:    item.PayloadJSON,
			FetchedAt:  item.FetchedAt,
		}
		if _, err := tx.NamedExecContext(ctx, query, model); err != nil {
			return fmt.Errorf("upsert payload entity=%s key=%s: %w", item.EntityType, item.EntityKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert payloads tx: %w", err)
	}

	return nil
}

func (r *ArchiveRepository) MarkDateDone(ctx context.Context, season int, gameDate string) error {
	const query = `INSERT INTO date_checkpoints (season, game_date, completed_at)
VALUES (?, ?, ?)
ON CONFLICT (season, game_date) DO UPDATE SET completed_at = excluded.completed_at`

	if _, err := r.db.ExecContext(ctx, query, season, gameDate, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark date done season=%d date=%s: %w", season, gameDate, err)
	}
	return nil
}

func (r *ArchiveRepository) ListDoneDates(ctx context.Context, season int) (map[string]struct{}, error) {
	var dates []string
	if err := r.db.SelectContext(ctx, &dates, `SELECT game_date FROM date_checkpoints WHERE season = ?`, season); err != nil {
		return nil, fmt.Errorf("list done dates season=%d: %w", season, err)
	}

	done := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		done[d] = struct{}{}
	}
	return done, nil
}

type payloadModel struct {
	EntityType string    `db:"entity_type"`
	EntityKey  string    `db:"entity_key"`
	Payload    string    `db:"payload"`
	FetchedAt  time.Time `db:"fetched_at"`
}
