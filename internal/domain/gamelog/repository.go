package gamelog

import "context"

type Repository interface {
	// UpsertRows adds rows to the log, dropping duplicates by DedupeKey.
	// Returns the number of rows actually kept.
	UpsertRows(ctx context.Context, rows []GameRow) (int, error)
	ListAll(ctx context.Context) ([]GameRow, error)
	Count(ctx context.Context) (int, error)
}
