package archive

import "context"

// Repository stores raw payloads plus per-(season, date) checkpoints. A date
// is marked done only after every one of its games was attempted, so a
// restarted run can skip it; game-log dedupe keeps partial overlaps harmless.
type Repository interface {
	UpsertPayloads(ctx context.Context, items []Payload) error
	MarkDateDone(ctx context.Context, season int, gameDate string) error
	ListDoneDates(ctx context.Context, season int) (map[string]struct{}, error)
}
