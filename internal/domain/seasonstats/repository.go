package seasonstats

import "context"

type Writer interface {
	WriteSeasons(ctx context.Context, records []PlayerSeason) error
}
