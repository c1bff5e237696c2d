package archive

import "time"

// Payload is one raw API response kept for replay and audit.
type Payload struct {
	EntityType  string
	EntityKey   string
	PayloadJSON string
	FetchedAt   time.Time
}
