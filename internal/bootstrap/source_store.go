package bootstrap

import (
	"context"
	"time"

	"lan-scout/internal/storage/peersbolt"
)

// StoreSource yields beacons the sighting store saw within MaxAge.
type StoreSource struct {
	Store  *peersbolt.Store
	MaxAge time.Duration
	Limit  int
}

func (s StoreSource) Name() string { return "store" }

func (s StoreSource) Discover(ctx context.Context) ([]string, error) {
	maxAge := s.MaxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return s.Store.Candidates(maxAge, s.Limit)
}
