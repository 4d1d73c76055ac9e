// Package bootstrap aggregates peer candidates from several places: the live
// discovery engine, static lists, the sighting store and mDNS. Callers decide
// what to do with the addresses; this package stops at gathering them.
package bootstrap

import "context"

type PeerSource interface {
	// Discover returns candidate peer addresses (host:port).
	Discover(ctx context.Context) ([]string, error)
	Name() string
}
