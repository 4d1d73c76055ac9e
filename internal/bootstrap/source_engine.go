package bootstrap

import (
	"context"

	"lan-scout/internal/discovery"
)

// EngineSource yields the engine's last published snapshot.
type EngineSource struct {
	Engine *discovery.Engine
}

func (s EngineSource) Name() string { return "engine" }

func (s EngineSource) Discover(ctx context.Context) ([]string, error) {
	peers := s.Engine.Peers()
	out := make([]string, 0, len(peers))
	for _, p := range peers {
		out = append(out, p.Addr.String())
	}
	return out, nil
}
