package bootstrap

import (
	"context"
	"math/rand"

	"go.uber.org/zap"
)

// Gather collects candidates from all sources, shuffles and dedups them.
// A failing source is logged and skipped; the others still contribute.
func Gather(ctx context.Context, logger *zap.Logger, sources ...PeerSource) []string {
	if logger == nil {
		logger = zap.NewNop()
	}

	cands := make([]string, 0, 64)
	for _, s := range sources {
		addrs, err := s.Discover(ctx)
		if err != nil {
			logger.Warn("source discover failed",
				zap.String("source", s.Name()), zap.Error(err))
			continue
		}
		cands = append(cands, addrs...)
	}

	// Shuffle to avoid everyone favoring the same candidate order.
	rand.Shuffle(len(cands), func(i, j int) { cands[i], cands[j] = cands[j], cands[i] })

	seen := make(map[string]struct{}, len(cands))
	out := make([]string, 0, len(cands))
	for _, a := range cands {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
