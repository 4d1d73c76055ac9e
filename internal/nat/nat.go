// Package nat maps the probe's UDP port on the local gateway so beacons
// behind the same NAT segment can still reach it. Mapping is strictly
// best-effort: discovery works on the broadcast domain without it, so every
// failure here is logged and swallowed.
package nat

import (
	"context"

	"go.uber.org/zap"
)

// leaseSeconds is how long a mapping is requested for. Nobody renews it;
// a probe that outlives the lease simply loses the mapping.
const leaseSeconds = 3600

// Mapper is one way of asking a gateway for a UDP port mapping.
type Mapper interface {
	Name() string
	MapUDP(ctx context.Context, port int) error
}

// MapBestEffort tries each mapper in order and stops at the first success.
// With no mappers given it tries NAT-PMP and then UPnP. It never reports an
// error to the caller.
func MapBestEffort(ctx context.Context, port int, logger *zap.Logger, mappers ...Mapper) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(mappers) == 0 {
		mappers = []Mapper{NewNATPMP(), NewUPnP()}
	}

	for _, m := range mappers {
		if err := m.MapUDP(ctx, port); err != nil {
			logger.Warn("port mapping failed",
				zap.String("via", m.Name()),
				zap.Int("port", port),
				zap.Error(err))
			continue
		}
		logger.Info("udp port mapped",
			zap.String("via", m.Name()),
			zap.Int("port", port))
		return
	}
}
