package discovery

import (
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"lan-scout/internal/wire"
)

// StartBeacon is the reciprocal side of the probe: it listens on the
// discovery port for probes carrying tag and unicasts a framed reply with
// advertisePort and payload back to each prober. It runs until stop is
// closed. Malformed or unrelated datagrams are dropped without comment.
func StartBeacon(stop <-chan struct{}, cfg Config, tag, payload string, advertisePort uint16) error {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	conn, err := listenUDP4(fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("beacon listen: %w", err)
	}

	prefix := wire.EncodeTag(tag)
	reply := wire.EncodeReply(prefix, advertisePort, payload)

	cfg.Logger.Info("beacon started",
		zap.String("tag", tag),
		zap.Int("port", cfg.Port),
		zap.Uint16("advertise", advertisePort))

	go func() {
		defer conn.Close()

		buf := make([]byte, 2048)

		for {
			select {
			case <-stop:
				return
			default:
			}

			// short deadline so the stop channel gets polled
			_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))

			n, addr, err := conn.ReadFromUDP(buf)
			if err != nil {
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					continue
				}
				continue
			}

			// A probe is the bare tag. Anything longer is either a reply
			// from another prober's beacon or noise; ignore both.
			if n != len(prefix) || !wire.HasPrefix(buf[:n], prefix) {
				continue
			}

			if _, err := conn.WriteToUDP(reply, addr); err != nil {
				cfg.Logger.Debug("beacon reply failed",
					zap.String("to", addr.String()), zap.Error(err))
			}
		}
	}()

	return nil
}
