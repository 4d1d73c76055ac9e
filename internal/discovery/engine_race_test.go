package discovery

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lan-scout/internal/wire"
)

// This harness hammers the merge path (many concurrent senders) against the
// prune path (fast cadence, short staleness) and concurrent readers. It is
// about locking correctness, not packet correctness.
func TestEngineMergePruneRaceHarness(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkipPortMap = true
	cfg.Interval = 50 * time.Millisecond
	cfg.StaleAfter = 150 * time.Millisecond
	cfg.Logger = zap.NewNop()
	cfg.BroadcastAddrs = []*net.UDPAddr{discardAddr}

	e := New(cfg)

	var notifications int
	var notifMu sync.Mutex
	e.OnPeersChanged(func(peers []Peer) {
		// exercise the delivered snapshot while counting
		for i := 1; i < len(peers); i++ {
			if peers[i-1].Payload > peers[i].Payload {
				t.Errorf("snapshot out of order at %d", i)
			}
		}
		notifMu.Lock()
		notifications++
		notifMu.Unlock()
	})

	require.NoError(t, e.Start("race"))

	dst := net.JoinHostPort("127.0.0.1", strconv.Itoa(e.LocalAddr().Port))
	tag := wire.EncodeTag("race")

	const (
		senders  = 8
		messages = 100
		readers  = 4
	)

	var wg sync.WaitGroup

	// Senders: distinct advertised ports so the peer set keeps churning.
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			conn, err := net.Dial("udp4", dst)
			if err != nil {
				t.Errorf("dial: %v", err)
				return
			}
			defer conn.Close()

			for j := 0; j < messages; j++ {
				port := uint16(10000 + (idx*messages+j)%50)
				payload := fmt.Sprintf("peer-%d", (idx+j)%10)
				_, _ = conn.Write(wire.EncodeReply(tag, port, payload))
			}
		}(i)
	}

	// Readers: poll snapshots while the senders are active.
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			deadline := time.Now().Add(500 * time.Millisecond)
			for time.Now().Before(deadline) {
				_ = e.Peers()
				time.Sleep(5 * time.Millisecond)
			}
		}()
	}

	wg.Wait()

	// With the senders gone everything goes stale and the prune pass must
	// eventually publish an empty snapshot.
	require.Eventually(t, func() bool {
		return len(e.Peers()) == 0
	}, 3*time.Second, 25*time.Millisecond, "peer set never drained")

	e.Stop()

	notifMu.Lock()
	defer notifMu.Unlock()
	require.Greater(t, notifications, 0)
}
