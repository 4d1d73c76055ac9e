package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"lan-scout/internal/nat"
	"lan-scout/internal/wire"
)

const (
	// DefaultPort is the well-known UDP port beacons listen on.
	DefaultPort = 42042
	// DefaultInterval is the probe broadcast cadence.
	DefaultInterval = 2 * time.Second
	// DefaultStaleAfter is how long a peer survives without a fresh reply.
	DefaultStaleAfter = 5 * time.Second
)

// Config controls probe and beacon behavior.
type Config struct {
	Port       int
	Interval   time.Duration
	StaleAfter time.Duration

	// BroadcastAddrs overrides the per-interface broadcast targets.
	// Mostly useful in tests; empty means "enumerate interfaces".
	BroadcastAddrs []*net.UDPAddr

	// SkipPortMap disables the best-effort NAT port mapping at startup.
	SkipPortMap bool

	Clock  clock.Clock
	Logger *zap.Logger
}

// DefaultConfig returns the default probe settings.
func DefaultConfig() Config {
	return Config{
		Port:       DefaultPort,
		Interval:   DefaultInterval,
		StaleAfter: DefaultStaleAfter,
	}
}

// Engine is the probe side of discovery: it broadcasts announcements on the
// discovery port, ingests beacon replies on the same socket, and keeps a
// live, deterministically ordered view of who answered recently.
type Engine struct {
	cfg Config
	tag []byte

	conn *net.UDPConn

	// mu guards peers, current and listeners as one unit: every merge or
	// prune runs the whole mutate-compare-publish sequence under it.
	mu        sync.Mutex
	peers     map[string]Peer
	current   []Peer
	listeners []func([]Peer)
	running   bool

	stopCh   chan struct{}
	loopDone sync.WaitGroup
	recvDone sync.WaitGroup
}

// New creates an engine. Call Start to bring it online.
func New(cfg Config) *Engine {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Engine{
		cfg:   cfg,
		peers: make(map[string]Peer),
	}
}

// OnPeersChanged registers a listener invoked with the new ordered snapshot
// each time it changes. The listener runs on whichever goroutine performed
// the merge or prune, while the engine holds its internal lock: it must not
// call back into the engine, and callers needing a specific execution
// context have to redispatch themselves.
func (e *Engine) OnPeersChanged(fn func([]Peer)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Peers returns the last published snapshot.
func (e *Engine) Peers() []Peer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Peer(nil), e.current...)
}

// LocalAddr returns the probe socket's local address. Beacons unicast their
// replies here.
func (e *Engine) LocalAddr() *net.UDPAddr {
	return e.conn.LocalAddr().(*net.UDPAddr)
}

// Start binds the probe socket and launches the broadcast/prune loop plus
// reply ingestion for the given channel tag. The only fatal error is the
// bind itself; NAT mapping is attempted best-effort in the background.
func (e *Engine) Start(beaconType string) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errors.New("discovery: engine already started")
	}
	e.running = true
	e.mu.Unlock()

	e.tag = wire.EncodeTag(beaconType)

	conn, err := listenUDP4(":0")
	if err != nil {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		return fmt.Errorf("discovery listen: %w", err)
	}
	e.conn = conn
	e.stopCh = make(chan struct{})

	e.cfg.Logger.Info("probe started",
		zap.String("tag", beaconType),
		zap.String("local", conn.LocalAddr().String()),
		zap.Int("port", e.cfg.Port))

	if !e.cfg.SkipPortMap {
		port := e.LocalAddr().Port
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			nat.MapBestEffort(ctx, port, e.cfg.Logger)
		}()
	}

	e.recvDone.Add(1)
	go e.receiveLoop()

	e.loopDone.Add(1)
	go e.run()

	return nil
}

// Stop shuts the engine down: it wakes the broadcast loop immediately, waits
// for it to exit, then closes the socket, which in turn ends ingestion.
// Call Stop at most once; the behavior of a second call is undefined.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()

	close(e.stopCh)
	e.loopDone.Wait()

	// The receive loop exits on the read error caused by the close. Closing
	// only after the join means the loop never broadcasts on a dead socket.
	_ = e.conn.Close()
	e.recvDone.Wait()

	e.cfg.Logger.Info("probe stopped")
}

// run is the control loop: broadcast, wait a tick (or a stop wake), prune.
func (e *Engine) run() {
	defer e.loopDone.Done()

	for {
		e.broadcast()

		t := e.cfg.Clock.Timer(e.cfg.Interval)
		select {
		case <-e.stopCh:
			t.Stop()
			return
		case <-t.C:
		}

		e.prune()
	}
}

func (e *Engine) broadcast() {
	targets := e.cfg.BroadcastAddrs
	if len(targets) == 0 {
		targets = interfaceBroadcastAddrs(e.cfg.Port)
	}
	if len(targets) == 0 {
		// fall back to limited broadcast
		targets = []*net.UDPAddr{{IP: net.IPv4bcast, Port: e.cfg.Port}}
	}

	for _, dst := range targets {
		if _, err := e.conn.WriteToUDP(e.tag, dst); err != nil {
			e.cfg.Logger.Debug("probe send failed",
				zap.String("dst", dst.String()), zap.Error(err))
		}
	}
}

func (e *Engine) receiveLoop() {
	defer e.recvDone.Done()

	buf := make([]byte, 2048)
	for {
		n, from, err := e.conn.ReadFromUDP(buf)
		if err != nil {
			// Stop closed the socket, or the read path is gone for good.
			return
		}
		e.handleDatagram(buf[:n], from)
	}
}

func (e *Engine) handleDatagram(b []byte, from *net.UDPAddr) {
	if !wire.HasPrefix(b, e.tag) {
		// unrelated broadcast traffic on our port, not even worth a log
		return
	}

	port, payload, err := wire.DecodeReply(b, e.tag)
	if err != nil {
		e.cfg.Logger.Debug("dropping malformed reply",
			zap.String("from", from.String()), zap.Error(err))
		return
	}

	e.merge(Peer{
		Addr:     &net.UDPAddr{IP: from.IP, Port: int(port)},
		Payload:  payload,
		LastSeen: e.cfg.Clock.Now(),
	})
}

// merge replaces any record with the same address and publishes if the
// ordered snapshot changed.
func (e *Engine) merge(p Peer) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.peers[addrKey(p.Addr)] = p
	e.publishLocked()
}

// prune drops records older than StaleAfter and publishes if that changed
// the snapshot.
func (e *Engine) prune() {
	cutoff := e.cfg.Clock.Now().Add(-e.cfg.StaleAfter)

	e.mu.Lock()
	defer e.mu.Unlock()

	for k, p := range e.peers {
		if p.LastSeen.Before(cutoff) {
			delete(e.peers, k)
		}
	}
	e.publishLocked()
}

// publishLocked re-derives the ordered snapshot and, only if it differs from
// the previous one, commits it and notifies listeners. Callers hold e.mu.
func (e *Engine) publishLocked() {
	next := make([]Peer, 0, len(e.peers))
	for _, p := range e.peers {
		next = append(next, p)
	}
	next = orderPeers(next)

	if sameSnapshot(next, e.current) {
		return
	}
	e.current = next

	for _, fn := range e.listeners {
		fn(next)
	}
}
