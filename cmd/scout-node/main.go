package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lan-scout/internal/bootstrap"
	"lan-scout/internal/discovery"
	"lan-scout/internal/paths"
	"lan-scout/internal/storage/peersbolt"
)

func main() {
	tag := flag.String("tag", "lan-scout/1", "discovery channel tag")
	payload := flag.String("payload", "", "beacon payload (default: a random instance id)")
	port := flag.Int("port", discovery.DefaultPort, "well-known discovery port")
	advertise := flag.Int("advertise", 0, "port to advertise in beacon replies")
	beacon := flag.Bool("beacon", false, "also answer probes on this host")
	mdnsAd := flag.Bool("mdns", false, "additionally advertise via mDNS (with -beacon)")
	storePath := flag.String("store", filepath.Join(paths.DefaultDataDir(), "peers.db"), "sighting store path")
	debug := flag.Bool("debug", false, "verbose logging")
	flag.Parse()

	logger, err := buildLogger(*debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if *payload == "" {
		*payload = uuid.NewString()
	}

	store, err := peersbolt.Open(*storePath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	// Candidates remembered from earlier runs, plus anything mDNS can see
	// right now, before the first broadcast round has answered.
	known := bootstrap.Gather(context.Background(), logger,
		bootstrap.StoreSource{Store: store, MaxAge: 24 * time.Hour, Limit: 16},
		bootstrap.MDNSSource{Service: "_lan-scout._udp", Timeout: time.Second},
	)
	for _, addr := range known {
		fmt.Printf("known candidate: %s\n", addr)
	}

	cfg := discovery.DefaultConfig()
	cfg.Port = *port
	cfg.Logger = logger

	if *beacon {
		stop := make(chan struct{})
		defer close(stop)
		if err := discovery.StartBeacon(stop, cfg, *tag, *payload, uint16(*advertise)); err != nil {
			log.Fatalf("start beacon: %v", err)
		}
		if *mdnsAd {
			shutdown, err := advertiseMDNS(*payload, *port)
			if err != nil {
				logger.Warn("mdns advertise failed", zap.Error(err))
			} else {
				defer shutdown()
			}
		}
	}

	engine := discovery.New(cfg)
	engine.OnPeersChanged(func(peers []discovery.Peer) {
		printSnapshot(peers)
	})
	store.Track(engine)

	if err := engine.Start(*tag); err != nil {
		log.Fatalf("start probe: %v", err)
	}

	fmt.Printf("Probe started.\n")
	fmt.Printf("Tag:	%s\n", *tag)
	fmt.Printf("Local:	%s\n", engine.LocalAddr())
	fmt.Printf("Payload:	%s\n\n", *payload)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	fmt.Println("stopping...")
	engine.Stop()
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
