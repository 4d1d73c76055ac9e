package bootstrap

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/hashicorp/mdns"
)

// MDNSSource browses an mDNS service type. It complements UDP broadcast on
// networks that filter broadcast traffic but still pass multicast DNS.
type MDNSSource struct {
	Service string // e.g. "_lan-scout._udp"
	Domain  string // defaults to "local"
	Timeout time.Duration
}

func (s MDNSSource) Name() string { return "mdns" }

func (s MDNSSource) Discover(ctx context.Context) ([]string, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	domain := s.Domain
	if domain == "" {
		domain = "local"
	}

	entries := make(chan *mdns.ServiceEntry, 16)
	done := make(chan []string, 1)

	go func() {
		out := make([]string, 0, 4)
		for entry := range entries {
			if entry.AddrV4 == nil {
				continue
			}
			out = append(out, net.JoinHostPort(entry.AddrV4.String(), strconv.Itoa(entry.Port)))
		}
		done <- out
	}()

	params := &mdns.QueryParam{
		Service: s.Service,
		Domain:  domain,
		Timeout: timeout,
		Entries: entries,
	}
	err := mdns.Query(params)
	close(entries)

	out := <-done
	if err != nil {
		return nil, err
	}
	return out, nil
}
