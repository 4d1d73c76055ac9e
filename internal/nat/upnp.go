package nat

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/huin/goupnp/dcps/internetgateway1"
	"github.com/huin/goupnp/dcps/internetgateway2"
)

// ErrNoGateway means no UPnP internet gateway device answered discovery.
var ErrNoGateway = errors.New("nat: no upnp gateway found")

// igdClient is the slice of the goupnp WAN*Connection1 surface we need.
// Both the IGDv1 and IGDv2 client types implement it.
type igdClient interface {
	AddPortMapping(
		NewRemoteHost string,
		NewExternalPort uint16,
		NewProtocol string,
		NewInternalPort uint16,
		NewInternalClient string,
		NewEnabled bool,
		NewPortMappingDescription string,
		NewLeaseDuration uint32,
	) error
}

type upnp struct{}

// NewUPnP returns a UPnP IGD mapper.
func NewUPnP() Mapper { return upnp{} }

func (upnp) Name() string { return "upnp" }

func (upnp) MapUDP(ctx context.Context, port int) error {
	client, err := discoverIGD(ctx)
	if err != nil {
		return err
	}

	localIP, err := localIPv4()
	if err != nil {
		return fmt.Errorf("local ip: %w", err)
	}

	if err := client.AddPortMapping(
		"", uint16(port), "UDP", uint16(port),
		localIP.String(), true, "lan-scout", leaseSeconds,
	); err != nil {
		return fmt.Errorf("add mapping: %w", err)
	}
	return nil
}

// discoverIGD tries IGDv2 clients first and falls back to IGDv1, bounded by
// the caller's context.
func discoverIGD(ctx context.Context) (igdClient, error) {
	type result struct {
		client igdClient
		err    error
	}
	ch := make(chan result, 1)

	go func() {
		if cs, _, err := internetgateway2.NewWANIPConnection1Clients(); err == nil && len(cs) > 0 {
			ch <- result{client: cs[0]}
			return
		}
		if cs, _, err := internetgateway2.NewWANPPPConnection1Clients(); err == nil && len(cs) > 0 {
			ch <- result{client: cs[0]}
			return
		}
		if cs, _, err := internetgateway1.NewWANIPConnection1Clients(); err == nil && len(cs) > 0 {
			ch <- result{client: cs[0]}
			return
		}
		if cs, _, err := internetgateway1.NewWANPPPConnection1Clients(); err == nil && len(cs) > 0 {
			ch <- result{client: cs[0]}
			return
		}
		ch <- result{err: ErrNoGateway}
	}()

	select {
	case res := <-ch:
		return res.client, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// localIPv4 picks the first usable IPv4 address, which is what the gateway
// needs as the mapping's internal client.
func localIPv4() (net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, it := range ifaces {
		if it.Flags&net.FlagUp == 0 || it.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := it.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok || ipnet.IP.IsLoopback() {
				continue
			}
			if ip4 := ipnet.IP.To4(); ip4 != nil {
				return ip4, nil
			}
		}
	}
	return nil, errors.New("no non-loopback ipv4 interface")
}
