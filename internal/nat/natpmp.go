package nat

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/jackpal/gateway"
	natpmp "github.com/jackpal/go-nat-pmp"
)

// natPMP maps ports against the default gateway using the NAT-PMP protocol.
// Gateway discovery happens lazily on the first MapUDP call so constructing
// the mapper never blocks.
type natPMP struct{}

// NewNATPMP returns a NAT-PMP mapper.
func NewNATPMP() Mapper { return natPMP{} }

func (natPMP) Name() string { return "nat-pmp" }

func (natPMP) MapUDP(ctx context.Context, port int) error {
	gw, err := discoverGateway(ctx)
	if err != nil {
		return fmt.Errorf("discover gateway: %w", err)
	}

	timeout := 5 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < timeout {
			timeout = rem
		}
	}

	client := natpmp.NewClientWithTimeout(gw, timeout)
	if _, err := client.AddPortMapping("udp", port, port, leaseSeconds); err != nil {
		return fmt.Errorf("add mapping: %w", err)
	}
	return nil
}

// discoverGateway runs the library's blocking discovery under the caller's
// context. gateway.DiscoverGateway has no context of its own.
func discoverGateway(ctx context.Context) (net.IP, error) {
	type result struct {
		ip  net.IP
		err error
	}
	ch := make(chan result, 1)

	go func() {
		ip, err := gateway.DiscoverGateway()
		ch <- result{ip: ip, err: err}
	}()

	select {
	case res := <-ch:
		return res.ip, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
