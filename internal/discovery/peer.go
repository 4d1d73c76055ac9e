package discovery

import (
	"net"
	"sort"
	"time"
)

// Peer is one discovered beacon. Identity is the address alone; Payload and
// LastSeen are whatever the most recent reply carried. A refresh replaces the
// whole record, the struct itself is never mutated in place.
type Peer struct {
	Addr     *net.UDPAddr
	Payload  string
	LastSeen time.Time
}

// SameAddr reports whether two peers are the same endpoint (host + port).
func (p Peer) SameAddr(o Peer) bool {
	if p.Addr == nil || o.Addr == nil {
		return p.Addr == o.Addr
	}
	return p.Addr.IP.Equal(o.Addr.IP) && p.Addr.Port == o.Addr.Port
}

// addrKey is the map key for a peer's endpoint.
func addrKey(a *net.UDPAddr) string {
	return a.String()
}

// orderPeers returns the canonical snapshot ordering: payload ascending,
// then host text ascending, then port descending on host tie. Consumers
// compare snapshots element-for-element, so this ordering is load-bearing.
func orderPeers(peers []Peer) []Peer {
	out := append([]Peer(nil), peers...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Payload != out[j].Payload {
			return out[i].Payload < out[j].Payload
		}
		hi, hj := out[i].Addr.IP.String(), out[j].Addr.IP.String()
		if hi != hj {
			return hi < hj
		}
		return out[i].Addr.Port > out[j].Addr.Port
	})
	return out
}

// sameSnapshot compares two ordered snapshots element-for-element on
// (address, payload). LastSeen is deliberately left out: a refreshing reply
// with an unchanged payload is not a change worth notifying about.
func sameSnapshot(a, b []Peer) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].SameAddr(b[i]) || a[i].Payload != b[i].Payload {
			return false
		}
	}
	return true
}
