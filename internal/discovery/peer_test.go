package discovery

import (
	"math/rand"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func mkPeer(host string, port int, payload string) Peer {
	return Peer{
		Addr:    &net.UDPAddr{IP: net.ParseIP(host), Port: port},
		Payload: payload,
	}
}

func TestSameAddr(t *testing.T) {
	a := mkPeer("10.0.0.5", 9000, "hello")
	b := mkPeer("10.0.0.5", 9000, "bye")
	c := mkPeer("10.0.0.5", 9001, "hello")
	d := mkPeer("10.0.0.6", 9000, "hello")

	assert.True(t, a.SameAddr(b), "payload must not matter")
	assert.False(t, a.SameAddr(c))
	assert.False(t, a.SameAddr(d))
}

func TestOrderPeers(t *testing.T) {
	want := []Peer{
		mkPeer("10.0.0.9", 1, "a"),
		mkPeer("10.0.0.1", 2000, "b"),
		mkPeer("10.0.0.1", 1000, "b"), // host tie: higher port first
		mkPeer("10.0.0.2", 1000, "b"),
		mkPeer("10.0.0.1", 1, "c"),
	}

	// ordering must not depend on arrival order
	for i := 0; i < 20; i++ {
		in := append([]Peer(nil), want...)
		rand.Shuffle(len(in), func(a, b int) { in[a], in[b] = in[b], in[a] })

		got := orderPeers(in)
		assert.True(t, sameSnapshot(want, got), "shuffle %d produced different order", i)
	}
}

func TestOrderPeersDoesNotMutateInput(t *testing.T) {
	in := []Peer{
		mkPeer("10.0.0.2", 1, "b"),
		mkPeer("10.0.0.1", 1, "a"),
	}
	_ = orderPeers(in)
	assert.Equal(t, "b", in[0].Payload)
}

func TestSameSnapshotIgnoresLastSeen(t *testing.T) {
	a := mkPeer("10.0.0.5", 9000, "hello")
	b := a
	b.LastSeen = a.LastSeen.Add(time.Minute)

	assert.True(t, sameSnapshot([]Peer{a}, []Peer{b}))
	assert.False(t, sameSnapshot([]Peer{a}, nil))
	assert.False(t, sameSnapshot([]Peer{a}, []Peer{mkPeer("10.0.0.5", 9000, "bye")}))
	assert.False(t, sameSnapshot([]Peer{a}, []Peer{mkPeer("10.0.0.5", 9001, "hello")}))
}
