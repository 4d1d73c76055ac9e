// Package peersbolt persists beacon sightings in a BoltDB file so a fresh
// process can seed itself with peers that were reachable recently, before
// the first broadcast round has answered.
package peersbolt

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"lan-scout/internal/discovery"
)

const (
	bMeta   = "meta"
	bByAddr = "peers_by_addr"
	bByTS   = "peers_by_ts"
	kMaxTS  = "max_ts"

	defaultTO = 2 * time.Second
)

// Sighting is one persisted observation of a beacon.
type Sighting struct {
	Addr     string    `json:"addr"`
	Payload  string    `json:"payload"`
	LastSeen time.Time `json:"last_seen"`
}

// Store is a BoltDB-backed sighting log, unique by address.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) a BoltDB database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: defaultTO})
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		for _, b := range []string{bMeta, bByAddr, bByTS} {
			if _, err := tx.CreateBucketIfNotExists([]byte(b)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// RecordSighting upserts the sighting for addr. A newer observation replaces
// the old one wholesale, mirroring how the engine refreshes records.
func (s *Store) RecordSighting(addr, payload string, seen time.Time) error {
	if addr == "" {
		return errors.New("missing addr")
	}

	rec := Sighting{Addr: addr, Payload: payload, LastSeen: seen}
	val, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		byAddr := tx.Bucket([]byte(bByAddr))
		byTS := tx.Bucket([]byte(bByTS))
		meta := tx.Bucket([]byte(bMeta))

		// drop the stale time-index entry for this addr, if any
		if raw := byAddr.Get([]byte(addr)); raw != nil {
			var old Sighting
			if json.Unmarshal(raw, &old) == nil {
				_ = byTS.Delete(tsKey(old.LastSeen.UnixNano(), addr))
			}
		}

		if err := byAddr.Put([]byte(addr), val); err != nil {
			return err
		}
		if err := byTS.Put(tsKey(seen.UnixNano(), addr), nil); err != nil {
			return err
		}

		// update max_ts
		cur := decodeI64(meta.Get([]byte(kMaxTS)))
		if seen.UnixNano() > cur {
			if err := meta.Put([]byte(kMaxTS), encodeI64(seen.UnixNano())); err != nil {
				return err
			}
		}
		return nil
	})
}

// Candidates returns addresses seen within maxAge, most recent first.
func (s *Store) Candidates(maxAge time.Duration, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 64
	}
	cutoff := time.Now().Add(-maxAge).UnixNano()

	out := make([]string, 0, limit)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bByTS)).Cursor()
		for k, _ := c.Last(); k != nil && len(out) < limit; k, _ = c.Prev() {
			ts, addr := splitTSKey(k)
			if addr == "" {
				continue
			}
			if ts < cutoff {
				break
			}
			out = append(out, addr)
		}
		return nil
	})
	return out, err
}

// MaxTimestamp returns the newest sighting time in the store, in unix nanos.
func (s *Store) MaxTimestamp() (int64, error) {
	var out int64
	err := s.db.View(func(tx *bolt.Tx) error {
		out = decodeI64(tx.Bucket([]byte(bMeta)).Get([]byte(kMaxTS)))
		return nil
	})
	return out, err
}

// LoadAll walks every stored sighting in last-seen order, oldest first.
func (s *Store) LoadAll(fn func(Sighting) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		byTS := tx.Bucket([]byte(bByTS))
		byAddr := tx.Bucket([]byte(bByAddr))
		c := byTS.Cursor()

		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			_, addr := splitTSKey(k)
			if addr == "" {
				continue
			}
			raw := byAddr.Get([]byte(addr))
			if raw == nil {
				continue
			}
			var rec Sighting
			if err := json.Unmarshal(raw, &rec); err != nil {
				// Corruption: keep going, don't brick startup.
				continue
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// Track subscribes the store to an engine so every published snapshot is
// persisted. Writes ride on the engine's notification goroutine; Bolt
// updates are quick but heavy consumers should keep their own listener.
func (s *Store) Track(e *discovery.Engine) {
	e.OnPeersChanged(func(peers []discovery.Peer) {
		for _, p := range peers {
			_ = s.RecordSighting(p.Addr.String(), p.Payload, p.LastSeen)
		}
	})
}

func tsKey(ts int64, addr string) []byte {
	// big-endian timestamp for correct ordering; append 0x00 + addr so Seek works.
	b := make([]byte, 8+1+len(addr))
	binary.BigEndian.PutUint64(b[:8], uint64(ts))
	b[8] = 0
	copy(b[9:], addr)
	return b
}

func splitTSKey(k []byte) (int64, string) {
	if len(k) < 9 {
		return 0, ""
	}
	return int64(binary.BigEndian.Uint64(k[:8])), string(k[9:])
}

func encodeI64(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func decodeI64(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}
