// Package wire frames the discovery datagrams exchanged between a probe and
// the beacons answering it.
//
// A probe datagram is the bare encoded channel tag. A reply is:
//
//	[tag bytes][2-byte big-endian port][payload bytes]
//
// The port field lets a beacon advertise a listening port distinct from the
// ephemeral source port the reply was sent from.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"unicode/utf8"
)

var (
	// ErrTruncated means the buffer ends before the fixed reply fields do.
	ErrTruncated = errors.New("wire: truncated reply")
	// ErrPrefixMismatch means the buffer does not start with the expected tag.
	ErrPrefixMismatch = errors.New("wire: prefix mismatch")
	// ErrBadPayload means the payload bytes are not valid UTF-8.
	ErrBadPayload = errors.New("wire: payload not valid UTF-8")
)

// EncodeTag returns the canonical byte form of a channel tag. Identical tags
// always encode to identical bytes. Tags are matched by prefix, so callers
// must not use two tags where one is a prefix of the other.
func EncodeTag(tag string) []byte {
	return []byte(tag)
}

// HasPrefix reports whether buf begins with exactly the bytes of prefix.
func HasPrefix(buf, prefix []byte) bool {
	return bytes.HasPrefix(buf, prefix)
}

// EncodeReply frames a beacon reply carrying the advertised port and payload.
func EncodeReply(prefix []byte, port uint16, payload string) []byte {
	out := make([]byte, 0, len(prefix)+2+len(payload))
	out = append(out, prefix...)
	out = binary.BigEndian.AppendUint16(out, port)
	out = append(out, payload...)
	return out
}

// DecodeReply parses a reply datagram. It returns an error on any malformed
// input; it never panics, so a garbage datagram can be dropped cheaply.
func DecodeReply(buf, prefix []byte) (port uint16, payload string, err error) {
	if !HasPrefix(buf, prefix) {
		return 0, "", ErrPrefixMismatch
	}
	rest := buf[len(prefix):]
	if len(rest) < 2 {
		return 0, "", ErrTruncated
	}
	port = binary.BigEndian.Uint16(rest[:2])
	raw := rest[2:]
	if !utf8.Valid(raw) {
		return 0, "", ErrBadPayload
	}
	return port, string(raw), nil
}
