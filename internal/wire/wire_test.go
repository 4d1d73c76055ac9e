package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeTagDeterministic(t *testing.T) {
	assert.Equal(t, EncodeTag("abc"), EncodeTag("abc"))
	assert.Equal(t, []byte("park/1"), EncodeTag("park/1"))
	assert.NotEqual(t, EncodeTag("abc"), EncodeTag("abd"))
}

func TestHasPrefix(t *testing.T) {
	tag := EncodeTag("abc")

	assert.True(t, HasPrefix([]byte("abcdef"), tag))
	assert.True(t, HasPrefix([]byte("abc"), tag))
	assert.False(t, HasPrefix([]byte("ab"), tag))
	assert.False(t, HasPrefix([]byte("xbcdef"), tag))
	assert.True(t, HasPrefix(nil, nil))
}

func TestReplyRoundTrip(t *testing.T) {
	tag := EncodeTag("abc")
	buf := EncodeReply(tag, 9000, "hello")

	// fixed fields sit right after the tag, port in network byte order
	require.Equal(t, byte(0x23), buf[len(tag)])
	require.Equal(t, byte(0x28), buf[len(tag)+1])

	port, payload, err := DecodeReply(buf, tag)
	require.NoError(t, err)
	assert.Equal(t, uint16(9000), port)
	assert.Equal(t, "hello", payload)
}

func TestReplyEmptyPayload(t *testing.T) {
	tag := EncodeTag("abc")
	port, payload, err := DecodeReply(EncodeReply(tag, 1, ""), tag)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), port)
	assert.Equal(t, "", payload)
}

func TestDecodeReplyMalformed(t *testing.T) {
	tag := EncodeTag("abc")

	// bare probe datagram: prefix matches but the port field is missing
	_, _, err := DecodeReply(tag, tag)
	assert.ErrorIs(t, err, ErrTruncated)

	// one byte of port
	_, _, err = DecodeReply(append(append([]byte{}, tag...), 0x23), tag)
	assert.ErrorIs(t, err, ErrTruncated)

	// wrong leading bytes
	_, _, err = DecodeReply(EncodeReply(EncodeTag("xyz"), 9000, "hello"), tag)
	assert.ErrorIs(t, err, ErrPrefixMismatch)

	// payload that is not UTF-8
	bad := EncodeReply(tag, 9000, "")
	bad = append(bad, 0xff, 0xfe)
	_, _, err = DecodeReply(bad, tag)
	assert.ErrorIs(t, err, ErrBadPayload)
}
