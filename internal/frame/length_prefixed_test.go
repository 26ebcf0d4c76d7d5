package frame

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	for _, order := range []ByteOrder{LittleEndian, BigEndian} {
		codec := NewCodec(order, 0)

		type payload struct {
			Query     string `json:"query"`
			SessionID string `json:"session_id"`
		}
		want := payload{Query: "hello", SessionID: "s1"}

		var buf bytes.Buffer
		require.NoError(t, codec.WriteJSON(&buf, want))

		var got payload
		require.NoError(t, codec.ReadJSON(&buf, &got))
		assert.Equal(t, want, got)
	}
}

func TestCodecZeroLengthRejected(t *testing.T) {
	codec := NewCodec(LittleEndian, 0)
	var buf bytes.Buffer
	header := make([]byte, 4)
	buf.Write(header) // length 0
	_, err := codec.ReadFrame(&buf)
	assert.ErrorIs(t, err, ErrZeroLength)

	err = codec.WriteFrame(&bytes.Buffer{}, nil)
	assert.ErrorIs(t, err, ErrZeroLength)
}

func TestCodecOversizeRejectedWithoutAllocating(t *testing.T) {
	codec := NewCodec(BigEndian, 16) // tiny cap
	var buf bytes.Buffer
	header := make([]byte, 4)
	BigEndian.PutUint32(header, 1<<20) // declares 1MiB, far over cap
	buf.Write(header)
	// No payload bytes written at all: if ReadFrame allocated before
	// validating the cap this would still fail on the subsequent read, but
	// we assert the specific error to catch a cap check that's missing.
	_, err := codec.ReadFrame(&buf)
	assert.ErrorIs(t, err, ErrFrameOversize)
}

func TestCodecTruncatedFrame(t *testing.T) {
	codec := NewCodec(LittleEndian, 0)
	var buf bytes.Buffer
	header := make([]byte, 4)
	LittleEndian.PutUint32(header, 10)
	buf.Write(header)
	buf.WriteString("short") // fewer than 10 bytes

	_, err := codec.ReadFrame(&buf)
	assert.ErrorIs(t, err, ErrFrameTooShort)
}

func TestCodecInvalidUTF8(t *testing.T) {
	codec := NewCodec(LittleEndian, 0)
	var buf bytes.Buffer
	bad := []byte{0xff, 0xfe, 0xfd}
	require.NoError(t, codec.WriteFrame(&buf, bad))
	_, err := codec.ReadFrame(&buf)
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestCodecOrderIsolation(t *testing.T) {
	// Encoding with one order and decoding with the other must not silently
	// succeed for a non-symmetric length.
	le := NewCodec(LittleEndian, 0)
	be := NewCodec(BigEndian, 0)

	var buf bytes.Buffer
	require.NoError(t, le.WriteJSON(&buf, map[string]int{"a": 1}))

	// 7 bytes little-endian misreads as a huge big-endian length; assert it
	// is rejected as oversize rather than silently misparsed.
	smallCap := NewCodec(BigEndian, 1024)
	_ = be
	_, err := smallCap.ReadFrame(&buf)
	assert.ErrorIs(t, err, ErrFrameOversize)
}
