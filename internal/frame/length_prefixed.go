package frame

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"
)

// ByteOrder selects the endianness of the 4-byte length prefix. The
// client↔dispatcher pair uses little-endian; the two inter-daemon pairs
// (dispatcher↔memory agent, dispatcher↔tool host) use big-endian. Pick one
// per connection pair and never mix within it (spec §4.1, §9).
type ByteOrder binary.ByteOrder

var (
	LittleEndian ByteOrder = binary.LittleEndian
	BigEndian    ByteOrder = binary.BigEndian
)

// DefaultCap is the default maximum frame size (16 MiB, spec §4.1).
const DefaultCap = 16 * 1024 * 1024

// Codec encodes/decodes length-prefixed JSON frames over an io.Reader/Writer
// pair, such as a Unix domain socket connection.
type Codec struct {
	order ByteOrder
	cap   int
}

// NewCodec builds a Codec for the given byte order. cap <= 0 uses DefaultCap.
func NewCodec(order ByteOrder, cap int) *Codec {
	if cap <= 0 {
		cap = DefaultCap
	}
	return &Codec{order: order, cap: cap}
}

// WriteJSON marshals v and writes it as one length-prefixed frame.
func (c *Codec) WriteJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("frame: marshal: %w", err)
	}
	return c.WriteFrame(w, data)
}

// WriteFrame writes a raw length-prefixed frame. An empty payload is a
// protocol error per spec §4.1 ("a length of 0 is a protocol error").
func (c *Codec) WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) == 0 {
		return ErrZeroLength
	}
	header := make([]byte, 4)
	c.order.PutUint32(header, uint32(len(payload)))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("frame: write header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("frame: write payload: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame, validating the cap before
// allocating the payload buffer.
func (c *Codec) ReadFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrFrameTooShort
		}
		return nil, fmt.Errorf("frame: read header: %w", err)
	}

	length := c.order.Uint32(header)
	if length == 0 {
		return nil, ErrZeroLength
	}
	if int(length) > c.cap {
		return nil, ErrFrameOversize
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrFrameTooShort
		}
		return nil, fmt.Errorf("frame: read payload: %w", err)
	}
	if !utf8.Valid(payload) {
		return nil, ErrInvalidUTF8
	}
	return payload, nil
}

// ReadJSON reads one frame and unmarshals it into v.
func (c *Codec) ReadJSON(r io.Reader, v any) error {
	payload, err := c.ReadFrame(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return nil
}
