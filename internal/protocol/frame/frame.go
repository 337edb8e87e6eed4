// Package frame extracts length-prefixed, optionally zlib-compressed relay
// frames from an append-only byte stream and decodes them into messages.
package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/lcrown/weerelay/internal/protocol"
)

const (
	// headerSize covers the 4-byte total length plus the compression flag.
	headerSize = 5
)

var (
	// ErrIncomplete means the buffer does not yet hold one whole frame.
	// Recoverable: feed more bytes and call Next again.
	ErrIncomplete = errors.New("frame: incomplete frame")

	// ErrMalformed is fatal to the connection: bad length accounting,
	// decompression failure, an unknown type tag, or a truncated object
	// inside a complete frame.
	ErrMalformed = errors.New("frame: malformed frame")

	ErrFrameTooLarge = errors.New("frame: frame too large")
)

// Limits constrains framer memory use.
type Limits struct {
	MaxFrameBytes uint32
}

func DefaultLimits() Limits {
	return Limits{MaxFrameBytes: 32 * 1024 * 1024}
}

// Framer accumulates transport bytes and yields decoded messages. One
// framer serves exactly one connection; never reuse it across reconnects.
type Framer struct {
	buf    []byte
	limits Limits
}

func NewFramer(limits Limits) *Framer {
	return &Framer{limits: limits}
}

// Append adds newly received transport bytes.
func (f *Framer) Append(p []byte) {
	f.buf = append(f.buf, p...)
}

// Buffered reports how many unconsumed bytes are held.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Next extracts one complete frame and decodes it. It returns
// ErrIncomplete, leaving the buffer untouched, while fewer bytes are held
// than the frame declares. Safe to call with no new bytes appended.
func (f *Framer) Next() (*protocol.Message, error) {
	if len(f.buf) < 4 {
		return nil, ErrIncomplete
	}
	total := binary.BigEndian.Uint32(f.buf[:4])
	if total < headerSize {
		return nil, fmt.Errorf("%w: declared length %d", ErrMalformed, total)
	}
	if total > f.limits.MaxFrameBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFrameTooLarge, total, f.limits.MaxFrameBytes)
	}
	if uint32(len(f.buf)) < total {
		return nil, ErrIncomplete
	}

	raw := f.buf[:total]
	f.buf = f.buf[total:]

	msg, err := decodeFrame(raw)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func decodeFrame(raw []byte) (*protocol.Message, error) {
	compression := raw[4]
	body := raw[headerSize:]

	if compression != 0 {
		zr, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: zlib: %v", ErrMalformed, err)
		}
		expanded, err := io.ReadAll(zr)
		if cerr := zr.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, fmt.Errorf("%w: zlib: %v", ErrMalformed, err)
		}
		body = expanded
	}

	cur := protocol.NewCursor(body)
	id, err := cur.Str()
	if err != nil {
		return nil, fmt.Errorf("%w: message id: %v", ErrMalformed, err)
	}

	msg := &protocol.Message{
		ID:               id.Text,
		Size:             len(raw),
		SizeUncompressed: headerSize + len(body),
		Compressed:       compression != 0,
	}
	// A truncated object inside a complete frame is corruption, not a
	// partial read: the boundary must be hit exactly.
	for cur.Remaining() > 0 {
		obj, err := cur.Next()
		if err != nil {
			return nil, fmt.Errorf("%w: object %d: %v", ErrMalformed, len(msg.Objects), err)
		}
		msg.Objects = append(msg.Objects, obj)
	}
	return msg, nil
}
