package frame

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/lcrown/weerelay/internal/protocol"
)

func testObjects() []protocol.Object {
	return []protocol.Object{
		{Type: protocol.TypeString, Str: protocol.Str{Text: "payload"}},
		{Type: protocol.TypeInt, Int: 42},
	}
}

func TestFramerWholeFrame(t *testing.T) {
	wire, err := Encode("resp", testObjects(), false)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	f := NewFramer(DefaultLimits())
	f.Append(wire)
	msg, err := f.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if msg.ID != "resp" {
		t.Fatalf("id = %q", msg.ID)
	}
	if len(msg.Objects) != 2 || msg.Objects[1].Int != 42 {
		t.Fatalf("objects = %+v", msg.Objects)
	}
	if msg.Compressed {
		t.Fatal("flagged compressed")
	}
	if f.Buffered() != 0 {
		t.Fatalf("%d bytes left buffered", f.Buffered())
	}
}

// Feeding the stream one byte at a time must produce the same message as
// feeding it whole, with ErrIncomplete at every step before the last.
func TestFramerByteByByte(t *testing.T) {
	wire, err := Encode("resp", testObjects(), false)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	f := NewFramer(DefaultLimits())
	for i, b := range wire {
		f.Append([]byte{b})
		msg, err := f.Next()
		if i < len(wire)-1 {
			if !errors.Is(err, ErrIncomplete) {
				t.Fatalf("byte %d: err = %v, want ErrIncomplete", i, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("final byte: %v", err)
		}
		if msg.ID != "resp" || len(msg.Objects) != 2 {
			t.Fatalf("msg = %+v", msg)
		}
	}
}

func TestFramerTwoFramesOneAppend(t *testing.T) {
	first, err := Encode("a", testObjects(), false)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	second, err := Encode("b", nil, false)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	f := NewFramer(DefaultLimits())
	f.Append(append(first, second...))

	msg, err := f.Next()
	if err != nil || msg.ID != "a" {
		t.Fatalf("first: %v %+v", err, msg)
	}
	msg, err = f.Next()
	if err != nil || msg.ID != "b" {
		t.Fatalf("second: %v %+v", err, msg)
	}
	if _, err := f.Next(); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("drained framer: err = %v, want ErrIncomplete", err)
	}
}

func TestFramerCompressedRoundTrip(t *testing.T) {
	wire, err := Encode("zipped", testObjects(), true)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	f := NewFramer(DefaultLimits())
	f.Append(wire)
	msg, err := f.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if !msg.Compressed {
		t.Fatal("not flagged compressed")
	}
	if msg.ID != "zipped" || len(msg.Objects) != 2 {
		t.Fatalf("msg = %+v", msg)
	}
	if msg.Objects[0].Str.Text != "payload" {
		t.Fatalf("payload = %q", msg.Objects[0].Str.Text)
	}
}

func TestFramerEmptyCall(t *testing.T) {
	f := NewFramer(DefaultLimits())
	if _, err := f.Next(); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("err = %v, want ErrIncomplete", err)
	}
}

func TestFramerDeclaredLengthTooSmall(t *testing.T) {
	f := NewFramer(DefaultLimits())
	f.Append(binary.BigEndian.AppendUint32(nil, 3))
	if _, err := f.Next(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestFramerFrameTooLarge(t *testing.T) {
	f := NewFramer(Limits{MaxFrameBytes: 64})
	f.Append(binary.BigEndian.AppendUint32(nil, 1024))
	if _, err := f.Next(); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("err = %v, want ErrFrameTooLarge", err)
	}
}

// A complete frame whose objects do not land exactly on the boundary is
// corruption, never an incomplete read.
func TestFramerTruncatedObjectIsMalformed(t *testing.T) {
	wire, err := Encode("resp", testObjects(), false)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// chop the last object's bytes but keep the declared length honest
	bad := wire[:len(wire)-2]
	binary.BigEndian.PutUint32(bad[:4], uint32(len(bad)))

	f := NewFramer(DefaultLimits())
	f.Append(bad)
	if _, err := f.Next(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestFramerTrailingGarbageIsMalformed(t *testing.T) {
	wire, err := Encode("resp", nil, false)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// one stray byte inside the declared frame length
	bad := append(wire, 0xFF)
	binary.BigEndian.PutUint32(bad[:4], uint32(len(bad)))

	f := NewFramer(DefaultLimits())
	f.Append(bad)
	if _, err := f.Next(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestFramerBadZlibBody(t *testing.T) {
	body := []byte{0xde, 0xad, 0xbe, 0xef}
	wire := binary.BigEndian.AppendUint32(nil, uint32(headerSize+len(body)))
	wire = append(wire, 1)
	wire = append(wire, body...)

	f := NewFramer(DefaultLimits())
	f.Append(wire)
	if _, err := f.Next(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}
