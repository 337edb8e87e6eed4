package frame

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zlib"

	"github.com/lcrown/weerelay/internal/protocol"
)

// Encode assembles one wire frame from a message id and objects. The
// client only receives binary frames; this exists for round-trip tests
// and synthetic server fixtures.
func Encode(id string, objects []protocol.Object, compress bool) ([]byte, error) {
	body, err := protocol.AppendValue(nil, protocol.Object{
		Type: protocol.TypeString,
		Str:  protocol.Str{Text: id},
	})
	if err != nil {
		return nil, err
	}
	for _, o := range objects {
		body, err = protocol.AppendObject(body, o)
		if err != nil {
			return nil, err
		}
	}

	flag := byte(0)
	if compress {
		var zbuf bytes.Buffer
		zw := zlib.NewWriter(&zbuf)
		if _, err := zw.Write(body); err != nil {
			return nil, fmt.Errorf("frame: compress: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("frame: compress: %w", err)
		}
		body = zbuf.Bytes()
		flag = 1
	}

	out := binary.BigEndian.AppendUint32(nil, uint32(headerSize+len(body)))
	out = append(out, flag)
	return append(out, body...), nil
}
