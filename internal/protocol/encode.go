package protocol

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Encoding mirrors the decoder. Outbound traffic is command lines, so the
// client never sends binary objects, but the encoder is needed to build
// frames for round-trip tests and synthetic server fixtures.

// AppendType appends a 3-byte type tag.
func AppendType(dst []byte, t Type) ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, string(t))
	}
	return append(dst, t...), nil
}

// AppendObject appends a type tag followed by the encoded value.
func AppendObject(dst []byte, o Object) ([]byte, error) {
	dst, err := AppendType(dst, o.Type)
	if err != nil {
		return nil, err
	}
	return AppendValue(dst, o)
}

// AppendValue appends the encoded value without its type tag.
func AppendValue(dst []byte, o Object) ([]byte, error) {
	switch o.Type {
	case TypeChar:
		return append(dst, byte(o.Char)), nil
	case TypeInt:
		return binary.BigEndian.AppendUint32(dst, uint32(o.Int)), nil
	case TypeLong:
		return appendShortData(dst, strconv.FormatInt(o.Long, 10))
	case TypeString:
		return appendStr(dst, o.Str), nil
	case TypeBuffer:
		if o.Buf.Null {
			return binary.BigEndian.AppendUint32(dst, nullLength), nil
		}
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(o.Buf.Data)))
		return append(dst, o.Buf.Data...), nil
	case TypePointer:
		return appendPtr(dst, o.Ptr)
	case TypeTime:
		return appendShortData(dst, strconv.FormatInt(o.Time, 10))
	case TypeHashtable:
		return appendHashtable(dst, o.Hashtable)
	case TypeHData:
		return appendHData(dst, o.HData)
	case TypeInfo:
		dst = appendStr(dst, o.Info.Name)
		return appendStr(dst, o.Info.Value), nil
	case TypeInfolist:
		return appendInfolist(dst, o.Infolist)
	case TypeArray:
		return appendArray(dst, o.Array)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, string(o.Type))
	}
}

func appendStr(dst []byte, s Str) []byte {
	if s.Null {
		return binary.BigEndian.AppendUint32(dst, nullLength)
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(s.Text)))
	return append(dst, s.Text...)
}

func appendShortData(dst []byte, s string) ([]byte, error) {
	if len(s) > 0xFF {
		return nil, fmt.Errorf("%w: short value %d bytes", ErrBadNumber, len(s))
	}
	dst = append(dst, byte(len(s)))
	return append(dst, s...), nil
}

func appendPtr(dst []byte, p Pointer) ([]byte, error) {
	hex := strings.TrimPrefix(string(p), "0x")
	if hex == "" {
		hex = "0"
	}
	return appendShortData(dst, hex)
}

func appendHashtable(dst []byte, h *Hashtable) ([]byte, error) {
	dst, err := AppendType(dst, h.KeyType)
	if err != nil {
		return nil, err
	}
	dst, err = AppendType(dst, h.ValueType)
	if err != nil {
		return nil, err
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(h.Items)))
	for k, v := range h.Items {
		// only str keys are encodable losslessly; that is the only key
		// type the relay emits in practice
		if h.KeyType != TypeString {
			return nil, fmt.Errorf("%w: hashtable key type %q", ErrUnknownType, h.KeyType)
		}
		dst = appendStr(dst, Str{Text: k})
		dst, err = AppendValue(dst, v)
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func appendHData(dst []byte, h *HData) ([]byte, error) {
	dst = appendStr(dst, Str{Text: h.HPath})
	specs := make([]string, 0, len(h.Keys))
	for _, k := range h.Keys {
		specs = append(specs, k.Name+":"+string(k.Type))
	}
	dst = appendStr(dst, Str{Text: strings.Join(specs, ",")})
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(h.Rows)))
	for _, row := range h.Rows {
		if len(row.Ptrs) != len(h.Path) {
			return nil, fmt.Errorf("%w: row has %d path pointers, want %d", ErrBadHData, len(row.Ptrs), len(h.Path))
		}
		var err error
		for _, p := range row.Ptrs {
			dst, err = appendPtr(dst, p)
			if err != nil {
				return nil, err
			}
		}
		for _, k := range h.Keys {
			v, ok := row.Values[k.Name]
			if !ok || v.Type != k.Type {
				return nil, fmt.Errorf("%w: row missing field %q", ErrBadHData, k.Name)
			}
			dst, err = AppendValue(dst, v)
			if err != nil {
				return nil, err
			}
		}
	}
	return dst, nil
}

func appendInfolist(dst []byte, inl *Infolist) ([]byte, error) {
	dst = appendStr(dst, inl.Name)
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(inl.Items)))
	var err error
	for _, item := range inl.Items {
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(item)))
		for name, v := range item {
			dst = appendStr(dst, Str{Text: name})
			dst, err = AppendObject(dst, v)
			if err != nil {
				return nil, err
			}
		}
	}
	return dst, nil
}

func appendArray(dst []byte, arr *Array) ([]byte, error) {
	dst, err := AppendType(dst, arr.ElemType)
	if err != nil {
		return nil, err
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(arr.Values)))
	for _, v := range arr.Values {
		if v.Type != arr.ElemType {
			return nil, fmt.Errorf("%w: array element %q want %q", ErrTypeMismatch, v.Type, arr.ElemType)
		}
		dst, err = AppendValue(dst, v)
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}
