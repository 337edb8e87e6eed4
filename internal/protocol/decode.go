package protocol

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// nullLength is the wire sentinel for a null str/buf value, distinct from
// a zero-length one.
const nullLength = 0xFFFFFFFF

// Cursor reads typed values from a frame body, advancing past each decoded
// value. It never blocks: underrun surfaces as ErrIncomplete.
type Cursor struct {
	data []byte
	off  int
}

func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Remaining reports how many bytes are left to decode.
func (c *Cursor) Remaining() int {
	return len(c.data) - c.off
}

func (c *Cursor) take(n int) ([]byte, error) {
	if n < 0 || c.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrIncomplete, n, c.Remaining())
	}
	b := c.data[c.off : c.off+n]
	c.off += n
	return b, nil
}

// Type reads one 3-byte ASCII type tag.
func (c *Cursor) Type() (Type, error) {
	b, err := c.take(3)
	if err != nil {
		return "", err
	}
	t := Type(b)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, string(b))
	}
	return t, nil
}

// Object decodes exactly one value of the given type.
func (c *Cursor) Object(t Type) (Object, error) {
	o := Object{Type: t}
	var err error
	switch t {
	case TypeChar:
		o.Char, err = c.Char()
	case TypeInt:
		o.Int, err = c.Int()
	case TypeLong:
		o.Long, err = c.Long()
	case TypeString:
		o.Str, err = c.Str()
	case TypeBuffer:
		o.Buf, err = c.Buf()
	case TypePointer:
		o.Ptr, err = c.Ptr()
	case TypeTime:
		o.Time, err = c.Time()
	case TypeHashtable:
		o.Hashtable, err = c.Hashtable()
	case TypeHData:
		o.HData, err = c.HData()
	case TypeInfo:
		o.Info, err = c.Info()
	case TypeInfolist:
		o.Infolist, err = c.Infolist()
	case TypeArray:
		o.Array, err = c.Array()
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownType, string(t))
	}
	if err != nil {
		return Object{}, err
	}
	return o, nil
}

// Next reads a type tag followed by its value.
func (c *Cursor) Next() (Object, error) {
	t, err := c.Type()
	if err != nil {
		return Object{}, err
	}
	return c.Object(t)
}

func (c *Cursor) Char() (int8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return int8(b[0]), nil
}

func (c *Cursor) Int() (int32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// shortData reads a 1-byte length followed by that many bytes, the
// encoding shared by lon, ptr and tim values.
func (c *Cursor) shortData() ([]byte, error) {
	lb, err := c.take(1)
	if err != nil {
		return nil, err
	}
	return c.take(int(lb[0]))
}

func (c *Cursor) Long() (int64, error) {
	b, err := c.shortData()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: long %q", ErrBadNumber, string(b))
	}
	return v, nil
}

func (c *Cursor) Str() (Str, error) {
	b, err := c.take(4)
	if err != nil {
		return Str{}, err
	}
	length := binary.BigEndian.Uint32(b)
	if length == nullLength {
		return Str{Null: true}, nil
	}
	v, err := c.take(int(length))
	if err != nil {
		return Str{}, err
	}
	return Str{Text: string(v)}, nil
}

func (c *Cursor) Buf() (Buf, error) {
	b, err := c.take(4)
	if err != nil {
		return Buf{}, err
	}
	length := binary.BigEndian.Uint32(b)
	if length == nullLength {
		return Buf{Null: true}, nil
	}
	v, err := c.take(int(length))
	if err != nil {
		return Buf{}, err
	}
	data := make([]byte, length)
	copy(data, v)
	return Buf{Data: data}, nil
}

func (c *Cursor) Ptr() (Pointer, error) {
	b, err := c.shortData()
	if err != nil {
		return "", err
	}
	hex := string(b)
	if hex == "" || hex == "0" {
		return NilPointer, nil
	}
	return Pointer("0x" + hex), nil
}

func (c *Cursor) Time() (int64, error) {
	b, err := c.shortData()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: time %q", ErrBadNumber, string(b))
	}
	return v, nil
}

func (c *Cursor) Hashtable() (*Hashtable, error) {
	keyType, err := c.Type()
	if err != nil {
		return nil, err
	}
	valueType, err := c.Type()
	if err != nil {
		return nil, err
	}
	count, err := c.Int()
	if err != nil {
		return nil, err
	}
	h := &Hashtable{
		KeyType:   keyType,
		ValueType: valueType,
		Items:     make(map[string]Object, count),
	}
	for i := int32(0); i < count; i++ {
		key, err := c.Object(keyType)
		if err != nil {
			return nil, err
		}
		value, err := c.Object(valueType)
		if err != nil {
			return nil, err
		}
		h.Items[keyString(key)] = value
	}
	return h, nil
}

// keyString renders a hashtable key object as its map key.
func keyString(o Object) string {
	switch o.Type {
	case TypeString:
		return o.Str.Text
	case TypeInt:
		return strconv.FormatInt(int64(o.Int), 10)
	case TypeLong:
		return strconv.FormatInt(o.Long, 10)
	case TypePointer:
		return string(o.Ptr)
	case TypeTime:
		return strconv.FormatInt(o.Time, 10)
	case TypeChar:
		return strconv.FormatInt(int64(o.Char), 10)
	default:
		return fmt.Sprintf("%v", o)
	}
}

func (c *Cursor) HData() (*HData, error) {
	hpath, err := c.Str()
	if err != nil {
		return nil, err
	}
	keysSpec, err := c.Str()
	if err != nil {
		return nil, err
	}
	count, err := c.Int()
	if err != nil {
		return nil, err
	}

	h := &HData{HPath: hpath.Text}
	if hpath.Text != "" {
		h.Path = strings.Split(hpath.Text, "/")
	}
	if keysSpec.Text != "" {
		for _, spec := range strings.Split(keysSpec.Text, ",") {
			name, typ, ok := strings.Cut(spec, ":")
			if !ok || name == "" || !Type(typ).Valid() {
				return nil, fmt.Errorf("%w: key spec %q", ErrBadHData, spec)
			}
			h.Keys = append(h.Keys, HDataKey{Name: name, Type: Type(typ)})
		}
	}

	h.Rows = make([]HDataRow, 0, count)
	for i := int32(0); i < count; i++ {
		row := HDataRow{
			Ptrs:   make([]Pointer, 0, len(h.Path)),
			Values: make(map[string]Object, len(h.Keys)),
		}
		for range h.Path {
			p, err := c.Ptr()
			if err != nil {
				return nil, err
			}
			row.Ptrs = append(row.Ptrs, p)
		}
		for _, key := range h.Keys {
			v, err := c.Object(key.Type)
			if err != nil {
				return nil, err
			}
			row.Values[key.Name] = v
		}
		h.Rows = append(h.Rows, row)
	}
	return h, nil
}

func (c *Cursor) Info() (*Info, error) {
	name, err := c.Str()
	if err != nil {
		return nil, err
	}
	value, err := c.Str()
	if err != nil {
		return nil, err
	}
	return &Info{Name: name, Value: value}, nil
}

func (c *Cursor) Infolist() (*Infolist, error) {
	name, err := c.Str()
	if err != nil {
		return nil, err
	}
	count, err := c.Int()
	if err != nil {
		return nil, err
	}
	inl := &Infolist{Name: name, Items: make([]InfolistItem, 0, count)}
	for i := int32(0); i < count; i++ {
		vars, err := c.Int()
		if err != nil {
			return nil, err
		}
		item := make(InfolistItem, vars)
		for j := int32(0); j < vars; j++ {
			varName, err := c.Str()
			if err != nil {
				return nil, err
			}
			value, err := c.Next()
			if err != nil {
				return nil, err
			}
			item[varName.Text] = value
		}
		inl.Items = append(inl.Items, item)
	}
	return inl, nil
}

func (c *Cursor) Array() (*Array, error) {
	elemType, err := c.Type()
	if err != nil {
		return nil, err
	}
	count, err := c.Int()
	if err != nil {
		return nil, err
	}
	arr := &Array{ElemType: elemType, Values: make([]Object, 0, count)}
	for i := int32(0); i < count; i++ {
		v, err := c.Object(elemType)
		if err != nil {
			return nil, err
		}
		arr.Values = append(arr.Values, v)
	}
	return arr, nil
}
