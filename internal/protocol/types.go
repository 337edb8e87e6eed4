package protocol

import (
	"fmt"
	"strings"
)

// Type identifies one wire object variant by its 3-byte ASCII tag.
type Type string

// Type tags from the relay wire contract.
const (
	TypeChar      Type = "chr"
	TypeInt       Type = "int"
	TypeLong      Type = "lon"
	TypeString    Type = "str"
	TypeBuffer    Type = "buf"
	TypePointer   Type = "ptr"
	TypeTime      Type = "tim"
	TypeHashtable Type = "htb"
	TypeHData     Type = "hda"
	TypeInfo      Type = "inf"
	TypeInfolist  Type = "inl"
	TypeArray     Type = "arr"
)

func (t Type) Valid() bool {
	switch t {
	case TypeChar, TypeInt, TypeLong, TypeString, TypeBuffer, TypePointer,
		TypeTime, TypeHashtable, TypeHData, TypeInfo, TypeInfolist, TypeArray:
		return true
	}
	return false
}

// Pointer is an opaque server-assigned handle, canonically "0x<hex>".
// It identifies a buffer, line or nick on the remote side; it is never a
// client memory address, and the server may reuse values after an object
// is closed.
type Pointer string

// NilPointer is the wire value for "no object".
const NilPointer Pointer = "0x0"

func (p Pointer) IsNil() bool {
	return p == "" || p == NilPointer
}

// Str is a decoded string value. A null string (wire length 0xFFFFFFFF) is
// distinct from an empty one and keeps Null set.
type Str struct {
	Null bool
	Text string
}

func (s Str) String() string { return s.Text }

// Buf is a decoded raw byte value with the same null/empty distinction
// as Str.
type Buf struct {
	Null bool
	Data []byte
}

// Hashtable maps stringified keys to decoded values. Key and value types
// are uniform per table and declared once on the wire.
type Hashtable struct {
	KeyType   Type
	ValueType Type
	Items     map[string]Object
}

// StringMap flattens a str->str hashtable. Non-string values are skipped.
func (h *Hashtable) StringMap() map[string]string {
	out := make(map[string]string, len(h.Items))
	for k, v := range h.Items {
		if v.Type == TypeString {
			out[k] = v.Str.Text
		}
	}
	return out
}

// HDataKey is one declared field of an hdata record: name plus type tag.
type HDataKey struct {
	Name string
	Type Type
}

// HDataRow is one record instance: the path pointers followed by field
// values keyed by declared name. Every row of an hdata shares the same
// field set.
type HDataRow struct {
	Ptrs   []Pointer
	Values map[string]Object
}

// Ptr returns the row's own handle (the last path pointer).
func (r HDataRow) Ptr() Pointer {
	if len(r.Ptrs) == 0 {
		return NilPointer
	}
	return r.Ptrs[len(r.Ptrs)-1]
}

// RootPtr returns the first path pointer (the owning top-level object).
func (r HDataRow) RootPtr() Pointer {
	if len(r.Ptrs) == 0 {
		return NilPointer
	}
	return r.Ptrs[0]
}

// Field returns the named field value when the row carries it.
func (r HDataRow) Field(name string) (Object, bool) {
	o, ok := r.Values[name]
	return o, ok
}

// StrField returns the named field as string text, empty when absent
// or null.
func (r HDataRow) StrField(name string) string {
	if o, ok := r.Values[name]; ok && o.Type == TypeString {
		return o.Str.Text
	}
	return ""
}

// PtrField returns the named field as a pointer, nil pointer when absent.
func (r HDataRow) PtrField(name string) Pointer {
	if o, ok := r.Values[name]; ok && o.Type == TypePointer {
		return o.Ptr
	}
	return NilPointer
}

// IntField returns the named field as an integer, 0 when absent.
func (r HDataRow) IntField(name string) int32 {
	if o, ok := r.Values[name]; ok && o.Type == TypeInt {
		return o.Int
	}
	return 0
}

// CharField returns the named field as a signed byte, 0 when absent.
func (r HDataRow) CharField(name string) int8 {
	if o, ok := r.Values[name]; ok && o.Type == TypeChar {
		return o.Char
	}
	return 0
}

// TimeField returns the named field as Unix seconds, 0 when absent.
func (r HDataRow) TimeField(name string) int64 {
	if o, ok := r.Values[name]; ok && o.Type == TypeTime {
		return o.Time
	}
	return 0
}

// HData is a structured record set: an h-path, a field schema declared
// once, and N rows sharing it.
type HData struct {
	HPath string
	Path  []string
	Keys  []HDataKey
	Rows  []HDataRow
}

// Name returns the record name, the last element of the h-path.
func (h *HData) Name() string {
	if len(h.Path) == 0 {
		return ""
	}
	return h.Path[len(h.Path)-1]
}

// Info is a single name/value pair.
type Info struct {
	Name  Str
	Value Str
}

// InfolistItem is one infolist entry's variables.
type InfolistItem map[string]Object

// Infolist is a named list of variable sets.
type Infolist struct {
	Name  Str
	Items []InfolistItem
}

// Array is a uniform ordered sequence of values.
type Array struct {
	ElemType Type
	Values   []Object
}

// Object is one decoded wire value. Exactly the variant named by Type is
// populated; the accessor methods enforce that for callers with a
// structural expectation.
type Object struct {
	Type      Type
	Char      int8
	Int       int32
	Long      int64
	Str       Str
	Buf       Buf
	Ptr       Pointer
	Time      int64
	Hashtable *Hashtable
	HData     *HData
	Info      *Info
	Infolist  *Infolist
	Array     *Array
}

func (o Object) expect(t Type) error {
	if o.Type != t {
		return fmt.Errorf("%w: have %q want %q", ErrTypeMismatch, o.Type, t)
	}
	return nil
}

func (o Object) AsInt() (int32, error)  { return o.Int, o.expect(TypeInt) }
func (o Object) AsLong() (int64, error) { return o.Long, o.expect(TypeLong) }
func (o Object) AsStr() (Str, error)    { return o.Str, o.expect(TypeString) }
func (o Object) AsBuf() (Buf, error)    { return o.Buf, o.expect(TypeBuffer) }
func (o Object) AsTime() (int64, error) { return o.Time, o.expect(TypeTime) }

func (o Object) AsPtr() (Pointer, error) {
	return o.Ptr, o.expect(TypePointer)
}

func (o Object) AsHashtable() (*Hashtable, error) {
	return o.Hashtable, o.expect(TypeHashtable)
}

func (o Object) AsHData() (*HData, error) {
	return o.HData, o.expect(TypeHData)
}

// AsHDataNamed returns the hdata only when its record name matches.
func (o Object) AsHDataNamed(name string) (*HData, error) {
	h, err := o.AsHData()
	if err != nil {
		return nil, err
	}
	if h.Name() != name {
		return nil, fmt.Errorf("%w: hdata record %q want %q", ErrTypeMismatch, h.Name(), name)
	}
	return h, nil
}

func (o Object) AsInfo() (*Info, error) {
	return o.Info, o.expect(TypeInfo)
}

func (o Object) AsInfolist() (*Infolist, error) {
	return o.Infolist, o.expect(TypeInfolist)
}

func (o Object) AsArray() (*Array, error) {
	return o.Array, o.expect(TypeArray)
}

// Message is one decoded protocol frame: the echoed request id (empty for
// server push) plus the ordered decoded objects. It is an immutable
// snapshot; nothing mutates it after the framer builds it.
type Message struct {
	ID      string
	Objects []Object

	// Size is the wire size of the frame including the length field.
	// SizeUncompressed reflects the body after zlib expansion.
	Size             int
	SizeUncompressed int
	Compressed       bool
}

// Push reports whether the message is an unsolicited server event.
func (m *Message) Push() bool {
	return m.ID == "" || strings.HasPrefix(m.ID, "_")
}
