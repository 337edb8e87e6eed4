// Package mirror maintains the client-side copy of the relay's buffers,
// lines and nicks, applying decoded messages as incremental updates.
//
// Ownership boundary:
// - buffer/line/nick collections, keyed by opaque pointer
// - record-name dispatch of hdata updates
// - change notifications toward the presentation layer
package mirror

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/lcrown/weerelay/internal/protocol"
)

// Buffer mirrors one remote chat buffer. Pointer identity is only valid
// for the lifetime of one connection; a buffer_closed event or a reconnect
// invalidates it.
type Buffer struct {
	Ptr       protocol.Pointer
	Number    int32
	FullName  string
	ShortName string
	Type      int32
	Title     string
	LocalVars map[string]string
	Lines     []*Line
	Nicks     []*Nick
}

// Line is one chat line, owned by exactly one buffer. Lines keep the
// server-provided order; the mirror never reorders them.
type Line struct {
	Ptr       protocol.Pointer
	Buffer    protocol.Pointer
	Date      time.Time
	Prefix    string
	Message   string
	Tags      []string
	Displayed bool
}

// Nick is one nicklist entry, owned by exactly one buffer.
type Nick struct {
	Ptr     protocol.Pointer
	Name    string
	Prefix  string
	Visible bool
	Group   bool
}

// Mirror holds the arena of buffers keyed by pointer plus their display
// order. The session's apply step is the only writer; the presentation
// layer must treat everything reachable from here as read-only.
type Mirror struct {
	buffers map[protocol.Pointer]*Buffer
	order   []protocol.Pointer
	notify  func(Event)
	log     zerolog.Logger
}

// New builds an empty mirror. notify may be nil; when set it receives one
// event per applied change, after the whole message is applied.
func New(notify func(Event), logger zerolog.Logger) *Mirror {
	return &Mirror{
		buffers: make(map[protocol.Pointer]*Buffer),
		notify:  notify,
		log:     logger,
	}
}

// Buffer looks a buffer up by pointer.
func (m *Mirror) Buffer(ptr protocol.Pointer) (*Buffer, bool) {
	b, ok := m.buffers[ptr]
	return b, ok
}

// BufferByFullName looks a buffer up by its full name.
func (m *Mirror) BufferByFullName(name string) (*Buffer, bool) {
	for _, ptr := range m.order {
		if b := m.buffers[ptr]; b != nil && b.FullName == name {
			return b, true
		}
	}
	return nil, false
}

// Buffers returns the buffers in display order.
func (m *Mirror) Buffers() []*Buffer {
	out := make([]*Buffer, 0, len(m.order))
	for _, ptr := range m.order {
		if b, ok := m.buffers[ptr]; ok {
			out = append(out, b)
		}
	}
	return out
}

// Len reports the number of mirrored buffers.
func (m *Mirror) Len() int {
	return len(m.buffers)
}

// Reset drops every mirrored object. Required before reusing a mirror on
// a fresh connection: pointer identity does not survive a reconnect.
func (m *Mirror) Reset() {
	m.buffers = make(map[protocol.Pointer]*Buffer)
	m.order = m.order[:0]
}

func (m *Mirror) emit(events []Event) {
	if m.notify == nil {
		return
	}
	for _, ev := range events {
		m.notify(ev)
	}
}

// insertBuffer places b before the buffer at next, or at the end when
// next is nil or unknown.
func (m *Mirror) insertBuffer(b *Buffer, next protocol.Pointer) {
	m.buffers[b.Ptr] = b
	if !next.IsNil() {
		for i, ptr := range m.order {
			if ptr == next {
				m.order = append(m.order[:i], append([]protocol.Pointer{b.Ptr}, m.order[i:]...)...)
				return
			}
		}
	}
	m.order = append(m.order, b.Ptr)
}

func (m *Mirror) removeBuffer(ptr protocol.Pointer) bool {
	if _, ok := m.buffers[ptr]; !ok {
		return false
	}
	delete(m.buffers, ptr)
	for i, p := range m.order {
		if p == ptr {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}
