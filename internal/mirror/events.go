package mirror

import "github.com/lcrown/weerelay/internal/protocol"

// EventKind enumerates the change notifications delivered to the
// presentation layer.
type EventKind int

const (
	BufferAdded EventKind = iota
	BufferUpdated
	BufferRemoved
	LineAppended
	LineBatchPrepended
	NickChanged
)

func (k EventKind) String() string {
	switch k {
	case BufferAdded:
		return "buffer_added"
	case BufferUpdated:
		return "buffer_updated"
	case BufferRemoved:
		return "buffer_removed"
	case LineAppended:
		return "line_appended"
	case LineBatchPrepended:
		return "line_batch_prepended"
	case NickChanged:
		return "nick_changed"
	default:
		return "unknown"
	}
}

// Event is one change notification. Buffer is always set; Line, Nick and
// Count are populated per kind. Events fire only after the mirror is fully
// consistent for the message that produced them.
type Event struct {
	Kind   EventKind
	Buffer protocol.Pointer
	Line   protocol.Pointer
	Nick   protocol.Pointer
	Count  int
}
