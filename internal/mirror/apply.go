package mirror

import (
	"time"

	"github.com/lcrown/weerelay/internal/protocol"
)

// ApplyHint tells the mirror how to place line_data rows.
type ApplyHint int

const (
	// HintNone appends lines in received order.
	HintNone ApplyHint = iota
	// HintHistory prepends the message's lines as one block: the rows are
	// a history backfill ordered oldest-to-newest, and already-present
	// lines keep their relative order.
	HintHistory
)

// Record names dispatched to update functions. An hdata whose record name
// is absent here is ignored: newer servers may push records this client
// does not know, and that is never fatal.
var recordHandlers = map[string]func(*Mirror, *applyCtx, *protocol.HData) error{
	"buffer":        applyBufferRecords,
	"line_data":     applyLineRecords,
	"nicklist_item": applyNicklistRecords,
}

type applyCtx struct {
	msgID      string
	hint       ApplyHint
	events     []Event
	resetDone  bool
	nickReset  map[protocol.Pointer]bool
	blocks     map[protocol.Pointer][]*Line
	blockOrder []protocol.Pointer
}

// batchLines reports whether the message's line rows are a bulk
// last_line(-N) response. Those arrive newest-to-oldest on the wire and
// must be flipped before placement; single-row pushes arrive in order.
func (ctx *applyCtx) batchLines() bool {
	return ctx.hint == HintHistory || ctx.msgID == "listlines"
}

// Apply routes one decoded message into the collections and, once the
// state is fully consistent, emits the resulting change notifications.
func (m *Mirror) Apply(msg *protocol.Message) error {
	return m.ApplyWithHint(msg, HintNone)
}

// ApplyWithHint is Apply with explicit line placement, used by the session
// for correlated history responses.
func (m *Mirror) ApplyWithHint(msg *protocol.Message, hint ApplyHint) error {
	ctx := &applyCtx{
		msgID:     msg.ID,
		hint:      hint,
		nickReset: make(map[protocol.Pointer]bool),
		blocks:    make(map[protocol.Pointer][]*Line),
	}
	for _, obj := range msg.Objects {
		if obj.Type != protocol.TypeHData {
			continue
		}
		h := obj.HData
		handler, ok := recordHandlers[h.Name()]
		if !ok {
			m.log.Debug().Str("record", h.Name()).Str("msg_id", msg.ID).
				Msg("mirror: ignoring unknown hdata record")
			continue
		}
		if err := handler(m, ctx, h); err != nil {
			return err
		}
	}
	m.finishLineBlocks(ctx)
	m.emit(ctx.events)
	return nil
}

// finishLineBlocks places the collected bulk line rows. The wire delivers
// last_line(-N) rows newest first; each block is reversed so buffers keep
// oldest-to-newest order.
func (m *Mirror) finishLineBlocks(ctx *applyCtx) {
	for _, bufPtr := range ctx.blockOrder {
		block := ctx.blocks[bufPtr]
		b, ok := m.buffers[bufPtr]
		if !ok || len(block) == 0 {
			continue
		}
		for i, j := 0, len(block)-1; i < j; i, j = i+1, j-1 {
			block[i], block[j] = block[j], block[i]
		}
		if ctx.hint == HintHistory {
			b.Lines = append(block, b.Lines...)
			ctx.events = append(ctx.events, Event{
				Kind:   LineBatchPrepended,
				Buffer: bufPtr,
				Count:  len(block),
			})
			continue
		}
		b.Lines = append(b.Lines, block...)
		for _, line := range block {
			ctx.events = append(ctx.events, Event{Kind: LineAppended, Buffer: bufPtr, Line: line.Ptr})
		}
	}
}

func applyBufferRecords(m *Mirror, ctx *applyCtx, h *protocol.HData) error {
	closing := ctx.msgID == "_buffer_closing" || ctx.msgID == "_buffer_closed"
	moved := ctx.msgID == "_buffer_moved" || ctx.msgID == "_buffer_merged" ||
		ctx.msgID == "_buffer_unmerged"
	if ctx.msgID == "listbuffers" && !ctx.resetDone {
		// full buffer list: rebuild from scratch
		m.Reset()
		ctx.resetDone = true
	}

	for _, row := range h.Rows {
		ptr := row.Ptr()
		if ptr.IsNil() {
			continue
		}
		if closing {
			if m.removeBuffer(ptr) {
				ctx.events = append(ctx.events, Event{Kind: BufferRemoved, Buffer: ptr})
			}
			continue
		}
		b, ok := m.buffers[ptr]
		if !ok {
			b = &Buffer{Ptr: ptr, LocalVars: make(map[string]string)}
			updateBufferFields(b, row)
			m.insertBuffer(b, row.PtrField("next_buffer"))
			ctx.events = append(ctx.events, Event{Kind: BufferAdded, Buffer: ptr})
			continue
		}
		updateBufferFields(b, row)
		if moved {
			m.removeBuffer(ptr)
			m.insertBuffer(b, row.PtrField("next_buffer"))
		}
		ctx.events = append(ctx.events, Event{Kind: BufferUpdated, Buffer: ptr})
	}
	return nil
}

// updateBufferFields copies the fields present in the row; incremental
// events carry only the fields that changed.
func updateBufferFields(b *Buffer, row protocol.HDataRow) {
	if o, ok := row.Field("number"); ok && o.Type == protocol.TypeInt {
		b.Number = o.Int
	}
	if o, ok := row.Field("full_name"); ok && o.Type == protocol.TypeString {
		b.FullName = o.Str.Text
	}
	if o, ok := row.Field("short_name"); ok && o.Type == protocol.TypeString {
		b.ShortName = o.Str.Text
	}
	if o, ok := row.Field("type"); ok && o.Type == protocol.TypeInt {
		b.Type = o.Int
	}
	if o, ok := row.Field("title"); ok && o.Type == protocol.TypeString {
		b.Title = o.Str.Text
	}
	if o, ok := row.Field("local_variables"); ok && o.Type == protocol.TypeHashtable {
		b.LocalVars = o.Hashtable.StringMap()
	}
}

func applyLineRecords(m *Mirror, ctx *applyCtx, h *protocol.HData) error {
	for _, row := range h.Rows {
		bufPtr := row.PtrField("buffer")
		if bufPtr.IsNil() {
			bufPtr = row.RootPtr()
		}
		b, ok := m.buffers[bufPtr]
		if !ok {
			m.log.Debug().Str("buffer", string(bufPtr)).Str("msg_id", ctx.msgID).
				Msg("mirror: line for unknown buffer dropped")
			continue
		}
		line := &Line{
			Ptr:       row.Ptr(),
			Buffer:    bufPtr,
			Date:      time.Unix(row.TimeField("date"), 0),
			Prefix:    row.StrField("prefix"),
			Message:   row.StrField("message"),
			Displayed: row.CharField("displayed") != 0,
			Tags:      tagsOf(row),
		}
		if ctx.batchLines() {
			if _, seen := ctx.blocks[bufPtr]; !seen {
				ctx.blockOrder = append(ctx.blockOrder, bufPtr)
			}
			ctx.blocks[bufPtr] = append(ctx.blocks[bufPtr], line)
			continue
		}
		b.Lines = append(b.Lines, line)
		ctx.events = append(ctx.events, Event{Kind: LineAppended, Buffer: bufPtr, Line: line.Ptr})
	}
	return nil
}

func tagsOf(row protocol.HDataRow) []string {
	o, ok := row.Field("tags_array")
	if !ok || o.Type != protocol.TypeArray || o.Array.ElemType != protocol.TypeString {
		return nil
	}
	tags := make([]string, 0, len(o.Array.Values))
	for _, v := range o.Array.Values {
		tags = append(tags, v.Str.Text)
	}
	return tags
}

// Nicklist diff operations carried in the _diff field.
const (
	nickDiffAdd    = '+'
	nickDiffRemove = '-'
	nickDiffUpdate = '*'
	nickDiffParent = '^'
)

func applyNicklistRecords(m *Mirror, ctx *applyCtx, h *protocol.HData) error {
	diff := ctx.msgID == "_nicklist_diff"
	full := ctx.msgID == "nicklist" || ctx.msgID == "_nicklist"

	for _, row := range h.Rows {
		bufPtr := row.RootPtr()
		b, ok := m.buffers[bufPtr]
		if !ok {
			continue
		}
		// full nicklist replaces the buffer's set; reset on its first row
		if full && !ctx.nickReset[bufPtr] {
			b.Nicks = nil
			ctx.nickReset[bufPtr] = true
		}

		op := byte(nickDiffAdd)
		if diff {
			op = byte(row.CharField("_diff"))
		}
		switch op {
		case nickDiffAdd, nickDiffUpdate:
			upsertNick(b, &Nick{
				Ptr:     row.Ptr(),
				Name:    row.StrField("name"),
				Prefix:  row.StrField("prefix"),
				Visible: row.CharField("visible") != 0,
				Group:   row.CharField("group") != 0,
			})
		case nickDiffRemove:
			if !removeNick(b, row.Ptr()) {
				continue
			}
		case nickDiffParent:
			// group parent marker, no nick state of its own
			continue
		default:
			continue
		}
		ctx.events = append(ctx.events, Event{Kind: NickChanged, Buffer: bufPtr, Nick: row.Ptr()})
	}
	return nil
}

func upsertNick(b *Buffer, n *Nick) {
	for i, existing := range b.Nicks {
		if existing.Ptr == n.Ptr {
			b.Nicks[i] = n
			return
		}
	}
	b.Nicks = append(b.Nicks, n)
}

func removeNick(b *Buffer, ptr protocol.Pointer) bool {
	for i, n := range b.Nicks {
		if n.Ptr == ptr {
			b.Nicks = append(b.Nicks[:i], b.Nicks[i+1:]...)
			return true
		}
	}
	return false
}
