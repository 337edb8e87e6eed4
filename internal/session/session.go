// Package session owns the relay connection lifecycle: it dials the
// transport, authenticates, issues sync commands and routes every decoded
// message into the domain mirror.
//
// Ownership boundary:
// - connection state machine and transitions
// - request id allocation and response correlation
// - outbound command writing
package session

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lcrown/weerelay/internal/mirror"
	"github.com/lcrown/weerelay/internal/observability"
	"github.com/lcrown/weerelay/internal/protocol"
	"github.com/lcrown/weerelay/internal/protocol/frame"
)

// Well-known request ids of the bootstrap sync sequence.
const (
	idListBuffers = "listbuffers"
	idListLines   = "listlines"
	idNicklist    = "nicklist"
)

// RequestKind describes the response semantics expected for an in-flight
// request id.
type RequestKind int

const (
	RequestListBuffers RequestKind = iota
	RequestListLines
	RequestNicklist
	RequestHistory
)

type pendingRequest struct {
	Kind   RequestKind
	Buffer protocol.Pointer
}

// Session drives exactly one connection. It is not reusable: after it
// reaches Disconnected, build a fresh Session (and mirror) to reconnect,
// since framer state and pointer identity never survive a connection.
type Session struct {
	cfg    Config
	mirror *mirror.Mirror
	log    zerolog.Logger
	dial   Dialer

	mu      sync.Mutex
	state   State
	conn    Transport
	framer  *frame.Framer
	pending map[string]pendingRequest
	nextID  uint64
	closing bool
}

func New(cfg Config, m *mirror.Mirror, logger zerolog.Logger) *Session {
	return &Session{
		cfg:     cfg,
		mirror:  m,
		log:     logger.With().Str("component", "session").Logger(),
		dial:    Dial,
		pending: make(map[string]pendingRequest),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setStateLocked(next State) {
	if s.state == next {
		return
	}
	s.log.Debug().Stringer("from", s.state).Stringer("to", next).Msg("state transition")
	s.state = next
}

// Connect walks Disconnected -> Connecting -> Handshaking ->
// Authenticated -> Active. The Handshaking -> Authenticated step is
// optimistic: the relay sends no init acknowledgment, and a rejected
// password is only observed as the server closing the transport.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.state != StateDisconnected || s.conn != nil {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.setStateLocked(StateConnecting)
	s.mu.Unlock()

	conn, err := s.dial(ctx, s.cfg)
	if err != nil {
		s.mu.Lock()
		s.setStateLocked(StateDisconnected)
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.framer = frame.NewFramer(frame.DefaultLimits())
	s.setStateLocked(StateHandshaking)
	s.mu.Unlock()

	if err := s.send(protocol.Init(s.cfg.Password, s.cfg.TOTP, s.cfg.Compression)); err != nil {
		s.closeTransport()
		s.teardown()
		return err
	}

	s.mu.Lock()
	s.setStateLocked(StateAuthenticated)
	s.mu.Unlock()

	if err := s.syncAll(); err != nil {
		s.closeTransport()
		s.teardown()
		return err
	}

	s.mu.Lock()
	s.setStateLocked(StateActive)
	s.mu.Unlock()
	s.log.Info().Str("host", s.cfg.Host).Int("port", s.cfg.Port).Msg("connected")
	return nil
}

// syncAll issues the bootstrap subscription sequence.
func (s *Session) syncAll() error {
	cmds := []protocol.Command{
		protocol.ListBuffers(s.registerPending(idListBuffers, RequestListBuffers, "")),
		protocol.ListLines(s.registerPending(idListLines, RequestListLines, ""), s.cfg.Lines),
		protocol.NicklistRequest(s.registerPending(idNicklist, RequestNicklist, ""), ""),
		protocol.Sync(),
	}
	for _, cmd := range cmds {
		if err := s.send(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) registerPending(id string, kind RequestKind, buffer protocol.Pointer) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[id] = pendingRequest{Kind: kind, Buffer: buffer}
	return id
}

func (s *Session) takePending(id string) (pendingRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	return req, ok
}

// Run consumes the transport until disconnect. It returns nil after a
// requested disconnect and the fatal error otherwise. Incomplete frames
// are never errors; the loop just waits for more bytes.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Disconnect()
		case <-done:
		}
	}()

	buf := make([]byte, 16*1024)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			observability.RecordWireBytes(n)
			s.framer.Append(buf[:n])
			if derr := s.drain(); derr != nil {
				s.log.Error().Err(derr).Msg("fatal protocol error, closing")
				s.closeTransport()
				s.teardown()
				return derr
			}
		}
		if err != nil {
			requested := s.isClosing()
			s.teardown()
			if requested {
				return nil
			}
			return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
		}
	}
}

func (s *Session) drain() error {
	for {
		msg, err := s.framer.Next()
		if err == frame.ErrIncomplete {
			return nil
		}
		if err != nil {
			observability.RecordDecodeFailure()
			return fmt.Errorf("%w: %v", ErrProtocol, err)
		}
		observability.RecordFrameDecoded(msg.Compressed, msg.Size)
		if err := s.handleMessage(msg); err != nil {
			return err
		}
	}
}

func (s *Session) handleMessage(msg *protocol.Message) error {
	if strings.HasPrefix(msg.ID, "debug") {
		s.log.Debug().Str("msg_id", msg.ID).Msg("debug message ignored")
		return nil
	}
	switch msg.ID {
	case "_upgrade":
		// the core is upgrading in place; stop the flood and wait
		s.log.Info().Msg("relay upgrade started, desyncing")
		return s.send(protocol.Desync())
	case "_upgrade_ended":
		s.log.Info().Msg("relay upgrade ended, resyncing")
		return s.syncAll()
	}

	hint := mirror.HintNone
	if !msg.Push() {
		if req, ok := s.takePending(msg.ID); ok && req.Kind == RequestHistory {
			hint = mirror.HintHistory
		}
	}
	if err := s.mirror.ApplyWithHint(msg, hint); err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	observability.RecordMessageApplied(msg.ID)
	return nil
}

// Input sends text to a buffer as if typed there.
func (s *Session) Input(buffer, text string) error {
	if s.State() != StateActive {
		return ErrNotConnected
	}
	return s.send(protocol.Input(buffer, text))
}

// FetchHistory requests n more lines for a buffer; the correlated response
// is prepended as one block, oldest first.
func (s *Session) FetchHistory(buffer protocol.Pointer, n int) error {
	if s.State() != StateActive {
		return ErrNotConnected
	}
	id := s.newRequestID()
	s.registerPending(id, RequestHistory, buffer)
	return s.send(protocol.BufferLines(id, buffer, n))
}

func (s *Session) newRequestID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return fmt.Sprintf("req%d", s.nextID)
}

// Disconnect is safe in any state. It announces quit when the link is
// still up, closes the transport and lands in Disconnected.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	if s.state == StateDisconnected || s.state == StateClosing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	s.setStateLocked(StateClosing)
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		_, _ = conn.Write([]byte(protocol.Quit().Line()))
		_ = conn.Close()
	}
	return nil
}

func (s *Session) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func (s *Session) closeTransport() {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// teardown discards all in-flight bookkeeping and lands in Disconnected.
// The mirror's retained snapshot is the caller's policy; this session is
// done either way.
func (s *Session) teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = nil
	s.pending = make(map[string]pendingRequest)
	s.setStateLocked(StateDisconnected)
}

func (s *Session) send(cmd protocol.Command) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	if nc, ok := conn.(net.Conn); ok && s.cfg.WriteTimeout > 0 {
		_ = nc.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	if _, err := conn.Write([]byte(cmd.Line())); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrConnectionClosed, cmd.Name, err)
	}
	return nil
}
