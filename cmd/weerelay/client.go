package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lcrown/weerelay/internal/mirror"
	"github.com/lcrown/weerelay/internal/observability"
	"github.com/lcrown/weerelay/internal/session"
)

const defaultBufferName = "core.weechat"

// client owns the interactive loop around one relay endpoint. Every
// reconnect builds a fresh mirror and session; only the buffer selection
// by name survives the connection.
type client struct {
	cfg    session.Config
	logger zerolog.Logger
	out    io.Writer

	current string
}

func newClient(cfg session.Config, logger zerolog.Logger, out io.Writer) *client {
	return &client{
		cfg:     cfg,
		logger:  logger,
		out:     out,
		current: defaultBufferName,
	}
}

func (c *client) run(ctx context.Context, reconnect bool) error {
	inputs := make(chan string)
	go readLines(os.Stdin, inputs)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	attempt := 0
	for {
		attempt++
		connected, err := c.runOnce(ctx, inputs)
		if connected {
			attempt = 0
		}
		if ctx.Err() != nil || (connected && err == nil) {
			// signal or requested disconnect
			return nil
		}
		if !reconnect {
			return err
		}
		c.logger.Warn().Err(err).Msg("connection lost")
		observability.RecordReconnect()
		delay := session.NextBackoffDelay(c.cfg.Backoff, attempt, rng)
		c.logger.Info().Int("attempt", attempt).Dur("delay", delay).Msg("reconnecting")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *client) runOnce(ctx context.Context, inputs <-chan string) (bool, error) {
	var m *mirror.Mirror
	m = mirror.New(func(ev mirror.Event) { c.render(m, ev) }, c.logger)
	s := session.New(c.cfg, m, c.logger)

	if err := s.Connect(ctx); err != nil {
		return false, err
	}

	done := make(chan struct{})
	go c.consumeInput(s, m, inputs, done)
	err := s.Run(ctx)
	close(done)
	return true, err
}

func (c *client) consumeInput(s *session.Session, m *mirror.Mirror, inputs <-chan string, done <-chan struct{}) {
	for {
		select {
		case line, ok := <-inputs:
			if !ok {
				_ = s.Disconnect()
				return
			}
			c.handleLine(s, m, line)
		case <-done:
			return
		}
	}
}

func (c *client) handleLine(s *session.Session, m *mirror.Mirror, line string) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return
	}
	cmd, rest, _ := strings.Cut(line, " ")
	switch cmd {
	case "/quit":
		_ = s.Disconnect()
	case "/buffers":
		for _, b := range m.Buffers() {
			marker := " "
			if b.FullName == c.current {
				marker = "*"
			}
			fmt.Fprintf(c.out, "%s %3d %s\n", marker, b.Number, b.FullName)
		}
	case "/buffer":
		name := strings.TrimSpace(rest)
		if b := findBuffer(m, name); b != nil {
			c.current = b.FullName
			fmt.Fprintf(c.out, "-- %s\n", b.FullName)
		} else {
			fmt.Fprintf(c.out, "no buffer matches %q\n", name)
		}
	case "/history":
		n := c.cfg.Lines
		if v, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil && v > 0 {
			n = v
		}
		b, ok := m.BufferByFullName(c.current)
		if !ok {
			fmt.Fprintf(c.out, "current buffer %q not mirrored yet\n", c.current)
			return
		}
		if err := s.FetchHistory(b.Ptr, n); err != nil {
			c.logger.Error().Err(err).Msg("history request failed")
		}
	default:
		if err := s.Input(c.current, line); err != nil {
			c.logger.Error().Err(err).Msg("input failed")
		}
	}
}

func findBuffer(m *mirror.Mirror, name string) *mirror.Buffer {
	if b, ok := m.BufferByFullName(name); ok {
		return b
	}
	for _, b := range m.Buffers() {
		if b.ShortName == name {
			return b
		}
	}
	if n, err := strconv.ParseInt(name, 10, 32); err == nil {
		for _, b := range m.Buffers() {
			if int64(b.Number) == n {
				return b
			}
		}
	}
	return nil
}

func (c *client) render(m *mirror.Mirror, ev mirror.Event) {
	switch ev.Kind {
	case mirror.LineAppended:
		b, ok := m.Buffer(ev.Buffer)
		if !ok || len(b.Lines) == 0 {
			return
		}
		line := b.Lines[len(b.Lines)-1]
		if !line.Displayed {
			return
		}
		name := b.ShortName
		if name == "" {
			name = b.FullName
		}
		fmt.Fprintf(c.out, "%s %s %s | %s\n",
			line.Date.Format("15:04:05"), name, line.Prefix, line.Message)
	case mirror.LineBatchPrepended:
		b, ok := m.Buffer(ev.Buffer)
		if !ok {
			return
		}
		fmt.Fprintf(c.out, "-- loaded %d older lines in %s\n", ev.Count, b.FullName)
	case mirror.BufferAdded:
		if b, ok := m.Buffer(ev.Buffer); ok {
			c.logger.Debug().Str("buffer", b.FullName).Msg("buffer opened")
		}
	case mirror.BufferRemoved:
		c.logger.Debug().Str("buffer", string(ev.Buffer)).Msg("buffer closed")
	}
}

func readLines(r io.Reader, out chan<- string) {
	defer close(out)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		out <- sc.Text()
	}
}
