package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is one outbound relay command. Commands travel as text lines,
// optionally prefixed with a client-chosen id used to correlate the
// response frame.
type Command struct {
	ID   string
	Name string
	Args []string
}

// Line renders the newline-terminated wire form: "(id) name args\n".
func (c Command) Line() string {
	var b strings.Builder
	if c.ID != "" {
		fmt.Fprintf(&b, "(%s) ", c.ID)
	}
	b.WriteString(c.Name)
	for _, arg := range c.Args {
		if arg == "" {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(arg)
	}
	b.WriteByte('\n')
	return b.String()
}

// CompressionZlib and CompressionOff are the negotiable compression modes.
const (
	CompressionZlib = "zlib"
	CompressionOff  = "off"
)

// Init builds the authentication command. Option values containing commas
// are escaped per the relay grammar.
func Init(password, totp, compression string) Command {
	opts := []string{"password=" + escapeInitValue(password)}
	if compression != "" {
		opts = append(opts, "compression="+compression)
	}
	if totp != "" {
		opts = append(opts, "totp="+escapeInitValue(totp))
	}
	return Command{Name: "init", Args: []string{strings.Join(opts, ",")}}
}

func escapeInitValue(v string) string {
	return strings.ReplaceAll(v, ",", "\\,")
}

// HDataRequest builds a structured-record fetch for an h-path and key list.
func HDataRequest(id, path, keys string) Command {
	args := []string{path}
	if keys != "" {
		args = append(args, keys)
	}
	return Command{ID: id, Name: "hdata", Args: args}
}

// InfoRequest builds a named info fetch.
func InfoRequest(id, name string) Command {
	return Command{ID: id, Name: "info", Args: []string{name}}
}

// NicklistRequest fetches the nicklist of one buffer, or of every buffer
// when buffer is empty.
func NicklistRequest(id, buffer string) Command {
	var args []string
	if buffer != "" {
		args = append(args, buffer)
	}
	return Command{ID: id, Name: "nicklist", Args: args}
}

// Input sends text to a buffer as if typed there.
func Input(buffer, text string) Command {
	return Command{Name: "input", Args: []string{buffer, text}}
}

// Sync subscribes to updates for the given buffers, or all when none given.
func Sync(buffers ...string) Command {
	return syncCommand("sync", buffers)
}

// Desync cancels subscriptions for the given buffers, or all when none given.
func Desync(buffers ...string) Command {
	return syncCommand("desync", buffers)
}

func syncCommand(name string, buffers []string) Command {
	var args []string
	if len(buffers) > 0 {
		args = append(args, strings.Join(buffers, ","))
	}
	return Command{Name: name, Args: args}
}

// Quit announces a clean shutdown before the transport closes.
func Quit() Command {
	return Command{Name: "quit"}
}

// ListBuffers is the bootstrap fetch of every open buffer.
func ListBuffers(id string) Command {
	return HDataRequest(id,
		"buffer:gui_buffers(*)",
		"number,full_name,short_name,type,nicklist,title,local_variables")
}

// ListLines fetches the last n lines of every buffer.
func ListLines(id string, n int) Command {
	return HDataRequest(id,
		fmt.Sprintf("buffer:gui_buffers(*)/own_lines/last_line(-%d)/data", n),
		"date,displayed,prefix,message")
}

// BufferLines fetches the last n lines of one buffer, addressed by pointer.
func BufferLines(id string, buffer Pointer, n int) Command {
	return HDataRequest(id,
		"buffer:"+string(buffer)+"/own_lines/last_line(-"+strconv.Itoa(n)+")/data",
		"date,displayed,prefix,message")
}
