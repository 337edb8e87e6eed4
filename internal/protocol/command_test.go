package protocol

import (
	"strings"
	"testing"
)

func TestCommandLine(t *testing.T) {
	cases := []struct {
		name string
		cmd  Command
		want string
	}{
		{"plain", Quit(), "quit\n"},
		{"with id", InfoRequest("i1", "version"), "(i1) info version\n"},
		{"sync all", Sync(), "sync\n"},
		{"sync some", Sync("irc.libera.#go-nuts", "core.weechat"), "sync irc.libera.#go-nuts,core.weechat\n"},
		{"desync", Desync(), "desync\n"},
		{"input", Input("irc.libera.#go-nuts", "hello there"), "input irc.libera.#go-nuts hello there\n"},
		{"nicklist all", NicklistRequest("n1", ""), "(n1) nicklist\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cmd.Line(); got != tc.want {
				t.Fatalf("Line() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestInitEscapesCommas(t *testing.T) {
	line := Init("s3cret,pass", "", CompressionZlib).Line()
	want := "init password=s3cret\\,pass,compression=zlib\n"
	if line != want {
		t.Fatalf("Line() = %q, want %q", line, want)
	}
}

func TestInitWithTOTP(t *testing.T) {
	line := Init("pw", "123456", CompressionOff).Line()
	if !strings.Contains(line, "totp=123456") {
		t.Fatalf("Line() = %q, missing totp", line)
	}
	if !strings.Contains(line, "compression=off") {
		t.Fatalf("Line() = %q, missing compression", line)
	}
}

func TestBootstrapCommands(t *testing.T) {
	if got := ListBuffers("listbuffers").Line(); got != "(listbuffers) hdata buffer:gui_buffers(*) number,full_name,short_name,type,nicklist,title,local_variables\n" {
		t.Fatalf("ListBuffers = %q", got)
	}
	if got := ListLines("listlines", 50).Line(); got != "(listlines) hdata buffer:gui_buffers(*)/own_lines/last_line(-50)/data date,displayed,prefix,message\n" {
		t.Fatalf("ListLines = %q", got)
	}
	if got := BufferLines("req1", "0x55a", 20).Line(); got != "(req1) hdata buffer:0x55a/own_lines/last_line(-20)/data date,displayed,prefix,message\n" {
		t.Fatalf("BufferLines = %q", got)
	}
}
