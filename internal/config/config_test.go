package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `host = "relay.example.net"`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9000 {
		t.Fatalf("port = %d", cfg.Port)
	}
	if cfg.Compression != "zlib" {
		t.Fatalf("compression = %q", cfg.Compression)
	}
	if cfg.Lines != 50 {
		t.Fatalf("lines = %d", cfg.Lines)
	}
	if cfg.WebSocket.Path != "/weechat" {
		t.Fatalf("websocket path = %q", cfg.WebSocket.Path)
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
host = "relay.example.net"
port = 9001
password = "s3cret"
compression = "off"
lines = 200

[tls]
enabled = true
server_name = "relay.example.net"

[websocket]
enabled = true
path = "/relay"

[reconnect]
enabled = true
initial_delay = "500ms"
multiplier = 3.0
max_delay = "1m"
jitter = true

[metrics]
addr = "127.0.0.1:2112"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9001 || cfg.Password != "s3cret" || cfg.Compression != "off" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if !cfg.TLS.Enabled || !cfg.WebSocket.Enabled || cfg.WebSocket.Path != "/relay" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Metrics.Addr != "127.0.0.1:2112" {
		t.Fatalf("metrics addr = %q", cfg.Metrics.Addr)
	}

	sc := SessionConfig(cfg)
	if sc.Host != "relay.example.net" || sc.Port != 9001 {
		t.Fatalf("session cfg = %+v", sc)
	}
	if sc.Backoff.InitialDelay != 500*time.Millisecond {
		t.Fatalf("initial delay = %v", sc.Backoff.InitialDelay)
	}
	if sc.Backoff.MaxDelay != time.Minute {
		t.Fatalf("max delay = %v", sc.Backoff.MaxDelay)
	}
	if sc.Backoff.Multiplier != 3.0 {
		t.Fatalf("multiplier = %v", sc.Backoff.Multiplier)
	}
	if !sc.WebSocket || sc.WebSocketPath != "/relay" {
		t.Fatalf("websocket = %v %q", sc.WebSocket, sc.WebSocketPath)
	}
	if err := sc.Validate(); err != nil {
		t.Fatalf("session validate: %v", err)
	}
}

func TestLoadRejectsMissingHost(t *testing.T) {
	path := writeConfig(t, `port = 9000`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted a config without a host")
	}
}

func TestLoadRejectsBadCompression(t *testing.T) {
	path := writeConfig(t, `
host = "relay.example.net"
compression = "gzip"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted an unknown compression mode")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("Load accepted a missing file")
	}
}

func TestWriteTemplateRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("WriteTemplate: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load template: %v", err)
	}
	if cfg.Host != "localhost" || cfg.Compression != "zlib" {
		t.Fatalf("template cfg = %+v", cfg)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatal("WriteTemplate overwrote without --overwrite")
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Fatalf("WriteTemplate overwrite: %v", err)
	}
}
