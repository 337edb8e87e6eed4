package config

import (
	"time"

	"github.com/lcrown/weerelay/internal/session"
)

// SessionConfig maps the loaded TOML onto the session's runtime config.
// Unparseable or non-positive durations keep the session defaults.
func SessionConfig(cfg RelayConfig) session.Config {
	out := session.DefaultConfig()
	out.Host = cfg.Host
	out.Port = cfg.Port
	out.Password = cfg.Password
	out.TOTP = cfg.TOTPSecret
	out.Compression = cfg.Compression
	out.Lines = cfg.Lines
	out.TLS = session.TLSConfig{
		Enabled:            cfg.TLS.Enabled,
		CAFile:             cfg.TLS.CAFile,
		CertFile:           cfg.TLS.CertFile,
		KeyFile:            cfg.TLS.KeyFile,
		ServerName:         cfg.TLS.ServerName,
		InsecureSkipVerify: cfg.TLS.InsecureSkipVerify,
	}
	out.WebSocket = cfg.WebSocket.Enabled
	out.WebSocketPath = cfg.WebSocket.Path
	if d, err := time.ParseDuration(cfg.Reconnect.InitialDelay); err == nil && d > 0 {
		out.Backoff.InitialDelay = d
	}
	if cfg.Reconnect.Multiplier >= 1.0 {
		out.Backoff.Multiplier = cfg.Reconnect.Multiplier
	}
	if d, err := time.ParseDuration(cfg.Reconnect.MaxDelay); err == nil && d > 0 {
		out.Backoff.MaxDelay = d
	}
	out.Backoff.Jitter = cfg.Reconnect.Jitter
	return out
}
