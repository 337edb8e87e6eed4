package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lcrown/weerelay/internal/protocol"
)

var (
	ErrMissingHost             = errors.New("session: host is required")
	ErrInvalidPort             = errors.New("session: invalid port")
	ErrInvalidCompression      = errors.New("session: invalid compression mode")
	ErrTLSKeyPairIncomplete    = errors.New("session: tls cert and key files are required together")
	ErrTLSInsecureSkipNotAllow = errors.New("session: insecure skip verify requires tls")
)

// TLSConfig describes the optional TLS wrapping of the transport.
type TLSConfig struct {
	Enabled            bool
	CAFile             string
	CertFile           string
	KeyFile            string
	ServerName         string
	InsecureSkipVerify bool
}

func (c TLSConfig) Validate() error {
	if !c.Enabled && c.InsecureSkipVerify {
		return ErrTLSInsecureSkipNotAllow
	}
	if (strings.TrimSpace(c.CertFile) == "") != (strings.TrimSpace(c.KeyFile) == "") {
		return ErrTLSKeyPairIncomplete
	}
	return nil
}

// BackoffConfig defines reconnect retry behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config carries everything one connection needs. One Config serves many
// sessions; one Session serves exactly one connection.
type Config struct {
	Host string
	Port int

	Password string
	TOTP     string

	// Compression is the negotiated mode: "zlib" or "off".
	Compression string

	// Lines is the history depth requested during the initial sync.
	Lines int

	TLS TLSConfig

	// WebSocket switches the transport from a raw TCP stream to the
	// relay's WebSocket endpoint at WebSocketPath.
	WebSocket     bool
	WebSocketPath string

	ConnectTimeout time.Duration
	WriteTimeout   time.Duration

	Backoff BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		Port:           9000,
		Compression:    protocol.CompressionZlib,
		Lines:          50,
		WebSocketPath:  "/weechat",
		ConnectTimeout: 10 * time.Second,
		WriteTimeout:   15 * time.Second,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     30 * time.Second,
			Jitter:       true,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return ErrMissingHost
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}
	switch c.Compression {
	case protocol.CompressionZlib, protocol.CompressionOff:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCompression, c.Compression)
	}
	return c.TLS.Validate()
}
