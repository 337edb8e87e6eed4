// Package config loads the relay endpoint description from TOML and maps
// it onto the session's runtime configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type RelayConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	Password    string `toml:"password"`
	TOTPSecret  string `toml:"totp"`
	Compression string `toml:"compression"`
	Lines       int    `toml:"lines"`

	TLS       TLSConfig       `toml:"tls"`
	WebSocket WebSocketConfig `toml:"websocket"`
	Reconnect ReconnectConfig `toml:"reconnect"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

type TLSConfig struct {
	Enabled            bool   `toml:"enabled"`
	CAFile             string `toml:"ca_file"`
	CertFile           string `toml:"cert_file"`
	KeyFile            string `toml:"key_file"`
	ServerName         string `toml:"server_name"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

type WebSocketConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type ReconnectConfig struct {
	Enabled      bool    `toml:"enabled"`
	InitialDelay string  `toml:"initial_delay"`
	Multiplier   float64 `toml:"multiplier"`
	MaxDelay     string  `toml:"max_delay"`
	Jitter       bool    `toml:"jitter"`
}

type MetricsConfig struct {
	Addr string `toml:"addr"`
}

func Load(path string) (RelayConfig, error) {
	var cfg RelayConfig
	if err := loadToml(path, &cfg); err != nil {
		return RelayConfig{}, err
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return RelayConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func applyDefaults(cfg *RelayConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9000
	}
	if cfg.Compression == "" {
		cfg.Compression = "zlib"
	}
	if cfg.Lines == 0 {
		cfg.Lines = 50
	}
	if cfg.WebSocket.Path == "" {
		cfg.WebSocket.Path = "/weechat"
	}
	if cfg.Reconnect.InitialDelay == "" {
		cfg.Reconnect.InitialDelay = "250ms"
	}
	if cfg.Reconnect.Multiplier == 0 {
		cfg.Reconnect.Multiplier = 2.0
	}
	if cfg.Reconnect.MaxDelay == "" {
		cfg.Reconnect.MaxDelay = "30s"
	}
}

func Validate(cfg RelayConfig) error {
	if strings.TrimSpace(cfg.Host) == "" {
		return fmt.Errorf("relay config missing host")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("relay config invalid port %d", cfg.Port)
	}
	switch cfg.Compression {
	case "zlib", "off":
	default:
		return fmt.Errorf("relay config invalid compression %q", cfg.Compression)
	}
	if cfg.Lines < 0 {
		return fmt.Errorf("relay config invalid lines %d", cfg.Lines)
	}
	return nil
}
