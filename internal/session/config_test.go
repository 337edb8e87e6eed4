package session

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(c *Config) {}, nil},
		{"missing host", func(c *Config) { c.Host = "" }, ErrMissingHost},
		{"port zero", func(c *Config) { c.Port = 0 }, ErrInvalidPort},
		{"port too big", func(c *Config) { c.Port = 70000 }, ErrInvalidPort},
		{"bad compression", func(c *Config) { c.Compression = "gzip" }, ErrInvalidCompression},
		{"insecure without tls", func(c *Config) { c.TLS.InsecureSkipVerify = true }, ErrTLSInsecureSkipNotAllow},
		{"cert without key", func(c *Config) {
			c.TLS.Enabled = true
			c.TLS.CertFile = "client.pem"
		}, ErrTLSKeyPairIncomplete},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Host = "relay.test"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestNextBackoffDelayGrowth(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     time.Second,
	}
	if d := NextBackoffDelay(cfg, 1, nil); d != 100*time.Millisecond {
		t.Fatalf("attempt 1: %v", d)
	}
	if d := NextBackoffDelay(cfg, 2, nil); d != 200*time.Millisecond {
		t.Fatalf("attempt 2: %v", d)
	}
	if d := NextBackoffDelay(cfg, 3, nil); d != 400*time.Millisecond {
		t.Fatalf("attempt 3: %v", d)
	}
	// growth is capped
	if d := NextBackoffDelay(cfg, 20, nil); d != time.Second {
		t.Fatalf("attempt 20: %v", d)
	}
}

func TestNextBackoffDelayJitterBounds(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     time.Second,
		Jitter:       true,
	}
	rng := rand.New(rand.NewSource(1))
	base := 200 * time.Millisecond
	for i := 0; i < 50; i++ {
		d := NextBackoffDelay(cfg, 2, rng)
		if d < base/2 || d > base+base/2 {
			t.Fatalf("jittered delay %v outside [%v, %v]", d, base/2, base+base/2)
		}
	}
}
