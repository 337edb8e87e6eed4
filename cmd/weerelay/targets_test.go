package main

import (
	"path/filepath"
	"testing"
)

func TestTargetsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.toml")

	tf, err := loadTargets(path)
	if err != nil {
		t.Fatalf("load missing file: %v", err)
	}
	if len(tf.Targets) != 0 {
		t.Fatalf("targets = %+v", tf.Targets)
	}

	tf.Targets = append(tf.Targets,
		targetEntry{Name: "home", Host: "relay.home.lan", Port: 9000},
		targetEntry{Name: "vps", Host: "vps.example.net", Port: 9001, TLS: true, WebSocket: true},
	)
	if err := saveTargets(path, tf); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := loadTargets(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(loaded.Targets) != 2 {
		t.Fatalf("targets = %+v", loaded.Targets)
	}
	entry, ok := findTarget(loaded, "vps")
	if !ok {
		t.Fatal("vps target missing")
	}
	if !entry.TLS || !entry.WebSocket || entry.Port != 9001 {
		t.Fatalf("entry = %+v", entry)
	}
	if _, ok := findTarget(loaded, "work"); ok {
		t.Fatal("found a target that was never saved")
	}
}

func TestResolveConfigFlagsOverrideTarget(t *testing.T) {
	opts := connectOptions{
		Host:     "relay.example.net",
		Port:     9001,
		Password: "pw",
	}
	cfg, _, reconnect, err := resolveConfig(opts)
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	if cfg.Host != "relay.example.net" || cfg.Port != 9001 || cfg.Password != "pw" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if !reconnect {
		t.Fatal("reconnect should default on")
	}

	opts.NoReconnect = true
	_, _, reconnect, err = resolveConfig(opts)
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	if reconnect {
		t.Fatal("no-reconnect flag ignored")
	}
}

func TestResolveConfigRequiresHost(t *testing.T) {
	if _, _, _, err := resolveConfig(connectOptions{}); err == nil {
		t.Fatal("resolveConfig accepted an empty endpoint")
	}
}
