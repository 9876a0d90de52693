package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RequiredSamples != 128 {
		t.Fatalf("expected 128 required samples, got %d", cfg.RequiredSamples)
	}
	if cfg.CategoryFieldLimit != 2 {
		t.Fatalf("expected limit 2, got %d", cfg.CategoryFieldLimit)
	}
	if cfg.RPCTimeout != 10*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.RPCTimeout)
	}
}

func TestLoadYAML(t *testing.T) {
	p := writeConfig(t, `
db_path: /tmp/x.db
node_id: n7
peers: ["10.0.0.1:50051", "10.0.0.2:50051"]
rpc_timeout: 3s
required_samples: 32
category_field_limit: 1
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "/tmp/x.db" || cfg.NodeID != "n7" {
		t.Fatalf("unexpected cfg %+v", cfg)
	}
	if len(cfg.Peers) != 2 || cfg.Peers[1] != "10.0.0.2:50051" {
		t.Fatalf("unexpected peers %v", cfg.Peers)
	}
	if cfg.RPCTimeout != 3*time.Second || cfg.RequiredSamples != 32 || cfg.CategoryFieldLimit != 1 {
		t.Fatalf("unexpected tuning %+v", cfg)
	}
	// unset keys keep defaults
	if cfg.LogLevel != "info" {
		t.Fatalf("expected default log level, got %q", cfg.LogLevel)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ENTITY_PROFILE_PEERS", "a:1, b:2,")
	t.Setenv("ENTITY_PROFILE_REQUIRED_SAMPLES", "64")
	t.Setenv("ENTITY_PROFILE_DB", "env.db")
	cfg, err := Load(writeConfig(t, "db_path: file.db\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "env.db" {
		t.Fatalf("env should win over file, got %q", cfg.DBPath)
	}
	if len(cfg.Peers) != 2 || cfg.Peers[0] != "a:1" || cfg.Peers[1] != "b:2" {
		t.Fatalf("unexpected peers %v", cfg.Peers)
	}
	if cfg.RequiredSamples != 64 {
		t.Fatalf("expected 64, got %d", cfg.RequiredSamples)
	}

	t.Setenv("ENTITY_PROFILE_REQUIRED_SAMPLES", "lots")
	if _, err := Load(""); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.RequiredSamples = 0
	cfg.CategoryFieldLimit = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "required_samples") || !strings.Contains(err.Error(), "category_field_limit") {
		t.Fatalf("expected both problems reported, got %v", err)
	}
}

func TestLoadBadFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected read error")
	}
	if _, err := Load(writeConfig(t, "peers: [unterminated")); err == nil {
		t.Fatal("expected parse error")
	}
}
