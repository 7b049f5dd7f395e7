package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Admission.Addr != ":8080" || cfg.Management.Addr != ":8081" {
		t.Errorf("listener defaults: %+v", cfg)
	}
	if cfg.PendingCap != 100 {
		t.Errorf("pending cap default: %d", cfg.PendingCap)
	}
	if cfg.RefreshInterval != 2*time.Second || cfg.StreamInterval != time.Second {
		t.Errorf("interval defaults: %v %v", cfg.RefreshInterval, cfg.StreamInterval)
	}
	if cfg.DataDir == "" {
		t.Error("data dir default missing")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
data_dir: /var/lib/netsentry
log_level: DEBUG
admission:
  addr: ":9090"
management:
  addr: ":9091"
  api_key: secret
pending_cap: 25
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/var/lib/netsentry" {
		t.Errorf("data dir: %q", cfg.DataDir)
	}
	if cfg.Management.APIKey != "secret" || cfg.Management.Addr != ":9091" {
		t.Errorf("management: %+v", cfg.Management)
	}
	if cfg.PendingCap != 25 {
		t.Errorf("pending cap: %d", cfg.PendingCap)
	}
	if cfg.RulesPath() != "/var/lib/netsentry/network-rules.json" {
		t.Errorf("rules path: %q", cfg.RulesPath())
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("data_dir: /from/file\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("NETSENTRY_DATA_DIR", "/from/env")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/from/env" {
		t.Errorf("env did not override file: %q", cfg.DataDir)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(":\tnot yaml"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed config accepted")
	}
}
