package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsRequireSecret(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("expected error when auth secret is missing")
	}
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := strings.Join([]string{
		"server:",
		"  addr: \":9090\"",
		"auth:",
		"  secret: file-secret",
		"  access_ttl: 10m",
		"  refresh_ttl: 48h",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SENTRA_AUTH_SECRET", "env-secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Auth.Secret != "env-secret" {
		t.Fatalf("env override lost: %s", cfg.Auth.Secret)
	}
	if cfg.Auth.AccessTTL != 10*time.Minute {
		t.Fatalf("unexpected access ttl: %v", cfg.Auth.AccessTTL)
	}
	if cfg.Auth.Leeway != 5*time.Second {
		t.Fatalf("default leeway lost: %v", cfg.Auth.Leeway)
	}
}

func TestValidateRejectsBadTTLs(t *testing.T) {
	cfg := Default()
	cfg.Auth.Secret = "s"
	cfg.Auth.RefreshTTL = cfg.Auth.AccessTTL
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected refresh<=access to be rejected")
	}

	cfg = Default()
	cfg.Auth.Secret = "s"
	cfg.Auth.Algorithm = "none"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected unsupported algorithm to be rejected")
	}
}
