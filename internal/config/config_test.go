package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.Type != "sqlite" {
		t.Errorf("Storage.Type = %q, want sqlite", cfg.Storage.Type)
	}
	if cfg.Confirm.ParsedTTL() != 5*time.Minute {
		t.Errorf("Confirm.ParsedTTL() = %v, want 5m", cfg.Confirm.ParsedTTL())
	}
	if cfg.Tools.ParsedTimeout() != 10*time.Second {
		t.Errorf("Tools.ParsedTimeout() = %v, want 10s", cfg.Tools.ParsedTimeout())
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
storage:
  type: memory
confirm:
  secret: super-secret
  ttl: 2m
tools:
  timeout: 3s
step_up:
  static_codes:
    owner-1: otp-9
tenants:
  - id: t1
    name: Acme
    api_keys:
      - key_hash: abc123
        description: owner key
        user_id: owner-1
        role: owner
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("Storage.Type = %q, want memory", cfg.Storage.Type)
	}
	if cfg.Confirm.Secret != "super-secret" {
		t.Errorf("Confirm.Secret = %q, want super-secret", cfg.Confirm.Secret)
	}
	if cfg.Confirm.ParsedTTL() != 2*time.Minute {
		t.Errorf("Confirm.ParsedTTL() = %v, want 2m", cfg.Confirm.ParsedTTL())
	}
	if cfg.Tools.ParsedTimeout() != 3*time.Second {
		t.Errorf("Tools.ParsedTimeout() = %v, want 3s", cfg.Tools.ParsedTimeout())
	}
	if cfg.StepUp.StaticCodes["owner-1"] != "otp-9" {
		t.Errorf("StepUp.StaticCodes = %v, want owner-1: otp-9", cfg.StepUp.StaticCodes)
	}
	if len(cfg.Tenants) != 1 || cfg.Tenants[0].ID != "t1" {
		t.Fatalf("Tenants = %+v, want one tenant t1", cfg.Tenants)
	}
	key := cfg.Tenants[0].APIKeys[0]
	if key.KeyHash != "abc123" || key.UserID != "owner-1" || key.Role != "owner" {
		t.Errorf("APIKeys[0] = %+v", key)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	t.Setenv("SPINE_SERVER__PORT", "7070")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want env override 7070", cfg.Server.Port)
	}
}

func TestLoadSecretEnvSubstitution(t *testing.T) {
	path := writeConfig(t, "confirm:\n  secret: ${TEST_CONFIRM_SECRET}\n")

	t.Setenv("TEST_CONFIRM_SECRET", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Confirm.Secret != "from-env" {
		t.Errorf("Confirm.Secret = %q, want from-env", cfg.Confirm.Secret)
	}
}

func TestParsedDurationsRejectGarbage(t *testing.T) {
	c := ConfirmConfig{TTL: "not-a-duration"}
	if c.ParsedTTL() != 5*time.Minute {
		t.Errorf("ParsedTTL() = %v, want the 5m default", c.ParsedTTL())
	}

	tc := ToolsConfig{Timeout: "-3s"}
	if tc.ParsedTimeout() != 10*time.Second {
		t.Errorf("ParsedTimeout() = %v, want the 10s default", tc.ParsedTimeout())
	}
}
