// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const (
	aliceKey = "ed25519:3b6a27bcceb6a42d62a3a8d02a6f0d73653215771de243a63ac048a18b59da29"
	bobKey   = "ed25519:8a88e3dd7409f195fd52db2d3cba5d72ca6709bf1d94121bf3748801b40f6f5c"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crossword.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Service.MaxCallAge != "5m" {
		t.Errorf("expected max_call_age=5m, got %s", cfg.Service.MaxCallAge)
	}
	if cfg.Durable() {
		t.Error("expected non-durable writes by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_RequiresEnvironmentVariable(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when CROSSWORD_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "CROSSWORD_CONFIG environment variable not set") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_WithEnvironmentVariable(t *testing.T) {
	path := writeConfig(t, `
paths:
  socket: /tmp/crossword-test/crossword.sock
service:
  log_level: debug
`)
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.Socket != "/tmp/crossword-test/crossword.sock" {
		t.Errorf("socket = %q", cfg.Paths.Socket)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("level = %v, want debug", cfg.Level())
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
environment: staging
paths:
  root: /srv/crossword
  database: ""
service:
  metrics_address: 127.0.0.1:9464
  max_call_age: 90s
accounts:
  - name: alice
    key: `+aliceKey+`
    balance: 150
  - name: bob
    key: `+bobKey+`
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Paths.Socket != "/srv/crossword/crossword.sock" {
		t.Errorf("socket = %q, want root-relative default", cfg.Paths.Socket)
	}
	if cfg.Paths.Database != "" {
		t.Errorf("database = %q, want empty (in-memory)", cfg.Paths.Database)
	}
	if cfg.MaxCallAgeDuration() != 90*time.Second {
		t.Errorf("max call age = %v", cfg.MaxCallAgeDuration())
	}
	if len(cfg.Accounts) != 2 || cfg.Accounts[0].Balance != 150 || cfg.Accounts[1].Balance != 0 {
		t.Errorf("accounts = %+v", cfg.Accounts)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadFile(writeConfig(t, "paths: [unbalanced")); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
environment: production
paths:
  root: /srv/crossword
service:
  log_level: debug
development:
  service:
    log_level: warn
production:
  paths:
    socket: /run/crossword/crossword.sock
  service:
    log_level: error
    durable_writes: true
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Paths.Socket != "/run/crossword/crossword.sock" {
		t.Errorf("socket = %q", cfg.Paths.Socket)
	}
	if cfg.Service.LogLevel != "error" {
		t.Errorf("log level = %q, want production override", cfg.Service.LogLevel)
	}
	if !cfg.Durable() {
		t.Error("expected durable writes")
	}
	if cfg.Paths.Database != "/srv/crossword/registry.db" {
		t.Errorf("database = %q, want base value", cfg.Paths.Database)
	}
}

func TestProductionDefaultsToDurable(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "environment: production\n"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !cfg.Durable() {
		t.Error("production without overrides should be durable")
	}

	cfg, err = LoadFile(writeConfig(t, `
environment: production
production:
  service:
    durable_writes: false
`))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Durable() {
		t.Error("explicit durable_writes: false should win")
	}
}

func TestEnvVarsDoNotOverride(t *testing.T) {
	t.Setenv("CROSSWORD_SOCKET", "/tmp/ignored.sock")
	t.Setenv("CROSSWORD_LOG_LEVEL", "debug")

	cfg, err := LoadFile(writeConfig(t, `
paths:
  socket: /run/crossword/crossword.sock
`))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Paths.Socket != "/run/crossword/crossword.sock" {
		t.Errorf("socket = %q, environment must not override", cfg.Paths.Socket)
	}
	if cfg.Service.LogLevel != "info" {
		t.Errorf("log level = %q, environment must not override", cfg.Service.LogLevel)
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("CROSSWORD_TEST_DIR", "/from/env")

	vars := map[string]string{"CROSSWORD_ROOT": "/root/crossword"}
	tests := []struct {
		input string
		want  string
	}{
		{"${CROSSWORD_ROOT}/db", "/root/crossword/db"},
		{"${CROSSWORD_TEST_DIR}/db", "/from/env/db"},
		{"${CROSSWORD_UNSET_VAR:-/fallback}/db", "/fallback/db"},
		{"${CROSSWORD_UNSET_VAR}/db", "/db"},
		{"/plain/path", "/plain/path"},
	}
	for _, test := range tests {
		if got := expandVars(test.input, vars); got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad environment", func(c *Config) { c.Environment = "qa" }, "invalid environment"},
		{"no socket", func(c *Config) { c.Paths.Socket = "" }, "paths.socket is required"},
		{"bad log level", func(c *Config) { c.Service.LogLevel = "verbose" }, "service.log_level"},
		{"bad call age", func(c *Config) { c.Service.MaxCallAge = "soon" }, "service.max_call_age"},
		{"negative call age", func(c *Config) { c.Service.MaxCallAge = "-1m" }, "service.max_call_age"},
		{"bad account name", func(c *Config) {
			c.Accounts = []AccountConfig{{Name: "Alice!", Key: aliceKey}}
		}, "accounts[0].name"},
		{"escrow account", func(c *Config) {
			c.Accounts = []AccountConfig{{Name: "crossword.escrow", Key: aliceKey}}
		}, "reserved"},
		{"bad key", func(c *Config) {
			c.Accounts = []AccountConfig{{Name: "alice", Key: "ed25519:zz"}}
		}, "accounts[0].key"},
		{"duplicate name", func(c *Config) {
			c.Accounts = []AccountConfig{{Name: "alice", Key: aliceKey}, {Name: "alice", Key: bobKey}}
		}, "duplicate name"},
		{"duplicate key", func(c *Config) {
			c.Accounts = []AccountConfig{{Name: "alice", Key: aliceKey}, {Name: "bob", Key: aliceKey}}
		}, "duplicate key"},
		{"balance too large", func(c *Config) {
			c.Accounts = []AccountConfig{{Name: "alice", Key: aliceKey, Balance: 1 << 63}}
		}, "balance exceeds"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.modify(cfg)
			err := cfg.Validate()
			if test.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("error = %v, want containing %q", err, test.wantErr)
			}
		})
	}
}

func TestValidateReportsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Environment = "qa"
	cfg.Paths.Socket = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "invalid environment") || !strings.Contains(err.Error(), "paths.socket") {
		t.Errorf("expected both problems reported, got %v", err)
	}
}

func TestEnsurePaths(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Paths.Socket = filepath.Join(root, "run", "crossword.sock")
	cfg.Paths.Database = filepath.Join(root, "data", "registry.db")

	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths: %v", err)
	}
	for _, dir := range []string{"run", "data"} {
		info, err := os.Stat(filepath.Join(root, dir))
		if err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", dir, err)
		}
	}
}
