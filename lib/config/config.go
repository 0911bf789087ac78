// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/crossword/lib/ledger"
	"github.com/bureau-foundation/crossword/lib/token"
)

// EnvironmentVariable names the variable Load reads the config path from.
const EnvironmentVariable = "CROSSWORD_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the contract host's configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Paths PathsConfig `yaml:"paths"`

	Service ServiceConfig `yaml:"service"`

	// Accounts are funded on startup. An account is credited once,
	// when its key is first registered.
	Accounts []AccountConfig `yaml:"accounts"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Paths   *PathsConfig   `yaml:"paths,omitempty"`
	Service *ServiceConfig `yaml:"service,omitempty"`
}

// PathsConfig configures file locations.
type PathsConfig struct {
	// Root is the base directory; ${CROSSWORD_ROOT} expands to it in
	// the other paths.
	Root string `yaml:"root"`

	// Socket is the Unix socket the host serves on.
	Socket string `yaml:"socket"`

	// Database is the SQLite registry file. Empty selects the
	// in-memory store, which loses all state on exit.
	Database string `yaml:"database"`
}

// ServiceConfig configures the host process.
type ServiceConfig struct {
	// LogLevel is debug, info, warn, or error.
	LogLevel string `yaml:"log_level"`

	// MetricsAddress is the host:port of the Prometheus endpoint.
	// Empty disables it.
	MetricsAddress string `yaml:"metrics_address"`

	// MaxCallAge is the freshness window for signed calls, as a Go
	// duration string.
	MaxCallAge string `yaml:"max_call_age"`

	// DurableWrites fsyncs every registry commit. Nil leaves the
	// environment's default.
	DurableWrites *bool `yaml:"durable_writes,omitempty"`
}

// AccountConfig is one genesis account.
type AccountConfig struct {
	Name    string `yaml:"name"`
	Key     string `yaml:"key"`
	Balance uint64 `yaml:"balance"`
}

// Default returns the configuration a file is merged over.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	root := filepath.Join(homeDir, ".local", "share", "crossword")
	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root:     root,
			Socket:   "${CROSSWORD_ROOT}/crossword.sock",
			Database: "${CROSSWORD_ROOT}/registry.db",
		},
		Service: ServiceConfig{
			LogLevel:   "info",
			MaxCallAge: "5m",
		},
	}
}

// Load loads the file named by CROSSWORD_CONFIG. There is no search
// path: an unset variable is an error.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your crossword.yaml config file, or use --config", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path, applies the section for the
// configured environment, and expands path variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			durable := true
			overrides = &ConfigOverrides{
				Service: &ServiceConfig{DurableWrites: &durable},
			}
		}
	}
	if overrides == nil {
		return
	}

	if paths := overrides.Paths; paths != nil {
		if paths.Root != "" {
			c.Paths.Root = paths.Root
		}
		if paths.Socket != "" {
			c.Paths.Socket = paths.Socket
		}
		if paths.Database != "" {
			c.Paths.Database = paths.Database
		}
	}

	if service := overrides.Service; service != nil {
		if service.LogLevel != "" {
			c.Service.LogLevel = service.LogLevel
		}
		if service.MetricsAddress != "" {
			c.Service.MetricsAddress = service.MetricsAddress
		}
		if service.MaxCallAge != "" {
			c.Service.MaxCallAge = service.MaxCallAge
		}
		if service.DurableWrites != nil {
			c.Service.DurableWrites = service.DurableWrites
		}
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"CROSSWORD_ROOT": c.Paths.Root,
		"HOME":           os.Getenv("HOME"),
	}
	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["CROSSWORD_ROOT"] = c.Paths.Root

	c.Paths.Socket = expandVars(c.Paths.Socket, vars)
	c.Paths.Database = expandVars(c.Paths.Database, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}, looking in vars
// before the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.Paths.Socket == "" {
		errs = append(errs, errors.New("paths.socket is required"))
	}
	if !slices.Contains(logLevels, c.Service.LogLevel) {
		errs = append(errs, fmt.Errorf("service.log_level must be one of: %v", logLevels))
	}
	if age, err := time.ParseDuration(c.Service.MaxCallAge); err != nil || age <= 0 {
		errs = append(errs, fmt.Errorf("service.max_call_age must be a positive duration, got %q", c.Service.MaxCallAge))
	}

	names := make(map[string]bool)
	keys := make(map[string]bool)
	for i, account := range c.Accounts {
		if err := ledger.Account(account.Name).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("accounts[%d].name: %w", i, err))
		}
		if ledger.Account(account.Name) == ledger.EscrowAccount {
			errs = append(errs, fmt.Errorf("accounts[%d].name: %s is reserved", i, account.Name))
		}
		if _, err := token.Parse(account.Key); err != nil {
			errs = append(errs, fmt.Errorf("accounts[%d].key: %w", i, err))
		}
		if account.Balance > uint64(ledger.MaxAmount) {
			errs = append(errs, fmt.Errorf("accounts[%d].balance exceeds %d", i, ledger.MaxAmount))
		}
		if names[account.Name] {
			errs = append(errs, fmt.Errorf("accounts[%d]: duplicate name %s", i, account.Name))
		}
		if keys[account.Key] {
			errs = append(errs, fmt.Errorf("accounts[%d]: duplicate key", i))
		}
		names[account.Name], keys[account.Key] = true, true
	}

	return errors.Join(errs...)
}

// MaxCallAgeDuration returns the parsed freshness window. Call after
// Validate.
func (c *Config) MaxCallAgeDuration() time.Duration {
	age, _ := time.ParseDuration(c.Service.MaxCallAge)
	return age
}

// Durable reports whether registry commits should be fsynced.
func (c *Config) Durable() bool {
	return c.Service.DurableWrites != nil && *c.Service.DurableWrites
}

// Level returns the slog level for Service.LogLevel.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Service.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// EnsurePaths creates the directories holding the socket and database.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.Paths.Socket, c.Paths.Database} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
		}
	}
	return nil
}
