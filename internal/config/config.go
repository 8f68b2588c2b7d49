package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	pebblestore "github.com/rzbill/medtrail/internal/storage/pebble"
	logpkg "github.com/rzbill/medtrail/pkg/log"
	"gopkg.in/yaml.v3"
)

// Registry backends.
const (
	RegistryPebble = "pebble"
	RegistrySQLite = "sqlite"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// DataDir holds the Pebble store; empty selects DefaultDataDir().
	DataDir         string `json:"dataDir" yaml:"dataDir"`
	Fsync           string `json:"fsync" yaml:"fsync"`
	FsyncIntervalMs int    `json:"fsyncIntervalMs" yaml:"fsyncIntervalMs"`

	HTTPAddr string `json:"httpAddr" yaml:"httpAddr"`
	GRPCAddr string `json:"grpcAddr" yaml:"grpcAddr"`

	Registry RegistryConfig `json:"registry" yaml:"registry"`
	Events   EventsConfig   `json:"events" yaml:"events"`

	// UrgencyExpr overrides the built-in urgency rule (a CEL expression).
	UrgencyExpr string `json:"urgencyExpr" yaml:"urgencyExpr"`

	Log logpkg.Config `json:"log" yaml:"log"`
}

// RegistryConfig selects where root entities live.
type RegistryConfig struct {
	Backend string `json:"backend" yaml:"backend"`
	// SQLitePath defaults to <dataDir>/registry.db.
	SQLitePath string `json:"sqlitePath" yaml:"sqlitePath"`
}

// EventsConfig bounds event listing.
type EventsConfig struct {
	DefaultWindowDays int `json:"defaultWindowDays" yaml:"defaultWindowDays"`
	MaxWindowDays     int `json:"maxWindowDays" yaml:"maxWindowDays"`
	MaxPageSize       int `json:"maxPageSize" yaml:"maxPageSize"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Fsync:           "always",
		FsyncIntervalMs: 5,
		HTTPAddr:        ":8080",
		GRPCAddr:        ":9090",
		Registry:        RegistryConfig{Backend: RegistryPebble},
		Events: EventsConfig{
			DefaultWindowDays: 30,
			MaxWindowDays:     3650,
			MaxPageSize:       500,
		},
		Log: logpkg.Config{Level: "info", Format: "text"},
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if _, err := pebblestore.ParseFsyncMode(c.Fsync); err != nil {
		return err
	}
	switch c.Registry.Backend {
	case RegistryPebble, RegistrySQLite:
	default:
		return fmt.Errorf("config: unknown registry backend %q; use pebble|sqlite", c.Registry.Backend)
	}
	if c.Events.DefaultWindowDays < 0 {
		return fmt.Errorf("config: events.defaultWindowDays must be >= 0")
	}
	if c.Events.MaxWindowDays > 0 && c.Events.DefaultWindowDays > c.Events.MaxWindowDays {
		return fmt.Errorf("config: events.defaultWindowDays exceeds events.maxWindowDays")
	}
	if c.Events.MaxPageSize < 0 {
		return fmt.Errorf("config: events.maxPageSize must be >= 0")
	}
	return nil
}

// ResolvedDataDir returns DataDir or the platform default.
func (c Config) ResolvedDataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return DefaultDataDir()
}

// ResolvedSQLitePath returns the SQLite registry file location.
func (c Config) ResolvedSQLitePath() string {
	if c.Registry.SQLitePath != "" {
		return c.Registry.SQLitePath
	}
	return filepath.Join(c.ResolvedDataDir(), "registry.db")
}

// Write encodes cfg as YAML.
func Write(w io.Writer, cfg Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
