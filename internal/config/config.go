// Package config provides Viper-based configuration loading for dicebag.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// DatabaseConfig holds PostgreSQL connection settings. It is only consulted
// when the storage backend is "postgres".
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// RollerConfig holds dice, history and preset settings.
type RollerConfig struct {
	// Seed selects a reproducible random source; 0 uses crypto/rand.
	Seed uint64 `mapstructure:"seed"`
	// HistoryCapacity is the number of rolls the log retains.
	HistoryCapacity int `mapstructure:"history_capacity"`
	// FeaturedSlots is the featured preset count: 4 or 6.
	FeaturedSlots int `mapstructure:"featured_slots"`
	// CustomDieSides is the initial custom die size.
	CustomDieSides int `mapstructure:"custom_die_sides"`
	// PresetsDir optionally replaces the embedded built-in presets with the
	// YAML files in this directory.
	PresetsDir string `mapstructure:"presets_dir"`
}

// StorageConfig selects where the roll log and presets persist.
type StorageConfig struct {
	// Backend is one of "file", "sqlite", "postgres".
	Backend string `mapstructure:"backend"`
	// Path is the snapshot directory (file) or database file (sqlite).
	Path string `mapstructure:"path"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Roller   RollerConfig   `mapstructure:"roller"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateRoller(c.Roller); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateStorage(c.Storage); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Storage.Backend == BackendPostgres {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateRoller(r RollerConfig) error {
	var errs []string
	if r.HistoryCapacity < 1 {
		errs = append(errs, fmt.Sprintf("roller.history_capacity must be >= 1, got %d", r.HistoryCapacity))
	}
	if r.FeaturedSlots != 4 && r.FeaturedSlots != 6 {
		errs = append(errs, fmt.Sprintf("roller.featured_slots must be 4 or 6, got %d", r.FeaturedSlots))
	}
	if r.CustomDieSides < 2 {
		errs = append(errs, fmt.Sprintf("roller.custom_die_sides must be >= 2, got %d", r.CustomDieSides))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateStorage(s StorageConfig) error {
	switch s.Backend {
	case BackendFile, BackendSQLite:
		if s.Path == "" {
			return fmt.Errorf("storage.path must not be empty for backend %q", s.Backend)
		}
	case BackendPostgres:
	default:
		return fmt.Errorf("storage.backend must be one of [file, sqlite, postgres], got %q", s.Backend)
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path skips the file and uses
// defaults plus environment overrides.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// NewViper returns a Viper instance carrying the defaults and the DICEBAG_
// environment overrides.
func NewViper() *viper.Viper {
	v := viper.New()

	// Environment variable overrides with DICEBAG_ prefix
	v.SetEnvPrefix("DICEBAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")

	v.SetDefault("roller.seed", 0)
	v.SetDefault("roller.history_capacity", 100)
	v.SetDefault("roller.featured_slots", 4)
	v.SetDefault("roller.custom_die_sides", 6)
	v.SetDefault("roller.presets_dir", "")

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.path", ".dicebag")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "dicebag")
	v.SetDefault("database.password", "dicebag")
	v.SetDefault("database.name", "dicebag")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")
}
