// Package config loads settings from an optional .env file, an optional
// YAML file and environment overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when Load is called with an empty path.
const DefaultPath = "scenario.yaml"

// DotEnvPath is the optional env file applied before the YAML file.
const DotEnvPath = ".env"

// Config holds all settings for the two stores and their workers.
type Config struct {
	DataDir    string           `yaml:"dataDir"`
	LogLevel   string           `yaml:"logLevel"`
	Relational RelationalConfig `yaml:"relational"`
	Graph      GraphConfig      `yaml:"graph"`
	Worker     WorkerConfig     `yaml:"worker"`
	Seed       SeedConfig       `yaml:"seed"`
}

// RelationalConfig configures the relational store.
type RelationalConfig struct {
	DSN string `yaml:"dsn"` // empty = <dataDir>/scenario.db, ":memory:" = volatile
}

// GraphConfig configures the graph store.
type GraphConfig struct {
	DSN      string `yaml:"dsn"`      // backing engine DSN, in-memory by default
	DumpDir  string `yaml:"dumpDir"`  // empty = <dataDir>/graph
	Memory   bool   `yaml:"memory"`   // keep label dumps in memory instead of DumpDir
	AutoSave bool   `yaml:"autoSave"` // save after every mutating message
}

// WorkerConfig configures the message bus.
type WorkerConfig struct {
	RequestTimeout Duration `yaml:"requestTimeout"`
}

// SeedConfig configures the first-run scenario.
type SeedConfig struct {
	Title string `yaml:"title"`
}

// Duration is a time.Duration that unmarshals from strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the underlying time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:  "data",
		LogLevel: "info",
		Graph: GraphConfig{
			AutoSave: true,
		},
		Worker: WorkerConfig{
			RequestTimeout: Duration(30 * time.Second),
		},
		Seed: SeedConfig{
			Title: "はじめてのシナリオ",
		},
	}
}

// Load reads config from path (DefaultPath when empty). A missing file is
// not an error; defaults and environment overrides still apply.
func Load(path string) (Config, error) {
	if err := loadDotEnv(DotEnvPath); err != nil {
		return Default(), err
	}

	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadDotEnv sets variables from an env file. A missing file is not an
// error; a malformed one is.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("TRPG_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("TRPG_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TRPG_RELATIONAL_DSN"); v != "" {
		cfg.Relational.DSN = v
	}
	if v := os.Getenv("TRPG_GRAPH_DSN"); v != "" {
		cfg.Graph.DSN = v
	}
	if v := os.Getenv("TRPG_GRAPH_AUTOSAVE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TRPG_GRAPH_AUTOSAVE: %w", err)
		}
		cfg.Graph.AutoSave = b
	}
	if v := os.Getenv("TRPG_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TRPG_REQUEST_TIMEOUT: %w", err)
		}
		cfg.Worker.RequestTimeout = Duration(d)
	}
	if v := os.Getenv("TRPG_SEED_TITLE"); v != "" {
		cfg.Seed.Title = v
	}
	return nil
}

// Validate checks required settings.
func (c Config) Validate() error {
	if c.Worker.RequestTimeout < 0 {
		return errors.New("worker.requestTimeout must not be negative")
	}
	if strings.TrimSpace(c.Seed.Title) == "" {
		return errors.New("seed.title is required")
	}
	return nil
}

// RelationalDSN resolves the relational DSN against DataDir.
func (c Config) RelationalDSN() string {
	if c.Relational.DSN != "" {
		return c.Relational.DSN
	}
	return "file:" + filepath.Join(c.DataDir, "scenario.db")
}

// GraphDSN resolves the graph engine DSN. The engine is in-memory unless
// configured otherwise; durability comes from label dumps.
func (c Config) GraphDSN() string {
	if c.Graph.DSN != "" {
		return c.Graph.DSN
	}
	return ":memory:"
}

// GraphDumpDir resolves the directory holding label dumps.
func (c Config) GraphDumpDir() string {
	if c.Graph.DumpDir != "" {
		return c.Graph.DumpDir
	}
	return filepath.Join(c.DataDir, "graph")
}
