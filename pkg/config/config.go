// Package config loads concurrence settings from a YAML file, an optional
// .env file, and CONCURRENCE_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/coolbeans/concurrence/pkg/dataset"
	"github.com/coolbeans/concurrence/pkg/normalize"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CONCURRENCE_"

// DefaultOutput is the conventional artifact location.
const DefaultOutput = "data/concurrence.json"

// Columns names the source fields. Empty values use the SCDB defaults.
type Columns struct {
	CaseID   string `yaml:"case_id" env:"CASE_ID"`
	Period   string `yaml:"period" env:"PERIOD"`
	MemberID string `yaml:"member_id" env:"MEMBER_ID"`
	Outcome  string `yaml:"outcome" env:"OUTCOME"`
}

// Server configures the HTTP transport.
type Server struct {
	Addr        string `yaml:"addr" env:"ADDR"`
	ReleaseMode bool   `yaml:"release_mode" env:"RELEASE_MODE"`
}

// Config holds every setting the CLI and server read.
type Config struct {
	// Output is where normalize writes the dataset artifact.
	Output string `yaml:"output" env:"OUTPUT"`

	// Source labels the dataset in its metadata.
	Source string `yaml:"source" env:"SOURCE"`

	// Archive is an optional SQLite path for dataset snapshots.
	Archive string `yaml:"archive" env:"ARCHIVE"`

	// Sources lists the default input files, in merge order.
	Sources []string `yaml:"sources" env:"SOURCES" envSeparator:","`

	Columns Columns `yaml:"columns" envPrefix:"COLUMN_"`

	// Affiliations maps member identifiers to affiliation codes, extending
	// the built-in table.
	Affiliations map[string]string `yaml:"affiliations"`

	DefaultMinSample int `yaml:"default_min_sample" env:"MIN_SAMPLE"`

	Server Server `yaml:"server" envPrefix:"SERVER_"`
}

// Default returns the built-in configuration.
func Default() *Config {
	columns := normalize.DefaultColumns()
	return &Config{
		Output: DefaultOutput,
		Source: "SCDB",
		Columns: Columns{
			CaseID:   columns.CaseID,
			Period:   columns.Period,
			MemberID: columns.MemberID,
			Outcome:  columns.Outcome,
		},
		DefaultMinSample: 1,
		Server: Server{
			Addr: ":8080",
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), a .env file in the working directory if present, and the
// environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with any CONCURRENCE_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Output) == "" {
		return fmt.Errorf("output path is required")
	}
	if c.DefaultMinSample < 0 {
		return fmt.Errorf("default_min_sample must be non-negative, got %d", c.DefaultMinSample)
	}
	for id, code := range c.Affiliations {
		if _, err := dataset.ParseAffiliation(code); err != nil {
			return fmt.Errorf("affiliation for %s: %w", id, err)
		}
	}
	return nil
}

// NormalizeOptions converts the configuration into canonicalizer options.
func (c *Config) NormalizeOptions() normalize.Options {
	affiliations := make(map[string]dataset.Affiliation, len(c.Affiliations))
	for id, code := range c.Affiliations {
		affiliations[id] = dataset.Affiliation(code)
	}
	return normalize.Options{
		Columns: normalize.Columns{
			CaseID:   c.Columns.CaseID,
			Period:   c.Columns.Period,
			MemberID: c.Columns.MemberID,
			Outcome:  c.Columns.Outcome,
		},
		Source:       c.Source,
		Affiliations: affiliations,
	}
}
