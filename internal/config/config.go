package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/mfigueroa/pgcustodian/pkg/types"
)

type Config struct {
	Source    SourceConfig    `yaml:"source"`
	Expected  ExpectedConfig  `yaml:"expected"`
	Retention RetentionConfig `yaml:"retention"`
	LogLevel  string          `yaml:"logLevel"`
}

type SourceConfig struct {
	DSN    string `yaml:"dsn"`
	Schema string `yaml:"schema"`
}

// ExpectedConfig describes what the verification checklist demands of the
// live schema. The counts mirror the deployed migration set, so they live in
// config rather than code.
type ExpectedConfig struct {
	Tables       []string                `yaml:"tables"`
	Functions    []string                `yaml:"functions"`
	MinFunctions int                     `yaml:"minFunctions"`
	MinRLSTables int                     `yaml:"minRLSTables"`
	IndexPrefix  string                  `yaml:"indexPrefix"`
	MinIndexes   int                     `yaml:"minIndexes"`
	Seed         []types.SeedExpectation `yaml:"seed"`
}

type RetentionConfig struct {
	DefaultDays int               `yaml:"defaultDays"`
	Tables      []RetentionPolicy `yaml:"tables"`
}

// RetentionPolicy overrides the default retention for one table. Days may be
// zero, which means "delete every row created up to now" — a deliberate and
// dangerous setting, not a no-op.
type RetentionPolicy struct {
	Name string `yaml:"name"`
	Days *int   `yaml:"days"`
}

// envOverrides take precedence over the config file so deployments can keep
// credentials out of it.
type envOverrides struct {
	DSN      string `env:"PGCUSTODIAN_DSN"`
	LogLevel string `env:"PGCUSTODIAN_LOG_LEVEL"`
}

func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Config{
		Retention: RetentionConfig{DefaultDays: 30},
		LogLevel:  "info",
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if ov.DSN != "" {
		cfg.Source.DSN = ov.DSN
	}
	if ov.LogLevel != "" {
		cfg.LogLevel = ov.LogLevel
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Source.DSN == "" {
		return errors.New("source.dsn is required (or set PGCUSTODIAN_DSN)")
	}
	if c.Source.Schema == "" {
		return errors.New("source.schema is required")
	}
	if len(c.Expected.Tables) == 0 {
		return errors.New("at least one expected table is required")
	}
	if len(c.Expected.Functions) == 0 {
		return errors.New("at least one expected function is required")
	}
	if c.Expected.MinFunctions < 0 {
		return errors.New("expected.minFunctions must be >= 0")
	}
	if c.Expected.MinRLSTables < 0 {
		return errors.New("expected.minRLSTables must be >= 0")
	}
	if c.Expected.MinIndexes < 0 {
		return errors.New("expected.minIndexes must be >= 0")
	}
	if c.Expected.MinIndexes > 0 && c.Expected.IndexPrefix == "" {
		return errors.New("expected.indexPrefix is required when minIndexes is set")
	}
	for _, seed := range c.Expected.Seed {
		if seed.Table == "" {
			return errors.New("seed.table is required")
		}
		if seed.MinRows < 0 {
			return fmt.Errorf("seed table %s must expect >= 0 rows", seed.Table)
		}
	}
	if c.Retention.DefaultDays < 0 {
		return errors.New("retention.defaultDays must be >= 0")
	}
	for _, pol := range c.Retention.Tables {
		if pol.Name == "" {
			return errors.New("retention table name is required")
		}
		if pol.Days != nil && *pol.Days < 0 {
			return fmt.Errorf("retention for table %s must be >= 0 days", pol.Name)
		}
	}
	return nil
}

// RetentionDays resolves the effective retention for table, falling back to
// the default when no per-table policy exists or the policy leaves days
// unset.
func (c *Config) RetentionDays(table string) int {
	for _, pol := range c.Retention.Tables {
		if pol.Name == table {
			if pol.Days != nil {
				return *pol.Days
			}
			break
		}
	}
	return c.Retention.DefaultDays
}
