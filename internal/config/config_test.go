package config

import (
	"os"
	"path/filepath"
	"testing"
)

const minimalConfig = `
source:
  dsn: postgres://custodian@localhost:5432/appdb
  schema: public
expected:
  tables: [user_profiles, api_providers, frameworks]
  functions: [set_updated_at, cleanup_old_records]
  indexPrefix: idx_
  minIndexes: 2
retention:
  tables:
    - name: user_profiles
      days: 90
    - name: api_providers
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_ExampleFile(t *testing.T) {
	path := "../../examples/config.yaml"
	if _, err := os.Stat(path); err != nil {
		t.Skip("examples config not present")
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
	if len(cfg.Expected.Tables) != 9 {
		t.Fatalf("expected 9 reference tables, got %d", len(cfg.Expected.Tables))
	}
	if cfg.Expected.MinFunctions != 7 {
		t.Fatalf("expected minFunctions 7, got %d", cfg.Expected.MinFunctions)
	}
}

func TestLoadConfig_Valid(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
	if cfg.Source.Schema != "public" {
		t.Fatalf("unexpected schema: %s", cfg.Source.Schema)
	}
	if cfg.Retention.DefaultDays != 30 {
		t.Fatalf("expected default retention of 30 days, got %d", cfg.Retention.DefaultDays)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected default log level info, got %s", cfg.LogLevel)
	}
}

func TestLoadConfig_MissingDSN(t *testing.T) {
	t.Setenv("PGCUSTODIAN_DSN", "")
	body := `
source:
  schema: public
expected:
  tables: [user_profiles]
  functions: [set_updated_at]
`
	_, err := LoadConfig(writeConfig(t, body))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
}

func TestLoadConfig_NoExpectedTables(t *testing.T) {
	body := `
source:
  dsn: postgres://custodian@localhost:5432/appdb
  schema: public
expected:
  tables: []
  functions: [set_updated_at]
`
	_, err := LoadConfig(writeConfig(t, body))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
}

func TestLoadConfig_NegativeRetention(t *testing.T) {
	body := `
source:
  dsn: postgres://custodian@localhost:5432/appdb
  schema: public
expected:
  tables: [user_profiles]
  functions: [set_updated_at]
retention:
  defaultDays: -1
`
	_, err := LoadConfig(writeConfig(t, body))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
}

func TestLoadConfig_NegativeThresholds(t *testing.T) {
	base := `
source:
  dsn: postgres://custodian@localhost:5432/appdb
  schema: public
expected:
  tables: [user_profiles]
  functions: [set_updated_at]
`
	for name, extra := range map[string]string{
		"minFunctions": "  minFunctions: -1\n",
		"minRLSTables": "  minRLSTables: -3\n",
		"minIndexes":   "  minIndexes: -20\n",
	} {
		_, err := LoadConfig(writeConfig(t, base+extra))
		if err == nil {
			t.Fatalf("expected validation error for negative %s, got nil", name)
		}
	}
}

func TestLoadConfig_EnvOverridesDSN(t *testing.T) {
	t.Setenv("PGCUSTODIAN_DSN", "postgres://other@db.internal:5432/appdb")

	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
	if cfg.Source.DSN != "postgres://other@db.internal:5432/appdb" {
		t.Fatalf("env override lost, got %s", cfg.Source.DSN)
	}
}

func TestRetentionDays(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.RetentionDays("user_profiles"); got != 90 {
		t.Fatalf("expected per-table override of 90, got %d", got)
	}
	// Listed without days: falls back to the default.
	if got := cfg.RetentionDays("api_providers"); got != 30 {
		t.Fatalf("expected default of 30, got %d", got)
	}
	if got := cfg.RetentionDays("never_configured"); got != 30 {
		t.Fatalf("expected default of 30, got %d", got)
	}
}
