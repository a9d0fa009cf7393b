package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pgregory.net/rapid"

	"github.com/fakeyudi/sleeptrack/internal/format"
)

// Feature: sleeptrack, Property 10: Config merge precedence
func TestConfigMergePrecedence(t *testing.T) {
	nonEmptyString := rapid.StringMatching(`[a-zA-Z0-9/_.-]{1,20}`)

	configGen := rapid.Custom(func(t *rapid.T) *Config {
		cfg := &Config{}
		if rapid.Bool().Draw(t, "hasDBPath") {
			cfg.DBPath = nonEmptyString.Draw(t, "dbPath")
		}
		if rapid.Bool().Draw(t, "hasDateLayout") {
			cfg.DateLayout = nonEmptyString.Draw(t, "dateLayout")
		}
		if rapid.Bool().Draw(t, "hasExportFormat") {
			cfg.ExportFormat = nonEmptyString.Draw(t, "exportFormat")
		}
		if rapid.Bool().Draw(t, "hasLogLevel") {
			cfg.LogLevel = nonEmptyString.Draw(t, "logLevel")
		}
		return cfg
	})

	rapid.Check(t, func(t *rapid.T) {
		global := configGen.Draw(t, "global")
		local := configGen.Draw(t, "local")

		merged := Merge(global, local)
		defaults := Defaults()

		checkStringField(t, "DBPath", global.DBPath, local.DBPath, defaults.DBPath, merged.DBPath)
		checkStringField(t, "DateLayout", global.DateLayout, local.DateLayout, defaults.DateLayout, merged.DateLayout)
		checkStringField(t, "ExportFormat", global.ExportFormat, local.ExportFormat, defaults.ExportFormat, merged.ExportFormat)
		checkStringField(t, "LogLevel", global.LogLevel, local.LogLevel, defaults.LogLevel, merged.LogLevel)
	})
}

// checkStringField asserts the merge precedence rule for a single string field:
//   - local non-empty  → merged == local
//   - local empty, global non-empty → merged == global
//   - both empty → merged == defaultVal
func checkStringField(t *rapid.T, name, globalVal, localVal, defaultVal, mergedVal string) {
	t.Helper()
	switch {
	case localVal != "":
		if mergedVal != localVal {
			t.Fatalf("%s: both set — expected local value %q, got %q", name, localVal, mergedVal)
		}
	case globalVal != "":
		if mergedVal != globalVal {
			t.Fatalf("%s: only global set — expected global value %q, got %q", name, globalVal, mergedVal)
		}
	default:
		if mergedVal != defaultVal {
			t.Fatalf("%s: neither set — expected default %q, got %q", name, defaultVal, mergedVal)
		}
	}
}

func TestMergeNilConfigs(t *testing.T) {
	if got := Merge(nil, nil); got != Defaults() {
		t.Errorf("Merge(nil, nil): want defaults, got %+v", got)
	}
}

func TestDefaultsValues(t *testing.T) {
	d := Defaults()
	if d.ExportFormat != "markdown" {
		t.Errorf("ExportFormat: want %q, got %q", "markdown", d.ExportFormat)
	}
	if d.DateLayout != format.DefaultLayout {
		t.Errorf("DateLayout: want %q, got %q", format.DefaultLayout, d.DateLayout)
	}
	if d.LogLevel != "warn" {
		t.Errorf("LogLevel: want %q, got %q", "warn", d.LogLevel)
	}
	if d.DBPath != "" {
		t.Errorf("DBPath: want empty, got %q", d.DBPath)
	}
}

func TestLoadGlobalMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadGlobal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config, got nil")
	}
	if *cfg != Defaults() {
		t.Errorf("want defaults, got %+v", *cfg)
	}
}

func TestLoadGlobalExpandsEnv(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("NIGHTS_DIR", "/srv/nights")

	cfgDir := filepath.Join(tmp, ".config", "sleeptrack")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	body := "db_path: ${NIGHTS_DIR}/sleep.db\nexport_format: json\n"
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadGlobal()
	if err != nil {
		t.Fatalf("LoadGlobal: %v", err)
	}
	if cfg.DBPath != "/srv/nights/sleep.db" {
		t.Errorf("DBPath: want /srv/nights/sleep.db, got %q", cfg.DBPath)
	}
	if cfg.ExportFormat != "json" {
		t.Errorf("ExportFormat: want json, got %q", cfg.ExportFormat)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
}

func TestLoadLocalMissingFileReturnsNil(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadLocal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Errorf("expected nil config, got %+v", cfg)
	}
}

func TestLoadGlobalParseError(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	cfgDir := filepath.Join(tmp, ".config", "sleeptrack")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte("db_path: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadGlobal()
	if err == nil {
		t.Fatal("expected an error for invalid YAML, got nil")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("expected *ParseError, got %T: %v", err, err)
	}
}

func TestApplyEnvFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv(EnvDBPath, "")
	os.Unsetenv(EnvDBPath)

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvDBPath+"=/tmp/from-dotenv.db\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv(EnvDBPath) })

	cfg := Defaults()
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.DBPath != "/tmp/from-dotenv.db" {
		t.Errorf("DBPath: want /tmp/from-dotenv.db, got %q", cfg.DBPath)
	}
}

func TestApplyEnvProcessWinsOverDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv(EnvDBPath, "/tmp/from-process.db")

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvDBPath+"=/tmp/from-dotenv.db\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.DBPath != "/tmp/from-process.db" {
		t.Errorf("DBPath: want /tmp/from-process.db, got %q", cfg.DBPath)
	}
}

func TestApplyEnvWithoutDotEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(EnvDBPath, "")

	cfg := Defaults()
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.DBPath != "" {
		t.Errorf("DBPath: want empty, got %q", cfg.DBPath)
	}
}
