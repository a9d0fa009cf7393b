package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/fakeyudi/sleeptrack/internal/format"
)

// EnvDBPath overrides the configured database path.
const EnvDBPath = "SLEEPTRACK_DB_PATH"

// Config holds all configurable sleeptrack settings.
type Config struct {
	DBPath       string `yaml:"db_path"`       // empty = XDG data dir
	DateLayout   string `yaml:"date_layout"`   // Go time layout for history
	ExportFormat string `yaml:"export_format"` // "markdown" | "json"
	LogLevel     string `yaml:"log_level"`     // "debug" | "info" | "warn" | "error"
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		DateLayout:   format.DefaultLayout,
		ExportFormat: "markdown",
		LogLevel:     "warn",
	}
}

// LoadGlobal reads ~/.config/sleeptrack/config.yaml.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(home, ".config", "sleeptrack", "config.yaml")
	return loadFile(path, true)
}

// LoadLocal reads .sleeptrack.yaml in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadLocal() (*Config, error) {
	return loadFile(".sleeptrack.yaml", false)
}

// loadFile reads and parses a YAML config file at path, expanding
// environment variables in its contents.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and local configs, with local taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, local *Config) Config {
	result := Defaults()
	for _, c := range []*Config{global, local} {
		if c == nil {
			continue
		}
		if c.DBPath != "" {
			result.DBPath = c.DBPath
		}
		if c.DateLayout != "" {
			result.DateLayout = c.DateLayout
		}
		if c.ExportFormat != "" {
			result.ExportFormat = c.ExportFormat
		}
		if c.LogLevel != "" {
			result.LogLevel = c.LogLevel
		}
	}
	return result
}

// ApplyEnv loads .env from the working directory, if present, and applies
// environment overrides to cfg. Variables already set in the process win
// over the .env file.
func ApplyEnv(cfg *Config) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &ParseError{Path: ".env", Err: err}
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	return nil
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
