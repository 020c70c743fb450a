// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tathienbao/tna/internal/source"
	"github.com/tathienbao/tna/internal/store"
	"github.com/tathienbao/tna/internal/types"
	"gopkg.in/yaml.v3"
)

// Config represents the full application configuration.
type Config struct {
	Source      SourceConfig      `yaml:"source"`
	Analysis    AnalysisConfig    `yaml:"analysis"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Report      ReportConfig      `yaml:"report"`
}

// SourceConfig says where the price history lives.
type SourceConfig struct {
	Location string `yaml:"location"`
	Archive  string `yaml:"archive"` // optional zip bundle holding Location
	Root     string `yaml:"root"`    // directory Location is relative to
	Format   string `yaml:"format"`  // auto | xlsx | csv | sqlite
}

// AnalysisConfig holds the moving-average periods to compute.
type AnalysisConfig struct {
	Periods []int `yaml:"periods"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`  // debug | info | warn | error
	Format  string `yaml:"format"` // text | json
	Verbose bool   `yaml:"verbose"`
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// PersistenceConfig holds the SQLite cache settings.
type PersistenceConfig struct {
	Path string `yaml:"path"`
}

// ReportConfig holds report settings.
type ReportConfig struct {
	Rows int `yaml:"rows"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Location: "data/tna.xlsx",
			Root:     ".",
			Format:   string(source.FormatAuto),
		},
		Analysis: AnalysisConfig{
			Periods: []int{5, 10, 20, 50, 100},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Port: 9090,
			Path: "/metrics",
		},
		Persistence: PersistenceConfig{
			Path: "data/tna.db",
		},
		Report: ReportConfig{
			Rows: 10,
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes. Keys absent from data
// keep their default values.
func LoadFromBytes(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	// Source validation
	if strings.TrimSpace(c.Source.Location) == "" {
		errs = append(errs, "source.location is required")
	}
	if _, err := source.ParseFormat(c.Source.Format); err != nil {
		errs = append(errs, fmt.Sprintf("source.format '%s' must be auto, xlsx, csv or sqlite", c.Source.Format))
	}

	// Analysis validation
	if len(c.Analysis.Periods) == 0 {
		errs = append(errs, "analysis.periods must not be empty")
	}
	seen := make(map[int]bool, len(c.Analysis.Periods))
	for _, p := range c.Analysis.Periods {
		if p <= 0 {
			errs = append(errs, fmt.Sprintf("analysis.periods entry %d must be positive", p))
			continue
		}
		if seen[p] {
			errs = append(errs, fmt.Sprintf("analysis.periods entry %d is duplicated", p))
		}
		seen[p] = true
	}

	// Logging validation
	if _, err := parseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		errs = append(errs, "logging.format must be 'text' or 'json'")
	}

	// Metrics validation
	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			errs = append(errs, "metrics.port must be between 1 and 65535")
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			errs = append(errs, "metrics.path must start with '/'")
		}
	}

	if c.Report.Rows < 0 {
		errs = append(errs, "report.rows must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", types.ErrInvalidConfig, strings.Join(errs, "; "))
	}

	return nil
}

// SourceFormat returns the configured source format.
func (c *Config) SourceFormat() source.Format {
	f, err := source.ParseFormat(c.Source.Format)
	if err != nil {
		return source.FormatAuto
	}
	return f
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	level, err := parseLevel(c.Logging.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ToStoreConfig converts to store.Config.
func (c *Config) ToStoreConfig() store.Config {
	return store.Config{
		Verbose: c.Logging.Verbose,
	}
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging.level '%s' must be debug, info, warn or error", s)
	}
}
