// Package config loads covremap settings from a YAML file, an optional .env
// file and COVREMAP_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up when none is given.
const DefaultFile = ".covremap.yaml"

// Config holds settings shared by the CLI commands.
type Config struct {
	// Output is the remapped coverage destination. Empty means stdout.
	Output string `yaml:"output"`
	// Format is one of json, lcov or summary.
	Format string `yaml:"format"`
	// Datastore is a SQLite path or postgres:// URL where runs are saved.
	Datastore string    `yaml:"datastore"`
	Exclude   []string  `yaml:"exclude"`
	Log       LogConfig `yaml:"log"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Format: "json",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path (DefaultFile when empty) and envFile, then applies
// environment overrides. Missing files are not an error unless path was
// given explicitly.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	}

	cfg.Output = getEnv("COVREMAP_OUTPUT", cfg.Output)
	cfg.Format = getEnv("COVREMAP_FORMAT", cfg.Format)
	cfg.Datastore = getEnv("COVREMAP_DATASTORE", cfg.Datastore)
	cfg.Log.Level = getEnv("COVREMAP_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("COVREMAP_LOG_FORMAT", cfg.Log.Format)
	if v := os.Getenv("COVREMAP_EXCLUDE"); v != "" {
		cfg.Exclude = splitList(v)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
