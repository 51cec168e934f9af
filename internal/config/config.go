// Package config loads service configuration from the environment and the
// optional analysis tuning file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/ewilliams-labs/rubato/backend/internal/core/analysis"
)

// Config holds everything the binary needs to start.
type Config struct {
	Addr       string
	DBPath     string
	Workers    int
	QueueSize  int
	LogLevel   string
	LogFormat  string
	TuningPath string
}

// Load builds a Config from environment variables, falling back to defaults
// suitable for local development.
func Load() Config {
	return Config{
		Addr:       getEnv("RUBATO_ADDR", ":8080"),
		DBPath:     getEnv("RUBATO_DB_PATH", "rubato.db"),
		Workers:    getEnvInt("RUBATO_WORKERS", 2),
		QueueSize:  getEnvInt("RUBATO_QUEUE_SIZE", 64),
		LogLevel:   getEnv("RUBATO_LOG_LEVEL", "info"),
		LogFormat:  getEnv("RUBATO_LOG_FORMAT", "json"),
		TuningPath: getEnv("RUBATO_TUNING_PATH", ""),
	}
}

// LoadTuning returns the analysis configuration, overlaying the TOML file at
// path on the defaults when one is configured. Keys absent from the file
// keep their default values.
func LoadTuning(path string) (analysis.Config, error) {
	cfg := analysis.DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return analysis.Config{}, fmt.Errorf("config: load tuning %s: %w", path, err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
