package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-docmap/internal/config"
)

// envConfig holds configuration from environment variables.
// Provides CI-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath string        // DOCMAP_CONFIG: config file name or path
	Model      string        // DOCMAP_MODEL: analysis model
	Font       string        // DOCMAP_FONT: font family to gate on
	OutputDir  string        // DOCMAP_OUTPUT_DIR: default output directory
	Timeout    time.Duration // DOCMAP_TIMEOUT: page load timeout
	Workers    int           // DOCMAP_WORKERS: parallel exporters
}

// knownEnvVars lists valid DOCMAP_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"DOCMAP_CONFIG":     true,
	"DOCMAP_MODEL":      true,
	"DOCMAP_FONT":       true,
	"DOCMAP_OUTPUT_DIR": true,
	"DOCMAP_TIMEOUT":    true,
	"DOCMAP_WORKERS":    true,
	"DOCMAP_CONTAINER":  true,
}

// loadEnvConfig reads configuration from environment variables.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath: os.Getenv("DOCMAP_CONFIG"),
		Model:      os.Getenv("DOCMAP_MODEL"),
		Font:       os.Getenv("DOCMAP_FONT"),
		OutputDir:  os.Getenv("DOCMAP_OUTPUT_DIR"),
	}

	if timeout := os.Getenv("DOCMAP_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}

	if workers := os.Getenv("DOCMAP_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	return cfg
}

// warnUnknownEnvVars logs warnings for unrecognized DOCMAP_* variables.
// Helps catch typos like DOCMAP_MODLE instead of DOCMAP_MODEL.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "DOCMAP_") {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig applies environment variable values to config.
// It runs after the config file is loaded and before flags are merged,
// so the priority is flags > environment > config file > defaults.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.Model != "" {
		cfg.Analyzer.Model = env.Model
	}
	if env.Font != "" {
		cfg.Fonts.Family = env.Font
	}
	if env.OutputDir != "" {
		cfg.Export.Dir = env.OutputDir
	}
	if env.Timeout > 0 {
		cfg.Capture.PageTimeout = config.Duration(env.Timeout)
	}
}
