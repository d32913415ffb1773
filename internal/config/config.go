// Package config defines the docmap file configuration: capture ladder,
// font gate, analyzer, and export defaults. Files decode strictly so typos
// fail loudly instead of silently falling back.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-docmap/internal/fileutil"
	"github.com/alnah/go-docmap/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Hard bounds on tunables. Values outside these ranges are either typos or
// abuse, never legitimate settings.
const (
	MaxLadderRungs  = 8
	MaxFidelity     = 8.0
	MaxBudget       = 10 * time.Minute
	MaxGateRounds   = 100
	MaxGateInterval = 30 * time.Second
	MaxSettleDelay  = 30 * time.Second
	MaxPageTimeout  = 10 * time.Minute
	MaxAttempts     = 10
	MaxRetryDelay   = time.Minute
	MaxModelLength  = 100 // "gemini-2.5-flash" and friends
	MaxFamilyLength = 100 // CSS font-family value
	MaxDateLength   = 50  // "auto", "auto:January 2, 2006", or literal
)

// Duration decodes YAML scalars like "300ms" or "1m30s" via
// time.ParseDuration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidValue, s, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds all file-configurable settings.
type Config struct {
	Export   ExportConfig   `yaml:"export"`
	Capture  CaptureConfig  `yaml:"capture"`
	Fonts    FontsConfig    `yaml:"fonts"`
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	Board    BoardConfig    `yaml:"board"`
}

// ExportConfig defines delivery defaults.
type ExportConfig struct {
	Action string `yaml:"action"` // "save" or "binary" (default: "save")
	Dir    string `yaml:"dir"`    // Default output directory (empty = input's directory)
}

// CaptureConfig tunes the quality ladder.
type CaptureConfig struct {
	Ladder      []RungConfig `yaml:"ladder"`      // Empty = built-in three-rung ladder
	SettleDelay Duration     `yaml:"settleDelay"` // Pause before each degraded retry
	PageTimeout Duration     `yaml:"pageTimeout"` // Board load timeout
}

// RungConfig is one quality/budget pair. Rungs must descend in fidelity.
type RungConfig struct {
	Fidelity float64  `yaml:"fidelity"`
	Budget   Duration `yaml:"budget"`
}

// FontsConfig tunes the font readiness gate.
type FontsConfig struct {
	Family       string   `yaml:"family"` // Empty = skip the gate
	GateRounds   int      `yaml:"gateRounds"`
	GateInterval Duration `yaml:"gateInterval"`
}

// AnalyzerConfig tunes the page analyzer and its retry policy.
type AnalyzerConfig struct {
	Model       string   `yaml:"model"`
	MaxAttempts int      `yaml:"maxAttempts"`
	BaseDelay   Duration `yaml:"baseDelay"`
	JitterRange Duration `yaml:"jitterRange"`
}

// BoardConfig tunes board rendering.
type BoardConfig struct {
	Date string `yaml:"date"` // "auto", "auto:FORMAT" (Go layout), or literal text
}

// Validate checks value bounds. Called automatically by Load, but available
// for consumers who construct Config manually.
func (c *Config) Validate() error {
	if c.Export.Action != "" {
		switch strings.ToLower(c.Export.Action) {
		case "save", "binary":
			// valid
		default:
			return fmt.Errorf("%w: export.action %q (must be save or binary)", ErrInvalidValue, c.Export.Action)
		}
	}

	if len(c.Capture.Ladder) > MaxLadderRungs {
		return fmt.Errorf("%w: capture.ladder has %d rungs (max %d)", ErrInvalidValue, len(c.Capture.Ladder), MaxLadderRungs)
	}
	prev := MaxFidelity + 1
	for i, rung := range c.Capture.Ladder {
		if rung.Fidelity <= 0 || rung.Fidelity > MaxFidelity {
			return fmt.Errorf("%w: capture.ladder[%d].fidelity %.2f (must be in (0, %.0f])", ErrInvalidValue, i, rung.Fidelity, MaxFidelity)
		}
		if rung.Fidelity >= prev {
			return fmt.Errorf("%w: capture.ladder[%d].fidelity %.2f does not descend", ErrInvalidValue, i, rung.Fidelity)
		}
		prev = rung.Fidelity
		if rung.Budget.Std() <= 0 || rung.Budget.Std() > MaxBudget {
			return fmt.Errorf("%w: capture.ladder[%d].budget %s (must be in (0, %s])", ErrInvalidValue, i, rung.Budget.Std(), MaxBudget)
		}
	}
	if err := boundDuration("capture.settleDelay", c.Capture.SettleDelay, MaxSettleDelay); err != nil {
		return err
	}
	if err := boundDuration("capture.pageTimeout", c.Capture.PageTimeout, MaxPageTimeout); err != nil {
		return err
	}

	if len(c.Fonts.Family) > MaxFamilyLength {
		return fmt.Errorf("%w: fonts.family exceeds %d chars", ErrInvalidValue, MaxFamilyLength)
	}
	if c.Fonts.GateRounds < 0 || c.Fonts.GateRounds > MaxGateRounds {
		return fmt.Errorf("%w: fonts.gateRounds %d (must be in [0, %d])", ErrInvalidValue, c.Fonts.GateRounds, MaxGateRounds)
	}
	if err := boundDuration("fonts.gateInterval", c.Fonts.GateInterval, MaxGateInterval); err != nil {
		return err
	}

	if len(c.Analyzer.Model) > MaxModelLength {
		return fmt.Errorf("%w: analyzer.model exceeds %d chars", ErrInvalidValue, MaxModelLength)
	}
	if c.Analyzer.MaxAttempts < 0 || c.Analyzer.MaxAttempts > MaxAttempts {
		return fmt.Errorf("%w: analyzer.maxAttempts %d (must be in [0, %d])", ErrInvalidValue, c.Analyzer.MaxAttempts, MaxAttempts)
	}
	if err := boundDuration("analyzer.baseDelay", c.Analyzer.BaseDelay, MaxRetryDelay); err != nil {
		return err
	}
	if err := boundDuration("analyzer.jitterRange", c.Analyzer.JitterRange, MaxRetryDelay); err != nil {
		return err
	}

	if len(c.Board.Date) > MaxDateLength {
		return fmt.Errorf("%w: board.date exceeds %d chars", ErrInvalidValue, MaxDateLength)
	}

	return nil
}

func boundDuration(field string, d Duration, limit time.Duration) error {
	if d.Std() < 0 || d.Std() > limit {
		return fmt.Errorf("%w: %s %s (must be in [0, %s])", ErrInvalidValue, field, d.Std(), limit)
	}
	return nil
}

// Default returns the configuration the engine runs with when no file is
// present. Zero-valued fields mean "engine default" downstream.
func Default() *Config {
	return &Config{
		Export: ExportConfig{Action: "save"},
		Capture: CaptureConfig{
			Ladder: []RungConfig{
				{Fidelity: 2.0, Budget: Duration(60 * time.Second)},
				{Fidelity: 1.5, Budget: Duration(30 * time.Second)},
				{Fidelity: 1.0, Budget: Duration(15 * time.Second)},
			},
			SettleDelay: Duration(300 * time.Millisecond),
			PageTimeout: Duration(30 * time.Second),
		},
		Fonts: FontsConfig{
			GateRounds:   10,
			GateInterval: Duration(500 * time.Millisecond),
		},
		Analyzer: AnalyzerConfig{
			Model:       "gemini-2.5-flash",
			MaxAttempts: 3,
			BaseDelay:   Duration(time.Second),
			JitterRange: Duration(500 * time.Millisecond),
		},
		Board: BoardConfig{Date: "auto"},
	}
}

// Load reads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard
// locations. Returns error if the file is not found (no silent fallback).
// The file is decoded over Default(), so settings it omits keep their
// default values.
func Load(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Decode over the defaults so fields absent from the file keep
	// their default values.
	cfg := Default()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Discover looks for an implicit config file: docmap.yaml or docmap.yml in
// the working directory, then in the user config dir under docmap/.
// Returns the path and whether one was found.
func Discover() (string, bool) {
	extensions := []string{".yaml", ".yml"}

	for _, ext := range extensions {
		localPath := "docmap" + ext
		if fileExists(localPath) {
			return localPath, true
		}
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "docmap", "docmap"+ext)
			if fileExists(userPath) {
				return userPath, true
			}
		}
	}

	return "", false
}

// defaultFileTemplate is the commented config written by Write. Comments
// cannot survive a marshal round-trip, so this is a literal.
const defaultFileTemplate = `# docmap configuration
# Values shown are the built-in defaults; delete what you don't change.

export:
  action: save        # save | binary
  dir: ""             # default output directory (empty = next to input)

capture:
  ladder:             # quality rungs, descending fidelity
    - fidelity: 2.0
      budget: 60s
    - fidelity: 1.5
      budget: 30s
    - fidelity: 1.0
      budget: 15s
  settleDelay: 300ms  # pause before each degraded retry
  pageTimeout: 30s    # board load timeout

fonts:
  family: ""          # font to wait for before capturing (empty = skip)
  gateRounds: 10
  gateInterval: 500ms

analyzer:
  model: gemini-2.5-flash
  maxAttempts: 3
  baseDelay: 1s
  jitterRange: 500ms

board:
  date: auto          # auto | auto:FORMAT (Go layout) | literal text
`

// Write writes the commented default configuration to path. Refuses to
// overwrite an existing file.
func Write(path string) error {
	if path == "" {
		return ErrEmptyConfigName
	}
	if fileExists(path) {
		return fmt.Errorf("%w: %s already exists", ErrInvalidValue, path)
	}
	if err := fileutil.EnsureParentDir(path); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultFileTemplate), fileutil.FilePermissions); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, then the user config dir.
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2) // 2 locations

	// Try current directory first (both extensions)
	for _, ext := range extensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	// Try user config directory (both extensions)
	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "docmap", name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
