package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-docmap/internal/yamlutil"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() does not validate: %v", err)
	}
	if cfg.Export.Action != "save" {
		t.Errorf("Export.Action = %q, want %q", cfg.Export.Action, "save")
	}
	if len(cfg.Capture.Ladder) != 3 {
		t.Fatalf("Capture.Ladder has %d rungs, want 3", len(cfg.Capture.Ladder))
	}
	for i := 1; i < len(cfg.Capture.Ladder); i++ {
		if cfg.Capture.Ladder[i].Fidelity >= cfg.Capture.Ladder[i-1].Fidelity {
			t.Errorf("ladder fidelity does not descend at rung %d", i)
		}
	}
	if cfg.Analyzer.Model == "" {
		t.Error("Analyzer.Model is empty")
	}
	if cfg.Board.Date != "auto" {
		t.Errorf("Board.Date = %q, want %q", cfg.Board.Date, "auto")
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	type doc struct {
		D Duration `yaml:"d"`
	}

	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"milliseconds", "d: 300ms", 300 * time.Millisecond, false},
		{"compound", "d: 1m30s", 90 * time.Second, false},
		{"zero", "d: 0s", 0, false},
		{"bare number rejected", "d: 42", 0, true},
		{"garbage rejected", "d: soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d doc
			err := yamlutil.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Unmarshal(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal(%q) error = %v", tt.input, err)
			}
			if d.D.Std() != tt.want {
				t.Errorf("duration = %s, want %s", d.D.Std(), tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	rung := func(f float64, d time.Duration) RungConfig {
		return RungConfig{Fidelity: f, Budget: Duration(d)}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"zero config is valid", func(c *Config) {}, true},
		{"default is valid", func(c *Config) { *c = *Default() }, true},
		{
			"binary action is valid",
			func(c *Config) { c.Export.Action = "binary" },
			true,
		},
		{
			"unknown action",
			func(c *Config) { c.Export.Action = "fax" },
			false,
		},
		{
			"too many rungs",
			func(c *Config) {
				for i := 0; i < MaxLadderRungs+1; i++ {
					c.Capture.Ladder = append(c.Capture.Ladder, rung(8.0-float64(i)*0.5, time.Second))
				}
			},
			false,
		},
		{
			"zero fidelity",
			func(c *Config) { c.Capture.Ladder = []RungConfig{rung(0, time.Second)} },
			false,
		},
		{
			"fidelity does not descend",
			func(c *Config) {
				c.Capture.Ladder = []RungConfig{rung(1.0, time.Second), rung(2.0, time.Second)}
			},
			false,
		},
		{
			"equal fidelity does not descend",
			func(c *Config) {
				c.Capture.Ladder = []RungConfig{rung(1.0, time.Second), rung(1.0, time.Second)}
			},
			false,
		},
		{
			"zero budget",
			func(c *Config) { c.Capture.Ladder = []RungConfig{rung(1.0, 0)} },
			false,
		},
		{
			"negative settle delay",
			func(c *Config) { c.Capture.SettleDelay = Duration(-time.Second) },
			false,
		},
		{
			"page timeout over bound",
			func(c *Config) { c.Capture.PageTimeout = Duration(MaxPageTimeout + time.Second) },
			false,
		},
		{
			"gate rounds over bound",
			func(c *Config) { c.Fonts.GateRounds = MaxGateRounds + 1 },
			false,
		},
		{
			"font family too long",
			func(c *Config) { c.Fonts.Family = strings.Repeat("x", MaxFamilyLength+1) },
			false,
		},
		{
			"model too long",
			func(c *Config) { c.Analyzer.Model = strings.Repeat("m", MaxModelLength+1) },
			false,
		},
		{
			"attempts over bound",
			func(c *Config) { c.Analyzer.MaxAttempts = MaxAttempts + 1 },
			false,
		},
		{
			"date too long",
			func(c *Config) { c.Board.Date = strings.Repeat("d", MaxDateLength+1) },
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidValue) {
				t.Errorf("Validate() error = %v, want ErrInvalidValue", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("empty name returns ErrEmptyConfigName", func(t *testing.T) {
		_, err := Load("")
		if !errors.Is(err, ErrEmptyConfigName) {
			t.Errorf("error = %v, want ErrEmptyConfigName", err)
		}
	})

	t.Run("valid file path loads config", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "test.yaml")
		content := `export:
  action: binary
capture:
  ladder:
    - fidelity: 1.5
      budget: 20s
  settleDelay: 250ms
fonts:
  family: Inter
  gateRounds: 4
  gateInterval: 100ms
analyzer:
  model: gemini-2.5-pro
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("setup: %v", err)
		}

		cfg, err := Load(configPath)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Export.Action != "binary" {
			t.Errorf("Export.Action = %q, want %q", cfg.Export.Action, "binary")
		}
		if len(cfg.Capture.Ladder) != 1 || cfg.Capture.Ladder[0].Fidelity != 1.5 {
			t.Errorf("Capture.Ladder = %+v, want one rung at 1.5", cfg.Capture.Ladder)
		}
		if cfg.Capture.Ladder[0].Budget.Std() != 20*time.Second {
			t.Errorf("rung budget = %s, want 20s", cfg.Capture.Ladder[0].Budget.Std())
		}
		if cfg.Capture.SettleDelay.Std() != 250*time.Millisecond {
			t.Errorf("SettleDelay = %s, want 250ms", cfg.Capture.SettleDelay.Std())
		}
		if cfg.Fonts.Family != "Inter" {
			t.Errorf("Fonts.Family = %q, want %q", cfg.Fonts.Family, "Inter")
		}
		if cfg.Analyzer.Model != "gemini-2.5-pro" {
			t.Errorf("Analyzer.Model = %q, want %q", cfg.Analyzer.Model, "gemini-2.5-pro")
		}

		// Fields the file does not mention keep their defaults.
		if cfg.Capture.PageTimeout.Std() != 30*time.Second {
			t.Errorf("PageTimeout = %s, want default 30s", cfg.Capture.PageTimeout.Std())
		}
		if cfg.Analyzer.MaxAttempts != 3 {
			t.Errorf("MaxAttempts = %d, want default 3", cfg.Analyzer.MaxAttempts)
		}
		if cfg.Board.Date != "auto" {
			t.Errorf("Board.Date = %q, want default %q", cfg.Board.Date, "auto")
		}
	})

	t.Run("nonexistent file path returns ErrConfigNotFound", func(t *testing.T) {
		_, err := Load("/nonexistent/path/config.yaml")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("invalid YAML returns ErrConfigParse", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "invalid.yaml")
		if err := os.WriteFile(configPath, []byte("export: [unclosed"), 0600); err != nil {
			t.Fatalf("setup: %v", err)
		}

		_, err := Load(configPath)
		if !errors.Is(err, ErrConfigParse) {
			t.Errorf("error = %v, want ErrConfigParse", err)
		}
	})

	t.Run("unknown field returns ErrConfigParse in strict mode", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "typo.yaml")
		if err := os.WriteFile(configPath, []byte("exprot:\n  action: save\n"), 0600); err != nil {
			t.Fatalf("setup: %v", err)
		}

		_, err := Load(configPath)
		if !errors.Is(err, ErrConfigParse) {
			t.Errorf("error = %v, want ErrConfigParse", err)
		}
	})

	t.Run("out-of-bounds value returns ErrInvalidValue", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "bad.yaml")
		if err := os.WriteFile(configPath, []byte("export:\n  action: fax\n"), 0600); err != nil {
			t.Fatalf("setup: %v", err)
		}

		_, err := Load(configPath)
		if !errors.Is(err, ErrInvalidValue) {
			t.Errorf("error = %v, want ErrInvalidValue", err)
		}
	})

	t.Run("config name resolves in current directory", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "work.yaml"), []byte("export:\n  action: save\n"), 0600); err != nil {
			t.Fatalf("setup: %v", err)
		}

		originalWd, err := os.Getwd()
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
		defer os.Chdir(originalWd)
		if err := os.Chdir(dir); err != nil {
			t.Fatalf("setup: %v", err)
		}

		cfg, err := Load("work")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Export.Action != "save" {
			t.Errorf("Export.Action = %q, want %q", cfg.Export.Action, "save")
		}
	})

	t.Run("unresolvable name lists tried paths", func(t *testing.T) {
		_, err := Load("definitely-not-a-docmap-config")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("error = %v, want ErrConfigNotFound", err)
		}
		if !strings.Contains(err.Error(), "tried") {
			t.Errorf("error %q does not list tried paths", err)
		}
	})
}

func TestDiscover(t *testing.T) {
	chdir := func(t *testing.T, dir string) {
		t.Helper()
		originalWd, err := os.Getwd()
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
		t.Cleanup(func() { os.Chdir(originalWd) })
		if err := os.Chdir(dir); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	t.Run("finds docmap.yaml in working directory", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "docmap.yaml"), []byte("export:\n  action: save\n"), 0600); err != nil {
			t.Fatalf("setup: %v", err)
		}
		chdir(t, dir)

		path, found := Discover()
		if !found {
			t.Fatal("Discover() found nothing")
		}
		if path != "docmap.yaml" {
			t.Errorf("path = %q, want %q", path, "docmap.yaml")
		}
	})

	t.Run("falls back to docmap.yml", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "docmap.yml"), []byte("export:\n  action: save\n"), 0600); err != nil {
			t.Fatalf("setup: %v", err)
		}
		chdir(t, dir)

		path, found := Discover()
		if !found {
			t.Fatal("Discover() found nothing")
		}
		if path != "docmap.yml" {
			t.Errorf("path = %q, want %q", path, "docmap.yml")
		}
	})
}

func TestWrite(t *testing.T) {
	t.Run("writes a loadable default", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "docmap.yaml")

		if err := Write(path); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() on written config: %v", err)
		}
		want := Default()
		if cfg.Export.Action != want.Export.Action {
			t.Errorf("Export.Action = %q, want %q", cfg.Export.Action, want.Export.Action)
		}
		if len(cfg.Capture.Ladder) != len(want.Capture.Ladder) {
			t.Errorf("ladder has %d rungs, want %d", len(cfg.Capture.Ladder), len(want.Capture.Ladder))
		}
		if cfg.Capture.SettleDelay != want.Capture.SettleDelay {
			t.Errorf("SettleDelay = %s, want %s", cfg.Capture.SettleDelay.Std(), want.Capture.SettleDelay.Std())
		}
		if cfg.Analyzer.Model != want.Analyzer.Model {
			t.Errorf("Analyzer.Model = %q, want %q", cfg.Analyzer.Model, want.Analyzer.Model)
		}
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "docmap.yaml")
		if err := Write(path); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		if err := Write(path); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("second Write() error = %v, want ErrInvalidValue", err)
		}
	})

	t.Run("empty path returns ErrEmptyConfigName", func(t *testing.T) {
		if err := Write(""); !errors.Is(err, ErrEmptyConfigName) {
			t.Errorf("Write(\"\") error = %v, want ErrEmptyConfigName", err)
		}
	})
}
