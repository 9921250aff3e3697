package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/paulschiretz/pgl-imagecompressor/pkg/flagparse"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/outputarchive"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/util"
)

func TestConfig_Validate(t *testing.T) {
	// Helper to get a valid base config for testing
	newValidConfig := func(t *testing.T) Config {
		cfg := NewDefault()
		cfg.InputPath = t.TempDir()
		cfg.OutputPath = filepath.Join(t.TempDir(), "out")
		return cfg
	}

	t.Run("Valid Config", func(t *testing.T) {
		cfg := newValidConfig(t)
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected valid config to pass validation, but got error: %v", err)
		}
	})

	t.Run("Relative Paths Are Resolved", func(t *testing.T) {
		testChdir(t, t.TempDir())
		cfg := newValidConfig(t)
		cfg.InputPath = "images"
		cfg.OutputPath = "out"
		if err := cfg.Validate(); err != nil {
			t.Fatalf("expected relative paths to validate, but got error: %v", err)
		}
		if !filepath.IsAbs(cfg.InputPath) || !filepath.IsAbs(cfg.OutputPath) {
			t.Errorf("expected absolute paths, got %q and %q", cfg.InputPath, cfg.OutputPath)
		}
	})

	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"Empty Input Path", func(c *Config) { c.InputPath = "" }},
		{"Empty Output Path", func(c *Config) { c.OutputPath = "" }},
		{"Invalid Log Level", func(c *Config) { c.LogLevel = "verbose" }},
		{"Quality Too Low", func(c *Config) { c.Compression.Quality = 0 }},
		{"Quality Too High", func(c *Config) { c.Compression.Quality = 101 }},
		{"Negative Max Dimension", func(c *Config) { c.Compression.MaxDimension = -1 }},
		{"Invalid Archive Format", func(c *Config) { c.Archive.Format = "rar" }},
		{"Invalid Archive Level", func(c *Config) { c.Archive.Level = "ultra" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := newValidConfig(t)
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error, but got nil")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("No Config File", func(t *testing.T) {
		cfg, err := Load(t.TempDir())
		if err != nil {
			t.Fatalf("expected no error when config file is missing, but got: %v", err)
		}
		if cfg.LogLevel != "warn" || cfg.Compression.Quality != 80 || !cfg.Metrics {
			t.Errorf("expected defaults, got %+v", cfg)
		}
	})

	t.Run("Valid Config File", func(t *testing.T) {
		tempDir := t.TempDir()
		content := `{"compression": {"quality": 55}, "archive": {"enabled": true, "format": "tar.zst"}}`
		if err := os.WriteFile(filepath.Join(tempDir, ConfigFileName), []byte(content), util.UserWritableFilePerms); err != nil {
			t.Fatalf("failed to write test config file: %v", err)
		}

		cfg, err := Load(tempDir)
		if err != nil {
			t.Fatalf("expected no error when loading valid config, but got: %v", err)
		}
		if cfg.Compression.Quality != 55 {
			t.Errorf("expected quality 55, got %d", cfg.Compression.Quality)
		}
		if !cfg.Archive.Enabled || cfg.Archive.Format != outputarchive.TarZst {
			t.Errorf("expected tar.zst archive enabled, got %+v", cfg.Archive)
		}
		// Values not in the file keep their defaults.
		if cfg.LogLevel != "warn" || cfg.Archive.Level != outputarchive.Default {
			t.Errorf("expected untouched defaults, got log=%q level=%q", cfg.LogLevel, cfg.Archive.Level)
		}
	})

	t.Run("Malformed Config File", func(t *testing.T) {
		tempDir := t.TempDir()
		content := `{"compression": {"quality": 55},}` // Extra comma
		if err := os.WriteFile(filepath.Join(tempDir, ConfigFileName), []byte(content), util.UserWritableFilePerms); err != nil {
			t.Fatalf("failed to write test config file: %v", err)
		}
		if _, err := Load(tempDir); err == nil {
			t.Fatal("expected an error when loading malformed config, but got nil")
		}
	})

	t.Run("Invalid Archive Format In File", func(t *testing.T) {
		tempDir := t.TempDir()
		content := `{"archive": {"format": "rar"}}`
		if err := os.WriteFile(filepath.Join(tempDir, ConfigFileName), []byte(content), util.UserWritableFilePerms); err != nil {
			t.Fatalf("failed to write test config file: %v", err)
		}
		if _, err := Load(tempDir); err == nil {
			t.Fatal("expected an error for an invalid archive format, but got nil")
		}
	})
}

func TestGenerate_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := NewDefault()
	cfg.InputPath = "/never/persisted"
	cfg.Compression.MaxDimension = 1920

	if err := Generate(dir, cfg); err != nil {
		t.Fatalf("Generate returned an error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ConfigFileName))
	if err != nil {
		t.Fatalf("failed to read generated config: %v", err)
	}
	if strings.Contains(string(data), "/never/persisted") {
		t.Errorf("expected input path not to be written to the config file, got: %s", data)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned an error: %v", err)
	}
	if loaded.Compression.MaxDimension != 1920 {
		t.Errorf("expected maxDimension 1920 after reload, got %d", loaded.Compression.MaxDimension)
	}
}

func TestMergeConfigWithFlags(t *testing.T) {
	base := NewDefault()
	flags := map[string]any{
		"input":          "in",
		"out-path":       "out",
		"logger-level":   "debug",
		"metrics":        false,
		"dry-run":        true,
		"quiet":          true,
		"quality":        40,
		"max-dimension":  800,
		"archive":        true,
		"archive-format": "tar.gz",
		"archive-level":  "best",
	}

	t.Run("Compress applies every flag", func(t *testing.T) {
		merged := MergeConfigWithFlags(flagparse.Compress, base, flags)

		if merged.InputPath != "in" || merged.OutputPath != "out" {
			t.Errorf("expected paths from flags, got %q and %q", merged.InputPath, merged.OutputPath)
		}
		if merged.LogLevel != "debug" || merged.Metrics || !merged.Runtime.DryRun || !merged.Runtime.Quiet {
			t.Errorf("unexpected runtime values: %+v", merged)
		}
		if merged.Compression.Quality != 40 || merged.Compression.MaxDimension != 800 {
			t.Errorf("unexpected compression values: %+v", merged.Compression)
		}
		if !merged.Archive.Enabled || merged.Archive.Format != outputarchive.TarGz || merged.Archive.Level != outputarchive.Best {
			t.Errorf("unexpected archive values: %+v", merged.Archive)
		}
		if base.Compression.Quality != 80 {
			t.Error("expected base config to be left untouched")
		}
	})

	t.Run("Init ignores per-run paths", func(t *testing.T) {
		merged := MergeConfigWithFlags(flagparse.Init, base, flags)
		if merged.InputPath != "" || merged.OutputPath != "" {
			t.Errorf("expected paths to stay empty for init, got %q and %q", merged.InputPath, merged.OutputPath)
		}
		if merged.Compression.Quality != 40 {
			t.Errorf("expected quality to be merged for init, got %d", merged.Compression.Quality)
		}
	})
}

func TestDefaultOutputPath(t *testing.T) {
	base := t.TempDir()
	first := DefaultOutputPath(base)
	second := DefaultOutputPath(base)

	if first == second {
		t.Errorf("expected a fresh id on every call, got %q twice", first)
	}
	if filepath.Dir(first) != filepath.Join(base, DefaultOutputParent) {
		t.Errorf("expected output under %s, got %s", filepath.Join(base, DefaultOutputParent), first)
	}
	if !regexp.MustCompile(`^[0-9a-f]{32}$`).MatchString(filepath.Base(first)) {
		t.Errorf("expected a 32 char hex id, got %q", filepath.Base(first))
	}
}

// testChdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func testChdir(t *testing.T, dir string) {
	t.Helper()
	oldDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldDir); err != nil {
			t.Fatal(err)
		}
	})
}
