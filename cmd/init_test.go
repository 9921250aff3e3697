package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulschiretz/pgl-imagecompressor/pkg/config"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/plog"
)

func TestPromptForConfirmation(t *testing.T) {
	// Helper to mock stdin/stdout and run the function
	mockPrompt := func(input string, prompt string, defaultYes bool) (bool, string) {
		rIn, wIn, _ := os.Pipe()
		rOut, wOut, _ := os.Pipe()

		origStdin := os.Stdin
		origStdout := os.Stdout
		defer func() {
			os.Stdin = origStdin
			os.Stdout = origStdout
		}()

		os.Stdin = rIn
		os.Stdout = wOut

		go func() {
			_, _ = wIn.WriteString(input)
			_ = wIn.Close()
		}()

		result := PromptForConfirmation(prompt, defaultYes)

		_ = wOut.Close()
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, rOut)

		return result, buf.String()
	}

	tests := []struct {
		name       string
		input      string
		prompt     string
		defaultYes bool
		want       bool
		wantPrompt string
	}{
		{"Explicit Yes", "y\n", "Continue?", false, true, "Continue? [y/N]: "},
		{"Explicit No", "n\n", "Continue?", true, false, "Continue? [Y/n]: "},
		{"Default Yes (Empty)", "\n", "Sure?", true, true, "Sure? [Y/n]: "},
		{"Default No (Empty)", "\n", "Sure?", false, false, "Sure? [y/N]: "},
		{"Case Insensitive", "YES\n", "Go?", false, true, "Go? [y/N]: "},
		{"Whitespace Handling", "   y   \n", "Clean?", false, true, "Clean? [y/N]: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, output := mockPrompt(tt.input, tt.prompt, tt.defaultYes)
			if got != tt.want {
				t.Errorf("PromptForConfirmation() = %v, want %v", got, tt.want)
			}
			if !strings.Contains(output, tt.wantPrompt) {
				t.Errorf("Output = %q, want substring %q", output, tt.wantPrompt)
			}
		})
	}
}

func readConfigFile(t *testing.T, dir string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, config.ConfigFileName))
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("config file is not valid JSON: %v", err)
	}
	return raw
}

func TestInitConfig(t *testing.T) {
	var logBuf bytes.Buffer
	plog.SetOutput(&logBuf)
	originalLevel := plog.GetLevel()
	t.Cleanup(func() {
		plog.SetOutput(os.Stderr)
		plog.SetLevel(originalLevel)
	})

	t.Run("Writes defaults merged with flags", func(t *testing.T) {
		dir := t.TempDir()
		err := initConfig(dir, map[string]interface{}{"quality": 65, "archive": true})
		if err != nil {
			t.Fatalf("initConfig failed: %v", err)
		}

		cfg, err := config.Load(dir)
		if err != nil {
			t.Fatalf("failed to load generated config: %v", err)
		}
		if cfg.Compression.Quality != 65 {
			t.Errorf("expected quality 65, got %d", cfg.Compression.Quality)
		}
		if !cfg.Archive.Enabled {
			t.Error("expected archive to be enabled")
		}
		raw := readConfigFile(t, dir)
		for _, key := range []string{"inputPath", "outputPath", "InputPath", "OutputPath"} {
			if _, ok := raw[key]; ok {
				t.Errorf("expected %q not to be persisted", key)
			}
		}
	})

	t.Run("Preserves existing settings", func(t *testing.T) {
		dir := t.TempDir()
		if err := initConfig(dir, map[string]interface{}{"quality": 50}); err != nil {
			t.Fatalf("first init failed: %v", err)
		}
		if err := initConfig(dir, map[string]interface{}{"max-dimension": 1024}); err != nil {
			t.Fatalf("second init failed: %v", err)
		}

		cfg, err := config.Load(dir)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if cfg.Compression.Quality != 50 {
			t.Errorf("expected quality 50 to be preserved, got %d", cfg.Compression.Quality)
		}
		if cfg.Compression.MaxDimension != 1024 {
			t.Errorf("expected max dimension 1024, got %d", cfg.Compression.MaxDimension)
		}
	})

	t.Run("Default with force resets settings", func(t *testing.T) {
		dir := t.TempDir()
		if err := initConfig(dir, map[string]interface{}{"quality": 50}); err != nil {
			t.Fatalf("first init failed: %v", err)
		}
		if err := initConfig(dir, map[string]interface{}{"default": true, "force": true}); err != nil {
			t.Fatalf("forced init failed: %v", err)
		}

		cfg, err := config.Load(dir)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if cfg.Compression.Quality != config.NewDefault().Compression.Quality {
			t.Errorf("expected default quality, got %d", cfg.Compression.Quality)
		}
	})

	t.Run("Dry run writes nothing", func(t *testing.T) {
		dir := t.TempDir()
		if err := initConfig(dir, map[string]interface{}{"dry-run": true}); err != nil {
			t.Fatalf("initConfig failed: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, config.ConfigFileName)); !os.IsNotExist(err) {
			t.Errorf("expected no config file in dry run, stat err: %v", err)
		}
	})

	t.Run("Invalid quality is rejected", func(t *testing.T) {
		dir := t.TempDir()
		if err := initConfig(dir, map[string]interface{}{"quality": 0}); err == nil {
			t.Fatal("expected an error for quality 0")
		}
		if _, err := os.Stat(filepath.Join(dir, config.ConfigFileName)); !os.IsNotExist(err) {
			t.Errorf("expected no config file after validation failure, stat err: %v", err)
		}
	})
}
