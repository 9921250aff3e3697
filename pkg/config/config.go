package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/buildinfo"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/codec"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/flagparse"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/outputarchive"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/plog"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/util"
)

// ConfigFileName is the name of the optional configuration file looked up in
// the working directory.
const ConfigFileName = "pgl-imagecompressor.config.json"

// DefaultOutputParent is the directory, relative to the working directory,
// that holds the randomly named default output directories.
const DefaultOutputParent = "executions"

type CompressionConfig struct {
	Quality      int `json:"quality" comment:"JPEG quality from 1 (smallest) to 100 (best). Default is 80."`
	MaxDimension int `json:"maxDimension" comment:"Downscale images so the longest edge is at most this many pixels. 0 disables resizing."`
}

type ArchiveConfig struct {
	Enabled bool                 `json:"enabled"`
	Format  outputarchive.Format `json:"format"`
	Level   outputarchive.Level  `json:"level"`
}

type RuntimeConfig struct {
	DryRun bool
	Quiet  bool
}

type Config struct {
	Version     string            `json:"version"`
	InputPath   string            `json:"-"` // Never added to config file
	OutputPath  string            `json:"-"` // Never added to config file
	Runtime     RuntimeConfig     `json:"-"` // Never added to config file
	LogLevel    string            `json:"logLevel"`
	Metrics     bool              `json:"metrics"`
	Compression CompressionConfig `json:"compression"`
	Archive     ArchiveConfig     `json:"archive"`
}

// NewDefault creates and returns a Config struct with sensible default values.
func NewDefault() Config {
	return Config{
		Version:    buildinfo.Version,
		InputPath:  "",     // Always supplied on the command line.
		OutputPath: "",     // Filled with DefaultOutputPath when no -out-path is given.
		LogLevel:   "warn", // Per-file failures are still visible at this level.
		Metrics:    true,
		Compression: CompressionConfig{
			Quality:      codec.DefaultQuality,
			MaxDimension: 0,
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Format:  outputarchive.Zip,
			Level:   outputarchive.Default,
		},
	}
}

// DefaultOutputPath returns "<base>/executions/<id>" where id is a random
// UUIDv4 without dashes. A new id is generated on every call.
func DefaultOutputPath(base string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return filepath.Join(base, DefaultOutputParent, id)
}

// Load attempts to load a configuration from "pgl-imagecompressor.config.json" in dir.
// If the file doesn't exist, it returns the default config without an error.
// If the file exists but fails to parse, it returns an error and a zero-value config.
func Load(dir string) (Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return Config{}, fmt.Errorf("could not determine absolute path for load directory %s: %w", dir, err)
	}

	configPath := filepath.Join(absDir, ConfigFileName)

	file, err := os.Open(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDefault(), nil // Config file doesn't exist, which is a normal case.
		}
		return Config{}, fmt.Errorf("error opening config file %s: %w", configPath, err)
	}
	defer file.Close()

	plog.Info("Loading configuration", "path", configPath)
	// Start with default values so fields missing from the file keep their defaults.
	config := NewDefault()
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return Config{}, fmt.Errorf("error parsing config file %s: %w", configPath, err)
	}

	config.Version = buildinfo.Version
	return config, nil
}

// Generate creates or overwrites the config file in dir.
func Generate(dir string, configToGenerate Config) error {
	configPath := filepath.Join(dir, ConfigFileName)
	jsonData, err := json.MarshalIndent(configToGenerate, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config to JSON: %w", err)
	}

	if err := os.WriteFile(configPath, jsonData, util.UserWritableFilePerms); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	plog.Info("Successfully saved config file", "path", configPath)
	return nil
}

// Validate checks the configuration for logical errors and resolves the input
// and output paths to absolute form. Existence of the paths is left to preflight.
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return fmt.Errorf("input path cannot be empty")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("output path cannot be empty")
	}

	var err error
	c.InputPath, err = util.ResolvePath(c.InputPath)
	if err != nil {
		return fmt.Errorf("could not resolve input path: %w", err)
	}
	c.OutputPath, err = util.ResolvePath(c.OutputPath)
	if err != nil {
		return fmt.Errorf("could not resolve output path: %w", err)
	}

	if !plog.IsValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log level %q. Must be 'debug', 'notice', 'info', 'warn', or 'error'", c.LogLevel)
	}

	if c.Compression.Quality < codec.MinQuality || c.Compression.Quality > codec.MaxQuality {
		return fmt.Errorf("compression.quality must be between %d and %d, got %d", codec.MinQuality, codec.MaxQuality, c.Compression.Quality)
	}
	if c.Compression.MaxDimension < 0 {
		return fmt.Errorf("compression.maxDimension cannot be negative")
	}

	if _, err := outputarchive.ParseFormat(string(c.Archive.Format)); err != nil {
		return err
	}
	if _, err := outputarchive.ParseLevel(string(c.Archive.Level)); err != nil {
		return err
	}
	return nil
}

// LogSummary prints a user-friendly summary of the configuration.
func (c *Config) LogSummary() {
	logArgs := []interface{}{
		"log_level", c.LogLevel,
		"input", c.InputPath,
		"output", c.OutputPath,
		"dry_run", c.Runtime.DryRun,
		"metrics", c.Metrics,
		"quality", c.Compression.Quality,
	}
	if c.Compression.MaxDimension > 0 {
		logArgs = append(logArgs, "max_dimension", c.Compression.MaxDimension)
	}
	if c.Archive.Enabled {
		archiveSummary := fmt.Sprintf("enabled (f:%s l:%s)", c.Archive.Format, c.Archive.Level)
		logArgs = append(logArgs, "archive", archiveSummary)
	}
	plog.Info("Configuration loaded", logArgs...)
}

// MergeConfigWithFlags overlays the configuration values from flags on top of a base
// configuration. It iterates over the setFlags map, which contains only the flags
// explicitly provided by the user on the command line.
func MergeConfigWithFlags(command flagparse.Command, base Config, setFlags map[string]any) Config {
	merged := base

	for name, value := range setFlags {
		switch name {
		case "input", "out-path":
			// Paths are per run and never written by init.
			if command != flagparse.Compress {
				continue
			}
			if name == "input" {
				merged.InputPath = value.(string)
			} else {
				merged.OutputPath = value.(string)
			}
		case "logger-level":
			merged.LogLevel = value.(string)
		case "metrics":
			merged.Metrics = value.(bool)
		case "dry-run":
			merged.Runtime.DryRun = value.(bool)
		case "quiet":
			merged.Runtime.Quiet = value.(bool)
		case "quality":
			merged.Compression.Quality = value.(int)
		case "max-dimension":
			merged.Compression.MaxDimension = value.(int)
		case "archive":
			merged.Archive.Enabled = value.(bool)
		case "archive-format":
			merged.Archive.Format = outputarchive.Format(value.(string))
		case "archive-level":
			merged.Archive.Level = outputarchive.Level(value.(string))
		case "force", "default":
			// init switches, not part of the config.
		default:
			plog.Debug("unhandled flag in MergeConfigWithFlags", "flag", name)
		}
	}
	return merged
}
