package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/paulschiretz/pgl-imagecompressor/pkg/buildinfo"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/codec"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/config"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/engine"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/flagparse"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/imagecompress"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/outputarchive"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/planner"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/plog"
)

// RunCompress handles the logic for the compress command.
func RunCompress(ctx context.Context, flagMap map[string]interface{}) error {
	input, ok := flagMap["input"].(string)
	if !ok || input == "" {
		return fmt.Errorf("an input path is required to run a compression")
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("could not determine working directory: %w", err)
	}

	// Load config from the working directory, or use defaults if not found.
	loadedConfig, err := config.Load(workDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Merge the flag values over the loaded config to get the final run config.
	runConfig := config.MergeConfigWithFlags(flagparse.Compress, loadedConfig, flagMap)
	if runConfig.OutputPath == "" {
		runConfig.OutputPath = config.DefaultOutputPath(workDir)
	}

	// CRITICAL: Validate the config for the run
	if err := runConfig.Validate(); err != nil {
		return err
	}

	// Set the global log level based on the final configuration.
	plog.SetLevel(plog.LevelFromString(runConfig.LogLevel))
	plog.SetQuiet(runConfig.Runtime.Quiet)

	runConfig.LogSummary()

	compressPlan, err := planner.GenerateCompressPlan(runConfig)
	if err != nil {
		return err
	}

	encoder := codec.NewJPEGEncoder(compressPlan.Codec)
	encOpts := encoder.Options()
	plog.Debug("JPEG encoder ready", "quality", encOpts.Quality, "max_dimension", encOpts.MaxDimension)

	runner := engine.NewRunner(
		imagecompress.NewCompressor(encoder, compressPlan.Compress),
		outputarchive.NewArchiver(),
	)

	startTime := time.Now()
	summary, err := runner.ExecuteCompress(ctx, runConfig.InputPath, runConfig.OutputPath, compressPlan)
	duration := time.Since(startTime).Round(time.Millisecond)
	if err != nil {
		return err // The error will be logged with full details by main()
	}
	plog.Info(buildinfo.Name+" finished successfully.",
		"duration", duration,
		"output", runConfig.OutputPath,
		"compressed", summary.Compressed,
		"failed", summary.Failed,
	)
	return nil
}
