package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulschiretz/pgl-imagecompressor/pkg/buildinfo"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/config"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/flagparse"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/plog"
)

// RunInit handles the logic for the 'init' command. It writes the config file
// into the working directory, merging flags over an existing file unless
// -default is given.
func RunInit(ctx context.Context, flagMap map[string]interface{}) error {
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("could not determine working directory: %w", err)
	}
	return initConfig(workDir, flagMap)
}

func initConfig(dir string, flagMap map[string]interface{}) error {
	var baseConfig config.Config

	initDefault := false
	if v, ok := flagMap["default"]; ok {
		initDefault = v.(bool)
	}

	if initDefault {
		force := false
		if f, ok := flagMap["force"]; ok {
			force = f.(bool)
		}

		if !force {
			configPath := filepath.Join(dir, config.ConfigFileName)
			if _, err := os.Stat(configPath); err == nil {
				fmt.Printf("WARNING: Configuration file already exists at %s.\n", configPath)
				fmt.Printf("Using -default will overwrite it with default values. All custom settings will be lost.\n")
				if !PromptForConfirmation("Are you sure you want to continue?", false) {
					plog.Info(buildinfo.Name + " init operation canceled.")
					return nil
				}
			}
		}
		baseConfig = config.NewDefault()
	} else {
		// Try to load existing config to preserve settings.
		// Note: config.Load returns NewDefault() if the file simply doesn't exist.
		var err error
		baseConfig, err = config.Load(dir)
		if err != nil {
			plog.Warn("Could not load existing configuration, starting with defaults.", "reason", err)
			baseConfig = config.NewDefault()
		}
	}

	runConfig := config.MergeConfigWithFlags(flagparse.Init, baseConfig, flagMap)

	// Paths are per run; fill placeholders so the remaining fields can be validated.
	check := runConfig
	check.InputPath, check.OutputPath = dir, dir
	if err := check.Validate(); err != nil {
		return err
	}

	plog.SetLevel(plog.LevelFromString(runConfig.LogLevel))
	plog.SetQuiet(runConfig.Runtime.Quiet)

	if runConfig.Runtime.DryRun {
		plog.Info("[DRY RUN] Initialization complete. No changes made.", "dir", dir)
		return nil
	}

	if err := config.Generate(dir, runConfig); err != nil {
		return fmt.Errorf("failed to generate config file: %w", err)
	}
	return nil
}

// PromptForConfirmation prompts the user for a yes/no response.
func PromptForConfirmation(prompt string, defaultYes bool) bool {
	suffix := "[y/N]"
	if defaultYes {
		suffix = "[Y/n]"
	}
	fmt.Printf("%s %s: ", prompt, suffix)

	var response string
	_, _ = fmt.Scanln(&response)
	response = strings.ToLower(strings.TrimSpace(response))

	if response == "" {
		return defaultYes
	}
	return response == "y" || response == "yes"
}
