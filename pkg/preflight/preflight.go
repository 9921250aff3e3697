// Package preflight holds the checks that run before any image is touched.
// Both checks are fatal: a failure aborts the run before the per-file pass.
package preflight

import (
	"errors"
	"fmt"
	"os"

	"github.com/paulschiretz/pgl-imagecompressor/pkg/plog"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/util"
)

var (
	// ErrInputInaccessible is returned when the input directory cannot be read.
	ErrInputInaccessible = errors.New("input directory is not accessible")
	// ErrOutputNotDir is returned when the output path exists but is not a directory.
	ErrOutputNotDir = errors.New("output path exists but is not a directory")
)

// CheckInputAccessible validates that inputPath exists, is a directory and can
// be listed by the current user.
func CheckInputAccessible(inputPath string) error {
	info, err := os.Stat(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s does not exist", ErrInputInaccessible, inputPath)
		}
		return fmt.Errorf("%w: cannot stat %s: %v", ErrInputInaccessible, inputPath, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInputInaccessible, inputPath)
	}

	if err := platformCheckReadable(inputPath); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInputInaccessible, inputPath, err)
	}
	return nil
}

// EnsureOutputDir creates outputPath and any missing parents. An existing
// directory is accepted as-is so repeated runs against the same output succeed.
func EnsureOutputDir(outputPath string) error {
	if err := checkVolumeExists(outputPath); err != nil {
		return err
	}

	info, err := os.Stat(outputPath)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrOutputNotDir, outputPath)
		}
		plog.Info("Output directory exists. Continuing...", "path", outputPath)
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("cannot access output directory %s: %w", outputPath, err)
	}

	if err := os.MkdirAll(outputPath, util.UserWritableDirPerms); err != nil {
		// Another process may have created it between Stat and MkdirAll.
		if info, statErr := os.Stat(outputPath); statErr == nil && info.IsDir() {
			return nil
		}
		return fmt.Errorf("failed to create output directory %s: %w", outputPath, err)
	}
	plog.Info("Created output directory", "path", outputPath)
	return nil
}
