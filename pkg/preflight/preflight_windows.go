//go:build windows

package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// platformCheckReadable opens the directory to confirm it can be listed.
func platformCheckReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}

// checkVolumeExists verifies that the drive or network share root for a given
// path exists. For example, for "Z:\images", it checks if "Z:\" exists.
func checkVolumeExists(path string) error {
	volume := filepath.VolumeName(path)
	if volume == "" {
		return nil
	}

	checkVol := volume
	if !strings.HasSuffix(checkVol, string(filepath.Separator)) {
		checkVol += string(filepath.Separator)
	}
	checkVol = filepath.Clean(checkVol)

	if _, err := os.Stat(checkVol); os.IsNotExist(err) {
		return fmt.Errorf("volume root does not exist: %s. Ensure the drive is connected", checkVol)
	}
	return nil
}
