//go:build !windows

package preflight

import (
	"golang.org/x/sys/unix"
)

// platformCheckReadable asks the kernel whether the current user may list and
// traverse the directory. This catches permission problems before os.ReadDir
// would.
func platformCheckReadable(path string) error {
	return unix.Access(path, unix.R_OK|unix.X_OK)
}

// checkVolumeExists is a no-op on Unix-like systems; every path hangs off "/".
func checkVolumeExists(string) error {
	return nil
}
