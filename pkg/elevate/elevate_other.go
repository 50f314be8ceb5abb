//go:build !windows

package elevate

import "os"

// IsElevated reports whether the process runs as root.
func IsElevated() (bool, error) {
	return os.Geteuid() == 0, nil
}

func Relaunch([]string) error { return ErrUnsupported }

// PatchArgs is a no-op outside Windows.
func PatchArgs() {}
