//go:build !linux && !darwin && !freebsd && !windows

package security

import (
	"fmt"
	"runtime"
)

func readVolumeID() (string, error) {
	return "", fmt.Errorf("volume id not supported on %s", runtime.GOOS)
}
