//go:build windows

package security

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// readVolumeID returns the serial number of the system drive.
func readVolumeID() (string, error) {
	drive := os.Getenv("SystemDrive")
	if drive == "" {
		drive = "C:"
	}
	root, err := windows.UTF16PtrFromString(drive + `\`)
	if err != nil {
		return "", err
	}

	var serial uint32
	if err := windows.GetVolumeInformation(root, nil, 0, &serial, nil, nil, nil, 0); err != nil {
		return "", fmt.Errorf("GetVolumeInformation %s: %w", drive, err)
	}
	return fmt.Sprintf("%08x", serial), nil
}
