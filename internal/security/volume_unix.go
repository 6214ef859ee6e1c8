//go:build linux || darwin || freebsd

package security

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// readVolumeID returns the filesystem id of the root volume.
func readVolumeID() (string, error) {
	var st unix.Statfs_t
	if err := unix.Statfs("/", &st); err != nil {
		return "", fmt.Errorf("statfs /: %w", err)
	}
	if st.Fsid.Val[0] == 0 && st.Fsid.Val[1] == 0 {
		return "", fmt.Errorf("root volume reports no filesystem id")
	}
	return fmt.Sprintf("%08x%08x", uint32(st.Fsid.Val[0]), uint32(st.Fsid.Val[1])), nil
}
