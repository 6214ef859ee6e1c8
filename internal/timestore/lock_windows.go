//go:build windows

package timestore

import (
	"os"

	"golang.org/x/sys/windows"
)

// lockFile acquires an exclusive lock on the given file.
func lockFile(f *os.File) (unlock func(), err error) {
	ol := new(windows.Overlapped)
	h := windows.Handle(f.Fd())
	if err := windows.LockFileEx(h, windows.LOCKFILE_EXCLUSIVE_LOCK, 0, 1, 0, ol); err != nil {
		return nil, err
	}
	return func() {
		_ = windows.UnlockFileEx(h, 0, 1, 0, ol)
	}, nil
}
