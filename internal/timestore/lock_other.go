//go:build !linux && !darwin && !freebsd && !openbsd && !netbsd && !dragonfly && !windows

package timestore

import "os"

// lockFile is a no-op where advisory locks are unavailable; FileStore still
// serializes writers within the process.
func lockFile(_ *os.File) (unlock func(), err error) {
	return func() {}, nil
}
