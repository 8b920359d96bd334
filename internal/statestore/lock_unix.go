//go:build linux || darwin

package statestore

import (
	"os"

	"golang.org/x/sys/unix"
)

// flockExclusive takes an exclusive advisory lock on f, blocking until it
// is available. It mirrors the Python original's `fcntl.flock(f, LOCK_EX)`.
func flockExclusive(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX)
}

// flockRelease releases the advisory lock taken by flockExclusive.
func flockRelease(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
