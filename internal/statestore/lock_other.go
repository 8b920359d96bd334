//go:build !linux && !darwin

package statestore

import "os"

// flockExclusive is a no-op on platforms without flock semantics; callers
// still serialize through the file's rename-based atomic replace, so this
// only weakens protection against a second concurrent writer on the same
// host, which the supported CI runners (Linux/macOS) do not need.
func flockExclusive(f *os.File) error { return nil }

func flockRelease(f *os.File) error { return nil }
