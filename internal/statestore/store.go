package statestore

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store mediates all reads and writes of a single swarm_state.json file,
// taking the exclusive advisory lock for the duration of a read-modify-
// write cycle.
type Store struct {
	Path string
	// HMACKey, when non-empty, is used to recompute state_hmac each time
	// WithLock persists a new state. Neither Load nor WithLock verifies
	// the stored state_hmac; the validator does that.
	HMACKey []byte
}

// New returns a Store bound to path.
func New(path string, hmacKey []byte) *Store {
	return &Store{Path: path, HMACKey: hmacKey}
}

// Load reads and decodes the state file without taking any lock — used
// by read-only commands (validate, policy-guard in working-tree mode).
func (s *Store) Load() (*State, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read state file %s: %w", s.Path, err)
	}
	return Decode(raw)
}

// WithLock opens the state file for read-write, takes the exclusive
// advisory lock, loads the current state, invokes fn with it, and if fn
// returns a non-nil *State, persists it atomically (recomputing its
// HMAC first) before releasing the lock. If fn returns a nil *State and
// no error, nothing is written — used for dry-run previews.
func (s *Store) WithLock(fn func(current *State) (*State, error)) (*State, error) {
	f, err := os.OpenFile(s.Path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open state file %s: %w", s.Path, err)
	}
	defer f.Close()

	if err := flockExclusive(f); err != nil {
		return nil, fmt.Errorf("lock state file %s: %w", s.Path, err)
	}
	defer flockRelease(f)

	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read state file %s: %w", s.Path, err)
	}
	current, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode state file %s: %w", s.Path, err)
	}

	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return current, nil
	}

	if len(s.HMACKey) > 0 {
		mac, err := ComputeHMAC(next, s.HMACKey)
		if err != nil {
			return nil, fmt.Errorf("compute state hmac: %w", err)
		}
		next.StateHMAC = mac
	}

	if err := s.atomicReplace(next); err != nil {
		return nil, err
	}
	return next, nil
}

// atomicReplace writes a `.bak` copy of the current on-disk file, then
// atomically replaces it with the rendering of next via a temp file +
// rename, fsyncing both the temp file and the containing directory.
func (s *Store) atomicReplace(next *State) error {
	dir := filepath.Dir(s.Path)

	if existing, err := os.ReadFile(s.Path); err == nil {
		if err := os.WriteFile(s.Path+".bak", existing, 0644); err != nil {
			return fmt.Errorf("write backup file: %w", err)
		}
	}

	encoded, err := Encode(next)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fsync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, s.Path); err != nil {
		return fmt.Errorf("rename temp state file into place: %w", err)
	}

	if dirHandle, err := os.Open(dir); err == nil {
		_ = dirHandle.Sync()
		dirHandle.Close()
	}
	return nil
}
