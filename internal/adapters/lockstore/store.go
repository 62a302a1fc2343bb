// Package lockstore persists the project lockfile as a flat JSON file and
// owns the project's advisory lock.
package lockstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.LockfileStore = (*Store)(nil)

// Store implements ports.LockfileStore over a lockfile path. The advisory
// lock lives next to the lockfile and excludes other processes; the mutex
// serializes callers within this one.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a Store for the lockfile at path.
func NewStore(path string) *Store {
	return &Store{path: filepath.Clean(path)}
}

// Read loads the current lockfile. A missing file means no lockfile exists
// yet and returns nil, nil.
func (s *Store) Read() (*domain.Lockfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	//nolint:gosec // Path is cleaned and provided by trusted caller
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read lockfile"), "path", s.path)
	}
	return domain.UnmarshalLockfile(data)
}

// Write persists the lockfile atomically: serialized to a temporary file in
// the same directory, then renamed over the target.
func (s *Store) Write(l *domain.Lockfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := l.Marshal()
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.Wrap(err, "failed to create lockfile directory")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return zerr.Wrap(err, "failed to create temporary lockfile")
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return zerr.Wrap(err, "failed to write lockfile")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return zerr.Wrap(err, "failed to close temporary lockfile")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return zerr.Wrap(err, "failed to replace lockfile")
	}
	return nil
}

// Lock acquires the advisory lock by exclusively creating a lock file next
// to the lockfile. A held lock yields domain.ErrLockConflict immediately;
// there is no waiting.
func (s *Store) Lock() (func(), error) {
	lockPath := s.path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o750); err != nil {
		return nil, zerr.Wrap(err, "failed to create lockfile directory")
	}

	//nolint:gosec // Path is derived from the cleaned lockfile path
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, zerr.With(domain.ErrLockConflict, "path", lockPath)
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to acquire advisory lock"), "path", lockPath)
	}
	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
	_ = f.Close()

	return func() {
		_ = os.Remove(lockPath)
	}, nil
}
