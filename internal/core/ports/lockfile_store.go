package ports

import "go.trai.ch/depot/internal/core/domain"

// LockfileStore persists the project lockfile and owns the project's
// advisory lock.
//
//go:generate go run go.uber.org/mock/mockgen -source=lockfile_store.go -destination=mocks/mock_lockfile_store.go -package=mocks
type LockfileStore interface {
	// Read loads the current lockfile. Returns nil, nil when none exists.
	Read() (*domain.Lockfile, error)

	// Write persists the lockfile atomically.
	Write(l *domain.Lockfile) error

	// Lock acquires the project's advisory exclusive lock. It returns
	// domain.ErrLockConflict immediately when another process holds it; the
	// release function must be called on every exit path.
	Lock() (release func(), err error)
}
