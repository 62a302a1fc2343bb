package ports

import (
	"context"

	"go.trai.ch/depot/internal/core/domain"
)

// PackageSource is the upstream index and content store. Implementations
// must distinguish domain.ErrNotFound (permanent) from
// domain.ErrTransientFetch (retryable) in returned errors.
//
//go:generate go run go.uber.org/mock/mockgen -source=source.go -destination=mocks/mock_source.go -package=mocks
type PackageSource interface {
	// ListVersions returns every published version of the package in
	// ascending order, each with the dependencies it declares.
	ListVersions(ctx context.Context, name domain.PackageName) ([]domain.VersionInfo, error)

	// Fetch returns the canonical content bytes of one published version.
	Fetch(ctx context.Context, name domain.PackageName, version domain.Version) ([]byte, error)
}
