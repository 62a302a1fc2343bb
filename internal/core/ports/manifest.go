package ports

import "go.trai.ch/depot/internal/core/domain"

// ManifestLoader reads project manifests from disk and produces the
// workspace with each member's parsed dependency edges. Membership is
// rediscovered on every call.
//
//go:generate go run go.uber.org/mock/mockgen -source=manifest.go -destination=mocks/mock_manifest.go -package=mocks
type ManifestLoader interface {
	// LoadWorkspace loads the manifest at root. A manifest without a
	// workspace section yields a single-member workspace.
	LoadWorkspace(root string) (*domain.Workspace, error)
}
