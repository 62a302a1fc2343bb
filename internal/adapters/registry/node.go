package registry

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/depot/internal/core/ports"
)

// NodeID is the unique identifier for the registry source Graft node.
const NodeID graft.ID = "adapter.registry"

// DefaultRoot is the registry directory used when DEPOT_REGISTRY is unset.
const DefaultRoot = ".depot/registry"

func init() {
	graft.Register(graft.Node[ports.PackageSource]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.PackageSource, error) {
			root := os.Getenv("DEPOT_REGISTRY")
			if root == "" {
				root = DefaultRoot
			}
			return NewSource(root), nil
		},
	})
}
