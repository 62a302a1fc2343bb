package lockstore

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/depot/internal/core/ports"
)

// NodeID is the unique identifier for the lockfile store Graft node.
const NodeID graft.ID = "adapter.lockstore"

// DefaultPath is the lockfile path relative to the project root.
const DefaultPath = "depot.lock"

func init() {
	graft.Register(graft.Node[ports.LockfileStore]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.LockfileStore, error) {
			return NewStore(DefaultPath), nil
		},
	})
}
