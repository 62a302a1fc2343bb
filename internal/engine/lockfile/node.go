package lockfile

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/depot/internal/adapters/fs" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/depot/internal/core/ports"
)

// NodeID is the unique identifier for the lockfile manager Graft node.
const NodeID graft.ID = "engine.lockfile"

func init() {
	graft.Register(graft.Node[*Manager]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			fs.ChecksummerNodeID,
		},
		Run: func(ctx context.Context) (*Manager, error) {
			sum, err := graft.Dep[ports.Checksummer](ctx)
			if err != nil {
				return nil, err
			}

			return NewManager(sum), nil
		},
	})
}
