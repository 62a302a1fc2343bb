package fs

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/depot/internal/core/ports"
)

const (
	WalkerNodeID      graft.ID = "adapter.fs.walker"
	ChecksummerNodeID graft.ID = "adapter.fs.checksummer"
	ExtractorNodeID   graft.ID = "adapter.fs.extractor"
)

func init() {
	// Walker Node (concrete implementation needed by the manifest loader)
	graft.Register(graft.Node[*Walker]{
		ID:        WalkerNodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (*Walker, error) {
			return NewWalker(), nil
		},
	})

	// Checksummer Node
	graft.Register(graft.Node[ports.Checksummer]{
		ID:        ChecksummerNodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.Checksummer, error) {
			return NewChecksummer(), nil
		},
	})

	// Extractor Node
	graft.Register(graft.Node[ports.Extractor]{
		ID:        ExtractorNodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.Extractor, error) {
			return NewExtractor(), nil
		},
	})
}
