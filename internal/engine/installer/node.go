package installer

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/depot/internal/adapters/fs"        //nolint:depguard // Wired in engine wiring
	"go.trai.ch/depot/internal/adapters/logger"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/depot/internal/adapters/registry"  //nolint:depguard // Wired in engine wiring
	"go.trai.ch/depot/internal/adapters/telemetry" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/depot/internal/core/ports"
)

// NodeID is the unique identifier for the installer Graft node.
const NodeID graft.ID = "engine.installer"

func init() {
	graft.Register(graft.Node[*Installer]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			registry.NodeID,
			fs.ChecksummerNodeID,
			fs.ExtractorNodeID,
			telemetry.TracerNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Installer, error) {
			source, err := graft.Dep[ports.PackageSource](ctx)
			if err != nil {
				return nil, err
			}

			sum, err := graft.Dep[ports.Checksummer](ctx)
			if err != nil {
				return nil, err
			}

			extract, err := graft.Dep[ports.Extractor](ctx)
			if err != nil {
				return nil, err
			}

			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return New(source, sum, extract, tracer, log), nil
		},
	})
}
