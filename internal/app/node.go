package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/depot/internal/adapters/fs"        //nolint:depguard // Wired in app layer
	"go.trai.ch/depot/internal/adapters/lockstore" //nolint:depguard // Wired in app layer
	"go.trai.ch/depot/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/depot/internal/adapters/manifest"  //nolint:depguard // Wired in app layer
	"go.trai.ch/depot/internal/adapters/registry"  //nolint:depguard // Wired in app layer
	"go.trai.ch/depot/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/depot/internal/core/ports"
	"go.trai.ch/depot/internal/engine/installer"
	"go.trai.ch/depot/internal/engine/lockfile"
	"go.trai.ch/depot/internal/engine/resolver"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	// App Node
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			manifest.NodeID,
			registry.NodeID,
			lockstore.NodeID,
			fs.ChecksummerNodeID,
			resolver.NodeID,
			lockfile.NodeID,
			installer.NodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	// Components Node
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			telemetry.TracerNodeID,
		},
		Run: runComponentsNode,
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	manifests, err := graft.Dep[ports.ManifestLoader](ctx)
	if err != nil {
		return nil, err
	}

	source, err := graft.Dep[ports.PackageSource](ctx)
	if err != nil {
		return nil, err
	}

	store, err := graft.Dep[ports.LockfileStore](ctx)
	if err != nil {
		return nil, err
	}

	sum, err := graft.Dep[ports.Checksummer](ctx)
	if err != nil {
		return nil, err
	}

	res, err := graft.Dep[*resolver.Resolver](ctx)
	if err != nil {
		return nil, err
	}

	locks, err := graft.Dep[*lockfile.Manager](ctx)
	if err != nil {
		return nil, err
	}

	inst, err := graft.Dep[*installer.Installer](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return New(manifests, source, store, sum, res, locks, inst, log), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	mainApp, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	tracer, err := graft.Dep[ports.Tracer](ctx)
	if err != nil {
		return nil, err
	}

	return &Components{
		App:    mainApp,
		Logger: log,
		Tracer: tracer,
	}, nil
}
