// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/depot/internal/adapters/fs"
	_ "go.trai.ch/depot/internal/adapters/lockstore"
	_ "go.trai.ch/depot/internal/adapters/logger"
	_ "go.trai.ch/depot/internal/adapters/manifest"
	_ "go.trai.ch/depot/internal/adapters/registry"
	_ "go.trai.ch/depot/internal/adapters/telemetry"
	// Register app and engine nodes.
	_ "go.trai.ch/depot/internal/app"
	_ "go.trai.ch/depot/internal/engine/installer"
	_ "go.trai.ch/depot/internal/engine/lockfile"
	_ "go.trai.ch/depot/internal/engine/resolver"
)
