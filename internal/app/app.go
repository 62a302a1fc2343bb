// Package app implements the application layer for depot: it orchestrates
// workspace loading, resolution, lockfile management and installation behind
// the CLI.
package app

import (
	"context"
	"fmt"

	"go.trai.ch/depot/internal/adapters/fs"
	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports"
	"go.trai.ch/depot/internal/engine/installer"
	"go.trai.ch/depot/internal/engine/lockfile"
	"go.trai.ch/depot/internal/engine/resolver"
	"go.trai.ch/zerr"
)

// ErrNoLockfile is returned when an operation needs a lockfile and none has
// been written yet.
var ErrNoLockfile = zerr.New("no lockfile found, run install first")

// App represents the main application logic.
type App struct {
	manifests ports.ManifestLoader
	source    ports.PackageSource
	store     ports.LockfileStore
	sum       ports.Checksummer
	res       *resolver.Resolver
	locks     *lockfile.Manager
	inst      *installer.Installer
	logger    ports.Logger
}

// New creates a new App instance.
func New(
	manifests ports.ManifestLoader,
	source ports.PackageSource,
	store ports.LockfileStore,
	sum ports.Checksummer,
	res *resolver.Resolver,
	locks *lockfile.Manager,
	inst *installer.Installer,
	logger ports.Logger,
) *App {
	return &App{
		manifests: manifests,
		source:    source,
		store:     store,
		sum:       sum,
		res:       res,
		locks:     locks,
		inst:      inst,
		logger:    logger,
	}
}

// InstallOptions configures one install run.
type InstallOptions struct {
	// Root is the project directory holding the root manifest.
	Root string
	// Dest is the installation directory.
	Dest string
	// Filters restricts resolution to a subset of workspace members.
	Filters []string
	// Strategy selects among satisfying versions.
	Strategy resolver.Strategy
	// Lenient downgrades conflicts to warnings.
	Lenient bool
	// FailFast cancels remaining package pipelines on the first failure.
	FailFast bool
	// Concurrency bounds concurrent package pipelines.
	Concurrency int
}

// Install resolves the workspace, writes the lockfile and materializes every
// locked package under opts.Dest. The project's advisory lock is held for
// the whole run: a concurrent invocation fails with ErrLockConflict before
// anything is written.
func (a *App) Install(ctx context.Context, opts InstallOptions) (*installer.Report, error) {
	release, err := a.store.Lock()
	if err != nil {
		return nil, err
	}
	defer release()

	graph, err := a.resolve(ctx, opts.Root, opts.Filters, opts.Strategy, opts.Lenient)
	if err != nil {
		return nil, err
	}

	lf, err := a.locks.Compute(ctx, graph, a.source)
	if err != nil {
		return nil, err
	}
	if err := a.store.Write(lf); err != nil {
		return nil, err
	}

	report, err := a.inst.Install(ctx, lf, installer.Options{
		Dest:        opts.Dest,
		Concurrency: opts.Concurrency,
		FailFast:    opts.FailFast,
	})
	if err != nil {
		return report, err
	}
	a.logger.Info(fmt.Sprintf("installed %d packages into %s", len(lf.Packages), opts.Dest))
	return report, nil
}

// Verify compares the lockfile against the installed tree and returns every
// discrepancy.
func (a *App) Verify(ctx context.Context, dest string) ([]domain.IntegrityViolation, error) {
	lf, err := a.store.Read()
	if err != nil {
		return nil, err
	}
	if lf == nil {
		return nil, ErrNoLockfile
	}
	return a.locks.Verify(lf, fs.NewInstalledTree(dest, a.sum))
}

// UpdateOptions configures one update run.
type UpdateOptions struct {
	Root     string
	Filters  []string
	Strategy resolver.Strategy
	Lenient  bool
}

// Update re-resolves the workspace and reconciles the lockfile with the
// fresh resolution, keeping unchanged entries verbatim. Holds the project's
// advisory lock across the lockfile rewrite.
func (a *App) Update(ctx context.Context, opts UpdateOptions) (*domain.Lockfile, error) {
	release, err := a.store.Lock()
	if err != nil {
		return nil, err
	}
	defer release()

	old, err := a.store.Read()
	if err != nil {
		return nil, err
	}
	if old == nil {
		old = domain.NewLockfile(nil)
	}

	graph, err := a.resolve(ctx, opts.Root, opts.Filters, opts.Strategy, opts.Lenient)
	if err != nil {
		return nil, err
	}

	lf, err := a.locks.Update(ctx, old, graph, a.source)
	if err != nil {
		return nil, err
	}
	if err := a.store.Write(lf); err != nil {
		return nil, err
	}
	return lf, nil
}

// ListEntry pairs one lock entry with its installed state.
type ListEntry struct {
	domain.LockEntry
	// Installed reports whether the retained archive under dest still
	// matches the locked checksum.
	Installed bool
}

// List returns the locked packages and whether each is installed under dest.
func (a *App) List(_ context.Context, dest string) ([]ListEntry, error) {
	lf, err := a.store.Read()
	if err != nil {
		return nil, err
	}
	if lf == nil {
		return nil, ErrNoLockfile
	}

	tree := fs.NewInstalledTree(dest, a.sum)
	entries := make([]ListEntry, 0, len(lf.Packages))
	for _, e := range lf.Packages {
		got, err := tree.ContentChecksum(e.Name)
		entries = append(entries, ListEntry{
			LockEntry: e,
			Installed: err == nil && got.Equal(e.Checksum),
		})
	}
	return entries, nil
}

// resolve loads the workspace, applies member filters and runs resolution
// over the merged edge set.
func (a *App) resolve(ctx context.Context, root string, filters []string, strategy resolver.Strategy, lenient bool) (*domain.ResolutionGraph, error) {
	ws, err := a.manifests.LoadWorkspace(root)
	if err != nil {
		return nil, err
	}

	filter, err := domain.ParseFilters(filters)
	if err != nil {
		return nil, err
	}
	selection, err := filter.Select(ws)
	if err != nil {
		return nil, err
	}

	for _, d := range ws.Divergences() {
		a.logger.Warn(fmt.Sprintf("members disagree on %s (%d requirements)", d.Package, len(d.Requirements)))
	}

	mode := resolver.ModeStrict
	if lenient {
		mode = resolver.ModeLenient
	}
	graph, err := a.res.Resolve(ctx, ws.MergedEdges(selection), resolver.Options{
		Strategy: strategy,
		Mode:     mode,
	}, resolver.NewMetadataCache())
	if err != nil {
		return nil, err
	}

	if mode == resolver.ModeStrict {
		if err := graph.CheckSound(); err != nil {
			return nil, err
		}
	}
	return graph, nil
}
