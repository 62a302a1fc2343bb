// Package resolver implements constraint resolution: it assigns one version
// to every required package such that all declared constraints hold, or
// reports every conflict it found.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports"
	"go.trai.ch/zerr"
)

// Strategy governs which satisfying version is selected when several
// qualify.
type Strategy string

const (
	// StrategyHighest picks the maximum satisfying version.
	StrategyHighest Strategy = "highest"
	// StrategyLowest picks the minimum satisfying version.
	StrategyLowest Strategy = "lowest"
	// StrategyExact requires the constraint intersection to denote a single
	// concrete version.
	StrategyExact Strategy = "exact"
)

// ParseStrategy parses a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "", string(StrategyHighest):
		return StrategyHighest, nil
	case string(StrategyLowest):
		return StrategyLowest, nil
	case string(StrategyExact):
		return StrategyExact, nil
	default:
		return "", zerr.With(zerr.New("invalid resolution strategy"), "strategy", s)
	}
}

// Mode selects how conflicts are handled.
type Mode string

const (
	// ModeStrict aborts resolution on any conflict with the full
	// diagnostic. The default.
	ModeStrict Mode = "strict"
	// ModeLenient downgrades conflicts to warnings and selects a
	// best-effort version for the feasible constraint subset, or leaves the
	// package unresolved.
	ModeLenient Mode = "lenient"
)

// defaultMaxPasses bounds fixed-point iteration; real dependency sets
// converge in a handful of passes.
const defaultMaxPasses = 100

// Options configures one resolution run. Strategy and mode are explicit
// per-call values, never process-global flags.
type Options struct {
	Strategy  Strategy
	Mode      Mode
	MaxPasses int
}

func (o Options) withDefaults() Options {
	if o.Strategy == "" {
		o.Strategy = StrategyHighest
	}
	if o.Mode == "" {
		o.Mode = ModeStrict
	}
	if o.MaxPasses <= 0 {
		o.MaxPasses = defaultMaxPasses
	}
	return o
}

// ConflictError carries the full structured conflict report of a strict run.
type ConflictError struct {
	Conflicts domain.ConflictSet
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s\n%s", domain.ErrVersionConflict.Error(), e.Conflicts)
}

// Unwrap makes errors.Is(err, domain.ErrVersionConflict) hold.
func (e *ConflictError) Unwrap() error { return domain.ErrVersionConflict }

// Resolver computes version assignments against a package source.
type Resolver struct {
	source ports.PackageSource
	logger ports.Logger
}

// New creates a Resolver.
func New(source ports.PackageSource, logger ports.Logger) *Resolver {
	return &Resolver{source: source, logger: logger}
}

// Resolve assigns a version to every package reachable from edges.
//
// Each pass groups edges by target, intersects each group's constraints,
// selects a version per the strategy, then regenerates the edge set from the
// base edges plus the selected versions' declared runtime dependencies. The
// loop stops at a fixed point (selection and edges unchanged) or fails with
// domain.ErrNonConvergence at the pass ceiling. Package-level dependency
// cycles are legal; only oscillating version assignment is an error.
//
// The cache memoizes metadata lookups for the duration of this run only;
// callers create a fresh one per run.
func (r *Resolver) Resolve(ctx context.Context, edges []domain.DependencyEdge, opts Options, cache *MetadataCache) (*domain.ResolutionGraph, error) {
	opts = opts.withDefaults()
	if cache == nil {
		cache = NewMetadataCache()
	}

	base := edges
	all := edges
	selected := map[domain.PackageName]domain.Version{}
	var conflicts domain.ConflictSet
	converged := false

	for pass := 0; pass < opts.MaxPasses; pass++ {
		conflicts = conflicts[:0]
		next := make(map[domain.PackageName]domain.Version)

		groups, order := domain.GroupEdges(all)
		for _, target := range order {
			v, conflict, err := r.selectVersion(ctx, target, groups[target], opts, cache)
			if err != nil {
				return nil, err
			}
			if conflict != nil {
				conflicts = append(conflicts, *conflict)
				if !conflict.Resolved.IsZero() {
					next[target] = conflict.Resolved
				}
				continue
			}
			next[target] = v
		}

		grown, err := r.expandEdges(ctx, base, next, cache)
		if err != nil {
			return nil, err
		}

		if selectionEqual(selected, next) && edgesEqual(all, grown) {
			converged = true
			break
		}
		selected = next
		all = grown
	}

	if !converged {
		return nil, zerr.With(domain.ErrNonConvergence, "passes", fmt.Sprintf("%d", opts.MaxPasses))
	}

	if len(conflicts) > 0 && opts.Mode == ModeStrict {
		return nil, &ConflictError{Conflicts: append(domain.ConflictSet(nil), conflicts...)}
	}

	graph := domain.NewResolutionGraph(selected, all)
	graph.Warnings = append(domain.ConflictSet(nil), conflicts...)
	return graph, nil
}

// selectVersion picks a version for one target from the constraints of its
// edge group, or explains why it cannot.
func (r *Resolver) selectVersion(ctx context.Context, target domain.PackageName, group []domain.DependencyEdge, opts Options, cache *MetadataCache) (domain.Version, *domain.Conflict, error) {
	intersection, ok := intersectGroup(group)
	if !ok {
		return r.fallbackOrConflict(ctx, target, group, domain.ConflictEmptyIntersection, opts, cache)
	}

	infos, err := cache.Versions(ctx, r.source, target)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return r.fallbackOrConflict(ctx, target, group, domain.ConflictNoCandidate, opts, cache)
		}
		return domain.Version{}, nil, err
	}

	if opts.Strategy == StrategyExact {
		exact, concrete := intersection.Exact()
		if !concrete {
			c := newConflict(target, domain.ConflictNotExact, group)
			return domain.Version{}, &c, nil
		}
		for _, info := range infos {
			if info.Version.Equal(exact) {
				return exact, nil, nil
			}
		}
		return r.fallbackOrConflict(ctx, target, group, domain.ConflictNoCandidate, opts, cache)
	}

	if v, found := pick(infos, intersection, opts.Strategy); found {
		return v, nil, nil
	}
	return r.fallbackOrConflict(ctx, target, group, domain.ConflictNoCandidate, opts, cache)
}

// fallbackOrConflict turns a failed group into either a strict conflict or,
// in lenient mode, a best-effort selection over a declaration-order prefix
// of the group: later-declared constraints yield first. If even the first
// edge alone admits no version the package stays unresolved.
func (r *Resolver) fallbackOrConflict(ctx context.Context, target domain.PackageName, group []domain.DependencyEdge, kind domain.ConflictKind, opts Options, cache *MetadataCache) (domain.Version, *domain.Conflict, error) {
	conflict := newConflict(target, kind, group)
	if opts.Mode != ModeLenient {
		return domain.Version{}, &conflict, nil
	}

	infos, err := cache.Versions(ctx, r.source, target)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Version{}, nil, err
	}

	for k := len(group) - 1; k >= 1; k-- {
		prefix, ok := intersectGroup(group[:k])
		if !ok {
			continue
		}
		v, found := pick(infos, prefix, opts.Strategy)
		if !found {
			continue
		}
		conflict.Resolved = v
		conflict.Dropped = conflictEdges(group[k:])
		r.logger.Warn(fmt.Sprintf(
			"conflict on %s: selected %s by dropping %d of %d constraints",
			target, v, len(group)-k, len(group)))
		return domain.Version{}, &conflict, nil
	}

	r.logger.Warn(fmt.Sprintf("conflict on %s: left unresolved, no constraint subset is satisfiable", target))
	return domain.Version{}, &conflict, nil
}

// expandEdges regenerates the full edge set: the base manifest edges plus
// one edge per runtime dependency declared by each selected package at its
// selected version. Constraint parse failures are aggregated, never
// truncated to the first.
func (r *Resolver) expandEdges(ctx context.Context, base []domain.DependencyEdge, selected map[domain.PackageName]domain.Version, cache *MetadataCache) ([]domain.DependencyEdge, error) {
	out := make([]domain.DependencyEdge, len(base), len(base)+len(selected))
	copy(out, base)

	names := make([]domain.PackageName, 0, len(selected))
	for name := range selected {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	var parseErrs error
	for _, name := range names {
		v := selected[name]
		infos, err := cache.Versions(ctx, r.source, name)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		for _, info := range infos {
			if !info.Version.Equal(v) {
				continue
			}
			for _, req := range info.Dependencies {
				if req.Kind == domain.KindDev {
					continue
				}
				c, err := domain.ParseConstraint(req.Constraint)
				if err != nil {
					parseErrs = errors.Join(parseErrs, zerr.With(err, "declared_by", string(domain.PackageAt(name, v))))
					continue
				}
				out = append(out, domain.DependencyEdge{
					Requirer:      domain.PackageAt(name, v),
					Target:        req.Name,
					Constraint:    c,
					RawConstraint: req.Constraint,
					Kind:          domain.KindRuntime,
				})
			}
			break
		}
	}
	if parseErrs != nil {
		return nil, parseErrs
	}
	return out, nil
}

// intersectGroup folds the group's constraints in declaration order.
func intersectGroup(group []domain.DependencyEdge) (domain.Constraint, bool) {
	acc := domain.Wildcard()
	for _, e := range group {
		next, ok := acc.Intersect(e.Constraint)
		if !ok {
			return domain.Constraint{}, false
		}
		acc = next
	}
	return acc, true
}

// pick chooses a satisfying version from the ascending-ordered infos.
func pick(infos []domain.VersionInfo, c domain.Constraint, strategy Strategy) (domain.Version, bool) {
	var chosen domain.Version
	found := false
	for _, info := range infos {
		if !c.Satisfies(info.Version) {
			continue
		}
		chosen = info.Version
		found = true
		if strategy == StrategyLowest {
			break
		}
	}
	return chosen, found
}

func newConflict(target domain.PackageName, kind domain.ConflictKind, group []domain.DependencyEdge) domain.Conflict {
	return domain.Conflict{Package: target, Kind: kind, Edges: conflictEdges(group)}
}

func conflictEdges(group []domain.DependencyEdge) []domain.ConflictEdge {
	out := make([]domain.ConflictEdge, 0, len(group))
	for _, e := range group {
		out = append(out, domain.ConflictEdge{Requirer: e.Requirer, Constraint: e.RawConstraint})
	}
	return out
}

func selectionEqual(a, b map[domain.PackageName]domain.Version) bool {
	if len(a) != len(b) {
		return false
	}
	for name, v := range a {
		o, ok := b[name]
		if !ok || !o.Equal(v) {
			return false
		}
	}
	return true
}

func edgesEqual(a, b []domain.DependencyEdge) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Requirer != b[i].Requirer ||
			a[i].Target != b[i].Target ||
			a[i].RawConstraint != b[i].RawConstraint ||
			a[i].Kind != b[i].Kind {
			return false
		}
	}
	return true
}
