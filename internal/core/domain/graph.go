package domain

import (
	"sort"

	"go.trai.ch/zerr"
)

// ResolutionGraph is the output of a successful resolution: one selected
// version per package name plus the full edge set the selection was derived
// from. Package-level dependency cycles are legal graph structure here.
type ResolutionGraph struct {
	selected map[PackageName]Version
	edges    []DependencyEdge

	// Warnings holds the conflicts that lenient resolution downgraded; empty
	// after a strict run.
	Warnings []Conflict
}

// NewResolutionGraph builds a graph from a selection and its edge set.
func NewResolutionGraph(selected map[PackageName]Version, edges []DependencyEdge) *ResolutionGraph {
	s := make(map[PackageName]Version, len(selected))
	for name, v := range selected {
		s[name] = v
	}
	return &ResolutionGraph{selected: s, edges: edges}
}

// Selected returns the version chosen for name.
func (g *ResolutionGraph) Selected(name PackageName) (Version, bool) {
	v, ok := g.selected[name]
	return v, ok
}

// Packages returns all resolved package names in lexical order.
func (g *ResolutionGraph) Packages() []PackageName {
	names := make([]PackageName, 0, len(g.selected))
	for name := range g.selected {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Len returns the number of resolved packages.
func (g *ResolutionGraph) Len() int { return len(g.selected) }

// Edges returns the full edge set.
func (g *ResolutionGraph) Edges() []DependencyEdge { return g.edges }

// DirectDependencies returns the selected versions of the packages that name
// itself requires, derived from the edges name declared at its selected
// version. Targets that lenient resolution left unresolved are omitted.
func (g *ResolutionGraph) DirectDependencies(name PackageName) map[PackageName]Version {
	deps := make(map[PackageName]Version)
	for _, e := range g.edges {
		requirer, _ := e.Requirer.PackagePart()
		if requirer != name {
			continue
		}
		if v, ok := g.selected[e.Target]; ok {
			deps[e.Target] = v
		}
	}
	return deps
}

// CheckSound verifies the graph invariant: every edge's constraint is
// satisfied by its target's selected version. Resolver tests and the
// application's paranoia path use it; a sound resolver never trips it.
func (g *ResolutionGraph) CheckSound() error {
	var err error
	for _, e := range g.edges {
		v, ok := g.selected[e.Target]
		if !ok {
			continue // left unresolved by lenient mode
		}
		if !e.Constraint.Satisfies(v) {
			bad := zerr.With(ErrVersionConflict, "package", string(e.Target))
			bad = zerr.With(bad, "selected", v.String())
			bad = zerr.With(bad, "constraint", e.RawConstraint)
			bad = zerr.With(bad, "requirer", string(e.Requirer))
			if err == nil {
				err = bad
			}
		}
	}
	return err
}
