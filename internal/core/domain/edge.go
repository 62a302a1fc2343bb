package domain

import "strings"

// PackageName identifies a package in the upstream index.
type PackageName string

// PackageID identifies the declarer of a dependency edge: either a workspace
// member ("app") or a resolved package pinned to a version ("libA@1.2.0").
type PackageID string

// PackageAt builds the PackageID of a package at a concrete version.
func PackageAt(name PackageName, v Version) PackageID {
	return PackageID(string(name) + "@" + v.String())
}

// PackagePart returns the package name component of the ID and whether the
// ID carries a version.
func (id PackageID) PackagePart() (PackageName, bool) {
	if i := strings.IndexByte(string(id), '@'); i >= 0 {
		return PackageName(id[:i]), true
	}
	return PackageName(id), false
}

// EdgeKind distinguishes runtime from development-only dependencies.
type EdgeKind string

const (
	// KindRuntime marks a dependency needed at runtime; transitive
	// resolution follows these.
	KindRuntime EdgeKind = "runtime"
	// KindDev marks a development-only dependency; declared by workspace
	// members, never followed transitively.
	KindDev EdgeKind = "dev"
)

// DependencyEdge is one declared requirement: the requirer needs the target
// package at a version accepted by the constraint. Edges keep their
// declaration order; lenient resolution drops later-declared constraints
// first.
type DependencyEdge struct {
	Requirer   PackageID
	Target     PackageName
	Constraint Constraint
	// RawConstraint is the constraint exactly as declared, kept for
	// diagnostics.
	RawConstraint string
	Kind          EdgeKind
}

// GroupEdges partitions edges by target package, preserving declaration
// order both across groups (first-seen target order) and within each group.
func GroupEdges(edges []DependencyEdge) (map[PackageName][]DependencyEdge, []PackageName) {
	groups := make(map[PackageName][]DependencyEdge)
	var order []PackageName
	for _, e := range edges {
		if _, seen := groups[e.Target]; !seen {
			order = append(order, e.Target)
		}
		groups[e.Target] = append(groups[e.Target], e)
	}
	return groups, order
}
