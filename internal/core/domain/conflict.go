package domain

import (
	"fmt"
	"strings"
)

// ConflictKind classifies why a package could not be resolved.
type ConflictKind string

const (
	// ConflictEmptyIntersection means the declared constraints contradict
	// each other: no version could ever satisfy them all.
	ConflictEmptyIntersection ConflictKind = "empty-intersection"
	// ConflictNoCandidate means the constraints are jointly satisfiable but
	// no published version falls inside the intersection.
	ConflictNoCandidate ConflictKind = "no-candidate"
	// ConflictNotExact means the Exact strategy was requested but the
	// intersection does not denote a single concrete version.
	ConflictNotExact ConflictKind = "not-exact"
)

// ConflictEdge names one requirement that participated in a conflict.
type ConflictEdge struct {
	Requirer   PackageID
	Constraint string
}

// Conflict is the structured diagnostic for one unresolved package: every
// (requirer, constraint) pair that could not be jointly satisfied, and in
// lenient mode which of them were dropped to make progress.
type Conflict struct {
	Package PackageName
	Kind    ConflictKind
	Edges   []ConflictEdge
	// Dropped lists the edges lenient resolution sacrificed; empty in strict
	// mode and for packages left wholly unresolved.
	Dropped []ConflictEdge
	// Resolved is the best-effort version lenient mode selected, zero when
	// the package was left unresolved.
	Resolved Version
}

func (c Conflict) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", c.Package, c.Kind)
	for _, e := range c.Edges {
		fmt.Fprintf(&b, "\n  %s requires %q", e.Requirer, e.Constraint)
	}
	for _, e := range c.Dropped {
		fmt.Fprintf(&b, "\n  dropped %s requires %q", e.Requirer, e.Constraint)
	}
	return b.String()
}

// ConflictSet aggregates every conflict of a resolution run; diagnostics are
// never truncated to the first failure.
type ConflictSet []Conflict

func (s ConflictSet) String() string {
	parts := make([]string, 0, len(s))
	for _, c := range s {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, "\n")
}

// Packages returns the conflicting package names in report order.
func (s ConflictSet) Packages() []PackageName {
	names := make([]PackageName, 0, len(s))
	for _, c := range s {
		names = append(names, c.Package)
	}
	return names
}
