package domain

import (
	"sort"
	"strings"

	"go.trai.ch/zerr"
)

// Member is one package inside a workspace: its manifest name, its
// normalized path relative to the workspace root, and the dependency edges
// its manifest declares (requirer is the member name).
type Member struct {
	Name  string
	Path  string
	Edges []DependencyEdge
}

// Workspace is a set of member packages discovered under one project root.
// Membership is recomputed on every run; a Workspace is never cached across
// runs.
type Workspace struct {
	Root    string
	Members []Member
}

// NewWorkspace builds a workspace with members ordered by path.
func NewWorkspace(root string, members []Member) *Workspace {
	sorted := make([]Member, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	return &Workspace{Root: root, Members: sorted}
}

// Member returns the member with the given name.
func (w *Workspace) Member(name string) (Member, bool) {
	for _, m := range w.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// MergedEdges merges the edges of the selected members into one edge set so
// the resolver sees the whole workspace at once and shared packages get a
// single hoisted version. A nil selection means all members. Member order
// (by path) and per-member declaration order are preserved.
func (w *Workspace) MergedEdges(selection map[string]bool) []DependencyEdge {
	var merged []DependencyEdge
	for _, m := range w.Members {
		if selection != nil && !selection[m.Name] {
			continue
		}
		merged = append(merged, m.Edges...)
	}
	return merged
}

// Divergence reports a package required by more than one member under
// differing constraint texts. Divergences are informational: hoisting may
// still find a version satisfying all of them.
type Divergence struct {
	Package      PackageName
	Requirements []ConflictEdge
}

// Divergences lists every package whose requiring members disagree on the
// constraint text, independent of whether resolution succeeds.
func (w *Workspace) Divergences() []Divergence {
	type req struct {
		member     PackageID
		constraint string
	}
	byTarget := make(map[PackageName][]req)
	var order []PackageName
	for _, m := range w.Members {
		for _, e := range m.Edges {
			if _, seen := byTarget[e.Target]; !seen {
				order = append(order, e.Target)
			}
			byTarget[e.Target] = append(byTarget[e.Target], req{member: e.Requirer, constraint: e.RawConstraint})
		}
	}

	var out []Divergence
	for _, target := range order {
		reqs := byTarget[target]
		members := make(map[PackageID]bool)
		texts := make(map[string]bool)
		for _, r := range reqs {
			members[r.member] = true
			texts[r.constraint] = true
		}
		if len(members) < 2 || len(texts) < 2 {
			continue
		}
		d := Divergence{Package: target}
		for _, r := range reqs {
			d.Requirements = append(d.Requirements, ConflictEdge{Requirer: r.member, Constraint: r.constraint})
		}
		out = append(out, d)
	}
	return out
}

// filterPattern is one parsed filter expression.
type filterPattern struct {
	member       string
	dependents   bool // "member..." : the member plus everything depending on it
	dependencies bool // "...member" : the member plus everything it depends on
}

// Filter selects a subset of workspace members by reachability. Multiple
// expressions are unioned.
type Filter struct {
	patterns []filterPattern
}

// ParseFilters parses filter expressions: "member", "member..." (dependents
// closure) and "...member" (dependencies closure).
func ParseFilters(exprs []string) (Filter, error) {
	var f Filter
	for _, expr := range exprs {
		trimmed := strings.TrimSpace(expr)
		p := filterPattern{member: trimmed}
		switch {
		case strings.HasPrefix(trimmed, "..."):
			p.member = trimmed[3:]
			p.dependencies = true
		case strings.HasSuffix(trimmed, "..."):
			p.member = trimmed[:len(trimmed)-3]
			p.dependents = true
		}
		if p.member == "" {
			return Filter{}, zerr.With(zerr.New("empty filter expression"), "expression", expr)
		}
		f.patterns = append(f.patterns, p)
	}
	return f, nil
}

// IsEmpty reports whether the filter selects everything.
func (f Filter) IsEmpty() bool { return len(f.patterns) == 0 }

// Select evaluates the filter against the workspace. A nil result means all
// members participate. Naming a member that does not exist is an error.
func (f Filter) Select(w *Workspace) (map[string]bool, error) {
	if f.IsEmpty() {
		return nil, nil
	}

	deps, dependents := memberGraph(w)

	selected := make(map[string]bool)
	for _, p := range f.patterns {
		if _, ok := w.Member(p.member); !ok {
			return nil, zerr.With(ErrUnknownMember, "member", p.member)
		}
		selected[p.member] = true
		switch {
		case p.dependents:
			closure(p.member, dependents, selected)
		case p.dependencies:
			closure(p.member, deps, selected)
		}
	}
	return selected, nil
}

// memberGraph derives the member-to-member dependency adjacency: member A
// depends on member B when A declares an edge targeting B's package name.
func memberGraph(w *Workspace) (deps, dependents map[string][]string) {
	byPackage := make(map[PackageName]string, len(w.Members))
	for _, m := range w.Members {
		byPackage[PackageName(m.Name)] = m.Name
	}

	deps = make(map[string][]string)
	dependents = make(map[string][]string)
	for _, m := range w.Members {
		for _, e := range m.Edges {
			target, ok := byPackage[e.Target]
			if !ok || target == m.Name {
				continue
			}
			deps[m.Name] = append(deps[m.Name], target)
			dependents[target] = append(dependents[target], m.Name)
		}
	}
	return deps, dependents
}

// closure adds everything reachable from start through adj into selected.
func closure(start string, adj map[string][]string, selected map[string]bool) {
	stack := []string{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range adj[cur] {
			if !selected[next] {
				selected[next] = true
				stack = append(stack, next)
			}
		}
	}
}
