package domain

import "strings"

// bound is one endpoint of a version range.
type bound struct {
	version   Version
	inclusive bool
}

// versionRange is a contiguous interval of versions, the conjunction of the
// comparator terms of one constraint alternative. A nil endpoint is
// unbounded.
type versionRange struct {
	lower *bound
	upper *bound
}

// Constraint is an immutable predicate over versions: a disjunction (the
// "||" alternatives) of version ranges. The zero Constraint matches nothing;
// use Wildcard for "match anything".
type Constraint struct {
	ranges []versionRange
}

// Wildcard returns the constraint that matches every version.
func Wildcard() Constraint {
	return Constraint{ranges: []versionRange{{}}}
}

// Exactly returns the constraint matching only v.
func Exactly(v Version) Constraint {
	b := bound{version: v, inclusive: true}
	return Constraint{ranges: []versionRange{{lower: &b, upper: &b}}}
}

// IsWildcard reports whether c accepts every version.
func (c Constraint) IsWildcard() bool {
	for _, r := range c.ranges {
		if r.lower == nil && r.upper == nil {
			return true
		}
	}
	return false
}

// Satisfies reports whether v is accepted by c.
func (c Constraint) Satisfies(v Version) bool {
	for _, r := range c.ranges {
		if r.contains(v) {
			return true
		}
	}
	return false
}

func (r versionRange) contains(v Version) bool {
	if r.lower != nil {
		cmp := v.Compare(r.lower.version)
		if cmp < 0 || (cmp == 0 && !r.lower.inclusive) {
			return false
		}
	}
	if r.upper != nil {
		cmp := v.Compare(r.upper.version)
		if cmp > 0 || (cmp == 0 && !r.upper.inclusive) {
			return false
		}
	}
	return true
}

// Intersect returns the constraint accepting exactly the versions accepted
// by both c and o. The second result is false when the intersection is
// provably empty.
func (c Constraint) Intersect(o Constraint) (Constraint, bool) {
	var out []versionRange
	for _, a := range c.ranges {
		for _, b := range o.ranges {
			if r, ok := intersectRange(a, b); ok {
				out = append(out, r)
			}
		}
	}
	if len(out) == 0 {
		return Constraint{}, false
	}
	return Constraint{ranges: out}, true
}

func intersectRange(a, b versionRange) (versionRange, bool) {
	r := versionRange{
		lower: tighterLower(a.lower, b.lower),
		upper: tighterUpper(a.upper, b.upper),
	}
	if r.lower != nil && r.upper != nil {
		cmp := r.lower.version.Compare(r.upper.version)
		if cmp > 0 {
			return versionRange{}, false
		}
		if cmp == 0 && !(r.lower.inclusive && r.upper.inclusive) {
			return versionRange{}, false
		}
	}
	return r, true
}

// tighterLower picks the greater lower bound; on equal versions an exclusive
// bound is tighter.
func tighterLower(a, b *bound) *bound {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	cmp := a.version.Compare(b.version)
	switch {
	case cmp > 0:
		return a
	case cmp < 0:
		return b
	case !a.inclusive:
		return a
	default:
		return b
	}
}

// tighterUpper picks the lesser upper bound; on equal versions an exclusive
// bound is tighter.
func tighterUpper(a, b *bound) *bound {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	cmp := a.version.Compare(b.version)
	switch {
	case cmp < 0:
		return a
	case cmp > 0:
		return b
	case !a.inclusive:
		return a
	default:
		return b
	}
}

// Exact returns the single concrete version c denotes, if it denotes exactly
// one point.
func (c Constraint) Exact() (Version, bool) {
	if len(c.ranges) != 1 {
		return Version{}, false
	}
	r := c.ranges[0]
	if r.lower == nil || r.upper == nil {
		return Version{}, false
	}
	if !r.lower.inclusive || !r.upper.inclusive {
		return Version{}, false
	}
	if !r.lower.version.Equal(r.upper.version) {
		return Version{}, false
	}
	return r.lower.version, true
}

// String renders c in canonical form. Parsing the result yields a constraint
// accepting exactly the same versions; caret and tilde sugar is expanded to
// comparator pairs.
func (c Constraint) String() string {
	if len(c.ranges) == 0 {
		return ""
	}
	parts := make([]string, 0, len(c.ranges))
	for _, r := range c.ranges {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, " || ")
}

func (r versionRange) String() string {
	if r.lower == nil && r.upper == nil {
		return "*"
	}
	if r.lower != nil && r.upper != nil &&
		r.lower.inclusive && r.upper.inclusive &&
		r.lower.version.Equal(r.upper.version) {
		return r.lower.version.String()
	}

	var terms []string
	if r.lower != nil {
		op := ">"
		if r.lower.inclusive {
			op = ">="
		}
		terms = append(terms, op+r.lower.version.String())
	}
	if r.upper != nil {
		op := "<"
		if r.upper.inclusive {
			op = "<="
		}
		terms = append(terms, op+r.upper.version.String())
	}
	return strings.Join(terms, " ")
}
