package domain

import (
	"regexp"
	"strings"

	"go.trai.ch/zerr"
)

// ParseConstraint parses a textual constraint expression into a Constraint.
//
// Grammar: alternatives separated by "||", each alternative a
// whitespace-joined conjunction of terms. A term is an exact version
// ("1.2.3"), a comparator-prefixed version (">=", "<=", ">", "<", "="), a
// caret ("^1.2.3" means ">=1.2.3 <2.0.0", with the upper bound narrowed to
// the next nonzero leading component for 0.x versions), a tilde ("~1.2.3"
// means ">=1.2.3 <1.3.0"), a patch wildcard ("1.2.x" or "1.2.*"), or "*".
// Missing minor/patch segments default to zero.
//
// The function is pure. Errors wrap ErrConstraintParse and carry the
// offending term.
func ParseConstraint(text string) (Constraint, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Constraint{}, zerr.With(ErrConstraintParse, "input", text)
	}

	var ranges []versionRange
	for _, alt := range strings.Split(trimmed, "||") {
		r, err := parseAlternative(alt, text)
		if err != nil {
			return Constraint{}, err
		}
		ranges = append(ranges, r)
	}
	return Constraint{ranges: ranges}, nil
}

// MustConstraint parses a constraint and panics on failure. For tests only.
func MustConstraint(text string) Constraint {
	c, err := ParseConstraint(text)
	if err != nil {
		panic(err)
	}
	return c
}

// parseAlternative parses one "||" alternative: an implicit AND of terms.
func parseAlternative(alt, full string) (versionRange, error) {
	terms := strings.Fields(alt)
	if len(terms) == 0 {
		return versionRange{}, zerr.With(ErrConstraintParse, "input", full)
	}

	acc := versionRange{}
	for _, term := range terms {
		r, err := parseTerm(term)
		if err != nil {
			return versionRange{}, zerr.With(zerr.With(zerr.Wrap(err, ErrConstraintParse.Error()), "term", term), "input", full)
		}
		merged, ok := intersectRange(acc, r)
		if !ok {
			// Contradictory terms like ">2.0.0 <1.0.0" still parse; the
			// resulting range is empty and satisfied by nothing.
			zero := NewVersion(0, 0, 0)
			return versionRange{
				lower: &bound{version: zero},
				upper: &bound{version: zero},
			}, nil
		}
		acc = merged
	}
	return acc, nil
}

var wildcardTail = regexp.MustCompile(`^(\d+)(\.(\d+))?\.[x*]$`)

func parseTerm(term string) (versionRange, error) {
	switch {
	case term == "*":
		return versionRange{}, nil

	case strings.HasPrefix(term, "^"):
		v, err := parseVersionLoose(term[1:])
		if err != nil {
			return versionRange{}, err
		}
		return caretRange(v), nil

	case strings.HasPrefix(term, "~"):
		v, err := parseVersionLoose(term[1:])
		if err != nil {
			return versionRange{}, err
		}
		return versionRange{
			lower: &bound{version: v, inclusive: true},
			upper: &bound{version: v.bumpMinor()},
		}, nil

	case strings.HasPrefix(term, ">="):
		v, err := parseVersionLoose(term[2:])
		if err != nil {
			return versionRange{}, err
		}
		return versionRange{lower: &bound{version: v, inclusive: true}}, nil

	case strings.HasPrefix(term, "<="):
		v, err := parseVersionLoose(term[2:])
		if err != nil {
			return versionRange{}, err
		}
		return versionRange{upper: &bound{version: v, inclusive: true}}, nil

	case strings.HasPrefix(term, ">"):
		v, err := parseVersionLoose(term[1:])
		if err != nil {
			return versionRange{}, err
		}
		return versionRange{lower: &bound{version: v}}, nil

	case strings.HasPrefix(term, "<"):
		v, err := parseVersionLoose(term[1:])
		if err != nil {
			return versionRange{}, err
		}
		return versionRange{upper: &bound{version: v}}, nil

	case strings.HasPrefix(term, "="):
		v, err := parseVersionLoose(term[1:])
		if err != nil {
			return versionRange{}, err
		}
		return exactRange(v), nil

	case wildcardTail.MatchString(term):
		return patchWildcardRange(term)

	default:
		v, err := parseVersionLoose(term)
		if err != nil {
			return versionRange{}, err
		}
		return exactRange(v), nil
	}
}

func exactRange(v Version) versionRange {
	b := bound{version: v, inclusive: true}
	return versionRange{lower: &b, upper: &b}
}

// caretRange narrows the upper bound to the next nonzero leading component:
// ^1.2.3 < 2.0.0, ^0.2.3 < 0.3.0, ^0.0.3 < 0.0.4.
func caretRange(v Version) versionRange {
	var upper Version
	switch {
	case v.Major() > 0:
		upper = v.bumpMajor()
	case v.Minor() > 0:
		upper = v.bumpMinor()
	default:
		upper = v.bumpPatch()
	}
	return versionRange{
		lower: &bound{version: v, inclusive: true},
		upper: &bound{version: upper},
	}
}

// patchWildcardRange handles "1.2.x" (>=1.2.0 <1.3.0) and "1.x"
// (>=1.0.0 <2.0.0).
func patchWildcardRange(term string) (versionRange, error) {
	m := wildcardTail.FindStringSubmatch(term)
	var base, upper Version
	if m[3] != "" {
		b, err := parseVersionLoose(m[1] + "." + m[3] + ".0")
		if err != nil {
			return versionRange{}, err
		}
		base, upper = b, b.bumpMinor()
	} else {
		b, err := parseVersionLoose(m[1] + ".0.0")
		if err != nil {
			return versionRange{}, err
		}
		base, upper = b, b.bumpMajor()
	}
	return versionRange{
		lower: &bound{version: base, inclusive: true},
		upper: &bound{version: upper},
	}, nil
}

var looseVersion = regexp.MustCompile(`^(\d+)(\.\d+)?(\.\d+)?((?:-|\+).*)?$`)

// parseVersionLoose accepts the shorthand forms constraints allow: missing
// minor/patch segments default to zero ("1.2" parses as 1.2.0). Prerelease
// and build metadata validation is delegated to ParseVersion.
func parseVersionLoose(text string) (Version, error) {
	text = strings.TrimSpace(text)
	if luarocksRevision.MatchString(text) {
		return ParseVersion(text)
	}
	m := looseVersion.FindStringSubmatch(text)
	if m == nil {
		return ParseVersion(text)
	}
	full := m[1]
	if m[2] != "" {
		full += m[2]
	} else {
		full += ".0"
	}
	if m[3] != "" {
		full += m[3]
	} else {
		full += ".0"
	}
	full += m[4]
	return ParseVersion(full)
}
