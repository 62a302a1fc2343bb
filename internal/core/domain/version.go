// Package domain contains the core domain model for dependency resolution:
// versions, constraints, dependency edges, resolution graphs, lockfiles and
// workspaces.
package domain

import (
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.trai.ch/zerr"
)

// Version is an immutable semantic version. Ordering follows SemVer
// precedence: major, minor, patch numerically; a release is greater than any
// prerelease of the same triple; build metadata is ignored.
type Version struct {
	sv *semver.Version
}

// luarocksRevision matches the upstream ecosystem's "3.0-1" revision form,
// where the trailing numeric segment is a package revision, not a prerelease.
var luarocksRevision = regexp.MustCompile(`^(\d+)\.(\d+)-(\d+)$`)

// ParseVersion parses a version string. It accepts strict semantic versions
// ("1.2.3", "1.2.3-rc.1+build.5") and the registry revision form ("3.0-1",
// normalized to "3.0.1"). Empty input, malformed numeric segments and
// prerelease identifiers with disallowed characters are rejected.
func ParseVersion(text string) (Version, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Version{}, zerr.With(ErrVersionParse, "input", text)
	}

	if m := luarocksRevision.FindStringSubmatch(text); m != nil {
		text = m[1] + "." + m[2] + "." + m[3]
	}

	sv, err := semver.StrictNewVersion(text)
	if err != nil {
		return Version{}, zerr.With(zerr.Wrap(err, ErrVersionParse.Error()), "input", text)
	}
	return Version{sv: sv}, nil
}

// MustVersion parses a version string and panics on failure. For tests and
// compile-time constants only.
func MustVersion(text string) Version {
	v, err := ParseVersion(text)
	if err != nil {
		panic(err)
	}
	return v
}

// NewVersion constructs a version from its components.
func NewVersion(major, minor, patch uint64) Version {
	return Version{sv: semver.New(major, minor, patch, "", "")}
}

// IsZero reports whether v is the zero Version (not a parsed one).
func (v Version) IsZero() bool {
	return v.sv == nil
}

// Major returns the major component.
func (v Version) Major() uint64 { return v.sv.Major() }

// Minor returns the minor component.
func (v Version) Minor() uint64 { return v.sv.Minor() }

// Patch returns the patch component.
func (v Version) Patch() uint64 { return v.sv.Patch() }

// Prerelease returns the prerelease identifiers, empty for a release.
func (v Version) Prerelease() string { return v.sv.Prerelease() }

// Compare returns -1, 0 or 1 ordering v against o per SemVer precedence.
func (v Version) Compare(o Version) int {
	return v.sv.Compare(o.sv)
}

// Less reports whether v precedes o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

// Equal reports whether v and o have equal precedence. Build metadata does
// not participate.
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

func (v Version) String() string {
	if v.sv == nil {
		return ""
	}
	return v.sv.String()
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// bumpMajor returns the smallest version greater than every v with the same
// major component: (major+1).0.0.
func (v Version) bumpMajor() Version {
	return NewVersion(v.Major()+1, 0, 0)
}

// bumpMinor returns major.(minor+1).0.
func (v Version) bumpMinor() Version {
	return NewVersion(v.Major(), v.Minor()+1, 0)
}

// bumpPatch returns major.minor.(patch+1).
func (v Version) bumpPatch() Version {
	return NewVersion(v.Major(), v.Minor(), v.Patch()+1)
}
