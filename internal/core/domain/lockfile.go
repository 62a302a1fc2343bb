package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.trai.ch/zerr"
)

// LockfileFormatVersion is the current lockfile schema version.
const LockfileFormatVersion = 1

// ChecksumAlgorithm is the digest algorithm used for lock entries.
const ChecksumAlgorithm = "sha256"

// Checksum is an algorithm-tagged digest of canonical package content bytes.
type Checksum struct {
	Algorithm string
	Digest    string
}

// ParseChecksum parses the "<algorithm>:<hex-digest>" wire form.
func ParseChecksum(s string) (Checksum, error) {
	algo, digest, ok := strings.Cut(s, ":")
	if !ok || algo == "" || digest == "" {
		return Checksum{}, zerr.With(zerr.New("malformed checksum"), "input", s)
	}
	return Checksum{Algorithm: algo, Digest: digest}, nil
}

func (c Checksum) String() string {
	return c.Algorithm + ":" + c.Digest
}

// Equal reports whether both checksums use the same algorithm and digest.
func (c Checksum) Equal(o Checksum) bool {
	return c.Algorithm == o.Algorithm && c.Digest == o.Digest
}

// MarshalText implements encoding.TextMarshaler.
func (c Checksum) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Checksum) UnmarshalText(text []byte) error {
	parsed, err := ParseChecksum(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// LockEntry records one resolved package: its pinned version, the checksum
// of its canonical fetched content, and the versions of its direct
// dependencies.
type LockEntry struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Checksum     Checksum          `json:"checksum"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Lockfile is the durable record of a resolution: a format version tag plus
// entries ordered by package name. Identical resolution input always
// serializes to identical bytes.
type Lockfile struct {
	FormatVersion int         `json:"format_version"`
	Packages      []LockEntry `json:"packages"`
}

// NewLockfile builds a lockfile from entries, normalizing entry order.
func NewLockfile(entries []LockEntry) *Lockfile {
	sorted := make([]LockEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return &Lockfile{FormatVersion: LockfileFormatVersion, Packages: sorted}
}

// Entry returns the entry for name.
func (l *Lockfile) Entry(name string) (LockEntry, bool) {
	for _, e := range l.Packages {
		if e.Name == name {
			return e, true
		}
	}
	return LockEntry{}, false
}

// Marshal serializes the lockfile deterministically: entries are
// name-ordered and JSON object keys (including dependency maps) are emitted
// sorted, so equal lockfiles are byte-identical.
func (l *Lockfile) Marshal() ([]byte, error) {
	for i := 1; i < len(l.Packages); i++ {
		if l.Packages[i-1].Name >= l.Packages[i].Name {
			return nil, zerr.With(zerr.New("lockfile entries out of order"), "entry", l.Packages[i].Name)
		}
	}
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return nil, zerr.Wrap(err, "failed to marshal lockfile")
	}
	return append(data, '\n'), nil
}

// UnmarshalLockfile decodes and validates lockfile bytes.
func UnmarshalLockfile(data []byte) (*Lockfile, error) {
	var l Lockfile
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, zerr.Wrap(errors.Join(ErrLockfileFormat, err), "failed to decode lockfile")
	}
	if l.FormatVersion != LockfileFormatVersion {
		return nil, zerr.With(ErrLockfileFormat, "format_version", fmt.Sprintf("%d", l.FormatVersion))
	}
	return &l, nil
}

// IntegrityViolationKind classifies a verification failure.
type IntegrityViolationKind string

const (
	// ViolationMismatch means installed content hashes to a different digest
	// than the lockfile records.
	ViolationMismatch IntegrityViolationKind = "mismatch"
	// ViolationMissing means a locked package is absent from the
	// installation.
	ViolationMissing IntegrityViolationKind = "missing"
	// ViolationUntracked means installed content exists for a package the
	// lockfile does not record.
	ViolationUntracked IntegrityViolationKind = "untracked"
)

// IntegrityViolation is one discrepancy between a lockfile and the installed
// tree.
type IntegrityViolation struct {
	Package string
	Kind    IntegrityViolationKind
	Want    Checksum
	Got     Checksum
}

func (v IntegrityViolation) String() string {
	switch v.Kind {
	case ViolationMismatch:
		return fmt.Sprintf("%s: checksum mismatch (want %s, got %s)", v.Package, v.Want, v.Got)
	case ViolationMissing:
		return fmt.Sprintf("%s: missing from installation", v.Package)
	default:
		return fmt.Sprintf("%s: installed but not in lockfile", v.Package)
	}
}
