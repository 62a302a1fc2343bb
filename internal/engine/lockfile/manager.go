// Package lockfile turns resolution graphs into durable, checksummed lock
// records and verifies installations against them.
package lockfile

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports"
	"go.trai.ch/zerr"
)

// InstalledContent exposes what an installation directory actually contains:
// which packages are present and the checksum of each package's canonical
// content.
type InstalledContent interface {
	// Packages lists installed package names in any order.
	Packages() ([]string, error)

	// ContentChecksum digests the canonical content of one installed
	// package. Returns domain.ErrNotFound when the package has no retained
	// content.
	ContentChecksum(name string) (domain.Checksum, error)
}

// Manager computes, verifies and incrementally updates lockfiles.
type Manager struct {
	sum ports.Checksummer
}

// NewManager creates a Manager.
func NewManager(sum ports.Checksummer) *Manager {
	return &Manager{sum: sum}
}

// Compute builds a lockfile from a resolution graph, fetching every selected
// package once to digest its canonical content. The result marshals to
// byte-identical output for identical resolution input.
func (m *Manager) Compute(ctx context.Context, graph *domain.ResolutionGraph, source ports.PackageSource) (*domain.Lockfile, error) {
	entries := make([]domain.LockEntry, 0, graph.Len())
	for _, name := range graph.Packages() {
		v, _ := graph.Selected(name)
		content, err := source.Fetch(ctx, name, v)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to fetch package content"), "package", string(name))
		}
		entries = append(entries, domain.LockEntry{
			Name:         string(name),
			Version:      v.String(),
			Checksum:     m.sum.Sum(content),
			Dependencies: dependencyPins(graph, name),
		})
	}
	return domain.NewLockfile(entries), nil
}

// Verify compares a lockfile against installed content and reports every
// discrepancy, at most one per package: a mismatching digest, a locked
// package that is absent, or installed content the lockfile does not track.
// An empty result means the installation matches the lockfile exactly.
func (m *Manager) Verify(lf *domain.Lockfile, installed InstalledContent) ([]domain.IntegrityViolation, error) {
	present, err := installed.Packages()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to enumerate installed packages")
	}
	tracked := make(map[string]bool, len(lf.Packages))

	var violations []domain.IntegrityViolation
	for _, entry := range lf.Packages {
		tracked[entry.Name] = true
		got, err := installed.ContentChecksum(entry.Name)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				violations = append(violations, domain.IntegrityViolation{
					Package: entry.Name,
					Kind:    domain.ViolationMissing,
					Want:    entry.Checksum,
				})
				continue
			}
			return nil, zerr.With(zerr.Wrap(err, "failed to digest installed package"), "package", entry.Name)
		}
		if !got.Equal(entry.Checksum) {
			violations = append(violations, domain.IntegrityViolation{
				Package: entry.Name,
				Kind:    domain.ViolationMismatch,
				Want:    entry.Checksum,
				Got:     got,
			})
		}
	}

	sort.Strings(present)
	for _, name := range present {
		if !tracked[name] {
			violations = append(violations, domain.IntegrityViolation{
				Package: name,
				Kind:    domain.ViolationUntracked,
			})
		}
	}
	return violations, nil
}

// Update reconciles an existing lockfile with a fresh resolution graph.
// Entries whose pinned version and dependency pins are unchanged are carried
// forward verbatim, without refetching content; added or changed packages
// are fetched and redigested; packages no longer selected are dropped.
func (m *Manager) Update(ctx context.Context, old *domain.Lockfile, graph *domain.ResolutionGraph, source ports.PackageSource) (*domain.Lockfile, error) {
	entries := make([]domain.LockEntry, 0, graph.Len())
	for _, name := range graph.Packages() {
		v, _ := graph.Selected(name)
		deps := dependencyPins(graph, name)

		if prev, ok := old.Entry(string(name)); ok {
			if entryFingerprint(prev.Name, prev.Version, prev.Dependencies) ==
				entryFingerprint(string(name), v.String(), deps) {
				entries = append(entries, prev)
				continue
			}
		}

		content, err := source.Fetch(ctx, name, v)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to fetch package content"), "package", string(name))
		}
		entries = append(entries, domain.LockEntry{
			Name:         string(name),
			Version:      v.String(),
			Checksum:     m.sum.Sum(content),
			Dependencies: deps,
		})
	}
	return domain.NewLockfile(entries), nil
}

func dependencyPins(graph *domain.ResolutionGraph, name domain.PackageName) map[string]string {
	direct := graph.DirectDependencies(name)
	if len(direct) == 0 {
		return nil
	}
	pins := make(map[string]string, len(direct))
	for dep, v := range direct {
		pins[string(dep)] = v.String()
	}
	return pins
}

// entryFingerprint hashes the identity-relevant fields of a lock entry so
// Update can cheaply detect unchanged packages.
func entryFingerprint(name, version string, deps map[string]string) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(name)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(version)

	keys := make([]string, 0, len(deps))
	for k := range deps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = h.WriteString(fmt.Sprintf("\x00%s=%s", k, deps[k]))
	}
	return h.Sum64()
}
