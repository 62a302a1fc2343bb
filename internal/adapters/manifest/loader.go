// Package manifest provides the depot.yaml loader: it parses manifests,
// discovers workspace members and turns declared dependencies into domain
// edges.
package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"sort"

	"go.trai.ch/depot/internal/adapters/fs"
	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// FileName is the manifest file name looked up in every package directory.
const FileName = "depot.yaml"

// maxMemberDepth bounds workspace member discovery below the root.
const maxMemberDepth = 3

var _ ports.ManifestLoader = (*Loader)(nil)

// Loader implements ports.ManifestLoader over the file system.
type Loader struct {
	walker *fs.Walker
}

// NewLoader creates a Loader.
func NewLoader(walker *fs.Walker) *Loader {
	return &Loader{walker: walker}
}

// LoadWorkspace loads the manifest at root and, when it declares a
// workspace, discovers and loads every member manifest. The root manifest
// itself is always a member. Parse failures across manifests are aggregated
// so one broken member does not hide another.
func (l *Loader) LoadWorkspace(root string) (*domain.Workspace, error) {
	rootManifest, err := readManifest(filepath.Join(root, FileName))
	if err != nil {
		return nil, err
	}

	rootMember, err := memberOf(rootManifest, ".")
	if err != nil {
		return nil, err
	}
	members := []domain.Member{rootMember}

	var loadErrs error
	if rootManifest.Workspace != nil {
		for path := range l.walker.WalkManifests(root, FileName, maxMemberDepth, rootManifest.Workspace.Exclude) {
			relDir, relErr := filepath.Rel(root, filepath.Dir(path))
			if relErr != nil {
				return nil, zerr.Wrap(relErr, "failed to relativize member path")
			}
			relDir = filepath.ToSlash(relDir)
			if !matchesMembers(relDir, rootManifest.Workspace.Members) {
				continue
			}

			m, err := readManifest(path)
			if err != nil {
				loadErrs = errors.Join(loadErrs, err)
				continue
			}
			member, err := memberOf(m, relDir)
			if err != nil {
				loadErrs = errors.Join(loadErrs, err)
				continue
			}
			members = append(members, member)
		}
	}
	if loadErrs != nil {
		return nil, loadErrs
	}

	if err := checkUniqueNames(members); err != nil {
		return nil, err
	}
	return domain.NewWorkspace(root, members), nil
}

func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is derived from the project root
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read manifest"), "path", path)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to parse manifest"), "path", path)
	}
	if m.Name == "" {
		return nil, zerr.With(zerr.New("manifest missing package name"), "path", path)
	}
	return &m, nil
}

// memberOf converts a manifest into a workspace member. Dependencies are
// ordered by name, runtime before dev, which fixes the declaration order
// lenient resolution relies on.
func memberOf(m *Manifest, relPath string) (domain.Member, error) {
	var edges []domain.DependencyEdge
	var parseErrs error

	for _, kind := range []domain.EdgeKind{domain.KindRuntime, domain.KindDev} {
		deps := m.Dependencies
		if kind == domain.KindDev {
			deps = m.DevDependencies
		}
		for _, target := range sortedKeys(deps) {
			raw := deps[target]
			c, err := domain.ParseConstraint(raw)
			if err != nil {
				err = zerr.With(err, "member", m.Name)
				parseErrs = errors.Join(parseErrs, zerr.With(err, "dependency", target))
				continue
			}
			edges = append(edges, domain.DependencyEdge{
				Requirer:      domain.PackageID(m.Name),
				Target:        domain.PackageName(target),
				Constraint:    c,
				RawConstraint: raw,
				Kind:          kind,
			})
		}
	}
	if parseErrs != nil {
		return domain.Member{}, parseErrs
	}

	return domain.Member{Name: m.Name, Path: relPath, Edges: edges}, nil
}

// matchesMembers reports whether a member directory is covered by the
// workspace member patterns. An empty pattern list admits every discovered
// manifest.
func matchesMembers(relDir string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, relDir); matched {
			return true
		}
	}
	return false
}

func checkUniqueNames(members []domain.Member) error {
	seen := make(map[string]string, len(members))
	for _, m := range members {
		if other, dup := seen[m.Name]; dup {
			err := zerr.With(zerr.New("duplicate member name"), "name", m.Name)
			err = zerr.With(err, "path", m.Path)
			return zerr.With(err, "conflicts_with", other)
		}
		seen[m.Name] = m.Path
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
