// Package registry implements the package source over a registry directory:
// one subdirectory per package holding an index file and the canonical
// archive of every published version.
package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"

	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

const indexFileName = "index.yaml"

var _ ports.PackageSource = (*Source)(nil)

// indexDTO mirrors the on-disk index file.
type indexDTO struct {
	Versions []indexVersionDTO `yaml:"versions"`
}

type indexVersionDTO struct {
	Version      string            `yaml:"version"`
	Dependencies map[string]string `yaml:"dependencies"`
}

// Source reads package metadata and content from a registry directory.
type Source struct {
	root string
}

// NewSource creates a Source over the registry directory at root.
func NewSource(root string) *Source {
	return &Source{root: filepath.Clean(root)}
}

// ListVersions reads the package's index file and returns its published
// versions in ascending order.
func (s *Source) ListVersions(ctx context.Context, name domain.PackageName) ([]domain.VersionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(s.root, string(name), indexFileName)
	data, err := os.ReadFile(path) //nolint:gosec // Registry root is operator-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil, zerr.With(domain.ErrNotFound, "package", string(name))
		}
		return nil, zerr.With(errors.Join(domain.ErrTransientFetch, err), "package", string(name))
	}

	var index indexDTO
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to parse registry index"), "package", string(name))
	}

	infos := make([]domain.VersionInfo, 0, len(index.Versions))
	for _, entry := range index.Versions {
		v, err := domain.ParseVersion(entry.Version)
		if err != nil {
			return nil, zerr.With(err, "package", string(name))
		}
		infos = append(infos, domain.VersionInfo{
			Version:      v,
			Dependencies: requirements(entry.Dependencies),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Version.Less(infos[j].Version) })
	return infos, nil
}

// Fetch reads the canonical archive of one published version.
func (s *Source) Fetch(ctx context.Context, name domain.PackageName, version domain.Version) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(s.root, string(name), string(name)+"-"+version.String()+".tar.gz")
	data, err := os.ReadFile(path) //nolint:gosec // Registry root is operator-controlled
	if err != nil {
		if os.IsNotExist(err) {
			wrapped := zerr.With(domain.ErrNotFound, "package", string(name))
			return nil, zerr.With(wrapped, "version", version.String())
		}
		wrapped := zerr.With(errors.Join(domain.ErrTransientFetch, err), "package", string(name))
		return nil, zerr.With(wrapped, "version", version.String())
	}
	return data, nil
}

// requirements converts an index dependency map into name-ordered
// requirements. Index dependencies are always runtime kind.
func requirements(deps map[string]string) []domain.Requirement {
	if len(deps) == 0 {
		return nil
	}
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	reqs := make([]domain.Requirement, 0, len(names))
	for _, name := range names {
		reqs = append(reqs, domain.Requirement{
			Name:       domain.PackageName(name),
			Constraint: deps[name],
			Kind:       domain.KindRuntime,
		})
	}
	return reqs
}
