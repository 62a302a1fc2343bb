package resolver

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports"
)

// MetadataCache memoizes package metadata lookups for a single resolution
// run. Not-found outcomes are cached too; transient failures are not, so a
// retry within the run can still succeed. Safe for concurrent use.
type MetadataCache struct {
	mu       sync.Mutex
	versions map[domain.PackageName][]domain.VersionInfo
	missing  map[domain.PackageName]error
}

// NewMetadataCache creates an empty cache. Callers create one per run;
// nothing invalidates entries.
func NewMetadataCache() *MetadataCache {
	return &MetadataCache{
		versions: make(map[domain.PackageName][]domain.VersionInfo),
		missing:  make(map[domain.PackageName]error),
	}
}

// Versions lists the known versions of name in ascending order, hitting the
// source at most once per name.
func (c *MetadataCache) Versions(ctx context.Context, source ports.PackageSource, name domain.PackageName) ([]domain.VersionInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if infos, ok := c.versions[name]; ok {
		return infos, nil
	}
	if err, ok := c.missing[name]; ok {
		return nil, err
	}

	infos, err := source.ListVersions(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.missing[name] = err
		}
		return nil, err
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Version.Less(infos[j].Version) })
	c.versions[name] = infos
	return infos, nil
}
