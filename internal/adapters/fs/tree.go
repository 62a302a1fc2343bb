package fs

import (
	"os"
	"strings"

	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports"
	"go.trai.ch/zerr"
)

// InstalledTree inspects an installation directory: one subdirectory per
// installed package plus the retained archives under the cache directory.
type InstalledTree struct {
	root string
	sum  ports.Checksummer
}

// NewInstalledTree creates an InstalledTree over root.
func NewInstalledTree(root string, sum ports.Checksummer) *InstalledTree {
	return &InstalledTree{root: root, sum: sum}
}

// Packages lists installed package names. A missing installation directory
// is an empty installation, not an error.
func (t *InstalledTree) Packages() ([]string, error) {
	entries, err := os.ReadDir(t.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read installation directory"), "path", t.root)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// ContentChecksum digests the retained canonical archive of one installed
// package. Returns domain.ErrNotFound when no archive is retained.
func (t *InstalledTree) ContentChecksum(name string) (domain.Checksum, error) {
	return t.sum.SumFile(domain.ArchivePath(t.root, domain.PackageName(name)))
}
