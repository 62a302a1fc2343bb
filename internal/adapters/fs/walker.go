// Package fs provides file system adapters: manifest discovery, content
// checksumming, archive extraction and installed-tree inspection.
package fs

import (
	"io/fs"
	"iter"
	"path/filepath"
	"strings"
)

// Walker discovers manifest files in a directory tree.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// WalkManifests yields the paths of every file named manifestName under
// root, at most maxDepth directory levels deep. The root's own manifest is
// not yielded. Version control metadata and directories matching an ignore
// pattern are skipped.
func (w *Walker) WalkManifests(root, manifestName string, maxDepth int, ignores []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return relErr
			}

			if d.IsDir() {
				if rel == "." {
					return nil
				}
				if w.skipDir(d, ignores) {
					return filepath.SkipDir
				}
				if depthOf(rel) >= maxDepth {
					return filepath.SkipDir
				}
				return nil
			}

			if d.Name() != manifestName || rel == manifestName {
				return nil
			}

			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func (w *Walker) skipDir(d fs.DirEntry, ignores []string) bool {
	name := d.Name()

	// Always skip version control metadata.
	if name == ".git" || name == ".jj" {
		return true
	}

	for _, ignore := range ignores {
		if matched, _ := filepath.Match(ignore, name); matched {
			return true
		}
	}
	return false
}

func depthOf(rel string) int {
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}
