package domain

import "path/filepath"

// CacheDirName is the directory under an installation root that retains the
// canonical fetched archive of every installed package. Verification hashes
// these archives, not the extracted trees.
const CacheDirName = ".cache"

// PackageDir returns the directory a package's content is extracted into.
func PackageDir(root string, name PackageName) string {
	return filepath.Join(root, string(name))
}

// ArchivePath returns the path of a package's retained canonical archive.
func ArchivePath(root string, name PackageName) string {
	return filepath.Join(root, CacheDirName, string(name)+".tar.gz")
}
