package fs_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/depot/internal/adapters/fs"
	"go.trai.ch/depot/internal/core/domain"
)

func makeArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestChecksummer_SumMatchesSumFile(t *testing.T) {
	sum := fs.NewChecksummer()
	content := []byte("some package content")

	path := filepath.Join(t.TempDir(), "pkg.tar.gz")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	fromBytes := sum.Sum(content)
	fromFile, err := sum.SumFile(path)
	require.NoError(t, err)

	assert.Equal(t, domain.ChecksumAlgorithm, fromBytes.Algorithm)
	assert.True(t, fromBytes.Equal(fromFile))
}

func TestChecksummer_SumFileMissing(t *testing.T) {
	sum := fs.NewChecksummer()
	_, err := sum.SumFile(filepath.Join(t.TempDir(), "nope"))
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExtractor_RoundTrip(t *testing.T) {
	archive := makeArchive(t, map[string]string{
		"init.lua":     "return {}",
		"src/util.lua": "local m = {}",
	})

	dest := t.TempDir()
	require.NoError(t, fs.NewExtractor().Extract(archive, dest))

	data, err := os.ReadFile(filepath.Join(dest, "init.lua"))
	require.NoError(t, err)
	assert.Equal(t, "return {}", string(data))

	data, err = os.ReadFile(filepath.Join(dest, "src", "util.lua"))
	require.NoError(t, err)
	assert.Equal(t, "local m = {}", string(data))
}

func TestExtractor_RejectsTraversal(t *testing.T) {
	archive := makeArchive(t, map[string]string{
		"../escape.txt": "nope",
	})

	err := fs.NewExtractor().Extract(archive, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes")
}

func TestWalker_FindsMembersWithinDepth(t *testing.T) {
	root := t.TempDir()
	write := func(rel string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("name: x\n"), 0o644))
	}
	write("depot.yaml")                // root manifest, not a member
	write("app/depot.yaml")            // depth 1
	write("libs/core/depot.yaml")      // depth 2
	write("a/b/c/d/depot.yaml")        // depth 4, beyond the bound
	write("vendor/ignored/depot.yaml") // ignored subtree

	var found []string
	for path := range fs.NewWalker().WalkManifests(root, "depot.yaml", 3, []string{"vendor"}) {
		rel, err := filepath.Rel(root, path)
		require.NoError(t, err)
		found = append(found, filepath.ToSlash(rel))
	}
	assert.ElementsMatch(t, []string{"app/depot.yaml", "libs/core/depot.yaml"}, found)
}

func TestInstalledTree(t *testing.T) {
	root := t.TempDir()
	sum := fs.NewChecksummer()
	tree := fs.NewInstalledTree(root, sum)

	// Empty installation.
	names, err := tree.Packages()
	require.NoError(t, err)
	assert.Empty(t, names)

	content := []byte("archive bytes")
	require.NoError(t, os.MkdirAll(domain.PackageDir(root, "libA"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, domain.CacheDirName), 0o755))
	require.NoError(t, os.WriteFile(domain.ArchivePath(root, "libA"), content, 0o644))

	names, err = tree.Packages()
	require.NoError(t, err)
	assert.Equal(t, []string{"libA"}, names)

	got, err := tree.ContentChecksum("libA")
	require.NoError(t, err)
	assert.True(t, got.Equal(sum.Sum(content)))

	_, err = tree.ContentChecksum("libB")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
