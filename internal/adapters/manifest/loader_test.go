package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/depot/internal/adapters/fs"
	"go.trai.ch/depot/internal/adapters/manifest"
	"go.trai.ch/depot/internal/core/domain"
)

func newLoader() *manifest.Loader {
	return manifest.NewLoader(fs.NewWalker())
}

func writeManifest(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoader_SinglePackage(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "depot.yaml", `
name: app
version: 0.1.0
dependencies:
  libB: ">=1.0.0 <2.0.0"
  libA: "^1.2.0"
dev_dependencies:
  busted: "~2.0.0"
`)

	ws, err := newLoader().LoadWorkspace(root)
	require.NoError(t, err)
	require.Len(t, ws.Members, 1)

	m := ws.Members[0]
	assert.Equal(t, "app", m.Name)
	assert.Equal(t, ".", m.Path)
	require.Len(t, m.Edges, 3)

	// Runtime dependencies come first, name-ordered, then dev.
	assert.Equal(t, domain.PackageName("libA"), m.Edges[0].Target)
	assert.Equal(t, domain.KindRuntime, m.Edges[0].Kind)
	assert.Equal(t, "^1.2.0", m.Edges[0].RawConstraint)
	assert.Equal(t, domain.PackageName("libB"), m.Edges[1].Target)
	assert.Equal(t, domain.PackageName("busted"), m.Edges[2].Target)
	assert.Equal(t, domain.KindDev, m.Edges[2].Kind)
	assert.Equal(t, domain.PackageID("app"), m.Edges[0].Requirer)
}

func TestLoader_WorkspaceDiscovery(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "depot.yaml", `
name: root
workspace:
  members: ["libs/*", "app"]
  exclude: ["vendor"]
`)
	writeManifest(t, root, "app/depot.yaml", "name: app\n")
	writeManifest(t, root, "libs/core/depot.yaml", "name: core\n")
	writeManifest(t, root, "libs/util/depot.yaml", "name: util\n")
	// tools matches no member pattern; vendor is excluded outright.
	writeManifest(t, root, "tools/depot.yaml", "name: tools\n")
	writeManifest(t, root, "vendor/dep/depot.yaml", "name: vendored\n")

	ws, err := newLoader().LoadWorkspace(root)
	require.NoError(t, err)

	var names []string
	for _, m := range ws.Members {
		names = append(names, m.Name)
	}
	assert.ElementsMatch(t, []string{"root", "app", "core", "util"}, names)

	// Members are ordered by path, root first.
	assert.Equal(t, ".", ws.Members[0].Path)
}

func TestLoader_AggregatesParseErrors(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "depot.yaml", "name: root\nworkspace: {}\n")
	writeManifest(t, root, "a/depot.yaml", `
name: a
dependencies:
  libA: "not-a-constraint ^^"
`)
	writeManifest(t, root, "b/depot.yaml", "name: ''\n")

	_, err := newLoader().LoadWorkspace(root)
	require.Error(t, err)
	// Both broken members are reported, not just the first.
	assert.Contains(t, err.Error(), "libA")
	assert.Contains(t, err.Error(), "missing package name")
}

func TestLoader_RejectsDuplicateMemberNames(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "depot.yaml", "name: root\nworkspace: {}\n")
	writeManifest(t, root, "a/depot.yaml", "name: dup\n")
	writeManifest(t, root, "b/depot.yaml", "name: dup\n")

	_, err := newLoader().LoadWorkspace(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate member name")
}

func TestLoader_MissingRootManifest(t *testing.T) {
	_, err := newLoader().LoadWorkspace(t.TempDir())
	require.Error(t, err)
}
