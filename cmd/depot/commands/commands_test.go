package commands_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/depot/cmd/depot/commands"
	"go.trai.ch/depot/internal/adapters/fs"
	"go.trai.ch/depot/internal/adapters/lockstore"
	"go.trai.ch/depot/internal/adapters/manifest"
	"go.trai.ch/depot/internal/adapters/registry"
	"go.trai.ch/depot/internal/adapters/telemetry"
	"go.trai.ch/depot/internal/app"
	"go.trai.ch/depot/internal/core/ports/mocks"
	"go.trai.ch/depot/internal/engine/installer"
	"go.trai.ch/depot/internal/engine/lockfile"
	"go.trai.ch/depot/internal/engine/resolver"
	"go.uber.org/mock/gomock"
)

func newCLI(t *testing.T, ctrl *gomock.Controller, project, regRoot string) *commands.CLI {
	t.Helper()

	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).AnyTimes()

	source := registry.NewSource(regRoot)
	store := lockstore.NewStore(filepath.Join(project, "depot.lock"))
	sum := fs.NewChecksummer()
	tracer := telemetry.NewNoOpTracer()

	a := app.New(
		manifest.NewLoader(fs.NewWalker()),
		source,
		store,
		sum,
		resolver.New(source, log),
		lockfile.NewManager(sum),
		installer.New(source, sum, fs.NewExtractor(), tracer, log),
		log,
	)
	return commands.New(a)
}

// restoreWd undoes the working-directory change the root command performs
// for --root.
func restoreWd(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func publish(t *testing.T, regRoot, pkg, index string, archives map[string][]byte) {
	t.Helper()
	dir := filepath.Join(regRoot, pkg)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.yaml"), []byte(index), 0o644))
	for name, content := range archives {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), content, 0o644))
	}
}

func archiveOf(t *testing.T, files map[string]string) []byte {
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

func TestCLI_InstallVerifyList(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	restoreWd(t)

	project := t.TempDir()
	regRoot := t.TempDir()
	dest := filepath.Join(project, "lua_modules")

	require.NoError(t, os.WriteFile(filepath.Join(project, "depot.yaml"), []byte(`
name: myapp
dependencies:
  libA: "^1.0.0"
`), 0o644))
	publish(t, regRoot, "libA", `versions: [{version: "1.2.0"}]`, map[string][]byte{
		"libA-1.2.0.tar.gz": archiveOf(t, map[string]string{"init.lua": "return {}"}),
	})

	cli := newCLI(t, ctrl, project, regRoot)
	cli.SetArgs([]string{"install", "--root", project, "--dest", dest})
	require.NoError(t, cli.Execute(context.Background()))

	_, err := os.Stat(filepath.Join(dest, "libA", "init.lua"))
	require.NoError(t, err)

	cli = newCLI(t, ctrl, project, regRoot)
	cli.SetArgs([]string{"verify", "--dest", dest})
	require.NoError(t, cli.Execute(context.Background()))

	cli = newCLI(t, ctrl, project, regRoot)
	cli.SetArgs([]string{"list"})
	require.NoError(t, cli.Execute(context.Background()))
}

func TestCLI_RootFlagAnchorsProjectPaths(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	restoreWd(t)

	base := t.TempDir()
	require.NoError(t, os.Chdir(base))

	project := filepath.Join(base, "proj")
	require.NoError(t, os.MkdirAll(project, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(project, "depot.yaml"), []byte(`
name: myapp
dependencies:
  libA: "^1.0.0"
`), 0o644))
	publish(t, filepath.Join(project, ".depot", "registry"), "libA",
		`versions: [{version: "1.0.0"}]`, map[string][]byte{
			"libA-1.0.0.tar.gz": archiveOf(t, map[string]string{"init.lua": "return {}"}),
		})

	// Project-relative paths, as the real wiring uses them.
	cli := newCLI(t, ctrl, ".", ".depot/registry")
	cli.SetArgs([]string{"install", "--root", "proj"})
	require.NoError(t, cli.Execute(context.Background()))

	// Everything landed under the project directory, nothing in the
	// directory the command was started from.
	_, err := os.Stat(filepath.Join(project, "depot.lock"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(project, "lua_modules", "libA", "init.lua"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(base, "depot.lock"))
	assert.True(t, os.IsNotExist(err))
}

func TestCLI_InstallRejectsUnknownStrategy(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cli := newCLI(t, ctrl, t.TempDir(), t.TempDir())
	cli.SetArgs([]string{"install", "--strategy", "newest"})

	err := cli.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid resolution strategy")
}

func TestCLI_ListWithoutLockfile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cli := newCLI(t, ctrl, t.TempDir(), t.TempDir())
	cli.SetArgs([]string{"list"})

	err := cli.Execute(context.Background())
	require.ErrorIs(t, err, app.ErrNoLockfile)
}
