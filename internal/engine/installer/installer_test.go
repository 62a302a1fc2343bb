package installer_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports"
	"go.trai.ch/depot/internal/core/ports/mocks"
	"go.trai.ch/depot/internal/engine/installer"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	source  *mocks.MockPackageSource
	sum     *mocks.MockChecksummer
	extract *mocks.MockExtractor
	inst    *installer.Installer
}

func newFixture(ctrl *gomock.Controller) *fixture {
	f := &fixture{
		source:  mocks.NewMockPackageSource(ctrl),
		sum:     mocks.NewMockChecksummer(ctrl),
		extract: mocks.NewMockExtractor(ctrl),
	}

	span := mocks.NewMockSpan(ctrl)
	span.EXPECT().Write(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
		return len(p), nil
	}).AnyTimes()
	span.EXPECT().RecordError(gomock.Any()).AnyTimes()
	span.EXPECT().End().AnyTimes()

	tracer := mocks.NewMockTracer(ctrl)
	tracer.EXPECT().EmitPlan(gomock.Any(), gomock.Any()).AnyTimes()
	tracer.EXPECT().Start(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string) (context.Context, ports.Span) {
			return ctx, span
		}).AnyTimes()

	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).AnyTimes()

	f.inst = installer.New(f.source, f.sum, f.extract, tracer, log)
	return f
}

// expectContentSums makes Sum return the hex of the raw content and SumFile
// report nothing installed yet.
func (f *fixture) expectContentSums() {
	f.sum.EXPECT().Sum(gomock.Any()).DoAndReturn(func(content []byte) domain.Checksum {
		return domain.Checksum{Algorithm: "sha256", Digest: fmt.Sprintf("%x", content)}
	}).AnyTimes()
	f.sum.EXPECT().SumFile(gomock.Any()).Return(domain.Checksum{}, domain.ErrNotFound).AnyTimes()
}

func lockedEntry(name, version, content string) domain.LockEntry {
	return domain.LockEntry{
		Name:    name,
		Version: version,
		Checksum: domain.Checksum{
			Algorithm: "sha256",
			Digest:    fmt.Sprintf("%x", []byte(content)),
		},
	}
}

func TestInstaller_InstallsAllPackages(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(ctrl)
	f.expectContentSums()

	dest := t.TempDir()
	f.source.EXPECT().Fetch(gomock.Any(), domain.PackageName("libA"), gomock.Any()).
		Return([]byte("content-a"), nil)
	f.source.EXPECT().Fetch(gomock.Any(), domain.PackageName("libB"), gomock.Any()).
		Return([]byte("content-b"), nil)
	f.extract.EXPECT().Extract([]byte("content-a"), domain.PackageDir(dest, "libA")).Return(nil)
	f.extract.EXPECT().Extract([]byte("content-b"), domain.PackageDir(dest, "libB")).Return(nil)

	lf := domain.NewLockfile([]domain.LockEntry{
		lockedEntry("libA", "1.0.0", "content-a"),
		lockedEntry("libB", "2.0.0", "content-b"),
	})

	report, err := f.inst.Install(context.Background(), lf, installer.Options{Dest: dest})
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 2)
	assert.Empty(t, report.Failed())

	// Canonical archives are retained for later verification.
	data, err := os.ReadFile(domain.ArchivePath(dest, "libA"))
	require.NoError(t, err)
	assert.Equal(t, []byte("content-a"), data)
}

func TestInstaller_ChecksumMismatchFailsPackageOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(ctrl)
	f.expectContentSums()

	dest := t.TempDir()
	// libA's registry content no longer matches its locked checksum.
	f.source.EXPECT().Fetch(gomock.Any(), domain.PackageName("libA"), gomock.Any()).
		Return([]byte("tampered"), nil)
	f.source.EXPECT().Fetch(gomock.Any(), domain.PackageName("libB"), gomock.Any()).
		Return([]byte("content-b"), nil)
	f.extract.EXPECT().Extract([]byte("content-b"), domain.PackageDir(dest, "libB")).Return(nil)

	lf := domain.NewLockfile([]domain.LockEntry{
		lockedEntry("libA", "1.0.0", "content-a"),
		lockedEntry("libB", "2.0.0", "content-b"),
	})

	report, err := f.inst.Install(context.Background(), lf, installer.Options{Dest: dest})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIntegrity)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, domain.PackageName("libA"), failed[0].Package)

	// Nothing of libA was materialized.
	_, statErr := os.Stat(domain.ArchivePath(dest, "libA"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestInstaller_FailFastSkipsRemainingPackages(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(ctrl)
	f.expectContentSums()

	// Concurrency 1 makes pipeline order deterministic: aaa fails
	// permanently, bbb is never fetched.
	f.source.EXPECT().Fetch(gomock.Any(), domain.PackageName("aaa"), gomock.Any()).
		Return(nil, domain.ErrNotFound).Times(1)

	lf := domain.NewLockfile([]domain.LockEntry{
		lockedEntry("aaa", "1.0.0", "content-a"),
		lockedEntry("bbb", "1.0.0", "content-b"),
	})

	report, err := f.inst.Install(context.Background(), lf, installer.Options{
		Dest:        t.TempDir(),
		Concurrency: 1,
		FailFast:    true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInstallFailed)
	assert.Len(t, report.Failed(), 2)
}

func TestInstaller_RetriesTransientFetch(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newFixture(ctrl)
		f.expectContentSums()

		dest := t.TempDir()
		gomock.InOrder(
			f.source.EXPECT().Fetch(gomock.Any(), domain.PackageName("libA"), gomock.Any()).
				Return(nil, domain.ErrTransientFetch),
			f.source.EXPECT().Fetch(gomock.Any(), domain.PackageName("libA"), gomock.Any()).
				Return(nil, domain.ErrTransientFetch),
			f.source.EXPECT().Fetch(gomock.Any(), domain.PackageName("libA"), gomock.Any()).
				Return([]byte("content-a"), nil),
		)
		f.extract.EXPECT().Extract([]byte("content-a"), domain.PackageDir(dest, "libA")).Return(nil)

		lf := domain.NewLockfile([]domain.LockEntry{lockedEntry("libA", "1.0.0", "content-a")})

		start := time.Now()
		report, err := f.inst.Install(context.Background(), lf, installer.Options{
			Dest:       dest,
			RetryDelay: 200 * time.Millisecond,
		})
		require.NoError(t, err)
		assert.Empty(t, report.Failed())
		// First retry after 200ms, second after 400ms.
		assert.Equal(t, 600*time.Millisecond, time.Since(start))
	})
}

func TestInstaller_GivesUpAfterAttemptCap(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newFixture(ctrl)
		f.expectContentSums()

		f.source.EXPECT().Fetch(gomock.Any(), domain.PackageName("libA"), gomock.Any()).
			Return(nil, domain.ErrTransientFetch).Times(3)

		lf := domain.NewLockfile([]domain.LockEntry{lockedEntry("libA", "1.0.0", "content-a")})

		report, err := f.inst.Install(context.Background(), lf, installer.Options{
			Dest:     t.TempDir(),
			Attempts: 3,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrTransientFetch)
		require.Len(t, report.Failed(), 1)
	})
}

func TestInstaller_RetriesStalledFetchAfterAttemptTimeout(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newFixture(ctrl)
		f.expectContentSums()

		dest := t.TempDir()
		gomock.InOrder(
			f.source.EXPECT().Fetch(gomock.Any(), domain.PackageName("libA"), gomock.Any()).
				DoAndReturn(func(ctx context.Context, _ domain.PackageName, _ domain.Version) ([]byte, error) {
					<-ctx.Done()
					return nil, ctx.Err()
				}),
			f.source.EXPECT().Fetch(gomock.Any(), domain.PackageName("libA"), gomock.Any()).
				Return([]byte("content-a"), nil),
		)
		f.extract.EXPECT().Extract([]byte("content-a"), domain.PackageDir(dest, "libA")).Return(nil)

		lf := domain.NewLockfile([]domain.LockEntry{lockedEntry("libA", "1.0.0", "content-a")})

		report, err := f.inst.Install(context.Background(), lf, installer.Options{
			Dest:           dest,
			AttemptTimeout: time.Second,
			RetryDelay:     100 * time.Millisecond,
		})
		require.NoError(t, err)
		assert.Empty(t, report.Failed())
	})
}

func TestInstaller_SkipsAlreadyInstalledPackage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(ctrl)

	dest := t.TempDir()
	entry := lockedEntry("libA", "1.0.0", "content-a")
	require.NoError(t, os.MkdirAll(domain.PackageDir(dest, "libA"), 0o755))
	f.sum.EXPECT().SumFile(domain.ArchivePath(dest, "libA")).Return(entry.Checksum, nil)

	lf := domain.NewLockfile([]domain.LockEntry{entry})

	report, err := f.inst.Install(context.Background(), lf, installer.Options{Dest: dest})
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.True(t, report.Outcomes[0].Skipped)
}

func TestInstaller_ReinstallsWhenPackageDirMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(ctrl)

	dest := t.TempDir()
	entry := lockedEntry("libA", "1.0.0", "content-a")

	// The retained archive matches the lock, but the extracted tree is gone:
	// the package must be reinstalled, not skipped.
	require.NoError(t, os.MkdirAll(filepath.Join(dest, domain.CacheDirName), 0o755))
	require.NoError(t, os.WriteFile(domain.ArchivePath(dest, "libA"), []byte("content-a"), 0o644))

	f.sum.EXPECT().Sum([]byte("content-a")).Return(entry.Checksum)
	f.source.EXPECT().Fetch(gomock.Any(), domain.PackageName("libA"), gomock.Any()).
		Return([]byte("content-a"), nil)
	f.extract.EXPECT().Extract([]byte("content-a"), domain.PackageDir(dest, "libA")).Return(nil)

	lf := domain.NewLockfile([]domain.LockEntry{entry})

	report, err := f.inst.Install(context.Background(), lf, installer.Options{Dest: dest})
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.False(t, report.Outcomes[0].Skipped)
	assert.NoError(t, report.Outcomes[0].Err)
}
