// Package installer materializes a lockfile into an installation directory:
// bounded-concurrency fetch, checksum verification, archive retention and
// extraction, guarded by the project's advisory lock.
package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultConcurrency is the default bound on in-flight package
	// pipelines.
	DefaultConcurrency = 10
	// defaultAttempts is how many times a transient fetch failure is tried
	// before giving up on the package.
	defaultAttempts = 3
	// defaultRetryDelay is the backoff before the first retry; it doubles
	// per attempt.
	defaultRetryDelay = 200 * time.Millisecond
	// defaultAttemptTimeout bounds a single fetch attempt.
	defaultAttemptTimeout = 30 * time.Second
)

// Options configures one installation run.
type Options struct {
	// Dest is the installation root directory.
	Dest string
	// Concurrency bounds in-flight package pipelines; DefaultConcurrency
	// when zero or negative.
	Concurrency int
	// FailFast cancels the remaining pipelines on the first package
	// failure. In-flight pipelines still run to completion.
	FailFast bool
	// Attempts is the per-package cap on fetch attempts for transient
	// failures.
	Attempts int
	// RetryDelay is the initial backoff between attempts.
	RetryDelay time.Duration
	// AttemptTimeout bounds a single fetch attempt; a timed-out attempt
	// counts as transient and is retried.
	AttemptTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Attempts <= 0 {
		o.Attempts = defaultAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = defaultRetryDelay
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = defaultAttemptTimeout
	}
	return o
}

// Outcome records what happened to one package.
type Outcome struct {
	Package domain.PackageName
	Version string
	// Skipped is set when the retained archive already matched the lock
	// checksum and nothing was reinstalled.
	Skipped bool
	Err     error
}

// Report summarizes an installation run. Outcomes are ordered by package
// name.
type Report struct {
	Outcomes []Outcome
}

// Failed returns the outcomes that carry an error.
func (r *Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Installer runs lockfile-driven installations. Callers must hold the
// project's advisory lock for the duration of Install; the application layer
// acquires it around the lockfile write and the installation together.
type Installer struct {
	source  ports.PackageSource
	sum     ports.Checksummer
	extract ports.Extractor
	tracer  ports.Tracer
	logger  ports.Logger
}

// New creates an Installer.
func New(
	source ports.PackageSource,
	sum ports.Checksummer,
	extract ports.Extractor,
	tracer ports.Tracer,
	logger ports.Logger,
) *Installer {
	return &Installer{
		source:  source,
		sum:     sum,
		extract: extract,
		tracer:  tracer,
		logger:  logger,
	}
}

// Install materializes every lockfile entry under opts.Dest. Packages are
// processed concurrently up to opts.Concurrency; one package's failure never
// corrupts another's installed content. Without FailFast every package gets
// its attempt and all failures are aggregated into the returned error; the
// Report is returned in both cases.
func (i *Installer) Install(ctx context.Context, lf *domain.Lockfile, opts Options) (*Report, error) {
	opts = opts.withDefaults()

	if err := os.MkdirAll(filepath.Join(opts.Dest, domain.CacheDirName), 0o755); err != nil {
		return nil, zerr.Wrap(err, "failed to create installation directory")
	}

	names := make([]string, 0, len(lf.Packages))
	for _, entry := range lf.Packages {
		names = append(names, entry.Name)
	}
	i.tracer.EmitPlan(ctx, names)

	outcomes := make(map[string]Outcome, len(lf.Packages))
	var mu sync.Mutex
	record := func(o Outcome) {
		mu.Lock()
		defer mu.Unlock()
		outcomes[string(o.Package)] = o
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(opts.Concurrency)

	for _, entry := range lf.Packages {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				record(Outcome{Package: domain.PackageName(entry.Name), Version: entry.Version, Err: err})
				return nil
			}

			o := i.installOne(groupCtx, entry, opts)
			record(o)
			if o.Err != nil && opts.FailFast {
				return o.Err
			}
			return nil
		})
	}

	failFastErr := group.Wait()

	report := &Report{Outcomes: make([]Outcome, 0, len(outcomes))}
	keys := make([]string, 0, len(outcomes))
	for name := range outcomes {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	for _, name := range keys {
		report.Outcomes = append(report.Outcomes, outcomes[name])
	}

	if opts.FailFast && failFastErr != nil {
		return report, zerr.Wrap(failFastErr, domain.ErrInstallFailed.Error())
	}
	var errs error
	for _, o := range report.Failed() {
		errs = errors.Join(errs, zerr.With(o.Err, "package", string(o.Package)))
	}
	if errs != nil {
		return report, zerr.Wrap(errs, domain.ErrInstallFailed.Error())
	}
	return report, nil
}

// installOne runs the pipeline for a single package: fetch with retry,
// verify against the locked checksum, retain the canonical archive, extract.
func (i *Installer) installOne(ctx context.Context, entry domain.LockEntry, opts Options) Outcome {
	name := domain.PackageName(entry.Name)
	out := Outcome{Package: name, Version: entry.Version}

	ctx, span := i.tracer.Start(ctx, fmt.Sprintf("install %s@%s", entry.Name, entry.Version))
	defer span.End()
	fail := func(err error) Outcome {
		span.RecordError(err)
		out.Err = err
		return out
	}

	if i.alreadyInstalled(entry, opts.Dest) {
		fmt.Fprintf(span, "%s@%s already installed\n", entry.Name, entry.Version)
		out.Skipped = true
		return out
	}

	version, err := domain.ParseVersion(entry.Version)
	if err != nil {
		return fail(err)
	}

	content, err := i.fetchWithRetry(ctx, span, name, version, opts)
	if err != nil {
		return fail(err)
	}

	got := i.sum.Sum(content)
	if !got.Equal(entry.Checksum) {
		err := zerr.With(domain.ErrIntegrity, "package", entry.Name)
		err = zerr.With(err, "want", entry.Checksum.String())
		err = zerr.With(err, "got", got.String())
		return fail(err)
	}

	if err := i.materialize(entry, content, opts.Dest); err != nil {
		return fail(err)
	}

	fmt.Fprintf(span, "installed %s@%s\n", entry.Name, entry.Version)
	i.logger.Info(fmt.Sprintf("installed %s@%s", entry.Name, entry.Version))
	return out
}

// alreadyInstalled reports whether the package's extracted directory exists
// and the retained archive still hashes to the locked checksum. A matching
// archive without the extracted tree is not an installation.
func (i *Installer) alreadyInstalled(entry domain.LockEntry, dest string) bool {
	name := domain.PackageName(entry.Name)
	info, err := os.Stat(domain.PackageDir(dest, name))
	if err != nil || !info.IsDir() {
		return false
	}
	got, err := i.sum.SumFile(domain.ArchivePath(dest, name))
	return err == nil && got.Equal(entry.Checksum)
}

// fetchWithRetry retries transient fetch failures with doubling backoff.
// Permanent failures and context cancellation abort immediately.
func (i *Installer) fetchWithRetry(ctx context.Context, span ports.Span, name domain.PackageName, version domain.Version, opts Options) ([]byte, error) {
	delay := opts.RetryDelay
	var lastErr error
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, opts.AttemptTimeout)
		content, err := i.source.Fetch(attemptCtx, name, version)
		cancel()
		if err == nil {
			return content, nil
		}
		lastErr = err
		timedOut := errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil
		if !errors.Is(err, domain.ErrTransientFetch) && !timedOut {
			return nil, err
		}
		if attempt == opts.Attempts {
			break
		}

		fmt.Fprintf(span, "fetch attempt %d/%d failed, retrying in %s\n", attempt, opts.Attempts, delay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, zerr.With(lastErr, "attempts", fmt.Sprintf("%d", opts.Attempts))
}

// materialize retains the canonical archive and extracts it into the
// package's directory. The archive is written first; a failed extraction
// leaves no package directory behind.
func (i *Installer) materialize(entry domain.LockEntry, content []byte, dest string) error {
	name := domain.PackageName(entry.Name)

	archive := domain.ArchivePath(dest, name)
	if err := os.WriteFile(archive, content, 0o644); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to retain package archive"), "package", entry.Name)
	}

	pkgDir := domain.PackageDir(dest, name)
	if err := os.RemoveAll(pkgDir); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to clear package directory"), "package", entry.Name)
	}
	if err := i.extract.Extract(content, pkgDir); err != nil {
		_ = os.RemoveAll(pkgDir)
		return zerr.With(zerr.Wrap(err, "failed to extract package"), "package", entry.Name)
	}
	return nil
}
