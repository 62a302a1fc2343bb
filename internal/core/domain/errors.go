package domain

import "go.trai.ch/zerr"

var (
	// ErrVersionParse is returned when a version string is malformed.
	ErrVersionParse = zerr.New("invalid version")

	// ErrConstraintParse is returned when a constraint expression is
	// malformed. The offending substring is attached as metadata.
	ErrConstraintParse = zerr.New("invalid constraint")

	// ErrVersionConflict is returned when a package's constraints cannot be
	// jointly satisfied, either because their intersection is empty or
	// because no published version falls inside it.
	ErrVersionConflict = zerr.New("version conflict")

	// ErrNonConvergence is returned when version assignment fails to reach a
	// fixed point within the iteration ceiling.
	ErrNonConvergence = zerr.New("resolution did not converge")

	// ErrIntegrity is returned when fetched or installed content does not
	// match its recorded checksum.
	ErrIntegrity = zerr.New("checksum mismatch")

	// ErrNotFound is returned by a package source when a package or version
	// does not exist. It is permanent and never retried.
	ErrNotFound = zerr.New("package not found")

	// ErrTransientFetch is returned by a package source for failures that
	// may succeed on retry.
	ErrTransientFetch = zerr.New("transient fetch failure")

	// ErrLockConflict is returned when the project's advisory lock is held
	// by another process.
	ErrLockConflict = zerr.New("another operation is in progress")

	// ErrUnknownMember is returned when a workspace filter names a member
	// that does not exist.
	ErrUnknownMember = zerr.New("unknown workspace member")

	// ErrLockfileFormat is returned when a lockfile has an unsupported
	// format version or cannot be decoded.
	ErrLockfileFormat = zerr.New("unsupported lockfile format")

	// ErrInstallFailed is returned when one or more package installations
	// failed; per-package reasons are in the install report.
	ErrInstallFailed = zerr.New("installation failed")
)
