package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Checksummer = (*Checksummer)(nil)

// Checksummer digests package content with SHA-256, the algorithm lockfiles
// record.
type Checksummer struct{}

// NewChecksummer creates a new Checksummer.
func NewChecksummer() *Checksummer {
	return &Checksummer{}
}

// Sum digests content bytes.
func (c *Checksummer) Sum(content []byte) domain.Checksum {
	sum := sha256.Sum256(content)
	return domain.Checksum{
		Algorithm: domain.ChecksumAlgorithm,
		Digest:    hex.EncodeToString(sum[:]),
	}
}

// SumFile digests the file at path without loading it whole.
func (c *Checksummer) SumFile(path string) (domain.Checksum, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Checksum{}, zerr.With(domain.ErrNotFound, "path", path)
		}
		return domain.Checksum{}, zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return domain.Checksum{}, zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}
	return domain.Checksum{
		Algorithm: domain.ChecksumAlgorithm,
		Digest:    hex.EncodeToString(h.Sum(nil)),
	}, nil
}
