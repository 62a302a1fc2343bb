package fs

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/depot/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Extractor = (*Extractor)(nil)

// Extractor unpacks canonical tar.gz package content.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract unpacks content under dest. Entries that would resolve outside
// dest are rejected; entry types other than directories and regular files
// are skipped.
func (e *Extractor) Extract(content []byte, dest string) error {
	gz, err := gzip.NewReader(bytes.NewReader(content))
	if err != nil {
		return zerr.Wrap(err, "failed to open package archive")
	}
	defer gz.Close() //nolint:errcheck // Best effort close in defer

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return zerr.Wrap(err, "failed to create extraction directory")
	}

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return zerr.Wrap(err, "failed to read package archive")
		}

		target, err := secureJoin(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return zerr.With(zerr.Wrap(err, "failed to create directory"), "path", hdr.Name)
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode()); err != nil {
				return zerr.With(zerr.Wrap(err, "failed to write file"), "path", hdr.Name)
			}
		default:
			// Symlinks, devices and the like have no business in a package
			// archive.
			continue
		}
	}
}

// secureJoin joins name onto dest and rejects traversal outside it.
func secureJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.Clean(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", zerr.With(zerr.New("archive entry escapes extraction directory"), "entry", name)
	}
	return target, nil
}

func writeFile(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm()) //nolint:gosec // Path validated by secureJoin
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil { //nolint:gosec // Package size is bounded by fetched content
		_ = f.Close()
		return err
	}
	return f.Close()
}
