package ports

import "go.trai.ch/depot/internal/core/domain"

// Checksummer computes algorithm-tagged digests of package content.
//
//go:generate go run go.uber.org/mock/mockgen -source=checksummer.go -destination=mocks/mock_checksummer.go -package=mocks
type Checksummer interface {
	// Sum digests content bytes.
	Sum(content []byte) domain.Checksum

	// SumFile digests the file at path.
	SumFile(path string) (domain.Checksum, error)
}

// Extractor materializes canonical package content into a directory.
type Extractor interface {
	// Extract unpacks content under dest, rejecting entries that would
	// escape it.
	Extract(content []byte, dest string) error
}
