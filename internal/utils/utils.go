package utils

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// Checksum returns the xxh64 digest of b, prefixed with the algorithm
// name so manifests stay self-describing.
func Checksum(b []byte) string {
	return fmt.Sprintf("xxh64:%016x", xxhash.Sum64(b))
}

// ChecksumFile computes the checksum of a file without reading it into
// memory at once.
func ChecksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("xxh64:%016x", h.Sum64()), nil
}
