// Package checksum computes the sha256-prefixed checksums used throughout
// package manifests, trackers and conflict resolution.
package checksum

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// Sum computes the SHA256 checksum of a byte slice.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("sha256:%x", h)
}

// SumFile computes the SHA256 checksum of a file.
func SumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("sha256:%x", h.Sum(nil)), nil
}

// FileMatches reports whether the file at path has the given checksum.
// A missing file never matches.
func FileMatches(path, sum string) bool {
	actual, err := SumFile(path)
	if err != nil {
		return false
	}
	return actual == sum
}
