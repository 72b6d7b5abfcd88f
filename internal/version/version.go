// Package version wraps semantic-version parsing, ordering and
// update-availability computation for package versions.
//
// Versions are stored and displayed without the "v" prefix (manifests declare
// "1.2.0"), while golang.org/x/mod/semver requires it, so every entry point
// normalizes before delegating.
package version

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrInvalid indicates a string that is not valid semver.
type ErrInvalid struct {
	Version string
}

func (e *ErrInvalid) Error() string {
	return fmt.Sprintf("invalid semantic version: %q", e.Version)
}

// normalize adds the "v" prefix expected by the semver package.
func normalize(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return v
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// IsValid reports whether v is a valid semantic version, with or without the
// "v" prefix.
func IsValid(v string) bool {
	return semver.IsValid(normalize(v))
}

// Canonical returns the canonical form of v without the "v" prefix.
// Build metadata is dropped, matching semver precedence rules.
func Canonical(v string) (string, error) {
	n := normalize(v)
	if !semver.IsValid(n) {
		return "", &ErrInvalid{Version: v}
	}
	return strings.TrimPrefix(semver.Canonical(n), "v"), nil
}

// Compare returns -1, 0 or 1 depending on whether a is lower than, equal to
// or higher than b, following semver precedence (a prerelease sorts below the
// release with the same numeric triple).
func Compare(a, b string) int {
	return semver.Compare(normalize(a), normalize(b))
}

// Filter returns the entries of candidates that are valid semver, stripped of
// any "v" prefix, sorted descending. Invalid entries are dropped.
func Filter(candidates []string) []string {
	var valid []string
	for _, c := range candidates {
		n := normalize(c)
		if semver.IsValid(n) {
			valid = append(valid, strings.TrimPrefix(n, "v"))
		}
	}
	sort.SliceStable(valid, func(i, j int) bool {
		return Compare(valid[i], valid[j]) > 0
	})
	return valid
}

// HasUpdate returns the highest version in available that is strictly greater
// than installed, and whether one exists. Prerelease candidates are only
// considered when the installed version is itself a prerelease.
func HasUpdate(installed string, available []string) (string, bool) {
	if !IsValid(installed) {
		return "", false
	}
	installedPre := semver.Prerelease(normalize(installed)) != ""

	best := ""
	for _, v := range Filter(available) {
		if !installedPre && semver.Prerelease(normalize(v)) != "" {
			continue
		}
		if Compare(v, installed) <= 0 {
			continue
		}
		if best == "" || Compare(v, best) > 0 {
			best = v
		}
	}
	return best, best != ""
}
