// Package secrets classifies environment-variable values by how likely they
// are to be secret material. It is used during package creation to decide
// which values get templated into ${VAR} placeholders.
//
// The bias is deliberately toward over-templating: a false positive costs the
// operator a confirmation, a false negative leaks a credential.
package secrets

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Confidence is the classifier's verdict for a single value.
type Confidence int

const (
	// Safe values are preserved literally in the manifest.
	Safe Confidence = iota
	// Medium values prompt the operator for confirmation.
	Medium
	// High values are auto-templated into ${VAR} placeholders.
	High
)

func (c Confidence) String() string {
	switch c {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "safe"
	}
}

// EntropyThreshold is the Shannon entropy (bits per character) above which a
// value is considered suspicious. Policy, not load-bearing precision.
var EntropyThreshold = 4.5

// secretKeywords are matched against the variable name, case-insensitively.
var secretKeywords = []string{"token", "key", "secret", "password", "auth", "credential"}

var (
	uuidPattern   = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	base64Pattern = regexp.MustCompile(`[A-Za-z0-9+/]{20,}={0,2}`)
	hexPattern    = regexp.MustCompile(`[0-9a-fA-F]{32,}`)
	urlPattern    = regexp.MustCompile(`^https?://[^\s]+$`)
)

// Classify assigns a confidence level to an environment-variable value.
// It is deterministic: the same (name, value) pair always yields the same
// confidence. Rules are applied in order; the first match wins.
func Classify(name, value string) Confidence {
	lower := strings.ToLower(name)
	for _, kw := range secretKeywords {
		if strings.Contains(lower, kw) {
			return High
		}
	}

	if uuidPattern.MatchString(value) ||
		base64Pattern.MatchString(value) ||
		hexPattern.MatchString(value) {
		return High
	}

	if entropy(value) > EntropyThreshold {
		return Medium
	}

	if isSafeShape(value) {
		return Safe
	}

	return Medium
}

// Template returns the ${VAR} placeholder for a variable name.
func Template(name string) string {
	return "${" + name + "}"
}

// isSafeShape reports whether a value looks like plain configuration rather
// than secret material: booleans, numbers and simple URLs.
func isSafeShape(value string) bool {
	switch strings.ToLower(value) {
	case "true", "false", "yes", "no", "on", "off", "":
		return true
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return true
	}
	return urlPattern.MatchString(value)
}

// entropy computes the Shannon entropy of s in bits per character.
func entropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	freq := make(map[rune]int)
	total := 0
	for _, r := range s {
		freq[r]++
		total++
	}

	var e float64
	for _, n := range freq {
		p := float64(n) / float64(total)
		e -= p * math.Log2(p)
	}
	return e
}
