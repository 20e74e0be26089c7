package updates

import (
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is the result of best-effort version parsing. Parsed is false when
// the raw string could not be interpreted at all; callers must treat that as
// "no signal" rather than as version zero.
type Version struct {
	Major  int
	Minor  int
	Patch  int
	Raw    string
	Parsed bool
}

// prereleaseTokens mark a version string as a pre-release, matched
// case-insensitively as substrings.
var prereleaseTokens = []string{"alpha", "beta", "rc", "dev", "pre"}

// ParseVersion parses a version string, trying canonical semver first and
// falling back to reading the literal leading dot-separated numeric segments.
func ParseVersion(raw string) Version {
	v := Version{Raw: raw}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return v
	}

	canonical := trimmed
	if !strings.HasPrefix(canonical, "v") {
		canonical = "v" + canonical
	}
	if semver.IsValid(canonical) {
		v.Major = segmentValue(semver.Canonical(canonical)[1:], 0)
		v.Minor = segmentValue(semver.Canonical(canonical)[1:], 1)
		v.Patch = segmentValue(semver.Canonical(canonical)[1:], 2)
		v.Parsed = true
		return v
	}

	// Fallback: literal leading numeric segments ("2024.11.0b1" -> 2024).
	segments := strings.Split(strings.TrimPrefix(trimmed, "v"), ".")
	major, err := strconv.Atoi(leadingDigits(segments[0]))
	if err != nil {
		return v
	}
	v.Major = major
	if len(segments) > 1 {
		v.Minor, _ = strconv.Atoi(leadingDigits(segments[1]))
	}
	if len(segments) > 2 {
		v.Patch, _ = strconv.Atoi(leadingDigits(segments[2]))
	}
	v.Parsed = true
	return v
}

// IsMajorBump reports whether latest increases the major version over
// current. When either side is unparseable the answer is false: no signal.
func IsMajorBump(current, latest Version) bool {
	if !current.Parsed || !latest.Parsed {
		return false
	}
	return latest.Major > current.Major
}

// MajorJump returns how many major versions latest is ahead of current, zero
// when either side is unparseable.
func MajorJump(current, latest Version) int {
	if !current.Parsed || !latest.Parsed {
		return 0
	}
	return latest.Major - current.Major
}

// IsPrerelease reports whether the version string contains a pre-release
// token.
func IsPrerelease(raw string) bool {
	lower := strings.ToLower(raw)
	for _, token := range prereleaseTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

// segmentValue reads the nth dot-separated segment of a canonical semver
// body ("1.2.3").
func segmentValue(body string, n int) int {
	segments := strings.Split(body, ".")
	if n >= len(segments) {
		return 0
	}
	value, _ := strconv.Atoi(leadingDigits(segments[n]))
	return value
}

// leadingDigits returns the leading run of ASCII digits in s.
func leadingDigits(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return s[:i]
		}
	}
	return s
}
