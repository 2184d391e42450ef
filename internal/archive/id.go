package archive

import (
	"encoding/base32"
	"time"
)

// crockfordBase32 is a sortable base32 alphabet (digits before letters).
const crockfordBase32 = "0123456789abcdefghjkmnpqrstvwxyz"

//nolint:gochecknoglobals // package-level constant
var crockfordEncoding = base32.NewEncoding(crockfordBase32).WithPadding(base32.NoPadding)

const (
	timestampBytes  = 4
	byteMask        = 0xFF
	maxSuffixLength = 8
)

// GenerateID creates a lexicographically sortable entry ID: Unix seconds
// encoded big-endian in Crockford's base32 (7 chars, fixed width), so string
// order equals chronological order. Works until 2106.
func GenerateID(now time.Time) string {
	sec := now.Unix()

	buf := make([]byte, timestampBytes)
	for i := timestampBytes - 1; i >= 0; i-- {
		buf[i] = byte(sec & byteMask)
		sec >>= 8
	}

	return crockfordEncoding.EncodeToString(buf)
}

// GenerateUniqueID generates an ID for which exists reports false. Same-second
// collisions get letter suffixes (a, b, ..., z, za, zb, ...); a suffixed ID
// still sorts between its base second and the next one.
func GenerateUniqueID(now time.Time, exists func(id string) bool) (string, error) {
	base := GenerateID(now)

	if !exists(base) {
		return base, nil
	}

	suffix := ""

	for {
		suffix = nextSuffix(suffix)
		candidate := base + suffix

		if !exists(candidate) {
			return candidate, nil
		}

		if len(suffix) > maxSuffixLength {
			return "", ErrIDGenerationFailed
		}
	}
}

// nextSuffix advances a letter suffix: a, b, ..., z, za, zb, ..., zz, zza.
func nextSuffix(suffix string) string {
	if suffix == "" {
		return "a"
	}

	runes := []rune(suffix)

	for idx := len(runes) - 1; idx >= 0; idx-- {
		if runes[idx] < 'z' {
			runes[idx]++

			return string(runes)
		}

		runes[idx] = 'a'
	}

	return suffix + "a"
}

// ValidID reports whether id consists only of the lowercase base32 alphabet
// entry IDs are generated from. Guards sidecar paths against traversal.
func ValidID(id string) bool {
	if id == "" {
		return false
	}

	for _, r := range id {
		if (r < '0' || r > '9') && (r < 'a' || r > 'z') {
			return false
		}
	}

	return true
}
