package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// FingerprintSize is the number of hash bytes kept in a fingerprint.
const FingerprintSize = 10

// Fingerprint returns a short hex fingerprint of a public key.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars).
func Fingerprint(pub []byte) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:FingerprintSize])
}

// NormalizeFingerprint accepts a fingerprint as a human might type it
// (upper case, grouped with spaces, colons or dashes) and returns the
// canonical lowercase hex form.
func NormalizeFingerprint(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', ':', '-', '\t':
			return -1
		}
		if r >= 'A' && r <= 'F' {
			return r + ('a' - 'A')
		}
		return r
	}, strings.TrimSpace(s))
}
