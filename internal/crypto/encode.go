package crypto

import (
	"encoding/base64"
	"encoding/binary"
	"math"
)

// B64 returns base64url encoding without padding, the form used for every
// byte field on the wire.
func B64(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

// FromB64 decodes a base64url string without padding.
func FromB64(s string) ([]byte, error) { return base64.RawURLEncoding.DecodeString(s) }

// AppendLP appends a 4-byte big-endian length followed by x to dst.
// Length-prefixing every segment keeps concatenated transcripts unambiguous.
func AppendLP(dst, x []byte) []byte {
	if uint64(len(x)) > math.MaxUint32 {
		panic("crypto: segment too long for a 32-bit length prefix")
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(x)))
	return append(dst, x...)
}
