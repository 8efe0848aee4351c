// Package crypto exposes the minimal primitives used by sascheck outside the
// verification protocol itself.
//
// Contents
//
//   - Ed25519 identity generation (NewIdentity, GenerateEd25519)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//   - Wire helpers: unpadded base64url (B64, FromB64) and 4-byte big-endian
//     length prefixes (AppendLP)
//
// # Notes
//
// Key types are the fixed-size arrays defined in internal/domain. Callers should
// treat returned secrets as sensitive and zero them with internal/util/memzero
// when practical.
package crypto
