// Package commit implements the hash commitment the receiver uses to bind
// itself to its identity material before it sees the sender's.
//
// # Construction
//
//	commitment = H(DS || LP(label) || LP(data) || LP(nonce))
//
// where LP(x) is a 4-byte big-endian length followed by x, DS is the
// versioned constant DomainSeparator and H is SHA3-256 (default) or SHA-256.
// Length prefixes stop one (label, data) split from colliding with another;
// the separator keeps a commitment from verifying under a different protocol
// that hashes the same bytes.
//
// # Flow
//
//  1. Compute over the caller's data, generating a nonce of at least 16 bytes.
//  2. Publish Commitment, Alg and Label; keep the nonce private.
//  3. At reveal, publish data and nonce; the peer calls Verify.
//
// Verify compares in constant time.
package commit
